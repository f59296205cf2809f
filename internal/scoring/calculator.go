// internal/scoring/calculator.go
package scoring

import (
	"math"

	"chainlend-ledger/internal/domain"
)

const baseScore = 500

// Counters are the aggregate repayment counts of one borrower.
type Counters struct {
	TotalLoans int
	OnTime     int
	Early      int
	Late       int
}

// CountersOf extracts the counters of a stored score.
func CountersOf(s *domain.CreditScore) Counters {
	return Counters{
		TotalLoans: s.TotalLoans,
		OnTime:     s.OnTimePayments,
		Early:      s.EarlyPayments,
		Late:       s.LatePayments,
	}
}

// ComputeScore derives a score in [MinScore, MaxScore] from the counters and the complete
// repayment history. Each history entry is scored on its own and the deltas are summed,
// so order does not matter. An empty history falls back to percentage weighting.
func ComputeScore(c Counters, history []domain.PaymentDetail) int {
	if c.TotalLoans == 0 {
		return baseScore
	}

	score := float64(baseScore) + ExperienceBonus(c.TotalLoans)
	if len(history) > 0 {
		for _, p := range history {
			score += PaymentDelta(p)
		}
	} else {
		total := float64(c.TotalLoans)
		onTimePct := float64(c.OnTime) / total * 100
		earlyPct := float64(c.Early) / total * 100
		latePct := float64(c.Late) / total * 100
		score += onTimePct*2 + earlyPct - latePct*3
	}
	return Clamp(score)
}

// ExperienceBonus rewards the number of loans repaid.
func ExperienceBonus(totalLoans int) float64 {
	switch {
	case totalLoans >= 10:
		return 50
	case totalLoans >= 5:
		return 25
	case totalLoans >= 2:
		return 10
	default:
		return 0
	}
}

// PaymentDelta scores one repayment relative to its loan's duration.
func PaymentDelta(p domain.PaymentDetail) float64 {
	m := p.MagnitudeDays
	d := p.LoanDurationDays
	switch p.Category {
	case domain.PaymentEarly:
		// The 50% tier sits behind the 25% tier and never fires; the published table is kept as is.
		switch {
		case m >= d*0.25:
			return 100
		case m >= d*0.50:
			return 75
		default:
			return 50
		}
	case domain.PaymentOnTime:
		switch {
		case m >= d*0.75:
			return 50
		case m > 5:
			return 35
		case m >= 1:
			return 15
		default:
			return 0
		}
	case domain.PaymentLate:
		switch {
		case m < 2:
			return -5
		case m <= 5:
			return -30
		default:
			return -50
		}
	default:
		return 0
	}
}

// Clamp bounds score to [MinScore, MaxScore] and rounds to the nearest integer.
func Clamp(score float64) int {
	score = math.Max(domain.MinScore, math.Min(domain.MaxScore, score))
	return int(math.Round(score))
}
