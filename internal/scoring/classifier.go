// internal/scoring/classifier.go

// Package scoring holds the pure payment classification and credit score rules.
package scoring

import (
	"math"

	"github.com/shopspring/decimal"

	"chainlend-ledger/internal/domain"
)

const (
	// MillisPerDay converts the epoch-millisecond timestamps used everywhere into days.
	MillisPerDay = 86_400_000

	// DefaultLoanDurationDays is assumed when the funding time is unknown.
	DefaultLoanDurationDays = 30
)

var millisPerDay = decimal.NewFromInt(MillisPerDay)

// DaysBetween returns (to - from) in fractional days.
func DaysBetween(from, to decimal.Decimal) float64 {
	return to.Sub(from).Div(millisPerDay).InexactFloat64()
}

// KnownTime wraps a stored timestamp; zero means the time was never observed.
func KnownTime(ms decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: ms, Valid: !ms.IsZero()}
}

// Classifier classifies repayments. The zero value uses DefaultLoanDurationDays.
type Classifier struct {
	DefaultDurationDays float64
}

// NewClassifier returns a Classifier with the given fallback duration.
func NewClassifier(defaultDurationDays float64) Classifier {
	return Classifier{DefaultDurationDays: defaultDurationDays}
}

// LoanDurationDays is max(1, deadline - fundedAt) in days, or the fallback when fundedAt
// is unknown.
func (c Classifier) LoanDurationDays(deadline decimal.Decimal, fundedAt decimal.NullDecimal) float64 {
	if !fundedAt.Valid {
		if c.DefaultDurationDays > 0 {
			return c.DefaultDurationDays
		}
		return DefaultLoanDurationDays
	}
	return math.Max(1, DaysBetween(fundedAt.Decimal, deadline))
}

// Classify compares repaidAt with deadline. At least one whole day before is early, at
// least one whole day after is late, anything in between is on time.
func (c Classifier) Classify(deadline, repaidAt decimal.Decimal, fundedAt decimal.NullDecimal) domain.Classification {
	diffDays := DaysBetween(deadline, repaidAt)
	out := domain.Classification{
		MagnitudeDays:    math.Abs(diffDays),
		LoanDurationDays: c.LoanDurationDays(deadline, fundedAt),
	}
	switch {
	case diffDays <= -1:
		out.Category = domain.PaymentEarly
	case diffDays >= 1:
		out.Category = domain.PaymentLate
	default:
		out.Category = domain.PaymentOnTime
	}
	return out
}
