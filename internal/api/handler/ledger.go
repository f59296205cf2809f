// internal/api/handler/ledger.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chainlend-ledger/internal/api/types"
	"chainlend-ledger/internal/domain"
	"chainlend-ledger/internal/service"
	"chainlend-ledger/internal/util"
)

// LedgerHandler handles HTTP requests for loan reconciliation and credit scores.
type LedgerHandler struct {
	service service.ReconciliationService
	logger  *util.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc service.ReconciliationService, logger *util.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: svc,
		logger:  logger.WithComponent("ledger-handler"),
	}
}

// RecordFunding handles an observed funding event.
// POST /fundings
func (h *LedgerHandler) RecordFunding(w http.ResponseWriter, r *http.Request) {
	var req service.FundingInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	result, err := h.service.RecordFunding(r.Context(), req)
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyRecorded {
		status = http.StatusOK
	}
	h.logger.Info("Funding recorded",
		zap.String("funded_loan_id", result.FundedLoanID),
		zap.Bool("already_recorded", result.AlreadyRecorded),
	)
	respondWithJSON(h.logger, w, status, result)
}

// RecordRepayment handles an observed repayment event.
// POST /repayments
func (h *LedgerHandler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	var req service.RepaymentInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	result, err := h.service.RecordRepayment(r.Context(), req)
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	h.logger.Info("Repayment recorded",
		zap.String("funded_loan_id", result.FundedLoanID),
		zap.String("category", string(result.PaymentCategory)),
		zap.Int("new_score", result.NewScore),
	)
	respondWithJSON(h.logger, w, http.StatusOK, result)
}

// GetCreditScore returns a user's credit score, creating a default one on first query.
// GET /credit-scores/{userKey}
func (h *LedgerHandler) GetCreditScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.GetCreditScore(r.Context(), chi.URLParam(r, "userKey"))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, score)
}

// VerifyAgainstChain deactivates funded loans the chain no longer reports.
// POST /verifications
func (h *LedgerHandler) VerifyAgainstChain(w http.ResponseWriter, r *http.Request) {
	var req service.VerificationInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	result, err := h.service.VerifyAgainstChain(r.Context(), req)
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	if result.Deactivated > 0 {
		h.logger.Info("Stale funded loans deactivated", zap.Int64("count", result.Deactivated))
	}
	respondWithJSON(h.logger, w, http.StatusOK, result)
}

// ListActiveFundedLoans lists the funded loans the ledger considers outstanding.
// GET /funded-loans/active
func (h *LedgerHandler) ListActiveFundedLoans(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ActiveFundedLoanIDs(r.Context())
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondWithJSON(h.logger, w, http.StatusOK, map[string][]string{"activeFundedLoanIds": ids})
}

// RequestLoan records a new pending loan request.
// POST /loan-requests
func (h *LedgerHandler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req service.LoanRequestInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	loan, err := h.service.RequestLoan(r.Context(), req)
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusCreated, loan)
}

// MarkDefaulted moves a loan request to defaulted.
// POST /loan-requests/{loanId}/default
func (h *LedgerHandler) MarkDefaulted(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.MarkDefaulted(r.Context(), chi.URLParam(r, "loanId"))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, loan)
}

// UserLoansResponse is the body of GET /users/{userKey}/loans.
type UserLoansResponse struct {
	UserKey    string                                          `json:"userKey"`
	Active     []domain.UserLoan                               `json:"active"`
	Repayments types.PaginatedResponse[domain.RepaymentRecord] `json:"repayments"`
}

// GetUserLoans returns the user's active loans and a page of repayment history.
// GET /users/{userKey}/loans?limit=&offset=
func (h *LedgerHandler) GetUserLoans(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	loans, err := h.service.GetUserLoans(r.Context(), chi.URLParam(r, "userKey"), limit, offset)
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}

	active := loans.Active
	if active == nil {
		active = []domain.UserLoan{}
	}
	respondWithJSON(h.logger, w, http.StatusOK, UserLoansResponse{
		UserKey:    loans.UserKey,
		Active:     active,
		Repayments: types.NewPage(loans.Repayments, loans.Limit, loans.Offset, loans.TotalCount),
	})
}

// GetUserSummary returns aggregate activity for one user.
// GET /users/{userKey}/summary
func (h *LedgerHandler) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetUserSummary(r.Context(), chi.URLParam(r, "userKey"))
	if err != nil {
		respondWithError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, summary)
}
