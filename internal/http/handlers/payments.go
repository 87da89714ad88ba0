package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/brieflyhq/briefly-back/internal/service"
)

type verifyPaymentRequest struct {
	Signature      string  `json:"signature"`
	Plan           string  `json:"plan"`
	ExpectedAmount float64 `json:"expected_amount"`
}

// VerifyPayment checks a client-submitted transaction signature against
// the chain. Every rejection reason has its own error code so the
// client can distinguish a replay from a wrong amount.
func (api *API) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request verifyPaymentRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}
	if strings.TrimSpace(request.Signature) == "" || request.ExpectedAmount <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "signature and expected_amount are required")
		return
	}

	err := api.payments.Verify(r.Context(), request.Signature, request.Plan, request.ExpectedAmount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentReplay):
			writeError(w, r, http.StatusConflict, "duplicate_transaction", "transaction has already been used")
		case errors.Is(err, service.ErrPaymentNotFound):
			writeError(w, r, http.StatusNotFound, "transaction_not_found", "transaction not found on chain")
		case errors.Is(err, service.ErrPaymentFailed):
			writeError(w, r, http.StatusBadRequest, "transaction_failed", "transaction failed on chain")
		case errors.Is(err, service.ErrPaymentWrongWallet):
			writeError(w, r, http.StatusBadRequest, "wrong_recipient", "transaction does not pay the expected wallet")
		case errors.Is(err, service.ErrPaymentWrongAmount):
			writeError(w, r, http.StatusBadRequest, "amount_mismatch", "transaction amount does not match")
		case errors.Is(err, service.ErrPaymentUnconfigured):
			writeError(w, r, http.StatusServiceUnavailable, "not_configured", "payment verification is not configured")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to verify payment")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"verified": true,
		"plan":     request.Plan,
	})
}
