package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kiwari-pos/checkout/internal/backend"
	"github.com/kiwari-pos/checkout/internal/checkout"
	"github.com/kiwari-pos/checkout/internal/payment"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a 500.
func writeError(w http.ResponseWriter, op string, err error) {
	var (
		ve *checkout.ValidationError
		pe *payment.PaymentError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case isConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, checkout.ErrNoActiveCheckout), errors.Is(err, backend.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &pe):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": pe.Error()})
	case backend.IsNetworkError(err):
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "order backend unavailable"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isConflict(err error) bool {
	return errors.Is(err, checkout.ErrIllegalTransition) ||
		errors.Is(err, checkout.ErrCheckoutInProgress) ||
		errors.Is(err, checkout.ErrSessionOpen)
}
