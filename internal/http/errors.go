package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(kind order.ErrorKind) int {
	switch kind {
	case order.KindValidation:
		return http.StatusBadRequest
	case order.KindNotFound:
		return http.StatusNotFound
	case order.KindStateConflict:
		return http.StatusConflict
	case order.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err onto a status by its kind. Internal errors are
// logged and answered with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := order.Kind(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	hlog.FromRequest(r).Debug().Err(err).Str("kind", kind.String()).Msg("request rejected")
	writeError(w, status, err.Error())
}
