// Package shared holds the JSON envelope helpers every handler uses, so
// error translation to HTTP stays in one place.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "convene/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are swallowed:
// the header is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to its HTTP status and writes the envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	msg := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	WriteJSON(w, toHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: msg,
	})
}

func toHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeForbidden, dErrors.CodeAccountBlocked:
		return http.StatusForbidden
	case dErrors.CodeConflict,
		dErrors.CodeAlreadyRegistered,
		dErrors.CodeAlreadyScheduled,
		dErrors.CodeAlreadyEligible:
		return http.StatusConflict
	case dErrors.CodeEventNotOpen,
		dErrors.CodeDeadlinePassed,
		dErrors.CodeEventFull,
		dErrors.CodeTooLateToCancel,
		dErrors.CodeNotYetEligible:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
