package api

import (
	"encoding/json"
	"net/http"

	"loanverify/internal/errors"
)

type errorBody struct {
	Code       string                  `json:"code"`
	Message    string                  `json:"message"`
	Violations []errors.FieldViolation `json:"violations,omitempty"`
}

// statusFor maps an error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Client errors carry their message; everything
// else is logged and answered with a generic body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)

	body := errorBody{Code: code, Message: err.Error()}
	if inputErr, ok := errors.AsInputError(err); ok {
		body.Violations = inputErr.Violations
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
		body = errorBody{Code: code, Message: "internal error"}
	}

	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
