package kit

import (
	"context"
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON envelope of every non-2xx answer.
type ErrorResponse struct {
	Message   string `json:"message"`
	Error     any    `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type exposeKey struct{}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Message:   msg,
		Error:     details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// WriteFault answers 500. The error text is only included when the
// request went through ErrorDetail(true).
func WriteFault(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var details any
	if err != nil && exposeErrors(r.Context()) {
		details = err.Error()
	}
	WriteError(w, r, http.StatusInternalServerError, msg, details)
}

// ErrorDetail controls whether WriteFault leaks error text to clients.
// Production deployments run with expose=false.
func ErrorDetail(expose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), exposeKey{}, expose)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func exposeErrors(ctx context.Context) bool {
	v, _ := ctx.Value(exposeKey{}).(bool)
	return v
}
