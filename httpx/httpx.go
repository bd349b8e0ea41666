// Package httpx holds the small HTTP plumbing shared by every handler:
// JSON encoding of responses, JSON decoding of request bodies, and the
// translation of application errors into error payloads.
package httpx

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/user/board-go/apperror"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpx: failed to encode response: %v", err)
	}
}

// WriteError writes err as a JSON error payload. Errors from the apperror
// taxonomy carry their own status code; anything else is treated as an
// unexpected server fault, logged, and surfaced as a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		log.Printf("httpx: unexpected error: %v", err)
		appErr = apperror.NewInternalError("internal server error", err)
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Printf("httpx: server fault: %v", appErr)
	}
	WriteJSON(w, appErr.StatusCode(), appErr.ToResponse())
}

// DecodeJSON decodes the request body into v, mapping malformed input to a
// BadRequestError.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.NewBadRequestError("invalid request payload", err)
	}
	return nil
}

// NoContent writes an empty 204 response, used by the delete endpoints.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
