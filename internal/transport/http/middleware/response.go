package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSONError writes the same {"error": msg} shape the handlers use.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// writeTooManyRequests rejects a request and tells the client when to retry.
func writeTooManyRequests(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	writeJSONError(w, http.StatusTooManyRequests, "too many requests")
}
