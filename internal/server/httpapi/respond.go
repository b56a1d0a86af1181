package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/receiptvault/internal/wire"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes err as an ErrorResponse. Server-side failures get a
// generic message; the cause is logged instead.
func (s *HTTPServer) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := wire.Classify(err)
	msg := err.Error()
	switch {
	case status >= 500:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "code", code, "error", err)
		msg = genericMessages[code]
	case code == wire.CodeUnauthorized:
		msg = "authentication required"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="receipts"`)
	}
	respondJSON(w, status, wire.ErrorResponse{Message: msg, Code: code})
}

var genericMessages = map[string]string{
	wire.CodeStorage:     "receipt storage is unavailable, try again later",
	wire.CodeUnsupported: "not supported by this server",
	wire.CodeInternal:    "internal error",
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
