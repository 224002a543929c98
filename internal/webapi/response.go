package webapi

import (
	"encoding/json"
	"net/http"
)

// apiError carries a stable machine code (UNAUTHORIZED, NOT_CONFIGURED, ...)
// next to the human message.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope wraps every /api and /geo response.
type envelope struct {
	Ok    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// RespondOK writes a success envelope.
func RespondOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Ok: true, Data: data})
}

// RespondError writes a failure envelope.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Ok: false, Error: &apiError{Code: code, Message: message}})
}
