package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

// maxHTTPBody bounds a single JSON-RPC message received over HTTP.
const maxHTTPBody = 2 << 20

// ServeHTTP accepts one JSON-RPC message per POST. Notifications are
// acknowledged with 202 and no body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxHTTPBody))
	if err != nil {
		writeJSON(w, protocol.NewError(nil, protocol.CodeParseError, "read body: "+err.Error()), http.StatusBadRequest)
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		writeJSON(w, protocol.NewError(nil, protocol.CodeParseError, "empty body"), http.StatusBadRequest)
		return
	}

	resp, ok := s.handleLine(r.Context(), body)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	status := http.StatusOK
	if resp.Error != nil && resp.Error.Code == protocol.CodeParseError {
		status = http.StatusBadRequest
	}
	writeJSON(w, resp, status)
}

func writeJSON(w http.ResponseWriter, resp protocol.Response, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}
