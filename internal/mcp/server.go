package mcp

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

// Server handles MCP JSON-RPC requests against a toolbox.
type Server struct {
	toolbox *Toolbox
	info    protocol.ServerInfo
	logger  *logrus.Entry
}

// NewServer wires a toolbox into an MCP server.
func NewServer(tb *Toolbox, info protocol.ServerInfo, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{toolbox: tb, info: info, logger: logger}
}

// Toolbox exposes the registry backing the server.
func (s *Server) Toolbox() *Toolbox {
	return s.toolbox
}

// Handle routes a single request. The boolean is false for notifications,
// which are processed but never answered.
func (s *Server) Handle(ctx context.Context, req protocol.Request) (protocol.Response, bool) {
	resp := s.route(ctx, req)
	if req.IsNotification() {
		return protocol.Response{}, false
	}
	return resp, true
}

func (s *Server) route(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Method {
	case protocol.MethodInitialize:
		return protocol.NewResult(req.ID, protocol.InitializeResult{
			ProtocolVersion: protocol.MCPVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      s.info,
		})
	case protocol.MethodInitialized, protocol.MethodNotifyInitialized:
		// Only meaningful as notifications; with an id they are unsupported.
		if !req.IsNotification() {
			return s.methodNotFound(req)
		}
		return protocol.Response{}
	case protocol.MethodPing:
		return protocol.NewResult(req.ID, map[string]any{})
	case protocol.MethodToolsList:
		return protocol.NewResult(req.ID, protocol.ListResult{Tools: s.toolbox.Describe()})
	case protocol.MethodToolsCall:
		params := decodeCallParams(req.Params)
		return protocol.NewResult(req.ID, s.toolbox.Call(ctx, params.Name, params.Args))
	default:
		return s.methodNotFound(req)
	}
}

func (s *Server) methodNotFound(req protocol.Request) protocol.Response {
	s.logger.WithField("method", req.Method).Debug("method not found")
	return protocol.NewError(req.ID, protocol.CodeMethodNotFound, "method not found: "+req.Method)
}

// decodeCallParams never fails: params that are absent or not an object act
// as {}, and a missing or non-string name becomes "", which the toolbox
// reports as an unknown tool.
func decodeCallParams(raw json.RawMessage) protocol.CallParams {
	var fields map[string]json.RawMessage
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &fields) != nil {
		return protocol.CallParams{}
	}
	var params protocol.CallParams
	if name, ok := fields["name"]; ok {
		_ = json.Unmarshal(name, &params.Name)
	}
	params.Args = fields["arguments"]
	return params
}
