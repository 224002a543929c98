package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

// Serve runs the newline-delimited JSON-RPC loop until r reaches EOF or ctx
// is cancelled. Requests are handled one at a time in arrival order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, readErr := reader.ReadBytes('\n')
		if resp, ok := s.handleLine(ctx, line); ok {
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			s.logger.WithField("id", string(resp.ID)).Debugf("→ %s", describeResponse(resp))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				s.logger.Debug("stdin closed, stopping")
				return nil
			}
			return fmt.Errorf("read request: %w", readErr)
		}
	}
}

// handleLine processes one framed message.
func (s *Server) handleLine(ctx context.Context, line []byte) (protocol.Response, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return protocol.Response{}, false
	}
	if !json.Valid(line) {
		s.logger.Debug("← unparseable line")
		return protocol.NewError(nil, protocol.CodeParseError, "parse error"), true
	}
	// Valid JSON that is not an object carries no id to answer with.
	if line[0] != '{' {
		return protocol.NewError(nil, protocol.CodeParseError, "parse error: request must be an object"), true
	}

	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		return protocol.NewError(nil, protocol.CodeParseError, "parse error: "+err.Error()), true
	}
	s.logger.WithField("id", string(req.ID)).Debugf("← %s", req.Method)
	return s.Handle(ctx, req)
}

func describeResponse(resp protocol.Response) string {
	if resp.Error != nil {
		return fmt.Sprintf("error %d", resp.Error.Code)
	}
	return "result"
}
