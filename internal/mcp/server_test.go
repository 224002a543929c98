package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/geo-agent/geo-mcp-server/internal/logging"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(tools ...Tool) *Server {
	if len(tools) == 0 {
		tools = []Tool{&stubTool{name: "echo", result: "pong"}}
	}
	return NewServer(NewToolbox(logging.Discard(), tools...), protocol.ServerInfo{Name: "geo-test", Version: "9.9.9"}, logging.Discard())
}

func serveLines(t *testing.T, s *Server, input string) []wireResponse {
	t.Helper()
	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	var responses []wireResponse
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var r wireResponse
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("response is not json: %q", line)
		}
		if (r.Result == nil) == (r.Error == nil) {
			t.Fatalf("exactly one of result/error expected: %q", line)
		}
		responses = append(responses, r)
	}
	return responses
}

func TestServeSession(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		``,
		`   `,
		`{"jsonrpc":"2.0","id":"two","method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`{not json`,
		`{"jsonrpc":"2.0","id":null,"method":"ping"}`,
	}, "\n")

	responses := serveLines(t, newTestServer(), input)
	if len(responses) != 6 {
		t.Fatalf("expected 6 responses, got %d", len(responses))
	}

	var init protocol.InitializeResult
	if err := json.Unmarshal(responses[0].Result, &init); err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	if string(responses[0].ID) != "1" || init.ProtocolVersion != protocol.MCPVersion || init.ServerInfo.Name != "geo-test" {
		t.Fatalf("unexpected initialize response %+v", init)
	}
	if _, ok := init.Capabilities["tools"]; !ok {
		t.Fatalf("tools capability missing")
	}

	if string(responses[1].ID) != `"two"` || !strings.Contains(string(responses[1].Result), `"name":"echo"`) {
		t.Fatalf("unexpected tools/list response %s", responses[1].Result)
	}

	if string(responses[2].ID) != "3" || string(responses[2].Result) != `{"content":[{"type":"text","text":"pong"}],"isError":false}` {
		t.Fatalf("unexpected tools/call response %s", responses[2].Result)
	}

	if string(responses[3].ID) != "4" || responses[3].Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", responses[3])
	}

	if string(responses[4].ID) != "null" || responses[4].Error.Code != protocol.CodeParseError {
		t.Fatalf("expected parse error with null id, got %+v", responses[4])
	}

	if string(responses[5].ID) != "null" || string(responses[5].Result) != "{}" {
		t.Fatalf("explicit null id must still be answered, got %+v", responses[5])
	}
}

func TestServeNotificationsAreSilent(t *testing.T) {
	tool := &stubTool{name: "echo", result: "pong"}
	input := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"x":1}}}` + "\n" +
		`{"jsonrpc":"2.0","method":"no/such/method"}`
	responses := serveLines(t, newTestServer(tool), input)
	if len(responses) != 0 {
		t.Fatalf("notifications must not be answered, got %+v", responses)
	}
	if string(tool.got) != `{"x":1}` {
		t.Fatalf("notification tool call should still run")
	}
}

func TestServeMalformedRequestsKeepTheirID(t *testing.T) {
	input := strings.Join([]string{
		`[1,2,3]`,
		`{"jsonrpc":"1.0","id":7,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":[1]}`,
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":10,"method":"tools/call"}`,
		`{"id":11,"method":"tools/call","params":{}}`,
		`{"jsonrpc":"2.0","id":12,"method":5}`,
		`{"jsonrpc":2,"id":13,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":14,"method":"tools/call","params":{"name":42}}`,
		`{"jsonrpc":"2.0","id":15,"method":"initialized"}`,
		`{"jsonrpc":"2.0","id":16,"method":"notifications/initialized"}`,
	}, "\n")
	responses := serveLines(t, newTestServer(), input)
	if len(responses) != 11 {
		t.Fatalf("expected 11 responses, got %d", len(responses))
	}
	for i, r := range responses[1:] {
		if want := strconv.Itoa(i + 7); string(r.ID) != want {
			t.Fatalf("response %d: expected id %s, got %s", i+1, want, r.ID)
		}
	}

	if string(responses[0].ID) != "null" || responses[0].Error.Code != protocol.CodeParseError {
		t.Fatalf("array should be a parse error with null id, got %+v", responses[0])
	}
	if string(responses[1].Result) != "{}" {
		t.Fatalf("jsonrpc version should not be enforced, got %+v", responses[1])
	}
	for _, i := range []int{2, 4, 5, 8} {
		if !strings.Contains(string(responses[i].Result), `"text":"unknown tool: "`) {
			t.Fatalf("response %d: expected unknown-tool text, got %+v", i, responses[i])
		}
	}
	if !strings.Contains(string(responses[3].Result), "unknown tool: nope") {
		t.Fatalf("unknown tool should be text, got %s", responses[3].Result)
	}
	if responses[6].Error == nil || responses[6].Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("non-string method should be method not found, got %+v", responses[6])
	}
	if !strings.Contains(string(responses[7].Result), `"name":"echo"`) {
		t.Fatalf("mistyped jsonrpc should still list tools, got %+v", responses[7])
	}
	for _, i := range []int{9, 10} {
		if responses[i].Error == nil || responses[i].Error.Code != protocol.CodeMethodNotFound {
			t.Fatalf("response %d: initialized with an id should be method not found, got %+v", i, responses[i])
		}
	}
}

func TestServeLastLineWithoutNewline(t *testing.T) {
	responses := serveLines(t, newTestServer(), `{"id":1,"method":"ping"}`)
	if len(responses) != 1 || string(responses[0].ID) != "1" {
		t.Fatalf("unterminated final line should be handled, got %+v", responses)
	}
}

func TestServeHTTP(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":5,"method":"tools/list"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"echo"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("notification should be accepted silently, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{oops`)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "-32700") {
		t.Fatalf("expected parse error, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
