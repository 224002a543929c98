package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
	"github.com/geo-agent/geo-mcp-server/internal/geo"
	"github.com/geo-agent/geo-mcp-server/internal/llm"
	"github.com/geo-agent/geo-mcp-server/internal/logging"
	"github.com/geo-agent/geo-mcp-server/internal/mcp"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
	"github.com/geo-agent/geo-mcp-server/internal/search"
	"github.com/geo-agent/geo-mcp-server/internal/telemetry"
	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
	"github.com/geo-agent/geo-mcp-server/internal/tools"
)

type echoTool struct{}

func (echoTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{Name: "echo", Description: "echo"}
}

func (echoTool) Invoke(_ context.Context, raw json.RawMessage) (protocol.CallResult, error) {
	return protocol.TextResult("got " + string(raw)), nil
}

type stubAuditor struct{}

func (stubAuditor) Audit(context.Context, tools.SearchAuditInput) (search.Result, error) {
	return search.Result{Answer: "answer"}, nil
}

type stubReader struct{}

func (stubReader) Read(_ context.Context, in tools.ContentReaderInput) (browser.Page, error) {
	return browser.Page{URL: in.URL, Title: "T", Markdown: "body"}, nil
}

type unconfiguredRewriter struct{}

func (unconfiguredRewriter) Optimize(context.Context, llm.OptimizeInput) (llm.Optimized, error) {
	return llm.Optimized{}, &toolerr.ConfigError{Key: "DEEPSEEK_API_KEY"}
}

type fixedStats map[string]telemetry.ToolStat

func (f fixedStats) Stats(context.Context) (map[string]telemetry.ToolStat, error) { return f, nil }

func newTestServer(token string) http.Handler {
	log := logging.Discard()
	srv := mcp.NewServer(mcp.NewToolbox(log, echoTool{}), protocol.ServerInfo{Name: "geo", Version: "1"}, log)
	return New(Options{
		MCP:      srv,
		Pipeline: geo.NewPipeline(stubAuditor{}, stubReader{}, unconfiguredRewriter{}, log),
		Stats:    fixedStats{"echo": {Tool: "echo", Invocations: 2}},
		Token:    token,
		Logger:   log,
	}).Handler()
}

type wireEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, wireEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env wireEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealthAndVersionAreOpen(t *testing.T) {
	h := newTestServer("secret")
	rec, _ := do(t, h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	rec, env := do(t, h, http.MethodGet, "/version", "", "")
	if rec.Code != http.StatusOK || !env.Ok || !strings.Contains(string(env.Data), "geo-mcp-agent") {
		t.Fatalf("unexpected version response %d %s", rec.Code, rec.Body.String())
	}
}

func TestBearerAuth(t *testing.T) {
	h := newTestServer("secret")
	rec, env := do(t, h, http.MethodGet, "/api/tools", "", "")
	if rec.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = do(t, h, http.MethodGet, "/api/tools", "", "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}
	rec, env = do(t, h, http.MethodGet, "/api/tools", "", "secret")
	if rec.Code != http.StatusOK || !env.Ok || !strings.Contains(string(env.Data), `"echo"`) {
		t.Fatalf("unexpected tools response %d %s", rec.Code, rec.Body.String())
	}
}

func TestCallToolOverREST(t *testing.T) {
	h := newTestServer("")
	rec, env := do(t, h, http.MethodPost, "/api/tools/echo", `{"a":1}`, "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"text":"got {\"a\":1}"`) {
		t.Fatalf("unexpected call response %d %s", rec.Code, rec.Body.String())
	}
	rec, env = do(t, h, http.MethodPost, "/api/tools/missing", `{}`, "")
	if rec.Code != http.StatusNotFound || env.Error.Code != "UNKNOWN_TOOL" {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = do(t, h, http.MethodPost, "/api/tools/echo", `{bad`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMCPEndpoint(t *testing.T) {
	h := newTestServer("")
	rec, _ := do(t, h, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"isError":false`) {
		t.Fatalf("unexpected mcp response %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = do(t, h, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for notification, got %d", rec.Code)
	}
}

func TestGeoEndpoints(t *testing.T) {
	h := newTestServer("")

	rec, env := do(t, h, http.MethodPost, "/geo/analyze", `{}`, "")
	if rec.Code != http.StatusBadRequest || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected 400 for empty request, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = do(t, h, http.MethodPost, "/geo/analyze", `{"keyword":"k","url":"https://example.com"}`, "")
	if rec.Code != http.StatusOK || !env.Ok {
		t.Fatalf("unexpected analyze response %d %s", rec.Code, rec.Body.String())
	}
	var analysis geo.Analysis
	if err := json.Unmarshal(env.Data, &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.Audit == nil || analysis.Page == nil || analysis.Page.Title != "T" || analysis.SchemaJSON == "" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}

	rec, env = do(t, h, http.MethodPost, "/geo/optimize", `{"url":"https://example.com"}`, "")
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != "NOT_CONFIGURED" {
		t.Fatalf("expected 503 without model credentials, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = do(t, h, http.MethodPost, "/geo/optimize", `{"url":"not-a-url"}`, "")
	if rec.Code != http.StatusBadRequest || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected 400 for an invalid url, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, h, http.MethodPost, "/geo/optimize", `not json`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	rec, env := do(t, newTestServer(""), http.MethodGet, "/api/stats", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"invocations":2`) {
		t.Fatalf("unexpected stats response %d %s", rec.Code, rec.Body.String())
	}
}

func TestInvocationsEndpoint(t *testing.T) {
	h := newTestServer("")
	do(t, h, http.MethodPost, "/api/tools/echo", `{}`, "")
	do(t, h, http.MethodPost, "/api/tools/echo", `{"b":2}`, "")

	rec, env := do(t, h, http.MethodGet, "/api/invocations?limit=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Invocations []struct {
			Tool string `json:"tool"`
		} `json:"invocations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Invocations) != 1 || data.Invocations[0].Tool != "echo" {
		t.Fatalf("unexpected invocations %+v", data.Invocations)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/invocations?limit=zero", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
