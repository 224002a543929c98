package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/logging"
)

type pageRenderer struct{}

func (pageRenderer) Render(_ context.Context, url string, _ browser.Wait) (browser.Rendered, error) {
	return browser.Rendered{URL: url, HTML: `<html><head><title>Hi</title></head><body><p>x</p></body></html>`}, nil
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result *struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError *bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code int `json:"code"`
	} `json:"error"`
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, logging.Discard(), Deps{Renderer: pageRenderer{}, DisableTelemetry: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func runSession(t *testing.T, a *App, lines ...string) []rpcResponse {
	t.Helper()
	var out bytes.Buffer
	if err := a.RunStdio(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out); err != nil {
		t.Fatalf("run stdio: %v", err)
	}
	var responses []rpcResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r rpcResponse
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		responses = append(responses, r)
	}
	return responses
}

func TestToolsListOrder(t *testing.T) {
	a := newTestApp(t, config.Config{})
	responses := runSession(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	want := []string{"ai-search-audit", "content-reader", "schema-generator", "cms-bridge"}
	for _, r := range responses {
		if len(r.Result.Tools) != len(want) {
			t.Fatalf("expected %d tools, got %d", len(want), len(r.Result.Tools))
		}
		for i, name := range want {
			if r.Result.Tools[i].Name != name {
				t.Fatalf("tool %d: want %s, got %s", i, name, r.Result.Tools[i].Name)
			}
		}
	}
}

func TestToolsListUnchangedByCalls(t *testing.T) {
	a := newTestApp(t, config.Config{})
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"schema-generator","arguments":{"type":"Thing","entity":{"name":"x"}}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"ai-search-audit","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/list"}`,
	}, "\n") + "\n"
	var out bytes.Buffer
	if err := a.RunStdio(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("run stdio: %v", err)
	}

	var results []json.RawMessage
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r struct {
			Result json.RawMessage `json:"result"`
		}
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		results = append(results, r.Result)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 responses, got %d", len(results))
	}
	if !bytes.Equal(results[0], results[3]) {
		t.Fatalf("tools/list changed after tools/call:\nbefore %s\nafter  %s", results[0], results[3])
	}
}

func TestCMSBridgeWithoutFieldsNeverContactsCMS(t *testing.T) {
	var hits atomic.Int32
	cms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer cms.Close()

	a := newTestApp(t, config.Config{WordPressURL: cms.URL, WordPressUser: "u", WordPressPassword: "p"})
	responses := runSession(t, a, `{"id":2,"method":"tools/call","params":{"name":"cms-bridge","arguments":{"postId":"42"}}}`)
	if len(responses) != 1 || string(responses[0].ID) != "2" {
		t.Fatalf("expected one response for id 2, got %+v", responses)
	}
	text := responses[0].Result.Content[0].Text
	if !strings.Contains(text, "No fields provided") || !strings.Contains(text, "no update was performed") {
		t.Fatalf("unexpected text %q", text)
	}
	if hits.Load() != 0 {
		t.Fatalf("CMS must not be contacted")
	}
}

func TestToolFailuresAreText(t *testing.T) {
	a := newTestApp(t, config.Config{})
	responses := runSession(t, a,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ai-search-audit","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"ai-search-audit","arguments":{"query":"q"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"does-not-exist","arguments":{}}}`,
	)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	for _, r := range responses {
		if r.Error != nil || r.Result == nil || r.Result.IsError == nil || *r.Result.IsError {
			t.Fatalf("tool failures must be normal results with isError false: %+v", r)
		}
	}
	if text := responses[0].Result.Content[0].Text; !strings.HasPrefix(text, "error: ") || !strings.Contains(text, "query") {
		t.Fatalf("missing query should be described, got %q", text)
	}
	if text := responses[1].Result.Content[0].Text; text != "error: missing required environment variable: TAVILY_API_KEY" {
		t.Fatalf("missing credential should be described, got %q", text)
	}
	if text := responses[2].Result.Content[0].Text; !strings.Contains(text, "unknown tool") {
		t.Fatalf("unknown tool should be described, got %q", text)
	}
}

func TestContentReaderThroughToolbox(t *testing.T) {
	a := newTestApp(t, config.Config{})
	res := a.Toolbox.Call(context.Background(), "content-reader", json.RawMessage(`{"url":"https://example.com"}`))
	if !strings.HasPrefix(res.Text(), "# Hi") {
		t.Fatalf("unexpected content-reader output %q", res.Text())
	}
}

func TestHTTPHandlerServesTools(t *testing.T) {
	a := newTestApp(t, config.Config{})
	rec := httptest.NewRecorder()
	a.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "schema-generator") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
