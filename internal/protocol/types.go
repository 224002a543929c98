package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC version spoken on every transport.
const Version = "2.0"

// MCPVersion is the protocol revision advertised during initialize.
const MCPVersion = "2024-11-05"

// JSON-RPC error codes. Only these two reach the wire; tool failures are
// reported as text content.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
)

// Method names understood by the server.
const (
	MethodInitialize        = "initialize"
	MethodInitialized       = "initialized"
	MethodNotifyInitialized = "notifications/initialized"
	MethodPing              = "ping"
	MethodToolsList         = "tools/list"
	MethodToolsCall         = "tools/call"
)

// Request represents a minimal JSON-RPC 2.0 request. ID is kept raw so that an
// absent id (notification) can be told apart from an explicit null.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON decodes every member loosely so a mistyped jsonrpc or method
// never loses the id. A non-string method keeps its JSON text, which matches
// no known method.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		JSONRPC json.RawMessage `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  json.RawMessage `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Request{ID: raw.ID, Params: raw.Params}
	if len(raw.JSONRPC) > 0 {
		_ = json.Unmarshal(raw.JSONRPC, &r.JSONRPC)
	}
	if len(raw.Method) > 0 && json.Unmarshal(raw.Method, &r.Method) != nil {
		r.Method = string(raw.Method)
	}
	return nil
}

// IsNotification reports whether the request carries no id and therefore
// must not be answered.
func (r Request) IsNotification() bool {
	return len(bytes.TrimSpace(r.ID)) == 0
}

// Response models a JSON-RPC 2.0 response. A nil ID is written as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError holds JSON-RPC error data.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewResult builds a success response for id.
func NewResult(id json.RawMessage, result any) Response {
	return Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response for id.
func NewError(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: Version, ID: id, Error: &ResponseError{Code: code, Message: message}}
}

// ToolDescriptor describes a tool available from the MCP server.
type ToolDescriptor struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	InputSchema *JSONSchema `json:"inputSchema,omitempty" yaml:"inputSchema,omitempty"`
}

// JSONSchema is a minimal subset to describe tool input shapes.
type JSONSchema struct {
	Type                 string                `json:"type,omitempty" yaml:"type,omitempty"`
	Properties           map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Enum                 []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description          string                `json:"description,omitempty" yaml:"description,omitempty"`
	Default              any                   `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum              *int                  `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum              *int                  `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Format               string                `json:"format,omitempty" yaml:"format,omitempty"`
	AnyOf                []JSONSchema          `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	AdditionalProperties any                   `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// ServerInfo identifies the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the payload for initialize.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// ListResult is the payload for tools/list.
type ListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallParams represents parameters for tools/call.
type CallParams struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"arguments,omitempty"`
}

// ContentPart is a single piece of tool output.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the payload for a tool invocation. IsError is always
// serialized so hosts can rely on its presence.
type CallResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError"`
}

// TextResult wraps text into a single-part CallResult.
func TextResult(text string) CallResult {
	return CallResult{Content: []ContentPart{{Type: "text", Text: text}}}
}

// Text concatenates the text parts of a result.
func (r CallResult) Text() string {
	var buf bytes.Buffer
	for i, part := range r.Content {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(part.Text)
	}
	return buf.String()
}
