package tools

import (
	"bytes"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
)

// Args is the untyped argument bag of a tools/call request. Numbers are kept
// as json.Number so integers and decimals survive untouched.
type Args map[string]any

// DecodeArgs parses raw arguments for tool. Absent or null arguments yield an
// empty bag; anything other than a JSON object is rejected.
func DecodeArgs(tool string, raw json.RawMessage) (Args, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Args{}, nil
	}
	if raw[0] != '{' {
		return nil, toolerr.Invalid(tool, "", "arguments must be an object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args Args
	if err := dec.Decode(&args); err != nil {
		return nil, toolerr.Invalid(tool, "", "malformed arguments: %v", err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

func (a Args) present(field string) bool {
	v, ok := a[field]
	return ok && v != nil
}

func (a Args) requiredString(tool, field string) (string, error) {
	if !a.present(field) {
		return "", toolerr.Invalid(tool, field, "is required")
	}
	s, ok := a[field].(string)
	if !ok {
		return "", toolerr.Invalid(tool, field, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", toolerr.Invalid(tool, field, "must not be empty")
	}
	return s, nil
}

// optionalString returns nil when field is absent or null.
func (a Args) optionalString(tool, field string) (*string, error) {
	if !a.present(field) {
		return nil, nil
	}
	s, ok := a[field].(string)
	if !ok {
		return nil, toolerr.Invalid(tool, field, "must be a string")
	}
	return &s, nil
}

// optionalInt reads a JSON number, truncating any fraction.
func (a Args) optionalInt(tool, field string) (int, bool, error) {
	if !a.present(field) {
		return 0, false, nil
	}
	n, ok := a[field].(json.Number)
	if !ok {
		return 0, false, toolerr.Invalid(tool, field, "must be a number")
	}
	if i, err := n.Int64(); err == nil {
		return clampToInt(float64(i)), true, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) {
		return 0, false, toolerr.Invalid(tool, field, "must be a number")
	}
	return clampToInt(math.Trunc(f)), true, nil
}

// id reads a positive identifier given as an integer or a digit string.
func (a Args) id(tool, field string) (int, error) {
	if !a.present(field) {
		return 0, toolerr.Invalid(tool, field, "is required")
	}
	var (
		n   int64
		err error
	)
	switch v := a[field].(type) {
	case json.Number:
		n, err = v.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, toolerr.Invalid(tool, field, "must be an integer or a digit string")
	}
	if err != nil {
		return 0, toolerr.Invalid(tool, field, "must be an integer or a digit string")
	}
	if n <= 0 || n > math.MaxInt32 {
		return 0, toolerr.Invalid(tool, field, "must be a positive integer")
	}
	return int(n), nil
}

// enum returns the field when it is one of allowed, else def.
func (a Args) enum(field string, allowed []string, def string) string {
	s, ok := a[field].(string)
	if !ok {
		return def
	}
	for _, v := range allowed {
		if s == v {
			return s
		}
	}
	return def
}

func (a Args) object(tool, field string, required bool) (map[string]any, error) {
	if !a.present(field) {
		if required {
			return nil, toolerr.Invalid(tool, field, "is required")
		}
		return nil, nil
	}
	m, ok := a[field].(map[string]any)
	if !ok {
		return nil, toolerr.Invalid(tool, field, "must be an object")
	}
	return m, nil
}

func (a Args) stringMap(tool, field string) (map[string]string, error) {
	m, err := a.object(tool, field, false)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, toolerr.Invalid(tool, field, "value for %q must be a string", k)
		}
		out[k] = s
	}
	return out, nil
}

// absoluteURL accepts URLs with a scheme and host. When httpOnly is set the
// scheme must be http or https.
func absoluteURL(tool, field, raw string, httpOnly bool) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", toolerr.Invalid(tool, field, "must be a valid URL")
	}
	if httpOnly && u.Scheme != "http" && u.Scheme != "https" {
		return "", toolerr.Invalid(tool, field, "must be an http or https URL")
	}
	return raw, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampToInt(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
