package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

// Tool defines the behavior of a single MCP tool. Invoke validates its own
// arguments; any returned error is shown to the host as text.
type Tool interface {
	Descriptor() protocol.ToolDescriptor
	Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error)
}

// Observer is notified around every tool invocation. The returned context is
// passed to the tool; finish is called exactly once with the tool's error.
type Observer interface {
	ToolStarted(ctx context.Context, invocationID, tool string) (context.Context, func(err error))
}

// Toolbox stores tools in registration order and dispatches by name.
type Toolbox struct {
	order    []Tool
	index    map[string]Tool
	logger   *logrus.Entry
	observer Observer
	history  *History
}

// NewToolbox constructs a toolbox. Registering two tools with the same name
// is a programming error and panics.
func NewToolbox(logger *logrus.Entry, tools ...Tool) *Toolbox {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	tb := &Toolbox{
		index:   make(map[string]Tool, len(tools)),
		logger:  logger,
		history: NewHistory(DefaultHistorySize),
	}
	for _, t := range tools {
		name := t.Descriptor().Name
		if name == "" {
			panic("mcp: tool with empty name")
		}
		if _, dup := tb.index[name]; dup {
			panic(fmt.Sprintf("mcp: duplicate tool %q", name))
		}
		tb.order = append(tb.order, t)
		tb.index[name] = t
	}
	return tb
}

// SetObserver installs o for subsequent calls.
func (tb *Toolbox) SetObserver(o Observer) {
	tb.observer = o
}

// Recent returns up to n of the latest invocations, oldest first.
func (tb *Toolbox) Recent(n int) []Invocation {
	return tb.history.Tail(n)
}

// Describe returns all tool descriptors in registration order.
func (tb *Toolbox) Describe() []protocol.ToolDescriptor {
	list := make([]protocol.ToolDescriptor, 0, len(tb.order))
	for _, t := range tb.order {
		list = append(list, t.Descriptor())
	}
	return list
}

// Has reports whether name is registered.
func (tb *Toolbox) Has(name string) bool {
	_, ok := tb.index[name]
	return ok
}

// Call invokes a named tool. It never fails at the protocol level: unknown
// tools, tool errors and panics all come back as text content.
func (tb *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) protocol.CallResult {
	tool, ok := tb.index[name]
	if !ok {
		tb.logger.WithField("tool", name).Warn("unknown tool requested")
		return protocol.TextResult("unknown tool: " + name)
	}

	id := uuid.NewString()
	log := tb.logger.WithFields(logrus.Fields{"tool": name, "invocation_id": id})
	finish := func(error) {}
	if tb.observer != nil {
		ctx, finish = tb.observer.ToolStarted(ctx, id, name)
	}

	start := time.Now()
	result, err := invoke(ctx, tool, args)
	finish(err)

	elapsed := time.Since(start)
	inv := Invocation{ID: id, Tool: name, StartedAt: start.UTC(), DurationMS: elapsed.Milliseconds()}
	if err != nil {
		inv.Error = err.Error()
	}
	tb.history.Add(inv)

	log = log.WithField("duration_ms", inv.DurationMS)
	if err != nil {
		log.WithError(err).Warn("tool call failed")
		return protocol.TextResult("error: " + err.Error())
	}
	log.Info("tool call succeeded")
	result.IsError = false
	return result
}

func invoke(ctx context.Context, tool Tool, args json.RawMessage) (result protocol.CallResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return tool.Invoke(ctx, args)
}
