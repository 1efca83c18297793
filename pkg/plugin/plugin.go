// Package plugin dispatches deterministic handlers ahead of the LLM.
// At most one plugin runs per message; plugin failure degrades to an
// errored result, never a crashed request.
package plugin

import (
	"context"
	"time"
)

// Context carries the request-scoped values a plugin may use.
type Context struct {
	SessionID string
	Message   string
	Now       time.Time
}

// Result is what a plugin execution produced. When Err is set the
// plugin matched but could not serve; the assistant falls back to the
// model alone.
type Result struct {
	Matched  bool
	Response string
	Data     map[string]any
	Err      error
}

// Plugin is a deterministic handler. CanHandle must be a pure
// classifier; Execute may perform external I/O and must respect ctx.
type Plugin interface {
	Name() string
	Description() string
	CanHandle(message string) bool
	Execute(ctx context.Context, pctx *Context) *Result
}
