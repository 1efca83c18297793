package plugin

import (
	"context"
	"fmt"
	"time"

	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/internal/pkg/logger"
)

// DefaultExecuteTimeout bounds a single plugin execution, independent
// of the surrounding request's own timeout.
const DefaultExecuteTimeout = 5 * time.Second

// Router matches a message against registered plugins in registration
// order and executes at most the first match. No fallback chaining: a
// failed plugin does not hand off to the next one.
type Router struct {
	plugins []Plugin
	timeout time.Duration
	log     logger.ILogger
}

func NewRouter(timeout time.Duration, log logger.ILogger, plugins ...Plugin) *Router {
	if timeout <= 0 {
		timeout = DefaultExecuteTimeout
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Router{plugins: plugins, timeout: timeout, log: log}
}

// Route returns the first registered plugin whose classifier accepts
// the message, or nil.
func (r *Router) Route(message string) Plugin {
	for _, p := range r.plugins {
		if p.CanHandle(message) {
			return p
		}
	}
	return nil
}

// Descriptions lists each plugin as "name: description", in
// registration order, for prompt assembly.
func (r *Router) Descriptions() []string {
	out := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, fmt.Sprintf("%s: %s", p.Name(), p.Description()))
	}
	return out
}

// Dispatch classifies and executes. A nil return means no plugin
// matched. Timeouts, panics and plugin errors all come back as a
// matched Result with Err set.
func (r *Router) Dispatch(ctx context.Context, pctx *Context) *Result {
	p := r.Route(pctx.Message)
	if p == nil {
		return nil
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan *Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- &Result{Matched: true, Err: fmt.Errorf("plugin %s panicked: %v", p.Name(), rec)}
			}
		}()
		done <- p.Execute(execCtx, pctx)
	}()

	select {
	case res := <-done:
		if res == nil {
			res = &Result{Matched: true}
		}
		if res.Err != nil {
			r.log.Warn("plugin", "execution failed", map[string]interface{}{
				"plugin": p.Name(),
				"error":  res.Err.Error(),
			})
		}
		return res
	case <-execCtx.Done():
		r.log.Warn("plugin", "execution timed out", map[string]interface{}{
			"plugin":  p.Name(),
			"timeout": r.timeout.String(),
		})
		return &Result{
			Matched: true,
			Err:     apperror.Wrap(apperror.ErrDependencyTimeout, fmt.Errorf("plugin %s exceeded %s", p.Name(), r.timeout)),
		}
	}
}
