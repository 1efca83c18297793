// Package agent merges history, retrieval and plugin output into one
// model-ready prompt and records the exchange.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-assistant-be/internal/constant"
	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/pkg/llm"
	"ai-assistant-be/pkg/plugin"
	"ai-assistant-be/pkg/rag"
	"ai-assistant-be/pkg/store"
)

const (
	DefaultHistoryLimit = 10
	DefaultLLMTimeout   = 60 * time.Second
)

// Options tune the assembler.
type Options struct {
	HistoryLimit int
	MaxResults   int
	Model        string
	MaxTokens    int
	Temperature  float64
	LLMTimeout   time.Duration
}

// Exchange is the outcome of one handled message.
type Exchange struct {
	SessionID string
	Reply     string
	Timestamp time.Time

	// PluginResult is set when a plugin matched, for callers that want
	// to expose structured data alongside the reply.
	PluginResult *plugin.Result
}

// Assembler owns no persistent state; it composes reads from the
// session store, the retrieval service and the plugin router, calls
// the model once, and writes the two durable appends.
type Assembler struct {
	sessions  store.SessionStore
	retriever *rag.Service
	router    *plugin.Router
	model     llm.LLMProvider
	log       logger.ILogger
	opts      Options
}

func NewAssembler(
	sessions store.SessionStore,
	retriever *rag.Service,
	router *plugin.Router,
	model llm.LLMProvider,
	log logger.ILogger,
	opts Options,
) *Assembler {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Assembler{
		sessions:  sessions,
		retriever: retriever,
		router:    router,
		model:     model,
		log:       log,
		opts:      opts,
	}
}

// HandleMessage runs the full pipeline for one inbound user message.
// Session write failures surface as errors; every other dependency
// degrades without failing the request.
func (a *Assembler) HandleMessage(ctx context.Context, sessionID, message string) (*Exchange, error) {
	// 1. The user's input is durable before any further work, so a crash
	// mid-request never loses it.
	session, err := a.sessions.AddMessage(ctx, sessionID, store.Message{
		Role:      store.RoleUser,
		Content:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrDependencyUnavailable, fmt.Errorf("append user message: %w", err))
	}

	// 2. Recent history, chronological.
	history, err := a.sessions.GetRecentMessages(ctx, sessionID, a.opts.HistoryLimit)
	if err != nil {
		a.log.Warn("agent", "history fetch failed, continuing without it", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		history = []store.Message{{Role: store.RoleUser, Content: message, Timestamp: time.Now()}}
	}

	// 3. Plugin dispatch on the raw message.
	pluginResult := a.router.Dispatch(ctx, &plugin.Context{
		SessionID: sessionID,
		Message:   message,
		Now:       time.Now(),
	})

	// 4. Retrieval runs regardless of plugin outcome; both signals feed
	// the final prompt.
	ragContext, err := a.retriever.GetRelevantContext(ctx, message, a.opts.MaxResults)
	if err != nil {
		if errors.Is(err, apperror.ErrNotInitialized) {
			a.log.Warn("agent", "retrieval not initialized, skipping context", map[string]interface{}{
				"session": sessionID,
			})
		}
		ragContext = ""
	}

	// 5. Deterministic prompt assembly.
	builder := &promptBuilder{
		capabilities: a.router.Descriptions(),
		session:      session,
		history:      history,
		ragContext:   ragContext,
		pluginResult: pluginResult,
	}
	systemPrompt := builder.Build()

	// 6. One model call, no retry; failure degrades to the fixed reply.
	reply := a.callModel(ctx, systemPrompt, history)

	// 7. The assistant's reply is durable too.
	now := time.Now()
	if _, err := a.sessions.AddMessage(ctx, sessionID, store.Message{
		Role:      store.RoleAssistant,
		Content:   reply,
		Timestamp: now,
	}); err != nil {
		return nil, apperror.Wrap(apperror.ErrDependencyUnavailable, fmt.Errorf("append assistant message: %w", err))
	}

	return &Exchange{
		SessionID:    sessionID,
		Reply:        reply,
		Timestamp:    now,
		PluginResult: pluginResult,
	}, nil
}

func (a *Assembler) callModel(ctx context.Context, systemPrompt string, history []store.Message) string {
	llmCtx, cancel := context.WithTimeout(ctx, a.opts.LLMTimeout)
	defer cancel()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: store.RoleSystem, Content: systemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	opts := []llm.Option{}
	if a.opts.Model != "" {
		opts = append(opts, llm.WithModel(a.opts.Model))
	}
	if a.opts.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(a.opts.MaxTokens))
	}
	if a.opts.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(a.opts.Temperature))
	}

	reply, err := a.model.Chat(llmCtx, messages, opts...)
	if err != nil {
		a.log.Error("agent", "model call failed, serving degraded reply", map[string]interface{}{
			"error": err.Error(),
		})
		return constant.DegradedServiceReply
	}
	return reply
}
