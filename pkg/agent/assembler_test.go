package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-assistant-be/internal/constant"
	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/pkg/embedding"
	"ai-assistant-be/pkg/llm"
	"ai-assistant-be/pkg/plugin"
	"ai-assistant-be/pkg/plugin/calculator"
	"ai-assistant-be/pkg/rag"
	"ai-assistant-be/pkg/rag/chunker"
	"ai-assistant-be/pkg/rag/corpus"
	"ai-assistant-be/pkg/store"
	"ai-assistant-be/pkg/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails selected operations while delegating the rest to a
// real in-memory store.
type failingStore struct {
	store.SessionStore
	failAppendAfter int // fail AddMessage calls past this count, -1 = never
	appendCalls     int
	failHistory     bool
}

func (s *failingStore) AddMessage(ctx context.Context, sessionID string, msg store.Message) (*store.Session, error) {
	s.appendCalls++
	if s.failAppendAfter >= 0 && s.appendCalls > s.failAppendAfter {
		return nil, errors.New("store down")
	}
	return s.SessionStore.AddMessage(ctx, sessionID, msg)
}

func (s *failingStore) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	if s.failHistory {
		return nil, errors.New("store down")
	}
	return s.SessionStore.GetRecentMessages(ctx, sessionID, limit)
}

// scriptedModel records the prompt it was given and replies with a
// fixed string or error.
type scriptedModel struct {
	reply    string
	err      error
	lastMsgs []llm.Message
}

func (m *scriptedModel) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	m.lastMsgs = history
	return m.reply, m.err
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return m.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func (m *scriptedModel) systemPrompt() string {
	if len(m.lastMsgs) == 0 || m.lastMsgs[0].Role != store.RoleSystem {
		return ""
	}
	return m.lastMsgs[0].Content
}

func newTestRetriever(t *testing.T, initialized bool) *rag.Service {
	t.Helper()
	loader := &corpus.StaticLoader{Docs: []corpus.Document{{
		ID:      "markdown-guide",
		Title:   "Markdown Guide",
		Content: "Markdown headings use hash marks. Markdown lists use dashes. Markdown emphasis uses asterisks.",
	}}}
	// A negative floor keeps retrieval contributing context for every
	// query, so prompt assembly is observable regardless of similarity.
	svc := rag.NewService(loader, embedding.NewLocalProvider(64), chunker.New(1000, 200), logger.NopLogger{}, rag.Options{MinSimilarity: -1})
	if initialized {
		require.NoError(t, svc.Initialize(context.Background()))
	}
	return svc
}

func newTestAssembler(t *testing.T, sessions store.SessionStore, model llm.LLMProvider, plugins ...plugin.Plugin) *Assembler {
	t.Helper()
	router := plugin.NewRouter(time.Second, logger.NopLogger{}, plugins...)
	return NewAssembler(sessions, newTestRetriever(t, true), router, model, logger.NopLogger{}, Options{
		HistoryLimit: 10,
		MaxResults:   3,
	})
}

func TestHandleMessage_PlainConversation(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{reply: "Hello! How can I help?"}
	a := newTestAssembler(t, sessions, model)

	ex, err := a.HandleMessage(context.Background(), "s1", "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "s1", ex.SessionID)
	assert.Equal(t, "Hello! How can I help?", ex.Reply)
	assert.Nil(t, ex.PluginResult)

	// Both the user turn and the assistant turn were persisted.
	session, err := sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, 2, session.MessageCount)
	assert.Equal(t, store.RoleUser, session.Messages[0].Role)
	assert.Equal(t, store.RoleAssistant, session.Messages[1].Role)
	assert.Equal(t, "Hello! How can I help?", session.Messages[1].Content)
}

func TestHandleMessage_PromptSectionOrder(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{reply: "ok"}
	a := newTestAssembler(t, sessions, model, calculator.New())

	// Seed an earlier turn so the memory summary has two topics.
	_, err := a.HandleMessage(context.Background(), "s1", "Tell me about markdown headings")
	require.NoError(t, err)

	_, err = a.HandleMessage(context.Background(), "s1", "Calculate 15 * 8 + sqrt(144)")
	require.NoError(t, err)

	prompt := model.systemPrompt()
	require.NotEmpty(t, prompt)

	base := strings.Index(prompt, constant.BaseSystemInstructions)
	caps := strings.Index(prompt, "Tools available to the system")
	sess := strings.Index(prompt, "Session s1,")
	summary := strings.Index(prompt, "Conversation so far has covered:")
	ragPart := strings.Index(prompt, "Relevant information from the knowledge base:")
	tool := strings.Index(prompt, "Tool output for this request")

	require.GreaterOrEqual(t, base, 0, "base instructions missing")
	require.Greater(t, caps, base, "capabilities must follow base instructions")
	require.Greater(t, sess, caps, "session info must follow capabilities")
	require.Greater(t, summary, sess, "memory summary must follow session info")
	require.Greater(t, ragPart, summary, "retrieval context must follow the summary")
	require.Greater(t, tool, ragPart, "plugin output comes last")

	assert.Contains(t, prompt, "15 * 8 + sqrt(144) = 132")
}

func TestHandleMessage_PluginResultExposed(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{reply: "The answer is 132."}
	a := newTestAssembler(t, sessions, model, calculator.New())

	ex, err := a.HandleMessage(context.Background(), "s1", "Calculate 15 * 8 + sqrt(144)")
	require.NoError(t, err)
	require.NotNil(t, ex.PluginResult)
	assert.True(t, ex.PluginResult.Matched)
	assert.NoError(t, ex.PluginResult.Err)
	assert.Equal(t, float64(132), ex.PluginResult.Data["result"])
}

func TestHandleMessage_ModelFailureDegrades(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{err: errors.New("connection refused")}
	a := newTestAssembler(t, sessions, model)

	ex, err := a.HandleMessage(context.Background(), "s1", "Hello")
	require.NoError(t, err, "model failure must not fail the request")
	assert.Equal(t, constant.DegradedServiceReply, ex.Reply)

	// The degraded reply is still recorded as the assistant turn.
	session, _ := sessions.Get(context.Background(), "s1")
	require.NotNil(t, session)
	assert.Equal(t, constant.DegradedServiceReply, session.Messages[1].Content)
}

func TestHandleMessage_UserAppendFailureFailsRequest(t *testing.T) {
	inner := memory.NewSessionStore(time.Hour)
	sessions := &failingStore{SessionStore: inner, failAppendAfter: 0}
	model := &scriptedModel{reply: "ok"}
	a := newTestAssembler(t, sessions, model)

	_, err := a.HandleMessage(context.Background(), "s1", "Hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDependencyUnavailable))
	assert.Nil(t, model.lastMsgs, "the model must not be called when the user turn was not persisted")
}

func TestHandleMessage_AssistantAppendFailureFailsRequest(t *testing.T) {
	inner := memory.NewSessionStore(time.Hour)
	sessions := &failingStore{SessionStore: inner, failAppendAfter: 1}
	model := &scriptedModel{reply: "ok"}
	a := newTestAssembler(t, sessions, model)

	_, err := a.HandleMessage(context.Background(), "s1", "Hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDependencyUnavailable))
}

func TestHandleMessage_HistoryFailureDegrades(t *testing.T) {
	inner := memory.NewSessionStore(time.Hour)
	sessions := &failingStore{SessionStore: inner, failAppendAfter: -1, failHistory: true}
	model := &scriptedModel{reply: "ok"}
	a := newTestAssembler(t, sessions, model)

	ex, err := a.HandleMessage(context.Background(), "s1", "Hello")
	require.NoError(t, err, "a history read failure degrades, it does not fail the request")
	assert.Equal(t, "ok", ex.Reply)

	// The model still saw the current turn.
	require.Len(t, model.lastMsgs, 2)
	assert.Equal(t, store.RoleSystem, model.lastMsgs[0].Role)
	assert.Equal(t, "Hello", model.lastMsgs[1].Content)
}

func TestHandleMessage_UninitializedRetrievalSkipsContext(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{reply: "ok"}
	router := plugin.NewRouter(time.Second, logger.NopLogger{})
	a := NewAssembler(sessions, newTestRetriever(t, false), router, model, logger.NopLogger{}, Options{})

	_, err := a.HandleMessage(context.Background(), "s1", "Tell me about markdown")
	require.NoError(t, err)
	assert.NotContains(t, model.systemPrompt(), "Relevant information from the knowledge base:")
}

func TestHandleMessage_ErroredPluginNotedInPrompt(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{reply: "ok"}
	a := newTestAssembler(t, sessions, model, calculator.New())

	// Matches the calculator but divides by zero.
	ex, err := a.HandleMessage(context.Background(), "s1", "what is 1 / 0")
	require.NoError(t, err)
	require.NotNil(t, ex.PluginResult)
	assert.Error(t, ex.PluginResult.Err)

	prompt := model.systemPrompt()
	assert.Contains(t, prompt, "A tool matched this request but was unavailable")
	assert.NotContains(t, prompt, "Tool output for this request")
}

func TestHandleMessage_HistoryWindowPassedToModel(t *testing.T) {
	sessions := memory.NewSessionStore(time.Hour)
	model := &scriptedModel{reply: "ok"}
	router := plugin.NewRouter(time.Second, logger.NopLogger{})
	a := NewAssembler(sessions, newTestRetriever(t, true), router, model, logger.NopLogger{}, Options{
		HistoryLimit: 4,
	})

	for i := 0; i < 5; i++ {
		_, err := a.HandleMessage(context.Background(), "s1", "turn")
		require.NoError(t, err)
	}

	// system prompt + at most HistoryLimit history messages.
	assert.LessOrEqual(t, len(model.lastMsgs), 5)
	assert.Equal(t, store.RoleSystem, model.lastMsgs[0].Role)
}

func TestPromptBuilder_SummarySkippedForFirstTurn(t *testing.T) {
	b := &promptBuilder{
		session: &store.Session{ID: "s1", MessageCount: 1},
		history: []store.Message{{Role: store.RoleUser, Content: "first message"}},
	}
	assert.NotContains(t, b.Build(), "Conversation so far has covered:")
}

func TestPromptBuilder_SummaryKeepsLastFourTopics(t *testing.T) {
	history := []store.Message{}
	for _, topic := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"} {
		history = append(history,
			store.Message{Role: store.RoleUser, Content: topic},
			store.Message{Role: store.RoleAssistant, Content: "noted"},
		)
	}
	b := &promptBuilder{
		session: &store.Session{ID: "s1", MessageCount: len(history)},
		history: history,
	}
	prompt := b.Build()
	assert.Contains(t, prompt, "charlie; delta; echo; foxtrot")
	assert.NotContains(t, prompt, "alpha")
	assert.NotContains(t, prompt, "bravo")
}
