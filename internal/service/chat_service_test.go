package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-assistant-be/internal/dto"
	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/pkg/agent"
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

type fixedModel struct {
	reply string
	err   error
}

func (m *fixedModel) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return m.reply, m.err
}

func (m *fixedModel) Generate(context.Context, string, ...llm.Option) (string, error) {
	return m.reply, m.err
}

func newTestChatService(t *testing.T, model llm.LLMProvider) (IChatService, store.SessionStore) {
	t.Helper()
	sessions := memory.NewSessionStore(time.Hour)
	retriever := rag.NewService(
		&corpus.StaticLoader{Docs: nil},
		embedding.NewLocalProvider(32),
		chunker.New(1000, 200),
		logger.NopLogger{},
		rag.Options{},
	)
	require.NoError(t, retriever.Initialize(context.Background()))

	router := plugin.NewRouter(time.Second, logger.NopLogger{}, calculator.New())
	assembler := agent.NewAssembler(sessions, retriever, router, model, logger.NopLogger{}, agent.Options{})
	return NewChatService(assembler, sessions, nil, logger.NopLogger{}), sessions
}

func TestSendMessage_HappyPath(t *testing.T) {
	svc, sessions := newTestChatService(t, &fixedModel{reply: "hi there"})

	resp, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Reply)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Nil(t, resp.Plugin)
	assert.False(t, resp.Timestamp.IsZero())

	session, err := sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 2, session.MessageCount)
}

func TestSendMessage_RejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "unused"})

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
			SessionID: "s1",
			Message:   msg,
		})
		require.Error(t, err, "message %q", msg)
		assert.True(t, errors.Is(err, apperror.ErrValidation))
	}
}

func TestSendMessage_RejectsOversizedMessage(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "unused"})

	_, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   strings.Repeat("a", maxMessageChars+1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	// Exactly at the limit is fine.
	_, err = svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   strings.Repeat("a", maxMessageChars),
	})
	assert.NoError(t, err)
}

func TestSendMessage_LimitCountsRunesNotBytes(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "ok"})

	// maxMessageChars multibyte runes: well over the limit in bytes,
	// exactly at it in characters.
	_, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   strings.Repeat("é", maxMessageChars),
	})
	assert.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   strings.Repeat("é", maxMessageChars+1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestSendMessage_TrimsBeforeLimitCheck(t *testing.T) {
	svc, sessions := newTestChatService(t, &fixedModel{reply: "ok"})

	// Padding pushes the raw length over the limit but the trimmed
	// message is within it.
	padded := "  " + strings.Repeat("a", maxMessageChars) + "  "
	_, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   padded,
	})
	require.NoError(t, err)

	session, _ := sessions.Get(context.Background(), "s1")
	require.NotNil(t, session)
	assert.Equal(t, strings.Repeat("a", maxMessageChars), session.Messages[0].Content)
}

func TestSendMessage_PluginInfoOnMatch(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "The answer is 132."})

	resp, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   "Calculate 15 * 8 + sqrt(144)",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Plugin)
	assert.True(t, resp.Plugin.Matched)
	assert.Empty(t, resp.Plugin.Error)
	assert.Equal(t, float64(132), resp.Plugin.Data["result"])
}

func TestSendMessage_PluginErrorIsOpaque(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "Sorry, I cannot divide by zero."})

	resp, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionID: "s1",
		Message:   "what is 1 / 0",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Plugin)
	assert.True(t, resp.Plugin.Matched)
	assert.Equal(t, "plugin attempted but unavailable", resp.Plugin.Error)
	assert.Nil(t, resp.Plugin.Data, "internal error detail stays out of the response")
}

func TestGetHistory(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "ok"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, &dto.SendMessageRequest{SessionID: "s1", Message: "hello"})
		require.NoError(t, err)
	}

	hist, err := svc.GetHistory(ctx, "s1", 4)
	require.NoError(t, err)
	assert.Equal(t, "s1", hist.SessionID)
	assert.Equal(t, 6, hist.MessageCount, "count reflects the whole session, not the window")
	require.Len(t, hist.Messages, 4)
	assert.Equal(t, store.RoleAssistant, hist.Messages[len(hist.Messages)-1].Role)
}

func TestGetHistory_UnknownSession(t *testing.T) {
	svc, _ := newTestChatService(t, &fixedModel{reply: "ok"})

	hist, err := svc.GetHistory(context.Background(), "ghost", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, hist.MessageCount)
	assert.Empty(t, hist.Messages)
}

func TestDeleteSession(t *testing.T) {
	svc, sessions := newTestChatService(t, &fixedModel{reply: "ok"})
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, &dto.SendMessageRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, "s1"))
	session, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}
