package service

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"ai-assistant-be/internal/constant"
	"ai-assistant-be/internal/dto"
	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/pkg/agent"
	"ai-assistant-be/pkg/events"
	"ai-assistant-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const maxMessageChars = 4000

type IChatService interface {
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	GetHistory(ctx context.Context, sessionID string, limit int) (*dto.SessionHistoryResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type chatService struct {
	assembler *agent.Assembler
	sessions  store.SessionStore
	pubSub    *gochannel.GoChannel
	logger    logger.ILogger
}

func NewChatService(
	assembler *agent.Assembler,
	sessions store.SessionStore,
	pubSub *gochannel.GoChannel,
	log logger.ILogger,
) IChatService {
	return &chatService{
		assembler: assembler,
		sessions:  sessions,
		pubSub:    pubSub,
		logger:    log,
	}
}

func (s *chatService) SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, apperror.Validation("message must not be empty")
	}
	if utf8.RuneCountInString(msg) > maxMessageChars {
		return nil, apperror.Validation("message exceeds %d characters", maxMessageChars)
	}

	exchange, err := s.assembler.HandleMessage(ctx, req.SessionID, msg)
	if err != nil {
		s.logger.Error("chat", "message handling failed", map[string]interface{}{
			"session": req.SessionID,
			"error":   err.Error(),
		})
		return nil, err
	}

	s.publishExchangeRecorded(exchange)

	resp := &dto.SendMessageResponse{
		Reply:     exchange.Reply,
		SessionID: exchange.SessionID,
		Timestamp: exchange.Timestamp,
	}
	if pr := exchange.PluginResult; pr != nil {
		info := &dto.PluginInfoDTO{Matched: pr.Matched, Data: pr.Data}
		if pr.Err != nil {
			info.Error = "plugin attempted but unavailable"
			info.Data = nil
		}
		resp.Plugin = info
	}
	return resp, nil
}

func (s *chatService) GetHistory(ctx context.Context, sessionID string, limit int) (*dto.SessionHistoryResponse, error) {
	msgs, err := s.sessions.GetRecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrDependencyUnavailable, err)
	}

	out := make([]dto.ChatMessageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = dto.ChatMessageDTO{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
	}

	count := len(msgs)
	if session, err := s.sessions.Get(ctx, sessionID); err == nil && session != nil {
		count = session.MessageCount
	}

	return &dto.SessionHistoryResponse{
		SessionID:    sessionID,
		MessageCount: count,
		Messages:     out,
	}, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperror.Wrap(apperror.ErrDependencyUnavailable, err)
	}
	return nil
}

// publishExchangeRecorded is fire-and-forget; the reply is already
// durable, so bus trouble must not fail the request.
func (s *chatService) publishExchangeRecorded(exchange *agent.Exchange) {
	if s.pubSub == nil {
		return
	}
	event := events.NewExchangeRecorded(
		exchange.SessionID,
		exchange.PluginResult != nil,
		exchange.Reply == constant.DegradedServiceReply,
		exchange.Timestamp,
	)
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return
	}
	wmsg := message.NewMessage(uuid.NewString(), payload)
	if err := s.pubSub.Publish(events.ExchangeRecordedType, wmsg); err != nil {
		s.logger.Warn("chat", "failed to publish exchange event", map[string]interface{}{
			"session": exchange.SessionID,
			"error":   err.Error(),
		})
	}
}
