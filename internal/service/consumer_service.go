package service

import (
	"context"
	"encoding/json"

	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/pkg/events"
	pktNats "ai-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains exchange-recorded events off the in-process
// bus: it writes a usage log line and, when NATS is configured, fans
// the event out for other instances.
type consumerService struct {
	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher // nil when fan-out is disabled
	logger  logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:  pubSub,
		natsPub: natsPub,
		logger:  log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, events.ExchangeRecordedType)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("consumer", "failed to unmarshal exchange event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payload, retrying will not help
		return
	}

	cs.logger.Info("consumer", "exchange recorded", payload)

	if cs.natsPub != nil {
		event := events.BaseEvent{
			Type: events.ExchangeRecordedType,
			Data: payload,
		}
		if err := cs.natsPub.Publish(ctx, event); err != nil {
			cs.logger.Warn("consumer", "nats fan-out failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
