// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/events"
)

// EventForwarder ships events off the process, e.g. to NATS.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// SessionCloser tells live chat sockets that their session is gone.
type SessionCloser interface {
	CloseSession(ctx context.Context, sessionID, reason string)
}

type IConsumerService interface {
	// Consume blocks until ctx is done.
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	audit      logger.ILogger
	forwarder  EventForwarder
	closer     SessionCloser
	logger     logger.ILogger
}

// NewConsumerService writes every conversation event to the audit log and
// forwards it when forwarder is not nil. Expired and deleted sessions are
// reported to closer when it is not nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	audit logger.ILogger,
	forwarder EventForwarder,
	closer SessionCloser,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		audit:      audit,
		forwarder:  forwarder,
		closer:     closer,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for msg := range messages {
		cs.processMessage(ctx, msg)
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("EVENTS", "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := make(map[string]interface{}, len(event.Data)+1)
	for k, v := range event.Data {
		details[k] = v
	}
	details["occurred_at"] = event.OccurredAt
	cs.audit.Info("EVENTS", event.Type, details)

	if cs.closer != nil {
		if id, _ := event.Data["session_id"].(string); id != "" {
			switch event.Type {
			case events.SessionExpired:
				cs.closer.CloseSession(ctx, id, "expired")
			case events.SessionDeleted:
				cs.closer.CloseSession(ctx, id, "deleted")
			}
		}
	}

	if cs.forwarder != nil {
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cs.forwarder.Publish(fctx, event)
		cancel()
		if err != nil {
			// forwarding is best effort; the audit log already has the event
			cs.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{
				"event_type": event.Type,
				"error":      err.Error(),
			})
		}
	}
	msg.Ack()
}
