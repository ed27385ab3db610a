package service

import (
	"context"
	"encoding/json"
	"time"

	"monitoring-workspace-be/internal/dto"
	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ChangeDelivery pushes a serialized change to a user's live connections.
// Implemented by the websocket hub.
type ChangeDelivery interface {
	Send(userID string, payload []byte)
}

// EventPublisher forwards events to the cluster bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	delivery   ChangeDelivery
	events     EventPublisher
	instanceID string
	logger     logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	delivery ChangeDelivery,
	eventPublisher EventPublisher,
	instanceID string,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		delivery:   delivery,
		events:     eventPublisher,
		instanceID: instanceID,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
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
	var payload dto.WorkspaceChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal workspace change", map[string]interface{}{"error": err})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if cs.delivery != nil {
		out, _ := json.Marshal(map[string]interface{}{
			"type": "workspace_changed",
			"data": payload,
		})
		cs.delivery.Send(payload.UserID, out)
	}

	if cs.events != nil {
		err := cs.events.Publish(ctx, events.WorkspaceChanged{
			UserID:     payload.UserID,
			InstanceID: cs.instanceID,
			Kind:       payload.Kind,
			ScopeID:    payload.ScopeID,
			OccurredAt: time.Now(),
		})
		if err != nil {
			cs.logger.Warn("ConsumerService", "Failed to forward workspace change to NATS", map[string]interface{}{
				"user_id": payload.UserID,
				"error":   err,
			})
		}
	}

	cs.logger.Debug("ConsumerService", "Workspace change delivered", map[string]interface{}{
		"user_id": payload.UserID,
		"kind":    payload.Kind,
	})
	msg.Ack()
}
