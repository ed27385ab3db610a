package service

import (
	"context"
	"time"

	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/pkg/events"
	pktNats "monitoring-workspace-be/pkg/nats"
)

// ActivityLogDurable is the consumer group shared by all instances; each
// change is recorded by exactly one of them.
const ActivityLogDurable = "workspace-activity-log"

// DurableSubscriber delivers each message on a subject to one member of a
// durable consumer group.
type DurableSubscriber interface {
	Subscribe(subject, durableName string, handler pktNats.EventHandler) error
}

// ActivityLogService writes one audit line per workspace change seen on the
// cluster event stream.
type ActivityLogService struct {
	subscriber DurableSubscriber
	logger     logger.ILogger
}

func NewActivityLogService(sub DurableSubscriber, log logger.ILogger) *ActivityLogService {
	return &ActivityLogService{subscriber: sub, logger: log}
}

func (s *ActivityLogService) Start() error {
	subject := pktNats.SubjectPrefix + events.TypeWorkspaceChanged
	if err := s.subscriber.Subscribe(subject, ActivityLogDurable, s.handleEvent); err != nil {
		s.logger.Error("WorkspaceActivity", "Failed to subscribe to workspace changes", map[string]interface{}{"error": err})
		return err
	}
	return nil
}

func (s *ActivityLogService) handleEvent(_ context.Context, event events.Event) error {
	change := events.WorkspaceChangedFromPayload(event.Payload())
	if change.UserID == "" {
		return nil
	}
	details := map[string]interface{}{
		"user_id": change.UserID,
		"kind":    change.Kind,
		"origin":  change.InstanceID,
	}
	if change.ScopeID != "" {
		details["scope_id"] = change.ScopeID
	}
	if !change.OccurredAt.IsZero() {
		details["occurred_at"] = change.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	s.logger.Info("WorkspaceActivity", "Workspace changed", details)
	return nil
}
