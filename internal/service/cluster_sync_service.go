package service

import (
	"context"

	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/pkg/events"
	pktNats "monitoring-workspace-be/pkg/nats"
)

// BroadcastSubscriber delivers every message on a subject to this instance.
type BroadcastSubscriber interface {
	SubscribeBroadcast(subject string, handler pktNats.EventHandler) error
}

// ClusterSyncService drops cached sessions that another instance changed,
// so the next request reloads them from storage.
type ClusterSyncService struct {
	subscriber BroadcastSubscriber
	workspace  IWorkspaceService
	instanceID string
	logger     logger.ILogger
}

func NewClusterSyncService(sub BroadcastSubscriber, ws IWorkspaceService, instanceID string, log logger.ILogger) *ClusterSyncService {
	return &ClusterSyncService{
		subscriber: sub,
		workspace:  ws,
		instanceID: instanceID,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *ClusterSyncService) Start() error {
	subject := pktNats.SubjectPrefix + events.TypeWorkspaceChanged
	if err := s.subscriber.SubscribeBroadcast(subject, s.handleEvent); err != nil {
		s.logger.Error("ClusterSync", "Failed to subscribe to workspace changes", map[string]interface{}{"error": err})
		return err
	}
	s.logger.Info("ClusterSync", "Listening for workspace changes on "+subject, map[string]interface{}{
		"instance_id": s.instanceID,
	})
	return nil
}

func (s *ClusterSyncService) handleEvent(_ context.Context, event events.Event) error {
	change := events.WorkspaceChangedFromPayload(event.Payload())
	if change.UserID == "" || change.InstanceID == s.instanceID {
		return nil
	}
	s.workspace.Invalidate(change.UserID)
	s.logger.Debug("ClusterSync", "Invalidated cached workspace", map[string]interface{}{
		"user_id": change.UserID,
		"origin":  change.InstanceID,
		"kind":    change.Kind,
	})
	return nil
}
