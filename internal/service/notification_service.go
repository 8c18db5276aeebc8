package service

import (
	"context"
	"fmt"

	"prior-auth-be/internal/pkg/logger"
	"prior-auth-be/internal/websocket"
	"prior-auth-be/pkg/events"
	pktNats "prior-auth-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
)

// NotificationService bridges the NATS case-event stream into the live
// review sessions. When another instance (or the analysis engine) moves a
// case, this is how every open session and every websocket watcher hears
// about it.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	sessions   ISessionService
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, sessions ISessionService, hub *websocket.Hub, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		sessions:   sessions,
		hub:        hub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("cases.>", "case-notif-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start case event subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to cases.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	s.logger.Info("NotificationService", fmt.Sprintf("Processing event: %s", event.EventType()), map[string]interface{}{"type": event.EventType()})

	payload := event.Payload()
	rawID, _ := payload["case_id"].(string)
	caseID, err := uuid.Parse(rawID)
	if err != nil {
		// Malformed producer payload; retrying cannot fix it.
		s.logger.Warn("NotificationService", "Event without a usable case_id dropped", map[string]interface{}{
			"type": event.EventType(),
		})
		return nil
	}

	switch event.EventType() {
	case events.TypeCaseStageChanged, events.TypeCaseStageApproved, events.TypeCaseReset:
		// Sync the live session before fanning out so watchers always see
		// a position computed from the fresh stage.
		if err := s.sessions.HandleStageChanged(ctx, caseID); err != nil {
			return fmt.Errorf("session sync for case %s: %w", caseID, err)
		}
	}

	if s.hub != nil {
		s.hub.Send(caseID, websocket.Frame{
			Type: "case_event",
			Data: map[string]interface{}{
				"event_type": event.EventType(),
				"payload":    payload,
			},
		})
	}
	return nil
}
