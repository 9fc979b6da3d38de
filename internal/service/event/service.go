package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	"github.com/jwalitptl/hms-core/pkg/logger"
)

// Emitter is what the scheduling services depend on.
type Emitter interface {
	Emit(ctx context.Context, hospitalID uuid.UUID, eventType string, payload interface{}) error
}

// Service writes trigger events into the outbox. Delivery is the relay
// worker's job; nothing here talks to the broker.
type Service struct {
	outboxRepo repository.OutboxRepository
	log        *logger.Logger
}

func NewService(outboxRepo repository.OutboxRepository, log *logger.Logger) *Service {
	return &Service{
		outboxRepo: outboxRepo,
		log:        log,
	}
}

func (s *Service) Emit(ctx context.Context, hospitalID uuid.UUID, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		ID:         uuid.New(),
		HospitalID: hospitalID,
		EventType:  eventType,
		Payload:    payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.log.Debug("event queued", "event_id", event.ID, "event_type", eventType)
	return nil
}
