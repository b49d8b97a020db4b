package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/common/models"
	"github.com/partyof4/platform/pkg/matching"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CandidateStore is the slice of the matching repository the intake needs.
type CandidateStore interface {
	CreateCandidate(ctx context.Context, c *matching.Candidate) error
	HasOpenCandidate(ctx context.Context, personID string, slot time.Time) (bool, error)
	ListOpenCandidates(ctx context.Context, slot time.Time) ([]matching.Candidate, error)
}

// Publisher is the event-bus surface; *kafka.Producer satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	validator *Validator
	store     CandidateStore
	producer  Publisher
	dlq       Publisher
}

func NewService(validator *Validator, store CandidateStore, producer, dlq Publisher) *Service {
	return &Service{
		validator: validator,
		store:     store,
		producer:  producer,
		dlq:       dlq,
	}
}

// Register persists a new open candidate and publishes the trigger event for
// the matching service. One open row per (person, slot); a person may still
// hold open rows for other slots.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	slot, err := s.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	personID := strings.TrimSpace(req.PersonID)
	exists, err := s.store.HasOpenCandidate(ctx, personID, slot)
	if err != nil {
		return nil, fmt.Errorf("checking existing registration: %w", err)
	}
	if exists {
		return nil, ValidationError{reason: fmt.Errorf("person %s already registered for slot %s", personID, slot.Format(time.RFC3339))}
	}

	candidate := &matching.Candidate{
		ID:         uuid.New().String(),
		PersonID:   personID,
		Gender:     strings.TrimSpace(strings.ToLower(req.Gender)),
		Slot:       slot,
		PartyStyle: strings.TrimSpace(strings.ToLower(req.PartyStyle)),
		State:      matching.StateOpen,
		Metadata:   toJSONMap(req.Metadata),
	}

	// The partial unique index on open (person, slot) rows backstops the
	// check above when two registrations race.
	if err := s.store.CreateCandidate(ctx, candidate); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ValidationError{reason: fmt.Errorf("person %s already registered for slot %s", personID, slot.Format(time.RFC3339))}
		}
		return nil, fmt.Errorf("persisting candidate: %w", err)
	}

	payload := map[string]interface{}{
		"candidate_id": candidate.ID,
		"person_id":    candidate.PersonID,
		"gender":       candidate.Gender,
		"slot":         slot.Format(time.RFC3339),
		"party_style":  candidate.PartyStyle,
	}

	// Trigger loss is tolerable: the matching sweep revisits every slot
	// with open candidates, so the registration still succeeds.
	if s.producer != nil {
		if err := s.producer.PublishEvent(ctx, "candidate_registered", "registration-service", payload); err != nil {
			logger.Log.WithError(err).Error("failed to publish registration event")
			if s.dlq != nil {
				_ = s.dlq.PublishEvent(ctx, "candidate_registered", "registration-service", payload)
			}
		}
	}

	return &models.RegisterResponse{
		CandidateID: candidate.ID,
		Slot:        slot,
		State:       candidate.State,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// ListOpen exposes the open candidates of a slot for the wizard's waiting
// view.
func (s *Service) ListOpen(ctx context.Context, slot time.Time) ([]matching.Candidate, error) {
	return s.store.ListOpenCandidates(ctx, slot)
}

func toJSONMap(in map[string]string) datatypes.JSONMap {
	if len(in) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
