package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/observability/metrics"
	"github.com/partyof4/platform/pkg/schedule"
)

var (
	// ErrInvalidSlot is returned before any store access when the slot is
	// not a bookable time.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrSlotBusy means another attempt holds the slot. Retryable; nothing
	// was written.
	ErrSlotBusy = errors.New("slot busy")
	// ErrStoreUnavailable wraps transient store or lock infrastructure
	// failures. Retryable with backoff at the trigger.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConsistencyViolation means the conditional claim found a member
	// already taken inside the critical section. The transaction rolled
	// back; surfaced for alerting because it implies the exclusivity
	// guarantee was broken externally.
	ErrConsistencyViolation = errors.New("consistency violation")
	// ErrInvalidStatus rejects statuses outside the confirmation workflow.
	ErrInvalidStatus = errors.New("invalid match status")
	// ErrInvalidTransition rejects workflow transitions the lifecycle does
	// not allow (e.g. cancelled -> confirmed).
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Outcome string

const (
	OutcomeMatched Outcome = "matched"
	OutcomeNoMatch Outcome = "no_match"
)

// AttemptResult is the terminal outcome of one match attempt.
type AttemptResult struct {
	Outcome Outcome
	Match   *Match
}

// Store is the persistence surface the coordinator needs. *Repository
// implements it against Postgres.
type Store interface {
	ListOpenCandidates(ctx context.Context, slot time.Time) ([]Candidate, error)
	ClaimQuartet(ctx context.Context, match *Match, candidateIDs []string) error
	GetMatch(ctx context.Context, id string) (*Match, error)
	UpdateMatchStatus(ctx context.Context, id, status string, releaseMembers bool) (*Match, error)
}

// SlotLocker grants per-slot exclusivity across instances. The returned
// release func must be called once the critical section is over.
type SlotLocker interface {
	LockSlot(ctx context.Context, slot time.Time) (release func(), err error)
}

// Publisher is the event-bus surface; *kafka.Producer satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Coordinator turns matcher decisions into durable, race-free state changes.
type Coordinator struct {
	store           Store
	locker          SlotLocker
	catalog         schedule.Catalog
	producer        Publisher
	dlq             Publisher
	releaseOnCancel bool
}

func NewCoordinator(store Store, locker SlotLocker, catalog schedule.Catalog, producer, dlq Publisher, releaseOnCancel bool) *Coordinator {
	return &Coordinator{
		store:           store,
		locker:          locker,
		catalog:         catalog,
		producer:        producer,
		dlq:             dlq,
		releaseOnCancel: releaseOnCancel,
	}
}

// AttemptMatch runs one matching attempt for a slot. Safe to call repeatedly
// and concurrently: the per-slot lock serialises the fetch-decide-claim
// sequence, and the claim itself is a conditional transactional write, so a
// member can never end up in two live matches.
func (c *Coordinator) AttemptMatch(ctx context.Context, slot time.Time) (*AttemptResult, error) {
	if !c.catalog.ValidSlot(slot) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, slot.Format(time.RFC3339))
	}

	metrics.IncAttempt()

	release, err := c.locker.LockSlot(ctx, slot)
	if err != nil {
		if errors.Is(err, ErrSlotBusy) {
			return nil, err
		}
		metrics.IncAttemptError()
		return nil, fmt.Errorf("%w: acquiring slot lock: %v", ErrStoreUnavailable, err)
	}
	defer release()

	candidates, err := c.store.ListOpenCandidates(ctx, slot)
	if err != nil {
		metrics.IncAttemptError()
		return nil, fmt.Errorf("%w: listing candidates: %v", ErrStoreUnavailable, err)
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		metrics.IncNoMatch()
		return &AttemptResult{Outcome: OutcomeNoMatch}, nil
	}

	match := &Match{
		ID:         uuid.New().String(),
		Slot:       slot,
		PartyStyle: quartet.PartyStyle,
		Men:        quartet.Men,
		Women:      quartet.Women,
		Status:     StatusPending,
	}

	if err := c.store.ClaimQuartet(ctx, match, quartet.CandidateIDs); err != nil {
		metrics.IncAttemptError()
		if errors.Is(err, ErrClaimConflict) {
			logger.Log.WithFields(map[string]interface{}{
				"slot":     slot.Format(time.RFC3339),
				"match_id": match.ID,
			}).Error("claim conflict inside slot critical section")
			return nil, fmt.Errorf("%w: %v", ErrConsistencyViolation, err)
		}
		return nil, fmt.Errorf("%w: claiming quartet: %v", ErrStoreUnavailable, err)
	}

	metrics.IncMatched()
	c.publish(ctx, "match_created", matchEventData(match))

	logger.Log.WithFields(map[string]interface{}{
		"match_id":    match.ID,
		"slot":        slot.Format(time.RFC3339),
		"party_style": match.PartyStyle,
	}).Info("match created")

	return &AttemptResult{Outcome: OutcomeMatched, Match: match}, nil
}

// ApplyMatchStatus is the confirmation-workflow entry point: pending matches
// move to confirmed or cancelled. Cancellation releases the members back to
// open only when the release policy is enabled.
func (c *Coordinator) ApplyMatchStatus(ctx context.Context, matchID, status string) (*Match, error) {
	if status != StatusConfirmed && status != StatusCancelled {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	release := status == StatusCancelled && c.releaseOnCancel
	match, err := c.store.UpdateMatchStatus(ctx, matchID, status, release)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: updating match status: %v", ErrStoreUnavailable, err)
	}

	c.publish(ctx, "match_status_changed", matchEventData(match))
	return match, nil
}

// ListOpenCandidates is a read-only diagnostics view.
func (c *Coordinator) ListOpenCandidates(ctx context.Context, slot time.Time) ([]Candidate, error) {
	if !c.catalog.ValidSlot(slot) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, slot.Format(time.RFC3339))
	}
	candidates, err := c.store.ListOpenCandidates(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("%w: listing candidates: %v", ErrStoreUnavailable, err)
	}
	return candidates, nil
}

// publish emits an event without failing the attempt: the ledger row is the
// source of truth and downstream readers can recover from it.
func (c *Coordinator) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.producer == nil {
		return
	}
	if err := c.producer.PublishEvent(ctx, eventType, "matching-service", data); err != nil {
		logger.Log.WithError(err).Error("failed to publish match event")
		if c.dlq != nil {
			_ = c.dlq.PublishEvent(ctx, eventType, "matching-service", data)
		}
	}
}

func matchEventData(m *Match) map[string]interface{} {
	return map[string]interface{}{
		"match_id":    m.ID,
		"slot":        m.Slot.Format(time.RFC3339),
		"party_style": m.PartyStyle,
		"men":         []string(m.Men),
		"women":       []string(m.Women),
		"status":      m.Status,
	}
}
