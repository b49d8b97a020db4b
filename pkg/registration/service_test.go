package registration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/common/models"
	"github.com/partyof4/platform/pkg/matching"
	"github.com/partyof4/platform/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	logger.Init()
}

type fakeCandidateStore struct {
	mu         sync.Mutex
	candidates []*matching.Candidate
	createErr  error
}

func (s *fakeCandidateStore) CreateCandidate(ctx context.Context, c *matching.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *c
	copied.CreatedAt = time.Now().UTC()
	s.candidates = append(s.candidates, &copied)
	return nil
}

func (s *fakeCandidateStore) HasOpenCandidate(ctx context.Context, personID string, slot time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.candidates {
		if c.PersonID == personID && c.Slot.Equal(slot) && c.State == matching.StateOpen {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeCandidateStore) ListOpenCandidates(ctx context.Context, slot time.Time) ([]matching.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []matching.Candidate
	for _, c := range s.candidates {
		if c.Slot.Equal(slot) && c.State == matching.StateOpen {
			out = append(out, *c)
		}
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturingPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func futureSlot(t *testing.T) string {
	t.Helper()
	day := time.Now().UTC().AddDate(0, 0, 7)
	return time.Date(day.Year(), day.Month(), day.Day(), 19, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func newTestService(store CandidateStore, publisher Publisher) *Service {
	validator := NewValidator(schedule.DefaultCatalog())
	return NewService(validator, store, publisher, nil)
}

func TestRegisterCreatesOpenCandidateAndPublishesTrigger(t *testing.T) {
	store := &fakeCandidateStore{}
	publisher := &capturingPublisher{}
	svc := newTestService(store, publisher)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		PersonID:   "person-1",
		Gender:     "Man",
		Slot:       futureSlot(t),
		PartyStyle: "Casual",
	})
	require.NoError(t, err)
	assert.Equal(t, matching.StateOpen, resp.State)
	assert.NotEmpty(t, resp.CandidateID)

	require.Len(t, store.candidates, 1)
	created := store.candidates[0]
	assert.Equal(t, matching.GenderMan, created.Gender)
	assert.Equal(t, "casual", created.PartyStyle)
	assert.Contains(t, publisher.events, "candidate_registered")
}

func TestRegisterRejectsDuplicateSlotRegistration(t *testing.T) {
	store := &fakeCandidateStore{}
	svc := newTestService(store, nil)

	req := models.RegisterRequest{
		PersonID:   "person-1",
		Gender:     "woman",
		Slot:       futureSlot(t),
		PartyStyle: "serious",
	}

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Len(t, store.candidates, 1)
}

func TestRegisterMapsDuplicateRowToValidationError(t *testing.T) {
	// Two racing registrations can both pass the open-row check; the unique
	// index rejects the second insert, which must read as a validation error,
	// not a server fault.
	store := &fakeCandidateStore{createErr: gorm.ErrDuplicatedKey}
	svc := newTestService(store, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		PersonID:   "person-1",
		Gender:     "man",
		Slot:       futureSlot(t),
		PartyStyle: "casual",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestRegisterAllowsSamePersonOnDifferentSlots(t *testing.T) {
	store := &fakeCandidateStore{}
	svc := newTestService(store, nil)

	day := time.Now().UTC().AddDate(0, 0, 7)
	first := time.Date(day.Year(), day.Month(), day.Day(), 19, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 1)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		PersonID: "person-1", Gender: "man", Slot: first.Format(time.RFC3339), PartyStyle: "casual",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		PersonID: "person-1", Gender: "man", Slot: second.Format(time.RFC3339), PartyStyle: "casual",
	})
	require.NoError(t, err)
	assert.Len(t, store.candidates, 2)
}

func TestValidatorRejections(t *testing.T) {
	validator := NewValidator(schedule.DefaultCatalog())
	slot := futureSlot(t)

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing person", models.RegisterRequest{Gender: "man", Slot: slot, PartyStyle: "casual"}},
		{"bad gender", models.RegisterRequest{PersonID: "p", Gender: "robot", Slot: slot, PartyStyle: "casual"}},
		{"bad style", models.RegisterRequest{PersonID: "p", Gender: "man", Slot: slot, PartyStyle: "lavish"}},
		{"bad slot time", models.RegisterRequest{PersonID: "p", Gender: "man", Slot: "2026-06-07T18:37:00Z", PartyStyle: "casual"}},
		{"malformed slot", models.RegisterRequest{PersonID: "p", Gender: "man", Slot: "someday", PartyStyle: "casual"}},
		{"past slot", models.RegisterRequest{PersonID: "p", Gender: "man", Slot: "2020-06-07T19:00:00Z", PartyStyle: "casual"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.req)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidatorNormalisesSlot(t *testing.T) {
	validator := NewValidator(schedule.DefaultCatalog())
	day := time.Now().UTC().AddDate(0, 0, 7)
	local := time.Date(day.Year(), day.Month(), day.Day(), 21, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	slot, err := validator.Validate(models.RegisterRequest{
		PersonID:   "p",
		Gender:     "man",
		Slot:       local.Format(time.RFC3339),
		PartyStyle: "casual",
	})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, slot.Location())
	assert.Equal(t, 19, slot.Hour())
}
