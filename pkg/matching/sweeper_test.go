package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweepStore struct {
	mu           sync.Mutex
	expireCalls  int
	expiredCount int64
	slots        []time.Time
}

func (s *fakeSweepStore) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireCalls++
	return s.expiredCount, nil
}

func (s *fakeSweepStore) SlotsWithOpenCandidates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots, nil
}

func (s *fakeSweepStore) CountOpenCandidates(ctx context.Context, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.slots)), nil
}

type scriptedAttempter struct {
	mu       sync.Mutex
	attempts map[string]int
	matches  map[string]int // how many quartets each slot yields
}

func (a *scriptedAttempter) AttemptMatch(ctx context.Context, slot time.Time) (*AttemptResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := slot.Format(time.RFC3339)
	a.attempts[key]++
	if a.matches[key] > 0 {
		a.matches[key]--
		return &AttemptResult{Outcome: OutcomeMatched, Match: &Match{ID: "m"}}, nil
	}
	return &AttemptResult{Outcome: OutcomeNoMatch}, nil
}

func TestSweepExpiresAndMatchesEachSlot(t *testing.T) {
	slotA := time.Date(2026, 6, 7, 19, 0, 0, 0, time.UTC)
	slotB := time.Date(2026, 6, 8, 19, 0, 0, 0, time.UTC)

	store := &fakeSweepStore{expiredCount: 2, slots: []time.Time{slotA, slotB}}
	attempter := &scriptedAttempter{
		attempts: make(map[string]int),
		matches:  map[string]int{slotA.Format(time.RFC3339): 2},
	}

	sweeper := NewSweeper(store, attempter, time.Minute, 14*24*time.Hour)
	sweeper.Sweep(context.Background())

	require.Equal(t, 1, store.expireCalls)
	// slot A yields two quartets, so three attempts end it; slot B one.
	assert.Equal(t, 3, attempter.attempts[slotA.Format(time.RFC3339)])
	assert.Equal(t, 1, attempter.attempts[slotB.Format(time.RFC3339)])
}

type busyAttempter struct {
	calls int
}

func (a *busyAttempter) AttemptMatch(ctx context.Context, slot time.Time) (*AttemptResult, error) {
	a.calls++
	return nil, ErrSlotBusy
}

func TestSweepSkipsBusySlots(t *testing.T) {
	slot := time.Date(2026, 6, 7, 19, 0, 0, 0, time.UTC)
	store := &fakeSweepStore{slots: []time.Time{slot}}
	attempter := &busyAttempter{}

	sweeper := NewSweeper(store, attempter, time.Minute, 14*24*time.Hour)
	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, attempter.calls, "a busy slot is attempted once and left for the next tick")
}

func TestSweeperStartStop(t *testing.T) {
	store := &fakeSweepStore{}
	attempter := &scriptedAttempter{attempts: make(map[string]int), matches: make(map[string]int)}

	sweeper := NewSweeper(store, attempter, 10*time.Millisecond, time.Hour)
	sweeper.Start()
	time.Sleep(35 * time.Millisecond)
	sweeper.Stop()

	store.mu.Lock()
	calls := store.expireCalls
	store.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2, "sweeper must tick while running")

	// Stop is idempotent.
	sweeper.Stop()
}

func TestSweeperRestartsAfterStop(t *testing.T) {
	store := &fakeSweepStore{}
	attempter := &scriptedAttempter{attempts: make(map[string]int), matches: make(map[string]int)}

	sweeper := NewSweeper(store, attempter, 10*time.Millisecond, time.Hour)
	sweeper.Start()
	time.Sleep(15 * time.Millisecond)
	sweeper.Stop()

	store.mu.Lock()
	before := store.expireCalls
	store.mu.Unlock()

	sweeper.Start()
	time.Sleep(25 * time.Millisecond)
	sweeper.Stop()

	store.mu.Lock()
	after := store.expireCalls
	store.mu.Unlock()
	assert.Greater(t, after, before, "a restarted sweeper must keep ticking")
}
