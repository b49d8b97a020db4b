package matching

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/observability/metrics"
)

// SweepStore is the slice of the repository the sweeper needs.
type SweepStore interface {
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
	SlotsWithOpenCandidates(ctx context.Context, from, to time.Time) ([]time.Time, error)
	CountOpenCandidates(ctx context.Context, from, to time.Time) (int64, error)
}

type attempter interface {
	AttemptMatch(ctx context.Context, slot time.Time) (*AttemptResult, error)
}

// Sweeper periodically ages out candidates whose slot has passed and retries
// matching for every upcoming slot that still has open candidates. It is the
// time-based trigger backing the event-driven one: a lost trigger event is
// recovered on the next tick.
type Sweeper struct {
	store       SweepStore
	coordinator attempter
	interval    time.Duration
	horizon     time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewSweeper(store SweepStore, coordinator attempter, interval, horizon time.Duration) *Sweeper {
	return &Sweeper{
		store:       store,
		coordinator: coordinator,
		interval:    interval,
		horizon:     horizon,
	}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	// Fresh channel per run so a stopped sweeper can be started again.
	stop := make(chan struct{})
	s.stopChan = stop
	s.mu.Unlock()

	logger.Log.WithField("interval", s.interval.String()).Info("matching sweeper started")

	s.wg.Add(1)
	go s.loop(stop)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop := s.stopChan
	s.mu.Unlock()

	close(stop)
	s.wg.Wait()
	logger.Log.Info("matching sweeper stopped")
}

func (s *Sweeper) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-stop:
			return
		}
	}
}

// Sweep runs one expiry-and-match pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := s.store.ExpireBefore(ctx, now)
	if err != nil {
		logger.Log.WithError(err).Error("failed to expire stale candidates")
	} else if expired > 0 {
		metrics.AddExpired(expired)
		logger.Log.WithField("count", expired).Info("expired stale candidates")
	}

	slots, err := s.store.SlotsWithOpenCandidates(ctx, now, now.Add(s.horizon))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list slots with open candidates")
		return
	}

	for _, slot := range slots {
		s.matchSlot(ctx, slot)
	}

	if open, err := s.store.CountOpenCandidates(ctx, now, now.Add(s.horizon)); err == nil {
		metrics.SetOpenCandidates(open)
	}
}

// matchSlot keeps attempting until the slot yields no further quartet. A
// busy slot is skipped; the next tick retries it.
func (s *Sweeper) matchSlot(ctx context.Context, slot time.Time) {
	for {
		result, err := s.coordinator.AttemptMatch(ctx, slot)
		if err != nil {
			if errors.Is(err, ErrSlotBusy) {
				logger.Log.WithField("slot", slot.Format(time.RFC3339)).
					Debug("slot locked by another attempt, skipping")
				return
			}
			logger.Log.WithError(err).WithField("slot", slot.Format(time.RFC3339)).
				Error("sweep match attempt failed")
			return
		}
		if result.Outcome != OutcomeMatched {
			return
		}
	}
}
