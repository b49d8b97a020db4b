package matching

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrClaimConflict means the conditional claim touched fewer rows than
	// expected: some candidate was no longer open. The transaction rolls
	// back, so no partial state survives.
	ErrClaimConflict = errors.New("claim conflict")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Candidate{}, &Match{})
}

func (r *Repository) CreateCandidate(ctx context.Context, c *Candidate) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.State == "" {
		c.State = StateOpen
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) HasOpenCandidate(ctx context.Context, personID string, slot time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Candidate{}).
		Where("person_id = ? AND slot = ? AND state = ?", personID, slot, StateOpen).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListOpenCandidates(ctx context.Context, slot time.Time) ([]Candidate, error) {
	var candidates []Candidate
	result := r.db.WithContext(ctx).
		Where("slot = ? AND state = ?", slot, StateOpen).
		Order("created_at ASC, person_id ASC").
		Find(&candidates)
	return candidates, result.Error
}

// ClaimQuartet flips the selected candidate rows open -> claimed and inserts
// the match row in one transaction. The claim targets row ids, not person ids,
// so a stray extra row for the same person cannot skew the count; the state
// guard makes it a conditional write: if any selected row is no longer open
// the count comes up short, the transaction rolls back and ErrClaimConflict is
// returned.
func (r *Repository) ClaimQuartet(ctx context.Context, match *Match, candidateIDs []string) error {
	now := time.Now().UTC()
	match.CreatedAt = now
	match.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Candidate{}).
			Where("id IN ? AND slot = ? AND state = ?", candidateIDs, match.Slot, StateOpen).
			Updates(map[string]interface{}{
				"state":      StateClaimed,
				"match_id":   match.ID,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(candidateIDs)) {
			return ErrClaimConflict
		}
		return tx.Create(match).Error
	})
}

func (r *Repository) GetMatch(ctx context.Context, id string) (*Match, error) {
	var match Match
	result := r.db.WithContext(ctx).First(&match, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrMatchNotFound
	}
	return &match, result.Error
}

// UpdateMatchStatus applies a confirmation-workflow transition. When a match
// is cancelled with release enabled, members whose slot is still ahead go
// back to open; members of a past slot expire instead.
func (r *Repository) UpdateMatchStatus(ctx context.Context, id, status string, releaseMembers bool) (*Match, error) {
	var match Match
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.First(&match, "id = ?", id)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrMatchNotFound
		}
		if result.Error != nil {
			return result.Error
		}

		if !validTransition(match.Status, status) {
			return ErrInvalidTransition
		}

		if err := tx.Model(&Match{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": status, "updated_at": now}).Error; err != nil {
			return err
		}
		match.Status = status
		match.UpdatedAt = now

		if status == StatusCancelled && releaseMembers {
			if err := tx.Model(&Candidate{}).
				Where("match_id = ? AND state = ? AND slot > ?", id, StateClaimed, now).
				Updates(map[string]interface{}{
					"state":      StateOpen,
					"match_id":   nil,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
			if err := tx.Model(&Candidate{}).
				Where("match_id = ? AND state = ? AND slot <= ?", id, StateClaimed, now).
				Updates(map[string]interface{}{
					"state":      StateExpired,
					"match_id":   nil,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ExpireBefore ages out open candidates whose slot has passed.
func (r *Repository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Candidate{}).
		Where("state = ? AND slot < ?", StateOpen, cutoff).
		Updates(map[string]interface{}{
			"state":      StateExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// SlotsWithOpenCandidates lists the distinct upcoming slots that still have
// open candidates, for the periodic sweep.
func (r *Repository) SlotsWithOpenCandidates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	var slots []time.Time
	err := r.db.WithContext(ctx).Model(&Candidate{}).
		Distinct("slot").
		Where("state = ? AND slot >= ? AND slot < ?", StateOpen, from, to).
		Order("slot ASC").
		Pluck("slot", &slots).Error
	return slots, err
}

// CountOpenCandidates reports how many open candidates remain in the window.
func (r *Repository) CountOpenCandidates(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Candidate{}).
		Where("state = ? AND slot >= ? AND slot < ?", StateOpen, from, to).
		Count(&count).Error
	return count, err
}

func validTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	default:
		return false
	}
}
