package matching

import (
	"time"

	"gorm.io/datatypes"
)

const (
	GenderMan   = "man"
	GenderWoman = "woman"
)

// Candidate states. open -> claimed happens only inside a successful match
// attempt; open -> expired only via the sweep once the slot has passed.
const (
	StateOpen    = "open"
	StateClaimed = "claimed"
	StateExpired = "expired"
)

// Match statuses. The coordinator only ever creates pending matches; the
// confirmation workflow moves them on.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Candidate is one person's declared availability for one slot. Rows are
// never deleted; state carries eligibility. The partial unique index enforces
// one open row per (person, slot) at the database, backstopping the intake
// check under concurrent registrations.
type Candidate struct {
	ID         string            `json:"id" gorm:"primaryKey;column:id"`
	PersonID   string            `json:"person_id" gorm:"column:person_id;index:idx_candidates_person_slot;index:idx_candidates_open_person_slot,unique,where:state = 'open'"`
	Gender     string            `json:"gender" gorm:"column:gender"`
	Slot       time.Time         `json:"slot" gorm:"column:slot;index:idx_candidates_person_slot;index:idx_candidates_slot_state;index:idx_candidates_open_person_slot,unique,where:state = 'open'"`
	PartyStyle string            `json:"party_style" gorm:"column:party_style"`
	State      string            `json:"state" gorm:"column:state;index:idx_candidates_slot_state"`
	MatchID    *string           `json:"match_id,omitempty" gorm:"column:match_id;index"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Match is one confirmed group on the ledger: two men and two women sharing
// a slot and a party style.
type Match struct {
	ID         string                       `json:"id" gorm:"primaryKey;column:id"`
	Slot       time.Time                    `json:"slot" gorm:"column:slot;index"`
	PartyStyle string                       `json:"party_style" gorm:"column:party_style"`
	Men        datatypes.JSONSlice[string]  `json:"men" gorm:"column:men"`
	Women      datatypes.JSONSlice[string]  `json:"women" gorm:"column:women"`
	Status     string                       `json:"status" gorm:"column:status;index"`
	CreatedAt  time.Time                    `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time                    `json:"updated_at" gorm:"column:updated_at"`
}

func (Match) TableName() string {
	return "matches"
}
