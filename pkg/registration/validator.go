package registration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/partyof4/platform/pkg/common/models"
	"github.com/partyof4/platform/pkg/matching"
	"github.com/partyof4/platform/pkg/schedule"
)

var (
	errMissingPerson = errors.New("person_id required")
	errInvalidGender = errors.New("invalid gender")
	errInvalidStyle  = errors.New("invalid party style")
	errInvalidSlot   = errors.New("invalid slot")
	errSlotPassed    = errors.New("slot already passed")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	catalog schedule.Catalog
	now     func() time.Time
}

func NewValidator(catalog schedule.Catalog) *Validator {
	return &Validator{catalog: catalog, now: time.Now}
}

// Validate checks an intake request and returns the normalised slot.
func (v *Validator) Validate(req models.RegisterRequest) (time.Time, error) {
	if v == nil {
		return time.Time{}, ValidationError{reason: errors.New("validator not initialised")}
	}

	if strings.TrimSpace(req.PersonID) == "" {
		return time.Time{}, ValidationError{reason: errMissingPerson}
	}

	gender := strings.TrimSpace(strings.ToLower(req.Gender))
	if gender != matching.GenderMan && gender != matching.GenderWoman {
		return time.Time{}, ValidationError{reason: fmt.Errorf("gender %q: %w", req.Gender, errInvalidGender)}
	}

	style := strings.TrimSpace(strings.ToLower(req.PartyStyle))
	if !v.catalog.ValidStyle(style) {
		return time.Time{}, ValidationError{reason: fmt.Errorf("party style %q: %w", req.PartyStyle, errInvalidStyle)}
	}

	slot, err := v.catalog.ParseSlot(req.Slot)
	if err != nil {
		return time.Time{}, ValidationError{reason: fmt.Errorf("%v: %w", err, errInvalidSlot)}
	}
	if !slot.After(v.now().UTC()) {
		return time.Time{}, ValidationError{reason: fmt.Errorf("slot %s: %w", req.Slot, errSlotPassed)}
	}

	return slot, nil
}
