package schedule

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog describes the bookable schedule: the discrete times of day the
// venue offers and the party styles a registrant can pick.
type Catalog struct {
	TimesOfDay  []string `yaml:"times_of_day" json:"times_of_day"`
	PartyStyles []string `yaml:"party_styles" json:"party_styles"`
}

// Load reads a catalog file. On any error the default catalog is returned
// alongside the error, so callers can warn and keep serving the built-in
// schedule rather than rejecting every slot.
func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := ioutil.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return DefaultCatalog(), err
	}
	if len(cat.TimesOfDay) == 0 || len(cat.PartyStyles) == 0 {
		return DefaultCatalog(), fmt.Errorf("schedule catalog empty")
	}
	return cat, nil
}

func DefaultCatalog() Catalog {
	return Catalog{
		TimesOfDay:  []string{"12:00", "19:00", "21:00"},
		PartyStyles: []string{"casual", "serious"},
	}
}

// ParseSlot parses an RFC 3339 timestamp and checks it lands on a bookable
// time of day. The returned slot is normalised to UTC.
func (c Catalog) ParseSlot(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %q is not a valid timestamp", value)
	}
	slot := t.UTC().Truncate(time.Minute)
	if !c.ValidSlot(slot) {
		return time.Time{}, fmt.Errorf("slot %q is not a bookable time", value)
	}
	return slot, nil
}

// ValidSlot reports whether the slot's time of day is in the catalog.
func (c Catalog) ValidSlot(slot time.Time) bool {
	if slot.IsZero() {
		return false
	}
	tod := slot.UTC().Format("15:04")
	for _, t := range c.TimesOfDay {
		if t == tod {
			return true
		}
	}
	return false
}

// ValidStyle reports whether the party style is offered.
func (c Catalog) ValidStyle(style string) bool {
	for _, s := range c.PartyStyles {
		if strings.EqualFold(s, style) {
			return true
		}
	}
	return false
}
