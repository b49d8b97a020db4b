package matching

import (
	"testing"
	"time"
)

var slotBase = time.Date(2026, 6, 7, 19, 0, 0, 0, time.UTC)

func cand(person, gender, style string, offset time.Duration) Candidate {
	return Candidate{
		ID:         "cand-" + person,
		PersonID:   person,
		Gender:     gender,
		Slot:       slotBase,
		PartyStyle: style,
		State:      StateOpen,
		CreatedAt:  time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC).Add(offset),
	}
}

func TestSelectQuartetBasic(t *testing.T) {
	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		cand("m2", GenderMan, "casual", time.Minute),
		cand("w1", GenderWoman, "casual", 2*time.Minute),
		cand("w2", GenderWoman, "casual", 3*time.Minute),
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}
	if quartet.PartyStyle != "casual" {
		t.Fatalf("expected casual, got %s", quartet.PartyStyle)
	}
	if quartet.Men[0] != "m1" || quartet.Men[1] != "m2" {
		t.Fatalf("expected oldest men first, got %v", quartet.Men)
	}
	if quartet.Women[0] != "w1" || quartet.Women[1] != "w2" {
		t.Fatalf("expected oldest women first, got %v", quartet.Women)
	}
}

func TestSelectQuartetInsufficientMembers(t *testing.T) {
	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		cand("w1", GenderWoman, "casual", time.Minute),
		cand("w2", GenderWoman, "casual", 2*time.Minute),
	}

	if _, ok := SelectQuartet(candidates); ok {
		t.Fatal("expected no quartet with a single man")
	}
}

func TestSelectQuartetEmptyInput(t *testing.T) {
	if _, ok := SelectQuartet(nil); ok {
		t.Fatal("expected no quartet from empty input")
	}
}

func TestSelectQuartetStylesMustAlign(t *testing.T) {
	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		cand("m2", GenderMan, "casual", time.Minute),
		cand("w1", GenderWoman, "serious", 2*time.Minute),
		cand("w2", GenderWoman, "serious", 3*time.Minute),
	}

	if _, ok := SelectQuartet(candidates); ok {
		t.Fatal("expected no quartet when styles do not align across genders")
	}
}

func TestSelectQuartetPrefersLongestWaitingStyle(t *testing.T) {
	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		cand("m2", GenderMan, "casual", time.Minute),
		cand("w1", GenderWoman, "casual", 2*time.Minute),
		cand("w2", GenderWoman, "casual", 3*time.Minute),
		cand("m3", GenderMan, "serious", time.Hour),
		cand("m4", GenderMan, "serious", time.Hour+time.Minute),
		cand("w3", GenderWoman, "serious", time.Hour+2*time.Minute),
		cand("w4", GenderWoman, "serious", time.Hour+3*time.Minute),
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}
	if quartet.PartyStyle != "casual" {
		t.Fatalf("expected the older casual group to win, got %s", quartet.PartyStyle)
	}
}

func TestSelectQuartetStyleTieBreakIsLexicographic(t *testing.T) {
	candidates := []Candidate{
		cand("m1", GenderMan, "serious", 0),
		cand("m2", GenderMan, "serious", time.Minute),
		cand("w1", GenderWoman, "serious", 2*time.Minute),
		cand("w2", GenderWoman, "serious", 3*time.Minute),
		cand("m3", GenderMan, "casual", 0),
		cand("m4", GenderMan, "casual", time.Minute),
		cand("w3", GenderWoman, "casual", 2*time.Minute),
		cand("w4", GenderWoman, "casual", 3*time.Minute),
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}
	if quartet.PartyStyle != "casual" {
		t.Fatalf("expected lexicographic tie-break to pick casual, got %s", quartet.PartyStyle)
	}
}

func TestSelectQuartetPicksOldestWithinStyle(t *testing.T) {
	candidates := []Candidate{
		cand("m3", GenderMan, "casual", 3*time.Minute),
		cand("m1", GenderMan, "casual", 0),
		cand("m2", GenderMan, "casual", time.Minute),
		cand("w2", GenderWoman, "casual", 5*time.Minute),
		cand("w1", GenderWoman, "casual", 4*time.Minute),
		cand("w3", GenderWoman, "casual", 6*time.Minute),
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}
	if quartet.Men[0] != "m1" || quartet.Men[1] != "m2" {
		t.Fatalf("expected m1,m2, got %v", quartet.Men)
	}
	if quartet.Women[0] != "w1" || quartet.Women[1] != "w2" {
		t.Fatalf("expected w1,w2, got %v", quartet.Women)
	}
}

func TestSelectQuartetDeterministicUnderReordering(t *testing.T) {
	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		cand("m2", GenderMan, "casual", time.Minute),
		cand("m3", GenderMan, "casual", 2*time.Minute),
		cand("w1", GenderWoman, "casual", 3*time.Minute),
		cand("w2", GenderWoman, "casual", 4*time.Minute),
		cand("w3", GenderWoman, "casual", 5*time.Minute),
	}

	first, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}

	reversed := make([]Candidate, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		reversed = append(reversed, candidates[i])
	}

	second, ok := SelectQuartet(reversed)
	if !ok {
		t.Fatal("expected a quartet")
	}

	if first.PartyStyle != second.PartyStyle {
		t.Fatalf("style differs: %s vs %s", first.PartyStyle, second.PartyStyle)
	}
	for i := range first.Men {
		if first.Men[i] != second.Men[i] {
			t.Fatalf("men differ: %v vs %v", first.Men, second.Men)
		}
	}
	for i := range first.Women {
		if first.Women[i] != second.Women[i] {
			t.Fatalf("women differ: %v vs %v", first.Women, second.Women)
		}
	}
}

func TestSelectQuartetTieBrokenByPersonID(t *testing.T) {
	candidates := []Candidate{
		cand("mB", GenderMan, "casual", 0),
		cand("mA", GenderMan, "casual", 0),
		cand("mC", GenderMan, "casual", 0),
		cand("w1", GenderWoman, "casual", 0),
		cand("w2", GenderWoman, "casual", 0),
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}
	if quartet.Men[0] != "mA" || quartet.Men[1] != "mB" {
		t.Fatalf("expected person-id tie-break, got %v", quartet.Men)
	}
}

func TestSelectQuartetSkipsNonOpenCandidates(t *testing.T) {
	claimed := cand("m1", GenderMan, "casual", 0)
	claimed.State = StateClaimed

	candidates := []Candidate{
		claimed,
		cand("m2", GenderMan, "casual", time.Minute),
		cand("w1", GenderWoman, "casual", 2*time.Minute),
		cand("w2", GenderWoman, "casual", 3*time.Minute),
	}

	if _, ok := SelectQuartet(candidates); ok {
		t.Fatal("expected no quartet when a member is already claimed")
	}
}

func TestSelectQuartetReportsSelectedRowIDsOnly(t *testing.T) {
	dup := cand("m1", GenderMan, "casual", time.Hour)
	dup.ID = "cand-m1-dup"

	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		dup,
		cand("m2", GenderMan, "casual", time.Minute),
		cand("w1", GenderWoman, "casual", 2*time.Minute),
		cand("w2", GenderWoman, "casual", 3*time.Minute),
	}

	quartet, ok := SelectQuartet(candidates)
	if !ok {
		t.Fatal("expected a quartet")
	}
	if len(quartet.CandidateIDs) != 4 {
		t.Fatalf("expected 4 candidate ids, got %v", quartet.CandidateIDs)
	}
	want := map[string]bool{"cand-m1": true, "cand-m2": true, "cand-w1": true, "cand-w2": true}
	for _, id := range quartet.CandidateIDs {
		if !want[id] {
			t.Fatalf("unexpected candidate id %s in %v", id, quartet.CandidateIDs)
		}
	}
}

func TestSelectQuartetCollapsesDuplicatePersons(t *testing.T) {
	dup := cand("m1", GenderMan, "casual", time.Minute)
	dup.ID = "cand-m1-dup"

	candidates := []Candidate{
		cand("m1", GenderMan, "casual", 0),
		dup,
		cand("w1", GenderWoman, "casual", 2*time.Minute),
		cand("w2", GenderWoman, "casual", 3*time.Minute),
	}

	if _, ok := SelectQuartet(candidates); ok {
		t.Fatal("expected no quartet when the second man is the same person")
	}
}
