package matching

import "sort"

const membersPerGender = 2

// Quartet is the matcher's decision: the people to claim, the exact candidate
// rows carrying their registrations, and the style they agreed on.
type Quartet struct {
	Men          []string
	Women        []string
	CandidateIDs []string
	PartyStyle   string
}

type styleGroup struct {
	men   []Candidate
	women []Candidate
}

// SelectQuartet picks two men and two women sharing one party style from the
// open candidates of a single slot, or reports that no group exists. It is a
// pure function: identical input always yields an identical decision, and it
// never touches a store.
//
// Longest-waiting candidates win. The chosen style is the one holding the
// earliest-registered eligible candidate (ties broken by style name), and
// within that style the oldest registrations are selected, ties broken by
// person id.
func SelectQuartet(candidates []Candidate) (Quartet, bool) {
	groups := make(map[string]*styleGroup)
	for _, c := range candidates {
		if c.State != StateOpen {
			continue
		}
		g := groups[c.PartyStyle]
		if g == nil {
			g = &styleGroup{}
			groups[c.PartyStyle] = g
		}
		switch c.Gender {
		case GenderMan:
			g.men = append(g.men, c)
		case GenderWoman:
			g.women = append(g.women, c)
		}
	}

	bestStyle := ""
	var bestGroup *styleGroup
	for style, g := range groups {
		g.men = oldestPerPerson(g.men)
		g.women = oldestPerPerson(g.women)
		if len(g.men) < membersPerGender || len(g.women) < membersPerGender {
			continue
		}
		if bestGroup == nil || styleWins(style, g, bestStyle, bestGroup) {
			bestStyle = style
			bestGroup = g
		}
	}

	if bestGroup == nil {
		return Quartet{}, false
	}

	men := bestGroup.men[:membersPerGender]
	women := bestGroup.women[:membersPerGender]
	return Quartet{
		Men:          personIDs(men),
		Women:        personIDs(women),
		CandidateIDs: candidateIDs(men, women),
		PartyStyle:   bestStyle,
	}, true
}

// styleWins compares two eligible styles: the one whose earliest candidate
// registered first wins, then the lexicographically smaller style name.
func styleWins(style string, g *styleGroup, bestStyle string, best *styleGroup) bool {
	a := earliest(g)
	b := earliest(best)
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return style < bestStyle
}

func earliest(g *styleGroup) Candidate {
	first := g.men[0]
	if registeredBefore(g.women[0], first) {
		first = g.women[0]
	}
	return first
}

// oldestPerPerson sorts a gender group into selection order and collapses
// duplicate person ids, keeping each person's oldest row.
func oldestPerPerson(group []Candidate) []Candidate {
	sort.SliceStable(group, func(i, j int) bool {
		return registeredBefore(group[i], group[j])
	})
	seen := make(map[string]struct{}, len(group))
	out := group[:0]
	for _, c := range group {
		if _, ok := seen[c.PersonID]; ok {
			continue
		}
		seen[c.PersonID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// registeredBefore is the total selection order: created_at, then person id.
func registeredBefore(a, b Candidate) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.PersonID < b.PersonID
}

func personIDs(group []Candidate) []string {
	ids := make([]string, len(group))
	for i, c := range group {
		ids[i] = c.PersonID
	}
	return ids
}

func candidateIDs(groups ...[]Candidate) []string {
	var ids []string
	for _, g := range groups {
		for _, c := range g {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
