package reachability

import (
	"fmt"
	"sort"
)

// Set is one owner's family of contours, ordered by value ascending. It is
// immutable once constructed.
type Set struct {
	owner    OwnerID
	contours []Contour
}

// FromContours builds a Set. The contours must be non-empty and share one owner.
// They are sorted by value so Largest does not depend on caller ordering.
func FromContours(contours []Contour) (*Set, error) {
	if len(contours) == 0 {
		return nil, &ValidationError{Reason: "no contours"}
	}

	owner := contours[0].OwnerID
	for _, c := range contours[1:] {
		if c.OwnerID != owner {
			return nil, &ValidationError{Reason: fmt.Sprintf("mixed owners %q and %q", owner, c.OwnerID)}
		}
	}

	sorted := make([]Contour, len(contours))
	copy(sorted, contours)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})

	return &Set{owner: owner, contours: sorted}, nil
}

// Owner returns the owner shared by every contour
func (s *Set) Owner() OwnerID {
	return s.owner
}

// Len returns the number of contours
func (s *Set) Len() int {
	return len(s.contours)
}

// Largest returns the contour with the greatest value. Among equal values the
// one supplied last wins.
func (s *Set) Largest() Contour {
	return s.contours[len(s.contours)-1]
}

// At returns the contour with exactly the given value
func (s *Set) At(value float64) (Contour, bool) {
	for i := len(s.contours) - 1; i >= 0; i-- {
		if s.contours[i].Value == value {
			return s.contours[i], true
		}
	}
	return Contour{}, false
}

// Contours returns a copy of the contours in ascending value order
func (s *Set) Contours() []Contour {
	out := make([]Contour, len(s.contours))
	copy(out, s.contours)
	return out
}

// GroupByOwner splits a mixed-owner contour list, as returned by a provider
// for several origins at once, into one Set per owner. Sets are returned in
// the order their owner first appears.
func GroupByOwner(contours []Contour) ([]*Set, error) {
	if len(contours) == 0 {
		return nil, &ValidationError{Reason: "no contours"}
	}

	var order []OwnerID
	groups := make(map[OwnerID][]Contour)
	for _, c := range contours {
		if _, seen := groups[c.OwnerID]; !seen {
			order = append(order, c.OwnerID)
		}
		groups[c.OwnerID] = append(groups[c.OwnerID], c)
	}

	sets := make([]*Set, 0, len(order))
	for _, owner := range order {
		set, err := FromContours(groups[owner])
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}
