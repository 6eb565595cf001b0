package ranking

import (
	"fmt"
	"sort"

	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/meeting"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
)

// Ranker filters candidates to an overlap region and orders the survivors
type Ranker struct {
	limit int
}

// NewRanker creates a Ranker returning at most limit candidates (0 = unlimited)
func NewRanker(limit int) *Ranker {
	return &Ranker{limit: limit}
}

// RankWithinRegion ranks with no result limit
func RankWithinRegion(candidates []Candidate, region overlap.Region, key SortKey, anchor geo.Coordinate) ([]RankedCandidate, error) {
	return NewRanker(0).Rank(candidates, region, key, anchor)
}

// Rank drops candidates outside region, then sorts the rest by key. Ties keep
// input order. A region that is not an Intersection yields no candidates.
func (r *Ranker) Rank(candidates []Candidate, region overlap.Region, key SortKey, anchor geo.Coordinate) ([]RankedCandidate, error) {
	switch key {
	case ByDistance, ByRating, ByRelevance:
	default:
		return nil, fmt.Errorf("unknown sort key %q", key)
	}

	ranked := []RankedCandidate{}
	if region.Kind != overlap.Intersection {
		return ranked, nil
	}

	for _, c := range candidates {
		if !meeting.IsValid(c.Coordinates, region) {
			continue
		}
		distance, err := geo.Distance(c.Coordinates, anchor)
		if err != nil {
			return nil, fmt.Errorf("distance from candidate %q to anchor: %w", c.ID, err)
		}
		ranked = append(ranked, RankedCandidate{Candidate: c, DistanceToAnchor: distance})
	}

	switch key {
	case ByDistance:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].DistanceToAnchor < ranked[j].DistanceToAnchor
		})
	case ByRating:
		sortDescending(ranked, func(c Candidate) *float64 { return c.Rating })
	case ByRelevance:
		sortDescending(ranked, func(c Candidate) *float64 { return c.Relevance })
	}

	if r.limit > 0 && len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}
	return ranked, nil
}

// sortDescending orders by an optional field, highest first, missing values last
func sortDescending(ranked []RankedCandidate, field func(Candidate) *float64) {
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := field(ranked[i].Candidate), field(ranked[j].Candidate)
		switch {
		case vi == nil:
			return false
		case vj == nil:
			return true
		default:
			return *vi > *vj
		}
	})
}
