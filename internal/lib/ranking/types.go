package ranking

import (
	"github.com/dpup/meetpoint/server/internal/lib/geo"
)

// SortKey selects the ordering applied after filtering
type SortKey string

const (
	ByDistance  SortKey = "distance"  // ascending distance to the anchor
	ByRating    SortKey = "rating"    // descending candidate rating
	ByRelevance SortKey = "relevance" // descending provider relevance
)

// Candidate is a point of interest returned by a places provider
type Candidate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Coordinates geo.Coordinate `json:"coordinates"`
	Category    string         `json:"category,omitempty"`

	// Optional provider-supplied ranking fields
	Distance  *float64 `json:"distance,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Relevance *float64 `json:"relevance,omitempty"`
}

// RankedCandidate is a candidate that passed the region filter
type RankedCandidate struct {
	Candidate
	DistanceToAnchor float64 `json:"distance_to_anchor"` // meters, great-circle
}
