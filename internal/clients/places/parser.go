package places

import (
	"encoding/json"
	"fmt"

	"github.com/dpup/meetpoint/server/internal/lib/ranking"
)

// searchResponse accepts both a bare array and a {"results": [...]} envelope
type searchResponse struct {
	Results []ranking.Candidate `json:"results"`
}

// ParseCandidates decodes a places search response. Candidates without an ID
// or with out-of-range coordinates are dropped; the count of dropped
// candidates is returned alongside.
func ParseCandidates(data []byte) ([]ranking.Candidate, int, error) {
	var raw []ranking.Candidate
	if err := json.Unmarshal(data, &raw); err != nil {
		var envelope searchResponse
		if envErr := json.Unmarshal(data, &envelope); envErr != nil {
			return nil, 0, fmt.Errorf("failed to parse places response: %w", err)
		}
		raw = envelope.Results
	}

	candidates := make([]ranking.Candidate, 0, len(raw))
	dropped := 0
	for _, c := range raw {
		if c.ID == "" || !c.Coordinates.Valid() {
			dropped++
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, dropped, nil
}
