package services

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

// HashContours creates a content hash for memoizing resolutions. Contour order
// is significant because it fixes owner order and the intersection fold.
func HashContours(contours []reachability.Contour, contourValue *float64) (string, error) {
	payload, err := json.Marshal(contours)
	if err != nil {
		return "", fmt.Errorf("failed to serialize contours for hashing: %w", err)
	}

	selection := "largest"
	if contourValue != nil {
		selection = strconv.FormatFloat(*contourValue, 'g', -1, 64)
	}

	h := sha256.New()
	h.Write([]byte(selection))
	h.Write([]byte{'|'})
	h.Write(payload)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
