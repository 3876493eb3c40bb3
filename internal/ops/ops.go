package ops

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/drill/internal/errors"
	"github.com/hpungsan/drill/internal/review"
)

// Limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxReviewLimit   = 500
	MaxAddItems      = 500
	MaxSessionSize   = 200
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampLimit applies the default for non-positive limits and caps at maxLimit.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

// resolveToday parses a YYYY-MM-DD date, or returns the current local date when s is empty.
func resolveToday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return review.Day(time.Now()), nil
	}
	d, err := review.ParseDay(s)
	if err != nil {
		return time.Time{}, errors.NewInvalidRequest("today must be a YYYY-MM-DD date")
	}
	return d, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
