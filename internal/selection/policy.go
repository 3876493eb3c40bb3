// Package selection assembles practice sessions from an item pool.
//
// Select honors a difficulty mix, spreads picks across genres and caps how often a
// single passage recurs. Recommend maps rolling accuracy to a difficulty mix.
// Everything here is pure and deterministic for a given pool order.
package selection

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the bucket an item belongs to.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the buckets in quota order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty returns the Difficulty for s (case-insensitive) and whether it is known.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Easy, Medium, Hard:
		return d, true
	}
	return "", false
}

// Item is a practice question tied to one passage. The selector only reads it.
type Item struct {
	ID         string     `json:"id"`
	PassageID  string     `json:"passage_id"`
	Difficulty Difficulty `json:"difficulty"`
	Genre      string     `json:"genre"`
}

// Mix is a difficulty distribution in whole percentages.
type Mix struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// DefaultMix is used when no mix is supplied.
var DefaultMix = Mix{Easy: 20, Medium: 50, Hard: 30}

// Total returns the sum of the percentages.
func (m Mix) Total() int {
	return m.Easy + m.Medium + m.Hard
}

// IsZero reports whether no percentage is set.
func (m Mix) IsZero() bool {
	return m == Mix{}
}

// Percent returns the share for d.
func (m Mix) Percent(d Difficulty) int {
	switch d {
	case Easy:
		return m.Easy
	case Medium:
		return m.Medium
	case Hard:
		return m.Hard
	}
	return 0
}

// Validate checks that every share is non-negative and the shares sum to 100.
func (m Mix) Validate() error {
	if m.Easy < 0 || m.Medium < 0 || m.Hard < 0 {
		return fmt.Errorf("%w: percentages must be non-negative", ErrInvalidPolicy)
	}
	if m.Total() != 100 {
		return fmt.Errorf("%w: mix must sum to 100, got %d", ErrInvalidPolicy, m.Total())
	}
	return nil
}

// Quotas splits target across the buckets. Easy and medium are rounded shares;
// hard takes whatever is left, so the quotas sum to target.
func (m Mix) Quotas(target int) map[Difficulty]int {
	if target <= 0 {
		return map[Difficulty]int{Easy: 0, Medium: 0, Hard: 0}
	}
	easy := min(roundShare(m.Easy, target), target)
	medium := min(roundShare(m.Medium, target), target-easy)
	hard := max(target-easy-medium, 0)
	return map[Difficulty]int{Easy: easy, Medium: medium, Hard: hard}
}

func roundShare(pct, target int) int {
	if pct <= 0 {
		return 0
	}
	// Half rounds up: (pct*target + 50) / 100
	return (pct*target + 50) / 100
}

// ErrInvalidPolicy is wrapped by NewPolicy validation failures.
var ErrInvalidPolicy = errors.New("invalid selection policy")

// Policy constrains one selection request.
type Policy struct {
	TargetCount             int  `json:"target_count"`
	MaxItemsPerPassage      int  `json:"max_items_per_passage"`
	MinUniquePassagePercent int  `json:"min_unique_passage_percent"`
	EnforceGenreDiversity   bool `json:"enforce_genre_diversity"`
	Mix                     Mix  `json:"mix"`
}

// Policy defaults.
const (
	DefaultTargetCount             = 20
	DefaultMaxItemsPerPassage      = 2
	DefaultMinUniquePassagePercent = 60
)

// DefaultPolicy returns a policy for target items with the default constraints.
func DefaultPolicy(target int) Policy {
	return Policy{
		TargetCount:             target,
		MaxItemsPerPassage:      DefaultMaxItemsPerPassage,
		MinUniquePassagePercent: DefaultMinUniquePassagePercent,
		EnforceGenreDiversity:   true,
		Mix:                     DefaultMix,
	}
}

// NewPolicy validates and returns a Policy. A zero mix becomes DefaultMix.
func NewPolicy(target, maxPerPassage, minUniquePercent int, enforceGenres bool, mix Mix) (Policy, error) {
	if target <= 0 {
		return Policy{}, fmt.Errorf("%w: target count must be positive, got %d", ErrInvalidPolicy, target)
	}
	if maxPerPassage < 1 {
		return Policy{}, fmt.Errorf("%w: max items per passage must be at least 1, got %d", ErrInvalidPolicy, maxPerPassage)
	}
	if minUniquePercent < 0 || minUniquePercent > 100 {
		return Policy{}, fmt.Errorf("%w: min unique passage percent must be 0..100, got %d", ErrInvalidPolicy, minUniquePercent)
	}
	if mix.IsZero() {
		mix = DefaultMix
	}
	if err := mix.Validate(); err != nil {
		return Policy{}, err
	}
	return Policy{
		TargetCount:             target,
		MaxItemsPerPassage:      maxPerPassage,
		MinUniquePassagePercent: minUniquePercent,
		EnforceGenreDiversity:   enforceGenres,
		Mix:                     mix,
	}, nil
}
