package selection

// Stats describes the composition of a selected set.
type Stats struct {
	TotalItems              int                `json:"total_items"`
	UniquePassageCount      int                `json:"unique_passage_count"`
	PassageDiversityPercent float64            `json:"passage_diversity_percent"`
	GenreDistribution       map[string]int     `json:"genre_distribution"`
	DifficultyDistribution  map[Difficulty]int `json:"difficulty_distribution"`
}

// ComputeStats aggregates selected items. PassageDiversityPercent is unique passages
// over total items, 0 for an empty set.
func ComputeStats(selected []Item) Stats {
	st := Stats{
		TotalItems:             len(selected),
		GenreDistribution:      make(map[string]int),
		DifficultyDistribution: make(map[Difficulty]int),
	}
	passages := make(map[string]struct{}, len(selected))
	for _, it := range selected {
		passages[it.PassageID] = struct{}{}
		st.GenreDistribution[it.Genre]++
		st.DifficultyDistribution[it.Difficulty]++
	}
	st.UniquePassageCount = len(passages)
	if st.TotalItems > 0 {
		st.PassageDiversityPercent = float64(st.UniquePassageCount) * 100 / float64(st.TotalItems)
	}
	return st
}

// MeetsUniquePassageTarget reports whether the achieved diversity reaches the policy's
// MinUniquePassagePercent. The target is advisory; Select never fails on it.
func (s Stats) MeetsUniquePassageTarget(p Policy) bool {
	if s.TotalItems == 0 {
		return true
	}
	return s.PassageDiversityPercent >= float64(p.MinUniquePassagePercent)
}
