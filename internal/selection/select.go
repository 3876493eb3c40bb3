package selection

import "sort"

// Select picks at most p.TargetCount items from pool.
//
// A quota pass fills each difficulty bucket by the policy mix, then a backfill pass
// fills any shortfall from leftover items of any difficulty. Both passes take items
// from unused passages before reusing one, and never take more than
// MaxItemsPerPassage items from the same passage. With EnforceGenreDiversity,
// genres are visited round-robin. The result is deterministic for a given pool order.
func Select(pool []Item, p Policy) []Item {
	if p.TargetCount <= 0 || len(pool) == 0 {
		return []Item{}
	}
	mix := p.Mix
	if mix.IsZero() {
		mix = DefaultMix
	}

	s := newSelector(pool, p)
	quotas := mix.Quotas(p.TargetCount)
	for _, d := range Difficulties {
		s.fill(s.bucket(d), quotas[d], s.firstSeenOrder)
	}
	if remaining := p.TargetCount - len(s.selected); remaining > 0 {
		var leftovers []int
		for _, d := range Difficulties {
			leftovers = append(leftovers, s.bucket(d)...)
		}
		s.fill(leftovers, remaining, s.rarestFirstOrder)
	}
	return s.selected
}

type selector struct {
	pool       []Item
	target     int
	maxPer     int
	diverse    bool
	taken      []bool
	perPassage map[string]int
	perGenre   map[string]int
	genreRank  map[string]int
	selected   []Item
}

func newSelector(pool []Item, p Policy) *selector {
	s := &selector{
		pool:       pool,
		target:     p.TargetCount,
		maxPer:     max(p.MaxItemsPerPassage, 1),
		diverse:    p.EnforceGenreDiversity,
		taken:      make([]bool, len(pool)),
		perPassage: make(map[string]int),
		perGenre:   make(map[string]int),
		genreRank:  make(map[string]int),
		selected:   make([]Item, 0, p.TargetCount),
	}
	for _, it := range pool {
		if _, ok := s.genreRank[it.Genre]; !ok {
			s.genreRank[it.Genre] = len(s.genreRank)
		}
	}
	return s
}

// bucket returns the pool indexes of untaken items with difficulty d, in pool order.
func (s *selector) bucket(d Difficulty) []int {
	var idx []int
	for i, it := range s.pool {
		if !s.taken[i] && it.Difficulty == d {
			idx = append(idx, i)
		}
	}
	return idx
}

// fill takes up to quota items from candidates. Passage limits are raised one at a
// time, so every passage is used once before any is used twice.
func (s *selector) fill(candidates []int, quota int, order func([]string) []string) {
	want := min(quota, s.target-len(s.selected))
	if want <= 0 || len(candidates) == 0 {
		return
	}

	groups, genres := s.group(candidates)
	got := 0
	for limit := 1; limit <= s.maxPer && got < want; limit++ {
		next := make(map[string]int, len(groups))
		for got < want {
			progress := false
			for _, g := range order(genres) {
				if got >= want {
					break
				}
				if i, ok := s.nextEligible(groups[g], next, g, limit); ok {
					s.take(i)
					got++
					progress = true
				}
			}
			if !progress {
				break
			}
		}
	}
}

// group splits candidates by genre. Without genre diversity everything is one group.
func (s *selector) group(candidates []int) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var genres []string
	for _, i := range candidates {
		g := ""
		if s.diverse {
			g = s.pool[i].Genre
		}
		if _, ok := groups[g]; !ok {
			genres = append(genres, g)
		}
		groups[g] = append(groups[g], i)
	}
	return groups, genres
}

// nextEligible advances the genre's cursor to the next item whose passage is under limit.
// Skipped items stay ineligible for the rest of this limit round, since counts only grow.
func (s *selector) nextEligible(idx []int, next map[string]int, genre string, limit int) (int, bool) {
	cur := next[genre]
	for cur < len(idx) {
		i := idx[cur]
		cur++
		if s.taken[i] || s.perPassage[s.pool[i].PassageID] >= limit {
			continue
		}
		next[genre] = cur
		return i, true
	}
	next[genre] = cur
	return 0, false
}

func (s *selector) take(i int) {
	it := s.pool[i]
	s.taken[i] = true
	s.perPassage[it.PassageID]++
	s.perGenre[it.Genre]++
	s.selected = append(s.selected, it)
}

func (s *selector) firstSeenOrder(genres []string) []string {
	return genres
}

// rarestFirstOrder puts the genres selected least so far first, ties by first appearance.
func (s *selector) rarestFirstOrder(genres []string) []string {
	if !s.diverse {
		return genres
	}
	ordered := append([]string(nil), genres...)
	sort.SliceStable(ordered, func(a, b int) bool {
		ca, cb := s.perGenre[ordered[a]], s.perGenre[ordered[b]]
		if ca != cb {
			return ca < cb
		}
		return s.genreRank[ordered[a]] < s.genreRank[ordered[b]]
	})
	return ordered
}
