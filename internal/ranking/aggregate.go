package ranking

import "sort"

// Average returns the arithmetic mean of key across the population, ignoring
// non-numeric entries. ok is false when no entity has a numeric value.
func Average(pop Population, key string) (avg float64, ok bool) {
	values := pop.Values(key)
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Ranked is one leaderboard position. Rank is 1-based.
type Ranked struct {
	Rank   int
	Entity Entity
	Value  float64
}

// Leaderboard orders the population by metric, best first: descending values, or
// ascending when the metric is negative. Entities without a numeric value are left
// out and ties keep population order. limit <= 0 returns every ranked entity.
func Leaderboard(pop Population, m Metric, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(pop))
	for _, e := range pop {
		if v, ok := e.Value(m.Key); ok {
			ranked = append(ranked, Ranked{Entity: e, Value: v})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return better(m, ranked[i].Value, ranked[j].Value)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// better reports whether a beats b under the metric's direction.
func better(m Metric, a, b float64) bool {
	if m.IsNegative {
		return a < b
	}
	return a > b
}
