package selection

import "math"

// accuracyBands maps an upper accuracy bound (exclusive) to a mix. Bands are ordered
// so that easy never rises and hard never falls as accuracy increases.
var accuracyBands = []struct {
	below float64
	mix   Mix
}{
	{50, Mix{Easy: 50, Medium: 40, Hard: 10}},
	{70, Mix{Easy: 30, Medium: 50, Hard: 20}},
	{85, Mix{Easy: 20, Medium: 50, Hard: 30}},
}

// topBand applies at 85% accuracy and above.
var topBand = Mix{Easy: 10, Medium: 40, Hard: 50}

// Recommend maps a rolling accuracy percentage to a difficulty mix summing to 100.
// Input is clamped to 0..100; NaN yields DefaultMix.
func Recommend(accuracyPercent float64) Mix {
	if math.IsNaN(accuracyPercent) {
		return DefaultMix
	}
	acc := math.Max(0, math.Min(100, accuracyPercent))
	for _, b := range accuracyBands {
		if acc < b.below {
			return b.mix
		}
	}
	return topBand
}

// Accuracy returns correct/total as a percentage, or NaN when total is zero.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return math.NaN()
	}
	return float64(correct) * 100 / float64(total)
}
