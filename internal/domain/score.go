package domain

import "math"

// scoreScale maps a weighted 0-5 star average onto 0-100.
const scoreScale = 20

// ComputeTotalScore returns the SAW (simple additive weighting) score of rs:
// the sum of stars*weight*20 over the five criteria, rounded half-up to two
// decimals. Missing criteria count as zero.
func ComputeTotalScore(rs RatingSet) float64 {
	var total float64
	for _, c := range criteria {
		total += float64(rs[c.Key]) * c.Weight * scoreScale
	}
	return roundHalfUp(total, 2)
}

// StarCount converts a 0-100 score back to a whole number of stars in [0,5].
func StarCount(totalScore float64) int {
	stars := int(math.Floor(totalScore/scoreScale + 0.5))
	switch {
	case stars < 0:
		return 0
	case stars > MaxStars:
		return MaxStars
	}
	return stars
}

func roundHalfUp(v float64, places int) float64 {
	pow := math.Pow10(places)
	return math.Floor(v*pow+0.5) / pow
}
