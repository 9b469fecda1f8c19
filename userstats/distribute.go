package userstats

import (
	"maps"
	"slices"
)

// Share is the part of an aggregate value attributed to one label.
type Share struct {
	Label string
	Value float64
}

// Distribute splits resp across the labels of freq in proportion to
// their bias-corrected counts. Labels without a significant count are
// dropped. If none remain, the category's sentinel receives all of resp.
// Shares are ordered by label.
func Distribute(resp float64, c Category, freq map[string]int) []Share {
	weights := make(map[string]float64, len(freq))
	var total float64
	for label, raw := range freq {
		v, ok := Correct(raw)
		if !ok {
			continue
		}
		weights[label] = v
		total += v
	}
	if total == 0 {
		weights = map[string]float64{c.Sentinel(): Bias}
		total = Bias
	}

	shares := make([]Share, 0, len(weights))
	for _, label := range slices.Sorted(maps.Keys(weights)) {
		shares = append(shares, Share{Label: label, Value: resp * weights[label] / total})
	}
	return shares
}
