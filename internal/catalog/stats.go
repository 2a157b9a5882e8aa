package catalog

import "math"

type Stats struct {
	Total        int     `json:"total"`
	AveragePrice float64 `json:"averagePrice"`
}

// ComputeStats counts items and averages their price, rounded half away
// from zero to two decimals.
func ComputeStats(items []Item) Stats {
	if len(items) == 0 {
		return Stats{}
	}

	var sum float64
	for _, it := range items {
		sum += it.Price
	}

	avg := sum / float64(len(items))
	return Stats{
		Total:        len(items),
		AveragePrice: math.Round(avg*100) / 100,
	}
}
