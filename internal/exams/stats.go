package exams

import "math"

// Stats are the aggregates derived from a result list. They are computed by
// the consumer of the list, not by the store.
type Stats struct {
	Total        int `json:"total"`
	AverageScore int `json:"averageScore"`
	BestScore    int `json:"bestScore"`
}

// ComputeStats derives count, rounded mean score and best score. An empty
// list yields zeros.
func ComputeStats(results []Result) Stats {
	if len(results) == 0 {
		return Stats{}
	}
	sum := 0
	best := 0
	for _, res := range results {
		sum += res.Score
		if res.Score > best {
			best = res.Score
		}
	}
	return Stats{
		Total:        len(results),
		AverageScore: int(math.Round(float64(sum) / float64(len(results)))),
		BestScore:    best,
	}
}
