package quiz

import "math"

// Result is the outcome of a finished session
type Result struct {
	Score   int      `json:"score"`
	Total   int      `json:"total"`
	Answers []Answer `json:"answers"`
}

// Percentage returns the rounded share of correct answers, 0 for an empty result
func (r Result) Percentage() int {
	if r.Total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(r.Score) / float64(r.Total)))
}

// HasIncorrect reports whether any answer was wrong
func (r Result) HasIncorrect() bool {
	for _, a := range r.Answers {
		if !a.IsCorrect {
			return true
		}
	}
	return false
}
