package shuffle

import (
	"math/rand"
	"time"
)

// Shuffle returns a new slice holding a random permutation of in.
// The input slice is left untouched.
func Shuffle[T any](in []T) []T {
	return ShuffleWith(rand.New(rand.NewSource(time.Now().UnixNano())), in)
}

// ShuffleWith is Shuffle with a caller supplied random source
func ShuffleWith[T any](r *rand.Rand, in []T) []T {
	shuffled := make([]T, len(in))
	copy(shuffled, in)

	// Fisher-Yates
	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}
