package domain

import "math/rand/v2"

// ShuffleOrder draws a uniform random permutation of [0, n) via
// Fisher-Yates. The permutation is fixed once per session and is not
// seeded for reproducibility: two sessions for the same participant may
// see pairs in a different relative order, which is acceptable because
// answered filtering is by pair ID rather than position.
func ShuffleOrder(n int) []int {
	return shuffleOrder(n, rand.IntN)
}

func shuffleOrder(n int, intN func(int) int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := intN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
