package usecase

import (
	"math"
	"math/rand/v2"
	"slices"
)

// sampleStream decorrelates the PCG stream from the seed itself.
const sampleStream = 0x9e3779b97f4a7c15

// SampleCount is the number of rows kept out of n at rate: ceil(n*rate),
// never zero for a non-empty layer and never more than n.
func SampleCount(n int64, rate float64) int64 {
	if n <= 0 {
		return 0
	}
	if rate >= 1 {
		return n
	}
	// guard against 0.1*1000 landing a hair above 100
	k := int64(math.Ceil(float64(n)*rate - 1e-9))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// SampleIndices picks SampleCount(n, rate) distinct row indices in [0, n)
// uniformly without replacement and returns them sorted. The same seed
// always yields the same set.
func SampleIndices(n int64, rate float64, seed uint64) []int64 {
	k := SampleCount(n, rate)
	if k == n {
		all := make([]int64, n)
		for i := range all {
			all[i] = int64(i)
		}
		return all
	}

	r := rand.New(rand.NewPCG(seed, seed^sampleStream))

	// Floyd's algorithm: k draws, no rejection loop.
	chosen := make(map[int64]struct{}, k)
	for j := n - k; j < n; j++ {
		t := r.Int64N(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
	}

	out := make([]int64, 0, k)
	for i := range chosen {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// IndexFilter turns sorted indices into a keep function for a scan that
// visits rows in ascending order.
func IndexFilter(indices []int64) func(i int64) bool {
	pos := 0
	return func(i int64) bool {
		for pos < len(indices) && indices[pos] < i {
			pos++
		}
		return pos < len(indices) && indices[pos] == i
	}
}
