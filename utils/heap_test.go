package utils

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeapPopsSorted(t *testing.T) {
	const N = 1 << 10

	var h Heap[uint64]
	input := make([]uint64, 0, N)
	for i := 0; i < N; i++ {
		v := rand.Uint64()
		input = append(input, v)
		h.Push(v)
	}
	sort.Slice(input, func(i, j int) bool { return input[i] < input[j] })

	for i := 0; i < N; i++ {
		assert.Equal(t, input[i], h.Pop())
	}
	assert.Equal(t, 0, h.Len())
}

func TestHeapDuplicates(t *testing.T) {
	var h Heap[int]
	for _, v := range []int{3, 1, 3, 2, 1} {
		h.Push(v)
	}
	got := []int{}
	for h.Len() > 0 {
		got = append(got, h.Pop())
	}
	assert.Equal(t, []int{1, 1, 2, 3, 3}, got)
}
