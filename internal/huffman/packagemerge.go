package huffman

import (
	"sort"

	"github.com/deepteams/png/internal/oops"
)

// coin is an arena entry of the package-merge procedure: either a leaf for
// one symbol or a package of two earlier coins.
type coin struct {
	weight      uint64
	symbol      int32 // -1 for packages
	left, right int32
}

// LengthsFromFrequencies computes optimal code lengths bounded by maxBits
// with the package-merge (coin collector) procedure.
//
// Every symbol with a non-zero frequency starts as a one-symbol coin. Each
// round pairs the previous round's sorted list into packages and merges them
// with a fresh copy of the leaves; after maxBits lists, the 2*(n-1) lightest
// coins are expanded and the number of times a symbol occurs is its code
// length. Zero-frequency symbols get length 0. A single used symbol gets
// length 1.
func LengthsFromFrequencies(freqs []uint32, maxBits int) ([]uint8, error) {
	if maxBits < 1 || maxBits > MaxBits {
		return nil, oops.New(oops.CodeInvalidArgument, nil, "max code length %d", maxBits)
	}
	lengths := make([]uint8, len(freqs))

	var arena []coin
	for sym, f := range freqs {
		if f > 0 {
			arena = append(arena, coin{weight: uint64(f), symbol: int32(sym), left: -1, right: -1})
		}
	}
	numLeaves := len(arena)
	switch numLeaves {
	case 0:
		return lengths, nil
	case 1:
		lengths[arena[0].symbol] = 1
		return lengths, nil
	}
	if numLeaves > 1<<uint(maxBits) {
		return nil, oops.New(oops.CodeInvalidArgument, nil,
			"%d symbols cannot be coded in %d bits", numLeaves, maxBits)
	}

	// Ascending weight, ties by symbol order; the arena prefix holds the
	// leaves in this order for the rest of the procedure.
	sort.SliceStable(arena, func(i, j int) bool {
		return arena[i].weight < arena[j].weight
	})
	leaves := make([]int32, numLeaves)
	for i := range leaves {
		leaves[i] = int32(i)
	}

	cur := append([]int32(nil), leaves...)
	next := make([]int32, 0, 2*numLeaves)
	for round := 1; round < maxBits; round++ {
		next = next[:0]
		li := 0
		for p := 0; p+1 < len(cur); p += 2 {
			a, b := cur[p], cur[p+1]
			pkg := coin{weight: arena[a].weight + arena[b].weight, symbol: -1, left: a, right: b}
			// Leaves win ties so the result depends only on the input order.
			for li < numLeaves && arena[leaves[li]].weight <= pkg.weight {
				next = append(next, leaves[li])
				li++
			}
			arena = append(arena, pkg)
			next = append(next, int32(len(arena)-1))
		}
		next = append(next, leaves[li:]...)
		cur, next = next, cur
	}

	take := 2 * (numLeaves - 1)
	if take > len(cur) {
		take = len(cur)
	}
	stack := make([]int32, 0, 2*maxBits)
	for _, c := range cur[:take] {
		stack = append(stack[:0], c)
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if s := arena[top].symbol; s >= 0 {
				lengths[s]++
				continue
			}
			stack = append(stack, arena[top].left, arena[top].right)
		}
	}
	return lengths, nil
}
