package main

import (
	"sort"
)

// extractKnnContext finds, for each target position, the k nearest
// covered CpG sites on each side in the sample's chromosome-wide
// (srcPos, srcVal) profile. It returns two flat len(targetPos)*2k
// arrays: methylation states and genomic distances, each row laid out
// as k left neighbors then k right neighbors, both ordered by
// increasing distance from the target. The target site itself, if
// covered, is not part of its own context. Missing neighbors (sparse
// coverage or chromosome edge) are cpgNaN in both arrays; valid
// distances are strictly positive.
//
// srcPos must be sorted ascending; lookups are one binary search per
// target.
func extractKnnContext(targetPos, srcPos []int32, srcVal []float32, k int) (states, dists []float32) {
	width := 2 * k
	states = make([]float32, len(targetPos)*width)
	dists = make([]float32, len(targetPos)*width)
	for i := range states {
		states[i] = cpgNaN
		dists[i] = cpgNaN
	}
	for i, p := range targetPos {
		row := i * width
		ins := sort.Search(len(srcPos), func(m int) bool { return srcPos[m] >= p })
		right := ins
		if right < len(srcPos) && srcPos[right] == p {
			right++
		}
		for s, l := 0, ins-1; s < k && l >= 0; s, l = s+1, l-1 {
			states[row+s] = srcVal[l]
			dists[row+s] = float32(p - srcPos[l])
		}
		for s, r := 0, right; s < k && r < len(srcPos); s, r = s+1, r+1 {
			states[row+k+s] = srcVal[r]
			dists[row+k+s] = float32(srcPos[r] - p)
		}
	}
	return states, dists
}
