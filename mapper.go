package main

import (
	"errors"
	"fmt"
	"sort"
)

// cpgNaN marks unobserved methylation states, neighbor states and
// distances. Valid methylation values are in [0,1] and valid distances
// are > 0, so -1 is distinct from both.
const cpgNaN = float32(-1)

// errInvariant marks co-indexing or sorted-subset violations. These
// indicate corrupted upstream tables and abort the current chromosome;
// they are never recoverable locally.
var errInvariant = errors.New("invariant violation")

func isSorted(pos []int32) bool {
	return sort.SliceIsSorted(pos, func(i, j int) bool { return pos[i] < pos[j] })
}

// mapValues projects sparse (srcPos, values) onto targetPos, filling
// uncovered target positions with cpgNaN. Both position arrays must be
// sorted ascending and srcPos must be a subset of targetPos; a source
// position missing from the target table means the canonical table was
// built wrong, which is an invariant violation. The result always has
// len(targetPos) entries.
func mapValues(values []float32, srcPos, targetPos []int32) ([]float32, error) {
	if len(values) != len(srcPos) {
		return nil, fmt.Errorf("%w: %d values for %d source positions", errInvariant, len(values), len(srcPos))
	}
	if !isSorted(srcPos) || !isSorted(targetPos) {
		return nil, fmt.Errorf("%w: position arrays not sorted", errInvariant)
	}
	mapped := make([]float32, len(targetPos))
	for i := range mapped {
		mapped[i] = cpgNaN
	}
	j := 0
	for i, p := range srcPos {
		for j < len(targetPos) && targetPos[j] < p {
			j++
		}
		if j >= len(targetPos) || targetPos[j] != p {
			return nil, fmt.Errorf("%w: source position %d missing from target table", errInvariant, p)
		}
		mapped[j] = values[i]
		j++
	}
	return mapped, nil
}

// mapProfiles maps every sample's sparse values for one chromosome onto
// the canonical position array. Samples with no calls on the
// chromosome yield all-sentinel columns.
func mapProfiles(profiles []*cpgProfile, chromo string, chromoPos []int32) ([][]float32, error) {
	dense := make([][]float32, len(profiles))
	for i, prof := range profiles {
		cp := prof.Chromos[chromo]
		if cp == nil {
			col := make([]float32, len(chromoPos))
			for j := range col {
				col[j] = cpgNaN
			}
			dense[i] = col
			continue
		}
		mapped, err := mapValues(cp.Values, cp.Pos, chromoPos)
		if err != nil {
			return nil, fmt.Errorf("sample %s chromosome %s: %w", prof.Name, chromo, err)
		}
		dense[i] = mapped
	}
	return dense, nil
}

// siteCoverage counts, per position, how many samples have an observed
// value.
func siteCoverage(dense [][]float32, nsites int) []int {
	cov := make([]int, nsites)
	for _, col := range dense {
		for i, v := range col {
			if v != cpgNaN {
				cov[i]++
			}
		}
	}
	return cov
}

// filterByCoverage drops positions observed in fewer than minCov
// samples, returning the retained positions and per-sample columns.
func filterByCoverage(chromoPos []int32, dense [][]float32, minCov int) ([]int32, [][]float32) {
	cov := siteCoverage(dense, len(chromoPos))
	keep := make([]int, 0, len(chromoPos))
	for i, c := range cov {
		if c >= minCov {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(chromoPos) {
		return chromoPos, dense
	}
	filteredPos := make([]int32, len(keep))
	for i, j := range keep {
		filteredPos[i] = chromoPos[j]
	}
	filtered := make([][]float32, len(dense))
	for s, col := range dense {
		fcol := make([]float32, len(keep))
		for i, j := range keep {
			fcol[i] = col[j]
		}
		filtered[s] = fcol
	}
	return filteredPos, filtered
}

// roundValues converts a float32 column to int8 states, preserving the
// sentinel.
func roundValues(col []float32) []int8 {
	out := make([]int8, len(col))
	for i, v := range col {
		if v == cpgNaN {
			out[i] = -1
		} else if v >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
