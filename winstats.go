package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Supported per-CpG and window statistics. The integer-valued ones
// (intStats) are written as int8 on export, the rest as float32.
var statNames = []string{"mean", "mode", "var", "cat_var", "cat2_var", "entropy", "diff", "cov"}

var intStats = map[string]bool{
	"mode":     true,
	"cat_var":  true,
	"cat2_var": true,
	"diff":     true,
}

func validateStatNames(names []string) error {
	valid := map[string]bool{}
	for _, name := range statNames {
		valid[name] = true
	}
	for _, name := range names {
		if !valid[name] {
			return fmt.Errorf("unknown statistic %q (supported: %v)", name, statNames)
		}
	}
	return nil
}

func popVariance(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	_, v := stat.MeanVariance(vals, nil)
	return v * float64(len(vals)-1) / float64(len(vals))
}

// binaryEntropy is the entropy (nats) of a Bernoulli distribution with
// the empirical methylation rate p.
func binaryEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -(p*math.Log(p) + (1-p)*math.Log(1-p))
}

func computeStat(name string, vals []float64) float32 {
	switch name {
	case "mean":
		return float32(stat.Mean(vals, nil))
	case "mode":
		return float32(math.Round(stat.Mean(vals, nil)))
	case "var":
		return float32(popVariance(vals))
	case "cat_var":
		switch v := popVariance(vals); {
		case v > 0.1:
			return 2
		case v > 0.02:
			return 1
		default:
			return 0
		}
	case "cat2_var":
		if popVariance(vals) > 0.1 {
			return 1
		}
		return 0
	case "entropy":
		return float32(binaryEntropy(stat.Mean(vals, nil)))
	case "diff":
		min, max := vals[0], vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		return float32(math.Round(max - min))
	case "cov":
		return float32(len(vals))
	default:
		panic(fmt.Sprintf("bug: unknown statistic %q", name))
	}
}

// computeSiteStats derives per-position statistics from the observed
// values across samples at the position itself. Positions observed in
// fewer than minCov samples get the sentinel for every statistic.
func computeSiteStats(dense [][]float32, nsites int, names []string, minCov int) map[string][]float32 {
	out := map[string][]float32{}
	for _, name := range names {
		out[name] = make([]float32, nsites)
	}
	vals := make([]float64, 0, len(dense))
	for i := 0; i < nsites; i++ {
		vals = vals[:0]
		for _, col := range dense {
			if col[i] != cpgNaN {
				vals = append(vals, float64(col[i]))
			}
		}
		for _, name := range names {
			if len(vals) < minCov || len(vals) == 0 {
				out[name][i] = cpgNaN
			} else {
				out[name][i] = computeStat(name, vals)
			}
		}
	}
	return out
}

// knnContext is one sample's neighbor context for a chunk: flat
// nsites*Width state and distance arrays from extractKnnContext.
type knnContext struct {
	Sample string
	States []float32
	Dists  []float32
	Width  int
}

// aggregateWindowStats reduces neighbor states to per-position scalars
// over one or more window lengths. For each position and full window
// length wlen, the contributing set is every sample's context entry
// with a non-sentinel state and distance <= wlen/2, plus the sample's
// own observed value at the position (distance 0). Positions with
// fewer than minCov contributors get the sentinel. Larger windows
// never shrink the contributing set.
func aggregateWindowStats(nsites int, contexts []knnContext, selfVals [][]float32, wlens []int, names []string, minCov int) (map[int]map[string][]float32, error) {
	if len(contexts) != len(selfVals) {
		return nil, fmt.Errorf("%w: %d contexts for %d sample columns", errInvariant, len(contexts), len(selfVals))
	}
	for s, ctx := range contexts {
		if len(ctx.States) != nsites*ctx.Width || len(ctx.Dists) != nsites*ctx.Width {
			return nil, fmt.Errorf("%w: sample %s context arrays not co-indexed with %d sites", errInvariant, ctx.Sample, nsites)
		}
		if len(selfVals[s]) != nsites {
			return nil, fmt.Errorf("%w: sample %s has %d values for %d sites", errInvariant, ctx.Sample, len(selfVals[s]), nsites)
		}
	}
	out := map[int]map[string][]float32{}
	for _, wlen := range wlens {
		out[wlen] = map[string][]float32{}
		for _, name := range names {
			out[wlen][name] = make([]float32, nsites)
		}
	}
	var vals []float64
	for i := 0; i < nsites; i++ {
		for _, wlen := range wlens {
			radius := float32(wlen / 2)
			vals = vals[:0]
			for s, ctx := range contexts {
				if v := selfVals[s][i]; v != cpgNaN {
					vals = append(vals, float64(v))
				}
				row := i * ctx.Width
				for w := 0; w < ctx.Width; w++ {
					st := ctx.States[row+w]
					d := ctx.Dists[row+w]
					if st != cpgNaN && d != cpgNaN && d <= radius {
						vals = append(vals, float64(st))
					}
				}
			}
			for _, name := range names {
				if len(vals) < minCov || len(vals) == 0 {
					out[wlen][name][i] = cpgNaN
				} else {
					out[wlen][name][i] = computeStat(name, vals)
				}
			}
		}
	}
	return out, nil
}
