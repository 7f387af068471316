package main

import (
	"errors"
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"
)

// Integer codes for the DNA alphabet. baseN only appears transiently:
// window extraction replaces every N code with a random base before
// returning.
const (
	baseA = int8(0)
	baseT = int8(1)
	baseG = int8(2)
	baseC = int8(3)
	baseN = int8(4)
)

var errPositionOutOfRange = errors.New("position out of range")

func baseCode(b byte) int8 {
	switch b {
	case 'A':
		return baseA
	case 'T':
		return baseT
	case 'G':
		return baseG
	case 'C':
		return baseC
	default:
		return baseN
	}
}

// extractSeqWindows returns integer-coded DNA windows of odd length
// wlen centered on each position, as a flat len(pos)*wlen array.
// Positions are converted to 0-based via seqIndex. Windows reaching
// past either end of the sequence are padded with N before coding, so
// every window has exactly wlen cells; all N codes (padding and
// ambiguous bases alike) are then replaced by uniform random draws from
// rng. With assertCpG, a window center that does not decode to C,G is
// an invariant violation.
func extractSeqWindows(seq string, pos []int32, wlen, seqIndex int, assertCpG bool, rng *rand.Rand) ([]int8, error) {
	if wlen%2 == 0 {
		return nil, fmt.Errorf("sequence window length %d is not odd", wlen)
	}
	delta := wlen / 2
	wins := make([]int8, len(pos)*wlen)
	for i, p := range pos {
		p0 := int(p) - seqIndex
		if p0 < 0 || p0 >= len(seq) {
			return nil, fmt.Errorf("%w: position %d not on sequence of length %d", errPositionOutOfRange, p, len(seq))
		}
		if p0+1 >= len(seq) || seq[p0] != 'C' || seq[p0+1] != 'G' {
			log.Warnf("no CpG site at position %d", p)
		}
		win := wins[i*wlen : (i+1)*wlen]
		for w := range win {
			sp := p0 - delta + w
			if sp < 0 || sp >= len(seq) {
				win[w] = baseN
			} else {
				win[w] = baseCode(seq[sp])
			}
		}
		for w := range win {
			if win[w] == baseN {
				win[w] = int8(rng.Intn(4))
			}
		}
		if assertCpG && (win[delta] != baseC || win[delta+1] != baseG) {
			return nil, fmt.Errorf("%w: window center at position %d is not a CpG dinucleotide", errInvariant, p)
		}
	}
	return wins, nil
}
