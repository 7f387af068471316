package main

import (
	"errors"
	"math/rand"

	"gopkg.in/check.v1"
)

type seqwinSuite struct{}

var _ = check.Suite(&seqwinSuite{})

func (s *seqwinSuite) TestWindowLengthInvariant(c *check.C) {
	seq := "ACGTACGTAC"
	for _, wlen := range []int{1, 3, 5, 11, 21} {
		for _, pos := range []int32{0, 1, 4, 9} {
			wins, err := extractSeqWindows(seq, []int32{pos}, wlen, 0, false, rand.New(rand.NewSource(0)))
			c.Assert(err, check.IsNil)
			c.Check(wins, check.HasLen, wlen)
			for _, code := range wins {
				if code < 0 || code > 3 {
					c.Errorf("wlen %d pos %d: code %d outside alphabet", wlen, pos, code)
				}
			}
		}
	}
}

func (s *seqwinSuite) TestBoundaryImputation(c *check.C) {
	// centered at 0-based position 2 of "NNNACGT", the raw window is
	// NNNAC; padding and ambiguous bases are both resolved to random
	// real bases
	wins, err := extractSeqWindows("NNNACGT", []int32{2}, 5, 0, false, rand.New(rand.NewSource(42)))
	c.Assert(err, check.IsNil)
	c.Assert(wins, check.HasLen, 5)
	c.Check(wins[3], check.Equals, baseA)
	c.Check(wins[4], check.Equals, baseC)
	for _, code := range wins {
		if code < 0 || code > 3 {
			c.Errorf("residual unknown code %d in %v", code, wins)
		}
	}
}

func (s *seqwinSuite) TestImputationDeterminism(c *check.C) {
	pos := []int32{0, 1, 2}
	a, err := extractSeqWindows("NNNNNNN", pos, 7, 0, false, rand.New(rand.NewSource(9)))
	c.Assert(err, check.IsNil)
	b, err := extractSeqWindows("NNNNNNN", pos, 7, 0, false, rand.New(rand.NewSource(9)))
	c.Assert(err, check.IsNil)
	c.Check(a, check.DeepEquals, b)
}

func (s *seqwinSuite) TestEvenWidth(c *check.C) {
	_, err := extractSeqWindows("ACGT", []int32{1}, 4, 0, false, rand.New(rand.NewSource(0)))
	c.Check(err, check.ErrorMatches, `.*not odd`)
}

func (s *seqwinSuite) TestPositionOutOfRange(c *check.C) {
	rng := rand.New(rand.NewSource(0))
	_, err := extractSeqWindows("ACGT", []int32{5}, 3, 1, false, rng)
	c.Check(errors.Is(err, errPositionOutOfRange), check.Equals, true)

	_, err = extractSeqWindows("ACGT", []int32{0}, 3, 1, false, rng)
	c.Check(errors.Is(err, errPositionOutOfRange), check.Equals, true)
}

func (s *seqwinSuite) TestAssertCpG(c *check.C) {
	rng := rand.New(rand.NewSource(0))
	// 1-based position 2 of ACGT is the C of a CpG
	wins, err := extractSeqWindows("ACGT", []int32{2}, 3, 1, true, rng)
	c.Assert(err, check.IsNil)
	c.Check(wins[1], check.Equals, baseC)
	c.Check(wins[2], check.Equals, baseG)

	_, err = extractSeqWindows("ATTA", []int32{2}, 3, 1, true, rng)
	c.Check(errors.Is(err, errInvariant), check.Equals, true)
}

func (s *seqwinSuite) TestBaseCode(c *check.C) {
	c.Check(baseCode('A'), check.Equals, baseA)
	c.Check(baseCode('T'), check.Equals, baseT)
	c.Check(baseCode('G'), check.Equals, baseG)
	c.Check(baseCode('C'), check.Equals, baseC)
	c.Check(baseCode('N'), check.Equals, baseN)
	c.Check(baseCode('X'), check.Equals, baseN)
}
