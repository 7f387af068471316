package main

import (
	"errors"

	"gopkg.in/check.v1"
)

type mapperSuite struct{}

var _ = check.Suite(&mapperSuite{})

func (s *mapperSuite) TestMapValues(c *check.C) {
	mapped, err := mapValues(
		[]float32{1, 0, 1},
		[]int32{100, 200, 300},
		[]int32{100, 150, 200, 250, 300},
	)
	c.Assert(err, check.IsNil)
	c.Check(mapped, check.DeepEquals, []float32{1, -1, 0, -1, 1})
}

func (s *mapperSuite) TestMapValuesRoundTrip(c *check.C) {
	target := []int32{5, 10, 15, 20, 25, 30}
	src := []int32{10, 20, 30}
	values := []float32{0.25, 0.5, 0.75}
	mapped, err := mapValues(values, src, target)
	c.Assert(err, check.IsNil)
	c.Assert(mapped, check.HasLen, len(target))
	j := 0
	for i, p := range target {
		if j < len(src) && src[j] == p {
			c.Check(mapped[i], check.Equals, values[j])
			j++
		} else {
			c.Check(mapped[i], check.Equals, cpgNaN)
		}
	}
}

func (s *mapperSuite) TestMapValuesSubsetViolation(c *check.C) {
	_, err := mapValues([]float32{1}, []int32{150}, []int32{100, 200})
	c.Check(errors.Is(err, errInvariant), check.Equals, true)
	c.Check(err, check.ErrorMatches, `.*source position 150 missing from target table`)
}

func (s *mapperSuite) TestMapValuesUnsorted(c *check.C) {
	_, err := mapValues([]float32{1, 0}, []int32{200, 100}, []int32{100, 200})
	c.Check(errors.Is(err, errInvariant), check.Equals, true)

	_, err = mapValues([]float32{1}, []int32{100}, []int32{200, 100})
	c.Check(errors.Is(err, errInvariant), check.Equals, true)
}

func (s *mapperSuite) TestMapValuesLengthMismatch(c *check.C) {
	_, err := mapValues([]float32{1, 0}, []int32{100}, []int32{100})
	c.Check(errors.Is(err, errInvariant), check.Equals, true)
}

func (s *mapperSuite) TestFilterByCoverage(c *check.C) {
	pos := []int32{10, 20, 30, 40}
	dense := [][]float32{
		{1, cpgNaN, 0, cpgNaN},
		{0, cpgNaN, 1, 1},
	}
	fpos, fdense := filterByCoverage(pos, dense, 2)
	c.Check(fpos, check.DeepEquals, []int32{10, 30})
	c.Check(fdense, check.DeepEquals, [][]float32{{1, 0}, {0, 1}})

	// every retained position has >= minCov observed values, every
	// dropped one fewer
	cov := siteCoverage(dense, len(pos))
	kept := map[int32]bool{}
	for _, p := range fpos {
		kept[p] = true
	}
	for i, p := range pos {
		c.Check(kept[p], check.Equals, cov[i] >= 2)
	}

	// minCov 1 keeps everything except fully-unobserved rows
	fpos, _ = filterByCoverage(pos, dense, 1)
	c.Check(fpos, check.DeepEquals, []int32{10, 30, 40})
}

func (s *mapperSuite) TestRoundValues(c *check.C) {
	c.Check(roundValues([]float32{0, 1, 0.3, 0.7, cpgNaN}), check.DeepEquals, []int8{0, 1, 0, 1, -1})
}
