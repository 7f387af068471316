package main

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type winstatsSuite struct{}

var _ = check.Suite(&winstatsSuite{})

func checkNear(c *check.C, got float32, want float64) {
	if math.Abs(float64(got)-want) > 1e-6 {
		c.Errorf("got %v, want %v", got, want)
	}
}

func (s *winstatsSuite) TestComputeStat(c *check.C) {
	vals := []float64{1, 0, 1, 1}
	checkNear(c, computeStat("mean", vals), 0.75)
	c.Check(computeStat("mode", vals), check.Equals, float32(1))
	checkNear(c, computeStat("var", vals), 0.1875)
	c.Check(computeStat("cat_var", vals), check.Equals, float32(2))
	c.Check(computeStat("cat2_var", vals), check.Equals, float32(1))
	checkNear(c, computeStat("entropy", vals), -(0.75*math.Log(0.75) + 0.25*math.Log(0.25)))
	c.Check(computeStat("diff", vals), check.Equals, float32(1))
	c.Check(computeStat("cov", vals), check.Equals, float32(4))

	flat := []float64{1, 1, 1}
	c.Check(computeStat("var", flat), check.Equals, float32(0))
	c.Check(computeStat("cat_var", flat), check.Equals, float32(0))
	c.Check(computeStat("cat2_var", flat), check.Equals, float32(0))
	c.Check(computeStat("entropy", flat), check.Equals, float32(0))
	c.Check(computeStat("diff", flat), check.Equals, float32(0))
}

func (s *winstatsSuite) TestValidateStatNames(c *check.C) {
	c.Check(validateStatNames([]string{"mean", "cov"}), check.IsNil)
	c.Check(validateStatNames([]string{"median"}), check.ErrorMatches, `unknown statistic "median".*`)
}

func (s *winstatsSuite) TestSiteStats(c *check.C) {
	dense := [][]float32{
		{1, cpgNaN, 1},
		{0, cpgNaN, 1},
		{1, 1, cpgNaN},
	}
	stats := computeSiteStats(dense, 3, []string{"mean", "cov"}, 2)
	checkNear(c, stats["mean"][0], 2.0/3)
	c.Check(stats["cov"][0], check.Equals, float32(3))
	// only one sample covers position 1: below minimum coverage
	c.Check(stats["mean"][1], check.Equals, cpgNaN)
	c.Check(stats["cov"][1], check.Equals, cpgNaN)
	c.Check(stats["cov"][2], check.Equals, float32(2))
}

func (s *winstatsSuite) TestAggregateWindowStats(c *check.C) {
	contexts := []knnContext{{
		Sample: "a",
		States: []float32{1, 0},
		Dists:  []float32{300, 800},
		Width:  2,
	}}
	selfVals := [][]float32{{1}}
	out, err := aggregateWindowStats(1, contexts, selfVals, []int{1001, 2001}, []string{"mean", "cov"}, 1)
	c.Assert(err, check.IsNil)
	// radius 500: self value plus the neighbor at distance 300
	c.Check(out[1001]["cov"][0], check.Equals, float32(2))
	checkNear(c, out[1001]["mean"][0], 1)
	// radius 1000 adds the neighbor at distance 800
	c.Check(out[2001]["cov"][0], check.Equals, float32(3))
	checkNear(c, out[2001]["mean"][0], 2.0/3)
}

func (s *winstatsSuite) TestCoverageMonotonicity(c *check.C) {
	contexts := []knnContext{{
		Sample: "a",
		States: []float32{1, 0, 1, cpgNaN},
		Dists:  []float32{10, 400, 900, cpgNaN},
		Width:  4,
	}}
	selfVals := [][]float32{{cpgNaN}}
	wlens := []int{101, 1001, 2001, 5001}
	out, err := aggregateWindowStats(1, contexts, selfVals, wlens, []string{"cov"}, 1)
	c.Assert(err, check.IsNil)
	prev := float32(0)
	for _, wlen := range wlens {
		cov := out[wlen]["cov"][0]
		if cov < prev {
			c.Errorf("coverage shrank from %v to %v at window %d", prev, cov, wlen)
		}
		prev = cov
	}
	c.Check(out[101]["cov"][0], check.Equals, float32(1))
	c.Check(out[5001]["cov"][0], check.Equals, float32(3))
}

func (s *winstatsSuite) TestMinCoverageMask(c *check.C) {
	contexts := []knnContext{{
		Sample: "a",
		States: []float32{1, cpgNaN},
		Dists:  []float32{300, cpgNaN},
		Width:  2,
	}}
	selfVals := [][]float32{{cpgNaN}}
	out, err := aggregateWindowStats(1, contexts, selfVals, []int{1001}, []string{"mean", "cov"}, 2)
	c.Assert(err, check.IsNil)
	c.Check(out[1001]["mean"][0], check.Equals, cpgNaN)
	c.Check(out[1001]["cov"][0], check.Equals, cpgNaN)
}

func (s *winstatsSuite) TestAggregateInvariant(c *check.C) {
	contexts := []knnContext{{Sample: "a", States: []float32{1}, Dists: []float32{10}, Width: 2}}
	_, err := aggregateWindowStats(1, contexts, [][]float32{{1}}, []int{1001}, []string{"mean"}, 1)
	c.Check(errors.Is(err, errInvariant), check.Equals, true)

	_, err = aggregateWindowStats(1, nil, [][]float32{{1}}, []int{1001}, []string{"mean"}, 1)
	c.Check(errors.Is(err, errInvariant), check.Equals, true)
}
