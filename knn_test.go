package main

import (
	"gopkg.in/check.v1"
)

type knnSuite struct{}

var _ = check.Suite(&knnSuite{})

func (s *knnSuite) TestNearestNeighbors(c *check.C) {
	states, dists := extractKnnContext(
		[]int32{30},
		[]int32{10, 20, 40, 80},
		[]float32{1, 0, 1, 0},
		2,
	)
	// per side, nearest first
	c.Check(states, check.DeepEquals, []float32{0, 1, 1, 0})
	c.Check(dists, check.DeepEquals, []float32{10, 20, 10, 50})
}

func (s *knnSuite) TestSelfExcluded(c *check.C) {
	states, dists := extractKnnContext(
		[]int32{40},
		[]int32{10, 20, 40, 80},
		[]float32{1, 0, 1, 0},
		2,
	)
	c.Check(states, check.DeepEquals, []float32{0, 1, 0, -1})
	c.Check(dists, check.DeepEquals, []float32{20, 30, 40, -1})
}

func (s *knnSuite) TestEdgeSentinels(c *check.C) {
	states, dists := extractKnnContext(
		[]int32{5, 100},
		[]int32{10, 20},
		[]float32{1, 0},
		2,
	)
	// before the first covered site: no left neighbors at all
	c.Check(states[:4], check.DeepEquals, []float32{-1, -1, 1, 0})
	c.Check(dists[:4], check.DeepEquals, []float32{-1, -1, 5, 15})
	// past the last covered site: no right neighbors
	c.Check(states[4:], check.DeepEquals, []float32{0, 1, -1, -1})
	c.Check(dists[4:], check.DeepEquals, []float32{80, 90, -1, -1})
}

func (s *knnSuite) TestEmptyProfile(c *check.C) {
	states, dists := extractKnnContext([]int32{10, 20}, nil, nil, 1)
	c.Check(states, check.DeepEquals, []float32{-1, -1, -1, -1})
	c.Check(dists, check.DeepEquals, []float32{-1, -1, -1, -1})
}

func (s *knnSuite) TestDistancePositivity(c *check.C) {
	src := []int32{3, 21, 45, 60, 91}
	vals := []float32{1, 0, 1, 1, 0}
	states, dists := extractKnnContext(src, src, vals, 3)
	for i, d := range dists {
		if d != cpgNaN {
			if d <= 0 {
				c.Errorf("distance %v at index %d not strictly positive", d, i)
			}
			if states[i] == cpgNaN {
				c.Errorf("valid distance %v at index %d with sentinel state", d, i)
			}
		}
	}
}
