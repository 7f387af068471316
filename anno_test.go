package main

import (
	"os"

	"gopkg.in/check.v1"
)

type annoSuite struct{}

var _ = check.Suite(&annoSuite{})

func (s *annoSuite) TestAnnotationFlags(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/cgi.bed", []byte(
		"track name=cgi\n"+
			"chr1\t0\t50\n"+
			"chr1\t40\t70\n"+ // overlaps previous interval
			"chr2\t10\t20\n"), 0644)
	c.Assert(err, check.IsNil)

	annos, err := readAnnotations([]string{tmpdir + "/cgi.bed"})
	c.Assert(err, check.IsNil)
	c.Assert(annos, check.HasLen, 1)
	c.Check(annos[0].Name, check.Equals, "cgi")

	flags := annos[0].flags("1", []int32{3, 50, 70, 71, 100})
	c.Check(flags, check.DeepEquals, []int8{1, 1, 1, 0, 0})

	flags = annos[0].flags("2", []int32{11, 25})
	c.Check(flags, check.DeepEquals, []int8{1, 0})

	flags = annos[0].flags("3", []int32{15})
	c.Check(flags, check.DeepEquals, []int8{0})
}

func (s *annoSuite) TestBadBed(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/bad.bed", []byte("chr1\t10\n"), 0644)
	c.Assert(err, check.IsNil)
	_, err = readAnnotations([]string{tmpdir + "/bad.bed"})
	c.Check(err, check.ErrorMatches, `.*expected BED3 columns.*`)
}
