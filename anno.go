package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/pbenner/gonetics"
	log "github.com/sirupsen/logrus"
)

// annotation holds one BED file's intervals, overlap-merged, with
// chromosome labels normalized to match the position tables. The core
// only ever sees the int8 flag arrays derived from it.
type annotation struct {
	Name   string
	Ranges gonetics.GRanges
}

func readAnnotation(path string) (annotation, error) {
	rdr, err := openMaybeGzip(path)
	if err != nil {
		return annotation{}, err
	}
	defer rdr.Close()
	var seqnames []string
	var from, to []int
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return annotation{}, fmt.Errorf("%s line %d: expected BED3 columns, got %q", path, lineno, line)
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return annotation{}, fmt.Errorf("%s line %d: %w", path, lineno, err)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return annotation{}, fmt.Errorf("%s line %d: %w", path, lineno, err)
		}
		seqnames = append(seqnames, formatChromosome(fields[0]))
		from = append(from, start)
		to = append(to, end)
	}
	if err := scanner.Err(); err != nil {
		return annotation{}, fmt.Errorf("%s: %w", path, err)
	}
	ranges := gonetics.NewGRanges(seqnames, from, to, nil)
	return annotation{Name: sampleName(path), Ranges: ranges.Merge()}, nil
}

func readAnnotations(paths []string) ([]annotation, error) {
	var annos []annotation
	for _, path := range paths {
		log.Infof("reading annotation %s", path)
		anno, err := readAnnotation(path)
		if err != nil {
			return nil, err
		}
		annos = append(annos, anno)
	}
	return annos, nil
}

// flags returns, co-indexed with pos, 1 where the (1-based) position
// falls inside one of the annotation's intervals.
func (a annotation) flags(chromo string, pos []int32) []int8 {
	seqnames := make([]string, len(pos))
	from := make([]int, len(pos))
	to := make([]int, len(pos))
	for i, p := range pos {
		seqnames[i] = chromo
		from[i] = int(p) - 1
		to[i] = int(p)
	}
	query := gonetics.NewGRanges(seqnames, from, to, nil)
	flags := make([]int8, len(pos))
	queryIdx, _ := gonetics.FindOverlaps(query, a.Ranges)
	for _, qi := range queryIdx {
		flags[qi] = 1
	}
	return flags
}
