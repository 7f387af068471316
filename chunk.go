package main

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/pgzip"
)

// DataChunk is one position-ordered, size-bounded slice of a
// chromosome's assembled training data. All arrays are co-indexed with
// Pos; matrices are flat row-major slices with explicit widths.
// Sentinels are -1 throughout.
type DataChunk struct {
	Chromosome string
	Start, End int // site index range within the chromosome (End exclusive)
	Pos        []int32
	Samples    []string

	// Methylation[s] is sample s's int8 state per position (0, 1, or -1).
	Methylation [][]int8
	// SiteStats[name] is a per-position statistic across samples.
	SiteStats map[string][]float32

	// DNA is len(Pos) x DNAWidth integer-coded sequence windows.
	DNA      []int8
	DNAWidth int

	// KnnStates[s] and KnnDists[s] are len(Pos) x KnnWidth neighbor
	// context arrays for sample s.
	KnnStates [][]float32
	KnnDists  [][]float32
	KnnWidth  int

	// WinStats[wlen][name] is a per-position statistic over the window
	// of full length wlen.
	WinStats map[int]map[string][]float32

	// Annotations[name] is a per-position 0/1 membership flag.
	Annotations map[string][]int8
}

func chunkFileName(chromo string, start, end int) string {
	return fmt.Sprintf("c%s_%06d-%06d.gob.gz", chromo, start, end)
}

func writeDataChunk(path string, chunk *DataChunk) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriterSize(f, 1<<20)
	gzw := pgzip.NewWriter(bufw)
	err = gob.NewEncoder(gzw).Encode(chunk)
	if err != nil {
		return fmt.Errorf("%s: gob encode: %w", path, err)
	}
	err = gzw.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	err = bufw.Flush()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func readDataChunk(path string) (*DataChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gzr, err := pgzip.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: gzip: %w", path, err)
	}
	defer gzr.Close()
	var chunk DataChunk
	err = gob.NewDecoder(gzr).Decode(&chunk)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: gob decode: %w", path, err)
	}
	return &chunk, nil
}

// listChunkFiles expands the given files and directories into a sorted
// list of chunk file paths.
func listChunkFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%s: stat failed: %w", path, err)
		}
		if !fi.IsDir() {
			files = append(files, path)
			continue
		}
		d, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		names, err := d.Readdirnames(0)
		d.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: readdir failed: %w", path, err)
		}
		for _, name := range names {
			if strings.HasPrefix(name, "c") && strings.HasSuffix(name, ".gob.gz") {
				files = append(files, filepath.Join(path, name))
			}
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no chunk files found in %v", paths)
	}
	return files, nil
}

// verify checks the co-indexing contract before a chunk is written.
func (chunk *DataChunk) verify() error {
	n := len(chunk.Pos)
	for s, col := range chunk.Methylation {
		if len(col) != n {
			return fmt.Errorf("%w: sample %s methylation has %d entries for %d positions", errInvariant, chunk.Samples[s], len(col), n)
		}
	}
	for name, vals := range chunk.SiteStats {
		if len(vals) != n {
			return fmt.Errorf("%w: site statistic %s has %d entries for %d positions", errInvariant, name, len(vals), n)
		}
	}
	if chunk.DNAWidth > 0 && len(chunk.DNA) != n*chunk.DNAWidth {
		return fmt.Errorf("%w: DNA array has %d cells for %d x %d windows", errInvariant, len(chunk.DNA), n, chunk.DNAWidth)
	}
	for s := range chunk.KnnStates {
		if len(chunk.KnnStates[s]) != n*chunk.KnnWidth || len(chunk.KnnDists[s]) != n*chunk.KnnWidth {
			return fmt.Errorf("%w: sample %s neighbor context not co-indexed with %d positions", errInvariant, chunk.Samples[s], n)
		}
	}
	for wlen, stats := range chunk.WinStats {
		for name, vals := range stats {
			if len(vals) != n {
				return fmt.Errorf("%w: window statistic %s/%d has %d entries for %d positions", errInvariant, name, wlen, len(vals), n)
			}
		}
	}
	for name, flags := range chunk.Annotations {
		if len(flags) != n {
			return fmt.Errorf("%w: annotation %s has %d entries for %d positions", errInvariant, name, len(flags), n)
		}
	}
	return nil
}
