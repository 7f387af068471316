package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// cpgProfile holds one sample's sparse methylation calls, per
// chromosome, sorted by position. Positions absent from a profile are
// unknown, never zero.
type cpgProfile struct {
	Name    string
	Chromos map[string]*profileChromo
}

type profileChromo struct {
	Pos    []int32
	Values []float32
}

// sampleName strips the directory and everything from the first dot, so
// "cpg/BS27_1_SER.tsv.gz" becomes "BS27_1_SER".
func sampleName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: gzip: %w", path, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{gz, f}, nil
}

// readCpGProfile parses a methylation profile in 3-column TSV format
// (chromosome, 1-based position, value) or bedGraph format (chromosome,
// 0-based start, end, value). Values on a 0..100 scale are normalized
// to 0..1. Positions are sorted and duplicates dropped.
func readCpGProfile(path string) (*cpgProfile, error) {
	rdr, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	prof := &cpgProfile{Name: sampleName(path), Chromos: map[string]*profileChromo{}}
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	lineno := 0
	maxValue := float32(0)
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%s line %d: expected at least 3 columns, got %d", path, lineno, len(fields))
		}
		chromo := formatChromosome(fields[0])
		poscol, valcol := 1, 2
		if len(fields) >= 4 {
			// bedGraph: chromo, start, end, value
			valcol = 3
		}
		pos64, err := strconv.ParseInt(fields[poscol], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineno, err)
		}
		pos := int32(pos64)
		if valcol == 3 {
			// bedGraph starts are 0-based
			pos++
		}
		val64, err := strconv.ParseFloat(fields[valcol], 32)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineno, err)
		}
		val := float32(val64)
		if val > maxValue {
			maxValue = val
		}
		cp := prof.Chromos[chromo]
		if cp == nil {
			cp = &profileChromo{}
			prof.Chromos[chromo] = cp
		}
		cp.Pos = append(cp.Pos, pos)
		cp.Values = append(cp.Values, val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if maxValue > 1 {
		// percent scale
		for _, cp := range prof.Chromos {
			for i := range cp.Values {
				cp.Values[i] /= 100
			}
		}
	}
	dropped := 0
	for chromo, cp := range prof.Chromos {
		cp.sort()
		dropped += cp.dedup()
		for _, v := range cp.Values {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("%s: chromosome %s has methylation value %v outside [0,1]", path, chromo, v)
			}
		}
	}
	if dropped > 0 {
		log.Warnf("%s: dropped %d duplicate positions", path, dropped)
	}
	return prof, nil
}

func (cp *profileChromo) sort() {
	order := make([]int, len(cp.Pos))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return cp.Pos[order[i]] < cp.Pos[order[j]] })
	pos := make([]int32, len(cp.Pos))
	values := make([]float32, len(cp.Values))
	for i, j := range order {
		pos[i] = cp.Pos[j]
		values[i] = cp.Values[j]
	}
	cp.Pos, cp.Values = pos, values
}

// dedup removes repeated positions (first occurrence wins) and returns
// the number dropped. Pos must already be sorted.
func (cp *profileChromo) dedup() int {
	j := 0
	for i := range cp.Pos {
		if i > 0 && cp.Pos[i] == cp.Pos[j-1] {
			continue
		}
		cp.Pos[j] = cp.Pos[i]
		cp.Values[j] = cp.Values[i]
		j++
	}
	dropped := len(cp.Pos) - j
	cp.Pos = cp.Pos[:j]
	cp.Values = cp.Values[:j]
	return dropped
}

// readCpGProfiles loads all given profile files, in argument order.
func readCpGProfiles(paths []string) ([]*cpgProfile, error) {
	var profiles []*cpgProfile
	seen := map[string]bool{}
	for _, path := range paths {
		log.Infof("reading profile %s", path)
		prof, err := readCpGProfile(path)
		if err != nil {
			return nil, err
		}
		if seen[prof.Name] {
			return nil, fmt.Errorf("%s: duplicate sample name %q", path, prof.Name)
		}
		seen[prof.Name] = true
		profiles = append(profiles, prof)
	}
	return profiles, nil
}

// positionsFromProfiles builds the union position table from the
// profiles' own covered sites.
func positionsFromProfiles(profiles []*cpgProfile) (positionTable, error) {
	tables := make([]positionTable, 0, len(profiles))
	for _, prof := range profiles {
		table := positionTable{}
		for chromo, cp := range prof.Chromos {
			table[chromo] = cp.Pos
		}
		tables = append(tables, table)
	}
	return mergePositionTables(tables...)
}
