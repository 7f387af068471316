package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// positionTable maps a chromosome label to its sorted, deduplicated
// 1-based CpG coordinates. This is the canonical iteration order for
// every downstream array.
type positionTable map[string][]int32

// formatChromosome normalizes chromosome labels so that "chr1", "Chr1"
// and "1" all refer to the same table entry.
func formatChromosome(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	return strings.TrimPrefix(label, "CHR")
}

func validatePositions(chromo string, pos []int32) error {
	if formatChromosome(chromo) == "" {
		return fmt.Errorf("empty chromosome label in position table")
	}
	for _, p := range pos {
		if p < 0 {
			return fmt.Errorf("chromosome %s: negative position %d", chromo, p)
		}
	}
	return nil
}

// mergePositionTables takes the per-chromosome union of all input
// tables, sorted ascending with duplicates removed. Input order is
// irrelevant.
func mergePositionTables(tables ...positionTable) (positionTable, error) {
	merged := positionTable{}
	for _, table := range tables {
		for chromo, pos := range table {
			if err := validatePositions(chromo, pos); err != nil {
				return nil, err
			}
			merged[formatChromosome(chromo)] = append(merged[formatChromosome(chromo)], pos...)
		}
	}
	for chromo, pos := range merged {
		sort.Slice(pos, func(i, j int) bool { return pos[i] < pos[j] })
		uniq := pos[:0]
		for i, p := range pos {
			if i == 0 || p != pos[i-1] {
				uniq = append(uniq, p)
			}
		}
		merged[chromo] = uniq
	}
	return merged, nil
}

// readPositionFile reads explicit (chromosome, position) pairs, one per
// line, overriding the union-from-profiles table.
func readPositionFile(rdr io.Reader) (positionTable, error) {
	table := positionTable{}
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("position file line %d: expected chromosome and position, got %q", lineno, line)
		}
		pos, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("position file line %d: %w", lineno, err)
		}
		chromo := formatChromosome(fields[0])
		table[chromo] = append(table[chromo], int32(pos))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mergePositionTables(table)
}

// chromosomeSeed derives a stable per-chromosome RNG seed so results do
// not depend on the order in which chromosomes are processed.
func chromosomeSeed(seed int64, chromo string) int64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	sum := blake2b.Sum256(append(buf[:], chromo...))
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

// samplePositions picks n random positions, keeping sorted order. Used
// for the per-chromosome site limit.
func samplePositions(pos []int32, n int, rng *rand.Rand) []int32 {
	if n <= 0 || n >= len(pos) {
		return pos
	}
	idx := rng.Perm(len(pos))[:n]
	sort.Ints(idx)
	sampled := make([]int32, n)
	for i, j := range idx {
		sampled[i] = pos[j]
	}
	return sampled
}

// sortedChromosomes returns the table's chromosome labels, numeric
// labels first in numeric order, then the rest lexicographically.
func sortedChromosomes(table positionTable) []string {
	chromos := make([]string, 0, len(table))
	for chromo := range table {
		chromos = append(chromos, chromo)
	}
	sort.Slice(chromos, func(i, j int) bool {
		ni, erri := strconv.Atoi(chromos[i])
		nj, errj := strconv.Atoi(chromos[j])
		switch {
		case erri == nil && errj == nil:
			return ni < nj
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return chromos[i] < chromos[j]
		}
	})
	return chromos
}

func countPositions(table positionTable) int {
	n := 0
	for _, pos := range table {
		n += len(pos)
	}
	return n
}

// restrictPositions applies the -chromosomes, -max-sites-chromo and
// -max-sites limits. Sampling is seeded per chromosome so the outcome
// is independent of processing order.
func restrictPositions(table positionTable, chromos []string, maxSitesChromo, maxSites int, seed int64) positionTable {
	if len(chromos) > 0 {
		keep := map[string]bool{}
		for _, chromo := range chromos {
			keep[formatChromosome(chromo)] = true
		}
		for chromo := range table {
			if !keep[chromo] {
				delete(table, chromo)
			}
		}
	}
	if maxSitesChromo > 0 {
		for chromo, pos := range table {
			rng := rand.New(rand.NewSource(chromosomeSeed(seed, chromo)))
			table[chromo] = samplePositions(pos, maxSitesChromo, rng)
		}
	}
	if maxSites > 0 {
		remain := maxSites
		for _, chromo := range sortedChromosomes(table) {
			pos := table[chromo]
			if remain <= 0 {
				delete(table, chromo)
				continue
			}
			if len(pos) > remain {
				table[chromo] = pos[:remain]
			}
			remain -= len(table[chromo])
		}
	}
	log.Infof("%d sites selected", countPositions(table))
	return table
}
