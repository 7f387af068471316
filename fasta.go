package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// findChromosomeFasta locates the FASTA file for a chromosome among the
// given files and directories. Files are expected to be named
// "*.chromosome.<chromo>.fa" or "<chromo>.fa", optionally ".gz".
func findChromosomeFasta(paths []string, chromo string) (string, error) {
	var candidates []string
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("%s: stat failed: %w", path, err)
		}
		if !fi.IsDir() {
			candidates = append(candidates, path)
			continue
		}
		d, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("%s: open failed: %w", path, err)
		}
		names, err := d.Readdirnames(0)
		d.Close()
		if err != nil {
			return "", fmt.Errorf("%s: readdir failed: %w", path, err)
		}
		sort.Strings(names)
		for _, name := range names {
			candidates = append(candidates, filepath.Join(path, name))
		}
	}
	for _, path := range candidates {
		name := strings.ToUpper(filepath.Base(path))
		trimmed := strings.TrimSuffix(strings.TrimSuffix(name, ".GZ"), ".FASTA")
		trimmed = strings.TrimSuffix(trimmed, ".FA")
		if strings.HasSuffix(trimmed, ".CHROMOSOME."+chromo) || trimmed == chromo || trimmed == "CHR"+chromo {
			return path, nil
		}
	}
	return "", fmt.Errorf("no FASTA file found for chromosome %s", chromo)
}

// readChromosomeSequence returns the upper-cased nucleotide string of
// the first record in the chromosome's FASTA file.
func readChromosomeSequence(paths []string, chromo string) (string, error) {
	path, err := findChromosomeFasta(paths, chromo)
	if err != nil {
		return "", err
	}
	log.Infof("chromosome %s: reading %s", chromo, path)
	rdr, err := openMaybeGzip(path)
	if err != nil {
		return "", err
	}
	defer rdr.Close()
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 1<<20), 1<<28)
	var seq []byte
	inRecord := false
	for scanner.Scan() {
		buf := scanner.Bytes()
		if len(buf) > 0 && buf[0] == '>' {
			if inRecord {
				break
			}
			inRecord = true
			continue
		}
		if !inRecord {
			return "", fmt.Errorf("%s: not a FASTA file", path)
		}
		seq = append(seq, bytes.ToUpper(buf)...)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if len(seq) == 0 {
		return "", fmt.Errorf("%s: empty sequence", path)
	}
	return string(seq), nil
}
