package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// exportNumpy converts chunk files to .npy arrays, one file per
// dataset, for consumption by Python training code. Integer-valued
// statistics are written as int8, the rest as float32.
type exportNumpy struct {
	inputDir  string
	outputDir string
}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cmd.inputDir, "input-dir", ".", "input `directory` with chunk files")
	flags.StringVar(&cmd.outputDir, "output-dir", ".", "output `directory`")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	err = os.MkdirAll(cmd.outputDir, 0777)
	if err != nil {
		return 1
	}
	files, err := listChunkFiles([]string{cmd.inputDir})
	if err != nil {
		return 1
	}
	for _, file := range files {
		err = cmd.exportChunk(file)
		if err != nil {
			return 1
		}
	}
	return 0
}

func (cmd *exportNumpy) exportChunk(path string) error {
	log.Infof("exporting %s", path)
	chunk, err := readDataChunk(path)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), ".gob.gz")
	n := len(chunk.Pos)

	out := func(parts ...string) string {
		return filepath.Join(cmd.outputDir, base+"."+strings.Join(parts, ".")+".npy")
	}
	err = writeNpy(out("pos"), []int{n}, func(npw *gonpy.NpyWriter) error {
		return npw.WriteInt32(chunk.Pos)
	})
	if err != nil {
		return err
	}
	for s, name := range chunk.Samples {
		col := chunk.Methylation[s]
		err = writeNpy(out("cpg", name), []int{n}, func(npw *gonpy.NpyWriter) error {
			return npw.WriteInt8(col)
		})
		if err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(chunk.SiteStats) {
		err = writeStatNpy(out("cpg_stats", name), name, []int{n}, chunk.SiteStats[name])
		if err != nil {
			return err
		}
	}
	if chunk.DNAWidth > 0 {
		err = writeNpy(out("dna"), []int{n, chunk.DNAWidth}, func(npw *gonpy.NpyWriter) error {
			return npw.WriteInt8(chunk.DNA)
		})
		if err != nil {
			return err
		}
	}
	for s, name := range chunk.Samples {
		if chunk.KnnWidth == 0 {
			break
		}
		states, dists := chunk.KnnStates[s], chunk.KnnDists[s]
		err = writeNpy(out("knn_state", name), []int{n, chunk.KnnWidth}, func(npw *gonpy.NpyWriter) error {
			return npw.WriteFloat32(states)
		})
		if err != nil {
			return err
		}
		err = writeNpy(out("knn_dist", name), []int{n, chunk.KnnWidth}, func(npw *gonpy.NpyWriter) error {
			return npw.WriteFloat32(dists)
		})
		if err != nil {
			return err
		}
	}
	wlens := make([]int, 0, len(chunk.WinStats))
	for wlen := range chunk.WinStats {
		wlens = append(wlens, wlen)
	}
	sort.Ints(wlens)
	for _, wlen := range wlens {
		for _, name := range sortedKeys(chunk.WinStats[wlen]) {
			err = writeStatNpy(out("win_stats", fmt.Sprint(wlen), name), name, []int{n}, chunk.WinStats[wlen][name])
			if err != nil {
				return err
			}
		}
	}
	for _, name := range sortedKeys(chunk.Annotations) {
		flags := chunk.Annotations[name]
		err = writeNpy(out("anno", name), []int{n}, func(npw *gonpy.NpyWriter) error {
			return npw.WriteInt8(flags)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeNpy(path string, shape []int, write func(*gonpy.NpyWriter) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("%s: gonpy.NewWriter: %w", path, err)
	}
	npw.Shape = shape
	err = write(npw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return f.Close()
}

// writeStatNpy writes a statistic array with the dtype its name calls
// for.
func writeStatNpy(path, name string, shape []int, vals []float32) error {
	return writeNpy(path, shape, func(npw *gonpy.NpyWriter) error {
		if !intStats[name] {
			return npw.WriteFloat32(vals)
		}
		ints := make([]int8, len(vals))
		for i, v := range vals {
			ints[i] = int8(v)
		}
		return npw.WriteInt8(ints)
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
