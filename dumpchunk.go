package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// dumpChunk prints a plain-text rendering of chunk files for manual
// inspection.
type dumpChunk struct{}

func (cmd *dumpChunk) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	outputFilename := flags.String("o", "-", "output `file`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriterSize(output, 8*1024*1024)

	files, err := listChunkFiles(flags.Args())
	if err != nil {
		return 1
	}
	for _, file := range files {
		var chunk *DataChunk
		chunk, err = readDataChunk(file)
		if err != nil {
			return 1
		}
		cmd.dump(bufw, file, chunk)
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func (cmd *dumpChunk) dump(out io.Writer, file string, chunk *DataChunk) {
	fmt.Fprintf(out, "%s: chromosome %s, sites %d-%d\n", file, chunk.Chromosome, chunk.Start, chunk.End)
	for i, p := range chunk.Pos {
		fmt.Fprintf(out, "site %d: pos %d", chunk.Start+i, p)
		for s, name := range chunk.Samples {
			fmt.Fprintf(out, ", %s %d", name, chunk.Methylation[s][i])
		}
		for _, name := range sortedKeys(chunk.SiteStats) {
			fmt.Fprintf(out, ", %s %v", name, chunk.SiteStats[name][i])
		}
		wlens := make([]int, 0, len(chunk.WinStats))
		for wlen := range chunk.WinStats {
			wlens = append(wlens, wlen)
		}
		sort.Ints(wlens)
		for _, wlen := range wlens {
			for _, name := range sortedKeys(chunk.WinStats[wlen]) {
				fmt.Fprintf(out, ", %s/%d %v", name, wlen, chunk.WinStats[wlen][name][i])
			}
		}
		for _, name := range sortedKeys(chunk.Annotations) {
			fmt.Fprintf(out, ", %s %d", name, chunk.Annotations[name][i])
		}
		if chunk.DNAWidth > 0 {
			win := chunk.DNA[i*chunk.DNAWidth : (i+1)*chunk.DNAWidth]
			fmt.Fprintf(out, ", dna %s", decodeBases(win))
		}
		fmt.Fprintln(out)
	}
}

func decodeBases(codes []int8) string {
	buf := make([]byte, len(codes))
	for i, code := range codes {
		switch code {
		case baseA:
			buf[i] = 'A'
		case baseT:
			buf[i] = 'T'
		case baseG:
			buf[i] = 'G'
		case baseC:
			buf[i] = 'C'
		default:
			buf[i] = 'N'
		}
	}
	return string(buf)
}
