package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
)

// statsCommand summarizes a directory of chunk files: how many sites
// were emitted per chromosome, how well the samples cover them, and
// each sample's mean methylation rate over observed sites.
type statsCommand struct{}

func (cmd *statsCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputDir := flags.String("input-dir", ".", "input `directory` with chunk files")
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
	bufw := bufio.NewWriter(output)
	err = cmd.doStats(*inputDir, bufw)
	if err != nil {
		return 1
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

func (cmd *statsCommand) doStats(inputDir string, output io.Writer) error {
	var ret struct {
		Chunks            int
		Sites             int
		SitesPerChromo    map[string]int
		CoverageHistogram []int // a[x]==y means y sites were observed in exactly x samples
		ObservedPerSample map[string]int
		MeanRatePerSample map[string]float64
	}
	ret.SitesPerChromo = map[string]int{}
	ret.ObservedPerSample = map[string]int{}
	ret.MeanRatePerSample = map[string]float64{}
	methylatedPerSample := map[string]int{}

	files, err := listChunkFiles([]string{inputDir})
	if err != nil {
		return err
	}
	for _, file := range files {
		chunk, err := readDataChunk(file)
		if err != nil {
			return err
		}
		ret.Chunks++
		ret.Sites += len(chunk.Pos)
		ret.SitesPerChromo[chunk.Chromosome] += len(chunk.Pos)
		for len(ret.CoverageHistogram) <= len(chunk.Samples) {
			ret.CoverageHistogram = append(ret.CoverageHistogram, 0)
		}
		for i := range chunk.Pos {
			cov := 0
			for s, name := range chunk.Samples {
				state := chunk.Methylation[s][i]
				if state < 0 {
					continue
				}
				cov++
				ret.ObservedPerSample[name]++
				if state > 0 {
					methylatedPerSample[name]++
				}
			}
			ret.CoverageHistogram[cov]++
		}
	}
	for name, observed := range ret.ObservedPerSample {
		if observed > 0 {
			ret.MeanRatePerSample[name] = float64(methylatedPerSample[name]) / float64(observed)
		}
	}
	return json.NewEncoder(output).Encode(ret)
}
