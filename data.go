package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// dataCommand assembles training-ready chunk files from sparse
// methylation profiles and genomic sequence.
type dataCommand struct {
	posFile        string
	dnaFiles       string
	dnaWlen        int
	cpgWlen        int
	cpgCov         int
	siteStats      string
	siteStatsCov   int
	winStats       string
	winStatsWlen   string
	winStatsCov    int
	annoFiles      string
	chromosomes    string
	maxSites       int
	maxSitesChromo int
	chunkSize      int
	seed           int64
	outDir         string
	maxWorkers     int

	siteStatNames []string
	winStatNames  []string
	winWlens      []int
}

func (cmd *dataCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cmd.posFile, "pos-file", "", "`file` with target positions, overriding the union of profile positions")
	flags.StringVar(&cmd.dnaFiles, "dna", "", "comma-separated FASTA `files or directories` named *.chromosome.<chromo>.fa*")
	flags.IntVar(&cmd.dnaWlen, "dna-wlen", 1001, "DNA sequence window `length` (odd)")
	flags.IntVar(&cmd.cpgWlen, "cpg-wlen", 0, "neighbor context `width`: extract cpg-wlen/2 neighboring CpG sites per side (even; 0 disables)")
	flags.IntVar(&cmd.cpgCov, "cpg-cov", 1, "`minimum` number of samples covering a site")
	flags.StringVar(&cmd.siteStats, "cpg-stats", "", "comma-separated per-CpG `statistics` across samples")
	flags.IntVar(&cmd.siteStatsCov, "cpg-stats-cov", 3, "`minimum` coverage for computing per-CpG statistics")
	flags.StringVar(&cmd.winStats, "win-stats", "", "comma-separated window-based `statistics`")
	flags.StringVar(&cmd.winStatsWlen, "win-stats-wlen", "1001,2001,3001,4001,5001", "window `lengths` for computing statistics")
	flags.IntVar(&cmd.winStatsCov, "win-stats-cov", 1, "`minimum` number of contributors for computing window statistics")
	flags.StringVar(&cmd.annoFiles, "anno", "", "comma-separated BED `files` with genomic annotations")
	flags.StringVar(&cmd.chromosomes, "chromosomes", "", "comma-separated `chromosomes` to process (default: all)")
	flags.IntVar(&cmd.maxSites, "max-sites", 0, "`maximum` total number of sites (0 = no limit)")
	flags.IntVar(&cmd.maxSitesChromo, "max-sites-chromo", 0, "`number` of random sites per chromosome (0 = no limit)")
	flags.IntVar(&cmd.chunkSize, "chunk-size", 32768, "maximum `number` of sites per output chunk")
	flags.Int64Var(&cmd.seed, "seed", 0, "random `seed` for base imputation and site sampling")
	flags.StringVar(&cmd.outDir, "o", ".", "output `directory`")
	flags.IntVar(&cmd.maxWorkers, "max-workers", runtime.NumCPU(), "`number` of chromosomes to process concurrently")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
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
	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	err = cmd.checkConfig(flags.Args())
	if err != nil {
		return 2
	}
	err = cmd.run(flags.Args())
	if err != nil {
		return 1
	}
	return 0
}

// checkConfig reports configuration errors before any processing
// begins.
func (cmd *dataCommand) checkConfig(profileFiles []string) error {
	if len(profileFiles) == 0 && (cmd.posFile == "" || cmd.dnaFiles == "") {
		return errors.New("no profile files given: need both -pos-file and -dna")
	}
	if cmd.dnaFiles != "" && cmd.dnaWlen%2 == 0 {
		return fmt.Errorf("-dna-wlen %d must be odd", cmd.dnaWlen)
	}
	if cmd.cpgWlen%2 != 0 {
		return fmt.Errorf("-cpg-wlen %d must be even", cmd.cpgWlen)
	}
	if cmd.chunkSize < 1 {
		return fmt.Errorf("-chunk-size %d must be positive", cmd.chunkSize)
	}
	cmd.siteStatNames = splitList(cmd.siteStats)
	cmd.winStatNames = splitList(cmd.winStats)
	if err := validateStatNames(cmd.siteStatNames); err != nil {
		return err
	}
	if err := validateStatNames(cmd.winStatNames); err != nil {
		return err
	}
	if len(cmd.winStatNames) > 0 && cmd.cpgWlen == 0 {
		return errors.New("-win-stats requires -cpg-wlen")
	}
	var err error
	cmd.winWlens, err = splitIntList(cmd.winStatsWlen)
	if err != nil {
		return fmt.Errorf("-win-stats-wlen: %w", err)
	}
	return nil
}

func (cmd *dataCommand) run(profileFiles []string) error {
	err := os.MkdirAll(cmd.outDir, 0777)
	if err != nil {
		return err
	}

	profiles, err := readCpGProfiles(profileFiles)
	if err != nil {
		return err
	}

	var posTable positionTable
	if cmd.posFile != "" {
		log.Infof("reading position table %s", cmd.posFile)
		rdr, err := openMaybeGzip(cmd.posFile)
		if err != nil {
			return err
		}
		posTable, err = readPositionFile(rdr)
		rdr.Close()
		if err != nil {
			return err
		}
	} else {
		posTable, err = positionsFromProfiles(profiles)
		if err != nil {
			return err
		}
	}
	posTable = restrictPositions(posTable, splitList(cmd.chromosomes), cmd.maxSitesChromo, cmd.maxSites, cmd.seed)

	annos, err := readAnnotations(splitList(cmd.annoFiles))
	if err != nil {
		return err
	}

	throttle := throttle{Max: cmd.maxWorkers}
	for _, chromo := range sortedChromosomes(posTable) {
		chromo, chromoPos := chromo, posTable[chromo]
		throttle.Acquire()
		go func() {
			defer throttle.Release()
			throttle.Report(cmd.processChromosome(chromo, chromoPos, profiles, annos))
		}()
	}
	err = throttle.Wait()
	if err != nil {
		return err
	}
	log.Info("done")
	return nil
}

func (cmd *dataCommand) processChromosome(chromo string, chromoPos []int32, profiles []*cpgProfile, annos []annotation) error {
	log.Infof("chromosome %s: %d sites", chromo, len(chromoPos))
	rng := rand.New(rand.NewSource(chromosomeSeed(cmd.seed, chromo)))

	dense, err := mapProfiles(profiles, chromo, chromoPos)
	if err != nil {
		return err
	}
	if len(profiles) > 0 && cmd.cpgCov > 0 {
		before := len(chromoPos)
		chromoPos, dense = filterByCoverage(chromoPos, dense, cmd.cpgCov)
		log.Infof("chromosome %s: %d / %d (%.1f%%) sites matched minimum coverage filter", chromo, len(chromoPos), before, float64(len(chromoPos))/float64(before)*100)
		if len(chromoPos) == 0 {
			log.Warnf("chromosome %s: no sites left after coverage filter, skipping", chromo)
			return nil
		}
	}

	var seq string
	if cmd.dnaFiles != "" {
		seq, err = readChromosomeSequence(splitList(cmd.dnaFiles), chromo)
		if err != nil {
			return err
		}
	}

	annoFlags := map[string][]int8{}
	for _, anno := range annos {
		annoFlags[anno.Name] = anno.flags(chromo, chromoPos)
	}

	nchunks := (len(chromoPos) + cmd.chunkSize - 1) / cmd.chunkSize
	for chunk := 0; chunk < nchunks; chunk++ {
		start := chunk * cmd.chunkSize
		end := start + cmd.chunkSize
		if end > len(chromoPos) {
			end = len(chromoPos)
		}
		log.Infof("chromosome %s: chunk %d / %d", chromo, chunk+1, nchunks)
		err = cmd.writeChunk(chromo, chromoPos, dense, seq, annoFlags, profiles, start, end, rng)
		if err != nil {
			return fmt.Errorf("chromosome %s: %w", chromo, err)
		}
	}
	return nil
}

func (cmd *dataCommand) writeChunk(chromo string, chromoPos []int32, dense [][]float32, seq string, annoFlags map[string][]int8, profiles []*cpgProfile, start, end int, rng *rand.Rand) error {
	chunkPos := chromoPos[start:end]
	n := len(chunkPos)
	chunk := &DataChunk{
		Chromosome: chromo,
		Start:      start,
		End:        end,
		Pos:        chunkPos,
	}

	chunkVals := make([][]float32, len(profiles))
	for s, prof := range profiles {
		chunk.Samples = append(chunk.Samples, prof.Name)
		chunkVals[s] = dense[s][start:end]
		chunk.Methylation = append(chunk.Methylation, roundValues(chunkVals[s]))
	}
	if len(cmd.siteStatNames) > 0 {
		chunk.SiteStats = computeSiteStats(chunkVals, n, cmd.siteStatNames, cmd.siteStatsCov)
	}

	if seq != "" {
		dna, err := extractSeqWindows(seq, chunkPos, cmd.dnaWlen, 1, false, rng)
		if err != nil {
			return err
		}
		chunk.DNA = dna
		chunk.DNAWidth = cmd.dnaWlen
	}

	var contexts []knnContext
	if cmd.cpgWlen > 0 {
		k := cmd.cpgWlen / 2
		chunk.KnnWidth = cmd.cpgWlen
		for _, prof := range profiles {
			// Neighbors are looked up in the whole chromosome's
			// profile: context sites for positions near the chunk
			// boundary can lie in other chunks.
			cp := prof.Chromos[chromo]
			var states, dists []float32
			if cp == nil {
				states, dists = extractKnnContext(chunkPos, nil, nil, k)
			} else {
				states, dists = extractKnnContext(chunkPos, cp.Pos, cp.Values, k)
			}
			contexts = append(contexts, knnContext{Sample: prof.Name, States: states, Dists: dists, Width: cmd.cpgWlen})
			chunk.KnnStates = append(chunk.KnnStates, states)
			chunk.KnnDists = append(chunk.KnnDists, dists)
		}
	}

	if len(cmd.winStatNames) > 0 {
		winStats, err := aggregateWindowStats(n, contexts, chunkVals, cmd.winWlens, cmd.winStatNames, cmd.winStatsCov)
		if err != nil {
			return err
		}
		chunk.WinStats = winStats
	}

	for name, flags := range annoFlags {
		if chunk.Annotations == nil {
			chunk.Annotations = map[string][]int8{}
		}
		chunk.Annotations[name] = flags[start:end]
	}

	err := chunk.verify()
	if err != nil {
		return err
	}
	return writeDataChunk(filepath.Join(cmd.outDir, chunkFileName(chromo, start, end)), chunk)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitIntList(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
