package main

import (
	"log"
	"os"

	"github.com/spf13/pflag"
	"github.com/user-none/opnfm/cli"
	"github.com/user-none/opnfm/fm"
)

func main() {
	logger := log.New(os.Stderr, "opnfm: ", log.Ltime)

	var opts cli.Options
	var regionFlag, csvPath, wavPath, dumpPath, graphPath string
	pflag.StringVarP(&opts.Script, "script", "s", "", "Lua script to play")
	pflag.StringVarP(&opts.Program, "program", "p", "", "sound driver program image")
	pflag.StringVar(&opts.CPU, "cpu", "z80", "CPU for --program: z80 or m68k")
	pflag.StringVarP(&regionFlag, "region", "r", "ntsc", "region: ntsc or pal")
	pflag.IntVarP(&opts.Channel, "channel", "c", 1, "channel to sample (1-6)")
	pflag.IntVarP(&opts.Operator, "operator", "o", 4, "operator to sample (1-4)")
	pflag.Float64VarP(&opts.Duration, "duration", "d", 1, "seconds to run")
	pflag.Float64Var(&opts.Rate, "rate", 1000, "curve sample rate in Hz")
	pflag.StringVar(&opts.PCM, "pcm", "", "WAV or MP3 file to stream into the DAC")
	pflag.StringVar(&csvPath, "csv", "", "write sampled curves as CSV")
	pflag.StringVar(&wavPath, "wav", "", "write the envelope level as a WAV file")
	pflag.StringVar(&dumpPath, "dump", "", "write the operator's envelope state (- for stdout)")
	pflag.StringVar(&graphPath, "graph", "", "write a Graphviz view of the operator's envelope")
	pflag.Parse()

	region, err := fm.ParseRegion(regionFlag)
	if err != nil {
		logger.Fatalf("Invalid region: %v (use ntsc or pal)", err)
	}
	opts.Region = region
	opts.Logger = logger

	runner, err := cli.NewRunner(opts)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	if err := runner.Run(); err != nil {
		logger.Fatalf("Run failed: %v", err)
	}

	wrote := false
	if csvPath != "" {
		writeFile(logger, csvPath, func(f *os.File) error { return runner.WriteCSV(f) })
		wrote = true
	}
	if wavPath != "" {
		writeFile(logger, wavPath, func(f *os.File) error { return runner.WriteWAV(f) })
		wrote = true
	}
	if dumpPath == "-" {
		runner.Dump(os.Stdout)
		wrote = true
	} else if dumpPath != "" {
		writeFile(logger, dumpPath, func(f *os.File) error { runner.Dump(f); return nil })
		wrote = true
	}
	if graphPath != "" {
		writeFile(logger, graphPath, func(f *os.File) error { runner.Graph(f); return nil })
		wrote = true
	}

	if !wrote {
		if err := runner.WriteSummary(os.Stdout); err != nil {
			logger.Fatalf("Failed to write summary: %v", err)
		}
	}
}

func writeFile(logger *log.Logger, path string, write func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		logger.Fatalf("Failed to create %s: %v", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		logger.Fatalf("Failed to write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		logger.Fatalf("Failed to write %s: %v", path, err)
	}
}
