// Command mapload loads map data files from disk, reports how each one was
// classified and optionally prints the combined visualization payload.
//
//	mapload [options] FILE...
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/JonMunkholm/mapload/internal/config"
	"github.com/JonMunkholm/mapload/internal/core"
	"github.com/JonMunkholm/mapload/internal/logging"
	"github.com/JonMunkholm/mapload/internal/parse"
	"github.com/JonMunkholm/mapload/internal/process"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	dim    = color.New(color.Faint)
)

type options struct {
	configPath      string
	payload         bool
	streamThreshold int64
	chunkSize       int64
	concurrency     int
	logLevel        string
	noColor         bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code: 0 when every
// file loaded or was skipped as unrecognized, 1 on any failure, 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mapload", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", os.Getenv(config.FileEnv), "YAML config file")
	fs.BoolVar(&opts.payload, "json", false, "print the visualization payload as JSON")
	fs.Int64Var(&opts.streamThreshold, "stream-threshold", 0, "size in bytes at which files are streamed (default from config)")
	fs.Int64Var(&opts.chunkSize, "chunk-size", 0, "streamed chunk size in bytes (default from config)")
	fs.IntVarP(&opts.concurrency, "concurrency", "c", 0, "files loaded in parallel (default from config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: mapload [options] FILE...

Description:
  Load CSV, JSON row, GeoJSON and kepler.gl map files and report the
  format of each. Files at or above the stream threshold are parsed in
  chunks. Unrecognized files are skipped with a warning.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if opts.noColor {
		color.NoColor = true
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		red.Fprintf(stderr, "✗ %v\n", err)
		return 1
	}
	if opts.logLevel == "" {
		opts.logLevel = cfg.Logging.Level
	}
	logger := logging.SetupWriter(stderr, opts.logLevel, cfg.Logging.Format)

	loader, err := core.NewLoader(core.LoaderOptions{
		Parser:          parse.New(),
		Processors:      process.Defaults(),
		Logger:          logger,
		StreamThreshold: pick(opts.streamThreshold, cfg.Ingest.StreamThreshold),
		ChunkSize:       pick(opts.chunkSize, cfg.Ingest.ChunkSize),
		CSVBatchSize:    cfg.Ingest.CSVBatchSize,
		MaxFileSize:     cfg.Ingest.MaxFileSize,
		MaxConcurrent:   pick(opts.concurrency, cfg.Ingest.MaxConcurrent),
	})
	if err != nil {
		red.Fprintf(stderr, "✗ %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, closeAll, failed := openFiles(fs.Args(), stderr)
	defer closeAll()

	cache, results := loader.ReadFiles(ctx, files, core.FileCache{})
	for _, res := range results {
		report(stderr, res)
		if res.Err != nil {
			failed = true
		}
	}

	if opts.payload {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(core.FilesToDataPayload(cache)); err != nil {
			red.Fprintf(stderr, "✗ encode payload: %v\n", err)
			return 1
		}
	}

	if failed {
		return 1
	}
	return 0
}

// openFiles opens every path. Paths that cannot be opened are reported and
// mark the run failed without stopping the others.
func openFiles(paths []string, stderr io.Writer) ([]core.FileHandle, func(), bool) {
	var (
		files  []core.FileHandle
		opened []*core.LocalFile
		failed bool
	)
	for _, p := range paths {
		f, err := core.OpenFile(p)
		if err != nil {
			red.Fprintf(stderr, "✗ %s: %s\n", p, core.FormatUserError(err))
			failed = true
			continue
		}
		opened = append(opened, f)
		files = append(files, f)
	}
	return files, func() {
		for _, f := range opened {
			f.Close()
		}
	}, failed
}

func report(w io.Writer, res core.LoadResult) {
	switch {
	case res.Err != nil:
		red.Fprintf(w, "✗ %s: %s\n", res.File, core.FormatUserError(res.Err))
		dim.Fprintf(w, "  %v\n", res.Err)
	case res.Warning != "":
		yellow.Fprintf(w, "⚠ %s\n", res.Warning)
	default:
		green.Fprintf(w, "✓ %s", res.File)
		dim.Fprintf(w, " (%s)\n", res.Format)
	}
}

// pick returns flag when set, otherwise the configured value.
func pick[T int | int64](flag, configured T) T {
	if flag > 0 {
		return flag
	}
	return configured
}
