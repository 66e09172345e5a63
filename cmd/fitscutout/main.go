package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fitscutout/internal/models"
	"fitscutout/pkg/config"
	"fitscutout/pkg/cutout"
	"fitscutout/pkg/fitsimage"
	"fitscutout/pkg/preview"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitUsage   = 2
	exitPartial = 3
)

func main() {
	log.SetOutput(os.Stderr)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line
type options struct {
	image string

	ra, dec     float64
	size        float64
	outfile     string
	sourceTable string

	configPath  string
	writeConfig string

	workers   int
	outDir    string
	overwrite bool
	preview   bool
	verbose   bool

	// set records which flags were given explicitly
	set map[string]bool
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: map[string]bool{}}

	fs := flag.NewFlagSet("fitscutout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Float64Var(&opts.ra, "ra", 0, "RA of the cutout centre in degrees")
	fs.Float64Var(&opts.dec, "dec", 0, "Dec of the cutout centre in degrees")
	fs.Float64Var(&opts.size, "size", 0, "Width and height of the cutout in degrees (required)")
	fs.StringVar(&opts.outfile, "outfile", "output", "Base name of the output file, written as <name>.fits")
	fs.StringVar(&opts.sourceTable, "sourcetable", "", "CSV file of name,ra,dec rows; overrides -ra, -dec and -outfile")
	fs.StringVar(&opts.configPath, "config", "fitscutout.yaml", "YAML configuration file")
	fs.StringVar(&opts.writeConfig, "write-config", "", "Write the default configuration to this path and exit")
	fs.IntVar(&opts.workers, "workers", 0, "Number of cutouts produced concurrently (default from config)")
	fs.StringVar(&opts.outDir, "outdir", "", "Directory for output files (default from config)")
	fs.BoolVar(&opts.overwrite, "overwrite", false, "Replace existing output files")
	fs.BoolVar(&opts.preview, "preview", false, "Also write a grayscale preview of each cutout")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: fitscutout [flags] fitsimage")
		fs.PrintDefaults()
	}

	// Flags may follow the positional argument, so keep parsing after it
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.writeConfig != "" {
		return opts, nil
	}

	switch {
	case len(positional) != 1:
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one FITS image, got %d arguments", len(positional))
	case !opts.set["size"]:
		fs.Usage()
		return nil, errors.New("-size is required")
	case !(opts.size > 0):
		return nil, fmt.Errorf("-size must be positive, got %g", opts.size)
	case opts.sourceTable == "" && strings.TrimSpace(opts.outfile) == "":
		return nil, errors.New("-outfile must not be empty")
	case opts.set["workers"] && opts.workers < 1:
		return nil, fmt.Errorf("-workers must be at least 1, got %d", opts.workers)
	}
	opts.image = positional[0]

	return opts, nil
}

// applyFlags overrides configuration values with explicitly given flags
func (o *options) applyFlags(cfg *config.Config) {
	if o.set["workers"] {
		cfg.Processing.NumWorkers = o.workers
	}
	if o.set["outdir"] {
		cfg.Output.Dir = o.outDir
	}
	if o.set["overwrite"] {
		cfg.Output.Overwrite = o.overwrite
	}
	if o.set["preview"] {
		cfg.Output.Preview = o.preview
	}
	if o.set["v"] {
		cfg.Output.Verbose = o.verbose
	}
}

func cutterOptions(cfg *config.Config) cutout.Options {
	opts := cutout.Options{
		OutDir: cfg.Output.Dir,
		Write: fitsimage.WriteOptions{
			Bitpix:    cfg.Output.Bitpix,
			Overwrite: cfg.Output.Overwrite,
		},
		Header: cutout.HeaderOptions{Passthrough: cfg.Header.Passthrough},
	}
	if cfg.Output.Preview {
		opts.Preview = &preview.Options{
			Format:         cfg.Output.PreviewFormat,
			LowPercentile:  cfg.Preview.LowPercentile,
			HighPercentile: cfg.Preview.HighPercentile,
		}
	}
	return opts
}

// outputFile returns <outfile>.fits, placed under dir unless outfile is an
// absolute path
func outputFile(outfile, dir string) string {
	path := outfile + ".fits"
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if opts.writeConfig != "" {
		if err := config.CreateDefaultConfigFile(opts.writeConfig); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
		fmt.Fprintf(stdout, "Default configuration written to %s\n", opts.writeConfig)
		return exitOK
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	opts.applyFlags(cfg)
	verbose := cfg.Output.Verbose

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		fmt.Fprintf(stderr, "Error: failed to create output directory: %v\n", err)
		return exitFatal
	}

	img, err := fitsimage.Open(opts.image)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	cutter, err := cutout.NewCutter(img, cutterOptions(cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	if verbose {
		fmt.Fprintln(stdout, "================================")
		fmt.Fprintln(stdout, "FITS CUTOUT")
		fmt.Fprintln(stdout, "================================")
		fmt.Fprintf(stdout, "Image: %s (%dx%d)\n", img.Path, img.Width(), img.Height())
		fmt.Fprintf(stdout, "Cutout size: %g deg\n", opts.size)
		fmt.Fprintf(stdout, "Output directory: %s\n", cfg.Output.Dir)
	}

	if opts.sourceTable == "" {
		pos := models.SkyPosition{Name: opts.outfile, RA: opts.ra, Dec: opts.dec}
		res := cutter.CutTo(pos, opts.size, outputFile(opts.outfile, cfg.Output.Dir))
		cutout.Report(stdout, res, verbose)
		if res.Status == models.Failed {
			fmt.Fprintf(stderr, "Error: %v\n", res.Err)
			return exitFatal
		}
		return exitOK
	}

	rows, err := cutout.ReadSourceTable(opts.sourceTable, cfg.Table.HasHeader)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	fmt.Fprintf(stdout, "Found %d sources in catalogue\n", len(rows))

	startTime := time.Now()
	report := cutter.RunBatch(rows, opts.size, cfg.Processing.NumWorkers, stdout, verbose)
	report.WriteSummary(stdout)
	if verbose {
		fmt.Fprintf(stdout, "Completed in %.2f seconds using %d workers\n",
			time.Since(startTime).Seconds(), cfg.Processing.NumWorkers)
	}

	if report.Failed > 0 {
		return exitPartial
	}
	return exitOK
}
