// Command bcltools converts FASTQ reads into sequencer output trees and
// moves single BCL, LOCS, FILTER and BCI files to and from text.
//
//	bcltools read [-kind K] [-header] FILE
//	bcltools write -kind K -o FILE [INPUT|-]
//	bcltools convert [-config F] [-machine M] [-lanes N] -o DIR FASTQ...
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bcltools/bcltools"
	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/config"
	"github.com/bcltools/bcltools/fastq"
	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/metrics"
	"github.com/hashicorp/go-hclog"
)

const usage = `usage:
  bcltools read [-kind K] [-header] FILE
  bcltools write -kind K -o FILE [INPUT|-]
  bcltools convert [-config F] [-machine M] [-lanes N] -o DIR FASTQ...
`

func main() {
	// a closed stdout must surface as EPIPE instead of killing the process
	signal.Ignore(syscall.SIGPIPE)
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	var err error
	switch args[0] {
	case "read":
		err = runRead(args[1:], stdout, stderr)
	case "write":
		err = runWrite(args[1:], stdin, stderr)
	case "convert":
		err = runConvert(args[1:], stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		err = fmt.Errorf("%w: unknown command %q", bcltools.ErrConfiguration, args[0])
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, bcltools.ErrSinkClosed):
		// the reader went away; there is nobody left to tell
		return 1
	}
	fmt.Fprintf(stderr, "bcltools: %v\n", err)
	return 1
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// fileKind takes the -kind flag when set and the file extension otherwise.
// A trailing .gz is skipped.
func fileKind(kind, path string) (codec.Kind, error) {
	if kind != "" {
		return codec.ParseKind(kind)
	}
	return codec.ParseKind(filepath.Ext(strings.TrimSuffix(path, ".gz")))
}

func runRead(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("read", stderr)
	kindName := fs.String("kind", "", "file kind: bcl, locs, filter or bci (default: from the extension)")
	headerOnly := fs.Bool("header", false, "print the header line only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: read takes exactly one file", bcltools.ErrConfiguration)
	}

	path := fs.Arg(0)
	kind, err := fileKind(*kindName, path)
	if err != nil {
		return err
	}
	return bcltools.Dump(stdout, path, kind, *headerOnly)
}

func runWrite(args []string, stdin io.Reader, stderr io.Writer) error {
	fs := newFlagSet("write", stderr)
	kindName := fs.String("kind", "", "file kind: bcl, locs, filter or bci (default: from the output extension)")
	output := fs.String("o", "", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return fmt.Errorf("%w: write needs -o", bcltools.ErrConfiguration)
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: write takes at most one input", bcltools.ErrConfiguration)
	}
	kind, err := fileKind(*kindName, *output)
	if err != nil {
		return err
	}

	in := stdin
	if name := fs.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	_, err = bcltools.Encode(in, *output, kind)
	return err
}

func runConvert(args []string, stderr io.Writer) error {
	fs := newFlagSet("convert", stderr)
	configPath := fs.String("config", "", "YAML config file")
	machine := fs.String("machine", "nextseq", "output layout: nextseq or miseq")
	lanes := fs.Int("lanes", 1, "number of lanes, 1 to 4")
	output := fs.String("o", "", "output directory")
	handles := fs.String("handles", "auto", "file handle policy: auto, keep-open or reopen")
	metricsFile := fs.String("metrics-file", "", "write Prometheus metrics to this file when done")
	sync := fs.Bool("sync", false, "fsync every output file before patching its header")
	verbose := fs.Bool("v", false, "debug logging")
	quiet := fs.Bool("q", false, "warnings and errors only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyExplicitFlags(fs, cfg, map[string]func(){
		"machine":      func() { cfg.Machine = *machine },
		"lanes":        func() { cfg.Lanes = *lanes },
		"o":            func() { cfg.Output = *output },
		"handles":      func() { cfg.HandlePolicy = *handles },
		"metrics-file": func() { cfg.MetricsFile = *metricsFile },
		"sync":         func() { cfg.Sync = *sync },
	})
	switch {
	case *verbose:
		cfg.LogLevel = "debug"
	case *quiet:
		cfg.LogLevel = "warn"
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Output == "" {
		return fmt.Errorf("%w: convert needs -o", bcltools.ErrConfiguration)
	}
	if fs.NArg() == 0 {
		return bcltools.ErrNoSources
	}

	profile, err := layout.ParseProfile(cfg.Machine)
	if err != nil {
		return err
	}
	policy, err := bcltools.ParseHandlePolicy(cfg.HandlePolicy)
	if err != nil {
		return err
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "bcltools",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: stderr,
	})

	conv, err := bcltools.Open(cfg.Output,
		bcltools.WithProfile(profile),
		bcltools.WithLanes(cfg.Lanes),
		bcltools.WithHandlePolicy(policy),
		bcltools.WithSync(cfg.Sync),
		bcltools.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := conv.Close(); err != nil {
			logger.Warn("releasing output directory", "error", err)
		}
	}()

	sources := make([]fastq.Source, fs.NArg())
	for i, path := range fs.Args() {
		sources[i] = fastq.FileSource{Path: path}
	}
	res, err := conv.Convert(sources...)
	if err != nil {
		return err
	}
	logger.Info("wrote run", "output", cfg.Output, "clusters", res.Clusters,
		"cycles", res.Cycles, "files", res.Files, "handles", res.Policy)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// applyExplicitFlags lets flags given on the command line win over the
// config file. Flags left at their defaults do not override anything.
func applyExplicitFlags(fs *flag.FlagSet, cfg *config.Config, setters map[string]func()) {
	if cfg.Machine == "" {
		setters["machine"]()
	}
	if cfg.Lanes == 0 {
		setters["lanes"]()
	}
	if cfg.HandlePolicy == "" {
		setters["handles"]()
	}
	fs.Visit(func(f *flag.Flag) {
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}
