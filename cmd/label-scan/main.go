// Command label-scan runs the label pipeline over image files from the
// command line.
//
// Usage:
//
//	label-scan [flags] image...
//
// Each image is normalized, read in both polarities and analyzed on its own.
// With -combined the text of every image is joined, in argument order, and
// analyzed once, for products photographed from several sides.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/label-analyzer/internal/analysis"
	"github.com/ironsheep/label-analyzer/internal/app"
	"github.com/ironsheep/label-analyzer/internal/config"
	"github.com/ironsheep/label-analyzer/internal/pipeline"
)

// Version information - set by ldflags during build
var Version = "dev"

type options struct {
	workers  int
	ocrOnly  bool
	combined bool
	sections bool
	asJSON   bool
}

// scan is the outcome for one image, or for the combined set.
type scan struct {
	Path     string   `json:"path"`
	Text     string   `json:"ocr_text"`
	Analysis string   `json:"analysis,omitempty"`
	Sections []string `json:"sections,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("label-scan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.IntVar(&opts.workers, "workers", 2, "images processed concurrently")
	fs.BoolVar(&opts.ocrOnly, "ocr-only", false, "print extracted text without calling the model")
	fs.BoolVar(&opts.combined, "combined", false, "analyze the text of all images together")
	fs.BoolVar(&opts.sections, "sections", false, "print only the section titles of each analysis")
	fs.BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	version := fs.Bool("version", false, "print version information")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: label-scan [flags] image...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintf(stdout, "label-scan %s\n", Version)
		return 0
	}
	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return 2
	}
	if opts.workers < 1 {
		opts.workers = 1
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}
	cfg := config.Load()
	if opts.ocrOnly {
		// The model is never called.
		if cfg.GeminiAPIKey == "" {
			cfg.GeminiAPIKey = "unused"
		}
		if cfg.OpenAIAPIKey == "" {
			cfg.OpenAIAPIKey = "unused"
		}
	}

	log := app.NewLogger(cfg.LogLevel)
	log.SetOutput(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe, err := app.Build(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Startup failed: %v\n", err)
		return 1
	}

	results := scanAll(ctx, pipe, paths, opts, log)
	if err := report(stdout, results, opts); err != nil {
		fmt.Fprintf(stderr, "Output error: %v\n", err)
		return 1
	}

	for _, r := range results {
		if r.Error != "" {
			return 1
		}
	}
	return 0
}

// scanAll processes paths with at most opts.workers images in flight and
// returns results in argument order. A failed image does not stop the others.
func scanAll(ctx context.Context, pipe *pipeline.Pipeline, paths []string, opts options, log logrus.FieldLogger) []scan {
	results := make([]scan, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i, path := range paths {
		g.Go(func() error {
			r := scan{Path: path}
			var err error
			if opts.ocrOnly || opts.combined {
				r.Text, err = pipe.ExtractFile(gctx, path)
			} else {
				var res pipeline.Result
				res, err = pipe.ProcessFile(gctx, path)
				r.Text, r.Analysis = res.Text, res.Analysis
			}
			if err != nil {
				log.WithError(err).WithField("path", path).Error("Image failed")
				r.Error = err.Error()
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	if opts.combined && !opts.ocrOnly {
		results = append(results, combine(ctx, pipe, results, log))
	}
	return results
}

// combine analyzes the text of every successful scan as one label.
func combine(ctx context.Context, pipe *pipeline.Pipeline, scans []scan, log logrus.FieldLogger) scan {
	var (
		b  strings.Builder
		ok int
	)
	for _, s := range scans {
		if s.Error != "" {
			continue
		}
		ok++
		if s.Text != "" {
			b.WriteString(s.Text)
			b.WriteByte('\n')
		}
	}

	r := scan{Path: "(combined)", Text: strings.TrimSpace(b.String())}
	if ok == 0 {
		r.Error = "no image could be read"
		return r
	}
	out, err := pipe.Analyze(ctx, r.Text)
	if err != nil {
		log.WithError(err).Error("Combined analysis failed")
		r.Error = err.Error()
		return r
	}
	r.Analysis = out
	return r
}

func report(w io.Writer, results []scan, opts options) error {
	if opts.sections {
		for i := range results {
			for _, s := range analysis.Sections(results[i].Analysis) {
				if s.Title != "" {
					results[i].Sections = append(results[i].Sections, s.Title)
				}
			}
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		fmt.Fprintf(w, "=== %s ===\n", r.Path)
		if r.Error != "" {
			fmt.Fprintf(w, "error: %s\n\n", r.Error)
			continue
		}
		fmt.Fprintf(w, "--- OCR TEXT ---\n%s\n", r.Text)
		switch {
		case opts.sections && r.Analysis != "":
			fmt.Fprintln(w, "--- SECTIONS ---")
			for _, t := range r.Sections {
				fmt.Fprintf(w, "  %s\n", t)
			}
		case r.Analysis != "":
			fmt.Fprintf(w, "--- ANALYSIS ---\n%s\n", r.Analysis)
		}
		fmt.Fprintln(w)
	}
	return nil
}
