package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-analyzer/internal/analysis"
	"github.com/ironsheep/label-analyzer/internal/ocr"
	"github.com/ironsheep/label-analyzer/internal/pipeline"
)

type echoRecognizer struct{ text string }

func (e echoRecognizer) Name() string { return "echo" }
func (e echoRecognizer) Recognize(context.Context, image.Image) (string, error) {
	return e.text, nil
}
func (e echoRecognizer) Version(context.Context) (string, error) { return "echo 1", nil }

// promptGenerator returns the prompt it received inside a small analysis.
type promptGenerator struct{ err error }

func (promptGenerator) Name() string  { return "echo" }
func (promptGenerator) Model() string { return "echo" }
func (p promptGenerator) Generate(_ context.Context, prompt string) (analysis.Reply, error) {
	if p.err != nil {
		return analysis.Reply{}, p.err
	}
	out := "## Product Name\nEcho\n\n## Prompt\n" + prompt
	return analysis.Reply{Text: &out}, nil
}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func testPipeline(text string, genErr error) *pipeline.Pipeline {
	return pipeline.New(
		ocr.NewExtractor(echoRecognizer{text: text}, nil),
		analysis.NewClient(promptGenerator{err: genErr}, nil),
		nil,
	)
}

func writeImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 8, 8))
		for j := range img.Pix {
			img.Pix[j] = 255
		}
		p := filepath.Join(dir, "img"+string(rune('a'+i))+".png")
		f, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, p)
	}
	return paths
}

func TestScanAll_PreservesOrder(t *testing.T) {
	paths := writeImages(t, 5)
	res := scanAll(context.Background(), testPipeline("LABEL", nil), paths, options{workers: 3}, quietLog())

	if len(res) != len(paths) {
		t.Fatalf("results: got %d, want %d", len(res), len(paths))
	}
	for i, r := range res {
		if r.Path != paths[i] {
			t.Errorf("result %d: got path %s, want %s", i, r.Path, paths[i])
		}
		if r.Error != "" {
			t.Errorf("result %d: unexpected error %s", i, r.Error)
		}
		// Both polarity passes return the same text.
		if r.Text != "LABEL\nLABEL" {
			t.Errorf("result %d: text %q", i, r.Text)
		}
		if !strings.Contains(r.Analysis, "LABEL") {
			t.Errorf("result %d: analysis should embed the text", i)
		}
	}
}

func TestScanAll_FailedImageDoesNotStopOthers(t *testing.T) {
	paths := writeImages(t, 2)
	bad := filepath.Join(t.TempDir(), "bad.jpg")
	if err := os.WriteFile(bad, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	paths = append([]string{bad}, paths...)

	res := scanAll(context.Background(), testPipeline("X", nil), paths, options{workers: 1}, quietLog())
	if res[0].Error == "" {
		t.Error("corrupt image should report an error")
	}
	for _, r := range res[1:] {
		if r.Error != "" {
			t.Errorf("%s: %s", r.Path, r.Error)
		}
	}
}

func TestScanAll_OCROnly(t *testing.T) {
	paths := writeImages(t, 2)
	res := scanAll(context.Background(), testPipeline("TEXT", errors.New("model must not be called")), paths, options{workers: 2, ocrOnly: true}, quietLog())

	for _, r := range res {
		if r.Error != "" || r.Analysis != "" {
			t.Errorf("%s: error %q analysis %q", r.Path, r.Error, r.Analysis)
		}
	}
}

func TestScanAll_Combined(t *testing.T) {
	paths := writeImages(t, 3)
	res := scanAll(context.Background(), testPipeline("SIDE", nil), paths, options{workers: 2, combined: true}, quietLog())

	if len(res) != 4 {
		t.Fatalf("results: got %d, want 4", len(res))
	}
	for _, r := range res[:3] {
		if r.Analysis != "" {
			t.Errorf("%s: per-image analysis should be skipped", r.Path)
		}
	}
	c := res[3]
	if c.Path != "(combined)" {
		t.Errorf("combined path: %q", c.Path)
	}
	if got := strings.Count(c.Text, "SIDE"); got != 6 {
		t.Errorf("combined text should hold all passes of all images, got %d in %q", got, c.Text)
	}
	if !strings.Contains(c.Analysis, c.Text) {
		t.Error("combined analysis should embed the combined text")
	}
}

func TestReport(t *testing.T) {
	results := []scan{
		{Path: "a.png", Text: "A", Analysis: "## Product Name\nA\n\n## Ingredients\nwater"},
		{Path: "b.png", Error: "decode: image decode failed"},
	}

	var out bytes.Buffer
	if err := report(&out, results, options{sections: true}); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"=== a.png ===", "--- SECTIONS ---", "  Product Name", "  Ingredients", "error: decode"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "--- ANALYSIS ---") {
		t.Error("-sections should replace the full analysis")
	}
}

func TestReport_JSON(t *testing.T) {
	results := []scan{{Path: "a.png", Text: "A", Analysis: "## Dietary Status\nVegan"}}

	var out bytes.Buffer
	if err := report(&out, results, options{asJSON: true, sections: true}); err != nil {
		t.Fatal(err)
	}
	var got []scan
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(got) != 1 || len(got[0].Sections) != 1 || got[0].Sections[0] != "Dietary Status" {
		t.Errorf("got %+v", got)
	}
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Errorf("exit code: got %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Usage: label-scan") {
		t.Errorf("usage not printed: %q", stderr.String())
	}

	stdout.Reset()
	if code := run([]string{"-version"}, &stdout, &stderr); code != 0 {
		t.Errorf("version exit code: got %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "label-scan ") {
		t.Errorf("version output: %q", stdout.String())
	}
}
