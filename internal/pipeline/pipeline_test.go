package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/label-analyzer/internal/analysis"
	"github.com/ironsheep/label-analyzer/internal/ocr"
)

type stubRecognizer struct {
	texts []string
	err   error
	crash bool
	calls int
}

func (s *stubRecognizer) Name() string { return "stub" }

func (s *stubRecognizer) Recognize(context.Context, image.Image) (string, error) {
	if s.crash {
		panic("engine crashed")
	}
	i := s.calls
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if i < len(s.texts) {
		return s.texts[i], nil
	}
	return "", nil
}

func (s *stubRecognizer) Version(context.Context) (string, error) { return "stub 1", nil }

type stubGenerator struct {
	reply  analysis.Reply
	err    error
	prompt string
}

func (s *stubGenerator) Name() string  { return "stub" }
func (s *stubGenerator) Model() string { return "stub-model" }

func (s *stubGenerator) Generate(_ context.Context, prompt string) (analysis.Reply, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func direct(s string) analysis.Reply { return analysis.Reply{Text: &s} }

func newPipeline(rec ocr.Recognizer, gen analysis.Generator) *Pipeline {
	return New(ocr.NewExtractor(rec, nil), analysis.NewClient(gen, nil), nil)
}

// writePNG writes a small label-like image to dir and returns its path.
func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}
	path := filepath.Join(dir, "label.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestProcessFile_Success(t *testing.T) {
	rec := &stubRecognizer{texts: []string{"TRIDENT\n", "SUGAR FREE\n"}}
	gen := &stubGenerator{reply: direct("## Product Name\nTrident")}
	p := newPipeline(rec, gen)

	res, err := p.ProcessFile(context.Background(), writePNG(t, t.TempDir()))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if res.Text != "TRIDENT\n\nSUGAR FREE" {
		t.Errorf("text: got %q", res.Text)
	}
	if res.Analysis != "## Product Name\nTrident" {
		t.Errorf("analysis: got %q", res.Analysis)
	}
	if !strings.Contains(gen.prompt, res.Text) {
		t.Error("prompt should embed the extracted text")
	}
}

func TestProcessFile_BlankImage(t *testing.T) {
	gen := &stubGenerator{reply: direct("## Product Name\nUnknown")}
	p := newPipeline(&stubRecognizer{}, gen)

	res, err := p.ProcessFile(context.Background(), writePNG(t, t.TempDir()))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if res.Text != "" {
		t.Errorf("text: got %q, want empty", res.Text)
	}
	if res.Analysis == "" {
		t.Error("analysis should still be produced for empty text")
	}
}

func TestProcessFile_Errors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.jpg")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	good := writePNG(t, dir)

	tests := []struct {
		name string
		path string
		rec  *stubRecognizer
		gen  *stubGenerator
		want Kind
	}{
		{"corrupted upload", corrupt, &stubRecognizer{}, &stubGenerator{}, KindDecode},
		{"missing file", filepath.Join(dir, "missing.png"), &stubRecognizer{}, &stubGenerator{}, KindFatal},
		{"ocr unavailable", good, &stubRecognizer{err: fmt.Errorf("init: %w", ocr.ErrUnavailable)}, &stubGenerator{}, KindOCRUnavailable},
		{"ocr failure", good, &stubRecognizer{err: errors.New("segfault")}, &stubGenerator{}, KindFatal},
		{"model network error", good, &stubRecognizer{}, &stubGenerator{err: errors.New("dial tcp: connection refused")}, KindModel},
		{"panic", good, &stubRecognizer{crash: true}, &stubGenerator{}, KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPipeline(tt.rec, tt.gen).ProcessFile(context.Background(), tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if pe.Kind != tt.want {
				t.Errorf("kind: got %v, want %v", pe.Kind, tt.want)
			}
		})
	}
}

func TestProcessFile_UnexpectedShapeIsNotAnError(t *testing.T) {
	gen := &stubGenerator{reply: analysis.Reply{Raw: map[string]any{"finish": "SAFETY"}}}
	res, err := newPipeline(&stubRecognizer{}, gen).ProcessFile(context.Background(), writePNG(t, t.TempDir()))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if res.Analysis != `{"finish":"SAFETY"}` {
		t.Errorf("analysis: got %q", res.Analysis)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		kind   Kind
		name   string
		status int
	}{
		{KindFatal, "fatal", 500},
		{KindDecode, "decode", 500},
		{KindOCRUnavailable, "ocr_unavailable", 500},
		{KindModel, "model", 500},
		{KindBadRequest, "bad_request", 400},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.name {
			t.Errorf("String: got %q, want %q", tt.kind.String(), tt.name)
		}
		if tt.kind.Status() != tt.status {
			t.Errorf("%s Status: got %d, want %d", tt.name, tt.kind.Status(), tt.status)
		}
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	if KindOf(fmt.Errorf("wrapped: %w", E(KindModel, "analyze", base))) != KindModel {
		t.Error("KindOf should see through wrapping")
	}
	if KindOf(base) != KindFatal {
		t.Error("plain errors are fatal")
	}
	if !errors.Is(E(KindDecode, "decode", base), base) {
		t.Error("Error should unwrap to its cause")
	}
	if got := E(KindModel, "analyze", base).Error(); got != "analyze: boom" {
		t.Errorf("Error(): got %q", got)
	}
}
