package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultBinary is the executable looked up on PATH when no explicit
// Tesseract path is configured.
const DefaultBinary = "tesseract"

// Command recognizes text by running the tesseract executable.
//
// The bitmap is piped to the process as PNG on stdin and text is read from
// stdout, so no file is written. Unlike the library engine, the process is
// killed when ctx is cancelled.
type Command struct {
	// Path is the tesseract executable, either absolute or a name resolved
	// against PATH.
	Path string

	// Language is the Tesseract language code passed with -l.
	Language string
}

// NewCommand creates a recognizer that shells out to the binary at path.
func NewCommand(path, language string) *Command {
	if path == "" {
		path = DefaultBinary
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Command{Path: path, Language: language}
}

// Name implements Recognizer.
func (c *Command) Name() string { return "tesseract-command" }

// Recognize runs `tesseract stdin stdout -l <lang>` on the PNG-encoded image.
func (c *Command) Recognize(ctx context.Context, img image.Image) (string, error) {
	var in bytes.Buffer
	if err := imaging.Encode(&in, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode bitmap: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, "stdin", "stdout", "-l", c.Language)
	cmd.Stdin = &in
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if isMissingBinary(err) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("OCR failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Version runs `tesseract --version` and returns the first line of output.
func (c *Command) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, c.Path, "--version").CombinedOutput()
	if err != nil {
		if isMissingBinary(err) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("tesseract --version: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", fmt.Errorf("%w: empty version output", ErrUnavailable)
}

func isMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
