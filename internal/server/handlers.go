package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-analyzer/internal/pipeline"
)

// imageField is the multipart field carrying the upload.
const imageField = "image"

// defaultExt is used when the upload has no usable filename extension.
const defaultExt = ".jpg"

var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// upload is the image part selected from a multipart request.
type upload struct {
	filename string
	size     int64
	path     string
}

// handleProcessImage runs the pipeline on one uploaded image.
//
// Request: multipart/form-data with the image in field "image", or in the
// first file part when that field is absent.
//
// Response: 200 {"ocr_text","analysis"}; 400 {"error"} when no image part is
// present or the body is too large; 500 {"error"} for any pipeline failure.
// The upload is written to exactly one temporary file, which is removed
// before the response is sent on every path.
func (s *Server) handleProcessImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	log := s.log.WithField("remote", r.RemoteAddr)
	res, err := s.process(ctx, r, log)
	if err != nil {
		s.writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// process persists the upload, runs the pipeline and removes the file.
// Removal is deferred so it also runs when ctx expires or a stage panics.
func (s *Server) process(ctx context.Context, r *http.Request, log logrus.FieldLogger) (res pipeline.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res, err = pipeline.Result{}, pipeline.E(pipeline.KindFatal, "handle", fmt.Errorf("panic: %v", rec))
		}
	}()

	start := time.Now()

	up, err := s.persist(r)
	if err != nil {
		return pipeline.Result{}, err
	}
	log = log.WithFields(logrus.Fields{
		"filename":  up.filename,
		"bytes":     up.size,
		"temp_path": up.path,
	})
	defer func() {
		if rmErr := os.Remove(up.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.WithError(rmErr).Warn("Failed to remove temporary file")
		}
	}()
	log.Debug("Upload persisted")

	res, err = s.pipe.ProcessFile(ctx, up.path)
	if err != nil {
		return pipeline.Result{}, err
	}

	log.WithFields(logrus.Fields{
		"text_chars": len(res.Text),
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("Request complete")
	return res, nil
}

// persist streams the selected image part into a new temporary file.
//
// The "image" field wins. A file part seen before it is held in memory as the
// fallback, so at most one file is written whichever order the parts arrive
// in; MaxBytesReader bounds that buffer.
func (s *Server) persist(r *http.Request) (*upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, pipeline.E(pipeline.KindBadRequest, "upload", fmt.Errorf("expected multipart/form-data: %w", err))
	}

	var (
		fallback     bytes.Buffer
		fallbackName string
		haveFallback bool
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, uploadError(err)
		}

		if part.FormName() == imageField {
			up, err := s.writeTemp(part.FileName(), part)
			part.Close()
			return up, err
		}

		if !haveFallback && part.FileName() != "" {
			if _, err := io.Copy(&fallback, part); err != nil {
				part.Close()
				return nil, uploadError(err)
			}
			fallbackName = part.FileName()
			haveFallback = true
		}
		part.Close()
	}

	if !haveFallback {
		return nil, pipeline.E(pipeline.KindBadRequest, "upload", errors.New("no image part in request"))
	}
	return s.writeTemp(fallbackName, &fallback)
}

// writeTemp copies src into one new temporary file named after filename's
// extension. The file is removed again if the copy fails.
func (s *Server) writeTemp(filename string, src io.Reader) (*upload, error) {
	f, err := os.CreateTemp(s.opts.TempDir, "label-*"+extOf(filename))
	if err != nil {
		return nil, pipeline.E(pipeline.KindFatal, "upload", fmt.Errorf("create temp file: %w", err))
	}

	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, uploadError(err)
	}

	return &upload{filename: filename, size: n, path: f.Name()}, nil
}

// uploadError classifies a failure while reading the request body.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pipeline.E(pipeline.KindBadRequest, "upload", fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		return pipeline.E(pipeline.KindBadRequest, "upload", err)
	}
	return pipeline.E(pipeline.KindFatal, "upload", fmt.Errorf("read upload: %w", err))
}

// extOf returns filename's extension, or .jpg when it has none or it contains
// anything but letters and digits.
func extOf(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if !safeExt.MatchString(ext) {
		return defaultExt
	}
	return ext
}

// handleHealth reports the configured engine and model. The OCR version is
// probed on each call; a failed probe yields status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rec := s.pipe.Extractor().Recognizer()
	gen := s.pipe.Client().Generator()

	resp := HealthResponse{
		Status:        "ok",
		OCREngine:     rec.Name(),
		ModelProvider: gen.Name(),
		Model:         gen.Model(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if v, err := rec.Version(ctx); err != nil {
		resp.Status = "degraded"
		resp.OCRError = err.Error()
	} else {
		resp.OCRVersion = v
	}

	writeJSON(w, http.StatusOK, resp)
}
