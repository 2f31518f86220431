// Package server implements the HTTP front end of the label analyzer.
//
// # Endpoints
//
//   - POST /process-image: multipart upload (field "image", or the first file
//     part) → {"ocr_text": "...", "analysis": "..."}
//   - GET /healthz: engine and model report
//
// # Request Lifecycle
//
// Each request moves linearly through the pipeline:
//
//	received → persisted → normalized → extracted → prompted → analyzed → responded
//
// and can fail from any step. The upload is streamed into exactly one
// temporary file under Options.TempDir; the file is removed on every exit
// path, including timeouts and recovered panics.
//
// # Error Handling
//
// Failures carry a pipeline.Kind and are answered with {"error": "..."}:
//   - 400: no image part, non-multipart body, or body over MaxUploadBytes
//   - 500: undecodable image, OCR engine unavailable or failing, model call
//     failure, or any other fault
//
// A model response of unrecognized shape is not a failure; its JSON rendering
// is returned as the analysis.
//
// # Usage
//
//	srv := server.New(pipe, server.Options{TempDir: cfg.TempDir}, log)
//	if err := srv.Run(ctx, cfg.Addr()); err != nil {
//	    log.Fatal(err)
//	}
package server
