package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/label-analyzer/internal/app"
	"github.com/ironsheep/label-analyzer/internal/config"
	"github.com/ironsheep/label-analyzer/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("label-analyzer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("label-analyzer - OCR and model analysis of product label photos")
			fmt.Println()
			fmt.Println("Usage: label-analyzer [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (a .env file in the working directory is also read):")
			fmt.Println("  HOST, PORT                 Listen address (default 0.0.0.0:5001)")
			fmt.Println("  MODEL_PROVIDER             gemini or openai (default gemini)")
			fmt.Println("  GEMINI_API_KEY, GEMINI_MODEL")
			fmt.Println("  OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL")
			fmt.Println("  OCR_ENGINE                 library or command (default library)")
			fmt.Println("  TESSERACT_PATH             tesseract binary for the command engine")
			fmt.Println("  TESSDATA_PREFIX, OCR_LANGUAGE")
			fmt.Println("  TEMP_DIR                   Directory for per-request upload files")
			fmt.Println("  MAX_UPLOAD_BYTES           Request body limit (default 20971520)")
			fmt.Println("  REQUEST_TIMEOUT            Per-request timeout (default 150s)")
			fmt.Println("  LOG_LEVEL=debug            Enable debug logging")
			fmt.Println()
			fmt.Println("Endpoints:")
			fmt.Println("  POST /process-image        multipart field \"image\"")
			fmt.Println("  GET  /healthz")
			return
		}
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	log := app.NewLogger(cfg.LogLevel)
	log.WithField("version", Version).Debugf("Label Analyzer (built %s, commit %s)", BuildTime, GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}

	srv := server.New(pipe, server.Options{
		TempDir:        cfg.TempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
	}, log)
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
