// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// OCR engines.
const (
	EngineLibrary = "library"
	EngineCommand = "command"
)

// Config holds every setting the service and the batch tool read from the
// environment. Load fills it; Validate checks it.
type Config struct {
	Host string
	Port string

	ModelProvider string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	OCREngine      string
	TesseractPath  string
	TessdataPrefix string
	OCRLanguage    string

	TempDir        string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	LogLevel       string
}

// ExplicitTesseract reports whether the command engine was pointed at a
// specific binary. The library engine ignores TESSERACT_PATH.
func (c *Config) ExplicitTesseract() bool {
	return c.OCREngine == EngineCommand && c.TesseractPath != ""
}

// LoadDotEnv loads variables from the given files (".env" when none are
// named) without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the configuration from the environment. Malformed numeric or
// duration values are reported by Validate, not here.
func Load() *Config {
	return &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnv("PORT", "5001"),

		ModelProvider: strings.ToLower(getEnv("MODEL_PROVIDER", ProviderGemini)),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		OCREngine:      strings.ToLower(getEnv("OCR_ENGINE", EngineLibrary)),
		TesseractPath:  getEnv("TESSERACT_PATH", ""),
		TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		OCRLanguage:    getEnv("OCR_LANGUAGE", "eng"),

		TempDir:        getEnv("TEMP_DIR", ""),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 20<<20),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 150*time.Second),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not a number", c.Port))
	}

	switch c.ModelProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("missing required env GEMINI_API_KEY"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("missing required env OPENAI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MODEL_PROVIDER %q (use %s or %s)", c.ModelProvider, ProviderGemini, ProviderOpenAI))
	}

	switch c.OCREngine {
	case EngineLibrary, EngineCommand:
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_ENGINE %q (use %s or %s)", c.OCREngine, EngineLibrary, EngineCommand))
	}

	if c.ExplicitTesseract() {
		if _, err := os.Stat(c.TesseractPath); err != nil {
			errs = append(errs, fmt.Errorf("TESSERACT_PATH: %w", err))
		}
	}

	if c.TempDir != "" {
		if fi, err := os.Stat(c.TempDir); err != nil {
			errs = append(errs, fmt.Errorf("TEMP_DIR: %w", err))
		} else if !fi.IsDir() {
			errs = append(errs, fmt.Errorf("TEMP_DIR %s is not a directory", c.TempDir))
		}
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be a positive integer"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be a positive duration"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Model returns the model name for the configured provider.
func (c *Config) Model() string {
	if c.ModelProvider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// getInt64 returns -1 for a malformed value so Validate can reject it.
func getInt64(k string, def int64) int64 {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// getDuration accepts Go durations ("90s") and bare seconds ("90"). A
// malformed value yields -1.
func getDuration(k string, def time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return -1
	}
	return d
}
