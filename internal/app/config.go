package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
	"github.com/studyforge/quizgen-backend/internal/utils"
)

// Config carries everything the process needs at startup. Values come from
// defaults, then an optional YAML file, then environment overrides, in that
// order. Secrets (the OpenAI key) come from the environment only.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string
	QuizModel     string
	SpeechModel   string
	Temperature   float64
	OpenAITimeout time.Duration

	OCRLanguage string

	FrameIntervalSec float64
	FrameWidth       int
	FrameHeight      int

	WorkRoot      string
	SheetFontPath string
}

type fileConfig struct {
	HTTPAddr           string  `yaml:"http_addr"`
	ShutdownTimeoutSec int     `yaml:"shutdown_timeout_sec"`
	OpenAIBaseURL      string  `yaml:"openai_base_url"`
	QuizModel          string  `yaml:"quiz_model"`
	SpeechModel        string  `yaml:"speech_model"`
	Temperature        float64 `yaml:"temperature"`
	OpenAITimeoutSec   int     `yaml:"openai_timeout_sec"`
	OCRLanguage        string  `yaml:"ocr_language"`
	FrameIntervalSec   float64 `yaml:"frame_interval_sec"`
	FrameWidth         int     `yaml:"frame_width"`
	FrameHeight        int     `yaml:"frame_height"`
	WorkRoot           string  `yaml:"work_root"`
	SheetFontPath      string  `yaml:"sheet_font_path"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:         ":8080",
		ShutdownTimeout:  15 * time.Second,
		OpenAIBaseURL:    "https://api.openai.com/v1",
		QuizModel:        "gpt-4o",
		SpeechModel:      "whisper-1",
		Temperature:      0.7,
		OpenAITimeout:    120 * time.Second,
		OCRLanguage:      "eng",
		FrameIntervalSec: 2.0,
		FrameWidth:       640,
		FrameHeight:      360,
		WorkRoot:         filepath.Join(os.TempDir(), "quizgen"),
	}
}

// LoadConfig resolves the runtime configuration. The config file path comes
// from QUIZGEN_CONFIG_PATH, falling back to ./config/config.yaml when that
// file exists.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("QUIZGEN_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", cfgPath, err)
		}
		applyFile(&cfg, fc)
		log.With("path", cfgPath).Info("Loaded config file")
	}

	cfg.HTTPAddr = utils.GetEnv("HTTP_ADDR", cfg.HTTPAddr, log)
	cfg.OpenAIAPIKey = utils.GetEnv("OPENAI_API_KEY", "", log)
	cfg.OpenAIBaseURL = utils.GetEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL, log)
	cfg.QuizModel = utils.GetEnv("QUIZ_MODEL", cfg.QuizModel, log)
	cfg.SpeechModel = utils.GetEnv("SPEECH_MODEL", cfg.SpeechModel, log)
	cfg.Temperature = utils.GetEnvAsFloat("QUIZ_TEMPERATURE", cfg.Temperature, log)
	cfg.OpenAITimeout = time.Duration(utils.GetEnvAsInt("OPENAI_TIMEOUT_SEC", int(cfg.OpenAITimeout/time.Second), log)) * time.Second
	cfg.OCRLanguage = utils.GetEnv("OCR_LANGUAGE", cfg.OCRLanguage, log)
	cfg.FrameIntervalSec = utils.GetEnvAsFloat("FRAME_INTERVAL_SEC", cfg.FrameIntervalSec, log)
	cfg.FrameWidth = utils.GetEnvAsInt("FRAME_WIDTH", cfg.FrameWidth, log)
	cfg.FrameHeight = utils.GetEnvAsInt("FRAME_HEIGHT", cfg.FrameHeight, log)
	cfg.WorkRoot = utils.GetEnv("WORK_ROOT", cfg.WorkRoot, log)
	cfg.SheetFontPath = utils.GetEnv("SHEET_FONT_PATH", cfg.SheetFontPath, log)

	if cfg.FrameIntervalSec <= 0 {
		return Config{}, fmt.Errorf("frame interval must be positive, got %v", cfg.FrameIntervalSec)
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		return Config{}, fmt.Errorf("frame size must be positive, got %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if v := strings.TrimSpace(fc.HTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if fc.ShutdownTimeoutSec > 0 {
		cfg.ShutdownTimeout = time.Duration(fc.ShutdownTimeoutSec) * time.Second
	}
	if v := strings.TrimSpace(fc.OpenAIBaseURL); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := strings.TrimSpace(fc.QuizModel); v != "" {
		cfg.QuizModel = v
	}
	if v := strings.TrimSpace(fc.SpeechModel); v != "" {
		cfg.SpeechModel = v
	}
	if fc.Temperature > 0 {
		cfg.Temperature = fc.Temperature
	}
	if fc.OpenAITimeoutSec > 0 {
		cfg.OpenAITimeout = time.Duration(fc.OpenAITimeoutSec) * time.Second
	}
	if v := strings.TrimSpace(fc.OCRLanguage); v != "" {
		cfg.OCRLanguage = v
	}
	if fc.FrameIntervalSec > 0 {
		cfg.FrameIntervalSec = fc.FrameIntervalSec
	}
	if fc.FrameWidth > 0 {
		cfg.FrameWidth = fc.FrameWidth
	}
	if fc.FrameHeight > 0 {
		cfg.FrameHeight = fc.FrameHeight
	}
	if v := strings.TrimSpace(fc.WorkRoot); v != "" {
		cfg.WorkRoot = v
	}
	if v := strings.TrimSpace(fc.SheetFontPath); v != "" {
		cfg.SheetFontPath = v
	}
}
