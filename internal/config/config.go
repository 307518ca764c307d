package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPTimeout time.Duration
	MaxImageDim int

	CustomVision CustomVision
	Training     Training
	Vision       Vision
	Face         Face
	Clarifai     Clarifai
	Gemini       Gemini

	CaptionProvider string // "clarifai" | "gemini"

	Telegram Telegram
	Journal  Journal
}

type CustomVision struct {
	PredictionEndpoint string
	PredictionKey      string
	ProjectID          string
	PublishedModelName string
}

type Training struct {
	Endpoint  string
	Key       string
	ProjectID string
}

type Vision struct {
	Endpoint string
	Key      string
}

type Face struct {
	Endpoint string
	Key      string
}

type Clarifai struct {
	PAT      string
	ModelURL string
}

type Gemini struct {
	APIKey string
	Model  string
}

type Telegram struct {
	BotToken   string
	WebhookURL string
	Port       string
}

type Journal struct {
	Enabled bool
	DSN     string
}

const (
	DefaultClarifaiModelURL = "https://api.clarifai.com/v2/users/clarifai/apps/main/models/general-image-recognition/outputs"
	DefaultGeminiModel      = "gemini-2.5-flash"
)

// Load reads .env (without overriding the real environment), then the settings file named by
// VISION_SETTINGS or found in the working directory, and resolves every key with environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	file, err := loadSettings(settingsPath())
	if err != nil {
		return nil, err
	}
	return build(source{lookup: os.LookupEnv, file: file})
}

func settingsPath() string {
	if p := strings.TrimSpace(os.Getenv("VISION_SETTINGS")); p != "" {
		return p
	}
	for _, p := range []string{"settings.yaml", "settings.yml", "appsettings.json"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func build(s source) (*Config, error) {
	timeout, err := s.duration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	maxDim, err := s.int("MAX_IMAGE_DIM", 0)
	if err != nil {
		return nil, err
	}
	journalOn, err := s.bool("JOURNAL_ENABLED", false)
	if err != nil {
		return nil, err
	}

	visionEndpoint := s.get("VISION_ENDPOINT", "AI_SERVICE_ENDPOINT", "AIServicesEndpoint")
	visionKey := s.get("VISION_KEY", "AI_SERVICE_KEY", "AIServicesKey")

	cfg := &Config{
		HTTPTimeout: timeout,
		MaxImageDim: maxDim,
		CustomVision: CustomVision{
			PredictionEndpoint: s.get("PredictionEndpoint"),
			PredictionKey:      s.get("PredictionKey"),
			ProjectID:          s.get("ProjectID"),
			PublishedModelName: s.get("PublishedModelName"),
		},
		Training: Training{
			Endpoint:  s.get("TrainingEndpoint"),
			Key:       s.get("TrainingKey"),
			ProjectID: s.get("ProjectID"),
		},
		Vision: Vision{Endpoint: visionEndpoint, Key: visionKey},
		Face: Face{
			Endpoint: orDefault(s.get("FACE_ENDPOINT"), visionEndpoint),
			Key:      orDefault(s.get("FACE_KEY"), visionKey),
		},
		Clarifai: Clarifai{
			PAT:      s.get("CLARIFAI_PAT"),
			ModelURL: orDefault(s.get("CLARIFAI_MODEL_URL"), DefaultClarifaiModelURL),
		},
		Gemini: Gemini{
			APIKey: s.get("GEMINI_API_KEY"),
			Model:  orDefault(s.get("GEMINI_MODEL"), DefaultGeminiModel),
		},
		CaptionProvider: strings.ToLower(orDefault(s.get("CAPTION_PROVIDER"), "clarifai")),
		Telegram: Telegram{
			BotToken:   s.get("TELEGRAM_BOT_TOKEN"),
			WebhookURL: s.get("WEBHOOK_URL"),
			Port:       orDefault(s.get("PORT"), "8080"),
		},
		Journal: Journal{
			Enabled: journalOn,
			DSN:     resolveDSN(s),
		},
	}
	switch cfg.CaptionProvider {
	case "clarifai", "gemini":
	default:
		return nil, fmt.Errorf("CAPTION_PROVIDER %q: use clarifai or gemini", cfg.CaptionProvider)
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// source resolves a key from the environment first, then the settings file.
type source struct {
	lookup func(string) (string, bool)
	file   map[string]string
}

// get returns the first non-empty value among keys.
func (s source) get(keys ...string) string {
	for _, k := range keys {
		if s.lookup != nil {
			if v, ok := s.lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		if v := strings.TrimSpace(s.file[k]); v != "" {
			return v
		}
	}
	return ""
}

func (s source) duration(key string, def time.Duration) (time.Duration, error) {
	v := s.get(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func (s source) int(key string, def int) (int, error) {
	v := s.get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}

func (s source) bool(key string, def bool) (bool, error) {
	v := s.get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
