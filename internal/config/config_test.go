package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestBuildResolvesAliasesAndPrecedence(t *testing.T) {
	file := map[string]string{
		"AIServicesEndpoint": "https://file.cognitiveservices.azure.com/",
		"AIServicesKey":      "file-key",
		"PredictionKey":      "file-prediction",
	}
	env := map[string]string{
		"VISION_KEY":         "env-key",
		"PredictionKey":      "env-prediction",
		"PredictionEndpoint": "https://cv.example.com/",
		"ProjectID":          "p1",
		"PublishedModelName": "Iteration1",
		"HTTP_TIMEOUT":       "5s",
	}
	cfg, err := build(source{lookup: envOf(env), file: file})
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	if cfg.Vision.Endpoint != "https://file.cognitiveservices.azure.com/" {
		t.Errorf("Vision.Endpoint = %q", cfg.Vision.Endpoint)
	}
	if cfg.Vision.Key != "env-key" {
		t.Errorf("Vision.Key = %q, env alias must win over file alias", cfg.Vision.Key)
	}
	want := CustomVision{
		PredictionEndpoint: "https://cv.example.com/",
		PredictionKey:      "env-prediction",
		ProjectID:          "p1",
		PublishedModelName: "Iteration1",
	}
	if diff := cmp.Diff(want, cfg.CustomVision); diff != "" {
		t.Errorf("CustomVision mismatch (-want +got):\n%s", diff)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Face.Key != "env-key" {
		t.Errorf("Face.Key should fall back to vision key, got %q", cfg.Face.Key)
	}
	if cfg.CaptionProvider != "clarifai" || cfg.Clarifai.ModelURL != DefaultClarifaiModelURL {
		t.Errorf("defaults not applied: %q %q", cfg.CaptionProvider, cfg.Clarifai.ModelURL)
	}
	if cfg.Journal.DSN != "" {
		t.Errorf("Journal.DSN = %q, want empty when nothing is configured", cfg.Journal.DSN)
	}
}

func TestBuildRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timeout", map[string]string{"HTTP_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"HTTP_TIMEOUT": "-1s"}},
		{"bad dim", map[string]string{"MAX_IMAGE_DIM": "big"}},
		{"bad bool", map[string]string{"JOURNAL_ENABLED": "maybe"}},
		{"bad provider", map[string]string{"CAPTION_PROVIDER": "blip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := build(source{lookup: envOf(tt.env)}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateListsEveryMissingKey(t *testing.T) {
	err := CustomVision{PredictionEndpoint: "https://x/"}.Validate()
	var me *MissingError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MissingError, got %v", err)
	}
	want := []string{"PredictionKey", "ProjectID", "PublishedModelName"}
	if diff := cmp.Diff(want, me.Keys); diff != "" {
		t.Errorf("missing keys (-want +got):\n%s", diff)
	}
	if err := (Vision{Endpoint: "https://x/", Key: "k"}).Validate(); err != nil {
		t.Errorf("complete vision config: %v", err)
	}
}

func TestParseSettingsFlattensYAMLAndJSON(t *testing.T) {
	yamlDoc := []byte("AIServicesKey: abc\nMAX_IMAGE_DIM: 2048\nTelegram:\n  Port: 9000\n")
	got, err := parseSettings(yamlDoc)
	if err != nil {
		t.Fatalf("parseSettings(yaml) error = %v", err)
	}
	want := map[string]string{"AIServicesKey": "abc", "MAX_IMAGE_DIM": "2048", "Telegram:Port": "9000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("yaml (-want +got):\n%s", diff)
	}

	jsonDoc := []byte(`{"AIServicesEndpoint": "https://x/", "AIServicesKey": "k"}`)
	got, err = parseSettings(jsonDoc)
	if err != nil {
		t.Fatalf("parseSettings(json) error = %v", err)
	}
	if got["AIServicesEndpoint"] != "https://x/" || got["AIServicesKey"] != "k" {
		t.Errorf("json settings = %v", got)
	}
}

func TestResolveDSN(t *testing.T) {
	s := source{lookup: envOf(map[string]string{"POSTGRES_PASSWORD": "secret", "PGHOST": "db"})}
	dsn := resolveDSN(s)
	if dsn != "postgres://vision:secret@db:5432/vision?sslmode=disable" {
		t.Errorf("resolveDSN() = %q", dsn)
	}
	if got := SafeDSNSummary(dsn); got != "host=db port=5432 db=vision user=vision" {
		t.Errorf("SafeDSNSummary() = %q", got)
	}
	direct := source{lookup: envOf(map[string]string{"DATABASE_URL": "postgres://u@h/d"})}
	if got := resolveDSN(direct); got != "postgres://u@h/d" {
		t.Errorf("DATABASE_URL not preferred: %q", got)
	}
}
