package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/config"
	"github.com/forPelevin/podclip/internal/delivery"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Video.mp4", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-video-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-video-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func validApp() *config.Config {
	return &config.Config{
		OpenRouterAPIKey:  "sk-test",
		OpenRouterBaseURL: "https://openrouter.ai",
		WhisperModel:      "model.bin",
		Workers:           2,
		SubtitleMaxWords:  5,
		SubtitleFontSize:  140,
	}
}

func TestConfigValidate(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "url instead of file", mutate: func(c *Config) { c.InputMP4 = ""; c.URL = "https://example.com/v" }},
		{name: "missing input", mutate: func(c *Config) { c.InputMP4 = "" }, wantErr: true},
		{name: "input not found", mutate: func(c *Config) { c.InputMP4 = input + ".nope" }, wantErr: true},
		{name: "no api key", mutate: func(c *Config) { c.App.OpenRouterAPIKey = "" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.App.Workers = 0 }, wantErr: true},
		{name: "zero max words", mutate: func(c *Config) { c.App.SubtitleMaxWords = 0 }, wantErr: true},
		{name: "untrusted base url", mutate: func(c *Config) { c.App.OpenRouterBaseURL = "https://evil.example" }, wantErr: true},
		{name: "no app config", mutate: func(c *Config) { c.App = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{InputMP4: input, App: validApp()}
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	app := validApp()
	app.Workers = 4
	app.SubtitleFontSize = 96
	app.SpeakerThreshold = -0.5
	app.ChunkDuration = 300
	app.Debug = true

	opts := options(app)
	if opts.Workers != 4 || opts.Style.FontSize != 96 || opts.ChunkDuration != 300 || !opts.Debug {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Reframe.SpeakerThreshold != -0.5 {
		t.Fatalf("threshold not propagated: %v", opts.Reframe.SpeakerThreshold)
	}
	if opts.Style.Font != "Anton" {
		t.Fatalf("default style lost: %+v", opts.Style)
	}
}

func TestNewStore_LocalWhenNoBucket(t *testing.T) {
	dir := t.TempDir()
	s, err := newStore(context.Background(), validApp(), dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	ds, ok := s.(delivery.DirStore)
	if !ok {
		t.Fatalf("expected DirStore, got %T", s)
	}
	if ds.Root != filepath.Join(dir, "clips") {
		t.Fatalf("unexpected root %q", ds.Root)
	}
}

func TestLockWorkDir_Exclusive(t *testing.T) {
	dir := t.TempDir()
	unlock, err := lockWorkDir(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := lockWorkDir(dir); err == nil || !strings.Contains(err.Error(), "already using") {
		t.Fatalf("expected busy error, got %v", err)
	}

	unlock()
	again, err := lockWorkDir(dir)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}
