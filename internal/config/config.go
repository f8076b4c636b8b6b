package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	OpenRouterAPIKey       string   `env:"OPENROUTER_API_KEY"`
	OpenRouterModel        string   `env:"OPENROUTER_MODEL" envDefault:"z-ai/glm-4.5-air:free"`
	OpenRouterBaseURL      string   `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai"`
	OpenRouterAllowedHosts []string `env:"OPENROUTER_ALLOWED_HOSTS" envSeparator:","`

	S3 S3Config `envPrefix:"S3_"`

	FFmpegPath  string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`
	YtDlpPath   string `env:"YTDLP_PATH" envDefault:"yt-dlp"`

	WhisperBin   string `env:"WHISPER_BIN" envDefault:".cache/bin/whisper.cpp"`
	WhisperModel string `env:"WHISPER_MODEL" envDefault:".cache/models/ggml-base.bin"`

	// Empty DetectorArgs runs Columbia_test.py through the bundled JSON export
	// wrapper. A custom argv must write pywork/tracks.json and scores.json.
	DetectorBin   string   `env:"DETECTOR_BIN" envDefault:"python"`
	DetectorArgs  []string `env:"DETECTOR_ARGS" envSeparator:" "`
	DetectorDir   string   `env:"DETECTOR_DIR" envDefault:"LR-ASD"`
	DetectorModel string   `env:"DETECTOR_MODEL" envDefault:"weight/finetuning_TalkSet.model"`

	Workers          int     `env:"WORKERS" envDefault:"2"`
	ChunkDuration    float64 `env:"CHUNK_DURATION" envDefault:"600"`
	SpeakerThreshold float64 `env:"SPEAKER_THRESHOLD" envDefault:"0"`
	SubtitleMaxWords int     `env:"SUBTITLE_MAX_WORDS" envDefault:"5"`
	SubtitleFontSize int     `env:"SUBTITLE_FONTSIZE" envDefault:"140"`
	Debug            bool    `env:"DEBUG" envDefault:"false"`

	MetricsAddr string `env:"METRICS_ADDR"`
}

// S3Config holds connection settings for the clip destination bucket.
// Endpoint switches to path-style addressing for S3-compatible stores.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// Overrides holds CLI flag values that take priority over env vars.
// Zero values mean "not set".
type Overrides struct {
	EnvFile          string
	LogLevel         string
	Workers          int
	SubtitleMaxWords int
	SubtitleFontSize int
	Debug            bool
	MetricsAddr      string
	Bucket           string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Workers > 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.SubtitleMaxWords > 0 {
		cfg.SubtitleMaxWords = overrides.SubtitleMaxWords
	}
	if overrides.SubtitleFontSize > 0 {
		cfg.SubtitleFontSize = overrides.SubtitleFontSize
	}
	if overrides.Debug {
		cfg.Debug = true
	}
	if overrides.MetricsAddr != "" {
		cfg.MetricsAddr = overrides.MetricsAddr
	}
	if overrides.Bucket != "" {
		cfg.S3.Bucket = overrides.Bucket
	}

	return cfg, nil
}
