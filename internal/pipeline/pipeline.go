package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/config"
	"github.com/forPelevin/podclip/internal/delivery"
	"github.com/forPelevin/podclip/internal/domain/reframe"
	"github.com/forPelevin/podclip/internal/ports"
	"github.com/forPelevin/podclip/internal/ports/adapters/asd"
	"github.com/forPelevin/podclip/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/podclip/internal/ports/adapters/openrouter"
	"github.com/forPelevin/podclip/internal/ports/adapters/s3store"
	"github.com/forPelevin/podclip/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/podclip/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/podclip/internal/runner"
	"github.com/forPelevin/podclip/internal/types"
	"github.com/forPelevin/podclip/internal/usecase"
)

type Config struct {
	// InputMP4 is a local source file. Ignored when URL is set.
	InputMP4 string
	URL      string
	// SourceKey is the storage key of the source; clip keys live next to it.
	// Defaults to the input file name.
	SourceKey string
	OutDir    string

	// CacheDir is the base directory for per-run work dirs.
	// If empty, defaults to ".cache".
	CacheDir string

	App *config.Config
	Log zerolog.Logger
}

func (c Config) Validate() error {
	if c.App == nil {
		return errors.New("app config is required")
	}
	if c.URL == "" {
		if c.InputMP4 == "" {
			return errors.New("input is empty")
		}
		if _, err := os.Stat(c.InputMP4); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.App.OpenRouterAPIKey == "" {
		return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
	}
	if c.App.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.App.SubtitleMaxWords <= 0 {
		return fmt.Errorf("subtitle max words must be > 0")
	}
	if c.App.SubtitleFontSize <= 0 {
		return fmt.Errorf("subtitle font size must be > 0")
	}
	if c.App.WhisperModel == "" {
		return fmt.Errorf("whisper model path is required")
	}
	return openrouter.ValidateBaseURL(
		c.App.OpenRouterBaseURL,
		c.App.OpenRouterAllowedHosts,
	)
}

// Run processes one source end to end and writes manifest.json into a fresh
// run directory under OutDir. The manifest is written and returned even when
// some clips fail; the error then lists the failed clips.
func Run(ctx context.Context, cfg Config) (types.Manifest, error) {
	runID := uuid.NewString()
	log := cfg.Log.With().Str("run_id", runID).Logger()
	app := cfg.App

	jobSeed := cfg.InputMP4
	if cfg.URL != "" {
		jobSeed = cfg.URL
	}
	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	// The detector runs in its own directory, so the work dir must be absolute.
	workDir, err := filepath.Abs(filepath.Join(baseCache, "runs", hash(jobSeed)))
	if err != nil {
		return types.Manifest{}, err
	}
	log.Info().Str("dir", workDir).Msg("preparing workspace")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	unlock, err := lockWorkDir(workDir)
	if err != nil {
		return types.Manifest{}, err
	}
	defer unlock()

	var run runner.Runner = runner.Exec{}
	input := cfg.InputMP4
	if cfg.URL != "" {
		log.Info().Str("url", cfg.URL).Msg("downloading source")
		p, err := ytdlp.New(app.YtDlpPath, run).Download(ctx, cfg.URL, filepath.Join(workDir, "download"))
		if err != nil {
			return types.Manifest{}, err
		}
		input = p
	}
	absIn, err := filepath.Abs(input)
	if err != nil {
		return types.Manifest{}, err
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, absIn, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	log.Info().Str("dir", runOutDir).Msg("output run dir")

	store, err := newStore(ctx, app, runOutDir, log)
	if err != nil {
		return types.Manifest{}, err
	}

	video := ffmpeg.New(app.FFmpegPath, app.FFprobePath, ffmpeg.WithRunner(run), ffmpeg.WithLogger(log))
	if d, err := video.ProbeDuration(ctx, absIn); err == nil {
		log.Info().Dur("duration", d).Msg("source probed")
	} else {
		log.Warn().Err(err).Msg("could not probe source duration")
	}

	deps := usecase.Deps{
		Video:       video,
		Transcriber: whispercpp.New(app.WhisperBin, app.WhisperModel, run),
		Ranker:      openrouter.New(app.OpenRouterAPIKey, app.OpenRouterModel, app.OpenRouterBaseURL),
		Detector:    asd.New(app.DetectorBin, app.DetectorArgs, app.DetectorDir, app.DetectorModel, run, log),
		Store:       store,
		Log:         log,
	}
	uc := usecase.New(deps, options(app))

	sourceKey := cfg.SourceKey
	if sourceKey == "" {
		sourceKey = filepath.Base(absIn)
	}

	res, runErr := uc.Run(ctx, usecase.Input{
		Video:     absIn,
		SourceKey: sourceKey,
		WorkDir:   workDir,
	})

	m := res.Manifest
	m.RunID = runID
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return m, err
	}
	log.Info().Int("clips", len(m.Clips)).Str("path", manifestPath).Msg("manifest written")
	return m, runErr
}

// lockWorkDir holds an exclusive lock on the shared per-source work dir so
// two runs over the same input cannot interleave their intermediates.
func lockWorkDir(dir string) (func(), error) {
	lock := flock.New(filepath.Join(dir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire work dir lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another run is already using %s", dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

func options(app *config.Config) usecase.Options {
	opts := usecase.DefaultOptions()
	opts.Workers = app.Workers
	opts.ChunkDuration = app.ChunkDuration
	opts.MaxWords = app.SubtitleMaxWords
	opts.Style.FontSize = app.SubtitleFontSize
	opts.Reframe.SpeakerThreshold = app.SpeakerThreshold
	opts.Debug = app.Debug
	return opts
}

// newStore returns the S3 store when a bucket is configured, otherwise a
// directory store rooted at <runOutDir>/clips.
func newStore(ctx context.Context, app *config.Config, runOutDir string, log zerolog.Logger) (ports.ObjectStore, error) {
	if app.S3.Bucket != "" {
		s, err := s3store.New(ctx, app.S3, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	root := filepath.Join(runOutDir, "clips")
	log.Info().Str("dir", root).Msg("no S3 bucket configured, delivering to local directory")
	return delivery.DirStore{Root: root}, nil
}

func buildRunOutDir(outRoot, inputMP4 string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputMP4, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool       = (*ffmpeg.Adapter)(nil)
	_ ports.Transcriber     = (*whispercpp.Adapter)(nil)
	_ ports.Ranker          = (*openrouter.Adapter)(nil)
	_ ports.SpeakerDetector = (*asd.Adapter)(nil)
	_ ports.ObjectStore     = (*s3store.Store)(nil)
	_ ports.ObjectStore     = delivery.DirStore{}
	_ reframe.FrameSink     = (*ffmpeg.FrameWriter)(nil)
)
