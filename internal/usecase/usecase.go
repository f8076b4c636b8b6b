package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/podclip/internal/delivery"
	"github.com/forPelevin/podclip/internal/domain/highlights"
	"github.com/forPelevin/podclip/internal/domain/reframe"
	"github.com/forPelevin/podclip/internal/domain/subtitles"
	"github.com/forPelevin/podclip/internal/metrics"
	"github.com/forPelevin/podclip/internal/ports"
	"github.com/forPelevin/podclip/internal/types"
)

type Deps struct {
	Video       ports.VideoTool
	Transcriber ports.Transcriber
	Ranker      ports.Ranker
	Detector    ports.SpeakerDetector
	Store       ports.ObjectStore
	Log         zerolog.Logger
}

type Options struct {
	Workers       int
	ChunkDuration float64
	MaxWords      int
	Style         subtitles.Style
	Reframe       reframe.Options
	SampleRate    int
	Channels      int
	Debug         bool
}

func DefaultOptions() Options {
	return Options{
		Workers:       2,
		ChunkDuration: highlights.DefaultChunkDuration,
		MaxWords:      subtitles.DefaultMaxWords,
		Style:         subtitles.DefaultStyle(),
		Reframe:       reframe.DefaultOptions(),
		SampleRate:    16000,
		Channels:      1,
	}
}

type Usecase struct {
	d    Deps
	opts Options
	log  zerolog.Logger
}

func New(d Deps, opts Options) Usecase {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.ChunkDuration <= 0 {
		opts.ChunkDuration = def.ChunkDuration
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = def.MaxWords
	}
	if opts.Style.Font == "" {
		opts.Style = def.Style
	}
	if opts.Reframe.Width <= 0 || opts.Reframe.Height <= 0 || opts.Reframe.FPS <= 0 {
		threshold := opts.Reframe.SpeakerThreshold
		opts.Reframe = def.Reframe
		opts.Reframe.SpeakerThreshold = threshold
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = def.Channels
	}
	return Usecase{d: d, opts: opts, log: d.Log.With().Str("component", "usecase").Logger()}
}

type Input struct {
	Video string
	// SourceKey is the storage key of the source video; clip keys are derived from it.
	SourceKey string
	WorkDir   string
}

type Result struct {
	Manifest types.Manifest
}

// Run transcribes the source, selects clip ranges and processes the clips
// concurrently. A failed clip is recorded in the manifest and in the
// returned error; the other clips still run.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	m := types.Manifest{Input: in.Video, SourceKey: in.SourceKey}

	wav := filepath.Join(in.WorkDir, "audio.wav")
	if err := u.d.Video.ExtractAudio(ctx, in.Video, wav, u.opts.SampleRate, u.opts.Channels); err != nil {
		return Result{Manifest: m}, err
	}
	words, err := u.d.Transcriber.Transcribe(ctx, wav, in.WorkDir)
	if err != nil {
		return Result{Manifest: m}, fmt.Errorf("transcribe: %w", err)
	}
	u.log.Info().Int("words", len(words)).Msg("transcript ready")

	chunks := highlights.ChunkWords(words, u.opts.ChunkDuration)
	sel := highlights.Selector{Ranker: u.d.Ranker, Log: u.log}
	ranges := sel.Select(ctx, chunks)
	if len(ranges) == 0 {
		u.log.Warn().Msg("no clips selected")
		return Result{Manifest: m}, nil
	}

	clips := make([]types.ManifestClip, len(ranges))
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(u.opts.Workers)
	for i, r := range ranges {
		job := ClipJob{
			Index:   i,
			Range:   r,
			Source:  in.Video,
			BaseDir: in.WorkDir,
			Key:     delivery.OutputKey(in.SourceKey, i),
			Words:   words,
		}
		g.Go(func() error {
			mc, err := u.ProcessClip(ctx, job)
			if err != nil {
				u.log.Error().Err(err).Int("clip", job.Index).Msg("clip failed")
				metrics.ClipsTotal.WithLabelValues("failed").Inc()
				mc.Error = err.Error()
				mu.Lock()
				errs = append(errs, fmt.Errorf("clip %d: %w", job.Index, err))
				mu.Unlock()
			} else {
				metrics.ClipsTotal.WithLabelValues("ok").Inc()
			}
			clips[job.Index] = mc
			return nil
		})
	}
	_ = g.Wait()

	m.Clips = clips
	return Result{Manifest: m}, errors.Join(errs...)
}
