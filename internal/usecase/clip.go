package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/delivery"
	"github.com/forPelevin/podclip/internal/domain/reframe"
	"github.com/forPelevin/podclip/internal/domain/subtitles"
	"github.com/forPelevin/podclip/internal/metrics"
	"github.com/forPelevin/podclip/internal/types"
)

// ClipJob is one selected range of the source video.
type ClipJob struct {
	Index  int
	Range  types.ClipRange
	Source string
	// BaseDir holds clip_<i>/ work dirs and the detector's clip_<i>.mp4 input.
	BaseDir string
	Key     string
	Words   []types.Word
}

// clipPaths lays out a clip's work dir the way the speaker detector expects it.
type clipPaths struct {
	name      string
	dir       string
	segment   string
	detectIn  string
	frames    string
	avi       string
	audio     string
	videoOnly string
	vertical  string
	ass       string
	final     string
}

func newClipPaths(base string, i int) clipPaths {
	name := fmt.Sprintf("clip_%d", i)
	dir := filepath.Join(base, name)
	avi := filepath.Join(dir, "pyavi")
	return clipPaths{
		name:      name,
		dir:       dir,
		segment:   filepath.Join(dir, name+"_segment.mp4"),
		detectIn:  filepath.Join(base, name+".mp4"),
		frames:    filepath.Join(dir, "pyframes"),
		avi:       avi,
		audio:     filepath.Join(avi, "audio.wav"),
		videoOnly: filepath.Join(avi, "video_only.mp4"),
		vertical:  filepath.Join(avi, "video_out_vertical.mp4"),
		ass:       filepath.Join(avi, "subtitles.ass"),
		final:     filepath.Join(avi, "video_with_subtitles.mp4"),
	}
}

// intermediates is everything a clip leaves behind once it is delivered.
func (p clipPaths) intermediates() []string {
	return []string{p.dir, p.detectIn}
}

// ProcessClip runs one clip end to end: cut, audio, frames, speaker
// detection, reframing, mux, subtitles, delivery. Any stage error fails the
// clip before anything reaches the destination key.
func (u Usecase) ProcessClip(ctx context.Context, job ClipJob) (types.ManifestClip, error) {
	mc := types.ManifestClip{
		Index:    job.Index,
		StartSec: job.Range.Start,
		EndSec:   job.Range.End,
		Label:    job.Range.Label,
		Key:      job.Key,
	}
	log := u.log.With().Int("clip", job.Index).Str("key", job.Key).Logger()
	p := newClipPaths(job.BaseDir, job.Index)

	// Work dirs are reused across runs of the same source; leftovers from a
	// debug or failed run would otherwise be picked up as frames.
	for _, stale := range []string{p.dir, p.detectIn} {
		if err := os.RemoveAll(stale); err != nil {
			return mc, fmt.Errorf("clear work dir: %w", err)
		}
	}
	for _, d := range []string{p.frames, p.avi, filepath.Join(p.dir, "pywork")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return mc, err
		}
	}

	start := secondsToDuration(job.Range.Start)
	end := secondsToDuration(job.Range.End)
	log.Info().
		Float64("start", job.Range.Start).
		Float64("end", job.Range.End).
		Dur("duration", job.Range.Duration()).
		Msg("processing clip")

	if err := stage(log, "segment", func() error {
		return u.d.Video.ExtractSegment(ctx, job.Source, start, end, p.segment)
	}); err != nil {
		return mc, err
	}
	if err := stage(log, "audio", func() error {
		return u.d.Video.ExtractAudio(ctx, p.segment, p.audio, u.opts.SampleRate, u.opts.Channels)
	}); err != nil {
		return mc, err
	}
	if err := copyFile(p.segment, p.detectIn); err != nil {
		return mc, err
	}
	if err := stage(log, "frames", func() error {
		return u.d.Video.ExtractFrames(ctx, p.segment, p.frames, u.opts.Reframe.FPS)
	}); err != nil {
		return mc, err
	}

	var (
		tracks []types.FaceTrack
		scores []types.ActivityScores
	)
	if err := stage(log, "detect", func() error {
		var err error
		tracks, scores, err = u.d.Detector.Detect(ctx, job.BaseDir, p.name)
		return err
	}); err != nil {
		return mc, err
	}
	log.Debug().Int("tracks", len(tracks)).Msg("speaker detection finished")

	var st reframe.Stats
	if err := stage(log, "reframe", func() error {
		frames, err := reframe.ListFrames(p.frames)
		if err != nil {
			return err
		}
		eng := &reframe.Engine{
			Opts: u.opts.Reframe,
			Open: func() (reframe.FrameSink, error) {
				return u.d.Video.OpenFrameSink(ctx, p.videoOnly, u.opts.Reframe.Width, u.opts.Reframe.Height, u.opts.Reframe.FPS)
			},
			Log: log,
		}
		st, err = eng.Render(ctx, reframe.Input{Frames: frames, Tracks: tracks, Scores: scores})
		return err
	}); err != nil {
		return mc, err
	}
	mc.Frames = st.Frames

	if err := stage(log, "mux", func() error {
		return u.d.Video.MuxAudio(ctx, p.videoOnly, p.audio, p.vertical)
	}); err != nil {
		return mc, err
	}

	cues := subtitles.BuildCues(job.Words, job.Range.Start, job.Range.End, u.opts.MaxWords)
	mc.Cues = len(cues)
	if err := stage(log, "subtitles", func() error {
		if err := os.WriteFile(p.ass, []byte(subtitles.RenderASS(cues, u.opts.Style)), 0o644); err != nil {
			return err
		}
		return u.d.Video.BurnSubtitles(ctx, p.vertical, p.ass, p.final)
	}); err != nil {
		return mc, err
	}

	gate := delivery.Gate{Store: u.d.Store, Log: log, Debug: u.opts.Debug}
	if err := stage(log, "deliver", func() error {
		var err error
		mc.Uploaded, err = gate.Deliver(ctx, job.Key, p.final, p.intermediates())
		return err
	}); err != nil {
		return mc, err
	}
	log.Info().Int("frames", st.Frames).Int("held", st.Held).Int("cues", len(cues)).Bool("uploaded", mc.Uploaded).Msg("clip done")
	return mc, nil
}

func stage(log zerolog.Logger, name string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(t0).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug().Str("stage", name).Dur("took", time.Since(t0)).Msg("stage finished")
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
