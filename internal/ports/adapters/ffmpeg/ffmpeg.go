package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/runner"
)

const (
	codecNVENC = "h264_nvenc"
	codecX264  = "libx264"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	run     runner.Runner
	hwAccel bool
	log     zerolog.Logger
}

type Option func(*Adapter)

func WithRunner(r runner.Runner) Option { return func(a *Adapter) { a.run = r } }

// WithHWAccel forces NVENC on or off instead of probing for nvidia-smi.
func WithHWAccel(on bool) Option { return func(a *Adapter) { a.hwAccel = on } }

func WithLogger(l zerolog.Logger) Option { return func(a *Adapter) { a.log = l } }

func New(ffmpegPath, ffprobePath string, opts ...Option) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	a := &Adapter{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		run:     runner.Exec{},
		hwAccel: runner.Available("nvidia-smi"),
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ExtractSegment cuts [start, end) from the source and re-encodes it.
func (a *Adapter) ExtractSegment(ctx context.Context, in string, start, end time.Duration, out string) error {
	return a.encodeWithFallback(ctx, "ffmpeg extract segment", func(codec string) []string {
		return []string{
			"-y",
			"-hwaccel", "auto",
			"-i", in,
			"-ss", fmtSeconds(start),
			"-t", fmtSeconds(end - start),
			"-c:v", codec,
			"-preset", "fast",
			"-b:v", "1M",
			"-c:a", "aac",
			"-b:a", "128k",
			out,
		}
	})
}

// ExtractAudio writes 16-bit PCM WAV at the given rate and channel count.
func (a *Adapter) ExtractAudio(ctx context.Context, in, outWav string, sampleRate, channels int) error {
	_, err := a.run.Run(ctx, runner.Cmd{Name: a.ffmpeg, Args: []string{
		"-y",
		"-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		outWav,
	}})
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// ExtractFrames dumps frames at fps into dir as zero-padded JPEGs starting at 000001.jpg.
func (a *Adapter) ExtractFrames(ctx context.Context, in, dir string, fps int) error {
	_, err := a.run.Run(ctx, runner.Cmd{Name: a.ffmpeg, Args: []string{
		"-y",
		"-loglevel", "error",
		"-i", in,
		"-qscale:v", "2",
		"-threads", "0",
		"-r", strconv.Itoa(fps),
		"-f", "image2",
		filepath.Join(dir, "%06d.jpg"),
	}})
	if err != nil {
		return fmt.Errorf("ffmpeg extract frames: %w", err)
	}
	return nil
}

// MuxAudio combines the rendered video stream with the clip audio.
func (a *Adapter) MuxAudio(ctx context.Context, video, audio, out string) error {
	return a.encodeWithFallback(ctx, "ffmpeg mux audio", func(codec string) []string {
		return []string{
			"-y",
			"-hwaccel", "auto",
			"-i", video,
			"-i", audio,
			"-c:v", codec,
			"-preset", "fast",
			"-b:v", "1M",
			"-c:a", "aac",
			"-b:a", "128k",
			out,
		}
	})
}

// BurnSubtitles renders an ASS file onto the video with a full re-encode.
func (a *Adapter) BurnSubtitles(ctx context.Context, in, assPath, out string) error {
	_, err := a.run.Run(ctx, runner.Cmd{Name: a.ffmpeg, Args: []string{
		"-y",
		"-i", in,
		"-vf", "ass=" + escapeFilterPath(assPath),
		"-c:v", codecX264,
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "copy",
		out,
	}})
	if err != nil {
		return fmt.Errorf("ffmpeg burn subtitles: %w", err)
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	res, err := a.run.Run(ctx, runner.Cmd{Name: a.ffprobe, Args: []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	}})
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	s := strings.TrimSpace(string(res.Stdout))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// encodeWithFallback runs with NVENC when available and repeats the command
// once with libx264 if the hardware encoder exits non-zero.
func (a *Adapter) encodeWithFallback(ctx context.Context, label string, args func(codec string) []string) error {
	codec := codecX264
	if a.hwAccel {
		codec = codecNVENC
	}
	_, err := a.run.Run(ctx, runner.Cmd{Name: a.ffmpeg, Args: args(codec)})
	if err == nil {
		return nil
	}

	var exitErr *runner.ExitError
	if codec == codecNVENC && errors.As(err, &exitErr) {
		a.log.Warn().Str("stage", label).Int("exit", exitErr.ExitCode).Msg("hardware encoder failed, retrying with libx264")
		if _, err = a.run.Run(ctx, runner.Cmd{Name: a.ffmpeg, Args: args(codecX264)}); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", label, err)
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
