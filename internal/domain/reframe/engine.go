package reframe

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder for extracted frames
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/metrics"
	"github.com/forPelevin/podclip/internal/types"
)

var ErrNoFrames = errors.New("reframe: no source frames")

// FrameSink receives composed frames in display order.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// SinkOpener creates the output stream. It is called once, on the first frame.
type SinkOpener func() (FrameSink, error)

// DecodeFunc loads one source frame.
type DecodeFunc func(path string) (image.Image, error)

type Input struct {
	// Frames are source frame paths in display order; tracks index into it.
	Frames []string
	Tracks []types.FaceTrack
	Scores []types.ActivityScores
}

type Stats struct {
	Frames    int
	Crop      int
	Letterbox int
	// Held counts unreadable source frames replaced by the previous output.
	Held int
}

type Engine struct {
	Opts   Options
	Open   SinkOpener
	Decode DecodeFunc
	Log    zerolog.Logger
}

// Render composes every frame and writes it to a sink opened on first use.
// The sink is closed on every return path. An unreadable source frame is
// replaced by the previous output frame (black before the first) so the
// stream keeps one output frame per source frame.
func (e *Engine) Render(ctx context.Context, in Input) (st Stats, err error) {
	if len(in.Frames) == 0 {
		return st, ErrNoFrames
	}
	decode := e.Decode
	if decode == nil {
		decode = DecodeFile
	}
	comp := NewCompositor(e.Opts)
	plan := Plan(len(in.Frames), in.Tracks, in.Scores, e.Opts)

	var sink FrameSink
	defer func() {
		if sink == nil {
			return
		}
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close frame sink: %w", cerr)
		}
	}()

	var last *image.RGBA
	for i, path := range in.Frames {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		var out *image.RGBA
		src, derr := decode(path)
		if derr != nil {
			e.Log.Warn().Err(derr).Int("frame", i).Msg("unreadable source frame, holding previous frame")
			out = last
			if out == nil {
				out = comp.Blank()
			}
			st.Held++
			metrics.FramesTotal.WithLabelValues("held").Inc()
		} else {
			var mode Mode
			out, mode = comp.Compose(src, plan[i])
			if mode == ModeCrop {
				st.Crop++
			} else {
				st.Letterbox++
			}
			metrics.FramesTotal.WithLabelValues(mode.String()).Inc()
		}

		if sink == nil {
			sink, err = e.Open()
			if err != nil {
				sink = nil
				return st, fmt.Errorf("open frame sink: %w", err)
			}
		}
		if err := sink.WriteFrame(out); err != nil {
			return st, fmt.Errorf("write frame %d: %w", i, err)
		}
		last = out
		st.Frames++
	}

	s := sink
	sink = nil
	if err := s.Close(); err != nil {
		return st, fmt.Errorf("close frame sink: %w", err)
	}
	e.Log.Debug().
		Int("frames", st.Frames).
		Int("crop", st.Crop).
		Int("letterbox", st.Letterbox).
		Int("held", st.Held).
		Msg("reframe finished")
	return st, nil
}

// DecodeFile reads and decodes an image file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// ListFrames returns the *.jpg files in dir in lexical order, which matches
// the zero-padded numbering used when extracting frames.
func ListFrames(dir string) ([]string, error) {
	frames, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	return frames, nil
}
