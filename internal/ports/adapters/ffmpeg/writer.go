package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/forPelevin/podclip/internal/domain/reframe"
	"github.com/forPelevin/podclip/internal/runner"
)

// FrameWriter streams raw RGBA frames into an ffmpeg process that encodes
// them to a video-only file.
type FrameWriter struct {
	w, h int
	pw   *io.PipeWriter
	done chan error
}

// NewFrameWriter starts ffmpeg reading w x h RGBA frames from stdin at fps.
func (a *Adapter) NewFrameWriter(ctx context.Context, out string, w, h, fps int) (*FrameWriter, error) {
	if w <= 0 || h <= 0 || fps <= 0 {
		return nil, fmt.Errorf("ffmpeg frame writer: invalid geometry %dx%d@%d", w, h, fps)
	}
	pr, pw := io.Pipe()
	fw := &FrameWriter{w: w, h: h, pw: pw, done: make(chan error, 1)}

	cmd := runner.Cmd{Name: a.ffmpeg, Stdin: pr, Args: []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", strconv.Itoa(w) + "x" + strconv.Itoa(h),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-an",
		"-c:v", codecX264,
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		out,
	}}
	go func() {
		_, err := a.run.Run(ctx, cmd)
		// Unblock any pending write if ffmpeg exits early.
		_ = pr.CloseWithError(io.ErrClosedPipe)
		fw.done <- err
	}()
	return fw, nil
}

// OpenFrameSink is NewFrameWriter typed for the reframing engine.
func (a *Adapter) OpenFrameSink(ctx context.Context, out string, w, h, fps int) (reframe.FrameSink, error) {
	fw, err := a.NewFrameWriter(ctx, out, w, h, fps)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

func (f *FrameWriter) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != f.w || b.Dy() != f.h {
		return fmt.Errorf("frame is %dx%d, writer expects %dx%d", b.Dx(), b.Dy(), f.w, f.h)
	}
	row := f.w * 4
	if img.Stride == row {
		off := img.PixOffset(b.Min.X, b.Min.Y)
		_, err := f.pw.Write(img.Pix[off : off+row*f.h])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := f.pw.Write(img.Pix[off : off+row]); err != nil {
			return err
		}
	}
	return nil
}

// Close ends the input stream and waits for ffmpeg to finalize the file.
func (f *FrameWriter) Close() error {
	_ = f.pw.Close()
	if err := <-f.done; err != nil {
		return fmt.Errorf("ffmpeg encode frames: %w", err)
	}
	return nil
}
