package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/podclip/internal/runner"
)

type fakeRunner struct {
	mu    sync.Mutex
	cmds  []runner.Cmd
	stdin bytes.Buffer
	// fail returns an error for the nth call when set.
	fail   func(n int, c runner.Cmd) error
	stdout string
}

func (f *fakeRunner) Run(_ context.Context, c runner.Cmd) (runner.Result, error) {
	f.mu.Lock()
	n := len(f.cmds)
	f.cmds = append(f.cmds, c)
	f.mu.Unlock()

	if c.Stdin != nil {
		b, _ := io.ReadAll(c.Stdin)
		f.mu.Lock()
		f.stdin.Write(b)
		f.mu.Unlock()
	}
	if f.fail != nil {
		if err := f.fail(n, c); err != nil {
			return runner.Result{}, err
		}
	}
	return runner.Result{Stdout: []byte(f.stdout)}, nil
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestMuxAudio_FallsBackToSoftwareEncoder(t *testing.T) {
	fr := &fakeRunner{fail: func(n int, c runner.Cmd) error {
		if argValue(c.Args, "-c:v") == codecNVENC {
			return &runner.ExitError{Cmd: "ffmpeg", ExitCode: 1, Stderr: "No NVENC capable devices found"}
		}
		return nil
	}}
	a := New("ffmpeg", "ffprobe", WithRunner(fr), WithHWAccel(true))

	if err := a.MuxAudio(context.Background(), "v.mp4", "a.wav", "out.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fr.cmds) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(fr.cmds))
	}
	if got := argValue(fr.cmds[1].Args, "-c:v"); got != codecX264 {
		t.Fatalf("fallback codec = %q", got)
	}
}

func TestMuxAudio_SoftwareFailureIsFatal(t *testing.T) {
	fr := &fakeRunner{fail: func(int, runner.Cmd) error {
		return &runner.ExitError{Cmd: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found"}
	}}
	a := New("ffmpeg", "ffprobe", WithRunner(fr), WithHWAccel(false))

	err := a.MuxAudio(context.Background(), "v.mp4", "a.wav", "out.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fr.cmds) != 1 {
		t.Fatalf("software failure must not be retried, got %d calls", len(fr.cmds))
	}
	if !strings.Contains(err.Error(), "ffmpeg mux audio") || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("error should carry stage and stderr: %v", err)
	}
}

func TestExtractSegment_Args(t *testing.T) {
	fr := &fakeRunner{}
	a := New("ffmpeg", "ffprobe", WithRunner(fr), WithHWAccel(false))
	if err := a.ExtractSegment(context.Background(), "in.mp4", 90*time.Second, 125500*time.Millisecond, "seg.mp4"); err != nil {
		t.Fatal(err)
	}
	args := fr.cmds[0].Args
	if argValue(args, "-ss") != "90.000" || argValue(args, "-t") != "35.500" {
		t.Fatalf("unexpected time args: %v", args)
	}
}

func TestBurnSubtitles_EscapesPath(t *testing.T) {
	fr := &fakeRunner{}
	a := New("ffmpeg", "ffprobe", WithRunner(fr))
	if err := a.BurnSubtitles(context.Background(), "in.mp4", `C:\subs\clip.ass`, "out.mp4"); err != nil {
		t.Fatal(err)
	}
	if got := argValue(fr.cmds[0].Args, "-vf"); got != `ass=C\:\\subs\\clip.ass` {
		t.Fatalf("unexpected filter: %s", got)
	}
}

func TestProbeDuration(t *testing.T) {
	fr := &fakeRunner{stdout: "12.500000\n"}
	a := New("ffmpeg", "ffprobe", WithRunner(fr))
	d, err := a.ProbeDuration(context.Background(), "in.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Fatalf("duration = %v", d)
	}
}

func TestFrameWriter_StreamsRawFrames(t *testing.T) {
	fr := &fakeRunner{}
	a := New("ffmpeg", "ffprobe", WithRunner(fr))

	w, err := a.NewFrameWriter(context.Background(), "video_only.mp4", 4, 2, 25)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 2))
		img.Pix[0] = byte(i + 1)
		if err := w.WriteFrame(img); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := fr.stdin.Bytes()
	if len(got) != 3*4*2*4 {
		t.Fatalf("streamed %d bytes, want %d", len(got), 3*4*2*4)
	}
	if got[0] != 1 || got[32] != 2 || got[64] != 3 {
		t.Fatalf("frames out of order")
	}
	if argValue(fr.cmds[0].Args, "-s") != "4x2" {
		t.Fatalf("unexpected size arg: %v", fr.cmds[0].Args)
	}
}

func TestFrameWriter_RejectsWrongSize(t *testing.T) {
	a := New("ffmpeg", "ffprobe", WithRunner(&fakeRunner{}))
	w, err := a.NewFrameWriter(context.Background(), "o.mp4", 4, 2, 25)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.WriteFrame(image.NewRGBA(image.Rect(0, 0, 3, 3))); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestFrameWriter_EncoderFailureSurfacesOnClose(t *testing.T) {
	fr := &fakeRunner{fail: func(int, runner.Cmd) error { return errors.New("encoder crashed") }}
	a := New("ffmpeg", "ffprobe", WithRunner(fr))
	w, err := a.NewFrameWriter(context.Background(), "o.mp4", 2, 2, 25)
	if err != nil {
		t.Fatal(err)
	}
	_ = w.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err := w.Close(); err == nil || !strings.Contains(err.Error(), "encoder crashed") {
		t.Fatalf("expected encoder error on close, got %v", err)
	}
}
