package ports

import (
	"context"
	"time"

	"github.com/forPelevin/podclip/internal/domain/reframe"
	"github.com/forPelevin/podclip/internal/types"
)

type VideoTool interface {
	ExtractSegment(ctx context.Context, in string, start, end time.Duration, out string) error
	ExtractAudio(ctx context.Context, in, outWav string, sampleRate, channels int) error
	ExtractFrames(ctx context.Context, in, dir string, fps int) error
	OpenFrameSink(ctx context.Context, out string, w, h, fps int) (reframe.FrameSink, error)
	MuxAudio(ctx context.Context, video, audio, out string) error
	BurnSubtitles(ctx context.Context, in, assPath, out string) error
	ProbeDuration(ctx context.Context, in string) (time.Duration, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) ([]types.Word, error)
}

type Ranker interface {
	Rank(ctx context.Context, prompt string) (string, error)
}

// SpeakerDetector produces face tracks and per-frame speaking scores for the
// clip video at <videoFolder>/<videoName>.mp4.
type SpeakerDetector interface {
	Detect(ctx context.Context, videoFolder, videoName string) ([]types.FaceTrack, []types.ActivityScores, error)
}

type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key, localPath string) error
}
