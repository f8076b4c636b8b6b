package types

import "time"

// Word is one recognized word with timing in seconds from the start of the source.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Chunk is a bounded-duration slice of an ordered transcript.
type Chunk []Word

// Span returns last.End - first.Start, or 0 for an empty chunk.
func (c Chunk) Span() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].End - c[0].Start
}

// ClipRange is a candidate output clip, in source seconds.
type ClipRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label,omitempty"`
}

func (r ClipRange) Duration() time.Duration {
	return time.Duration((r.End - r.Start) * float64(time.Second))
}

// FaceTrack is one tracked face across the frames of a clip. All slices are
// index-aligned; Frames is strictly increasing.
type FaceTrack struct {
	Frames []int     `json:"frame"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	S      []float64 `json:"s"`
}

func (t FaceTrack) Len() int { return len(t.Frames) }

// ActivityScores holds per-frame speaking likelihood for one track, aligned by
// index with FaceTrack.Frames.
type ActivityScores []float64

// SubtitleCue is one caption line, timed relative to the clip start.
type SubtitleCue struct {
	Start float64
	End   float64
	Text  string
}

type Manifest struct {
	RunID     string         `json:"run_id"`
	Input     string         `json:"input"`
	SourceKey string         `json:"source_key,omitempty"`
	Clips     []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Label    string  `json:"label,omitempty"`
	Key      string  `json:"key"`
	Uploaded bool    `json:"uploaded"`
	Cues     int     `json:"cues"`
	Frames   int     `json:"frames"`
	Error    string  `json:"error,omitempty"`
}
