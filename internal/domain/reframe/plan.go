// Package reframe turns landscape frames into a vertical frame sequence,
// cropping around the active speaker or letterboxing over a blurred copy of
// the frame when nobody is speaking.
package reframe

import "github.com/forPelevin/podclip/internal/types"

// Mode is the per-frame reframing strategy.
type Mode int

const (
	ModeLetterbox Mode = iota
	ModeCrop
)

func (m Mode) String() string {
	switch m {
	case ModeCrop:
		return "crop"
	case ModeLetterbox:
		return "letterbox"
	default:
		return "unknown"
	}
}

// FaceCandidate is one track's presence at a single output frame.
type FaceCandidate struct {
	TrackID int
	// Score is the windowed mean of the track's activity scores.
	Score float64
	X     float64
	Y     float64
	S     float64
}

// Decision is the plan for one output frame. Speaker is only meaningful in
// ModeCrop.
type Decision struct {
	Mode    Mode
	Speaker FaceCandidate
}

// Plan decides the mode of every frame in [0, frameCount). Track entries that
// reference frames outside that range are ignored.
func Plan(frameCount int, tracks []types.FaceTrack, scores []types.ActivityScores, opts Options) []Decision {
	opts = opts.withDefaults()
	perFrame := candidatesByFrame(frameCount, tracks, scores, opts.ScoreWindow)

	out := make([]Decision, frameCount)
	for i := range out {
		speaker, ok := selectSpeaker(perFrame[i], opts.SpeakerThreshold)
		if !ok {
			out[i] = Decision{Mode: ModeLetterbox}
			continue
		}
		out[i] = Decision{Mode: ModeCrop, Speaker: speaker}
	}
	return out
}

func candidatesByFrame(frameCount int, tracks []types.FaceTrack, scores []types.ActivityScores, window int) [][]FaceCandidate {
	out := make([][]FaceCandidate, frameCount)
	for tid, tr := range tracks {
		var sc types.ActivityScores
		if tid < len(scores) {
			sc = scores[tid]
		}
		for k, frame := range tr.Frames {
			if frame < 0 || frame >= frameCount {
				continue
			}
			out[frame] = append(out[frame], FaceCandidate{
				TrackID: tid,
				Score:   windowedMean(sc, k, window),
				X:       at(tr.X, k),
				Y:       at(tr.Y, k),
				S:       at(tr.S, k),
			})
		}
	}
	return out
}

// windowedMean averages scores[k-window : k+window], clamped to the slice.
// An empty window averages to 0.
func windowedMean(scores types.ActivityScores, k, window int) float64 {
	lo := max(k-window, 0)
	hi := min(k+window, len(scores))
	if hi <= lo {
		return 0
	}
	var sum float64
	for _, v := range scores[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo)
}

// selectSpeaker returns the highest-scoring candidate, or false when there is
// none or the best score is below threshold. Ties keep the first track.
func selectSpeaker(cands []FaceCandidate, threshold float64) (FaceCandidate, bool) {
	if len(cands) == 0 {
		return FaceCandidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	if best.Score < threshold {
		return FaceCandidate{}, false
	}
	return best, true
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
