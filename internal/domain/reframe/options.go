package reframe

const (
	DefaultWidth  = 1080
	DefaultHeight = 1920
	DefaultFPS    = 25

	// DefaultScoreWindow is the half-width, in frames, of the activity score average.
	DefaultScoreWindow = 30

	// DefaultSpeakerThreshold is the minimum averaged score for a face to count
	// as the active speaker. Detector scores are logits, so 0 is even odds.
	DefaultSpeakerThreshold = 0.0

	// DefaultBlurSigma matches a 121px Gaussian kernel at full background size.
	DefaultBlurSigma = 18.5

	// DefaultBackgroundDownscale blurs the background at 1/N size before upscaling.
	DefaultBackgroundDownscale = 4
)

// Options configures the output canvas and speaker selection.
type Options struct {
	Width  int
	Height int
	FPS    int

	ScoreWindow      int
	SpeakerThreshold float64

	BlurSigma           float64
	BackgroundDownscale int
}

func DefaultOptions() Options {
	return Options{
		Width:               DefaultWidth,
		Height:              DefaultHeight,
		FPS:                 DefaultFPS,
		ScoreWindow:         DefaultScoreWindow,
		SpeakerThreshold:    DefaultSpeakerThreshold,
		BlurSigma:           DefaultBlurSigma,
		BackgroundDownscale: DefaultBackgroundDownscale,
	}
}

// withDefaults fills zero-valued sizes. SpeakerThreshold is kept as given
// since 0 is a meaningful threshold.
func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.ScoreWindow <= 0 {
		o.ScoreWindow = DefaultScoreWindow
	}
	if o.BlurSigma <= 0 {
		o.BlurSigma = DefaultBlurSigma
	}
	if o.BackgroundDownscale <= 0 {
		o.BackgroundDownscale = DefaultBackgroundDownscale
	}
	return o
}
