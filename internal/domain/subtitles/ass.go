package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/podclip/internal/types"
)

const (
	DefaultMaxWords = 5
	DefaultFontSize = 140
)

// Style is the single ASS style shared by every cue of a clip.
type Style struct {
	Font     string
	FontSize int
	Outline  float64
	Shadow   float64
	// Alignment uses ASS numpad values; 2 is bottom center.
	Alignment int
	MarginL   int
	MarginR   int
	MarginV   int
	PlayResX  int
	PlayResY  int
}

func DefaultStyle() Style {
	return Style{
		Font:      "Anton",
		FontSize:  DefaultFontSize,
		Outline:   2,
		Shadow:    2,
		Alignment: 2,
		MarginL:   50,
		MarginR:   50,
		MarginV:   50,
		PlayResX:  1080,
		PlayResY:  1920,
	}
}

// BuildCues groups the words overlapping [clipStart, clipEnd) into cues of
// at most maxWords words, timed relative to clipStart.
func BuildCues(words []types.Word, clipStart, clipEnd float64, maxWords int) []types.SubtitleCue {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	var (
		out []types.SubtitleCue
		cur []string
		cue types.SubtitleCue
	)
	for _, w := range words {
		if w.End <= clipStart || w.Start >= clipEnd {
			continue
		}
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		startRel := max(0, w.Start-clipStart)
		endRel := max(0, w.End-clipStart)
		if endRel <= 0 {
			continue
		}

		if len(cur) >= maxWords {
			cue.Text = strings.Join(cur, " ")
			out = append(out, cue)
			cur = nil
		}
		if len(cur) == 0 {
			cue = types.SubtitleCue{Start: startRel}
		}
		cur = append(cur, text)
		cue.End = endRel
	}
	if len(cur) > 0 {
		cue.Text = strings.Join(cur, " ")
		out = append(out, cue)
	}
	return out
}

// RenderASS serializes cues into an ASS document with one shared style.
func RenderASS(cues []types.SubtitleCue, st Style) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", st.PlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", st.PlayResY)

	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	// Colours are &HAABBGGRR; shadow is black at 50% alpha.
	fmt.Fprintf(&b, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,%s,%s,%d,%d,%d,%d,1\n",
		st.Font, st.FontSize, fmtFloat(st.Outline), fmtFloat(st.Shadow),
		st.Alignment, st.MarginL, st.MarginR, st.MarginV)

	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(dur(c.Start)))
		b.WriteString(",")
		b.WriteString(assTime(dur(c.End)))
		b.WriteString(",Default,,0,0,0,,")
		b.WriteString(sanitizeASS(c.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func fmtFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

// dur rounds to the millisecond so float noise does not drop a centisecond.
func dur(sec float64) time.Duration {
	return time.Duration(sec*1000+0.5) * time.Millisecond
}
