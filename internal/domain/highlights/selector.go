package highlights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/metrics"
	"github.com/forPelevin/podclip/internal/types"
)

// Ranker submits a prompt to the ranking collaborator and returns its raw text.
type Ranker interface {
	Rank(ctx context.Context, prompt string) (string, error)
}

var ErrNotArray = errors.New("ranker response is not a JSON array")

// Selector turns transcript chunks into clip ranges using a Ranker.
type Selector struct {
	Ranker Ranker
	Log    zerolog.Logger
}

// Select ranks every chunk in order and concatenates the parsed ranges. A
// chunk whose request or response fails contributes no clips; nothing is
// retried and ranges are returned exactly as the ranker produced them.
func (s Selector) Select(ctx context.Context, chunks []types.Chunk) []types.ClipRange {
	var all []types.ClipRange
	for i, chunk := range chunks {
		log := s.Log.With().Int("chunk", i).Int("words", len(chunk)).Logger()

		raw, err := s.Ranker.Rank(ctx, BuildPrompt(chunk))
		if err != nil {
			log.Error().Err(err).Msg("ranker request failed")
			metrics.RankingFailures.WithLabelValues("request").Inc()
			continue
		}
		log.Debug().Str("raw", truncate(raw, 400)).Msg("ranker response")

		ranges, err := ParseClipRanges(raw)
		if err != nil {
			log.Error().Err(err).Str("raw", truncate(raw, 400)).Msg("could not parse ranker output")
			metrics.RankingFailures.WithLabelValues("parse").Inc()
			continue
		}
		log.Debug().Int("clips", len(ranges)).Msg("parsed clip ranges")
		all = append(all, ranges...)
	}
	s.Log.Info().Int("chunks", len(chunks)).Int("clips", len(all)).Msg("clip selection finished")
	return all
}

// ParseClipRanges decodes the ranker text, tolerating a surrounding
// ```json fence. Anything other than a JSON array is an error.
func ParseClipRanges(raw string) ([]types.ClipRange, error) {
	clean := stripFence(raw)
	if clean == "" {
		return nil, errors.New("ranker response is empty")
	}
	if !strings.HasPrefix(clean, "[") {
		return nil, fmt.Errorf("%w: %q", ErrNotArray, truncate(clean, 80))
	}
	var out []types.ClipRange
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode clip ranges: %w", err)
	}
	return out, nil
}

func stripFence(s string) string {
	t := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(t, "```json"):
		t = t[len("```json"):]
	case strings.HasPrefix(t, "```"):
		t = t[len("```"):]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// BuildPrompt renders the ranking instructions followed by the chunk's words.
func BuildPrompt(chunk types.Chunk) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("The transcript is as follows:\n\n")
	b.WriteString("[")
	for i, w := range chunk {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`{"word": `)
		b.WriteString(strconv.Quote(w.Word))
		b.WriteString(`, "start": `)
		b.WriteString(strconv.FormatFloat(w.Start, 'f', -1, 64))
		b.WriteString(`, "end": `)
		b.WriteString(strconv.FormatFloat(w.End, 'f', -1, 64))
		b.WriteString("}")
	}
	b.WriteString("]")
	return b.String()
}

const instructions = "This is a podcast video transcript consisting of words, each with a start and end time. " +
	"I am looking to create clips between a minimum of 10 and maximum of 60 seconds long. The clip should never exceed 60 seconds.\n" +
	"Your task is to find and extract the most interesting, engaging, or highlight moments from the transcript.\n" +
	"These could be stories, jokes, strong opinions, emotional moments, or question and answer exchanges.\n" +
	"Each clip should be a self-contained moment that would be engaging for a short-form video audience.\n" +
	"It is acceptable for the clip to include a few additional sentences before or after the main moment if it aids in context.\n" +
	"Please adhere to the following rules:\n" +
	"- Ensure that clips do not overlap with one another.\n" +
	"- Start and end timestamps of the clips should align perfectly with the sentence boundaries in the transcript.\n" +
	"- Only use the start and end timestamps provided in the input. Modifying timestamps is not allowed.\n" +
	"- Format the output as a JSON array of objects, each representing a clip with 'start' and 'end' timestamps: " +
	`[{"start": seconds, "end": seconds}, ...clip2, clip3]. Return strictly valid JSON.` + "\n" +
	"- Aim to generate longer clips between 30-60 seconds if possible, but allow shorter (10+ seconds) if the moment is strong.\n" +
	"Avoid including:\n" +
	"- Moments of greeting, thanking, or saying goodbye.\n" +
	"If there are no valid clips to extract, the output should be an empty JSON array [].\n"

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
