package highlights

import "github.com/forPelevin/podclip/internal/types"

// DefaultChunkDuration is the transcript window sent to the ranker in one request.
const DefaultChunkDuration = 600.0

// ChunkWords splits an ordered transcript into chunks. A chunk closes on the
// first word whose end is at least threshold seconds after the chunk's first
// start; the next word opens a new chunk. Only the final chunk may be shorter.
func ChunkWords(words []types.Word, threshold float64) []types.Chunk {
	if len(words) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultChunkDuration
	}

	var (
		out []types.Chunk
		cur types.Chunk
	)
	for _, w := range words {
		cur = append(cur, w)
		if w.End-cur[0].Start >= threshold {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
