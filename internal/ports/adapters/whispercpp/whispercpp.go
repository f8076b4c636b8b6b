package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/podclip/internal/runner"
	"github.com/forPelevin/podclip/internal/types"
)

type Adapter struct {
	bin   string
	model string
	run   runner.Runner
}

func New(binPath, modelPath string, r runner.Runner) *Adapter {
	if r == nil {
		r = runner.Exec{}
	}
	return &Adapter{bin: binPath, model: modelPath, run: r}
}

type transcript struct {
	Segments []struct {
		Words []types.Word `json:"words"`
	} `json:"segments"`
}

// Transcribe runs whisper.cpp with word timestamps and returns the words in
// source order. Blank tokens are dropped.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) ([]types.Word, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	_, err := a.run.Run(ctx, runner.Cmd{Name: a.bin, Args: []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-owts",
	}})
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w", err)
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	return parseWords(jb)
}

func parseWords(b []byte) ([]types.Word, error) {
	var tr transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return nil, fmt.Errorf("decode whisper json: %w", err)
	}
	var out []types.Word
	for _, seg := range tr.Segments {
		for _, w := range seg.Words {
			w.Word = strings.TrimSpace(w.Word)
			if w.Word == "" {
				continue
			}
			out = append(out, w)
		}
	}
	return out, nil
}
