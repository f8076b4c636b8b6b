// Package ytdlp fetches a remote video to a local MP4 with yt-dlp.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/podclip/internal/runner"
)

type Adapter struct {
	bin string
	run runner.Runner
}

func New(bin string, r runner.Runner) *Adapter {
	if bin == "" {
		bin = "yt-dlp"
	}
	if r == nil {
		r = runner.Exec{}
	}
	return &Adapter{bin: bin, run: r}
}

// Download saves the best MP4 rendition of url into dir and returns its path.
func (a *Adapter) Download(ctx context.Context, url, dir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("download: empty url")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, "source.mp4")
	_, err := a.run.Run(ctx, runner.Cmd{Name: a.bin, Args: []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b",
		"--merge-output-format", "mp4",
		"-o", out,
		url,
	}})
	if err != nil {
		return "", fmt.Errorf("yt-dlp %s: %w", url, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("yt-dlp finished without writing %s: %w", out, err)
	}
	return out, nil
}
