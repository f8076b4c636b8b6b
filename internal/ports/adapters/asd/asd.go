// Package asd runs an external active-speaker detector and loads the face
// tracks and per-frame speaking scores it leaves behind.
package asd

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/runner"
	"github.com/forPelevin/podclip/internal/types"
)

// ErrArtifactMissing is returned when the detector exits cleanly but the
// tracks or scores file is absent.
var ErrArtifactMissing = errors.New("detector artifact missing")

const (
	tracksFile = "tracks.json"
	scoresFile = "scores.json"
)

// exportScript wraps Columbia_test.py and converts its tracks.pckl and
// scores.pckl into the JSON files LoadArtifacts reads.
//
//go:embed export_tracks.py
var exportScript []byte

// DefaultArgs runs the stock LR-ASD demo script through the bundled export
// wrapper. {export_script} is written next to the clip video for each run.
var DefaultArgs = []string{
	"{export_script}",
	"--videoName", "{video_name}",
	"--videoFolder", "{video_folder}",
	"--pretrainModel", "{model}",
}

type Adapter struct {
	bin   string
	args  []string
	dir   string
	model string
	run   runner.Runner
	log   zerolog.Logger
}

// New builds a detector adapter. bin and args form the command line; args may
// contain {video_name}, {video_folder}, {model} and {export_script}
// placeholders. A custom command must leave tracks.json and scores.json in
// pywork itself. dir is the working directory the detector runs in.
func New(bin string, args []string, dir, model string, r runner.Runner, log zerolog.Logger) *Adapter {
	if bin == "" {
		bin = "python"
	}
	if len(args) == 0 {
		args = DefaultArgs
	}
	if r == nil {
		r = runner.Exec{}
	}
	return &Adapter{bin: bin, args: args, dir: dir, model: model, run: r, log: log.With().Str("component", "asd").Logger()}
}

// Detect runs the detector for the clip video at <videoFolder>/<videoName>.mp4
// and reads <videoFolder>/<videoName>/pywork/{tracks,scores}.json.
func (a *Adapter) Detect(ctx context.Context, videoFolder, videoName string) ([]types.FaceTrack, []types.ActivityScores, error) {
	script, err := a.writeExportScript(videoFolder, videoName)
	if err != nil {
		return nil, nil, err
	}
	if script != "" {
		defer os.Remove(script)
	}

	repl := strings.NewReplacer(
		"{video_name}", videoName,
		"{video_folder}", videoFolder,
		"{model}", a.model,
		"{export_script}", script,
	)
	args := make([]string, len(a.args))
	for i, s := range a.args {
		args[i] = repl.Replace(s)
	}

	a.log.Debug().Str("clip", videoName).Strs("args", args).Msg("running detector")
	if _, err := a.run.Run(ctx, runner.Cmd{Name: a.bin, Args: args, Dir: a.dir}); err != nil {
		return nil, nil, fmt.Errorf("active speaker detection: %w", err)
	}
	return LoadArtifacts(filepath.Join(videoFolder, videoName, "pywork"))
}

// writeExportScript drops the wrapper beside the clip video when the argv
// references it. The clip dir itself is wiped by Columbia_test.py.
func (a *Adapter) writeExportScript(videoFolder, videoName string) (string, error) {
	used := false
	for _, s := range a.args {
		if strings.Contains(s, "{export_script}") {
			used = true
			break
		}
	}
	if !used {
		return "", nil
	}
	p := filepath.Join(videoFolder, videoName+"_export_tracks.py")
	if err := os.WriteFile(p, exportScript, 0o644); err != nil {
		return "", fmt.Errorf("write detector wrapper: %w", err)
	}
	return p, nil
}

// LoadArtifacts decodes tracks.json and scores.json from workDir.
func LoadArtifacts(workDir string) ([]types.FaceTrack, []types.ActivityScores, error) {
	var tracks []types.FaceTrack
	if err := readJSON(filepath.Join(workDir, tracksFile), &tracks); err != nil {
		return nil, nil, err
	}
	var scores []types.ActivityScores
	if err := readJSON(filepath.Join(workDir, scoresFile), &scores); err != nil {
		return nil, nil, err
	}
	if len(scores) != len(tracks) {
		return nil, nil, fmt.Errorf("detector returned %d tracks but %d score arrays", len(tracks), len(scores))
	}
	for i, tr := range tracks {
		if len(tr.X) != tr.Len() || len(tr.Y) != tr.Len() || len(tr.S) != tr.Len() {
			return nil, nil, fmt.Errorf("track %d: coordinate arrays do not match %d frames", i, tr.Len())
		}
	}
	return tracks, scores, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
