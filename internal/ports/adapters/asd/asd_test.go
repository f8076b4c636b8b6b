package asd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/podclip/internal/runner"
)

type scriptedRunner struct {
	got   runner.Cmd
	write func() error
}

func (s *scriptedRunner) Run(_ context.Context, c runner.Cmd) (runner.Result, error) {
	s.got = c
	if s.write != nil {
		return runner.Result{}, s.write()
	}
	return runner.Result{}, nil
}

func TestDetect_SubstitutesArgsAndLoadsArtifacts(t *testing.T) {
	base := t.TempDir()
	work := filepath.Join(base, "clip_0", "pywork")
	r := &scriptedRunner{write: func() error {
		if err := os.MkdirAll(work, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(work, "tracks.json"),
			[]byte(`[{"frame":[0,1],"x":[100,110],"y":[50,50],"s":[30,31]}]`), 0o644); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(work, "scores.json"), []byte(`[[0.4,-1.2]]`), 0o644)
	}}

	a := New("python", []string{
		"run_asd.py",
		"--videoName", "{video_name}",
		"--videoFolder", "{video_folder}",
		"--pretrainModel", "{model}",
	}, "/opt/LR-ASD", "weight/model.bin", r, zerolog.Nop())
	tracks, scores, err := a.Detect(context.Background(), base, "clip_0")
	require.NoError(t, err)

	assert.Equal(t, "/opt/LR-ASD", r.got.Dir)
	assert.Equal(t, []string{
		"run_asd.py",
		"--videoName", "clip_0",
		"--videoFolder", base,
		"--pretrainModel", "weight/model.bin",
	}, r.got.Args)

	require.Len(t, tracks, 1)
	assert.Equal(t, []int{0, 1}, tracks[0].Frames)
	assert.Equal(t, 110.0, tracks[0].X[1])
	require.Len(t, scores, 1)
	assert.Equal(t, -1.2, scores[0][1])
}

func TestDetect_MissingArtifact(t *testing.T) {
	a := New("python", nil, "", "", &scriptedRunner{}, zerolog.Nop())
	_, _, err := a.Detect(context.Background(), t.TempDir(), "clip_1")
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoadArtifacts_MismatchedLengths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracks.json"), []byte(`[{"frame":[0,1],"x":[1],"y":[1,2],"s":[1,2]}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scores.json"), []byte(`[[1,1]]`), 0o644))

	_, _, err := LoadArtifacts(dir)
	assert.Error(t, err)
}

func TestLoadArtifacts_ScoreCountMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracks.json"), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scores.json"), []byte(`[[1]]`), 0o644))

	_, _, err := LoadArtifacts(dir)
	assert.Error(t, err)
}

func TestDetect_DefaultArgsRunExportWrapper(t *testing.T) {
	base := t.TempDir()
	wrapper := filepath.Join(base, "clip_2_export_tracks.py")
	var script []byte
	r := &scriptedRunner{write: func() error {
		var err error
		script, err = os.ReadFile(wrapper)
		if err != nil {
			return err
		}
		work := filepath.Join(base, "clip_2", "pywork")
		if err := os.MkdirAll(work, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(work, "tracks.json"), []byte(`[]`), 0o644); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(work, "scores.json"), []byte(`[]`), 0o644)
	}}

	a := New("", nil, "LR-ASD", "weight/finetuning_TalkSet.model", r, zerolog.Nop())
	_, _, err := a.Detect(context.Background(), base, "clip_2")
	require.NoError(t, err)

	assert.Equal(t, "python", r.got.Name)
	assert.Equal(t, []string{
		wrapper,
		"--videoName", "clip_2",
		"--videoFolder", base,
		"--pretrainModel", "weight/finetuning_TalkSet.model",
	}, r.got.Args)

	s := string(script)
	assert.Contains(t, s, "Columbia_test.py")
	assert.Contains(t, s, "tracks.pckl")
	assert.Contains(t, s, "proc_track")
	assert.Contains(t, s, "tracks.json")
	assert.NoFileExists(t, wrapper, "wrapper is removed after the run")
}

func TestDetect_CustomArgsSkipWrapper(t *testing.T) {
	base := t.TempDir()
	a := New("sh", []string{"detect.sh", "{video_folder}", "{video_name}"}, "", "", &scriptedRunner{}, zerolog.Nop())
	_, _, _ = a.Detect(context.Background(), base, "clip_3")

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
