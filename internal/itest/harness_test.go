//go:build integration

package itest

import (
	"context"
	"errors"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

// podclipBinary compiles cmd/podclip once per test process.
func podclipBinary(t *testing.T, repoRoot string) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "podclip-itest-")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "podclip")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/podclip")
		cmd.Dir = repoRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = errors.New(err.Error() + "\n" + string(out))
		}
	})
	if buildErr != nil {
		t.Fatalf("build podclip: %v", buildErr)
	}
	return binPath
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out := runCLI(t, repoRoot, tc.args(t, repoRoot), tc.env)
			if code == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", out)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(out, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, out)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(out, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, out)
				}
			}
		})
	}
}

// runCLI runs the binary from repoRoot with an env file that does not exist,
// so only the process environment and env feed the config.
func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) (int, string) {
	t.Helper()
	bin := podclipBinary(t, repoRoot)

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	args = append(args, "--env-file", filepath.Join(t.TempDir(), "absent.env"))
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = mergeEnv(os.Environ(), map[string]string{"NO_COLOR": "1", "TERM": "dumb"}, env)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("podclip timed out after %s: %s", cliTimeout, strings.Join(args, " "))
	}
	if err == nil {
		return 0, string(out)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), string(out)
	}
	t.Fatalf("run podclip: %v\noutput:\n%s", err, string(out))
	return 0, ""
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	for _, set := range overrides {
		maps.Copy(env, set)
	}
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
