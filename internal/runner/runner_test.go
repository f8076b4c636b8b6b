package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExec_CapturesStdout(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}
	res, err := Exec{}.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "printf hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Stdout) != "hello" {
		t.Fatalf("stdout = %q, want hello", res.Stdout)
	}
}

func TestExec_NonZeroExitIsExitError(t *testing.T) {
	if !Available("sh") {
		t.Skip("sh not available")
	}
	_, err := Exec{}.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T (%v)", err, err)
	}
	if exitErr.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", exitErr.ExitCode)
	}
	if exitErr.Stderr != "boom" {
		t.Fatalf("stderr = %q, want boom", exitErr.Stderr)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error text should include stderr: %v", err)
	}
}

func TestExec_MissingBinary(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), Cmd{Name: "definitely-not-a-real-binary-xyz"})
	if err == nil {
		t.Fatal("expected error")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Fatalf("missing binary should not be an ExitError")
	}
}

func TestCmdString(t *testing.T) {
	c := Cmd{Name: "ffmpeg", Args: []string{"-y", "-i", "in.mp4"}}
	if got := c.String(); got != "ffmpeg -y -i in.mp4" {
		t.Fatalf("String() = %q", got)
	}
}
