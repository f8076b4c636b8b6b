//go:build integration

package itest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
)

const modulePath = "github.com/forPelevin/podclip"

// findRepoRoot walks up from the working directory to the podclip go.mod.
func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		b, err := os.ReadFile(filepath.Join(wd, "go.mod"))
		if err == nil && bytes.Contains(b, []byte("module "+modulePath)) {
			return wd, nil
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", errors.New("could not locate podclip go.mod")
		}
		wd = parent
	}
}
