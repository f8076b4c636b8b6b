package types

import (
	"testing"
	"time"
)

func TestClipRangeDuration(t *testing.T) {
	r := ClipRange{Start: 12.25, End: 47.75}
	if got := r.Duration(); got != 35500*time.Millisecond {
		t.Fatalf("Duration = %v, want 35.5s", got)
	}
}
