package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	before := testutil.ToFloat64(ClipsTotal.WithLabelValues("ok"))
	ClipsTotal.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ClipsTotal.WithLabelValues("ok")))

	FramesTotal.WithLabelValues("crop").Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `podclip_clips_total{outcome="ok"}`)
	assert.Contains(t, string(body), `podclip_reframe_frames_total{mode="crop"}`)
}
