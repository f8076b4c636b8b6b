// Package delivery uploads finished clips exactly once per destination key
// and removes a clip's intermediates afterwards.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/rs/zerolog"

	"github.com/forPelevin/podclip/internal/metrics"
)

// Store is the destination object store.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key, localPath string) error
}

// OutputKey returns the destination key for clip index i of the source
// object: the source key's directory plus clip_<i>.mp4.
func OutputKey(sourceKey string, i int) string {
	dir := path.Dir(sourceKey)
	if dir == "." || dir == "/" {
		return fmt.Sprintf("clip_%d.mp4", i)
	}
	return fmt.Sprintf("%s/clip_%d.mp4", dir, i)
}

type Gate struct {
	Store Store
	Log   zerolog.Logger
	// Debug keeps intermediates on disk.
	Debug bool

	remove func(string) error
}

// Deliver uploads artifact to key unless an object already exists there, then
// deletes intermediates. It reports whether an upload happened. Existence
// errors other than not-found abort delivery; cleanup failures are logged.
func (g Gate) Deliver(ctx context.Context, key, artifact string, intermediates []string) (bool, error) {
	if g.Store == nil {
		return false, errors.New("delivery: no store configured")
	}
	log := g.Log.With().Str("key", key).Logger()

	exists, err := g.Store.Exists(ctx, key)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("check destination: %w", err)
	}

	uploaded := false
	if exists {
		log.Info().Msg("destination already exists, skipping upload")
		metrics.UploadsTotal.WithLabelValues("skipped").Inc()
	} else {
		if fi, err := os.Stat(artifact); err == nil {
			log.Info().Float64("size_mb", float64(fi.Size())/(1024*1024)).Msg("uploading clip")
		}
		if err := g.Store.Upload(ctx, key, artifact); err != nil {
			metrics.UploadsTotal.WithLabelValues("error").Inc()
			return false, err
		}
		uploaded = true
		metrics.UploadsTotal.WithLabelValues("uploaded").Inc()
	}

	if g.Debug {
		log.Debug().Int("files", len(intermediates)).Msg("debug mode, keeping intermediates")
		return uploaded, nil
	}
	g.cleanup(log, intermediates)
	return uploaded, nil
}

func (g Gate) cleanup(log zerolog.Logger, paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		rm := g.remove
		if rm == nil {
			rm = os.RemoveAll
		}
		err := rm(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("could not remove intermediate")
			continue
		}
		log.Debug().Str("path", p).Msg("removed intermediate")
	}
}
