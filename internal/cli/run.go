package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/podclip/internal/config"
	"github.com/forPelevin/podclip/internal/metrics"
	"github.com/forPelevin/podclip/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	flags := cmd.Flags()
	outDir, _ := flags.GetString("out")
	url, _ := flags.GetString("url")
	sourceKey, _ := flags.GetString("source-key")
	bucket, _ := flags.GetString("bucket")
	workers, _ := flags.GetInt("workers")
	maxWords, _ := flags.GetInt("max-words")
	fontSize, _ := flags.GetInt("font-size")
	debug, _ := flags.GetBool("debug")
	logLevel, _ := flags.GetString("log-level")
	metricsAddr, _ := flags.GetString("metrics-addr")
	envFile, _ := flags.GetString("env-file")

	if input == "" && url == "" {
		return errors.New("an input file or --url is required")
	}
	if input != "" && url != "" {
		return errors.New("pass either an input file or --url, not both")
	}

	app, err := config.Load(config.Overrides{
		EnvFile:          envFile,
		LogLevel:         logLevel,
		Workers:          workers,
		SubtitleMaxWords: maxWords,
		SubtitleFontSize: fontSize,
		Debug:            debug,
		MetricsAddr:      metricsAddr,
		Bucket:           bucket,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if app.Debug && logLevel == "" {
		app.LogLevel = "debug"
	}
	log := newLogger(cmd.ErrOrStderr(), app.LogLevel)

	absIn := ""
	if input != "" {
		if absIn, err = filepath.Abs(input); err != nil {
			return err
		}
	}

	cfg := pipeline.Config{
		InputMP4:  absIn,
		URL:       url,
		SourceKey: sourceKey,
		OutDir:    outDir,
		App:       app,
		Log:       log,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.MetricsAddr != "" {
		shutdown, err := serveMetrics(app.MetricsAddr, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	m, err := pipeline.Run(ctx, cfg)
	writeSummary(cmd.OutOrStdout(), m)
	return err
}

// newLogger writes human-readable output to a terminal and JSON otherwise.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := w
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}

func serveMetrics(addr string, log zerolog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	mlog := log.With().Str("component", "metrics").Logger()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mlog.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	mlog.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
