package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func Main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "podclip [input.mp4]",
		Short:        "Cut vertical, subtitled clips from a long talking-head video",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd, input)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("out", "out", "Output directory")
	root.Flags().String("url", "", "Download the source from this URL with yt-dlp instead of reading a local file")
	root.Flags().String("source-key", "", "Storage key of the source video; clips are written next to it")
	root.Flags().String("bucket", "", "S3 bucket for finished clips (overrides S3_BUCKET)")
	root.Flags().Int("workers", 0, "Clips processed concurrently (overrides WORKERS)")
	root.Flags().Int("max-words", 0, "Words per subtitle cue (overrides SUBTITLE_MAX_WORDS)")
	root.Flags().Int("font-size", 0, "Subtitle font size (overrides SUBTITLE_FONTSIZE)")
	root.Flags().Bool("debug", false, "Keep intermediate files and log at debug level")
	root.Flags().String("log-level", "", "Log level (overrides LOG_LEVEL)")
	root.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	// Hidden: alternate env file, used by tests
	root.Flags().String("env-file", "", "Path to .env file")
	_ = root.Flags().MarkHidden("env-file")

	return root
}
