package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fillercut <input>",
		Short:        "Remove silences and filler words from a local video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Config file (default ./fillercut.toml or ~/.config/fillercut/config.toml)")

	// Visible flags
	f := root.Flags()
	f.String("out", "", "Output directory")
	f.String("name", "", "Base name of the output files")
	f.Int("min-silence", 0, "Minimum silence length in milliseconds")
	f.Float64("threshold", 0, "Silence threshold in dB relative to the average level")
	f.Float64("padding", 0, "Seconds trimmed from each side of a filler cut")
	f.StringSlice("filler", nil, "Filler word to remove (repeatable)")
	f.String("silence-backend", "", "Silence detector: pcm or ffmpeg")
	f.Bool("subtitles", false, "Write ASS subtitles retimed to the output")
	f.Bool("previews", false, "Save a JPEG frame from the middle of every cut")
	f.Bool("keep-work", false, "Keep intermediate segment files")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: console or json")

	// Hidden tuning flag (internal)
	f.Int("seek-step", 0, "Silence search step in milliseconds")
	_ = f.MarkHidden("seek-step")

	root.AddCommand(newHistoryCmd(), newConfigCmd())
	return root
}
