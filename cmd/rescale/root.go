package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var flags struct {
	width    int
	height   int
	scale    float64
	filter   string
	workers  int
	outdir   string
	suffix   string
	quality  int
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "rescale [flags] input...",
	Short: "High quality batch image resizing",
	Long: `Rescale resamples images to a target size with a separable reconstruction
filter (Lanczos-3 by default). Inputs may be image files or directories, which
are walked recursively. JPEG inputs are written as JPEG and all other inputs
as PNG, next to the input or into --outdir.

With --width and --height, images are fit into the bounding box, preserving
aspect ratio unless both are given. --scale overrides both.`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch flags.logLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runConvert(cmd.Context(), args)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&flags.width, "width", "W", 0, "Target width in pixels (0 derives it from --height).")
	rootCmd.Flags().IntVarP(&flags.height, "height", "H", 0, "Target height in pixels (0 derives it from --width).")
	rootCmd.Flags().Float64Var(&flags.scale, "scale", 0, "Uniform scale factor, overrides --width and --height.")
	rootCmd.Flags().StringVar(&flags.filter, "filter", "lanczos3", "Reconstruction filter (lanczos3, lanczos2, triangle, catmullrom, mitchell).")
	rootCmd.Flags().IntVar(&flags.workers, "workers", 0, "Worker goroutines per pass (0 = number of CPUs).")
	rootCmd.Flags().StringVar(&flags.outdir, "outdir", "", "Output directory, created if missing (default: next to each input).")
	rootCmd.Flags().StringVar(&flags.suffix, "suffix", ".rs", "Suffix appended to output file names.")
	rootCmd.Flags().IntVar(&flags.quality, "quality", 90, "JPEG output quality.")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error).")
}
