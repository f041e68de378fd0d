package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ke112/nice-image-compress/internal/compress"
)

var probeTargetKB int

var probeCmd = &cobra.Command{
	Use:   "probe <image>",
	Short: "Run the search and report what it would do, writing nothing",
	Long: `Runs the full compression search with trial tracing enabled and
prints the chosen quality, dimensions and sizes. Nothing is written to
disk; use this to tune budgets before a batch run.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().IntVarP(&probeTargetKB, "target-kb", "t", 0, "target size in KB (default from config)")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	src := args[0]

	targetKB := cfg.TargetKB
	if cmd.Flags().Changed("target-kb") {
		targetKB = probeTargetKB
	}
	opts := compress.DefaultOptions(targetKB)
	opts.Format = parseFormat(cfg.Format)

	// Probe always traces trials.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	c := compress.New(compress.WithLogger(log))
	res, err := c.CompressFile(cmd.Context(), src, opts)
	if err != nil {
		return fmt.Errorf("probe %s: %w", src, err)
	}

	fmt.Println()
	fmt.Printf("  Source:   %s (%s)\n", src, formatBytes(int64(res.OriginalSize)))
	fmt.Printf("  Target:   %s\n", formatBytes(int64(targetKB*1024)))
	fmt.Printf("  Would be: %s at q=%d, %dx%d\n",
		formatBytes(int64(res.Size())), res.Quality, res.Width, res.Height)
	fmt.Printf("  Hash:     %s\n", res.Hash)
	if res.Passthrough {
		fmt.Println("  Input already under target; would pass through unchanged.")
	}
	fmt.Println()
	return nil
}
