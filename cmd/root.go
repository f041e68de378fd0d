package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ke112/nice-image-compress/internal/config"
)

var (
	version = "0.1.0"
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nic",
	Short: "Adaptive image recompression to a byte budget",
	Long: `nic — squeezes images as close to a byte budget as possible
without overshooting it, keeping quality as high as the budget allows.

Tries a platform codec fast path first when one is installed, then
navigates JPEG quality and pixel dimensions with a predictor-assisted
search.`,
	Version: version,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		return err
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"nic %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// cliLogger returns the engine logger: debug to stderr when --verbose,
// silent otherwise.
func cliLogger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
