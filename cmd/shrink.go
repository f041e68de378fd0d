package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ke112/nice-image-compress/internal/compress"
	"github.com/ke112/nice-image-compress/internal/encoder"
)

var (
	shrinkTargetKB   int
	shrinkOut        string
	shrinkQuality    int
	shrinkMinQuality int
	shrinkFormat     string
	shrinkKeepEXIF   bool
	shrinkMaxWidth   int
	shrinkMaxHeight  int
)

var shrinkCmd = &cobra.Command{
	Use:   "shrink <image>",
	Short: "Compress one image to a byte budget",
	Long: `Compresses a single image so the output lands as close to the
target size as possible without exceeding it. Writes <name>.nic.<ext>
next to the input unless --out is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runShrink,
}

func init() {
	shrinkCmd.Flags().IntVarP(&shrinkTargetKB, "target-kb", "t", 0, "target size in KB (default from config)")
	shrinkCmd.Flags().StringVarP(&shrinkOut, "out", "o", "", "output path")
	shrinkCmd.Flags().IntVarP(&shrinkQuality, "quality", "q", 0, "upper quality bound 1-100")
	shrinkCmd.Flags().IntVar(&shrinkMinQuality, "min-quality", 0, "lower quality bound 1-100")
	shrinkCmd.Flags().StringVarP(&shrinkFormat, "format", "f", "", "output format (jpeg, png, webp)")
	shrinkCmd.Flags().BoolVar(&shrinkKeepEXIF, "keep-exif", false, "preserve EXIF metadata (jpeg only)")
	shrinkCmd.Flags().IntVar(&shrinkMaxWidth, "max-width", 0, "hard width ceiling in pixels")
	shrinkCmd.Flags().IntVar(&shrinkMaxHeight, "max-height", 0, "hard height ceiling in pixels")
	rootCmd.AddCommand(shrinkCmd)
}

// shrinkOptions merges flags over config defaults.
func shrinkOptions(cmd *cobra.Command) compress.Options {
	opts := compress.Options{
		TargetSizeKB: cfg.TargetKB,
		Format:       parseFormat(cfg.Format),
		KeepEXIF:     cfg.KeepEXIF,
		MaxWidth:     cfg.MaxWidth,
		MaxHeight:    cfg.MaxHeight,
	}
	if cfg.Quality > 0 {
		opts.InitialQuality = cfg.Quality
	}
	if cfg.MinQuality > 0 {
		opts.MinQuality = cfg.MinQuality
	}
	if cmd.Flags().Changed("target-kb") {
		opts.TargetSizeKB = shrinkTargetKB
	}
	if cmd.Flags().Changed("quality") {
		opts.InitialQuality = shrinkQuality
	}
	if cmd.Flags().Changed("min-quality") {
		opts.MinQuality = shrinkMinQuality
	}
	if cmd.Flags().Changed("format") {
		opts.Format = parseFormat(shrinkFormat)
	}
	if cmd.Flags().Changed("keep-exif") {
		opts.KeepEXIF = shrinkKeepEXIF
	}
	if cmd.Flags().Changed("max-width") {
		opts.MaxWidth = shrinkMaxWidth
	}
	if cmd.Flags().Changed("max-height") {
		opts.MaxHeight = shrinkMaxHeight
	}
	return opts
}

func parseFormat(s string) encoder.Format {
	switch strings.ToLower(s) {
	case "png":
		return encoder.PNG
	case "webp":
		return encoder.WebP
	default:
		return encoder.JPEG
	}
}

func outputExt(f encoder.Format) string {
	switch f {
	case encoder.PNG:
		return "png"
	case encoder.WebP:
		return "webp"
	default:
		return "jpg"
	}
}

func runShrink(cmd *cobra.Command, args []string) error {
	src := args[0]
	opts := shrinkOptions(cmd)

	c := compress.New(compress.WithLogger(cliLogger()))
	res, err := c.CompressFile(cmd.Context(), src, opts)
	if err != nil {
		return fmt.Errorf("compress %s: %w", src, err)
	}

	dst := shrinkOut
	if dst == "" {
		ext := outputExt(opts.Format)
		if res.Passthrough {
			// Untouched bytes keep their real container extension.
			if f := encoder.DetectFormat(res.Data); f != "" {
				ext = outputExt(f)
			} else {
				ext = strings.TrimPrefix(filepath.Ext(src), ".")
			}
		}
		base := strings.TrimSuffix(src, filepath.Ext(src))
		dst = fmt.Sprintf("%s.nic.%s", base, ext)
	}
	if err := os.WriteFile(dst, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}

	fmt.Printf("  %s\n", res)
	fmt.Printf("  → %s (%s)\n", dst, formatBytes(int64(res.Size())))
	return nil
}
