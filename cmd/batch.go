package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ke112/nice-image-compress/internal/compress"
	"github.com/ke112/nice-image-compress/internal/hasher"
)

var (
	batchOutDir   string
	batchTargetKB int
)

var batchCmd = &cobra.Command{
	Use:   "batch <input_dir>",
	Short: "Compress every image in a directory to the byte budget",
	Long: `Walks the input directory for images (png, jpg, jpeg, webp, gif,
bmp, tiff) and compresses each to the target size. Output filenames are
content-addressed: <name>.<w>.<h>.<hash>.<ext>.

Decode and encode concurrency is bounded by the engine's gate. Each
file is read into memory before it waits for a permit.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "./nic_out", "output directory")
	batchCmd.Flags().IntVarP(&batchTargetKB, "target-kb", "t", 0, "target size in KB (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// imageExtensions lists recognized image file extensions.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// scanImages walks the input directory and returns all image paths.
func scanImages(inputDir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Skip hidden directories.
			if strings.HasPrefix(info.Name(), ".") && info.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

type batchResult struct {
	src     string
	outPath string
	in      int64
	out     int64
	err     error
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	start := time.Now()

	targetKB := cfg.TargetKB
	if cmd.Flags().Changed("target-kb") {
		targetKB = batchTargetKB
	}
	opts := compress.DefaultOptions(targetKB)
	opts.Format = parseFormat(cfg.Format)
	opts.KeepEXIF = cfg.KeepEXIF

	sources, err := scanImages(inputDir)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no images found in %s", inputDir)
	}

	if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	c := compress.New(compress.WithLogger(cliLogger()))
	ext := outputExt(opts.Format)

	results := make([]batchResult, len(sources))
	var mu sync.Mutex

	// The engine's gate already bounds decode/encode concurrency; the
	// errgroup just keeps one goroutine per file queued against it.
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			r := batchResult{src: src}
			defer func() {
				mu.Lock()
				results[i] = r
				mu.Unlock()
			}()

			res, err := c.CompressFile(ctx, src, opts)
			if err != nil {
				r.err = fmt.Errorf("%s: %w", src, err)
				return nil // keep going; partial failures are reported at the end
			}

			base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			outExt := ext
			if res.Passthrough {
				outExt = strings.TrimPrefix(filepath.Ext(src), ".")
			}
			name := hasher.BlobName(base, res.Width, res.Height, res.Data, outExt)
			r.outPath = filepath.Join(batchOutDir, name)
			r.in = int64(res.OriginalSize)
			r.out = int64(res.Size())

			if err := os.WriteFile(r.outPath, res.Data, 0o644); err != nil {
				r.err = fmt.Errorf("write %s: %w", r.outPath, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printBatchReport(results, time.Since(start))

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "[nic] error: %v\n", r.err)
		}
	}
	if failed == len(results) {
		return fmt.Errorf("all %d images failed", failed)
	}
	return nil
}

func printBatchReport(results []batchResult, elapsed time.Duration) {
	var totalIn, totalOut int64
	var ok int
	for _, r := range results {
		if r.err != nil {
			continue
		}
		ok++
		totalIn += r.in
		totalOut += r.out
	}

	ratio := float64(0)
	if totalIn > 0 {
		ratio = float64(totalOut) / float64(totalIn) * 100
	}

	fmt.Println()
	fmt.Printf("  Images:      %d\n", ok)
	fmt.Printf("  Input size:  %s\n", formatBytes(totalIn))
	fmt.Printf("  Output size: %s\n", formatBytes(totalOut))
	fmt.Printf("  Ratio:       %.1f%% of original\n", ratio)
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()

	// Top 10 heaviest inputs.
	sorted := make([]batchResult, 0, len(results))
	for _, r := range results {
		if r.err == nil {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].in > sorted[j].in })
	n := len(sorted)
	if n > 10 {
		n = 10
	}
	if n > 0 {
		fmt.Printf("  Top %d heaviest (original → compressed):\n", n)
		for _, r := range sorted[:n] {
			saved := float64(0)
			if r.in > 0 {
				saved = (1 - float64(r.out)/float64(r.in)) * 100
			}
			fmt.Printf("    %-40s %8s → %8s  (−%.0f%%)\n",
				truncKey(r.src, 40), formatBytes(r.in), formatBytes(r.out), saved)
		}
		fmt.Println()
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
