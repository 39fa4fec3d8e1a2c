package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tomars/doppel/internal/output"
	"github.com/tomars/doppel/internal/progress"
	"github.com/tomars/doppel/internal/scanner"
	"github.com/tomars/doppel/pkg/analyzer/neardup"
	"github.com/tomars/doppel/pkg/config"
	"github.com/tomars/doppel/pkg/stats"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"s"},
		Usage:     "Scan a source tree for near-duplicate files",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "scope",
				Usage: "Comparison scope: global, module, language",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Minimum Jaccard similarity (0.0-1.0)",
			},
			&cli.IntFlag{
				Name:  "max-files",
				Usage: "Analyze at most this many files (0 = no cap)",
			},
			&cli.IntFlag{
				Name:  "max-pairs",
				Usage: "Report at most this many pairs (0 = no cap)",
			},
			&cli.Int64Flag{
				Name:  "max-bytes",
				Usage: "Fingerprint at most this many total bytes (0 = no cap)",
			},
			&cli.Int64Flag{
				Name:  "max-file-bytes",
				Usage: "Skip files larger than this many bytes",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Glob pattern for files to exclude (repeatable)",
			},
		},
		Action: runScan,
	}
}

func runScan(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyScanFlags(c, cfg)

	scope, err := neardup.ParseScope(cfg.Detect.Scope)
	if err != nil {
		return err
	}

	root := getRoot(c)
	candidates, src, err := scanner.New(cfg).Scan(root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(candidates) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	analyzer := neardup.New(
		neardup.WithScope(scope),
		neardup.WithThreshold(cfg.Detect.Threshold),
		neardup.WithMaxFiles(cfg.Detect.MaxFiles),
		neardup.WithMaxPairs(cfg.Detect.MaxPairs),
		neardup.WithMaxBytes(cfg.Detect.MaxBytes),
		neardup.WithMaxFileBytes(cfg.Detect.MaxFileBytes),
		neardup.WithExcludePatterns(cfg.Detect.Exclude),
	)

	// Size the bar from the exact set the analyzer will fingerprint.
	selected, err := analyzer.SelectCandidates(candidates)
	if err != nil {
		return err
	}
	tracker := progress.NewTracker("Fingerprinting files...", len(selected))
	report, err := analyzer.BuildReportWithProgress(candidates, src, tracker.Tick)
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON {
		return formatter.Output(report)
	}

	if len(report.Pairs) == 0 {
		color.Green("No near-duplicate files found (%d files analyzed)", report.FilesAnalyzed)
		return nil
	}

	pairTable := output.NewTable(
		"Near-Duplicate Pairs",
		[]string{"Left", "Right", "Similarity", "Shared"},
		pairRows(report.Pairs),
		nil,
		report,
	)
	if err := formatter.Output(pairTable); err != nil {
		return err
	}

	if len(report.Clusters) > 0 {
		clusterTable := output.NewTable(
			"Clusters",
			[]string{"Representative", "Files", "Max Similarity", "Pairs"},
			clusterRows(report.Clusters),
			nil,
			nil,
		)
		if err := formatter.Output(clusterTable); err != nil {
			return err
		}
	}

	printSummary(report, cfg.Output.Verbose || c.Bool("verbose"))
	return nil
}

// applyScanFlags overlays command-line flags onto the loaded config.
func applyScanFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("scope") {
		cfg.Detect.Scope = c.String("scope")
	}
	if c.IsSet("threshold") {
		cfg.Detect.Threshold = c.Float64("threshold")
	}
	if c.IsSet("max-files") {
		cfg.Detect.MaxFiles = c.Int("max-files")
	}
	if c.IsSet("max-pairs") {
		cfg.Detect.MaxPairs = c.Int("max-pairs")
	}
	if c.IsSet("max-bytes") {
		cfg.Detect.MaxBytes = c.Int64("max-bytes")
	}
	if c.IsSet("max-file-bytes") {
		cfg.Detect.MaxFileBytes = c.Int64("max-file-bytes")
	}
	if c.IsSet("exclude") {
		cfg.Detect.Exclude = c.StringSlice("exclude")
	}
}

func pairRows(pairs []neardup.PairRow) [][]string {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{
			p.Left,
			p.Right,
			fmt.Sprintf("%.4f", p.Similarity),
			fmt.Sprintf("%d", p.SharedFingerprints),
		}
	}
	return rows
}

func clusterRows(clusters []neardup.Cluster) [][]string {
	rows := make([][]string, len(clusters))
	for i, cl := range clusters {
		rows[i] = []string{
			cl.Representative,
			fmt.Sprintf("%d", len(cl.Files)),
			fmt.Sprintf("%.4f", cl.MaxSimilarity),
			fmt.Sprintf("%d", cl.PairCount),
		}
	}
	return rows
}

func printSummary(report *neardup.Report, verbose bool) {
	sims := make([]float64, len(report.Pairs))
	for i, p := range report.Pairs {
		sims[i] = p.Similarity
	}
	sort.Float64s(sims)

	fmt.Printf("%d pairs across %d clusters (%d files analyzed, %d skipped)\n",
		len(report.Pairs), len(report.Clusters), report.FilesAnalyzed, report.FilesSkipped)
	if len(sims) > 0 {
		fmt.Printf("similarity p50: %.4f  p95: %.4f\n",
			stats.Percentile(sims, 50), stats.Percentile(sims, 95))
	}
	if report.Truncated {
		color.Yellow("Pair list truncated at max_pairs; clusters reflect all pairs")
	}
	if verbose && report.Stats != nil {
		fmt.Printf("fingerprinting: %dms  pairing: %dms  bytes processed: %d\n",
			report.Stats.FingerprintingMS, report.Stats.PairingMS, report.Stats.BytesProcessed)
	}
}
