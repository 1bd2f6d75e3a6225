package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxhuang/fp-null-pointer/internal/ingest"
	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/scorer"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Score every detector output file in a directory",
	Long: `Score every .json, .yaml, .csv and .xlsx file in a directory concurrently
and write a CSV summary with one row per file. Files that fail to load or
score are reported with status "failed" and do not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		scorerCfg := applyScorerOverrides(cmd, cfg.Scorer)
		if err := scorer.ValidateConfig(scorerCfg); err != nil {
			return err
		}
		opts := ingestOptions(cmd, cfg.Ingest)

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentFiles
		}
		outputPath, _ := cmd.Flags().GetString("output")
		save, _ := cmd.Flags().GetBool("save")
		quiet, _ := cmd.Flags().GetBool("quiet")

		sources, err := listSources(args[0])
		if err != nil {
			return err
		}

		score := func(ctx context.Context, src string) (*scoreReport, *scorer.Result, error) {
			return scoreSource(ctx, src, opts, scorerCfg)
		}
		if save {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			score = func(ctx context.Context, src string) (*scoreReport, *scorer.Result, error) {
				report, res, err := scoreSource(ctx, src, opts, scorerCfg)
				if err != nil {
					return nil, nil, err
				}
				run := res.Run(report.Source, scorerCfg)
				if err := st.SaveRun(ctx, run); err != nil {
					return nil, nil, eris.Wrapf(err, "batch: save %s", src)
				}
				report.ID = run.ID
				return report, res, nil
			}
		}

		var progress io.Writer = os.Stderr
		if quiet {
			progress = io.Discard
		}

		rows, err := processBatch(ctx, sources, concurrency, progress, score)
		if err != nil {
			return err
		}

		return withOutput(outputPath, func(w io.Writer) error {
			return writeSummaryCSV(w, rows)
		})
	},
}

func init() {
	addScorerFlags(batchCmd)
	f := batchCmd.Flags()
	f.Int("concurrency", 0, "files scored in parallel (default from config)")
	f.String("output", "", "CSV summary path (default: stdout)")
	f.Bool("save", false, "save every assessment to the configured store")
	f.Bool("quiet", false, "hide the progress bar")
	rootCmd.AddCommand(batchCmd)
}

// batchRow is one line of the batch summary.
type batchRow struct {
	Source     string
	Assessment model.RiskAssessment
	Err        string
}

func rowFromReport(r *scoreReport) batchRow {
	return batchRow{Source: r.Source, Assessment: r.Assessment}
}

// listSources returns the loadable files directly inside dir, sorted by name.
func listSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read dir %s", dir)
	}

	var sources []string
	for _, e := range entries {
		if e.IsDir() || !ingest.Supported(e.Name()) {
			continue
		}
		sources = append(sources, filepath.Join(dir, e.Name()))
	}
	if len(sources) == 0 {
		return nil, eris.Errorf("batch: no detector output files in %s", dir)
	}
	return sources, nil
}

// scoreFunc scores a single source.
type scoreFunc func(ctx context.Context, src string) (*scoreReport, *scorer.Result, error)

// processBatch scores sources concurrently. Rows keep the order of sources;
// a failed source yields a row with Err set instead of aborting the batch.
func processBatch(ctx context.Context, sources []string, concurrency int, progress io.Writer, score scoreFunc) ([]batchRow, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("files", len(sources)),
		zap.Int("concurrency", concurrency),
	)

	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionSetDescription("scoring"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	rows := make([]batchRow, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, src := range sources {
		g.Go(func() error {
			defer bar.Add(1) //nolint:errcheck

			report, _, err := score(gctx, src)
			if err != nil {
				failed.Add(1)
				zap.L().Error("batch: scoring failed", zap.String("source", src), zap.Error(err))
				rows[i] = batchRow{Source: src, Err: err.Error()}
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			rows[i] = rowFromReport(report)
			rows[i].Source = src
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}
	_ = bar.Finish()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return rows, nil
}
