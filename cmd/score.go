package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/ingest"
	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/overlay"
	"github.com/rxhuang/fp-null-pointer/internal/resilience"
	"github.com/rxhuang/fp-null-pointer/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score <src>",
	Short: "Score one detector output file",
	Long: `Score the faces in one detector output file (.json, .yaml, .csv or .xlsx,
local or ftp://) and report the average pair distance, the safety score and
the risk tier.

Examples:
  # Score a scene with the default calibration
  score street.json

  # Assume a wider face and keep weaker detections
  score street.json --face-width 22 --threshold 0.25

  # Export the overlay and save the run
  score street.json --overlay street.geojson --save`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	addScorerFlags(scoreCmd)
	f := scoreCmd.Flags()
	f.String("format", "table", "output format: table, json or csv")
	f.String("output", "", "output file path (default: stdout)")
	f.String("overlay", "", "write a GeoJSON overlay of faces and pairs to this file")
	f.Bool("save", false, "save the assessment to the configured store")

	rootCmd.AddCommand(scoreCmd)
}

// scoreReport is the outcome of scoring one source.
type scoreReport struct {
	ID         string                `json:"id,omitempty"`
	Source     string                `json:"source"`
	Detection  model.DetectionCounts `json:"detection"`
	Assessment model.RiskAssessment  `json:"assessment"`
	Pairs      []model.PairDistance  `json:"pairs"`
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	overlayPath, _ := cmd.Flags().GetString("overlay")
	save, _ := cmd.Flags().GetBool("save")

	if format != "table" && format != "json" && format != "csv" {
		return eris.Errorf("score: --format must be table, json or csv (got %q)", format)
	}

	scorerCfg := applyScorerOverrides(cmd, cfg.Scorer)
	if err := scorer.ValidateConfig(scorerCfg); err != nil {
		return err
	}

	report, res, err := scoreSource(ctx, args[0], ingestOptions(cmd, cfg.Ingest), scorerCfg)
	if err != nil {
		return err
	}

	if overlayPath != "" {
		if err := writeOverlay(overlayPath, res); err != nil {
			return err
		}
	}

	if save {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run := res.Run(report.Source, scorerCfg)
		if err := st.SaveRun(ctx, run); err != nil {
			return eris.Wrap(err, "score: save")
		}
		report.ID = run.ID
		zap.L().Info("score: saved run", zap.String("id", run.ID))
	}

	return withOutput(outputPath, func(w io.Writer) error {
		switch format {
		case "json":
			return writeJSON(w, report)
		case "csv":
			return writeSummaryCSV(w, []batchRow{rowFromReport(report)})
		default:
			return writeScoreTable(w, report)
		}
	})
}

// addScorerFlags registers the scoring flags shared by score, whatif and batch.
func addScorerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("face-width", 0, "assumed face width in cm (overrides config)")
	f.Float64("threshold", 0, "face detection threshold in [0, 1) (overrides config)")
	f.Bool("share-endpoints", false, "let a face appear in two pairs (overrides config)")
}

// applyScorerOverrides returns a copy of the base config with CLI flag overrides applied.
func applyScorerOverrides(cmd *cobra.Command, base config.ScorerConfig) config.ScorerConfig {
	c := base

	if v, _ := cmd.Flags().GetFloat64("face-width"); v > 0 {
		c.AvgFaceWidth = v
	}
	if cmd.Flags().Changed("share-endpoints") {
		c.ShareEndpoints, _ = cmd.Flags().GetBool("share-endpoints")
	}

	return c
}

// ingestOptions builds ingest options from config with the --threshold override.
func ingestOptions(cmd *cobra.Command, base config.IngestConfig) ingest.Options {
	opts := ingest.Options{
		DetectionThreshold: base.DetectionThreshold,
		FTPTimeout:         time.Duration(base.FTPTimeoutSecs) * time.Second,
	}
	if base.FTPAttempts > 0 {
		opts.Retry = resilience.DefaultPolicy()
		opts.Retry.Attempts = base.FTPAttempts
	}
	if cmd.Flags().Changed("threshold") {
		opts.DetectionThreshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	return opts
}

// scoreSource reads src, reports detection counts at the reference
// thresholds and assesses the faces that pass opts.DetectionThreshold.
func scoreSource(ctx context.Context, src string, opts ingest.Options, scorerCfg config.ScorerConfig) (*scoreReport, *scorer.Result, error) {
	if err := checkThreshold(opts.DetectionThreshold); err != nil {
		return nil, nil, err
	}

	scene, err := ingest.Read(ctx, src, opts)
	if err != nil {
		return nil, nil, err
	}
	counts := scene.DetectionCounts(opts.DetectionThreshold)
	filtered := scene.Filter(opts.DetectionThreshold)

	if counts.Ambiguous() {
		zap.L().Info("score: face count depends on the detection threshold",
			zap.String("source", src),
			zap.Int("at_chosen", counts.AtChosen),
			zap.Int("at_low", counts.AtLow),
			zap.Int("at_high", counts.AtHigh),
		)
	}

	res, err := scorer.Assess(filtered.Faces, scorerCfg)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "score: %s", src)
	}

	return &scoreReport{
		Source:     filtered.Source,
		Detection:  counts,
		Assessment: res.Assessment,
		Pairs:      res.Pairs,
	}, res, nil
}

func checkThreshold(th float64) error {
	if th < 0 || th >= 1 {
		return eris.Errorf("threshold must be in [0, 1) (got %g)", th)
	}
	return nil
}

// tierTitle renders a tier for humans, e.g. "Very High".
func tierTitle(t model.RiskTier) string {
	if t == model.TierNone {
		return "-"
	}
	return cases.Title(language.English).String(t.Words())
}

func writeScoreTable(out io.Writer, r *scoreReport) error {
	a := r.Assessment
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Source:\t%s\n", r.Source)
	if r.ID != "" {
		_, _ = fmt.Fprintf(w, "Run ID:\t%s\n", r.ID)
	}
	_, _ = fmt.Fprintf(w, "Faces:\t%d\n", a.FaceCount)
	_, _ = fmt.Fprintf(w, "Detected:\t%d at %.2f, %d at %.2f, %d at %.2f\n",
		r.Detection.AtChosen, r.Detection.Threshold,
		r.Detection.AtLow, model.LowDetectionThreshold,
		r.Detection.AtHigh, model.HighDetectionThreshold)
	_, _ = fmt.Fprintf(w, "Pairs:\t%d\n", a.PairCount)
	if a.Status == model.StatusScored {
		_, _ = fmt.Fprintf(w, "Avg distance:\t%.2f cm (%.2f ft)\n", a.AverageDistanceCM, a.AverageDistanceFt())
		_, _ = fmt.Fprintf(w, "Safety score:\t%.4f\n", a.SafetyScore)
	}
	_, _ = fmt.Fprintf(w, "Risk:\t%s\n", tierTitle(a.Tier))
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "score: write table")
	}

	_, _ = fmt.Fprintf(out, "\n%s\n", a.Message)
	if d := a.Tier.Describe(); d != "" {
		_, _ = fmt.Fprintln(out, d)
	}
	if r.Detection.Ambiguous() {
		_, _ = fmt.Fprintln(out, "Face counts differ across detection thresholds; consider tuning --threshold.")
	}

	if len(r.Pairs) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(out)
	return writePairsTable(out, r.Pairs)
}

func writePairsTable(out io.Writer, pairs []model.PairDistance) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "I\tJ\tDISTANCE_CM\tDISTANCE_FT\tPAIRING")
	_, _ = fmt.Fprintln(w, "-\t-\t-----------\t-----------\t-------")
	for _, p := range pairs {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%.1f\t%.2f\t%s\n", p.I, p.J, p.DistanceCM, p.DistanceFt(), p.Pairing)
	}
	return eris.Wrap(w.Flush(), "score: write pairs")
}

func writeOverlay(path string, res *scorer.Result) error {
	data, err := overlay.Marshal(res.Faces, res.Pairs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "score: write overlay %s", path)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write json")
}

// withOutput runs fn against the file at path, or stdout when path is empty.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create output file %s", path)
	}
	if err := fn(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "close output file %s", path)
}

var summaryHeader = []string{
	"source", "status", "faces", "pairs", "avg_distance_cm",
	"density_score", "safety_score", "tier", "error",
}

func writeSummaryCSV(w io.Writer, rows []batchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return eris.Wrap(err, "write CSV header")
	}

	for _, r := range rows {
		a := r.Assessment
		record := []string{
			r.Source,
			string(a.Status),
			strconv.Itoa(a.FaceCount),
			strconv.Itoa(a.PairCount),
			strconv.FormatFloat(a.AverageDistanceCM, 'f', 2, 64),
			strconv.FormatFloat(a.DensityScore, 'f', 6, 64),
			strconv.FormatFloat(a.SafetyScore, 'f', 4, 64),
			string(a.Tier),
			r.Err,
		}
		if r.Err != "" {
			record[1] = "failed"
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "write CSV row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "flush CSV")
}
