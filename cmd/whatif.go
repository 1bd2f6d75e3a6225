package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rxhuang/fp-null-pointer/internal/ingest"
	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/scorer"
)

var whatifCmd = &cobra.Command{
	Use:   "whatif <src>",
	Short: "Compare risk before and after everyone wears a mask",
	Long: `Score a scene, mark every unmasked face as masked and score it again.
Face positions are unchanged, so only mask weighting moves the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("score"); err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format != "table" && format != "json" {
			return eris.Errorf("whatif: --format must be table or json (got %q)", format)
		}
		outputPath, _ := cmd.Flags().GetString("output")
		save, _ := cmd.Flags().GetBool("save")

		scorerCfg := applyScorerOverrides(cmd, cfg.Scorer)
		if err := scorer.ValidateConfig(scorerCfg); err != nil {
			return err
		}

		opts := ingestOptions(cmd, cfg.Ingest)
		if err := checkThreshold(opts.DetectionThreshold); err != nil {
			return err
		}

		scene, err := ingest.Load(ctx, args[0], opts)
		if err != nil {
			return err
		}

		cf, err := scorer.Rescore(scene.Faces, scorerCfg)
		if err != nil {
			return eris.Wrapf(err, "whatif: %s", args[0])
		}

		report := whatIfReport{
			Source:   scene.Source,
			Before:   cf.Before.Assessment,
			After:    cf.After.Assessment,
			Adoption: cf.Adoption,
		}

		if save {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run := cf.Run(scene.Source, scorerCfg)
			if err := st.SaveRun(ctx, run); err != nil {
				return eris.Wrap(err, "whatif: save")
			}
			report.ID = run.ID
		}

		return withOutput(outputPath, func(w io.Writer) error {
			if format == "json" {
				return writeJSON(w, report)
			}
			return writeWhatIfTable(w, report)
		})
	},
}

func init() {
	addScorerFlags(whatifCmd)
	f := whatifCmd.Flags()
	f.String("format", "table", "output format: table or json")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save the counterfactual to the configured store")
	rootCmd.AddCommand(whatifCmd)
}

type whatIfReport struct {
	ID       string               `json:"id,omitempty"`
	Source   string               `json:"source"`
	Before   model.RiskAssessment `json:"before"`
	After    model.RiskAssessment `json:"after"`
	Adoption model.MaskAdoption   `json:"adoption"`
}

func writeWhatIfTable(out io.Writer, r whatIfReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", r.Source)
	if r.ID != "" {
		_, _ = fmt.Fprintf(w, "Run ID:\t%s\n", r.ID)
	}
	_, _ = fmt.Fprintf(w, "Masks added:\t%d (+%.1f%%)\n", r.Adoption.Flipped, r.Adoption.PercentageIncrease)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "\tBEFORE\tAFTER")
	_, _ = fmt.Fprintf(w, "Safety score\t%.4f\t%.4f\n", r.Before.SafetyScore, r.After.SafetyScore)
	_, _ = fmt.Fprintf(w, "Risk\t%s\t%s\n", tierTitle(r.Before.Tier), tierTitle(r.After.Tier))
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "whatif: write table")
	}

	_, _ = fmt.Fprintf(out, "\nIf everyone wore a mask: %s\n", r.After.Message)
	return nil
}
