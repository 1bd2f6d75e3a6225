package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved assessments",
	Long:  "Commands for listing and viewing assessments saved with --save or the API.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved assessments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		tierFlag, _ := cmd.Flags().GetString("tier")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.RunFilter{Source: source, Limit: limit, Offset: offset}
		if tierFlag != "" {
			tier, ok := model.ParseTier(tierFlag)
			if !ok {
				return eris.Errorf("runs list: unknown tier %q", tierFlag)
			}
			filter.Tier = tier
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a saved assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return writeJSON(os.Stdout, run)
	},
}

func init() {
	runsListCmd.Flags().String("tier", "", "filter by risk tier (very_low, low, medium, high, very_high)")
	runsListCmd.Flags().String("source", "", "filter by source")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.AssessmentRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tFACES\tSAFETY\tTIER\tWHATIF\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t------\t----\t------\t-------")

	for _, r := range runs {
		source := r.Source
		if len(source) > 30 {
			source = "..." + source[len(source)-27:]
		}

		whatIf := ""
		if r.After != nil {
			whatIf = tierTitle(r.After.Tier)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%s\t%s\t%s\n",
			truncateID(r.ID),
			source,
			r.Assessment.FaceCount,
			r.Assessment.SafetyScore,
			tierTitle(r.Assessment.Tier),
			whatIf,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
