package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arnavshah/orientation-scheduler/pkg/csvio"
	"github.com/arnavshah/orientation-scheduler/pkg/meals"
)

func (a *App) mealsCmd() *cobra.Command {
	var (
		assignmentsPath string
		outPath         string
		leader          string
	)

	cmd := &cobra.Command{
		Use:   "meals",
		Short: "Derive meal eligibility from a leader assignments file",
		Example: `  orientctl meals --assignments enhanced_orientation_assignments_leader_assignments.csv
  orientctl meals --assignments out/assignments.csv --leader alice@school.edu`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			assignments, err := readFile(assignmentsPath, csvio.ReadAssignments)
			if err != nil {
				return fmt.Errorf("reading assignments: %w", err)
			}
			records, err := meals.Derive(a.catalog.Meals(), assignments)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if leader != "" {
				for _, r := range meals.ForLeader(records, leader) {
					fmt.Fprintf(w, "  %s  %s\n", colorGood.Sprint(r.MealEvent), colorMuted.Sprint(r.Reason))
				}
				return nil
			}

			if outPath == "" {
				outPath = filepath.Join(a.cfg.Output.Dir, a.cfg.Output.Prefix+csvio.SuffixMealEligibility)
			}
			if err := csvio.WriteFile(outPath, func(f io.Writer) error {
				return csvio.WriteMealEligibility(f, records)
			}); err != nil {
				return err
			}
			countLine(w, "Meal eligibility records", len(records), colorGood)
			muted(w, "  wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&assignmentsPath, "assignments", "a", "", "leader assignments CSV")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV path")
	cmd.Flags().StringVar(&leader, "leader", "", "print the meals of one leader email instead of writing a file")
	_ = cmd.MarkFlagRequired("assignments")

	return cmd
}
