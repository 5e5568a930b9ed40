package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arnavshah/orientation-scheduler/pkg/csvio"
	"github.com/arnavshah/orientation-scheduler/pkg/roster"
)

func writeTable(path string, t *roster.Table) error {
	return csvio.WriteFile(path, func(w io.Writer) error { return t.Write(w) })
}

func (a *App) cleanCmd() *cobra.Command {
	var fullPath, finalPath, outPath string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Keep only roster rows that appear on the final volunteer list",
		Long: `Clean filters the full leader roster down to the leaders named in the final
volunteer list. Rows are matched on first name, last name and email,
ignoring case. The final list has no header.`,
		Example: `  orientctl clean --full roster.csv --final final.csv --out cleaned.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			full, err := readFile(fullPath, roster.ReadTable)
			if err != nil {
				return fmt.Errorf("reading roster: %w", err)
			}
			final, err := readFile(finalPath, roster.ReadFinalList)
			if err != nil {
				return fmt.Errorf("reading final list: %w", err)
			}
			cleaned, err := roster.FilterFinal(full, final)
			if err != nil {
				return err
			}
			if err := writeTable(outPath, cleaned); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			countLine(w, "Roster rows", len(full.Rows), colorMuted)
			countLine(w, "Final list entries", len(final), colorMuted)
			countLine(w, "Rows kept", len(cleaned.Rows), colorGood)
			muted(w, "  wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&fullPath, "full", "", "full roster CSV")
	cmd.Flags().StringVar(&finalPath, "final", "", "final volunteer list CSV")
	cmd.Flags().StringVarP(&outPath, "out", "o", "cleaned_roster.csv", "output CSV path")
	_ = cmd.MarkFlagRequired("full")
	_ = cmd.MarkFlagRequired("final")

	return cmd
}

func (a *App) simplifyCmd() *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "simplify",
		Short: "Fold per-day availability columns into one Availability column",
		Example: `  orientctl simplify --in cleaned.csv --out leaders.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			full, err := readFile(inPath, roster.ReadTable)
			if err != nil {
				return fmt.Errorf("reading roster: %w", err)
			}
			simple, err := roster.Simplify(full)
			if err != nil {
				return err
			}
			if err := writeTable(outPath, simple); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			countLine(w, "Leaders", len(simple.Rows), colorGood)
			muted(w, "  wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "roster CSV with one availability column per day")
	cmd.Flags().StringVarP(&outPath, "out", "o", "simplified_roster.csv", "output CSV path")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
