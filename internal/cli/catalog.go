package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) catalogCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the built-in orientation calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum := a.catalog.Summary()
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}

			header(w, "Orientation calendar")
			countLine(w, "Events", sum.TotalEvents, colorHeader)
			countLine(w, "Leader slots", sum.TotalLeadersNeeded, colorHeader)
			countLine(w, "Meals", sum.MealEvents, colorMuted)
			countLine(w, "Core", sum.CoreEvents, colorMuted)
			countLine(w, "Indoor", sum.IndoorEvents, colorMuted)
			countLine(w, "Outdoor", sum.OutdoorEvents, colorMuted)
			for _, day := range sum.EventsByDate {
				fmt.Fprintln(w)
				header(w, "%s", day.Date)
				for _, e := range day.Events {
					fmt.Fprintf(w, "  %-18s %-40s %3d  %s\n",
						e.StartTime+"-"+e.EndTime, e.Name, e.LeadersNeeded, colorMuted.Sprint(e.Location))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}
