package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arnavshah/orientation-scheduler/pkg/csvio"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
	"github.com/arnavshah/orientation-scheduler/pkg/meals"
	"github.com/arnavshah/orientation-scheduler/pkg/models"
	"github.com/arnavshah/orientation-scheduler/pkg/scheduler"
)

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (a *App) assignCmd() *cobra.Command {
	var (
		leadersPath string
		eventsPath  string
		outDir      string
		prefix      string
		maxHours    float64
		persist     bool
		noMeals     bool
	)

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign leaders to events and write the result CSVs",
		Long: `Assign reads a simplified leader roster, assigns leaders to the orientation
calendar (or to the events in --events) and writes the leader assignment,
event staffing, summary, conflict and meal eligibility tables.`,
		Example: `  orientctl assign --leaders leaders.csv
  orientctl assign --leaders leaders.csv --events events.csv --out-dir out --persist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			leaders, err := readFile(leadersPath, csvio.ReadLeaders)
			if err != nil {
				return fmt.Errorf("reading leaders: %w", err)
			}
			events := a.catalog.Events()
			if eventsPath != "" {
				custom, err := readFile(eventsPath, csvio.ReadEvents)
				if err != nil {
					return fmt.Errorf("reading events: %w", err)
				}
				events = a.catalog.Enrich(custom)
			}

			s := scheduler.NewScheduler(leaders, events)
			s.MaxHours = a.cfg.Scheduler.MaxHours
			if maxHours > 0 {
				s.MaxHours = maxHours
			}

			start := time.Now()
			res, err := s.Run()
			if err != nil {
				return fmt.Errorf("scheduling: %w", err)
			}
			a.log.Infof("scheduled %d leaders across %d events in %s", len(leaders), len(events), time.Since(start))

			var eligibility []meals.Eligibility
			if !noMeals {
				if eligibility, err = meals.Derive(a.catalog.Meals(), res.Assignments()); err != nil {
					return fmt.Errorf("meal eligibility: %w", err)
				}
			}

			if outDir == "" {
				outDir = a.cfg.Output.Dir
			}
			if prefix == "" {
				prefix = a.cfg.Output.Prefix
			}
			paths, err := csvio.WriteResult(outDir, prefix, res, eligibility)
			if err != nil {
				return fmt.Errorf("writing results: %w", err)
			}

			runID := ""
			if persist {
				if runID, err = a.persist(cmd.Context(), database.Run{
					Source:      "cli",
					Leaders:     leaders,
					Events:      events,
					Result:      res,
					Allocation:  s.Allocation,
					Rounds:      s.Rounds,
					MealWindows: a.catalog.Meals(),
					Meals:       eligibility,
				}); err != nil {
					return err
				}
			}

			printSummary(cmd.OutOrStdout(), s, res, eligibility)
			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			for _, p := range paths {
				muted(w, "  wrote %s", p)
			}
			if runID != "" {
				muted(w, "  saved run %s", runID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&leadersPath, "leaders", "l", "", "simplified leader roster CSV")
	cmd.Flags().StringVarP(&eventsPath, "events", "e", "", "event calendar CSV (defaults to the built-in catalog)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory (defaults to output.dir)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "output file prefix (defaults to output.prefix)")
	cmd.Flags().Float64Var(&maxHours, "max-hours", 0, "per-leader hour cap (defaults to scheduler.max_hours)")
	cmd.Flags().BoolVar(&persist, "persist", false, "save the run to the database for the query API")
	cmd.Flags().BoolVar(&noMeals, "no-meals", false, "skip meal eligibility")
	_ = cmd.MarkFlagRequired("leaders")

	return cmd
}

func (a *App) persist(ctx context.Context, run database.Run) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return "", err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	rec, err := database.NewStore(db).SaveRun(ctx, run)
	if err != nil {
		return "", err
	}
	return rec.UUID, nil
}

func printSummary(w io.Writer, s *scheduler.Scheduler, res *models.Result, eligibility []meals.Eligibility) {
	sum := res.SchedulingSummary
	assignments := len(res.Assignments())

	header(w, "Assignment summary")
	countLine(w, "Leaders", len(s.Leaders), colorHeader)
	countLine(w, "Events", len(s.Events), colorHeader)
	countLine(w, "Assignments", assignments, colorHeader)
	countLine(w, "Rounds", s.Rounds, colorMuted)

	alloc := s.Allocation
	if alloc.Shortage() {
		fmt.Fprintf(w, "  %-32s %s\n", "Leader shortage",
			colorWarn.Sprintf("%d of %d slots (ratio %.2f)", alloc.TotalSupply, alloc.TotalDemand, alloc.ShortageRatio))
	}

	fmt.Fprintln(w)
	header(w, "Staffing")
	fmt.Fprintf(w, "  %-32s %s\n", "Average staffing", percent(sum.StaffingMetrics.AvgStaffingPercentage))
	fmt.Fprintf(w, "  %-32s %s\n", "Minimum staffing", percent(sum.StaffingMetrics.MinStaffingPercentage))
	countLine(w, "Fully staffed events", len(sum.FullyStaffedEvents), colorGood)
	countLine(w, "Understaffed events", len(sum.UnderstaffedEvents), colorWarn)
	countLine(w, "Critically understaffed events", len(sum.CriticallyUnderstaffedEvents), colorBad)
	for _, name := range sum.CriticallyUnderstaffedEvents {
		st := res.EventStaffing[name]
		fmt.Fprintf(w, "    %s %s (%d/%d)\n", colorBad.Sprint("!"), name, st.LeadersAssigned, st.LeadersNeeded)
	}

	fmt.Fprintln(w)
	header(w, "Workload")
	fmt.Fprintf(w, "  %-32s %.1f\n", "Total assignment hours", sum.TotalAssignmentHours)
	fmt.Fprintf(w, "  %-32s %.1f\n", "Average hours per leader", sum.LaborCompliance.AvgHoursPerLeader)
	fmt.Fprintf(w, "  %-32s %.1f\n", "Max hours assigned", sum.LaborCompliance.MaxHoursAssigned)
	fmt.Fprintf(w, "  %-32s %.1f\n", "Fairness score", sum.FairnessScore)
	countLine(w, "Unassigned leaders", len(sum.UnassignedLeaders), colorWarn)

	conflictColor := colorGood
	if len(res.TimeConflicts) > 0 {
		conflictColor = colorBad
	}
	countLine(w, "Time conflicts", len(res.TimeConflicts), conflictColor)
	if eligibility != nil {
		countLine(w, "Meal eligibility records", len(eligibility), colorGood)
	}
}
