package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arnavshah/orientation-scheduler/pkg/catalog"
	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/logger"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	cfgPath string
	noColor bool
	cfg     *config.Config
	log     logger.Logger
	catalog *catalog.Catalog
	root    *cobra.Command
}

// NewApp creates the orientctl command tree.
func NewApp() *App {
	a := &App{log: logger.NopLogger{}}

	a.root = &cobra.Command{
		Use:   "orientctl",
		Short: "Assign orientation leaders to events",
		Long: `orientctl prepares leader rosters, assigns leaders to the orientation
calendar and derives meal eligibility from the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.noColor {
				DisableColor()
			}
			return a.load()
		},
	}

	a.root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.assignCmd())
	a.root.AddCommand(a.mealsCmd())
	a.root.AddCommand(a.cleanCmd())
	a.root.AddCommand(a.simplifyCmd())
	a.root.AddCommand(a.catalogCmd())
	a.root.AddCommand(a.keygenCmd())

	return a
}

func (a *App) load() error {
	config.LoadDotEnv()
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Apply()
	a.cfg = cfg
	a.log = logger.New("orientctl")
	a.catalog = catalog.Default()
	return nil
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "orientctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// SetArgs overrides os.Args, for tests.
func (a *App) SetArgs(args []string) { a.root.SetArgs(args) }

// SetOutput redirects command output.
func (a *App) SetOutput(w io.Writer) {
	a.root.SetOut(w)
	a.root.SetErr(w)
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}
