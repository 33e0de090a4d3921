package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zangarmarsh/internal/config"
	"zangarmarsh/internal/logger"
	"zangarmarsh/internal/manifest"
	"zangarmarsh/internal/orchestrator"
	"zangarmarsh/internal/runner"
)

var (
	// debug enables debug logging. Toggled via the `--debug` flag.
	debug bool

	// manifestPath points at a YAML manifest replacing the built-in one.
	manifestPath string
)

// rootCmd is the only command of `talent-calculator`. Without a mode flag
// it reports which manifest tools are missing and changes nothing.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "talent-calculator",
		Short: "Idempotent developer tool installer",
		Long: `talent-calculator brings a workstation to a declared set of command line tools.

With no flags it checks which tools are missing and exits non-zero if any are.
--spec installs what is missing, --respec reinstalls everything.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(debug)
		},
		RunE: run,
	}

	c.Flags().Bool(config.FlagSpec, false, "Install every missing tool")
	c.Flags().Bool(config.FlagRespec, false, "Uninstall and reinstall every tool")
	c.Flags().BoolP(config.FlagDryRun, "r", false, "Print what would be done without doing it")
	c.MarkFlagsMutuallyExclusive(config.FlagSpec, config.FlagRespec)
	c.Flags().StringVar(&manifestPath, "manifest", "", "Path to a YAML manifest (default: built-in)")
	c.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return c
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	m, err := loadManifest()
	if err != nil {
		return err
	}
	logger.Debug("[DEBUG] talent_calculator:: Loaded %d tools\n", m.Len())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = orchestrator.New(m, cfg, runner.New()).Run(ctx)
	return err
}

func loadManifest() (manifest.Manifest, error) {
	if manifestPath == "" {
		return manifest.Default()
	}
	return manifest.Load(manifestPath)
}

// Execute runs the root command and exits non-zero on any error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("[ERROR] talent_calculator:: %v\n", err)
		os.Exit(1)
	}
}
