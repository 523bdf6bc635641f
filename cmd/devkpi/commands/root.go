package commands

import (
	"devkpi/internal/config"
	"devkpi/internal/engine"
	"devkpi/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose   bool
	rulesPath string

	cfg       *config.AppConfig
	engineCfg engine.Config
)

var rootCmd = &cobra.Command{
	Use:   "devkpi",
	Short: "DevKPI scores developer delivery performance from work item state histories",
	Long: `DevKPI reconstructs how work items moved through their workflow states,
accumulates active and paused time honoring office hours and working days,
and turns the result into fair efficiency percentages, delivery scores,
and weighted per-developer summaries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		path := rulesPath
		if path == "" {
			path = cfg.RulesPath
		}
		engineCfg, err = config.LoadRules(path)
		if err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("DevKPI starting")
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "path to the YAML rules file (default: $RULES_FILE or devkpi.yaml next to the data path)")
}
