package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marigram-tracker/internal/common"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "marigrams",
		Short: "Extract tide-gauge chart metadata from scanned marigrams into a spreadsheet",
		Long: `marigrams OCRs scanned tsunami marigram charts, reads the country, state,
location, date and scale printed on them, checks every value against the NOAA
marigram vocabularies and appends one row per scan to an xlsx workbook.

Runs are resumable: every outcome goes to an append-only progress log and
--resume skips scans that already succeeded.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file overlaid on the environment")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newOCRCmd(opts))
	cmd.AddCommand(newFrontierCmd(opts))
	return cmd
}

// load builds the configuration: environment, then the YAML file, then flags
// applied by the caller.
func (o *globalOptions) load() (*common.Config, error) {
	cfg := common.LoadConfig()
	if o.configPath != "" {
		if err := cfg.MergeYAMLFile(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

// setupLogger installs the JSON handler as the default logger.
func setupLogger(cfg *common.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return logger
}
