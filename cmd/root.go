// Package cmd implements the bmadchat CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/logger"
	"github.com/theirongolddev/bmadchat/internal/metrics"
	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

var (
	flagConfig      string
	flagVerbose     bool
	flagMetricsFile string
)

// Loaded once per invocation by PersistentPreRunE.
var (
	appCfg     config.Config
	appLog     = zap.NewNop()
	appMetrics = metrics.New()
)

var rootCmd = &cobra.Command{
	Use:   "bmadchat [agent]",
	Short: "Chat with BMAD expansion pack agents",
	Long: "Chat with the agent personas of your BMAD-METHOD expansion packs, " +
		"backed by OpenAI or an offline fallback, with usage tracking and markdown export.",
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: loadApp,
	RunE:              runChat,
}

// Execute is the main entry point called from main.go.
func Execute() {
	err := rootCmd.Execute()
	if flagMetricsFile != "" {
		if merr := appMetrics.WriteTextfile(flagMetricsFile); merr != nil {
			fmt.Fprintf(os.Stderr, "  %v\n", merr)
		}
	}
	_ = appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	addChatFlags(rootCmd)
}

func loadApp(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	appCfg = cfg
	theme.SetActive(cfg.Appearance.Theme)

	log, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		File:    config.LogPath(cfg),
		Verbose: flagVerbose,
	})
	if err != nil {
		return err
	}
	appLog = log
	return nil
}
