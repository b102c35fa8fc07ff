package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/bmadchat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}

	fmt.Printf("  Config file: %s\n", path)
	if config.Exists(flagConfig) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    BMAD path:      %s\n", cfg.General.BmadPath)
	fmt.Printf("    Enabled packs:  %s\n", strings.Join(cfg.General.EnabledPacks, ", "))
	fmt.Printf("    Export dir:     %s\n", cfg.General.ExportDir)
	fmt.Printf("    Auto-save:      %v\n", cfg.General.AutoSave)
	fmt.Println()

	fmt.Println("  [OpenAI]")
	fmt.Printf("    Enabled:        %v\n", cfg.OpenAI.Enabled)
	if key := config.GetOpenAIKey(cfg); key != "" {
		fmt.Printf("    API key:        %s\n", config.MaskKey(key))
	} else {
		fmt.Println("    API key:        not configured")
	}
	if cfg.OpenAI.BaseURL != "" {
		fmt.Printf("    Base URL:       %s\n", cfg.OpenAI.BaseURL)
	}
	fmt.Printf("    Model:          %s\n", cfg.OpenAI.Model)
	fmt.Printf("    Max tokens:     %d\n", cfg.OpenAI.MaxTokens)
	fmt.Printf("    Temperature:    %.1f\n", cfg.OpenAI.Temperature)
	fmt.Printf("    Streaming:      %v\n", cfg.OpenAI.StreamResponse)
	fmt.Printf("    Show costs:     %v\n", cfg.OpenAI.ShowCosts)
	fmt.Println()

	fmt.Println("  [Cost limits]")
	limits := cfg.OpenAI.CostLimit
	fmt.Printf("    Per conversation: %s\n", limitText(limits, func(l *config.CostLimit) *float64 { return l.PerConversation }))
	fmt.Printf("    Daily:            %s\n", limitText(limits, func(l *config.CostLimit) *float64 { return l.Daily }))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Paths]")
	fmt.Printf("    Usage journal: %s\n", config.JournalPath())
	fmt.Printf("    Log file:      %s\n", config.LogPath(cfg))
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Problem: %v\n\n", err)
	}
	fmt.Println("  Run `bmadchat setup` to reconfigure.")
	return nil
}

func limitText(l *config.CostLimit, field func(*config.CostLimit) *float64) string {
	if l == nil || field(l) == nil {
		return "unlimited"
	}
	return fmt.Sprintf("$%.2f", *field(l))
}
