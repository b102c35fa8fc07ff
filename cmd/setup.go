package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configuration wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println()
	fmt.Println("  Welcome to bmadchat setup!")
	fmt.Println()

	cfg, err := tui.RunSetup(ctx, appCfg)
	if errors.Is(err, io.EOF) {
		fmt.Println("  Setup cancelled, nothing saved.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := config.Save(flagConfig, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	appCfg = cfg

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	fmt.Printf("\n  Saved to %s\n", path)
	fmt.Println("  Run `bmadchat list` to see your agents.")
	fmt.Println()
	return nil
}
