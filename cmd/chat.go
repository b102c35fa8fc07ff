package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/theirongolddev/bmadchat/internal/catalog"
	"github.com/theirongolddev/bmadchat/internal/cli"
	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/export"
	"github.com/theirongolddev/bmadchat/internal/ledger"
	"github.com/theirongolddev/bmadchat/internal/logger"
	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/provider"
	"github.com/theirongolddev/bmadchat/internal/session"
	"github.com/theirongolddev/bmadchat/internal/tui"
)

var (
	flagOffline  bool
	flagNoStream bool
	flagNoSave   bool
	flagPlain    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [agent]",
	Short: "Start a conversation with an agent",
	Long: "Start a conversation with an agent. The agent is matched by id, name or " +
		"display name. Text piped on stdin is sent as a single message.",
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	addChatFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func addChatFlags(c *cobra.Command) {
	c.Flags().BoolVar(&flagOffline, "offline", false, "Answer with offline responses only")
	c.Flags().BoolVar(&flagNoStream, "no-stream", false, "Wait for complete responses instead of streaming")
	c.Flags().BoolVar(&flagNoSave, "no-save", false, "Skip the auto-save on exit")
	c.Flags().BoolVar(&flagPlain, "plain", false, "Plain text output and line input")
}

func runChat(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, appLog)
	log := logger.FromContext(ctx)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	if err := requirePipedAgent(os.Stderr, interactive, query); err != nil {
		return err
	}
	if flagPlain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	cfg, err := ensureConfig(ctx, interactive)
	if err != nil {
		return err
	}
	if flagOffline {
		cfg.OpenAI.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cat, err := catalog.Build(cfg.General.BmadPath, cfg.General.EnabledPacks, log)
	if err != nil {
		return err
	}
	agent, err := chooseAgent(ctx, cat, query)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	led := ledger.New()
	journal := ledger.NewJournal(config.JournalPath())
	if res, err := journal.Replay(led); err != nil {
		log.Warn("usage journal replay failed", zap.Error(err))
	} else if res.ParseErrors > 0 || res.Rejected > 0 {
		log.Warn("usage journal has skipped lines",
			zap.Int("parse_errors", res.ParseErrors), zap.Int("rejected", res.Rejected))
	}

	view := cli.NewChatView(os.Stdout, flagPlain)
	sc := session.Config{
		Agent:    agent,
		Ledger:   led,
		Journal:  journal,
		Prices:   config.NewPriceTable(cfg.Pricing),
		Limits:   cfg.Limits(),
		Stream:   cfg.OpenAI.StreamResponse && !flagNoStream,
		ShowCost: cfg.OpenAI.ShowCosts,
		AutoSave: cfg.General.AutoSave && !flagNoSave,
		Exporter: export.NewMarkdown(cfg.General.ExportDir),
		Metrics:  appMetrics,
		View:     view,
		Logger:   log,
	}
	if cfg.OpenAI.Enabled {
		sc.Live = provider.NewLive(provider.LiveOptions{
			APIKey:      config.GetOpenAIKey(cfg),
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
			MaxRetries:  cfg.OpenAI.MaxRetries,
			Logger:      log,
		})
	}
	if interactive && !flagPlain {
		sc.Wait = tui.Spinner(os.Stderr)
	}

	sess, err := session.New(sc)
	if err != nil {
		return err
	}
	log.Info("chat started",
		zap.String("conversation_id", sess.ID()),
		zap.String("agent", agent.ID),
		zap.Bool("live", sc.Live != nil),
		zap.Bool("interactive", interactive))

	if !interactive {
		return sess.RunPiped(ctx, os.Stdin)
	}
	var in session.LineReader = tui.NewHuhReader(os.Stdout)
	if flagPlain {
		in = session.NewScannerReader(os.Stdin, os.Stdout, view.Prompt())
	}
	return sess.RunInteractive(ctx, in)
}

// errPipedNoAgent means stdin is not a terminal and no agent was named.
var errPipedNoAgent = errors.New("no agent given for piped input")

// requirePipedAgent tells the user to name an agent when input is piped.
func requirePipedAgent(w io.Writer, interactive bool, query string) error {
	if interactive || query != "" {
		return nil
	}
	fmt.Fprintln(w, "Please specify an agent when using pipes")
	return errPipedNoAgent
}

// ensureConfig runs the setup wizard on first interactive use.
func ensureConfig(ctx context.Context, interactive bool) (config.Config, error) {
	if config.Exists(flagConfig) || !interactive {
		return appCfg, nil
	}
	fmt.Println("\n  No configuration found. Starting setup...")
	cfg, err := tui.RunSetup(ctx, appCfg)
	if err != nil {
		return appCfg, err
	}
	if err := config.Save(flagConfig, cfg); err != nil {
		return cfg, err
	}
	appCfg = cfg
	return cfg, nil
}

func chooseAgent(ctx context.Context, cat *catalog.Catalog, query string) (model.AgentDefinition, error) {
	if query == "" {
		return tui.PickAgent(ctx, cat.Agents())
	}
	agent, err := cat.Find(query)
	if errors.Is(err, catalog.ErrAgentNotFound) {
		return agent, fmt.Errorf("agent %q not found. Run \"bmadchat list\" to see available agents", query)
	}
	return agent, err
}
