package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/bmadchat/internal/catalog"
	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

var modelChoices = []huh.Option[string]{
	huh.NewOption("GPT-4 Turbo (Recommended)", "gpt-4-turbo-preview"),
	huh.NewOption("GPT-4o", "gpt-4o"),
	huh.NewOption("GPT-4o mini (Fast & Cheap)", "gpt-4o-mini"),
	huh.NewOption("GPT-4", "gpt-4"),
	huh.NewOption("GPT-3.5 Turbo", "gpt-3.5-turbo"),
	huh.NewOption("GPT-3.5 Turbo 16K", "gpt-3.5-turbo-16k"),
}

// ValidateBmadPath requires an existing directory with an expansion-packs
// subdirectory.
func ValidateBmadPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if info, err := os.Stat(catalog.PacksRoot(path)); err != nil || !info.IsDir() {
		return fmt.Errorf("not a valid BMAD-METHOD installation (missing expansion-packs): %s", path)
	}
	return nil
}

// ValidateAPIKey checks the OpenAI key format.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is required for OpenAI integration")
	}
	if !strings.HasPrefix(key, "sk-") {
		return errors.New("invalid API key format")
	}
	return nil
}

// ValidateMaxTokens accepts integers in 100..4000.
func ValidateMaxTokens(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 100 || n > 4000 {
		return errors.New("please enter a value between 100 and 4000")
	}
	return nil
}

// ValidateLimit accepts dollar amounts greater than zero.
func ValidateLimit(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return errors.New("must be greater than 0")
	}
	return nil
}

func validatePacks(p []string) error {
	if len(p) == 0 {
		return errors.New("you must choose at least one expansion pack")
	}
	return nil
}

func formatDollars(p *float64, fallback float64) string {
	if p != nil {
		fallback = *p
	}
	return strconv.FormatFloat(fallback, 'f', 2, 64)
}

// RunSetup walks through the configuration questions starting from cfg and
// returns the updated config. It does not save. Aborting returns io.EOF.
func RunSetup(ctx context.Context, cfg config.Config) (config.Config, error) {
	run := func(groups ...*huh.Group) error {
		err := huh.NewForm(groups...).WithTheme(huh.ThemeCharm()).RunWithContext(ctx)
		if errors.Is(err, huh.ErrUserAborted) {
			return io.EOF
		}
		return err
	}

	bmadPath := cfg.General.BmadPath
	if err := run(huh.NewGroup(
		huh.NewInput().
			Title("Path to the BMAD-METHOD folder").
			Value(&bmadPath).
			Validate(ValidateBmadPath),
	)); err != nil {
		return cfg, err
	}
	cfg.General.BmadPath = strings.TrimSpace(bmadPath)

	available, err := catalog.DiscoverPacks(cfg.General.BmadPath)
	if err != nil {
		return cfg, err
	}
	if len(available) == 0 {
		return cfg, fmt.Errorf("no expansion packs with a config.yaml under %s", catalog.PacksRoot(cfg.General.BmadPath))
	}
	packOptions := make([]huh.Option[string], len(available))
	for i, name := range available {
		packOptions[i] = huh.NewOption(name, name).Selected(slices.Contains(cfg.General.EnabledPacks, name))
	}

	var (
		packs        = slices.Clone(cfg.General.EnabledPacks)
		exportDir    = cfg.General.ExportDir
		autoSave     = cfg.General.AutoSave
		enableOpenAI = cfg.OpenAI.Enabled
		themeName    = cfg.Appearance.Theme
	)
	themeOptions := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOptions = append(themeOptions, huh.NewOption(name, name))
	}
	if err := run(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Which expansion packs do you want to enable?").
			Options(packOptions...).
			Value(&packs).
			Validate(validatePacks),
		huh.NewInput().Title("Where should conversations be exported?").Value(&exportDir),
		huh.NewConfirm().Title("Auto-save conversations on exit?").Value(&autoSave),
		huh.NewSelect[string]().Title("Color theme").Options(themeOptions...).Value(&themeName),
		huh.NewConfirm().Title("Enable OpenAI integration for real AI responses?").Value(&enableOpenAI),
	)); err != nil {
		return cfg, err
	}
	cfg.General.EnabledPacks = packs
	cfg.General.ExportDir = strings.TrimSpace(exportDir)
	cfg.General.AutoSave = autoSave
	cfg.Appearance.Theme = themeName
	cfg.OpenAI.Enabled = enableOpenAI
	theme.SetActive(themeName)

	if !enableOpenAI {
		return cfg, nil
	}

	var (
		apiKey       = cfg.OpenAI.APIKey
		modelName    = cfg.OpenAI.Model
		maxTokens    = strconv.Itoa(cfg.OpenAI.MaxTokens)
		stream       = cfg.OpenAI.StreamResponse
		showCosts    = cfg.OpenAI.ShowCosts
		enableLimits = cfg.OpenAI.CostLimit != nil
	)
	if err := run(huh.NewGroup(
		huh.NewInput().
			Title("OpenAI API key").
			EchoMode(huh.EchoModePassword).
			Value(&apiKey).
			Validate(ValidateAPIKey),
		huh.NewSelect[string]().Title("Default model").Options(modelChoices...).Value(&modelName),
		huh.NewInput().Title("Maximum response tokens").Value(&maxTokens).Validate(ValidateMaxTokens),
		huh.NewConfirm().Title("Enable streaming responses?").Value(&stream),
		huh.NewConfirm().Title("Show token usage and costs?").Value(&showCosts),
		huh.NewConfirm().Title("Set cost limits?").Value(&enableLimits),
	)); err != nil {
		return cfg, err
	}
	cfg.OpenAI.APIKey = strings.TrimSpace(apiKey)
	cfg.OpenAI.Model = modelName
	cfg.OpenAI.MaxTokens, _ = strconv.Atoi(strings.TrimSpace(maxTokens))
	cfg.OpenAI.StreamResponse = stream
	cfg.OpenAI.ShowCosts = showCosts

	if !enableLimits {
		cfg.OpenAI.CostLimit = nil
		return cfg, nil
	}

	var perConv, daily string
	limits := cfg.OpenAI.CostLimit
	if limits == nil {
		limits = &config.CostLimit{}
	}
	perConv = formatDollars(limits.PerConversation, config.SuggestedPerConversationLimit)
	daily = formatDollars(limits.Daily, config.SuggestedDailyLimit)
	if err := run(huh.NewGroup(
		huh.NewInput().Title("Maximum cost per conversation ($)").Value(&perConv).Validate(ValidateLimit),
		huh.NewInput().Title("Maximum daily cost ($)").Value(&daily).Validate(ValidateLimit),
	)); err != nil {
		return cfg, err
	}
	pc, _ := strconv.ParseFloat(strings.TrimSpace(perConv), 64)
	d, _ := strconv.ParseFloat(strings.TrimSpace(daily), 64)
	cfg.OpenAI.CostLimit = &config.CostLimit{PerConversation: &pc, Daily: &d}
	return cfg, nil
}
