package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

// SetupValues are the answers collected by the setup form.
type SetupValues struct {
	ClaudeDir   string
	Days        int
	Theme       string
	AutoRefresh bool
	Online      bool
}

// SetupValuesFrom seeds the form from an existing config.
func SetupValuesFrom(cfg config.Config, claudeDir string) SetupValues {
	return SetupValues{
		ClaudeDir:   claudeDir,
		Days:        cfg.General.DefaultDays,
		Theme:       cfg.General.Theme,
		AutoRefresh: cfg.Refresh.AutoRefresh,
		Online:      !cfg.Pricing.Offline,
	}
}

// Apply writes the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.ClaudeDir = strings.TrimSpace(v.ClaudeDir)
	cfg.General.DefaultDays = v.Days
	cfg.General.Theme = v.Theme
	cfg.Refresh.AutoRefresh = v.AutoRefresh
	cfg.Pricing.Offline = !v.Online
}

func validateDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

// NewSetupForm builds the first-run form bound to v.
func NewSetupForm(v *SetupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themes = append(themes, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Claude data directory").
				Description("Leave empty for ~/.claude").
				Value(&v.ClaudeDir).
				Validate(validateDir),
			huh.NewSelect[int]().
				Title("Default time range").
				Options(
					huh.NewOption("7 days", 7),
					huh.NewOption("30 days", 30),
					huh.NewOption("90 days", 90),
				).
				Value(&v.Days),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&v.Theme),
			huh.NewConfirm().
				Title("Refresh the dashboard automatically?").
				Value(&v.AutoRefresh),
			huh.NewConfirm().
				Title("Fetch current model prices online?").
				Description("Off uses built-in prices only").
				Value(&v.Online),
		),
	).WithTheme(huh.ThemeCatppuccin())
}
