package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/bmadchat/internal/cli"
	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/policy"
	"github.com/theirongolddev/bmadchat/internal/tui/components"
	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

const (
	defaultWidth  = 80
	dashboardDays = 7
	recentConvs   = 10
)

// DashboardData is everything the usage dashboard shows.
type DashboardData struct {
	Stats model.AllStats
	// Daily is nil when no daily limit is configured.
	Daily                *policy.DailyReport
	PerConversationLimit *float64
	Source               string
}

// Dashboard is the bubbletea model behind "usage --tui".
type Dashboard struct {
	data   DashboardData
	tab    int
	width  int
	height int
}

// NewDashboard returns a dashboard on the Overview tab.
func NewDashboard(data DashboardData) Dashboard {
	return Dashboard{data: data}
}

// Tab returns the active tab index.
func (d Dashboard) Tab() int { return d.tab }

// Init implements tea.Model.
func (d Dashboard) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
	case tea.KeyMsg:
		n := len(components.Tabs)
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return d, tea.Quit
		case "right", "tab":
			d.tab = (d.tab + 1) % n
		case "left", "shift+tab":
			d.tab = (d.tab + n - 1) % n
		default:
			if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
				if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
					d.tab = idx
				}
			}
		}
	}
	return d, nil
}

// View implements tea.Model.
func (d Dashboard) View() string {
	w := d.width
	if w <= 0 {
		w = defaultWidth
	}

	var body string
	switch d.tab {
	case 0:
		body = d.viewOverview(w)
	case 1:
		body = d.viewDaily(w)
	case 2:
		body = d.viewConversations()
	case 3:
		body = d.viewLimits(w)
	}

	return components.RenderTabBar(d.tab, w) + "\n\n" + body + "\n\n" + components.RenderStatusBar(w, d.data.Source)
}

// lastDays returns up to n most recent day buckets, oldest first.
func (d Dashboard) lastDays(n int) []model.DailyStats {
	days := d.data.Stats.PerDay
	if len(days) > n {
		days = days[:n]
	}
	out := make([]model.DailyStats, len(days))
	for i, day := range days {
		out[len(days)-1-i] = day
	}
	return out
}

func (d Dashboard) viewOverview(w int) string {
	total := d.data.Stats.Total
	cards := components.MetricCardRow([]components.Metric{
		{Label: "Conversations", Value: cli.FormatNumber(int64(total.Conversations))},
		{Label: "Messages", Value: cli.FormatNumber(int64(total.Messages))},
		{Label: "Tokens", Value: cli.FormatTokens(total.TotalTokens),
			Note: fmt.Sprintf("%s in / %s out", cli.FormatTokens(total.PromptTokens), cli.FormatTokens(total.CompletionTokens))},
		{Label: "Cost", Value: cli.FormatCost(total.TotalCost)},
	}, w)

	days := d.lastDays(dashboardDays)
	if len(days) == 0 {
		return cards + "\n\n" + lipgloss.NewStyle().Foreground(theme.Active.TextMuted).Render("  No usage recorded yet.")
	}
	costs := make([]float64, len(days))
	for i, day := range days {
		costs[i] = day.TotalCost
	}
	trend := components.ContentCard(
		fmt.Sprintf("Daily cost, last %d days", len(days)),
		lipgloss.NewStyle().Foreground(theme.Active.Cost).Render(cli.RenderSparkline(costs)),
		w)
	return cards + "\n" + trend
}

func (d Dashboard) viewDaily(w int) string {
	days := d.lastDays(dashboardDays)
	if len(days) == 0 {
		return "  No usage recorded yet."
	}
	labels := make([]string, len(days))
	costs := make([]float64, len(days))
	for i, day := range days {
		labels[i] = dayLabel(day.Day)
		costs[i] = day.TotalCost
	}
	chart := components.HBarChart(labels, costs, components.CardInnerWidth(w), cli.FormatCostPrecise)
	return components.ContentCard("Cost per day", chart, w)
}

func dayLabel(key string) string {
	t, err := time.Parse("2006-01-02", key)
	if err != nil {
		return key
	}
	return t.Format("Mon 01-02")
}

func (d Dashboard) viewConversations() string {
	convs := make([]model.ConversationStats, len(d.data.Stats.PerConversation))
	copy(convs, d.data.Stats.PerConversation)
	sort.SliceStable(convs, func(i, j int) bool { return convs[i].LastSeen.After(convs[j].LastSeen) })
	if len(convs) > recentConvs {
		convs = convs[:recentConvs]
	}
	if len(convs) == 0 {
		return "  No conversations recorded yet."
	}

	rows := make([][]string, len(convs))
	for i, c := range convs {
		rows[i] = []string{
			c.ConversationID,
			c.LastSeen.Local().Format("01-02 15:04"),
			cli.FormatNumber(int64(c.Messages)),
			cli.FormatNumber(c.TotalTokens),
			cli.FormatCostPrecise(c.TotalCost),
		}
	}
	return cli.RenderTable(cli.Table{
		Headers: []string{"Conversation", "Last", "Msgs", "Tokens", "Cost"},
		Rows:    rows,
	})
}

func (d Dashboard) viewLimits(w int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	var b strings.Builder

	if l := d.data.PerConversationLimit; l != nil {
		b.WriteString(fmt.Sprintf("  Per conversation: %s", cli.FormatCostPrecise(*l)))
		b.WriteString(muted.Render("  (checked before each live call)"))
	} else {
		b.WriteString("  Per conversation: unlimited")
	}
	b.WriteString("\n\n")

	r := d.data.Daily
	if r == nil {
		b.WriteString("  Daily: unlimited")
		return b.String()
	}
	barW := max(min(w-30, 40), 10)
	b.WriteString("  " + components.LimitBar("Today", r.PercentUsed, policy.DailyWarnPercent, 6, barW))
	b.WriteString("\n")
	b.WriteString(muted.Render(fmt.Sprintf("  %s of %s spent, %s remaining (reported only)",
		cli.FormatCostPrecise(r.Spent), cli.FormatCostPrecise(r.Limit), cli.FormatCostPrecise(r.Remaining))))
	if r.Warn {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Warn).Render(
			fmt.Sprintf("  Warning: over %.0f%% of the daily limit used", policy.DailyWarnPercent)))
	}
	return b.String()
}

// RunDashboard runs the dashboard full screen until the user quits.
func RunDashboard(data DashboardData) error {
	_, err := tea.NewProgram(NewDashboard(data), tea.WithAltScreen()).Run()
	return err
}
