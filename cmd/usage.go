package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/bmadchat/internal/cli"
	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/ledger"
	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/policy"
	"github.com/theirongolddev/bmadchat/internal/tui"
)

const (
	usageDays   = 7
	usageRecent = 10
)

var (
	flagUsageToday  bool
	flagUsageDetail bool
	flagUsageJSON   string
	flagUsageClear  bool
	flagUsageTUI    bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Token usage and cost report",
	Args:  cobra.NoArgs,
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().BoolVarP(&flagUsageToday, "today", "t", false, "Only show today's usage")
	usageCmd.Flags().BoolVarP(&flagUsageDetail, "detailed", "d", false, "Include the most recent conversations")
	usageCmd.Flags().StringVar(&flagUsageJSON, "json", "", "Export all usage statistics as JSON to this path")
	usageCmd.Flags().BoolVar(&flagUsageClear, "clear", false, "Delete the usage journal")
	usageCmd.Flags().BoolVar(&flagUsageTUI, "tui", false, "Open the interactive usage dashboard")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(_ *cobra.Command, _ []string) error {
	journal := ledger.NewJournal(config.JournalPath())
	if flagUsageClear {
		if err := journal.Clear(); err != nil {
			return err
		}
		fmt.Println("\n  Usage statistics cleared.")
		return nil
	}

	led := ledger.New()
	res, err := journal.Replay(led)
	if err != nil {
		return err
	}
	if res.ParseErrors > 0 || res.Rejected > 0 {
		appLog.Warn("usage journal has skipped lines",
			zap.Int("parse_errors", res.ParseErrors), zap.Int("rejected", res.Rejected))
	}

	if flagUsageJSON != "" {
		if err := led.ExportStats(flagUsageJSON); err != nil {
			return err
		}
		fmt.Printf("\n  Usage statistics exported to: %s\n", flagUsageJSON)
		return nil
	}

	stats := led.AllStats()
	limits := appCfg.OpenAI.CostLimit
	today, _ := led.TodayStats()
	daily, hasDaily := policy.Daily(limits, today.TotalCost)

	if flagUsageTUI {
		data := tui.DashboardData{Stats: stats, Source: config.JournalPath()}
		if hasDaily {
			data.Daily = &daily
		}
		if limits != nil {
			data.PerConversationLimit = limits.PerConversation
		}
		return tui.RunDashboard(data)
	}

	fmt.Println()
	if flagUsageToday {
		printToday(today)
	} else {
		printUsage(stats)
	}
	printLimits(limits, daily, hasDaily)
	return nil
}

func printToday(today model.DailyStats) {
	fmt.Println(cli.RenderTitle("USAGE  Today"))
	fmt.Println()
	if today.Messages == 0 {
		fmt.Println("  No usage recorded today.")
		fmt.Println()
		return
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Conversations", cli.FormatNumber(int64(today.Conversations))},
			{"Messages", cli.FormatNumber(int64(today.Messages))},
			{"Tokens", cli.FormatNumber(today.TotalTokens)},
			{"Cost", cli.FormatCostPrecise(today.TotalCost)},
		},
	}))
	fmt.Println()
}

func printUsage(stats model.AllStats) {
	fmt.Println(cli.RenderTitle("USAGE  All time"))
	fmt.Println()
	if stats.Total.Messages == 0 {
		fmt.Println("  No usage recorded yet.")
		fmt.Println()
		return
	}

	t := stats.Total
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Totals",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Conversations", cli.FormatNumber(int64(t.Conversations))},
			{"Messages", cli.FormatNumber(int64(t.Messages))},
			{"Prompt tokens", cli.FormatNumber(t.PromptTokens)},
			{"Completion tokens", cli.FormatNumber(t.CompletionTokens)},
			{"Total tokens", cli.FormatNumber(t.TotalTokens)},
			{"---"},
			{"Total cost", cli.FormatCostPrecise(t.TotalCost)},
		},
	}))
	fmt.Println()

	days := stats.PerDay
	if len(days) > usageDays {
		days = days[:usageDays]
	}
	dayRows := make([][]string, len(days))
	for i, d := range days {
		dayRows[i] = []string{
			d.Day,
			cli.FormatNumber(int64(d.Conversations)),
			cli.FormatNumber(int64(d.Messages)),
			cli.FormatNumber(d.TotalTokens),
			cli.FormatCostPrecise(d.TotalCost),
		}
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Daily (last %d days)", usageDays),
		Headers: []string{"Date", "Convs", "Msgs", "Tokens", "Cost"},
		Rows:    dayRows,
	}))
	fmt.Println()

	if !flagUsageDetail {
		return
	}
	convs := make([]model.ConversationStats, len(stats.PerConversation))
	copy(convs, stats.PerConversation)
	sort.SliceStable(convs, func(i, j int) bool { return convs[i].LastSeen.After(convs[j].LastSeen) })
	if len(convs) > usageRecent {
		convs = convs[:usageRecent]
	}
	convRows := make([][]string, len(convs))
	for i, c := range convs {
		convRows[i] = []string{
			c.ConversationID,
			c.LastSeen.Local().Format("2006-01-02 15:04"),
			cli.FormatNumber(int64(c.Messages)),
			cli.FormatNumber(c.TotalTokens),
			cli.FormatCostPrecise(c.TotalCost),
		}
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Recent conversations",
		Headers: []string{"Conversation", "Last", "Msgs", "Tokens", "Cost"},
		Rows:    convRows,
	}))
	fmt.Println()
}

func printLimits(limits *config.CostLimit, daily policy.DailyReport, hasDaily bool) {
	if limits == nil {
		return
	}
	fmt.Println(cli.RenderSection("Cost limits"))
	if limits.PerConversation != nil {
		fmt.Printf("  Per conversation: %s\n", cli.FormatCostPrecise(*limits.PerConversation))
	}
	if hasDaily {
		fmt.Printf("  Daily:            %s  %s used\n",
			cli.RenderProgressBar(daily.Spent, daily.Limit, 20, policy.DailyWarnPercent),
			cli.FormatPercent(daily.PercentUsed))
		if daily.Warn {
			fmt.Println(cli.Warn(fmt.Sprintf("  Warning: you have used %s of your daily limit", cli.FormatPercent(daily.PercentUsed))))
		}
	}
	fmt.Println()
}
