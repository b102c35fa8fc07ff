// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD amount for summaries. Chat turns cost fractions
// of a cent, so small values keep four decimals.
func FormatCost(cost float64) string {
	switch {
	case cost >= 1000:
		return "$" + FormatNumber(int64(math.Round(cost)))
	case cost >= 1:
		return fmt.Sprintf("$%.2f", cost)
	default:
		return FormatCostPrecise(cost)
	}
}

// FormatCostPrecise always prints four decimals.
func FormatCostPrecise(cost float64) string {
	return fmt.Sprintf("$%.4f", cost)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 value with one decimal.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatSize formats a byte count in KB, the unit export listings use.
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
}

// FormatCostDisplay renders the two-line token and cost summary printed
// after a live turn.
func FormatCostDisplay(u model.UsageRecord, sessionTotal float64) string {
	tokens := fmt.Sprintf("Tokens: %s (prompt: %s + response: %s)",
		FormatNumber(u.TotalTokens), FormatNumber(u.PromptTokens), FormatNumber(u.CompletionTokens))
	if u.Estimated {
		tokens += " (estimated)"
	}
	cost := fmt.Sprintf("Cost: %s (Session total: %s)",
		FormatCostPrecise(u.TotalCost), FormatCostPrecise(sessionTotal))
	return tokens + "\n" + cost
}
