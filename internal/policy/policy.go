// Package policy decides whether a live completion may run under the
// configured spending limits.
package policy

import (
	"strconv"

	"github.com/theirongolddev/bmadchat/internal/config"
)

// Decision is the outcome of a cost check.
type Decision struct {
	Allowed bool
	Reason  string
}

// DailyWarnPercent is the share of the daily limit above which reports warn.
const DailyWarnPercent = 80.0

// Check denies when a per-conversation limit is set and sessionCost already
// exceeds it. Reaching the limit exactly is allowed. The daily limit is
// reported by Daily but never blocks.
func Check(limits *config.CostLimit, sessionCost float64) Decision {
	if limits == nil || limits.PerConversation == nil {
		return Decision{Allowed: true}
	}
	limit := *limits.PerConversation
	if sessionCost > limit {
		return Decision{
			Allowed: false,
			Reason:  "Conversation cost limit reached ($" + formatDollars(limit) + ")",
		}
	}
	return Decision{Allowed: true}
}

// Refusal is the agent reply for a denied turn.
func Refusal(d Decision) string {
	return "I apologize, but I cannot continue this conversation. " + d.Reason
}

func formatDollars(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DailyReport describes spending against the daily limit.
type DailyReport struct {
	Limit       float64
	Spent       float64
	Remaining   float64
	PercentUsed float64
	Warn        bool
}

// Daily reports today's spending against the daily limit. ok is false when
// no daily limit is configured.
func Daily(limits *config.CostLimit, spentToday float64) (DailyReport, bool) {
	if limits == nil || limits.Daily == nil {
		return DailyReport{}, false
	}
	r := DailyReport{Limit: *limits.Daily, Spent: spentToday}
	r.Remaining = r.Limit - spentToday
	if r.Remaining < 0 {
		r.Remaining = 0
	}
	if r.Limit > 0 {
		r.PercentUsed = spentToday / r.Limit * 100
	} else if spentToday > 0 {
		r.PercentUsed = 100
	}
	r.Warn = r.PercentUsed > DailyWarnPercent
	return r, true
}
