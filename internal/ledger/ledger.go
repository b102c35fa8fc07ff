// Package ledger accounts token and cost usage per conversation and per day.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// ErrInvalidUsage rejects a record with negative or inconsistent counters.
// The ledger is left untouched.
var ErrInvalidUsage = errors.New("invalid usage record")

// DayKeyLayout is the calendar-day bucket key format (local time).
const DayKeyLayout = "2006-01-02"

// DayKey returns the daily bucket key for t.
func DayKey(t time.Time) string {
	return t.Local().Format(DayKeyLayout)
}

type dayBucket struct {
	stats model.DailyStats
	seen  map[string]struct{}
}

// Ledger is the in-memory usage store. Both buckets are updated under one
// lock, so readers never see a record applied to only one of them.
type Ledger struct {
	mu    sync.Mutex
	now   func() time.Time
	convs map[string]*model.ConversationStats
	order []string
	days  map[string]*dayBucket
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for bucket assignment.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{now: time.Now}
	for _, o := range opts {
		o(l)
	}
	l.reset()
	return l
}

func (l *Ledger) reset() {
	l.convs = make(map[string]*model.ConversationStats)
	l.order = nil
	l.days = make(map[string]*dayBucket)
}

// Validate reports why u cannot be recorded, or nil.
func Validate(u model.UsageRecord) error {
	switch {
	case u.PromptTokens < 0 || u.CompletionTokens < 0 || u.TotalTokens < 0:
		return fmt.Errorf("%w: negative token count", ErrInvalidUsage)
	case u.TotalTokens != u.PromptTokens+u.CompletionTokens:
		return fmt.Errorf("%w: total tokens %d != %d + %d",
			ErrInvalidUsage, u.TotalTokens, u.PromptTokens, u.CompletionTokens)
	}
	for _, c := range []float64{u.InputCost, u.OutputCost, u.TotalCost} {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: cost %v", ErrInvalidUsage, c)
		}
	}
	return nil
}

// Record applies u to the conversation bucket and today's bucket.
func (l *Ledger) Record(conversationID string, u model.UsageRecord) error {
	return l.RecordAt(conversationID, u, l.now())
}

// RecordAt applies u as if it happened at at. Journal replay uses it to
// rebuild the original daily buckets.
func (l *Ledger) RecordAt(conversationID string, u model.UsageRecord, at time.Time) error {
	if conversationID == "" {
		return fmt.Errorf("%w: empty conversation id", ErrInvalidUsage)
	}
	if err := Validate(u); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cs, ok := l.convs[conversationID]
	if !ok {
		cs = &model.ConversationStats{ConversationID: conversationID, FirstSeen: at}
		l.convs[conversationID] = cs
		l.order = append(l.order, conversationID)
	}
	cs.Messages++
	cs.PromptTokens += u.PromptTokens
	cs.CompletionTokens += u.CompletionTokens
	cs.TotalTokens += u.TotalTokens
	cs.TotalCost += u.TotalCost
	if at.Before(cs.FirstSeen) {
		cs.FirstSeen = at
	}
	if at.After(cs.LastSeen) {
		cs.LastSeen = at
	}

	key := DayKey(at)
	day, ok := l.days[key]
	if !ok {
		day = &dayBucket{stats: model.DailyStats{Day: key}, seen: make(map[string]struct{})}
		l.days[key] = day
	}
	if _, seen := day.seen[conversationID]; !seen {
		day.seen[conversationID] = struct{}{}
		day.stats.Conversations++
	}
	day.stats.Messages++
	day.stats.TotalTokens += u.TotalTokens
	day.stats.TotalCost += u.TotalCost

	return nil
}

// ConversationStats returns the accumulated usage for one conversation.
func (l *Ledger) ConversationStats(id string) (model.ConversationStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cs, ok := l.convs[id]
	if !ok {
		return model.ConversationStats{}, false
	}
	return *cs, true
}

// DailyStats returns the bucket for the calendar day containing day.
func (l *Ledger) DailyStats(day time.Time) (model.DailyStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.days[DayKey(day)]
	if !ok {
		return model.DailyStats{}, false
	}
	return b.stats, true
}

// TodayStats is DailyStats for the ledger's current time.
func (l *Ledger) TodayStats() (model.DailyStats, bool) {
	return l.DailyStats(l.now())
}

// AllStats returns every bucket plus their total. Conversations are listed
// in first-recorded order, days most recent first.
func (l *Ledger) AllStats() model.AllStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := model.AllStats{
		PerConversation: make([]model.ConversationStats, 0, len(l.order)),
		PerDay:          make([]model.DailyStats, 0, len(l.days)),
	}
	for _, id := range l.order {
		cs := *l.convs[id]
		out.PerConversation = append(out.PerConversation, cs)
		out.Total.Conversations++
		out.Total.Messages += cs.Messages
		out.Total.PromptTokens += cs.PromptTokens
		out.Total.CompletionTokens += cs.CompletionTokens
		out.Total.TotalTokens += cs.TotalTokens
		out.Total.TotalCost += cs.TotalCost
	}
	for _, b := range l.days {
		out.PerDay = append(out.PerDay, b.stats)
	}
	sort.Slice(out.PerDay, func(i, j int) bool {
		return out.PerDay[i].Day > out.PerDay[j].Day
	})
	return out
}

// Clear empties both mappings at once.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
}
