package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theirongolddev/bmadchat/internal/config"
)

func ptr(v float64) *float64 { return &v }

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		limits  *config.CostLimit
		spent   float64
		allowed bool
	}{
		{"no limits", nil, 1e9, true},
		{"no per-conversation", &config.CostLimit{Daily: ptr(0.01)}, 5, true},
		{"under", &config.CostLimit{PerConversation: ptr(1)}, 0.99, true},
		{"equal is allowed", &config.CostLimit{PerConversation: ptr(1)}, 1, true},
		{"over", &config.CostLimit{PerConversation: ptr(1)}, 1.0001, false},
		{"zero limit, zero spent", &config.CostLimit{PerConversation: ptr(0)}, 0, true},
		{"zero limit, any spend", &config.CostLimit{PerConversation: ptr(0)}, 0.0001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Check(tt.limits, tt.spent)
			assert.Equal(t, tt.allowed, d.Allowed)
			if tt.allowed {
				assert.Empty(t, d.Reason)
			} else {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestCheck_ReasonNamesLimit(t *testing.T) {
	d := Check(&config.CostLimit{PerConversation: ptr(0.5)}, 0.75)
	assert.Equal(t, "Conversation cost limit reached ($0.5)", d.Reason)
	assert.Equal(t,
		"I apologize, but I cannot continue this conversation. Conversation cost limit reached ($0.5)",
		Refusal(d))
}

func TestCheck_DailyNeverBlocks(t *testing.T) {
	limits := &config.CostLimit{PerConversation: ptr(100), Daily: ptr(1)}
	assert.True(t, Check(limits, 50).Allowed)

	r, ok := Daily(limits, 5)
	assert.True(t, ok)
	assert.True(t, r.Warn)
	assert.Equal(t, 500.0, r.PercentUsed)
	assert.Zero(t, r.Remaining)
}

func TestDaily(t *testing.T) {
	_, ok := Daily(nil, 1)
	assert.False(t, ok)
	_, ok = Daily(&config.CostLimit{PerConversation: ptr(1)}, 1)
	assert.False(t, ok)

	r, ok := Daily(&config.CostLimit{Daily: ptr(10)}, 8)
	assert.True(t, ok)
	assert.InDelta(t, 80.0, r.PercentUsed, 1e-9)
	assert.False(t, r.Warn)
	assert.InDelta(t, 2.0, r.Remaining, 1e-9)

	r, _ = Daily(&config.CostLimit{Daily: ptr(10)}, 8.5)
	assert.True(t, r.Warn)
}
