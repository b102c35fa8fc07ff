package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bmadchat/internal/model"
)

func agentIn(pack string) model.AgentDefinition {
	return model.AgentDefinition{ID: "a", DisplayName: "Ada", Role: "Systems Thinker", PackName: pack}
}

func TestOffline_Deterministic(t *testing.T) {
	p := NewOffline()
	req := Request{
		Agent:   agentIn("creative-writing"),
		History: []model.Turn{model.AgentTurn("Ada", "hi"), model.UserTurn("plot twist ideas")},
	}

	first, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Nil(t, first.Usage)
	assert.Equal(t, OfflineModelID, first.ModelID)
}

func TestOfflineReply_Templates(t *testing.T) {
	tests := []struct {
		pack   string
		prefix string
	}{
		{"bmad-problem-solver", "Let me analyze this systematically. scaling woes appears"},
		{"market-researcher", `Based on my analysis of "scaling woes", here are`},
		{"product-manager-pack", `From a product perspective, "scaling woes" raises`},
		{"game-dev", `I understand you're asking about "scaling woes". As Ada, I bring expertise in Systems Thinker.`},
	}
	for _, tt := range tests {
		t.Run(tt.pack, func(t *testing.T) {
			got := OfflineReply(agentIn(tt.pack), "scaling woes")
			assert.True(t, strings.HasPrefix(got, tt.prefix), got)
			assert.NotContains(t, got, "{input}")
		})
	}
}

func TestOfflineReply_InputIsNotExpanded(t *testing.T) {
	got := OfflineReply(agentIn("x"), "what is {name}?")
	assert.Contains(t, got, `"what is {name}?"`)
}

func TestOffline_UsesLatestUserTurn(t *testing.T) {
	req := Request{
		Agent: agentIn("x"),
		History: []model.Turn{
			model.UserTurn("first"),
			model.AgentTurn("Ada", "reply"),
			model.UserTurn("second"),
		},
	}
	c, err := NewOffline().Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, c.Text, `"second"`)
	assert.NotContains(t, c.Text, "first")
}
