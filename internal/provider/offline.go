package provider

import (
	"context"
	"strings"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// OfflineModelID is reported as the model of offline replies.
const OfflineModelID = "offline"

type offlineTemplate struct {
	packKeyword string
	text        string
}

// Checked in order against the agent's pack name.
var offlineTemplates = []offlineTemplate{
	{
		packKeyword: "problem-solver",
		text: `Let me analyze this systematically. {input} appears to be a complex challenge that requires understanding the underlying system dynamics. 

I would approach this by:
1. **Identifying key components** - What are the main elements involved?
2. **Mapping relationships** - How do these components interact?
3. **Finding leverage points** - Where can we intervene most effectively?

Could you provide more context about the specific constraints or goals you're working with?`,
	},
	{
		packKeyword: "market-researcher",
		text: `Based on my analysis of "{input}", here are my initial observations:

**Market Context**: This appears to relate to market dynamics that require deeper investigation.

**Key Areas to Explore**:
- Target audience characteristics
- Competitive landscape
- Market size and growth potential

What specific market aspects would you like me to focus on?`,
	},
	{
		packKeyword: "product-manager",
		text: `From a product perspective, "{input}" raises important considerations:

**User Impact**: How does this affect our users' jobs-to-be-done?
**Strategic Alignment**: Does this align with our product vision?
**Prioritization**: Where does this fit in our roadmap?

Let's dig deeper into the user needs behind this request.`,
	},
}

const offlineDefault = `I understand you're asking about "{input}". As {name}, I bring expertise in {role}. Let me think about this from that perspective and provide you with actionable insights.

What specific aspect would you like me to focus on?`

// Offline answers from fixed templates chosen by pack name. It makes no
// external calls and holds no state, so equal requests get equal replies.
type Offline struct{}

// NewOffline returns the offline provider.
func NewOffline() Offline { return Offline{} }

// Name implements Provider.
func (Offline) Name() string { return OfflineModelID }

// Complete implements Provider. It never fails and never reports usage.
func (Offline) Complete(_ context.Context, req Request) (Completion, error) {
	return Completion{
		Text:    OfflineReply(req.Agent, model.LastUserText(req.History)),
		ModelID: OfflineModelID,
	}, nil
}

// OfflineReply renders the template for agent's pack with input.
func OfflineReply(agent model.AgentDefinition, input string) string {
	tmpl := offlineDefault
	for _, t := range offlineTemplates {
		if strings.Contains(agent.PackName, t.packKeyword) {
			tmpl = t.text
			break
		}
	}
	r := strings.NewReplacer(
		"{input}", input,
		"{name}", agent.DisplayName,
		"{role}", agent.Role,
	)
	return r.Replace(tmpl)
}
