package model

import "time"

// Role tags a conversation turn.
type Role string

// Turn roles.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one message in a conversation. AgentName is set only for agent turns.
type Turn struct {
	Role      Role
	AgentName string
	Text      string
}

// UserTurn builds a user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AgentTurn builds an agent turn.
func AgentTurn(agentName, text string) Turn {
	return Turn{Role: RoleAgent, AgentName: agentName, Text: text}
}

// Conversation is an ordered turn sequence owned by one chat session.
type Conversation struct {
	ID        string
	StartedAt time.Time
	Turns     []Turn
}

// LastUserText returns the text of the most recent user turn.
func (c Conversation) LastUserText() string {
	return LastUserText(c.Turns)
}

// LastUserText returns the text of the most recent user turn in turns.
func LastUserText(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Text
		}
	}
	return ""
}
