package model

import "time"

// UsageRecord is the cost attribution for one completed live turn.
// TotalTokens = PromptTokens + CompletionTokens and
// TotalCost = InputCost + OutputCost.
type UsageRecord struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	TotalCost        float64 `json:"total_cost"`
	Model            string  `json:"model,omitempty"`
	Estimated        bool    `json:"estimated,omitempty"`
}

// ConversationStats accumulates usage for one conversation.
type ConversationStats struct {
	ConversationID   string    `json:"conversation_id"`
	Messages         int       `json:"messages"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	TotalCost        float64   `json:"total_cost"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
}

// DailyStats accumulates usage for one calendar day (local time).
type DailyStats struct {
	Day           string  `json:"day"`
	Conversations int     `json:"conversations"`
	Messages      int     `json:"messages"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

// TotalStats is the process-wide sum over all recorded usage.
type TotalStats struct {
	Conversations    int     `json:"conversations"`
	Messages         int     `json:"messages"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
}

// AllStats is the full ledger view.
type AllStats struct {
	Total           TotalStats          `json:"total"`
	PerConversation []ConversationStats `json:"per_conversation"`
	PerDay          []DailyStats        `json:"per_day"`
}
