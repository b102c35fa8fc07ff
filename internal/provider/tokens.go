package provider

import (
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// messageOverhead is the per-message framing cost of the chat format.
const messageOverhead = 4

// replyPrimer is charged once per request for the assistant reply prompt.
const replyPrimer = 2

// TokenCounter counts tokens with the cl100k_base encoding, falling back to
// a character/word heuristic when the encoding cannot be loaded.
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTokenCounter returns a counter that loads cl100k_base on first use.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (c *TokenCounter) init() {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int64 {
	if text == "" {
		return 0
	}
	c.init()
	if c.enc == nil {
		return EstimateTokens(text)
	}
	return int64(len(c.enc.Encode(text, nil, nil)))
}

// CountRequest returns the prompt tokens for the system prompt plus history.
func (c *TokenCounter) CountRequest(systemPrompt string, history []model.Turn) int64 {
	total := int64(messageOverhead) + c.Count("system") + c.Count(systemPrompt)
	for _, t := range history {
		total += messageOverhead + c.Count(chatRole(t.Role)) + c.Count(t.Text)
	}
	return total + replyPrimer
}

// EstimateTokens averages a characters/4 estimate with a words*1.3 estimate.
func EstimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	chars := float64(utf8.RuneCountInString(text))
	words := float64(len(strings.Fields(text)))
	return int64(math.Ceil((chars/4 + words*1.3) / 2))
}

func chatRole(r model.Role) string {
	if r == model.RoleUser {
		return "user"
	}
	return "assistant"
}
