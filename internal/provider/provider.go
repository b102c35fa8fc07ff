// Package provider turns a system prompt and conversation history into an
// agent reply, either from a live model API or from offline templates.
package provider

import (
	"context"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// Request is one completion call.
type Request struct {
	SystemPrompt string
	History      []model.Turn
	Agent        model.AgentDefinition
}

// RawUsage is the backend's token accounting for one call. Estimated is set
// when counts were derived from text length rather than reported.
type RawUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	Estimated        bool
}

// Completion is a finished reply. Usage is nil for offline replies.
type Completion struct {
	Text    string
	Usage   *RawUsage
	ModelID string
}

// Provider produces a reply for a request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Streamer is implemented by providers that can deliver a reply in pieces.
type Streamer interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream is a finite, non-restartable sequence of text chunks pulled by the
// caller. After Next returns false, Completion returns the assembled reply
// with its usage, or the error that ended the stream.
type Stream interface {
	Next() bool
	Chunk() string
	Completion() (Completion, error)
	Close() error
}

// Drain pulls every chunk from s, handing each to emit before requesting the
// next, then closes s.
func Drain(s Stream, emit func(string)) (Completion, error) {
	defer func() { _ = s.Close() }()
	for s.Next() {
		if emit != nil {
			emit(s.Chunk())
		}
	}
	return s.Completion()
}
