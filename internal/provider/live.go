package provider

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"go.uber.org/zap"

	"github.com/theirongolddev/bmadchat/internal/logger"
	"github.com/theirongolddev/bmadchat/internal/model"
)

// LiveOptions configures the OpenAI-backed provider.
type LiveOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
	Counter     *TokenCounter
	Logger      *zap.Logger
}

type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
	NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// Live calls the OpenAI chat completions API. Every failure it returns is a
// *Error carrying a classified kind, except context cancellation which is
// passed through unchanged.
type Live struct {
	completions chatCompletions
	model       string
	maxTokens   int64
	temperature float64
	counter     *TokenCounter
	log         *zap.Logger
}

// NewLive builds a Live provider.
func NewLive(opts LiveOptions) *Live {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(max(opts.MaxRetries, 0)),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	counter := opts.Counter
	if counter == nil {
		counter = NewTokenCounter()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Live{
		completions: &client.Chat.Completions,
		model:       opts.Model,
		maxTokens:   int64(opts.MaxTokens),
		temperature: opts.Temperature,
		counter:     counter,
		log:         log,
	}
}

// Name implements Provider.
func (p *Live) Name() string { return "openai" }

// Model returns the configured model id.
func (p *Live) Model() string { return p.model }

func (p *Live) params(req Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	for _, t := range req.History {
		if t.Role == model.RoleUser {
			msgs = append(msgs, openai.UserMessage(t.Text))
		} else {
			msgs = append(msgs, openai.AssistantMessage(t.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    msgs,
		Temperature: openai.Float(p.temperature),
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(p.maxTokens)
	}
	return params
}

// Complete implements Provider with a single non-streaming call that
// reports exact usage.
func (p *Live) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := p.completions.New(ctx, p.params(req))
	if err != nil {
		return Completion{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &Error{Kind: KindUnknown, Err: errors.New("response has no choices")}
	}

	modelID := resp.Model
	if modelID == "" {
		modelID = p.model
	}
	logger.FromContextOr(ctx, p.log).Debug("completion received",
		zap.String("model", modelID),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))
	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: &RawUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
		ModelID: modelID,
	}, nil
}

// Stream implements Streamer. The API is asked to append a usage chunk;
// when it does not, usage is estimated from the request and the text.
func (p *Live) Stream(ctx context.Context, req Request) (Stream, error) {
	params := p.params(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	return &liveStream{
		p:      p,
		req:    req,
		log:    logger.FromContextOr(ctx, p.log),
		stream: p.completions.NewStreaming(ctx, params),
	}, nil
}

type liveStream struct {
	p       *Live
	req     Request
	log     *zap.Logger
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	chunk   string
	text    strings.Builder
	usage   *openai.CompletionUsage
	modelID string
}

func (s *liveStream) Next() bool {
	for s.stream.Next() {
		cur := s.stream.Current()
		if cur.Model != "" {
			s.modelID = cur.Model
		}
		if cur.Usage.TotalTokens > 0 {
			u := cur.Usage
			s.usage = &u
		}
		if len(cur.Choices) == 0 || cur.Choices[0].Delta.Content == "" {
			continue
		}
		s.chunk = cur.Choices[0].Delta.Content
		s.text.WriteString(s.chunk)
		return true
	}
	s.chunk = ""
	return false
}

func (s *liveStream) Chunk() string { return s.chunk }

func (s *liveStream) Completion() (Completion, error) {
	if err := s.stream.Err(); err != nil {
		return Completion{}, classify(err)
	}

	modelID := s.modelID
	if modelID == "" {
		modelID = s.p.model
	}
	c := Completion{Text: s.text.String(), ModelID: modelID}

	if s.usage != nil {
		c.Usage = &RawUsage{
			PromptTokens:     s.usage.PromptTokens,
			CompletionTokens: s.usage.CompletionTokens,
		}
		return c, nil
	}

	c.Usage = &RawUsage{
		PromptTokens:     s.p.counter.CountRequest(s.req.SystemPrompt, s.req.History),
		CompletionTokens: s.p.counter.Count(c.Text),
		Estimated:        true,
	}
	s.log.Debug("stream ended without usage, estimated",
		zap.Int64("prompt_tokens", c.Usage.PromptTokens),
		zap.Int64("completion_tokens", c.Usage.CompletionTokens))
	return c, nil
}

func (s *liveStream) Close() error {
	return s.stream.Close()
}

// classify maps an SDK or transport error to a *Error. Cancellation by the
// caller is returned as is.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: classifyStatus(apiErr.StatusCode, apiErr.Code), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetwork, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"network", "connection refused", "connection reset", "no such host", "broken pipe"} {
		if strings.Contains(msg, s) {
			return &Error{Kind: KindNetwork, Err: err}
		}
	}
	return &Error{Kind: KindUnknown, Err: err}
}

// classifyStatus prefers the API's error code and falls back to the HTTP
// status.
func classifyStatus(status int, code string) ErrorKind {
	switch code {
	case "invalid_api_key":
		return KindCredentialInvalid
	case "insufficient_quota":
		return KindQuotaExceeded
	case "rate_limit_exceeded":
		return KindRateLimited
	case "model_not_found":
		return KindUnavailable
	}

	switch {
	case status == 401 || status == 403:
		return KindCredentialInvalid
	case status == 402:
		return KindQuotaExceeded
	case status == 429:
		return KindRateLimited
	case status == 404 || status >= 500:
		return KindUnavailable
	}
	return KindUnknown
}
