package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/ledger"
	"github.com/theirongolddev/bmadchat/internal/logger"
	"github.com/theirongolddev/bmadchat/internal/metrics"
	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/provider"
)

var sage = model.AgentDefinition{
	ID:          "sage",
	DisplayName: "Sage",
	Role:        "Market Researcher",
	PackName:    "bmad-market-researcher",
	SourceText:  "# Sage\n\nA calm analyst.",
}

type recordingView struct {
	events []string
}

func (v *recordingView) add(format string, args ...any) {
	v.events = append(v.events, fmt.Sprintf(format, args...))
}

func (v *recordingView) Header(a model.AgentDefinition, m string) { v.add("header %s %s", a.ID, m) }
func (v *recordingView) AgentMessage(name, text string)          { v.add("agent %s: %s", name, text) }
func (v *recordingView) StreamStart(name string)                 { v.add("stream-start %s", name) }
func (v *recordingView) StreamChunk(c string)                    { v.add("chunk %s", c) }
func (v *recordingView) StreamEnd()                              { v.add("stream-end") }
func (v *recordingView) Notice(msg string)                       { v.add("notice %s", msg) }
func (v *recordingView) Error(msg string)                        { v.add("error %s", msg) }
func (v *recordingView) Info(msg string)                         { v.add("info %s", msg) }
func (v *recordingView) Usage(s model.ConversationStats)          { v.add("usage %d", s.TotalTokens) }
func (v *recordingView) Clear()                                  { v.add("clear") }
func (v *recordingView) Help()                                   { v.add("help") }
func (v *recordingView) Cost(u model.UsageRecord, total float64) {
	v.add("cost %d %.4f", u.TotalTokens, total)
}

func (v *recordingView) has(prefix string) bool {
	for _, e := range v.events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

type fakeLive struct {
	calls int
	comp  provider.Completion
	err   error
}

func (f *fakeLive) Name() string  { return "fake" }
func (f *fakeLive) Model() string { return "gpt-4" }
func (f *fakeLive) Complete(ctx context.Context, _ provider.Request) (provider.Completion, error) {
	f.calls++
	logger.FromContext(ctx).Debug("fake completion")
	if err := ctx.Err(); err != nil {
		return provider.Completion{}, err
	}
	return f.comp, f.err
}

type fakeStreamer struct {
	fakeLive
	chunks []string
}

func (f *fakeStreamer) Stream(_ context.Context, _ provider.Request) (provider.Stream, error) {
	f.calls++
	return &fakeStream{chunks: f.chunks, comp: f.comp, err: f.err, pos: -1}, nil
}

// fakeStream yields chunks, then finishes with comp or err.
type fakeStream struct {
	chunks []string
	pos    int
	comp   provider.Completion
	err    error
}

func (s *fakeStream) Next() bool {
	if s.pos+1 >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Chunk() string { return s.chunks[s.pos] }

func (s *fakeStream) Completion() (provider.Completion, error) {
	if s.err != nil {
		return provider.Completion{}, s.err
	}
	c := s.comp
	c.Text = strings.Join(s.chunks, "")
	return c, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeExporter struct {
	snaps []Snapshot
	err   error
}

func (e *fakeExporter) Export(s Snapshot) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.snaps = append(e.snaps, s)
	name := s.FileName
	if name == "" {
		name = "auto.md"
	}
	return "exports/" + name, nil
}

type fakeSink struct{ entries []ledger.Entry }

func (s *fakeSink) Append(e ledger.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func newTestSession(t *testing.T, mutate func(*Config)) (*Session, *recordingView) {
	t.Helper()
	view := &recordingView{}
	cfg := Config{
		Agent:          sage,
		Ledger:         ledger.New(),
		Prices:         config.NewPriceTable(config.PricingOverrides{}),
		ShowCost:       true,
		AutoSave:       true,
		View:           view,
		ConversationID: "c1",
		Now:            func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return s, view
}

func TestNewRequiresViewAndAgent(t *testing.T) {
	_, err := New(Config{Agent: sage})
	assert.Error(t, err)
	_, err = New(Config{View: &recordingView{}})
	assert.Error(t, err)
}

func TestStartGreets(t *testing.T) {
	s, view := newTestSession(t, nil)

	assert.Equal(t, StateAwaitingInput, s.State())
	require.Len(t, s.Turns(), 1)
	assert.Equal(t, "Hello! I'm Sage, your Market Researcher. How can I help you today?", s.Turns()[0].Text)
	assert.Equal(t, "header sage ", view.events[0])
	assert.Error(t, s.Start(), "start twice")
}

func TestProcessOffline(t *testing.T) {
	s, _ := newTestSession(t, nil)

	res, err := s.Process(context.Background(), "pricing tiers")
	require.NoError(t, err)
	assert.Equal(t, SourceOffline, res.Source)
	assert.Nil(t, res.Fallback)
	assert.Nil(t, res.Usage)
	assert.Contains(t, res.Turn.Text, `"pricing tiers"`)
	assert.Len(t, s.Turns(), 3)

	_, ok := s.cfg.Ledger.ConversationStats("c1")
	assert.False(t, ok, "offline replies record no usage")
}

func TestRateLimitedFallsBackOffline(t *testing.T) {
	log, logs := logger.TestLogger()
	m := metrics.New()
	live := &fakeLive{err: &provider.Error{Kind: provider.KindRateLimited, Err: errors.New("429")}}
	s, view := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Logger = log
		c.Metrics = m
	})
	before := s.cfg.Ledger.AllStats()

	res, err := s.Process(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, SourceOffline, res.Source)
	assert.ErrorIs(t, res.Fallback, provider.ErrRateLimited)
	assert.Equal(t, 1, live.calls)

	turns := s.Turns()
	require.Len(t, turns, 3, "greeting, user, exactly one agent turn")
	assert.Equal(t, model.RoleUser, turns[1].Role)
	assert.Equal(t, model.RoleAgent, turns[2].Role)
	assert.Equal(t, provider.OfflineReply(sage, "hello"), turns[2].Text)

	assert.Equal(t, before, s.cfg.Ledger.AllStats(), "ledger unchanged")
	assert.True(t, view.has("notice Rate limit exceeded"))
	assert.Equal(t, 1, logs.FilterMessage("live provider failed, answering offline").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("offline")))
}

func TestLiveSuccessRecordsUsage(t *testing.T) {
	sink := &fakeSink{}
	m := metrics.New()
	live := &fakeLive{comp: provider.Completion{
		Text:    "Markets are shifting.",
		Usage:   &provider.RawUsage{PromptTokens: 100, CompletionTokens: 50},
		ModelID: "gpt-4-0613",
	}}
	s, view := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Journal = sink
		c.Metrics = m
	})

	res, err := s.Process(context.Background(), "what's new?")
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	require.NotNil(t, res.Usage)
	assert.InDelta(t, 0.006, res.Usage.TotalCost, 1e-12)

	stats, ok := s.cfg.Ledger.ConversationStats("c1")
	require.True(t, ok)
	assert.Equal(t, int64(150), stats.TotalTokens)
	assert.Equal(t, 1, stats.Messages)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "c1", sink.entries[0].ConversationID)
	assert.Equal(t, "sage", sink.entries[0].AgentID)

	assert.True(t, view.has("agent Sage: Markets are shifting."))
	assert.True(t, view.has("cost 150 0.0060"))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("prompt"))+
		testutil.ToFloat64(m.TokensTotal.WithLabelValues("completion")))
}

func TestUnsetPricesChargeDefaultPricing(t *testing.T) {
	limit := 0.005
	live := &fakeLive{comp: provider.Completion{
		Text:    "ok",
		Usage:   &provider.RawUsage{PromptTokens: 100, CompletionTokens: 50},
		ModelID: "gpt-4",
	}}
	s, _ := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Prices = config.PriceTable{}
		c.Limits = &config.CostLimit{PerConversation: &limit}
	})

	res, err := s.Process(context.Background(), "first")
	require.NoError(t, err)
	require.NotNil(t, res.Usage)
	assert.InDelta(t, 0.006, res.Usage.TotalCost, 1e-12)

	res, err = s.Process(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, SourcePolicy, res.Source)
	assert.Equal(t, 1, live.calls)
}

func TestProviderLogsCarryRequestScope(t *testing.T) {
	log, logs := logger.TestLogger()
	live := &fakeLive{comp: provider.Completion{
		Text: "ok", Usage: &provider.RawUsage{PromptTokens: 1, CompletionTokens: 1}, ModelID: "gpt-4",
	}}
	s, _ := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Logger = log
	})

	_, err := s.Process(context.Background(), "hi")
	require.NoError(t, err)

	entries := logs.FilterMessage("fake completion").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "c1", fields["conversation_id"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestLiveRejectedUsageKeepsTurn(t *testing.T) {
	live := &fakeLive{comp: provider.Completion{
		Text:    "odd",
		Usage:   &provider.RawUsage{PromptTokens: -1, CompletionTokens: 5},
		ModelID: "gpt-4",
	}}
	s, _ := newTestSession(t, func(c *Config) { c.Live = live })

	res, err := s.Process(context.Background(), "hi")
	require.NoError(t, err)
	assert.ErrorIs(t, res.UsageErr, ledger.ErrInvalidUsage)
	assert.Len(t, s.Turns(), 3)
	assert.Empty(t, s.cfg.Ledger.AllStats().PerConversation)
}

func TestStreamingLive(t *testing.T) {
	live := &fakeStreamer{
		chunks: []string{"Hel", "lo"},
		fakeLive: fakeLive{comp: provider.Completion{
			Usage:   &provider.RawUsage{PromptTokens: 10, CompletionTokens: 2, Estimated: true},
			ModelID: "gpt-4",
		}},
	}
	s, view := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Stream = true
		c.ShowCost = false
	})

	res, err := s.Process(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Turn.Text)
	assert.True(t, res.Usage.Estimated)
	assert.Equal(t, []string{"stream-start Sage", "chunk Hel", "chunk lo", "stream-end"}, view.events[2:])
}

func TestStreamFailureMarksPartialReply(t *testing.T) {
	live := &fakeStreamer{
		chunks:   []string{"Hal"},
		fakeLive: fakeLive{err: &provider.Error{Kind: provider.KindNetwork}},
	}
	s, view := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Stream = true
	})

	res, err := s.Process(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, SourceOffline, res.Source)

	events := view.events[2:]
	require.GreaterOrEqual(t, len(events), 5)
	assert.Equal(t, []string{
		"stream-start Sage",
		"chunk Hal",
		"chunk " + streamInterrupted,
		"stream-end",
	}, events[:4])
	assert.True(t, strings.HasPrefix(events[4], "notice "), events[4])
	assert.True(t, strings.HasPrefix(events[len(events)-1], "agent Sage: "), events[len(events)-1])
	assert.Len(t, s.Turns(), 3)
	assert.NotContains(t, s.Turns()[2].Text, "Hal")
}

func TestStreamingDisabledUsesComplete(t *testing.T) {
	waited := ""
	live := &fakeStreamer{fakeLive: fakeLive{comp: provider.Completion{
		Text: "whole", Usage: &provider.RawUsage{PromptTokens: 1, CompletionTokens: 1}, ModelID: "gpt-4",
	}}}
	s, view := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Wait = func(_ context.Context, label string, fn func() error) error {
			waited = label
			return fn()
		}
	})

	res, err := s.Process(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "whole", res.Turn.Text)
	assert.Equal(t, "Thinking...", waited)
	assert.False(t, view.has("stream-start"))
}

func TestPolicyDenial(t *testing.T) {
	limit := 0.005
	live := &fakeLive{}
	s, _ := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Limits = &config.CostLimit{PerConversation: &limit}
	})
	require.NoError(t, s.cfg.Ledger.Record("c1", model.UsageRecord{
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, TotalCost: 0.01,
	}))
	before := s.cfg.Ledger.AllStats()

	res, err := s.Process(context.Background(), "one more?")
	require.NoError(t, err)
	assert.Equal(t, SourcePolicy, res.Source)
	assert.Equal(t, "Conversation cost limit reached ($0.005)", res.Denied)
	assert.Equal(t, "I apologize, but I cannot continue this conversation. Conversation cost limit reached ($0.005)", res.Turn.Text)
	assert.Zero(t, live.calls)
	assert.Equal(t, before, s.cfg.Ledger.AllStats())
}

func TestPolicyAllowsAtLimit(t *testing.T) {
	limit := 0.01
	live := &fakeLive{comp: provider.Completion{Text: "ok", ModelID: "gpt-4"}}
	s, _ := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Limits = &config.CostLimit{PerConversation: &limit}
	})
	require.NoError(t, s.cfg.Ledger.Record("c1", model.UsageRecord{TotalCost: 0.01}))

	res, err := s.Process(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, 1, live.calls)
}

func TestCancelledTurnIsWithdrawn(t *testing.T) {
	live := &fakeLive{}
	s, _ := newTestSession(t, func(c *Config) { c.Live = live })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Process(ctx, "never mind")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, s.Turns(), 1)
	assert.Equal(t, StateAwaitingInput, s.State())
}

func TestRunPipedAutoSaves(t *testing.T) {
	exp := &fakeExporter{}
	s, view := newTestSession(t, func(c *Config) { c.Exporter = exp })

	require.NoError(t, s.RunPiped(context.Background(), strings.NewReader("  /help me plan  \n")))

	assert.Equal(t, StateTerminated, s.State())
	require.Len(t, exp.snaps, 1)
	snap := exp.snaps[0]
	assert.Len(t, snap.Turns, 3)
	assert.Equal(t, "/help me plan", snap.Turns[1].Text, "piped input is never a command")
	assert.Equal(t, "sage", snap.Agent.ID)
	assert.Nil(t, snap.Usage)
	assert.True(t, view.has("info \nConversation saved to: exports/auto.md"))
	assert.False(t, view.has("help"))
}

func TestRunPipedEmptyInputSkipsSave(t *testing.T) {
	exp := &fakeExporter{}
	s, view := newTestSession(t, func(c *Config) { c.Exporter = exp })

	require.NoError(t, s.RunPiped(context.Background(), strings.NewReader("\n\n")))
	assert.Empty(t, exp.snaps)
	assert.True(t, view.has("info \nGoodbye!"))
}

func TestRunInteractiveCommands(t *testing.T) {
	exp := &fakeExporter{}
	s, view := newTestSession(t, func(c *Config) { c.Exporter = exp })

	input := "/help\n/bogus\n\nhello\n/usage\n/clear\n/EXPORT out.md\n/quit\nignored\n"
	require.NoError(t, s.RunInteractive(context.Background(), NewScannerReader(strings.NewReader(input), nil, "")))

	assert.True(t, view.has("help"))
	assert.True(t, view.has("error Unknown command: /bogus"))
	assert.True(t, view.has("info No usage recorded"))
	assert.True(t, view.has("clear"))
	assert.True(t, view.has("info ✓ Conversation exported to: exports/out.md"))

	turns := s.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "hello", turns[1].Text)

	require.Len(t, exp.snaps, 2, "explicit export plus auto-save")
	assert.Equal(t, "out.md", exp.snaps[0].FileName)
	assert.Empty(t, exp.snaps[1].FileName)
	assert.Equal(t, StateTerminated, s.State())
}

func TestRunInteractiveEOFWithoutTurnsSkipsSave(t *testing.T) {
	exp := &fakeExporter{}
	s, _ := newTestSession(t, func(c *Config) { c.Exporter = exp })

	require.NoError(t, s.RunInteractive(context.Background(), NewScannerReader(strings.NewReader("/help\n"), nil, "")))
	assert.Empty(t, exp.snaps)
}

func TestAutoSaveDisabled(t *testing.T) {
	exp := &fakeExporter{}
	s, _ := newTestSession(t, func(c *Config) {
		c.Exporter = exp
		c.AutoSave = false
	})

	require.NoError(t, s.RunPiped(context.Background(), strings.NewReader("hi")))
	assert.Empty(t, exp.snaps)
}

func TestAutoSaveFailureIsReturned(t *testing.T) {
	exp := &fakeExporter{err: errors.New("disk full")}
	s, _ := newTestSession(t, func(c *Config) {
		c.Exporter = exp
		c.Logger = zap.NewNop()
	})

	err := s.RunPiped(context.Background(), strings.NewReader("hi"))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestExportIncludesUsageAndModel(t *testing.T) {
	exp := &fakeExporter{}
	live := &fakeLive{comp: provider.Completion{
		Text: "ok", Usage: &provider.RawUsage{PromptTokens: 3, CompletionTokens: 4}, ModelID: "gpt-4",
	}}
	s, _ := newTestSession(t, func(c *Config) {
		c.Live = live
		c.Exporter = exp
	})
	_, err := s.Process(context.Background(), "hi")
	require.NoError(t, err)

	_, err = s.Export("")
	require.NoError(t, err)
	require.Len(t, exp.snaps, 1)
	assert.Equal(t, "gpt-4", exp.snaps[0].Model)
	require.NotNil(t, exp.snaps[0].Usage)
	assert.Equal(t, int64(7), exp.snaps[0].Usage.TotalTokens)
}

func TestExportWithoutExporter(t *testing.T) {
	s, view := newTestSession(t, nil)
	assert.False(t, s.handleCommand("/export"))
	assert.True(t, view.has("error no exporter configured"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Processing", StateProcessing.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt(sage)
	assert.True(t, strings.HasPrefix(p, "You are Sage, Market Researcher.\n\n# Sage\n\nA calm analyst.\n\nImportant instructions:\n"))
	assert.Contains(t, p, "- Speak in first person as Sage\n")
	assert.True(t, strings.HasSuffix(p, "- Apply your specialized knowledge to the user's questions"))
}

func TestNewGeneratesConversationID(t *testing.T) {
	s, err := New(Config{Agent: sage, View: &recordingView{}})
	require.NoError(t, err)
	assert.Len(t, s.ID(), 26)
}
