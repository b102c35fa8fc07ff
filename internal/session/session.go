// Package session runs one chat between the user and an agent: greeting,
// the per-turn processing step with live/offline fallback and cost policy,
// interactive commands, and the auto-save on exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/theirongolddev/bmadchat/internal/catalog"
	"github.com/theirongolddev/bmadchat/internal/config"
	"github.com/theirongolddev/bmadchat/internal/ledger"
	"github.com/theirongolddev/bmadchat/internal/logger"
	"github.com/theirongolddev/bmadchat/internal/metrics"
	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/policy"
	"github.com/theirongolddev/bmadchat/internal/provider"
)

// State is the session's position in its lifecycle.
type State int

// Lifecycle states. Processing always returns to AwaitingInput.
const (
	StateSelectingAgent State = iota
	StateGreeting
	StateAwaitingInput
	StateProcessing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSelectingAgent:
		return "SelectingAgent"
	case StateGreeting:
		return "Greeting"
	case StateAwaitingInput:
		return "AwaitingInput"
	case StateProcessing:
		return "Processing"
	case StateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Source names what produced an agent turn.
type Source string

// Turn sources.
const (
	SourceLive    Source = metrics.SourceLive
	SourceOffline Source = metrics.SourceOffline
	SourcePolicy  Source = metrics.SourcePolicy
)

// TurnResult describes which branch of the processing step answered.
type TurnResult struct {
	Turn   model.Turn
	Source Source
	// Fallback is the classified live failure answered offline.
	Fallback error
	// Denied is the policy reason when the live call was refused.
	Denied string
	Usage  *model.UsageRecord
	// UsageErr is set when the ledger rejected the turn's usage.
	UsageErr error
}

// Snapshot is what an exporter receives. Agent and Usage may be nil.
type Snapshot struct {
	ConversationID string
	StartedAt      time.Time
	Agent          *model.AgentDefinition
	Turns          []model.Turn
	Usage          *model.ConversationStats
	Model          string
	// FileName overrides the generated file name when set.
	FileName string
}

// Exporter writes a conversation document and returns its path.
type Exporter interface {
	Export(Snapshot) (string, error)
}

// UsageSink persists recorded usage beyond the process.
type UsageSink interface {
	Append(ledger.Entry) error
}

// View presents the session to the user.
type View interface {
	Header(agent model.AgentDefinition, modelID string)
	AgentMessage(name, text string)
	StreamStart(name string)
	StreamChunk(chunk string)
	StreamEnd()
	Notice(msg string)
	Error(msg string)
	Info(msg string)
	Cost(u model.UsageRecord, sessionTotal float64)
	Usage(s model.ConversationStats)
	Clear()
	Help()
}

// Waiter runs fn while showing label, e.g. a spinner.
type Waiter func(ctx context.Context, label string, fn func() error) error

func runDirect(_ context.Context, _ string, fn func() error) error { return fn() }

// Config wires a session's collaborators. Agent and View are required.
type Config struct {
	Agent model.AgentDefinition
	// Live is nil when no live backend is configured.
	Live     provider.Provider
	Offline  provider.Provider
	Ledger   *ledger.Ledger
	Journal  UsageSink
	Prices   config.PriceTable
	Limits   *config.CostLimit
	Stream   bool
	ShowCost bool
	AutoSave bool
	Exporter Exporter
	Metrics  *metrics.Metrics
	View     View
	Wait     Waiter
	Logger   *zap.Logger

	ConversationID string
	Now            func() time.Time
}

// Session is one conversation. It is not safe for concurrent use; the
// ledger it writes to is.
type Session struct {
	cfg          Config
	log          *zap.Logger
	state        State
	conv         model.Conversation
	systemPrompt string
	modelID      string
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Session, error) {
	if cfg.View == nil {
		return nil, errors.New("session: view is required")
	}
	if cfg.Agent.ID == "" {
		return nil, errors.New("session: agent is required")
	}
	if cfg.Offline == nil {
		cfg.Offline = provider.NewOffline()
	}
	if cfg.Ledger == nil {
		cfg.Ledger = ledger.New()
	}
	if cfg.Wait == nil {
		cfg.Wait = runDirect
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = ulid.Make().String()
	}

	s := &Session{
		cfg: cfg,
		log: cfg.Logger.With(
			zap.String("conversation_id", cfg.ConversationID),
			zap.String("agent", cfg.Agent.ID),
		),
		state:        StateSelectingAgent,
		conv:         model.Conversation{ID: cfg.ConversationID, StartedAt: cfg.Now()},
		systemPrompt: BuildSystemPrompt(cfg.Agent),
	}
	if m, ok := cfg.Live.(interface{ Model() string }); ok {
		s.modelID = m.Model()
	}
	return s, nil
}

// ID returns the conversation id used for ledger records.
func (s *Session) ID() string { return s.conv.ID }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Turns returns a copy of the conversation so far.
func (s *Session) Turns() []model.Turn {
	out := make([]model.Turn, len(s.conv.Turns))
	copy(out, s.conv.Turns)
	return out
}

// Start prints the banner and the agent's greeting.
func (s *Session) Start() error {
	if s.state != StateSelectingAgent {
		return fmt.Errorf("session: start in state %s", s.state)
	}
	s.state = StateGreeting
	s.cfg.View.Header(s.cfg.Agent, s.modelID)

	greeting := catalog.Greeting(s.cfg.Agent)
	s.conv.Turns = append(s.conv.Turns, model.AgentTurn(s.cfg.Agent.DisplayName, greeting))
	s.cfg.View.AgentMessage(s.cfg.Agent.DisplayName, greeting)

	s.state = StateAwaitingInput
	s.log.Info("chat started", zap.Bool("live", s.cfg.Live != nil))
	return nil
}

// Process runs one processing step for a user line and appends exactly one
// agent turn. The only error returned is cancellation, in which case the
// user turn is withdrawn.
func (s *Session) Process(ctx context.Context, text string) (TurnResult, error) {
	if s.state != StateAwaitingInput {
		return TurnResult{}, fmt.Errorf("session: process in state %s", s.state)
	}
	s.state = StateProcessing
	defer func() {
		if s.state == StateProcessing {
			s.state = StateAwaitingInput
		}
	}()

	s.conv.Turns = append(s.conv.Turns, model.UserTurn(text))
	log := s.log.With(zap.String("request_id", uuid.New().String()))
	ctx = logger.WithLogger(ctx, log)
	req := provider.Request{
		SystemPrompt: s.systemPrompt,
		History:      s.Turns(),
		Agent:        s.cfg.Agent,
	}

	var result TurnResult
	if s.cfg.Live != nil {
		stats, _ := s.cfg.Ledger.ConversationStats(s.conv.ID)
		if d := policy.Check(s.cfg.Limits, stats.TotalCost); !d.Allowed {
			log.Info("cost limit reached", zap.String("reason", d.Reason))
			result = TurnResult{Source: SourcePolicy, Denied: d.Reason}
			result.Turn = s.appendAgent(policy.Refusal(d))
			s.cfg.View.AgentMessage(result.Turn.AgentName, result.Turn.Text)
			s.countTurn(result.Source)
			return result, nil
		}

		comp, streamed, err := s.callLive(ctx, req)
		switch {
		case err == nil:
			result = TurnResult{Source: SourceLive}
			result.Turn = s.appendAgent(comp.Text)
			if !streamed {
				s.cfg.View.AgentMessage(result.Turn.AgentName, result.Turn.Text)
			}
			s.countTurn(result.Source)
			s.recordUsage(log, comp, &result)
			return result, nil
		case ctx.Err() != nil:
			s.conv.Turns = s.conv.Turns[:len(s.conv.Turns)-1]
			log.Info("turn cancelled", zap.Error(err))
			return TurnResult{}, ctx.Err()
		default:
			kind := provider.KindOf(err)
			log.Warn("live provider failed, answering offline",
				zap.String("kind", string(kind)), zap.Error(err))
			s.cfg.View.Notice(kind.Notice() + " Falling back to offline response.")
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.FallbacksTotal.WithLabelValues(string(kind)).Inc()
			}
			result.Fallback = err
		}
	}

	comp, err := s.cfg.Offline.Complete(ctx, req)
	if err != nil {
		// Offline replies are pure templates; only cancellation reaches here.
		s.conv.Turns = s.conv.Turns[:len(s.conv.Turns)-1]
		return TurnResult{}, err
	}
	result.Source = SourceOffline
	result.Turn = s.appendAgent(comp.Text)
	s.cfg.View.AgentMessage(result.Turn.AgentName, result.Turn.Text)
	s.countTurn(result.Source)
	return result, nil
}

func (s *Session) appendAgent(text string) model.Turn {
	t := model.AgentTurn(s.cfg.Agent.DisplayName, text)
	s.conv.Turns = append(s.conv.Turns, t)
	return t
}

// streamInterrupted closes a partially shown reply that will be replaced.
const streamInterrupted = "\n(response interrupted)"

// callLive streams when both the provider and the config allow it; streamed
// reports whether the text was already shown.
func (s *Session) callLive(ctx context.Context, req provider.Request) (comp provider.Completion, streamed bool, err error) {
	start := time.Now()
	defer func() {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ProviderCallSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	if st, ok := s.cfg.Live.(provider.Streamer); ok && s.cfg.Stream {
		stream, err := st.Stream(ctx, req)
		if err != nil {
			return provider.Completion{}, false, err
		}
		name := s.cfg.Agent.DisplayName
		comp, err = provider.Drain(stream, func(chunk string) {
			if !streamed {
				s.cfg.View.StreamStart(name)
				streamed = true
			}
			s.cfg.View.StreamChunk(chunk)
		})
		if streamed {
			if err != nil {
				s.cfg.View.StreamChunk(streamInterrupted)
			}
			s.cfg.View.StreamEnd()
		}
		return comp, streamed && err == nil, err
	}

	err = s.cfg.Wait(ctx, "Thinking...", func() error {
		var callErr error
		comp, callErr = s.cfg.Live.Complete(ctx, req)
		return callErr
	})
	return comp, false, err
}

func (s *Session) recordUsage(log *zap.Logger, comp provider.Completion, result *TurnResult) {
	if comp.Usage == nil {
		return
	}
	rec := provider.Cost(s.cfg.Prices, *comp.Usage, comp.ModelID)
	at := s.cfg.Now()
	if err := s.cfg.Ledger.RecordAt(s.conv.ID, rec, at); err != nil {
		log.Warn("usage rejected", zap.Error(err))
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.UsageRejectedTotal.Inc()
		}
		result.UsageErr = err
		return
	}
	result.Usage = &rec

	if s.cfg.Journal != nil {
		entry := ledger.Entry{
			Timestamp:      at,
			ConversationID: s.conv.ID,
			AgentID:        s.cfg.Agent.ID,
			UsageRecord:    rec,
		}
		if err := s.cfg.Journal.Append(entry); err != nil {
			log.Warn("usage journal append failed", zap.Error(err))
		}
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.TokensTotal.WithLabelValues("prompt").Add(float64(rec.PromptTokens))
		s.cfg.Metrics.TokensTotal.WithLabelValues("completion").Add(float64(rec.CompletionTokens))
		s.cfg.Metrics.CostDollarsTotal.Add(rec.TotalCost)
	}
	log.Debug("usage recorded",
		zap.Int64("total_tokens", rec.TotalTokens),
		zap.Float64("cost", rec.TotalCost),
		zap.Bool("estimated", rec.Estimated))

	if s.cfg.ShowCost {
		stats, _ := s.cfg.Ledger.ConversationStats(s.conv.ID)
		s.cfg.View.Cost(rec, stats.TotalCost)
	}
}

func (s *Session) countTurn(src Source) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.TurnsTotal.WithLabelValues(string(src)).Inc()
	}
}

// Snapshot captures the conversation for export.
func (s *Session) Snapshot(fileName string) Snapshot {
	agent := s.cfg.Agent
	snap := Snapshot{
		ConversationID: s.conv.ID,
		StartedAt:      s.conv.StartedAt,
		Agent:          &agent,
		Turns:          s.Turns(),
		Model:          s.modelID,
		FileName:       fileName,
	}
	if stats, ok := s.cfg.Ledger.ConversationStats(s.conv.ID); ok {
		snap.Usage = &stats
	}
	return snap
}

// Export writes the conversation now.
func (s *Session) Export(fileName string) (string, error) {
	if s.cfg.Exporter == nil {
		return "", errors.New("no exporter configured")
	}
	path, err := s.cfg.Exporter.Export(s.Snapshot(fileName))
	if err != nil {
		return "", fmt.Errorf("exporting conversation: %w", err)
	}
	return path, nil
}

// handleCommand runs a slash command and reports whether the chat should end.
func (s *Session) handleCommand(line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/export":
		var name string
		if len(fields) > 1 {
			name = fields[1]
		}
		path, err := s.Export(name)
		if err != nil {
			s.log.Warn("export failed", zap.Error(err))
			s.cfg.View.Error(err.Error())
			return false
		}
		s.cfg.View.Info("✓ Conversation exported to: " + path)
	case "/clear":
		s.cfg.View.Clear()
	case "/help":
		s.cfg.View.Help()
	case "/usage":
		stats, ok := s.cfg.Ledger.ConversationStats(s.conv.ID)
		if !ok {
			s.cfg.View.Info("No usage recorded for this conversation yet.")
			return false
		}
		s.cfg.View.Usage(stats)
	default:
		s.cfg.View.Error("Unknown command: " + cmd)
		s.cfg.View.Info("Type /help for available commands")
	}
	return false
}

func (s *Session) ensureStarted() error {
	if s.state == StateSelectingAgent {
		return s.Start()
	}
	return nil
}

// RunInteractive reads lines until /exit, end of input or cancellation,
// then closes the session.
func (s *Session) RunInteractive(ctx context.Context, in LineReader) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	for {
		line, err := in.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				break
			}
			_ = s.Close()
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if s.handleCommand(line) {
				break
			}
			continue
		}
		if _, err := s.Process(ctx, line); err != nil {
			break
		}
	}
	return s.Close()
}

// RunPiped treats all of in as a single user turn. Commands are not
// interpreted.
func (s *Session) RunPiped(ctx context.Context, in io.Reader) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("reading piped input: %w", err)
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		// Cancellation only skips the turn; Close still runs.
		_, _ = s.Process(ctx, text)
	}
	return s.Close()
}

// Close terminates the session, auto-saving when enabled and the user said
// something. Calling Close again is a no-op.
func (s *Session) Close() error {
	if s.state == StateTerminated {
		return nil
	}
	s.state = StateTerminated

	var saveErr error
	if s.cfg.AutoSave && s.cfg.Exporter != nil && len(s.conv.Turns) > 2 {
		path, err := s.Export("")
		if err != nil {
			s.log.Warn("auto-save failed", zap.Error(err))
			saveErr = err
		} else {
			s.cfg.View.Info("\nConversation saved to: " + path)
		}
	}
	s.log.Info("chat ended", zap.Int("turns", len(s.conv.Turns)))
	s.cfg.View.Info("\nGoodbye!")
	return saveErr
}
