package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/theirongolddev/bmadchat/internal/model"
)

const ruleWidth = 60

// ChatView prints a chat session to a terminal or a pipe.
type ChatView struct {
	out     io.Writer
	md      *Markdown
	plain   bool
	agent   model.AgentDefinition
	modelID string
}

// NewChatView writes to out. plain disables markdown styling and screen
// clearing.
func NewChatView(out io.Writer, plain bool) *ChatView {
	return &ChatView{out: out, md: NewMarkdown(DefaultWrap, plain), plain: plain}
}

func (v *ChatView) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(v.out, format, args...)
}

// Header prints the chat banner. modelID is empty for offline chats.
func (v *ChatView) Header(agent model.AgentDefinition, modelID string) {
	v.agent, v.modelID = agent, modelID
	s := currentStyles()
	rule := s.header.Render(strings.Repeat("═", ruleWidth))
	v.printf("%s\n", rule)
	v.printf("%s\n", s.header.Render("Chat with "+agent.DisplayName))
	v.printf("%s\n", s.muted.Render("Role: "+agent.Role))
	if modelID != "" {
		v.printf("%s\n", s.muted.Render("Model: "+modelID))
	}
	v.printf("%s\n\n", rule)
}

// Prompt returns the label shown before user input.
func (v *ChatView) Prompt() string {
	return currentStyles().user.Render("You:") + " "
}

// AgentMessage prints a complete agent reply.
func (v *ChatView) AgentMessage(name, text string) {
	v.printf("\n%s %s\n", currentStyles().agent.Render(name+":"), v.md.Render(text))
}

// StreamStart prints the agent label before streamed chunks.
func (v *ChatView) StreamStart(name string) {
	v.printf("\n%s ", currentStyles().agent.Render(name+":"))
}

// StreamChunk prints one chunk as it arrives.
func (v *ChatView) StreamChunk(chunk string) {
	v.printf("%s", chunk)
}

// StreamEnd terminates a streamed reply.
func (v *ChatView) StreamEnd() {
	v.printf("\n")
}

// Notice prints a transient provider notice.
func (v *ChatView) Notice(msg string) {
	v.printf("\n%s\n", currentStyles().warn.Render(msg))
}

// Error prints a failed command.
func (v *ChatView) Error(msg string) {
	v.printf("%s\n", currentStyles().err.Render(msg))
}

// Info prints a status line.
func (v *ChatView) Info(msg string) {
	v.printf("%s\n", currentStyles().muted.Render(msg))
}

// Cost prints the per-turn cost summary.
func (v *ChatView) Cost(u model.UsageRecord, sessionTotal float64) {
	v.printf("\n%s\n\n", currentStyles().muted.Render(FormatCostDisplay(u, sessionTotal)))
}

// Usage prints the current conversation's ledger totals.
func (v *ChatView) Usage(s model.ConversationStats) {
	v.printf("\n%s", RenderTable(Table{
		Title:   "Conversation usage",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Messages", FormatNumber(int64(s.Messages))},
			{"Prompt tokens", FormatNumber(s.PromptTokens)},
			{"Completion tokens", FormatNumber(s.CompletionTokens)},
			{"Total tokens", FormatNumber(s.TotalTokens)},
			{"Total cost", FormatCostPrecise(s.TotalCost)},
		},
	}))
}

// Clear resets the screen and reprints the banner.
func (v *ChatView) Clear() {
	if !v.plain {
		v.printf("\033[H\033[2J")
	}
	v.Header(v.agent, v.modelID)
}

// HelpText lists the interactive commands.
const HelpText = `Available commands:
  /exit, /quit     - Exit the chat
  /export [file]   - Export conversation to markdown
  /usage           - Show token usage for this conversation
  /clear           - Clear the screen
  /help            - Show this help message`

// Help prints the command list.
func (v *ChatView) Help() {
	v.printf("\n%s\n\n", currentStyles().warn.Render(HelpText))
}
