package agent

import (
	"fmt"
	"strings"

	"ai-assistant-be/internal/constant"
	"ai-assistant-be/pkg/plugin"
	"ai-assistant-be/pkg/store"
)

// promptBuilder assembles the system prompt from its sections in a
// fixed order: base instructions, plugin capabilities, session
// metadata, rolling memory summary, retrieval context, plugin result.
// Empty sections are omitted.
type promptBuilder struct {
	capabilities []string
	session      *store.Session
	history      []store.Message
	ragContext   string
	pluginResult *plugin.Result
}

func (b *promptBuilder) Build() string {
	var prompt strings.Builder

	prompt.WriteString(constant.BaseSystemInstructions)
	prompt.WriteString("\n")

	b.writeCapabilities(&prompt)
	b.writeSessionInfo(&prompt)
	b.writeMemorySummary(&prompt)
	b.writeRAGContext(&prompt)
	b.writePluginResult(&prompt)

	return strings.TrimRight(prompt.String(), "\n") + "\n"
}

func (b *promptBuilder) writeCapabilities(prompt *strings.Builder) {
	if len(b.capabilities) == 0 {
		return
	}
	prompt.WriteString("\nTools available to the system (already executed where relevant):\n")
	for _, c := range b.capabilities {
		prompt.WriteString("- ")
		prompt.WriteString(c)
		prompt.WriteString("\n")
	}
}

func (b *promptBuilder) writeSessionInfo(prompt *strings.Builder) {
	if b.session == nil {
		return
	}
	fmt.Fprintf(prompt, "\nSession %s, %d messages so far.\n", b.session.ID, b.session.MessageCount)
}

// writeMemorySummary condenses recent user turns into a one-line
// rolling summary so the model keeps thread continuity even when the
// verbatim history window is short.
func (b *promptBuilder) writeMemorySummary(prompt *strings.Builder) {
	var topics []string
	for _, msg := range b.history {
		if msg.Role != store.RoleUser {
			continue
		}
		topics = append(topics, headline(msg.Content))
	}
	if len(topics) <= 1 {
		// Nothing before the current turn worth summarizing.
		return
	}
	if len(topics) > 4 {
		topics = topics[len(topics)-4:]
	}
	prompt.WriteString("\nConversation so far has covered: ")
	prompt.WriteString(strings.Join(topics, "; "))
	prompt.WriteString(".\n")
}

func (b *promptBuilder) writeRAGContext(prompt *strings.Builder) {
	if b.ragContext == "" {
		return
	}
	prompt.WriteString("\n")
	prompt.WriteString(b.ragContext)
}

func (b *promptBuilder) writePluginResult(prompt *strings.Builder) {
	res := b.pluginResult
	if res == nil || !res.Matched {
		return
	}
	if res.Err != nil {
		prompt.WriteString("\nA tool matched this request but was unavailable; answer without it.\n")
		return
	}
	prompt.WriteString("\nTool output for this request (authoritative, use it directly):\n")
	prompt.WriteString(res.Response)
	prompt.WriteString("\n")
}

// headline is the first few words of a message, used as a topic label.
func headline(content string) string {
	words := strings.Fields(content)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
