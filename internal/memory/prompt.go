package memory

import (
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/retriever"
)

// BuildPrompt renders the system prompt followed by the summary, memory
// and conversation sections. Empty sections are left out, except the
// conversation history.
func BuildPrompt(system string, b *retriever.Bundle, history []model.Message) string {
	var sb strings.Builder
	sb.WriteString(system)
	sb.WriteString("\n\n")

	if b != nil && len(b.Summaries) > 0 {
		sb.WriteString("[Summary]\n\n")
		for i, s := range b.Summaries {
			fmt.Fprintf(&sb, "- %s: %s\n", summaryLabel(b, i), s)
		}
		sb.WriteString("\n")
	}

	if b != nil && len(b.MemorySnippets) > 0 {
		sb.WriteString("[Memory: Room / Thread / Global]\n\n")
		for _, s := range b.MemorySnippets {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("[Conversation History]\n\n")
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.Role.Label() + ": " + m.Content
	}
	sb.WriteString(strings.Join(lines, "\n\n"))
	sb.WriteString("\n")
	return sb.String()
}

func summaryLabel(b *retriever.Bundle, i int) string {
	if i >= len(b.SummaryLevels) {
		return "Summary"
	}
	switch b.SummaryLevels[i] {
	case model.LevelThread:
		return "Thread summary"
	case model.LevelRoom:
		return "Room summary"
	default:
		return "Project summary"
	}
}
