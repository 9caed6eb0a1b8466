package memory

import (
	"regexp"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// CommandType is the action a memory command asks for.
type CommandType string

const (
	CommandRemember CommandType = "remember"
	CommandForget   CommandType = "forget"
)

// Command is a memory instruction found in a user message.
type Command struct {
	Type    CommandType `json:"type"`
	Scope   model.Scope `json:"scope"`
	Content string      `json:"content"`
}

var (
	rememberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)记住[：:]\s*(.+)`),
		regexp.MustCompile(`(?i)在这个房间里[，,]?\s*你以后要记得[：:]\s*(.+)`),
		regexp.MustCompile(`(?i)remember[：:]\s*(.+)`),
	}
	forgetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)忘记[：:]\s*(.+)`),
		regexp.MustCompile(`(?i)不要再记[：:]\s*(.+)`),
		regexp.MustCompile(`(?i)forget[：:]\s*(.+)`),
	}
)

// ParseCommand recognises "remember: ...", "globally remember: ...",
// "forget: ..." and their Chinese forms. Remember commands are global when
// the message mentions it, otherwise room-scoped. Forget is room-scoped.
func ParseCommand(text string) (Command, bool) {
	for _, re := range rememberPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			content := strings.TrimSpace(m[1])
			if content == "" {
				continue
			}
			scope := model.ScopeRoom
			if strings.Contains(text, "全局") || strings.Contains(strings.ToLower(text), "global") {
				scope = model.ScopeGlobal
			}
			return Command{Type: CommandRemember, Scope: scope, Content: content}, true
		}
	}
	for _, re := range forgetPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			content := strings.TrimSpace(m[1])
			if content == "" {
				continue
			}
			return Command{Type: CommandForget, Scope: model.ScopeRoom, Content: content}, true
		}
	}
	return Command{}, false
}
