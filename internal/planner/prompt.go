package planner

import (
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
)

const systemPrompt = `You are Mazlo's Memory Planner.

Your job is not to answer the user. Decide what Mazlo should remember from the
conversation, where the memory belongs, and how important it is.

Scopes:
- thread: relevant only to the current thread.
- room: applies to most conversations in the current room.
- global: the user's long-term identity, preferences and projects.
- system: developer rules. Never propose these.

Kinds:
- fact: stable facts ("the user lives in Tokyo").
- preference: preferences ("the user prefers short answers").
- plan: goals and TODOs ("this thread aims to finish logo v3").
- identity: how the user describes themselves, their values and roles.
- project: purpose, constraints and milestones of a project or room.

Be selective:
- Only keep what will help across many future conversations.
- Skip one-off details that are easy to repeat.
- Skip anything private the user would not want stored.
- Do not emit near-duplicate candidates for the same fact.

Summaries: when a thread is long or a room has a large history, suggest
regenerating the thread or room summary.

Output only JSON that parses strictly. Importance is a number from 0.0 (trivial)
to 1.0 (critical).`

const outputShape = `{
  "candidates": [
    {
      "scope": "room",
      "kind": "project",
      "importance": 0.8,
      "content": "This room is for planning the Tokyo trip in April.",
      "reason": "Defines the purpose of the room.",
      "suggestPin": true
    }
  ],
  "shouldSummarizeThread": false,
  "shouldSummarizeRoom": false
}`

// Location describes where the analysed conversation happens.
type Location struct {
	OwnerID     string
	RoomID      string
	RoomTitle   string
	RoomType    model.RoomType
	ThreadID    string
	ThreadTitle string
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

// Transcript renders messages one per line with U/M/S role labels.
func Transcript(msgs []model.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role.Label(), m.Content))
	}
	return strings.Join(lines, "\n")
}

func buildUserPrompt(loc Location, msgs []model.Message, existing []string) string {
	var sb strings.Builder

	sb.WriteString("You will see the current location, the latest conversation and the memories that already exist. Produce a memory plan.\n\n")

	sb.WriteString("[Location]\n")
	fmt.Fprintf(&sb, "- UserId: %s\n", loc.OwnerID)
	fmt.Fprintf(&sb, "- RoomId: %s\n", loc.RoomID)
	fmt.Fprintf(&sb, "- RoomTitle: %s\n", loc.RoomTitle)
	fmt.Fprintf(&sb, "- ThreadId: %s\n", orNull(loc.ThreadID))
	fmt.Fprintf(&sb, "- ThreadTitle: %s\n", orNull(loc.ThreadTitle))
	fmt.Fprintf(&sb, "- RoomType: %s\n\n", loc.RoomType)

	sb.WriteString("[Latest Conversation] (oldest first)\n")
	sb.WriteString(Transcript(msgs))
	sb.WriteString("\n\n")

	sb.WriteString("[Existing Memories]\n")
	if len(existing) == 0 {
		sb.WriteString("- (no related memories yet)\n")
	}
	for _, s := range existing {
		fmt.Fprintf(&sb, "- %s\n", s)
	}

	sb.WriteString(`
[Task]
1. Find what is worth keeping long term: stable facts, preferences, project
   goals, long-running plans, or what this room/thread is for.
2. For each candidate choose scope (thread|room|global), kind
   (fact|preference|plan|identity|project), importance (0.0-1.0), content
   (1-3 concise sentences), reason, and suggestPin (true if it is critical
   enough to ask the user to pin it).
3. Decide shouldSummarizeThread and shouldSummarizeRoom.
If nothing is worth remembering, return an empty candidates array.

[Output]
Return exactly this JSON shape, with no comments or extra fields:
`)
	sb.WriteString(outputShape)
	return sb.String()
}
