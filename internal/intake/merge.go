package intake

import (
	"math"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/planner"
)

const (
	mergeImportanceDelta = 0.2
	mergePrefixRunes     = 20
)

// findMergeTarget returns the first memory with the candidate's scope and
// kind, a close importance, and content containing the candidate's opening
// runes.
func findMergeTarget(corpus []model.Memory, c planner.Candidate) *model.Memory {
	prefix := runePrefix(c.Content, mergePrefixRunes)
	for i := range corpus {
		m := &corpus[i]
		if m.Scope != c.Scope || m.Kind != c.Kind {
			continue
		}
		if math.Abs(m.Importance-c.Importance) >= mergeImportanceDelta {
			continue
		}
		if strings.Contains(m.Content, prefix) {
			return m
		}
	}
	return nil
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
