package domain

import (
	"sort"
	"time"
)

// AIOutputHistoryCap bounds how many superseded outputs a ticket keeps.
const AIOutputHistoryCap = 5

// AnalysisResult is the content produced by the AI gateway.
type AnalysisResult struct {
	CustomerReply     string   `json:"customerReply"`
	QASummary         string   `json:"qaSummary"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// AIOutput is one versioned analysis attached to a ticket.
type AIOutput struct {
	CustomerReply     string    `json:"customerReply"`
	QASummary         string    `json:"qaSummary"`
	FollowUpQuestions []string  `json:"followUpQuestions"`
	GeneratedAt       Timestamp `json:"generatedAt"`
	Model             string    `json:"model"`
	Version           int       `json:"version,omitempty"`
}

// Clone copies the follow-up slice.
func (o AIOutput) Clone() AIOutput {
	out := o
	if o.FollowUpQuestions != nil {
		out.FollowUpQuestions = append([]string(nil), o.FollowUpQuestions...)
	}
	return out
}

// HighestVersion is the largest version ever issued for the ticket.
func (t *Ticket) HighestVersion() int {
	highest := t.AIOutputVersionCounter
	if t.AIOutput != nil && t.AIOutput.Version > highest {
		highest = t.AIOutput.Version
	}
	for _, entry := range t.AIOutputHistory {
		if entry.Version > highest {
			highest = entry.Version
		}
	}
	return highest
}

// ApplyAIOutput installs result as a new version, demoting the current
// output into history, and resolves the ticket.
func (t *Ticket) ApplyAIOutput(result AnalysisResult, model string, now time.Time) {
	t.NormalizeAIHistory()

	next := t.HighestVersion() + 1
	history := append([]AIOutput(nil), t.AIOutputHistory...)
	if t.AIOutput != nil {
		history = append(history, *t.AIOutput)
	}

	t.AIOutput = &AIOutput{
		CustomerReply:     result.CustomerReply,
		QASummary:         result.QASummary,
		FollowUpQuestions: append([]string{}, result.FollowUpQuestions...),
		GeneratedAt:       NewTimestamp(now),
		Model:             model,
		Version:           next,
	}
	t.AIOutputHistory = RetainHistory(history, AIOutputHistoryCap)
	t.AIOutputVersionCounter = next
	t.Status = TicketStatusResolved
	t.Touch(now)
}

// RestoreAIOutput promotes history[index] to the current output. It reports
// false when index does not address a history entry.
func (t *Ticket) RestoreAIOutput(index int, now time.Time) bool {
	if index < 0 || index >= len(t.AIOutputHistory) {
		return false
	}

	promoted := t.AIOutputHistory[index]
	history := make([]AIOutput, 0, len(t.AIOutputHistory))
	history = append(history, t.AIOutputHistory[:index]...)
	history = append(history, t.AIOutputHistory[index+1:]...)
	if t.AIOutput != nil {
		history = append(history, *t.AIOutput)
	}

	t.AIOutput = &promoted
	t.AIOutputHistory = RetainHistory(history, AIOutputHistoryCap)
	t.Touch(now)
	return true
}

// NormalizeAIHistory repairs legacy records: unversioned entries are numbered
// in generation order above the highest version already in use, the counter
// is raised to the highest version and the retention policy is enforced. It
// reports whether anything changed.
func (t *Ticket) NormalizeAIHistory() bool {
	changed := false

	var unversioned []int
	for i, entry := range t.AIOutputHistory {
		if entry.Version <= 0 {
			unversioned = append(unversioned, i)
		}
	}
	if len(unversioned) > 0 {
		history := append([]AIOutput(nil), t.AIOutputHistory...)
		sort.SliceStable(unversioned, func(i, j int) bool {
			return history[unversioned[i]].GeneratedAt.UnixMilliOrZero() < history[unversioned[j]].GeneratedAt.UnixMilliOrZero()
		})
		next := t.HighestVersion()
		for _, idx := range unversioned {
			next++
			history[idx].Version = next
		}
		t.AIOutputHistory = history
		changed = true
	}

	if t.AIOutput != nil && t.AIOutput.Version <= 0 {
		current := *t.AIOutput
		current.Version = t.HighestVersion() + 1
		t.AIOutput = &current
		changed = true
	}

	if highest := t.HighestVersion(); highest != t.AIOutputVersionCounter {
		t.AIOutputVersionCounter = highest
		changed = true
	}

	retained := RetainHistory(t.AIOutputHistory, AIOutputHistoryCap)
	if !sameVersions(retained, t.AIOutputHistory) {
		t.AIOutputHistory = retained
		changed = true
	}
	return changed
}

// RetainHistory de-duplicates entries by version (last write wins), sorts
// them ascending and trims to limit, always keeping version 1 when present.
func RetainHistory(entries []AIOutput, limit int) []AIOutput {
	if len(entries) == 0 {
		return nil
	}

	positions := make(map[int]int, len(entries))
	deduped := make([]AIOutput, 0, len(entries))
	for _, entry := range entries {
		if pos, ok := positions[entry.Version]; ok {
			deduped[pos] = entry
			continue
		}
		positions[entry.Version] = len(deduped)
		deduped = append(deduped, entry)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Version < deduped[j].Version
	})

	if limit <= 0 {
		return nil
	}
	if len(deduped) <= limit {
		return deduped
	}
	if deduped[0].Version == 1 {
		kept := make([]AIOutput, 0, limit)
		kept = append(kept, deduped[0])
		return append(kept, deduped[len(deduped)-(limit-1):]...)
	}
	return deduped[len(deduped)-limit:]
}

func sameVersions(a, b []AIOutput) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Version != b[i].Version {
			return false
		}
	}
	return true
}
