// Package allocator implements the pure task-to-agent assignment pass.
// It holds no I/O; the service layer feeds it tasks and agent load and
// persists whatever it decides.
package allocator

import (
	"strings"

	"github.com/google/uuid"
)

// Task is the slice of a call task the allocator needs.
type Task struct {
	ID              uuid.UUID
	FarmerLanguage  string
	FarmerTerritory string
}

// Candidate is an active agent with routing attributes and current load.
type Candidate struct {
	ID          uuid.UUID
	Languages   []string
	Territories []string // empty means territory-unrestricted
	OpenTasks   int
}

// Outcome classifies one allocation decision.
type Outcome string

const (
	OutcomeAssigned      Outcome = "assigned"
	OutcomeUnallocatable Outcome = "unallocatable"
)

// Reasons for unallocatable decisions.
const (
	ReasonNoLanguageMatch  = "no agent speaks the farmer's language"
	ReasonNoTerritoryMatch = "no language-matching agent covers the territory"
)

// Decision records where one task went, or why it went nowhere.
type Decision struct {
	TaskID  uuid.UUID
	AgentID *uuid.UUID
	Outcome Outcome
	Reason  string
}

// Assign greedily allocates each task to the eligible agent with the fewest
// open tasks, breaking ties by agent id. Eligibility requires a language match
// and either territory-unrestricted status or a territory match; this is a
// hard constraint, load balance is best effort. Open counts are incremented
// in memory as tasks are handed out, so one busy agent does not absorb an
// entire pass. Candidates are not mutated.
func Assign(tasks []Task, candidates []Candidate) []Decision {
	load := make(map[uuid.UUID]int, len(candidates))
	for _, c := range candidates {
		load[c.ID] = c.OpenTasks
	}

	decisions := make([]Decision, 0, len(tasks))
	for _, task := range tasks {
		best, reason := pick(task, candidates, load)
		if best == nil {
			decisions = append(decisions, Decision{
				TaskID:  task.ID,
				Outcome: OutcomeUnallocatable,
				Reason:  reason,
			})
			continue
		}

		load[*best]++
		decisions = append(decisions, Decision{
			TaskID:  task.ID,
			AgentID: best,
			Outcome: OutcomeAssigned,
		})
	}
	return decisions
}

func pick(task Task, candidates []Candidate, load map[uuid.UUID]int) (*uuid.UUID, string) {
	var best *Candidate
	languageMatched := false

	for i := range candidates {
		c := &candidates[i]
		if !hasFold(c.Languages, task.FarmerLanguage) {
			continue
		}
		languageMatched = true

		if len(c.Territories) > 0 && !hasFold(c.Territories, task.FarmerTerritory) {
			continue
		}

		if best == nil || better(c, best, load) {
			best = c
		}
	}

	if best == nil {
		if languageMatched {
			return nil, ReasonNoTerritoryMatch
		}
		return nil, ReasonNoLanguageMatch
	}

	id := best.ID
	return &id, ""
}

func better(a, b *Candidate, load map[uuid.UUID]int) bool {
	if load[a.ID] != load[b.ID] {
		return load[a.ID] < load[b.ID]
	}
	return a.ID.String() < b.ID.String()
}

func hasFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
