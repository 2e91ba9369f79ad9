package allocator

import (
	"testing"

	"github.com/google/uuid"
)

func agent(id string, langs, terrs []string, open int) Candidate {
	return Candidate{ID: uuid.MustParse(id), Languages: langs, Territories: terrs, OpenTasks: open}
}

func task(id, lang, terr string) Task {
	return Task{ID: uuid.MustParse(id), FarmerLanguage: lang, FarmerTerritory: terr}
}

const (
	idA = "00000000-0000-0000-0000-00000000000a"
	idB = "00000000-0000-0000-0000-00000000000b"
	idC = "00000000-0000-0000-0000-00000000000c"
	idT1 = "10000000-0000-0000-0000-000000000001"
	idT2 = "10000000-0000-0000-0000-000000000002"
	idT3 = "10000000-0000-0000-0000-000000000003"
)

func TestAssign_LanguageIsHardConstraint(t *testing.T) {
	candidates := []Candidate{
		agent(idA, []string{"hindi"}, nil, 0),
		agent(idB, []string{"marathi"}, nil, 5),
	}
	decisions := Assign([]Task{task(idT1, "marathi", "nashik")}, candidates)

	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(decisions))
	}
	d := decisions[0]
	if d.Outcome != OutcomeAssigned {
		t.Fatalf("outcome = %s, want assigned", d.Outcome)
	}
	if d.AgentID.String() != idB {
		t.Fatalf("assigned to %s, want the busier marathi speaker %s", d.AgentID, idB)
	}
}

func TestAssign_TerritoryRestrictedAgentSkipped(t *testing.T) {
	candidates := []Candidate{
		agent(idA, []string{"hindi"}, []string{"pune"}, 0),
	}
	decisions := Assign([]Task{task(idT1, "hindi", "nashik")}, candidates)

	if decisions[0].Outcome != OutcomeUnallocatable {
		t.Fatalf("outcome = %s, want unallocatable", decisions[0].Outcome)
	}
	if decisions[0].Reason != ReasonNoTerritoryMatch {
		t.Fatalf("reason = %q, want %q", decisions[0].Reason, ReasonNoTerritoryMatch)
	}
}

func TestAssign_UnrestrictedAgentCoversAnyTerritory(t *testing.T) {
	candidates := []Candidate{
		agent(idA, []string{"hindi"}, nil, 2),
	}
	decisions := Assign([]Task{task(idT1, "hindi", "anywhere")}, candidates)

	if decisions[0].Outcome != OutcomeAssigned {
		t.Fatalf("outcome = %s, want assigned", decisions[0].Outcome)
	}
}

func TestAssign_PrefersLowestLoadThenID(t *testing.T) {
	candidates := []Candidate{
		agent(idB, []string{"hindi"}, nil, 1),
		agent(idA, []string{"hindi"}, nil, 1),
		agent(idC, []string{"hindi"}, nil, 3),
	}
	decisions := Assign([]Task{task(idT1, "hindi", "pune")}, candidates)

	if decisions[0].AgentID.String() != idA {
		t.Fatalf("assigned to %s, want tie broken to lowest id %s", decisions[0].AgentID, idA)
	}
}

func TestAssign_LoadIncrementsWithinPass(t *testing.T) {
	candidates := []Candidate{
		agent(idA, []string{"hindi"}, nil, 0),
		agent(idB, []string{"hindi"}, nil, 0),
	}
	tasks := []Task{
		task(idT1, "hindi", "pune"),
		task(idT2, "hindi", "pune"),
		task(idT3, "hindi", "pune"),
	}
	decisions := Assign(tasks, candidates)

	counts := map[string]int{}
	for _, d := range decisions {
		if d.Outcome != OutcomeAssigned {
			t.Fatalf("task %s unallocatable, want assigned", d.TaskID)
		}
		counts[d.AgentID.String()]++
	}
	if counts[idA] != 2 || counts[idB] != 1 {
		t.Fatalf("distribution = %v, want 2 for %s and 1 for %s", counts, idA, idB)
	}
}

func TestAssign_NoLanguageMatchReason(t *testing.T) {
	candidates := []Candidate{
		agent(idA, []string{"hindi"}, nil, 0),
	}
	decisions := Assign([]Task{task(idT1, "tamil", "pune")}, candidates)

	if decisions[0].Reason != ReasonNoLanguageMatch {
		t.Fatalf("reason = %q, want %q", decisions[0].Reason, ReasonNoLanguageMatch)
	}
}

func TestAssign_LanguageComparisonIsCaseInsensitive(t *testing.T) {
	candidates := []Candidate{
		agent(idA, []string{"Hindi"}, []string{"Pune"}, 0),
	}
	decisions := Assign([]Task{task(idT1, "hindi", "pune")}, candidates)

	if decisions[0].Outcome != OutcomeAssigned {
		t.Fatalf("outcome = %s, want assigned despite case differences", decisions[0].Outcome)
	}
}

func TestAssign_EmptyTaskListYieldsNoDecisions(t *testing.T) {
	decisions := Assign(nil, []Candidate{agent(idA, []string{"hindi"}, nil, 0)})
	if len(decisions) != 0 {
		t.Fatalf("decisions = %d, want 0", len(decisions))
	}
}
