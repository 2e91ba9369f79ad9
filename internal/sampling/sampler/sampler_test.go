package sampler

import (
	"testing"

	"github.com/google/uuid"
)

func makeFarmers(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func assertConservation(t *testing.T, r Result, total int) {
	t.Helper()
	sum := len(r.Sampled) + len(r.NotSampled) + len(r.ExcludedByCooling)
	if sum != total {
		t.Fatalf("partition sums to %d, want %d (sampled=%d notSampled=%d cooling=%d)",
			sum, total, len(r.Sampled), len(r.NotSampled), len(r.ExcludedByCooling))
	}
}

func TestSelect_TwelveFarmersHalfPolicyTwoCooling(t *testing.T) {
	activityID := uuid.New()
	farmers := makeFarmers(12)
	cooling := map[uuid.UUID]bool{farmers[0]: true, farmers[7]: true}

	r := Select(activityID, farmers, cooling, 50)

	if len(r.ExcludedByCooling) != 2 {
		t.Fatalf("excluded by cooling = %d, want 2", len(r.ExcludedByCooling))
	}
	if len(r.Sampled) != 5 {
		t.Fatalf("sampled = %d, want 5 (50%% of 10 eligible)", len(r.Sampled))
	}
	if len(r.NotSampled) != 5 {
		t.Fatalf("not sampled = %d, want 5", len(r.NotSampled))
	}
	if r.Lifecycle != LifecycleSampled {
		t.Fatalf("lifecycle = %s, want sampled", r.Lifecycle)
	}
	assertConservation(t, r, 12)
}

func TestSelect_NeverSamplesCoolingFarmer(t *testing.T) {
	activityID := uuid.New()
	farmers := makeFarmers(20)
	cooling := map[uuid.UUID]bool{}
	for i := 0; i < 8; i++ {
		cooling[farmers[i]] = true
	}

	r := Select(activityID, farmers, cooling, 100)

	for _, id := range r.Sampled {
		if cooling[id] {
			t.Fatalf("cooling farmer %s was sampled", id)
		}
	}
	if len(r.Sampled) != 12 {
		t.Fatalf("sampled = %d, want all 12 eligible", len(r.Sampled))
	}
	assertConservation(t, r, 20)
}

func TestSelect_DeterministicAcrossCallsAndInputOrder(t *testing.T) {
	activityID := uuid.New()
	farmers := makeFarmers(15)

	first := Select(activityID, farmers, nil, 40)

	reversed := make([]uuid.UUID, len(farmers))
	for i, id := range farmers {
		reversed[len(farmers)-1-i] = id
	}
	second := Select(activityID, reversed, nil, 40)

	if len(first.Sampled) != len(second.Sampled) {
		t.Fatalf("sample sizes differ: %d vs %d", len(first.Sampled), len(second.Sampled))
	}
	chosen := make(map[uuid.UUID]bool)
	for _, id := range first.Sampled {
		chosen[id] = true
	}
	for _, id := range second.Sampled {
		if !chosen[id] {
			t.Fatalf("selection depends on input order: %s only in second sample", id)
		}
	}
}

func TestSelect_DifferentActivitiesSampleDifferently(t *testing.T) {
	farmers := makeFarmers(40)

	a := Select(uuid.New(), farmers, nil, 50)
	b := Select(uuid.New(), farmers, nil, 50)

	setA := make(map[uuid.UUID]bool)
	for _, id := range a.Sampled {
		setA[id] = true
	}
	same := true
	for _, id := range b.Sampled {
		if !setA[id] {
			same = false
			break
		}
	}
	// 40 choose 20 collisions across two independent hashes are astronomically
	// unlikely; identical picks mean the activity id is not in the rank.
	if same {
		t.Fatal("two different activities selected the identical subset")
	}
}

func TestSelect_ZeroPercentIsInactive(t *testing.T) {
	r := Select(uuid.New(), makeFarmers(6), nil, 0)

	if len(r.Sampled) != 0 {
		t.Fatalf("sampled = %d, want 0", len(r.Sampled))
	}
	if r.Lifecycle != LifecycleInactive {
		t.Fatalf("lifecycle = %s, want inactive", r.Lifecycle)
	}
	assertConservation(t, r, 6)
}

func TestSelect_AllCoolingIsNotEligible(t *testing.T) {
	farmers := makeFarmers(3)
	cooling := map[uuid.UUID]bool{farmers[0]: true, farmers[1]: true, farmers[2]: true}

	r := Select(uuid.New(), farmers, cooling, 80)

	if r.Lifecycle != LifecycleNotEligible {
		t.Fatalf("lifecycle = %s, want not_eligible", r.Lifecycle)
	}
	if len(r.Sampled) != 0 || len(r.NotSampled) != 0 {
		t.Fatalf("expected empty sample, got %d/%d", len(r.Sampled), len(r.NotSampled))
	}
	assertConservation(t, r, 3)
}

func TestSelect_EmptyFarmerListIsNotEligible(t *testing.T) {
	r := Select(uuid.New(), nil, nil, 50)

	if r.Lifecycle != LifecycleNotEligible {
		t.Fatalf("lifecycle = %s, want not_eligible", r.Lifecycle)
	}
	assertConservation(t, r, 0)
}

func TestSelect_CeilRounding(t *testing.T) {
	cases := []struct {
		farmers    int
		percentage int
		want       int
	}{
		{10, 50, 5},
		{3, 50, 2},  // ceil(1.5)
		{7, 33, 3},  // ceil(2.31)
		{1, 1, 1},   // ceil(0.01)
		{10, 100, 10},
	}

	for _, tc := range cases {
		r := Select(uuid.New(), makeFarmers(tc.farmers), nil, tc.percentage)
		if len(r.Sampled) != tc.want {
			t.Fatalf("%d farmers at %d%%: sampled = %d, want %d",
				tc.farmers, tc.percentage, len(r.Sampled), tc.want)
		}
	}
}

func TestSelect_OverHundredPercentClamped(t *testing.T) {
	r := Select(uuid.New(), makeFarmers(4), nil, 250)

	if len(r.Sampled) != 4 {
		t.Fatalf("sampled = %d, want 4 (clamped to 100%%)", len(r.Sampled))
	}
}
