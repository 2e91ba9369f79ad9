// Package sampler implements the pure farmer selection step. Selection is
// deterministic: each farmer's rank is a hash of the activity id and farmer
// id, so identical inputs always produce identical samples regardless of
// input order.
package sampler

import (
	"hash/fnv"
	"sort"

	"github.com/google/uuid"
)

// Lifecycle is the activity status the sampling result implies.
type Lifecycle string

const (
	LifecycleSampled     Lifecycle = "sampled"
	LifecycleInactive    Lifecycle = "inactive"
	LifecycleNotEligible Lifecycle = "not_eligible"
)

// Result partitions an activity's farmer list. Sampled, NotSampled and
// ExcludedByCooling always sum to the input list length.
type Result struct {
	Sampled           []uuid.UUID
	NotSampled        []uuid.UUID
	ExcludedByCooling []uuid.UUID
	Lifecycle         Lifecycle
}

// Select applies the sampling percentage to the farmers not currently
// cooling. It takes ceil(percentage/100 * eligible) farmers, ordered by
// per-farmer hash rank.
func Select(activityID uuid.UUID, farmerIDs []uuid.UUID, cooling map[uuid.UUID]bool, percentage int) Result {
	var eligible, excluded []uuid.UUID
	for _, id := range farmerIDs {
		if cooling[id] {
			excluded = append(excluded, id)
		} else {
			eligible = append(eligible, id)
		}
	}

	if len(eligible) == 0 {
		return Result{ExcludedByCooling: excluded, Lifecycle: LifecycleNotEligible}
	}
	if percentage <= 0 {
		return Result{NotSampled: eligible, ExcludedByCooling: excluded, Lifecycle: LifecycleInactive}
	}
	if percentage > 100 {
		percentage = 100
	}

	take := (percentage*len(eligible) + 99) / 100 // ceil

	ranked := make([]uuid.UUID, len(eligible))
	copy(ranked, eligible)
	sort.Slice(ranked, func(i, j int) bool {
		ri, rj := rank(activityID, ranked[i]), rank(activityID, ranked[j])
		if ri != rj {
			return ri < rj
		}
		return ranked[i].String() < ranked[j].String()
	})

	return Result{
		Sampled:           ranked[:take],
		NotSampled:        ranked[take:],
		ExcludedByCooling: excluded,
		Lifecycle:         LifecycleSampled,
	}
}

func rank(activityID, farmerID uuid.UUID) uint64 {
	h := fnv.New64a()
	h.Write(activityID[:])
	h.Write(farmerID[:])
	return h.Sum64()
}
