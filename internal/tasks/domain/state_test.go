package domain

import "testing"

const testRetryCap = 3

func TestCanTransition_HappyPath(t *testing.T) {
	steps := []struct {
		from Status
		to   Status
	}{
		{StatusUnassigned, StatusSampledInQueue},
		{StatusSampledInQueue, StatusInProgress},
		{StatusInProgress, StatusCompleted},
	}

	for _, step := range steps {
		if !CanTransition(step.from, step.to, 0, testRetryCap) {
			t.Fatalf("expected %s -> %s to be allowed", step.from, step.to)
		}
	}
}

func TestCanTransition_Disallowed(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
	}{
		{StatusUnassigned, StatusInProgress},
		{StatusUnassigned, StatusCompleted},
		{StatusSampledInQueue, StatusCompleted},
		{StatusCompleted, StatusInProgress},
		{StatusInvalidNumber, StatusSampledInQueue},
		{StatusCompleted, StatusSampledInQueue},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to, 0, testRetryCap) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RetryUnderCap(t *testing.T) {
	if !CanTransition(StatusNotReachable, StatusSampledInQueue, 2, testRetryCap) {
		t.Fatal("expected retry to be allowed under the cap")
	}
}

func TestCanTransition_RetryAtCapIsTerminal(t *testing.T) {
	if CanTransition(StatusNotReachable, StatusSampledInQueue, testRetryCap, testRetryCap) {
		t.Fatal("expected retry to be rejected at the cap")
	}
	if !StatusNotReachable.Terminal(testRetryCap, testRetryCap) {
		t.Fatal("expected not_reachable at the cap to be terminal")
	}
}

func TestTerminalStates(t *testing.T) {
	if !StatusCompleted.Terminal(0, testRetryCap) {
		t.Fatal("completed must be terminal")
	}
	if !StatusInvalidNumber.Terminal(0, testRetryCap) {
		t.Fatal("invalid_number must be terminal")
	}
	if StatusNotReachable.Terminal(0, testRetryCap) {
		t.Fatal("not_reachable with retries left must not be terminal")
	}
	if StatusSampledInQueue.Terminal(0, testRetryCap) {
		t.Fatal("sampled_in_queue must not be terminal")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusUnassigned, StatusSampledInQueue, StatusInProgress, StatusCompleted, StatusNotReachable, StatusInvalidNumber} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status("archived").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}
