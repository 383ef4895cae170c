package jobs

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func TestCoordinator_SubmitOneAwaitOneRoundTrip(t *testing.T) {
	pool := NewPool(2)
	coord := NewCoordinator("ensemble1", pool, &bytes.Buffer{})

	if err := coord.SubmitOne("A", "sample1", func() (any, error) { return map[string]float64{"y": 10}, nil }); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	finished, err := coord.AwaitOne("A", "sample1")
	if err != nil {
		t.Fatalf("unexpected await error: %v", err)
	}
	if finished.Identifier() != "A|sample1" {
		t.Fatalf("expected compound identifier A|sample1, got %q", finished.Identifier())
	}
}

func TestCoordinator_IdentifierAndUniqueHandlerShapes(t *testing.T) {
	if got := Identifier("A", "s1"); got != "A|s1" {
		t.Fatalf("expected A|s1, got %q", got)
	}
	coord := NewCoordinator("ens", NewPool(1), &bytes.Buffer{})
	if got := coord.UniqueHandler("s1"); got != "ens|s1" {
		t.Fatalf("expected ens|s1, got %q", got)
	}
}

func TestCoordinator_FailureDrainsSiblingsAndReturnsSubModelFailure(t *testing.T) {
	pool := NewPool(4)
	coord := NewCoordinator("ensemble1", pool, &bytes.Buffer{})

	if err := coord.SubmitOne("A", "s1", func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := coord.SubmitOne("middle", "s1", func() (any, error) { return nil, fmt.Errorf("boom") }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := coord.SubmitOne("C", "s1", func() (any, error) {
		// C would be submitted after middle fails in a real sweep; here it
		// simulates a sibling job still pending when the failure is observed.
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := coord.AwaitOne("A", "s1"); err != nil {
		t.Fatalf("unexpected error awaiting A: %v", err)
	}

	_, err := coord.AwaitOne("middle", "s1")
	if err == nil {
		t.Fatalf("expected a SubModelFailure")
	}
	failure, ok := err.(*SubModelFailure)
	if !ok {
		t.Fatalf("expected *SubModelFailure, got %T", err)
	}
	if failure.ModelName != "middle" || failure.SamplePrefix != "s1" {
		t.Fatalf("unexpected failure fields: %+v", failure)
	}

	// The drain should have removed C's identifier from the pool's
	// bookkeeping, even though C's work function may not have returned yet.
	time.Sleep(100 * time.Millisecond)
	if _, err := pool.GetFinished("C|s1", "ensemble1|s1"); err != ErrJobNotFound {
		t.Fatalf("expected C to be drained alongside middle, got err=%v", err)
	}
}

func TestCoordinator_CompletedIdentifiersMatchModelPrefixPairs(t *testing.T) {
	pool := NewPool(4)
	coord := NewCoordinator("ens", pool, &bytes.Buffer{})
	models := []string{"A", "B", "C"}
	prefix := "sampleX"

	for _, m := range models {
		if err := coord.SubmitOne(m, prefix, func() (any, error) { return nil, nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	seen := map[string]bool{}
	for _, m := range models {
		finished, err := coord.AwaitOne(m, prefix)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[finished.Identifier()] = true
	}

	for _, m := range models {
		want := Identifier(m, prefix)
		if !seen[want] {
			t.Fatalf("expected identifier %q to have completed, saw %v", want, seen)
		}
	}
}
