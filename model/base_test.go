package model

import "testing"

func TestCreateNewInput_IsIdempotentOverRepeatedCalls(t *testing.T) {
	m, err := NewDummyModel("A", map[string]any{
		"inputs":  []string{"x", "y"},
		"outputs": []string{"z"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Initialize(RunInfo{StepName: "step"}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sampled := SampledVars{"x": 1, "y": 2}
	first, err := m.CreateNewInput(nil, "mc", sampled, "prefix1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.CreateNewInput(nil, "mc", sampled, "prefix1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Values) != len(second.Values) {
		t.Fatalf("expected equivalent packets, got %v vs %v", first.Values, second.Values)
	}
	for k, v := range first.Values {
		if second.Values[k] != v {
			t.Fatalf("expected equivalent packets at key %q: %v vs %v", k, v, second.Values[k])
		}
	}
}

func TestCreateNewInput_FailsBeforeInitialize(t *testing.T) {
	m, err := NewDummyModel("A", map[string]any{"inputs": []string{"x"}, "outputs": []string{"y"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.CreateNewInput(nil, "mc", SampledVars{"x": 1}, "p", nil); err == nil {
		t.Fatalf("expected an error calling CreateNewInput before Initialize")
	}
}

func TestUpdateInputFromOutside_DoesNotMutateOriginalPacket(t *testing.T) {
	m, err := NewDummyModel("A", map[string]any{"inputs": []string{"x"}, "outputs": []string{"y"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Initialize(RunInfo{}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	original, err := m.CreateNewInput(nil, "mc", SampledVars{"x": 1}, "p", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	originalLen := len(original.Values)

	updated, err := m.UpdateInputFromOutside(original, map[string]float64{"z": 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(original.Values) != originalLen {
		t.Fatalf("expected original packet untouched, len changed from %d to %d", originalLen, len(original.Values))
	}
	if _, present := original.Values["z"]; present {
		t.Fatalf("expected original packet to not contain override key")
	}
	if updated.Values["z"] != 99 {
		t.Fatalf("expected updated packet to contain override, got %v", updated.Values)
	}
}

func TestDeclaredInputsOutputs_ReflectConfiguration(t *testing.T) {
	m, err := NewDummyModel("A", map[string]any{
		"inputs":  []string{"x", "y"},
		"outputs": []string{"z", "w"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := m.DeclaredInputs()
	out := m.DeclaredOutputs()
	for _, want := range []string{"x", "y"} {
		if _, ok := in[want]; !ok {
			t.Fatalf("expected declared input %q", want)
		}
	}
	for _, want := range []string{"z", "w"} {
		if _, ok := out[want]; !ok {
			t.Fatalf("expected declared output %q", want)
		}
	}
}
