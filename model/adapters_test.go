package model

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/zerfoo/ensemble/jobs"
)

func TestROMModel_RunInvokesRegisteredPredictor(t *testing.T) {
	predictor := PredictorFunc(func(in map[string]float64) (map[string]float64, error) {
		return map[string]float64{"y": in["x"] + 1}, nil
	})
	m, err := NewROMModel("R", map[string]any{
		"inputs": []string{"x"}, "outputs": []string{"y"}, "predictor": predictor,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Initialize(RunInfo{}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pool := jobs.NewPool(2)
	pkt := InputPacket{Prefix: "p1", ModelName: "R", UniqueHandler: "E|p1", Values: map[string]float64{"x": 4}}
	if err := m.Run(pkt, pool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitForFinished(t, pool, "R|p1")
	finished, err := pool.GetFinished("R|p1", "E|p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sink := NewTraceStore()
	if err := m.CollectOutput(finished, BindSink(sink, "p1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := sink.LatestScalar("p1", "y")
	if !ok || v != 5 {
		t.Fatalf("expected y=5, got %v (ok=%v)", v, ok)
	}
}

func TestROMModel_RunWithoutPredictorReportsConfigurationError(t *testing.T) {
	m, err := NewROMModel("R", map[string]any{"inputs": []string{"x"}, "outputs": []string{"y"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Initialize(RunInfo{}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pool := jobs.NewPool(2)
	pkt := InputPacket{Prefix: "p1", ModelName: "R", UniqueHandler: "E|p1", Values: map[string]float64{"x": 4}}
	if err := m.Run(pkt, pool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForFinished(t, pool, "R|p1")
	finished, err := pool.GetFinished("R|p1", "E|p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finished.ReturnCode() != -1 {
		t.Fatalf("expected a failure return code with no registered predictor")
	}
}

func TestPostProcessorModel_RunInvokesRegisteredAnalysis(t *testing.T) {
	m, err := NewPostProcessorModel("P", map[string]any{
		"inputs": []string{"z"}, "outputs": []string{"summary"},
		"analysis": Analysis(func(in map[string]float64) (map[string]float64, error) {
			return map[string]float64{"summary": in["z"] * 10}, nil
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Initialize(RunInfo{}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pool := jobs.NewPool(2)
	pkt := InputPacket{Prefix: "p1", ModelName: "P", UniqueHandler: "E|p1", Values: map[string]float64{"z": 2}}
	if err := m.Run(pkt, pool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForFinished(t, pool, "P|p1")
	finished, err := pool.GetFinished("P|p1", "E|p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sink := NewTraceStore()
	if err := m.CollectOutput(finished, BindSink(sink, "p1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := sink.LatestScalar("p1", "summary")
	if !ok || v != 20 {
		t.Fatalf("expected summary=20, got %v (ok=%v)", v, ok)
	}
}

func TestExternalModel_RunWritesAndReadsJSONThroughSubprocess(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "echo_double.sh")
	scriptBody := "#!/bin/sh\n" +
		"python3 -c \"import json,sys; d=json.load(open(sys.argv[1])); json.dump({'y': d['x']*2}, open(sys.argv[2], 'w'))\" \"$1\" \"$2\"\n"
	if err := os.WriteFile(script, []byte(scriptBody), 0o755); err != nil {
		t.Fatalf("unexpected error writing script: %v", err)
	}
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available in this environment")
	}

	m, err := NewExternalModel("X", map[string]any{
		"inputs": []string{"x"}, "outputs": []string{"y"},
		"command": []string{"/bin/sh", script},
		"workDir": dir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Initialize(RunInfo{}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pool := jobs.NewPool(2)
	pkt := InputPacket{Prefix: "p1", ModelName: "X", UniqueHandler: "E|p1", Values: map[string]float64{"x": 3}}
	if err := m.Run(pkt, pool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForFinished(t, pool, "X|p1")
	finished, err := pool.GetFinished("X|p1", "E|p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finished.ReturnCode() != 0 {
		t.Fatalf("expected subprocess evaluation to succeed, got return code %d", finished.ReturnCode())
	}

	sink := NewTraceStore()
	if err := m.CollectOutput(finished, BindSink(sink, "p1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := sink.LatestScalar("p1", "y")
	if !ok || v != 6 {
		t.Fatalf("expected y=6, got %v (ok=%v)", v, ok)
	}
}

func TestNewExternalModel_RejectsEmptyCommand(t *testing.T) {
	_, err := NewExternalModel("X", map[string]any{"inputs": []string{"x"}, "outputs": []string{"y"}})
	if err == nil {
		t.Fatalf("expected a configuration error for an empty command")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
}

func waitForFinished(t *testing.T, pool *jobs.Pool, identifier string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !pool.IsJobFinished(identifier) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q to finish", identifier)
		}
		time.Sleep(time.Millisecond)
	}
}
