package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/zerfoo/ensemble/jobs"
)

// ExternalModel is the external-simulation-binary variant: Run
// materializes an input JSON file, spawns a subprocess with the input and
// output file paths as its last two arguments, and parses the output file
// as a JSON document; the subprocess's stdout is only reported in the error
// when the command fails. Subprocess launch is a
// stdlib concern (no ecosystem library in this module's dependency set
// orchestrates external executables); see DESIGN.md.
type ExternalModel struct {
	base
	command []string
	workDir string
}

// NewExternalModel builds an ExternalModel for name. settings["command"]
// is the executable and its arguments; settings["workDir"] defaults to
// os.TempDir() when empty.
func NewExternalModel(name string, settings map[string]any) (Model, error) {
	inputs, _ := settings["inputs"].([]string)
	outputs, _ := settings["outputs"].([]string)
	objectNames, _ := settings["inputObjectNames"].([]string)
	command, _ := settings["command"].([]string)
	workDir, _ := settings["workDir"].(string)
	if workDir == "" {
		workDir = os.TempDir()
	}
	if len(command) == 0 {
		return nil, &ConfigurationError{ModelName: name, Reason: "external model requires a non-empty command"}
	}

	return &ExternalModel{
		base:    newBase(name, inputs, outputs, objectNames),
		command: command,
		workDir: workDir,
	}, nil
}

// Run writes pkt.Values to a per-sample input file, spawns the configured
// command, and reads the per-sample output file it is expected to write.
func (m *ExternalModel) Run(pkt InputPacket, jobHandler jobs.JobHandler) error {
	inputPath := filepath.Join(m.workDir, fmt.Sprintf("%s.in.json", sanitizePrefix(pkt.Prefix)))
	outputPath := filepath.Join(m.workDir, fmt.Sprintf("%s.out.json", sanitizePrefix(pkt.Prefix)))
	command := m.command
	values := pkt.Values
	name := m.name

	work := func() (any, error) {
		payload, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("model: external adapter %s: encoding input: %w", name, err)
		}
		if err := os.WriteFile(inputPath, payload, 0o600); err != nil {
			return nil, fmt.Errorf("model: external adapter %s: writing input file: %w", name, err)
		}
		defer os.Remove(inputPath)

		args := append(append([]string{}, command[1:]...), inputPath, outputPath)
		cmd := exec.CommandContext(context.Background(), command[0], args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("model: external adapter %s: subprocess failed: %w (output: %s)", name, err, out)
		}
		defer os.Remove(outputPath)

		raw, err := os.ReadFile(outputPath)
		if err != nil {
			return nil, fmt.Errorf("model: external adapter %s: reading output file: %w", name, err)
		}
		var result map[string]float64
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("model: external adapter %s: decoding output: %w", name, err)
		}
		return result, nil
	}

	return jobs.SubmitBlocking(jobHandler, jobs.WorkUnit{
		Identifier:    pkt.ModelName + "|" + pkt.Prefix,
		UniqueHandler: pkt.UniqueHandler,
		Work:          work,
	})
}

// CollectOutput drains one finished external-process evaluation into sink.
func (m *ExternalModel) CollectOutput(finished jobs.FinishedJob, sink OutputSink) error {
	result, ok := finished.Result().(map[string]float64)
	if !ok {
		return fmt.Errorf("model: external adapter %s: unexpected result type", m.name)
	}
	for k, v := range result {
		sink.UpdateOutputValue(k, v)
	}
	return nil
}

func sanitizePrefix(prefix string) string {
	out := make([]rune, 0, len(prefix))
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func init() {
	_ = Default.Register("external", NewExternalModel)
}

var _ Model = (*ExternalModel)(nil)
