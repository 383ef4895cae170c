// Command ensemble-run drives one EnsembleCore step end to end from a
// declarative JSON config and a JSON batch of samples, the same flag+JSON
// shape as cmd/zerfoo-train/main.go's CLIConfig load path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zerfoo/ensemble/core"
	"github.com/zerfoo/ensemble/jobs"
	"github.com/zerfoo/ensemble/model"
	"github.com/zerfoo/ensemble/picard"
	"github.com/zerfoo/ensemble/sink"
)

// CLIConfig is the flag-parsed command line, mirroring CLIConfig in
// cmd/zerfoo-train/main.go: data paths plus execution options.
type CLIConfig struct {
	ConfigPath  string
	SamplesPath string
	OutputPath  string
	OutputKind  string
	Workers     int
	Verbose     bool
}

// SampleInput is one entry of the samples JSON file: the runtime
// handshake a sampler would otherwise supply per sample (§6).
type SampleInput struct {
	Prefix        string             `json:"prefix"`
	SampledVars   map[string]float64 `json:"sampledVars"`
	SampledVarsPb map[string]float64 `json:"sampledVarsPb"`
	SamplerTag    string             `json:"samplerTag"`
}

// RunResult is the summary this command prints to stdout on completion,
// mirroring TrainingResult's Success/Duration/ErrorMessage shape in
// cmd/zerfoo-train/main.go.
type RunResult struct {
	EnsembleName string          `json:"ensembleName"`
	Duration     time.Duration   `json:"durationNanos"`
	SampleCount  int             `json:"sampleCount"`
	Failures     []SampleFailure `json:"failures,omitempty"`
	Success      bool            `json:"success"`
}

// SampleFailure records one sample's failed outcome for the summary.
type SampleFailure struct {
	Prefix string `json:"prefix"`
	Error  string `json:"error"`
}

func main() {
	cfg := parseFlags()

	logger := log.New(os.Stderr, "ensemble-run: ", log.LstdFlags)
	if cfg.Verbose {
		logger.Printf("starting run with config=%s samples=%s workers=%d", cfg.ConfigPath, cfg.SamplesPath, cfg.Workers)
	}

	result, err := run(cfg, logger)
	if err != nil {
		logger.Printf("run failed: %v", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Printf("encoding result: %v", err)
		os.Exit(1)
	}
	if !result.Success {
		os.Exit(1)
	}
}

func parseFlags() CLIConfig {
	var cfg CLIConfig
	flag.StringVar(&cfg.ConfigPath, "config", "", "path to the ensemble step's JSON configuration (required)")
	flag.StringVar(&cfg.SamplesPath, "samples", "", "path to a JSON array of samples to run (required)")
	flag.StringVar(&cfg.OutputPath, "output", "", "path to write sink output (parquet kind only)")
	flag.StringVar(&cfg.OutputKind, "output-kind", "memory", "output sink kind: memory or parquet")
	flag.IntVar(&cfg.Workers, "workers", 4, "worker pool capacity for the in-process job handler")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log progress to stderr")
	flag.Parse()

	if cfg.ConfigPath == "" || cfg.SamplesPath == "" {
		fmt.Fprintln(os.Stderr, "ensemble-run: -config and -samples are required")
		flag.Usage()
		os.Exit(2)
	}
	return cfg
}

func run(cfg CLIConfig, logger *log.Logger) (*RunResult, error) {
	start := time.Now()

	stepCfg, err := core.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	samples, err := loadSamples(cfg.SamplesPath)
	if err != nil {
		return nil, err
	}

	out, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}

	pool := jobs.NewPool(cfg.Workers)
	ensemble := core.New(stepCfg, model.Default, pool, os.Stderr)

	if err := ensemble.Initialize(nil, nil); err != nil {
		return nil, fmt.Errorf("ensemble-run: initialize: %w", err)
	}

	result := &RunResult{EnsembleName: stepCfg.Name, SampleCount: len(samples), Success: true}
	for _, s := range samples {
		sample := core.SampleContext{
			Prefix:     s.Prefix,
			Sampled:    model.SampledVars(s.SampledVars),
			SamplerTag: s.SamplerTag,
			Extra:      map[string]any{"sampledVarsPb": s.SampledVarsPb},
		}

		packets, err := ensemble.CreateNewInput(sample)
		if err != nil {
			result.Success = false
			result.Failures = append(result.Failures, SampleFailure{Prefix: s.Prefix, Error: err.Error()})
			continue
		}

		sampleResult := ensemble.Run(sample, packets)
		if sampleResult.State == picard.Failed {
			result.Success = false
			result.Failures = append(result.Failures, SampleFailure{Prefix: s.Prefix, Error: sampleResult.Err.Error()})
			continue
		}
		if sampleResult.State == picard.Exhausted && cfg.Verbose {
			logger.Printf("sample %s: non-convergent after %d iterations (residual %.6g), keeping last iterate", s.Prefix, sampleResult.Iterations, sampleResult.LastNorm)
		}

		if err := ensemble.CollectOutput(s.Prefix, out, &sampleResult); err != nil {
			result.Success = false
			result.Failures = append(result.Failures, SampleFailure{Prefix: s.Prefix, Error: err.Error()})
			continue
		}
		if cfg.Verbose {
			logger.Printf("sample %s: %s after %d iteration(s), residual=%.6g", s.Prefix, sampleResult.State, sampleResult.Iterations, sampleResult.LastNorm)
		}
	}

	if flusher, ok := out.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			return nil, fmt.Errorf("ensemble-run: flushing output sink: %w", err)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func buildSink(cfg CLIConfig) (sink.DataSink, error) {
	switch cfg.OutputKind {
	case "", "memory":
		return sink.NewMemorySink(), nil
	case "parquet":
		if cfg.OutputPath == "" {
			return nil, fmt.Errorf("ensemble-run: -output is required for -output-kind=parquet")
		}
		return sink.NewParquetSink(cfg.OutputPath), nil
	default:
		return nil, fmt.Errorf("ensemble-run: unrecognized -output-kind %q", cfg.OutputKind)
	}
}

func loadSamples(path string) ([]SampleInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ensemble-run: reading samples %s: %w", path, err)
	}
	var samples []SampleInput
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("ensemble-run: decoding samples %s: %w", path, err)
	}
	return samples, nil
}
