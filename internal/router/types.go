// Package router turns a query into one or more model calls with
// resilience: candidate selection, quality assessment, automatic fallback,
// and ensemble voting. A single model failure is never surfaced as an
// error; it becomes a zero-quality response with a failure reason, and the
// least-bad response is always returned so the caller can decide whether to
// trigger loop-back recovery.
package router

import (
	"time"

	"github.com/dyluth/quorum/internal/capability"
)

// RoutingDecision records which models were chosen for a query and why.
// Created once per routing call and immutable afterwards; consumed by the
// caller for logging and telemetry.
type RoutingDecision struct {
	SelectedModels []string `json:"selected_models"`
	PrimaryModel   string   `json:"primary_model"`
	FallbackModels []string `json:"fallback_models"`
	Domain         string   `json:"domain"`
	Confidence     float64  `json:"confidence"`
	UseEnsemble    bool     `json:"use_ensemble"`
	EnsembleSize   int      `json:"ensemble_size"`
	Reasoning      string   `json:"reasoning"`
}

// ModelResponse is one model invocation's output plus its quality
// assessment. Never mutated after creation; ensemble voting compares
// multiple instances.
type ModelResponse struct {
	Result             capability.Result `json:"result"`
	QualityScore       float64           `json:"quality_score"`
	Confidence         float64           `json:"confidence"`
	PassedQualityCheck bool              `json:"passed_quality_check"`
	FailureReason      string            `json:"failure_reason,omitempty"`
}

// Failed reports whether the underlying call failed outright (as opposed
// to succeeding with low quality).
func (r *ModelResponse) Failed() bool {
	return r.FailureReason != "" && r.Result.Content == ""
}

// Config holds the router's tunable thresholds. The zero value is usable;
// withDefaults fills in unset fields.
type Config struct {
	// MinQualityThreshold is the quality score below which fallback is
	// attempted. Default 0.5.
	MinQualityThreshold float64

	// MaxFallbackAttempts bounds how many fallback models are tried after
	// the primary. Default 2.
	MaxFallbackAttempts int

	// MaxEnsembleSize caps concurrent ensemble invocations. Default 4.
	MaxEnsembleSize int

	// MinResponseLength and MaxResponseLength bound the length window used
	// by the quality heuristic. Defaults 20 and 8000.
	MinResponseLength int
	MaxResponseLength int

	// CallTimeout converts a hung provider into a fast failure.
	// Default 30s.
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinQualityThreshold == 0 {
		c.MinQualityThreshold = 0.5
	}
	if c.MaxFallbackAttempts == 0 {
		c.MaxFallbackAttempts = 2
	}
	if c.MaxEnsembleSize == 0 {
		c.MaxEnsembleSize = 4
	}
	if c.MinResponseLength == 0 {
		c.MinResponseLength = 20
	}
	if c.MaxResponseLength == 0 {
		c.MaxResponseLength = 8000
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 30 * time.Second
	}
	return c
}
