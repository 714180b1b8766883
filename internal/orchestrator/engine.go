// Package orchestrator ties the engine together: it plans a query, runs
// the selected reasoning protocol, verifies the resulting claims, and —
// when verification fails — drives bounded loop-back recovery. It is the
// only package that sees the whole pipeline; everything below it is a
// collaborator behind a narrow surface.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/quorum/internal/capability"
	"github.com/dyluth/quorum/internal/factcheck"
	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/protocol"
	"github.com/dyluth/quorum/internal/router"
	"github.com/dyluth/quorum/pkg/blackboard"
)

// Request is one question put to the engine.
type Request struct {
	Query string `json:"query"`

	// Mode is "speed" or "accuracy". Empty defaults to accuracy, the
	// engine's reason for existing.
	Mode string `json:"mode,omitempty"`

	// PreferredProtocol overrides automatic protocol selection when it
	// names a valid protocol. Unknown names are logged and ignored.
	PreferredProtocol string `json:"preferred_protocol,omitempty"`

	// PreferredModels are promoted to the front of candidate selection.
	PreferredModels []string `json:"preferred_models,omitempty"`
}

// Answer is the engine's output. The final text is always present, though
// possibly degraded; Annotations explain every degradation and recovery
// step so the caller never has to guess what happened.
type Answer struct {
	Query     string `json:"query"`
	FinalText string `json:"final_text"`
	Protocol  string `json:"protocol"`
	Mode      string `json:"mode"`

	// Degraded is set when the pipeline could not deliver a verified
	// answer: total model failure, or verification still failing after
	// recovery.
	Degraded    bool     `json:"degraded"`
	Annotations []string `json:"annotations,omitempty"`

	// LoopbackAttempts counts recovery attempts actually made.
	LoopbackAttempts int `json:"loopback_attempts"`

	Artifacts *protocol.Result  `json:"artifacts,omitempty"`
	FactCheck *factcheck.Result `json:"fact_check,omitempty"`

	// Scratchpad is a snapshot of the blackboard at the end of the run,
	// including per-key write history for audit.
	Scratchpad map[string]blackboard.Entry `json:"scratchpad,omitempty"`
}

func (a *Answer) annotate(format string, args ...any) {
	a.Annotations = append(a.Annotations, fmt.Sprintf(format, args...))
}

// Config holds the engine's recovery bounds. The zero value is usable.
type Config struct {
	// LoopbackMaxRetries bounds recovery attempts per request. Default 1.
	LoopbackMaxRetries int

	// MaxCorrectableClaims is the largest failed-claim count still worth
	// targeted correction; above it recovery broadens the query and
	// re-runs the protocol instead. Default 3.
	MaxCorrectableClaims int
}

func (c Config) withDefaults() Config {
	if c.LoopbackMaxRetries == 0 {
		c.LoopbackMaxRetries = 1
	}
	if c.MaxCorrectableClaims == 0 {
		c.MaxCorrectableClaims = 3
	}
	return c
}

// Engine is the orchestration pipeline. Safe for concurrent use: all
// per-request state lives in the request's plan, board, and answer.
type Engine struct {
	pl      *planner.Planner
	rt      *router.Router
	table   map[string]protocol.Executor
	checker *factcheck.Checker
	sink    capability.Sink
	cfg     Config
}

// New creates an engine. A nil sink defaults to a no-op sink.
func New(pl *planner.Planner, rt *router.Router, table map[string]protocol.Executor, checker *factcheck.Checker, sink capability.Sink, cfg Config) *Engine {
	if sink == nil {
		sink = capability.NopSink{}
	}
	return &Engine{
		pl:      pl,
		rt:      rt,
		table:   table,
		checker: checker,
		sink:    sink,
		cfg:     cfg.withDefaults(),
	}
}

// Orchestrate answers one request: plan, execute, verify, recover. It
// never returns an error — every failure mode degrades into an annotated
// answer so the caller always has something to show.
func (e *Engine) Orchestrate(ctx context.Context, req Request) *Answer {
	mode := req.Mode
	if mode == "" {
		mode = router.ModeAccuracy
	}

	plan := e.pl.CreatePlan(req.Query, req.PreferredProtocol)
	board := blackboard.New()

	answer := &Answer{
		Query:    req.Query,
		Protocol: plan.Protocol,
		Mode:     mode,
	}

	e.sink.Record(capability.Event{
		Type:      "orchestrate_start",
		Component: "orchestrator",
		Fields: map[string]any{
			"protocol": plan.Protocol,
			"mode":     mode,
			"complex":  plan.Complex,
			"nodes":    len(plan.Nodes),
		},
	})
	log.Printf("[Orchestrator] Query planned: protocol=%s complex=%t nodes=%d",
		plan.Protocol, plan.Complex, len(plan.Nodes))

	preq := &protocol.Request{
		Query:     req.Query,
		Mode:      mode,
		Plan:      plan,
		Board:     board,
		Preferred: req.PreferredModels,
	}

	result := e.execute(ctx, preq, answer)
	answer.Artifacts = result
	answer.FinalText = result.FinalText()

	if answer.FinalText == "" {
		answer.Degraded = true
		answer.annotate("no model produced a usable response")
	}

	check := e.checker.Check(ctx, answer.FinalText)
	answer.FactCheck = check

	if !check.IsValid {
		answer.annotate("verification failed: score %.2f below threshold %.2f (%d failed claims)",
			check.VerificationScore, e.checker.Threshold(), len(check.FailedClaims))
		result, check = e.recover(ctx, preq, result, check, answer)
		answer.Artifacts = result
		answer.FinalText = result.FinalText()
		answer.FactCheck = check
	}

	if !check.IsValid {
		answer.Degraded = true
		answer.annotate("answer remains unverified; treat claims with caution")
	}
	if resp := result.FinalResponse; resp != nil && !resp.PassedQualityCheck {
		answer.Degraded = true
		if resp.FailureReason != "" {
			answer.annotate("quality check: %s", resp.FailureReason)
		}
	}

	answer.Scratchpad = board.Snapshot()

	e.sink.Record(capability.Event{
		Type:      "orchestrate_done",
		Component: "orchestrator",
		Fields: map[string]any{
			"protocol":           answer.Protocol,
			"degraded":           answer.Degraded,
			"verification_score": check.VerificationScore,
			"loopback_attempts":  answer.LoopbackAttempts,
		},
	})
	return answer
}

// execute runs the plan's protocol. A missing table entry or an executor
// error degrades to the simple protocol; executors never error on model
// failures, so this path means a wiring bug, not a bad provider.
func (e *Engine) execute(ctx context.Context, preq *protocol.Request, answer *Answer) *protocol.Result {
	executor, ok := e.table[preq.Plan.Protocol]
	if !ok {
		answer.annotate("no executor registered for protocol %q, using simple", preq.Plan.Protocol)
		executor = e.table[planner.ProtocolSimple]
		if executor == nil {
			return &protocol.Result{}
		}
	}

	result, err := executor.Execute(ctx, preq)
	if err != nil || result == nil {
		answer.annotate("protocol %q failed (%v), degrading to simple", executor.Name(), err)
		if fallback, ok := e.table[planner.ProtocolSimple]; ok && executor.Name() != planner.ProtocolSimple {
			if result, err = fallback.Execute(ctx, preq); err == nil && result != nil {
				return result
			}
		}
		return &protocol.Result{}
	}
	return result
}
