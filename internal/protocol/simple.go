package protocol

import (
	"context"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
)

// Simple is one routed model call with fallback, wrapped as a protocol
// result. It is also the degradation target for richer protocols when
// their producer phase yields nothing.
type Simple struct {
	rt *router.Router
}

// Name implements Executor.
func (s *Simple) Name() string { return planner.ProtocolSimple }

// Execute implements Executor. Never returns an error: the router's
// fallback semantics guarantee a response.
func (s *Simple) Execute(ctx context.Context, req *Request) (*Result, error) {
	resp := s.rt.ExecuteWithFallback(ctx, req.Query, "", req.Mode, req.Preferred...)

	if req.Board != nil {
		req.Board.Set("final", resp.Result.Content, string(planner.RoleDraft))
	}

	return &Result{
		FinalResponse:      resp,
		InitialResponses:   []*router.ModelResponse{resp},
		QualityAssessments: []float64{resp.QualityScore},
	}, nil
}
