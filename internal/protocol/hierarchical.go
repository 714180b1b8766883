package protocol

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
)

// HierarchicalRole executes the plan tree: depth-first, children before
// parents. Siblings run concurrently; a parent runs only after all of its
// children have written results to the blackboard (the errgroup join is
// the barrier). Child results merge by node identity, not arrival order,
// so the merge is commutative.
type HierarchicalRole struct {
	rt       *router.Router
	fallback *Simple
}

// Name implements Executor.
func (h *HierarchicalRole) Name() string { return planner.ProtocolHierarchicalRole }

// nodeKey is the blackboard key a plan node's result is written under.
// Results live on the board, never in the (immutable) tree.
func nodeKey(id int) string {
	return fmt.Sprintf("node:%d", id)
}

// Execute implements Executor.
func (h *HierarchicalRole) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.Plan == nil || !req.Plan.Complex {
		// No tree to execute; behave like the simple protocol.
		return h.fallback.Execute(ctx, req)
	}

	run := &hierarchicalRun{rt: h.rt, req: req}
	final := run.executeNode(ctx, req.Plan.Root())

	result := &Result{
		FinalResponse:      final,
		InitialResponses:   run.responses,
		QualityAssessments: qualities(run.responses),
	}

	if req.Board != nil {
		req.Board.Set("final", final.Result.Content, string(planner.RoleCoordinator))
	}
	return result, nil
}

// hierarchicalRun accumulates per-request state; the mutex guards the
// response slice against concurrent sibling completions.
type hierarchicalRun struct {
	rt  *router.Router
	req *Request

	mu        sync.Mutex
	responses []*router.ModelResponse
}

func (r *hierarchicalRun) record(resp *router.ModelResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

// executeNode runs one node after all of its children. Each node follows
// its own routing decision, so an important node in accuracy mode fans out
// to an ensemble and the vote winner becomes the node result. Always
// returns a response; child or model failures degrade, they do not abort
// the tree.
func (r *hierarchicalRun) executeNode(ctx context.Context, node *planner.Node) *router.ModelResponse {
	children := r.req.Plan.ChildrenOf(node.ID)

	if len(children) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for _, child := range children {
			child := child
			g.Go(func() error {
				resp := r.executeNode(gctx, child)
				if r.req.Board != nil {
					r.req.Board.Set(nodeKey(child.ID), resp.Result.Content, string(child.Role))
				}
				return nil
			})
		}
		// Barrier: the parent proceeds only once every child has settled.
		_ = g.Wait()
	}

	prompt := r.buildPrompt(node, children)
	resp := r.rt.ExecuteRouted(ctx, node.SubQuery, prompt, r.req.Mode, r.req.Preferred...)
	r.record(resp)
	return resp
}

// buildPrompt combines the node's inherited context, its role instruction,
// and the children's results gathered from the board in node-ID order.
func (r *hierarchicalRun) buildPrompt(node *planner.Node, children []*planner.Node) string {
	var b strings.Builder
	b.WriteString(roleInstruction(node.Role))
	b.WriteString("\n\nContext:\n")
	b.WriteString(node.InheritedContext)

	if len(children) > 0 && r.req.Board != nil {
		ordered := make([]*planner.Node, len(children))
		copy(ordered, children)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

		b.WriteString("\n\nSub-task results:\n")
		for _, child := range ordered {
			if value, ok := r.req.Board.Get(nodeKey(child.ID)); ok {
				b.WriteString(fmt.Sprintf("[%s] %v\n", child.Role, value))
			}
		}
	}
	return b.String()
}

func roleInstruction(role planner.Role) string {
	switch role {
	case planner.RoleCoordinator:
		return "Synthesize the sub-task results below into one complete, accurate final answer."
	case planner.RoleResearch:
		return "Gather the relevant facts and background for the task below."
	case planner.RoleRetrieval:
		return "List specific evidence, sources, and figures supporting the task below."
	case planner.RoleFactCheck:
		return "Identify any claims in the context below that are doubtful or need verification."
	case planner.RoleAnalysis:
		return "Analyze the material below and develop a reasoned argument."
	default:
		return "Answer the task below directly and accurately."
	}
}
