// Package planner classifies queries, selects a protocol, and builds the
// hierarchical plan tree that complex queries execute against.
//
// The plan tree is an arena of nodes addressed by integer index, with
// parent and child links stored as indices rather than pointers. The tree
// is built once and read-only during execution; node results are written
// to the blackboard keyed by node identity, never into the node itself, so
// the tree is safely shareable across concurrent children.
package planner

import "fmt"

// Role tags a plan node with the kind of work it performs.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleResearch    Role = "research"
	RoleRetrieval   Role = "retrieval"
	RoleFactCheck   Role = "factcheck"
	RoleDraft       Role = "draft"
	RoleAnalysis    Role = "analysis"
)

// Validate checks the role against the closed enum.
func (r Role) Validate() error {
	switch r {
	case RoleCoordinator, RoleResearch, RoleRetrieval, RoleFactCheck, RoleDraft, RoleAnalysis:
		return nil
	default:
		return fmt.Errorf("unknown plan role: %q", r)
	}
}

// NoParent marks a root node's parent index.
const NoParent = -1

// Node is one task in the plan tree. InheritedContext is the strict
// accumulation of the ancestry's context plus this node's own sub-query,
// so any leaf carries full context without walking the tree at execution
// time.
type Node struct {
	ID               int    `json:"id"`
	Parent           int    `json:"parent"` // NoParent for roots
	Role             Role   `json:"role"`
	Description      string `json:"description"`
	SubQuery         string `json:"sub_query"`
	InheritedContext string `json:"inherited_context"`
	Depth            int    `json:"depth"`
	Children         []int  `json:"children"`
}

// Plan is the output of CreatePlan: the chosen protocol plus the node
// arena. Nodes[0] is always the root.
type Plan struct {
	Query    string `json:"query"`
	Protocol string `json:"protocol"`
	Complex  bool   `json:"complex"`
	Nodes    []Node `json:"nodes"`
}

// Root returns the plan's root node.
func (p *Plan) Root() *Node {
	return &p.Nodes[0]
}

// Node returns the node at index id, or nil for an invalid index.
func (p *Plan) Node(id int) *Node {
	if id < 0 || id >= len(p.Nodes) {
		return nil
	}
	return &p.Nodes[id]
}

// ChildrenOf returns the child nodes of id in creation order.
func (p *Plan) ChildrenOf(id int) []*Node {
	parent := p.Node(id)
	if parent == nil {
		return nil
	}
	children := make([]*Node, 0, len(parent.Children))
	for _, childID := range parent.Children {
		children = append(children, &p.Nodes[childID])
	}
	return children
}

// Depth returns the maximum depth of any node in the plan.
func (p *Plan) Depth() int {
	max := 0
	for i := range p.Nodes {
		if p.Nodes[i].Depth > max {
			max = p.Nodes[i].Depth
		}
	}
	return max
}

// RolePresent reports whether any node carries the given role.
func (p *Plan) RolePresent(role Role) bool {
	for i := range p.Nodes {
		if p.Nodes[i].Role == role {
			return true
		}
	}
	return false
}

// addRoot seeds the arena with a root node whose inherited context is the
// query itself.
func (p *Plan) addRoot(role Role, description string) int {
	p.Nodes = append(p.Nodes, Node{
		ID:               0,
		Parent:           NoParent,
		Role:             role,
		Description:      description,
		SubQuery:         p.Query,
		InheritedContext: p.Query,
		Depth:            0,
	})
	return 0
}

// addChild appends a child under parentID, accumulating inherited context.
// Returns the new node's index, or NoParent if the depth bound would be
// exceeded — the recursion is silently truncated, never fatal.
func (p *Plan) addChild(parentID int, role Role, subQuery, description string, maxDepth int) int {
	parent := p.Node(parentID)
	if parent == nil {
		return NoParent
	}
	depth := parent.Depth + 1
	if depth > maxDepth {
		return NoParent
	}

	id := len(p.Nodes)
	p.Nodes = append(p.Nodes, Node{
		ID:               id,
		Parent:           parentID,
		Role:             role,
		Description:      description,
		SubQuery:         subQuery,
		InheritedContext: parent.InheritedContext + "\n" + subQuery,
		Depth:            depth,
	})
	p.Nodes[parentID].Children = append(p.Nodes[parentID].Children, id)
	return id
}
