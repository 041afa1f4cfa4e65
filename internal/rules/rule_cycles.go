package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
)

const (
	defaultMaxCyclesReported = 10
	defaultMaxCycleLength    = 16
)

func init() {
	Register(&noCyclesRule{})
	config.RegisterRuleSpec(config.RuleSpec{
		Type: "graph.noCycles",
		Params: []config.ParamSpec{
			{Name: "granularity", Kind: config.ParamString},
			{Name: "includeExternal", Kind: config.ParamBool},
			{Name: "maxCyclesReported", Kind: config.ParamInt, Min: config.MinValue(1)},
			{Name: "maxCycleLength", Kind: config.ParamInt, Min: config.MinValue(2)},
		},
	})
}

type noCyclesRule struct{}

func (r *noCyclesRule) Type() string { return "graph.noCycles" }

// Evaluate detects dependency cycles in two phases. Phase one runs a
// full strongly-connected-component sweep so the reported cycle count
// is exact. Phase two extracts at most maxCyclesReported bounded
// representative paths; it is deliberately not exhaustive, dense
// graphs can hold an astronomical number of distinct cycles.
func (r *noCyclesRule) Evaluate(rctx *Context) []report.Finding {
	opts, ok := cycleOptions(rctx)
	if !ok {
		return nil
	}

	g := buildGranularGraph(rctx, opts)
	sccs := stronglyConnected(g)

	var cyclic [][]string
	for _, scc := range sccs {
		if len(scc) > 1 || g.hasSelfLoop(scc[0]) {
			sort.Strings(scc)
			cyclic = append(cyclic, scc)
		}
	}
	if len(cyclic) == 0 {
		return nil
	}
	// Stable report order across runs.
	sort.Slice(cyclic, func(i, j int) bool { return cyclic[i][0] < cyclic[j][0] })

	cycleCount := strconv.Itoa(len(cyclic))
	truncated := len(cyclic) > opts.maxCyclesReported

	var findings []report.Finding
	for _, scc := range cyclic {
		if len(findings) >= opts.maxCyclesReported {
			break
		}
		path := representativeCycle(g, scc, opts.maxCycleLength)
		if path == nil {
			continue
		}
		anchor := g.anchorClass(rctx.Index, scc)
		data := map[string]string{
			"cycleCount": cycleCount,
			"cycle":      strings.Join(path, " -> "),
		}
		if truncated {
			data["cyclesTruncated"] = "true"
		}
		f := report.Finding{
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(path, " -> ")),
			Data:    data,
		}
		if anchor != nil {
			f.FilePath = anchor.Location.SourceFile
			f.ClassFqn = anchor.FqName
		}
		findings = append(findings, f)
	}

	// Pathological case: cycles exist but bounded extraction produced
	// no example path. Never return silently when cycles are present.
	if len(findings) == 0 {
		findings = append(findings, report.Finding{
			Message: fmt.Sprintf("%d dependency cycle(s) detected, but details were truncated", len(cyclic)),
			Data: map[string]string{
				"cycleCount":      cycleCount,
				"cyclesTruncated": "true",
			},
		})
	}
	return findings
}

type cycleOpts struct {
	granularity       string
	includeExternal   bool
	maxCyclesReported int
	maxCycleLength    int
}

func cycleOptions(rctx *Context) (cycleOpts, bool) {
	graphCfg := rctx.Cfg.Analysis.Graph
	opts := cycleOpts{
		granularity:       graphCfg.Granularity,
		includeExternal:   graphCfg.IncludeExternal,
		maxCyclesReported: graphCfg.MaxCyclesReported,
		maxCycleLength:    graphCfg.MaxCycleLength,
	}
	if opts.granularity == "" {
		opts.granularity = "class"
	}
	if opts.maxCyclesReported <= 0 {
		opts.maxCyclesReported = defaultMaxCyclesReported
	}
	if opts.maxCycleLength <= 0 {
		opts.maxCycleLength = defaultMaxCycleLength
	}

	var ok bool
	if opts.granularity, ok = overrideString(rctx.Def.Params, "granularity", opts.granularity); !ok {
		return opts, false
	}
	switch opts.granularity {
	case "class", "package", "module":
	default:
		return opts, false
	}
	if opts.includeExternal, ok = boolParam(rctx.Def.Params, "includeExternal", opts.includeExternal); !ok {
		return opts, false
	}
	if opts.maxCyclesReported, ok = intParam(rctx.Def.Params, "maxCyclesReported", opts.maxCyclesReported); !ok || opts.maxCyclesReported <= 0 {
		return opts, false
	}
	if opts.maxCycleLength, ok = intParam(rctx.Def.Params, "maxCycleLength", opts.maxCycleLength); !ok || opts.maxCycleLength < 2 {
		return opts, false
	}
	return opts, true
}

func overrideString(params map[string]interface{}, key, fallback string) (string, bool) {
	if _, present := params[key]; !present {
		return fallback, true
	}
	return stringParam(params, key)
}

// granularGraph is the dependency graph at the configured node unit.
// Edge lists are sorted so every traversal is deterministic.
type granularGraph struct {
	nodes     []string
	out       map[string][]string
	selfLoops map[string]struct{}
	// members maps a node to the sorted in-scope class FQNs it covers,
	// used to anchor findings at a concrete class.
	members map[string][]string
}

func (g *granularGraph) hasSelfLoop(node string) bool {
	_, ok := g.selfLoops[node]
	return ok
}

// anchorClass picks the deterministic representative class of an SCC:
// the lexicographically first in-scope class over all its nodes.
func (g *granularGraph) anchorClass(index *facts.Index, scc []string) *facts.ClassFact {
	best := ""
	for _, node := range scc {
		for _, fqn := range g.members[node] {
			if best == "" || fqn < best {
				best = fqn
			}
		}
	}
	if best == "" {
		return nil
	}
	return index.Class(best)
}

func buildGranularGraph(rctx *Context, opts cycleOpts) *granularGraph {
	g := &granularGraph{
		out:       map[string][]string{},
		selfLoops: map[string]struct{}{},
		members:   map[string][]string{},
	}

	scoped := rctx.ScopedClasses()
	inScope := make(map[string]*facts.ClassFact, len(scoped))
	for _, class := range scoped {
		inScope[class.FqName] = class
	}

	nodeOf := func(fqn string) string {
		class := rctx.Index.Class(fqn)
		pkg := packageOf(fqn)
		if class != nil {
			pkg = class.Package
		}
		switch opts.granularity {
		case "package":
			return pkg
		case "module":
			return moduleOf(pkg)
		default:
			return fqn
		}
	}

	nodeSet := map[string]struct{}{}
	edgeSet := map[string]struct{}{}
	for _, class := range scoped {
		from := nodeOf(class.FqName)
		nodeSet[from] = struct{}{}
		g.members[from] = append(g.members[from], class.FqName)

		for _, edge := range rctx.Index.OutEdges(class.FqName) {
			if !opts.includeExternal && !rctx.Index.HasClass(edge.To) {
				continue
			}
			to := nodeOf(edge.To)
			if from == to {
				if opts.granularity == "class" && edge.From == edge.To {
					g.selfLoops[from] = struct{}{}
				}
				// Package-internal edges do not connect distinct nodes.
				continue
			}
			nodeSet[to] = struct{}{}
			key := from + "|" + to
			if _, dup := edgeSet[key]; dup {
				continue
			}
			edgeSet[key] = struct{}{}
			g.out[from] = append(g.out[from], to)
		}
	}

	for node := range nodeSet {
		g.nodes = append(g.nodes, node)
	}
	sort.Strings(g.nodes)
	for node := range g.out {
		sort.Strings(g.out[node])
	}
	for node := range g.members {
		sort.Strings(g.members[node])
	}
	return g
}

func packageOf(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[:i]
	}
	return ""
}

// moduleOf buckets a package into its first two segments, e.g.
// com.acme.billing.db -> com.acme.
func moduleOf(pkg string) string {
	parts := strings.SplitN(pkg, ".", 3)
	if len(parts) <= 2 {
		return pkg
	}
	return parts[0] + "." + parts[1]
}

// stronglyConnected runs an iterative Tarjan sweep over the whole
// graph. It always completes: the cycle count reported to users must
// be exact regardless of the example-extraction bounds.
func stronglyConnected(g *granularGraph) [][]string {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var sccs [][]string

	type frame struct {
		node string
		next int
	}

	for _, start := range g.nodes {
		if _, seen := indices[start]; seen {
			continue
		}
		frames := []frame{{node: start}}
		indices[start] = index
		lowlink[start] = index
		index++
		stack = append(stack, start)
		onStack[start] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			succ := g.out[f.node]
			if f.next < len(succ) {
				next := succ[f.next]
				f.next++
				if _, seen := indices[next]; !seen {
					indices[next] = index
					lowlink[next] = index
					index++
					stack = append(stack, next)
					onStack[next] = true
					frames = append(frames, frame{node: next})
				} else if onStack[next] {
					if indices[next] < lowlink[f.node] {
						lowlink[f.node] = indices[next]
					}
				}
				continue
			}

			if lowlink[f.node] == indices[f.node] {
				var scc []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					scc = append(scc, top)
					if top == f.node {
						break
					}
				}
				sccs = append(sccs, scc)
			}

			done := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[done] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[done]
				}
			}
		}
	}
	return sccs
}

// representativeCycle walks one bounded cycle through the SCC starting
// at its smallest node: a BFS constrained to SCC members finds the
// shortest way back to the start, capped at maxLen nodes. Returns nil
// when no path within the bound closes the loop.
func representativeCycle(g *granularGraph, scc []string, maxLen int) []string {
	start := scc[0]
	if len(scc) == 1 {
		if g.hasSelfLoop(start) {
			return []string{start, start}
		}
		return nil
	}

	members := toSet(scc)
	type queued struct {
		node string
		path []string
	}
	queue := []queued{{node: start, path: []string{start}}}
	visited := map[string]struct{}{start: {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.path) > maxLen {
			continue
		}
		for _, next := range g.out[cur.node] {
			if next == start {
				return append(cur.path, start)
			}
			if _, inSCC := members[next]; !inSCC {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			path := make([]string, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = next
			queue = append(queue, queued{node: next, path: path})
		}
	}
	return nil
}
