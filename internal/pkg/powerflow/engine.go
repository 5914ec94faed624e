/*
engine.go Entry point of the power-flow computation. Compute never fails:
structural problems, cycles and design-rule violations are all reported as
warnings on the returned Result.
*/

package powerflow

import (
	"fmt"
	"log"
	"os"

	"github.com/ohowland/pdn_core/internal/pkg/graph"
	"github.com/ohowland/pdn_core/internal/pkg/project"
)

// DefaultMaxDepth bounds subsystem nesting when Config.MaxDepth is unset.
const DefaultMaxDepth = 16

// Config contains the engine configuration.
type Config struct {
	MaxDepth     int  `json:"MaxDepth"`
	EnableLogger bool `json:"EnableLogger"`
}

func (c Config) maxDepth() int {
	if c.MaxDepth < 1 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// Engine computes projects. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	config Config
	logger *log.Logger
}

// New returns an engine for cfg.
func New(cfg Config) *Engine {
	e := &Engine{config: cfg}
	if cfg.EnableLogger {
		e.logger = log.New(os.Stderr, "powerflow: ", log.LstdFlags)
	}
	return e
}

var std = New(Config{})

// Compute evaluates p with the default engine.
func Compute(p *project.Project) *Result {
	return std.Compute(p)
}

// Default returns the engine used by the package-level Compute.
func Default() *Engine {
	return std
}

// Compute evaluates p for its current scenario.
func (e *Engine) Compute(p *project.Project) *Result {
	return e.compute(p, 0)
}

// Config is an accessor for the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) compute(p *project.Project, depth int) *Result {
	res := newResult(p)
	if p == nil {
		res.GlobalWarnings = append(res.GlobalWarnings, "project missing; nothing computed")
		return res
	}
	res.GlobalWarnings = append(res.GlobalWarnings, p.Issues...)

	g, issues := graph.New(p.Nodes, p.Edges)
	for _, err := range issues {
		res.GlobalWarnings = append(res.GlobalWarnings, err.Error())
	}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		res.Nodes[id] = newNodeResult(n)
	}
	for _, id := range g.EdgeIDs() {
		edge, _ := g.Edge(id)
		res.Edges[id] = &EdgeResult{Edge: edge}
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		res.GlobalWarnings = append(res.GlobalWarnings, fmt.Sprintf("computation blocked: %v", err))
		e.logf("[PowerFlow] %s: %v", projectLabel(p), err)
		return res
	}
	res.Order = order

	reverse, _ := g.ReverseTopologicalOrder()

	lv := &level{
		engine:   e,
		depth:    depth,
		graph:    g,
		margins:  p.DefaultMargins,
		scenario: p.Scenario(),
		nodes:    res.Nodes,
		edges:    res.Edges,
		resolved: make(map[string]bool),
		notes:    make(map[string][]string),
	}

	for _, id := range reverse {
		lv.propagate(id)
	}
	lv.resolveEdges(order)
	lv.reconcile(reverse)
	lv.finalizeSources(reverse)
	lv.checkRules(order)
	lv.totals(res, order)

	e.logf("[PowerFlow] %s (%s): source %.3f W, load %.3f W, %d warnings",
		projectLabel(p), res.Scenario, res.TotalSourcePower, res.TotalLoadPower, res.WarningCount())
	return res
}

func (e *Engine) logf(format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, v...)
	}
}

func projectLabel(p *project.Project) string {
	if p.Name != "" {
		return p.Name
	}
	if p.ID != "" {
		return p.ID
	}
	return "project"
}

// level is the working state of one project level during a Compute call.
type level struct {
	engine   *Engine
	depth    int
	graph    *graph.Graph
	margins  project.Margins
	scenario project.Scenario
	nodes    map[string]*NodeResult
	edges    map[string]*EdgeResult

	// resolved marks nodes whose upstream voltage is known.
	resolved map[string]bool
	// notes collects structural warnings raised before the rule check.
	notes map[string][]string
}

func (lv *level) note(id, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	for _, existing := range lv.notes[id] {
		if existing == msg {
			return
		}
	}
	lv.notes[id] = append(lv.notes[id], msg)
}

func (lv *level) totals(res *Result, order []string) {
	subsystems := 0.0
	for _, id := range order {
		nr := lv.nodes[id]
		switch n := nr.Node.(type) {
		case *project.Source, *project.SubsystemInput:
			res.TotalSourcePower += nr.PIn
		case *project.Load:
			if n.IsCritical() {
				res.CriticalLoadPower += nr.POut
			} else {
				res.NonCriticalLoadPower += nr.POut
			}
		case *project.Subsystem:
			subsystems += nr.POut
		}
	}
	res.TotalLoadPower = res.CriticalLoadPower + res.NonCriticalLoadPower + subsystems
	if res.TotalSourcePower > 0 {
		res.OverallEfficiency = res.TotalLoadPower / res.TotalSourcePower
	}
}
