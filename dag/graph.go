package dag

import (
	"sort"

	"github.com/tienminhktvn/dataops-project/errors"
)

// Plan is the ordered list of ready sets produced by BuildPlan. Tasks in one
// level have no dependency on each other; every dependency of a task sits in
// an earlier level.
type Plan struct {
	Levels [][]string `json:"levels"`
	level  map[string]int
}

// Level returns the index of the ready set containing id, or -1.
func (p *Plan) Level(id string) int {
	if l, ok := p.level[id]; ok {
		return l
	}
	return -1
}

// Tasks returns every task id in plan order.
func (p *Plan) Tasks() []string {
	var out []string
	for _, lvl := range p.Levels {
		out = append(out, lvl...)
	}
	return out
}

// Len returns the number of tasks in the plan.
func (p *Plan) Len() int {
	return len(p.level)
}

// BuildPlan layers a finalized registry with Kahn's algorithm. Ids inside a
// level are sorted so the plan is deterministic.
func BuildPlan(reg *Registry) (*Plan, error) {
	if !reg.Finalized() {
		if err := reg.Finalize(); err != nil {
			return nil, err
		}
	}

	ids := reg.List()
	deps := make(map[string][]string, len(ids))
	for _, id := range ids {
		spec, err := reg.Get(id)
		if err != nil {
			return nil, err
		}
		deps[id] = spec.DependsOn
	}

	levels, remaining := layer(deps)
	if len(remaining) > 0 {
		return nil, errors.UnresolvableGraph(remaining)
	}

	plan := &Plan{Levels: levels, level: make(map[string]int, len(ids))}
	for i, lvl := range levels {
		for _, id := range lvl {
			plan.level[id] = i
		}
	}
	return plan, nil
}

// layer groups ids into ready sets. deps maps each id to the ids it depends
// on. Ids that can never reach in-degree zero are returned as remaining,
// including dependents of ids missing from deps.
func layer(deps map[string][]string) ([][]string, []string) {
	inDegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string)
	for id, ds := range deps {
		inDegree[id] = len(ds)
		for _, d := range ds {
			dependents[d] = append(dependents[d], id)
		}
	}

	var queue []string
	for id, n := range inDegree {
		if n == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]string
	seen := 0
	for len(queue) > 0 {
		sort.Strings(queue)
		levels = append(levels, queue)
		seen += len(queue)
		var next []string
		for _, id := range queue {
			for _, d := range dependents[id] {
				inDegree[d]--
				if inDegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		queue = next
	}

	var remaining []string
	if seen != len(inDegree) {
		for id, n := range inDegree {
			if n > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
	}
	return levels, remaining
}
