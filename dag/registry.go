package dag

import (
	"sync"

	"github.com/tienminhktvn/dataops-project/errors"
)

// Registry holds task specs by id. Dependencies may name tasks registered
// later; Finalize checks the whole graph and freezes the registry.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]TaskSpec
	order     []string
	finalized bool
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]TaskSpec)}
}

// Register adds a task. The TaskSpec is copied, so later changes by the caller
// have no effect.
func (r *Registry) Register(spec TaskSpec) error {
	if spec.ID == "" {
		return errors.InvalidInput("id", "task id must not be empty")
	}
	if spec.Run == nil {
		return errors.InvalidInput("run", "task "+spec.ID+" has no run function")
	}
	if spec.TriggerRule != "" && !spec.TriggerRule.Valid() {
		return errors.InvalidInput("trigger_rule", "task "+spec.ID+" has unknown trigger rule "+string(spec.TriggerRule))
	}
	if spec.Retry.MaxRetries < 0 {
		return errors.InvalidInput("retries", "task "+spec.ID+" has negative retries")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return errors.InvalidInput("id", "registry is finalized; cannot register "+spec.ID)
	}
	if _, exists := r.tasks[spec.ID]; exists {
		return errors.DuplicateTask(spec.ID)
	}
	r.tasks[spec.ID] = spec.clone()
	r.order = append(r.order, spec.ID)
	return nil
}

// MustRegister is Register for static definitions; it panics on error.
func (r *Registry) MustRegister(spec TaskSpec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Get returns a copy of the TaskSpec registered under id.
func (r *Registry) Get(id string) (TaskSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tasks[id]
	if !ok {
		return TaskSpec{}, errors.UnknownTask(id)
	}
	return spec.clone(), nil
}

// List returns task ids in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Finalized reports whether Finalize has succeeded.
func (r *Registry) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}

// Finalize verifies that every dependency exists and that the graph has no
// cycle, then freezes the registry. Calling it again is a no-op.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return nil
	}

	for _, id := range r.order {
		for _, dep := range r.tasks[id].DependsOn {
			if _, ok := r.tasks[dep]; !ok {
				return errors.UnknownDependency(id, dep)
			}
		}
	}
	if cycle := r.findCycle(); cycle != nil {
		return errors.CyclicDependency(cycle)
	}

	r.finalized = true
	return nil
}

type color int

const (
	white color = iota
	grey
	black
)

// findCycle runs a three-colour depth-first search and returns the first
// cycle found as a closed path (a -> b -> a), or nil. Callers hold mu.
func (r *Registry) findCycle() []string {
	colors := make(map[string]color, len(r.tasks))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = grey
		stack = append(stack, id)
		for _, dep := range r.tasks[id].DependsOn {
			switch colors[dep] {
			case grey:
				return closeCycle(stack, dep)
			case white:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[id] = black
		return nil
	}

	for _, id := range r.order {
		if colors[id] == white {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}

// closeCycle extracts the cycle starting at start from the DFS stack. The
// stack follows dependency edges, so the path is reversed to read in
// execution order.
func closeCycle(stack []string, start string) []string {
	i := len(stack) - 1
	for i >= 0 && stack[i] != start {
		i--
	}
	path := make([]string, 0, len(stack)-i+1)
	for j := len(stack) - 1; j >= i; j-- {
		path = append(path, stack[j])
	}
	return append(path, stack[len(stack)-1])
}
