// Package task is the vocabulary of the execution tree: a Call is a single
// named tool invocation, a Plan is a named, ordered group of tasks whose
// children run either one after another or all at once.
package task

import (
	"slices"
	"strings"
)

// Task is either a Call or a *Plan.
type Task interface {
	Name() string
	String() string
	task()
}

// Call invokes the tool registered under its name with its arguments.
type Call struct {
	name string
	args []string
}

// NewCall creates a call. The argument slice is copied.
func NewCall(name string, args ...string) Call {
	return Call{name: name, args: slices.Clone(args)}
}

// Name returns the tool name.
func (c Call) Name() string { return c.name }

// Args returns a copy of the arguments.
func (c Call) Args() []string { return slices.Clone(c.args) }

// String returns the tool name followed by the space-joined arguments.
func (c Call) String() string {
	if len(c.args) == 0 {
		return c.name
	}
	return c.name + " " + strings.Join(c.args, " ")
}

// Equal compares calls by their printed form.
func (c Call) Equal(other Call) bool { return c.String() == other.String() }

func (Call) task() {}

// Plan is a composite task. A plan without children is a valid no-op.
type Plan struct {
	name     string
	parallel bool
	children []Task
}

// Sequence creates a plan whose children run strictly in order.
func Sequence(name string, children ...Task) *Plan {
	return &Plan{name: name, children: slices.Clone(children)}
}

// Parallel creates a plan whose children run concurrently.
func Parallel(name string, children ...Task) *Plan {
	return &Plan{name: name, parallel: true, children: slices.Clone(children)}
}

// Noop creates a named plan that does nothing.
func Noop(name string) *Plan {
	return &Plan{name: name}
}

// Name returns the plan name.
func (p *Plan) Name() string { return p.name }

// Parallel reports whether the children run concurrently.
func (p *Plan) Parallel() bool { return p.parallel }

// Children returns a copy of the child list.
func (p *Plan) Children() []Task { return slices.Clone(p.children) }

// String returns the plan name, marked when parallel.
func (p *Plan) String() string {
	if p.parallel {
		return p.name + " [parallel]"
	}
	return p.name
}

// Equal reports whether both trees have the same shape, names, flags and
// calls.
func (p *Plan) Equal(other *Plan) bool {
	if p == nil || other == nil {
		return p == other
	}
	return slices.Equal(Lines(p), Lines(other))
}

func (*Plan) task() {}

// Walk visits t and all of its descendants depth first, in declaration order.
func Walk(t Task, fn func(depth int, t Task)) {
	walk(t, 0, fn)
}

func walk(t Task, depth int, fn func(int, Task)) {
	fn(depth, t)
	if p, ok := t.(*Plan); ok {
		for _, c := range p.children {
			walk(c, depth+1, fn)
		}
	}
}

// Print writes one line per task to sink, each prefixed by indent repeated
// once per nesting level.
func Print(t Task, indent string, sink func(line string)) {
	Walk(t, func(depth int, t Task) {
		sink(strings.Repeat(indent, depth) + t.String())
	})
}

// Lines returns the printed tree indented by two spaces per level.
func Lines(t Task) []string {
	var lines []string
	Print(t, "  ", func(line string) { lines = append(lines, line) })
	return lines
}

// Calls returns every call in the tree in declaration order.
func Calls(t Task) []Call {
	var calls []Call
	Walk(t, func(_ int, t Task) {
		if c, ok := t.(Call); ok {
			calls = append(calls, c)
		}
	})
	return calls
}

// Find returns the first task with the given name.
func Find(t Task, name string) (Task, bool) {
	var found Task
	Walk(t, func(_ int, t Task) {
		if found == nil && t.Name() == name {
			found = t
		}
	})
	return found, found != nil
}
