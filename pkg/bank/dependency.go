package bank

import (
	"fmt"
	"sort"
	"strings"
)

// topologicalSort orders definitions with Kahn's algorithm so
// that each definition comes after the in-bank predicates it
// references. References outside the bank are ignored here and
// resolved against the registry at install time.
func topologicalSort(
	defs map[string]*Definition,
) ([]*Definition, error) {
	inDegree := make(map[string]int, len(defs))
	dependents := make(map[string][]string, len(defs))

	for name, def := range defs {
		if _, exists := inDegree[name]; !exists {
			inDegree[name] = 0
		}
		for _, dep := range inBankRefs(defs, def) {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	ordered := make([]*Definition, 0, len(defs))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		ordered = append(ordered, defs[name])

		next := dependents[name]
		sort.Strings(next)
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(ordered) != len(defs) {
		return nil, fmt.Errorf(
			"circular predicate reference: %s", detectCycle(defs),
		)
	}
	return ordered, nil
}

// inBankRefs returns the distinct, sorted references of def
// that name other definitions in defs.
func inBankRefs(defs map[string]*Definition, def *Definition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ref := range def.References() {
		if _, ok := defs[ref]; ok && !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out
}

// detectCycle describes one reference cycle using iterative DFS
// with three colouring states.
func detectCycle(defs map[string]*Definition) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	colour := make(map[string]int, len(defs))
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	type frame struct {
		name  string
		deps  []string
		index int
	}

	for _, start := range names {
		if colour[start] != white {
			continue
		}

		stack := []frame{{name: start, deps: inBankRefs(defs, defs[start])}}
		colour[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.index >= len(top.deps) {
				colour[top.name] = black
				stack = stack[:len(stack)-1]
				continue
			}

			dep := top.deps[top.index]
			top.index++

			switch colour[dep] {
			case gray:
				var path []string
				for i := len(stack) - 1; i >= 0; i-- {
					path = append([]string{stack[i].name}, path...)
					if stack[i].name == dep {
						break
					}
				}
				return strings.Join(append(path, dep), " -> ")
			case white:
				colour[dep] = gray
				stack = append(stack, frame{
					name: dep,
					deps: inBankRefs(defs, defs[dep]),
				})
			}
		}
	}

	return "unknown cycle"
}
