// SPDX-License-Identifier: GPL-3.0-or-later

package scope

import (
	"fmt"
	"strings"
)

// NextLevel returns the unvisited parents of the frontier in natural
// order and marks them visited.
func NextLevel(frontier []ID, visited map[ID]bool, parents func(ID) []ID) []ID {
	var next []ID
	for _, id := range frontier {
		for _, p := range parents(id) {
			if !visited[p] {
				visited[p] = true
				next = append(next, p)
			}
		}
	}
	SortIDs(next)
	return next
}

// FirstLevel deduplicates the starting scopes keeping their order.
func FirstLevel(start []ID, visited map[ID]bool) []ID {
	var level []ID
	for _, id := range start {
		if !visited[id] {
			visited[id] = true
			level = append(level, id)
		}
	}
	return level
}

// Levels returns the breadth first levels of the scope graph reachable
// from start. Every scope appears once, at its smallest depth.
func Levels(start []ID, parents func(ID) []ID) [][]ID {
	visited := make(map[ID]bool)
	var levels [][]ID
	for level := FirstLevel(start, visited); len(level) > 0; level = NextLevel(level, visited, parents) {
		levels = append(levels, level)
	}
	return levels
}

// CheckCycles returns an error wrapping ErrCycle when a scope reachable
// from start inherits from itself directly or through other scopes.
func CheckCycles(start []ID, parents func(ID) []ID) error {
	const (
		unseen = iota
		onPath
		done
	)
	state := make(map[ID]int)

	type frame struct {
		id   ID
		next int
	}

	for _, root := range start {
		if state[root] != unseen {
			continue
		}
		stack := []frame{{id: root}}
		state[root] = onPath

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			ps := parents(top.id)
			if top.next >= len(ps) {
				state[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}
			p := ps[top.next]
			top.next++

			switch state[p] {
			case onPath:
				path := []string{string(p)}
				for i := len(stack) - 1; i >= 0 && stack[i].id != p; i-- {
					path = append(path, string(stack[i].id))
				}
				path = append(path, string(p))
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
			case unseen:
				state[p] = onPath
				stack = append(stack, frame{id: p})
			}
		}
	}
	return nil
}
