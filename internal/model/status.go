package model

import (
	"fmt"
	"strings"
)

// ParseTaskStatus normalizes a user-typed status token. Common aliases map
// to the canonical ids so `task status t1 doing` works.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo", "open":
		return StatusTodo, nil
	case "in_progress", "in-progress", "doing", "wip":
		return StatusInProgress, nil
	case "done", "closed":
		return StatusDone, nil
	case "":
		return "", fmt.Errorf("invalid status: empty")
	default:
		return "", fmt.Errorf("invalid status %q (want todo, in_progress or done)", s)
	}
}

// IsEndState reports whether a status means no further work is expected.
func (s TaskStatus) IsEndState() bool {
	return s == StatusDone
}
