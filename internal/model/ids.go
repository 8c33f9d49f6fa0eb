package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// NormalizeID coerces a raw id value to its canonical string form.
//
// Ids cross two representations in practice: the database returns them as
// strings, while some feed payloads carry them as JSON numbers. Comparing the
// two directly produces false negatives in assignment diffing, so every
// membership test in the engine goes through this form first.
func NormalizeID(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		// JSON numbers decode as float64; ids are integral.
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case nil:
		return ""
	default:
		return ""
	}
}

// IDList is a list of user ids that tolerates mixed string/number JSON input.
type IDList []string

func (l *IDList) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		// Some writers emit a single scalar instead of a one-element array.
		var one any
		if err2 := json.Unmarshal(b, &one); err2 != nil {
			return err
		}
		raw = []any{one}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if id := NormalizeID(v); id != "" {
			out = append(out, id)
		}
	}
	*l = out
	return nil
}

// IDSet is a set of canonical ids.
type IDSet map[string]struct{}

// NewIDSet normalizes each id and drops empties and duplicates.
func NewIDSet(ids []string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if n := NormalizeID(id); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[NormalizeID(id)]
	return ok
}

func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the set contents as a sorted slice, for stable output.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Assignees returns the task's assigned user ids as a canonical set.
func (t Task) Assignees() IDSet {
	return NewIDSet(t.AssignedTo)
}

// AssignedToUser reports whether the task is assigned to userID, comparing
// canonical forms on both sides.
func (t Task) AssignedToUser(userID string) bool {
	return t.Assignees().Has(userID)
}
