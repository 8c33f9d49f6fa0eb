package devfeed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEventsParsesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	data := `{"op":"insert","after":{"id":"t1","projectId":"p1","assignedTo":["u1"]}}

{"op":"delete","before":{"id":"t1","projectId":"p1"}}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := LoadEvents(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].After == nil || !events[0].After.AssignedToUser("u1") {
		t.Fatalf("first event payload: %+v", events[0])
	}
}

func TestLoadEventsRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	if err := os.WriteFile(path, []byte("{nope\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadEvents(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
