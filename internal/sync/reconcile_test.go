package sync

import (
	"testing"

	"taskdeck-cli/internal/model"
)

// Scenario: insert assigned to me in an accessible project lands in both
// views.
func TestInsertAssignedToMe(t *testing.T) {
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: ptr(task("t1", "p1", "u1"))})

	if ids := todayIDs(e); len(ids) != 1 || ids[0] != "t1" {
		t.Fatalf("today: %v", ids)
	}
	if got := e.ProjectTasks("p1"); len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("project index: %v", got)
	}
}

func TestInsertNotAssignedToMeOnlyIndexesProject(t *testing.T) {
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: ptr(task("t1", "p1", "u2"))})

	if ids := todayIDs(e); len(ids) != 0 {
		t.Fatalf("today should be empty: %v", ids)
	}
	if got := e.ProjectTasks("p1"); len(got) != 1 {
		t.Fatalf("project index: %v", got)
	}
}

func TestInsertDeniedProjectIsDropped(t *testing.T) {
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": false})

	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: ptr(task("t1", "p1", "u1"))})

	if len(todayIDs(e)) != 0 || len(e.ProjectTasks("p1")) != 0 {
		t.Fatalf("denied event must not change state")
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

	ev := model.ChangeEvent{Op: model.OpInsert, After: ptr(task("t1", "p1", "u1"))}
	e.HandleChange(ev)
	e.HandleChange(ev)

	if ids := todayIDs(e); len(ids) != 1 {
		t.Fatalf("duplicate insert produced %v", ids)
	}
	if got := e.ProjectTasks("p1"); len(got) != 1 {
		t.Fatalf("duplicate insert in project index: %v", got)
	}
}

// The four-way reassignment classification of an update event.
func TestUpdateReassignmentMatrix(t *testing.T) {
	mk := func(assigned ...string) *model.Task {
		tk := task("t1", "p1", assigned...)
		return &tk
	}

	cases := []struct {
		name      string
		before    *model.Task
		after     *model.Task
		wantToday bool
	}{
		{"unassigned to me", mk(), mk("u1"), true},
		{"me to unassigned", mk("u1"), mk(), false},
		{"stays mine", mk("u1"), mk("u1", "u2"), true},
		{"third parties only", mk("a"), mk("b"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

			// Seed from the before state via insert.
			e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: tc.before})
			tc.after.Title = "updated"
			e.HandleChange(model.ChangeEvent{Op: model.OpUpdate, Before: tc.before, After: tc.after})

			ids := todayIDs(e)
			if tc.wantToday && (len(ids) != 1 || ids[0] != "t1") {
				t.Fatalf("expected t1 in today view, got %v", ids)
			}
			if !tc.wantToday && len(ids) != 0 {
				t.Fatalf("expected empty today view, got %v", ids)
			}

			// Project index is patched in place in every case.
			got := e.ProjectTasks("p1")
			if len(got) != 1 || got[0].Title != "updated" {
				t.Fatalf("project index not patched: %v", got)
			}
		})
	}
}

func TestUpdatePatchesTodayEntryInPlace(t *testing.T) {
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

	before := task("t1", "p1", "u1")
	after := before
	after.Title = "new title"
	after.Status = model.StatusInProgress

	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: &before})
	e.HandleChange(model.ChangeEvent{Op: model.OpUpdate, Before: &before, After: &after})

	got := e.TodayTasks()
	if len(got) != 1 || got[0].Title != "new title" || got[0].Status != model.StatusInProgress {
		t.Fatalf("today entry not patched: %+v", got)
	}
}

func TestDeleteRemovesFromBothViewsRegardlessOfAssignment(t *testing.T) {
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

	mine := task("t1", "p1", "u1")
	theirs := task("t2", "p1", "u2")
	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: &mine})
	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: &theirs})

	e.HandleChange(model.ChangeEvent{Op: model.OpDelete, Before: &mine})
	e.HandleChange(model.ChangeEvent{Op: model.OpDelete, Before: &theirs})

	if ids := todayIDs(e); len(ids) != 0 {
		t.Fatalf("today: %v", ids)
	}
	if got := e.ProjectTasks("p1"); len(got) != 0 {
		t.Fatalf("project index: %v", got)
	}
}

// Ids can arrive as JSON numbers from the feed while the session user id is
// a string; the membership test must still match.
func TestReassignmentDetectionAcrossIDRepresentations(t *testing.T) {
	e := newTestEngineForUser(t, "1001", map[string]bool{"p1": true})

	// AssignedTo decoded from a numeric JSON payload normalizes to "1001".
	numeric := model.Task{ID: "t1", ProjectID: "p1"}
	if err := numeric.AssignedTo.UnmarshalJSON([]byte(`[1001]`)); err != nil {
		t.Fatalf("decode: %v", err)
	}

	e.HandleChange(model.ChangeEvent{Op: model.OpInsert, After: &numeric})
	if ids := todayIDs(e); len(ids) != 1 {
		t.Fatalf("numeric assignee should match string user id, got %v", ids)
	}

	// Unassign via a string-typed payload: must be detected as was-assigned.
	after := model.Task{ID: "t1", ProjectID: "p1", AssignedTo: model.IDList{"2002"}}
	e.HandleChange(model.ChangeEvent{Op: model.OpUpdate, Before: &numeric, After: &after})
	if ids := todayIDs(e); len(ids) != 0 {
		t.Fatalf("unassignment across representations missed, got %v", ids)
	}
}

func TestUpdateForUnindexedRowCreatesIndexEntry(t *testing.T) {
	// An update can race ahead of the first project load; it must leave a
	// patchable row behind.
	e := newTestEngine(t, Config{}, &fakeBackend{}, map[string]bool{"p1": true})

	before := task("t1", "p1")
	after := task("t1", "p1", "u1")
	e.HandleChange(model.ChangeEvent{Op: model.OpUpdate, Before: &before, After: &after})

	if got := e.ProjectTasks("p1"); len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("project index: %v", got)
	}
	if ids := todayIDs(e); len(ids) != 1 {
		t.Fatalf("today: %v", ids)
	}
}
