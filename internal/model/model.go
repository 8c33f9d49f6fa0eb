package model

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	Archived  bool      `json:"archived"`
}

type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberInvited MemberStatus = "invited"
	MemberRemoved MemberStatus = "removed"
)

type Member struct {
	UserID string       `json:"userId"`
	Status MemberStatus `json:"status"`
}

// Membership is what the backend returns for one (project, user) lookup:
// the project owner plus all membership rows for the project.
type Membership struct {
	ProjectID string   `json:"projectId"`
	OwnerID   string   `json:"ownerId"`
	Members   []Member `json:"members"`
}

type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`

	// AssignedTo is decoded permissively: backends and feeds have been seen
	// emitting user ids both as JSON strings and as bare numbers.
	AssignedTo IDList `json:"assignedTo"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskWithProject is a task joined with its project name, as surfaced in the
// today view.
type TaskWithProject struct {
	Task
	ProjectName string `json:"projectName"`
}

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent is one row-change notification from the push channel.
// Before is set for update/delete, After for insert/update.
type ChangeEvent struct {
	Op     ChangeOp `json:"op"`
	Before *Task    `json:"before,omitempty"`
	After  *Task    `json:"after,omitempty"`
}

// ProjectID resolves the project a change belongs to, preferring After.
func (e ChangeEvent) ProjectID() string {
	if e.After != nil {
		return e.After.ProjectID
	}
	if e.Before != nil {
		return e.Before.ProjectID
	}
	return ""
}
