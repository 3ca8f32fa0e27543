package domain

const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// TaskEvent describes a committed mutation. Task is nil for deletions.
type TaskEvent struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Task *Task  `json:"task,omitempty"`
}
