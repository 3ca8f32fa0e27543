package domain

import "time"

// Task is the single persisted entity: one to-do item.
type Task struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	DueDate     *time.Time `gorm:"column:due_date" json:"dueDate"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

func (Task) TableName() string {
	return "tasks"
}

// NewTask is a validated create request.
type NewTask struct {
	Title       string
	Description *string
	DueDate     *time.Time
}

// Task builds the entity to insert. The store assigns id and timestamps.
func (n NewTask) Task() *Task {
	return &Task{
		Title:       n.Title,
		Description: n.Description,
		DueDate:     n.DueDate,
		Completed:   false,
	}
}

// TaskPatch is a validated partial update. Title and Completed are applied
// when non-nil; Description and DueDate are applied when their Set flag is
// true, a nil value meaning "clear".
type TaskPatch struct {
	Title     *string
	Completed *bool

	SetDescription bool
	Description    *string

	SetDueDate bool
	DueDate    *time.Time
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil && !p.SetDescription && !p.SetDueDate
}

// Columns returns the column assignments for the patch, keyed by column name.
func (p TaskPatch) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Completed != nil {
		cols["completed"] = *p.Completed
	}
	if p.SetDescription {
		cols["description"] = p.Description
	}
	if p.SetDueDate {
		cols["due_date"] = p.DueDate
	}
	return cols
}
