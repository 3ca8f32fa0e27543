package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"task_webapp/internal/domain"
	"task_webapp/internal/optimistic"

	"golang.org/x/sync/singleflight"
)

// Messages shown to the user.
const (
	MsgLoadFailed      = "Failed to load tasks"
	MsgCreateFailed    = "Failed to add task"
	MsgToggleFailed    = "Failed to update task status"
	MsgDeleteFailed    = "Failed to delete task"
	MsgInvalidDraftDue = "Invalid due date"
)

// ErrInvalidDueDate is returned by Create when the draft due date does not
// parse. Nothing is sent.
var ErrInvalidDueDate = errors.New("invalid due date")

// DueDateLayout is the draft due date format, read in the board's location.
const DueDateLayout = "2006-01-02T15:04"

// TaskAPI is the remote surface the board needs. *API implements it.
type TaskAPI interface {
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, req CreateRequest) (*domain.Task, error)
	SetCompleted(ctx context.Context, id int64, completed bool) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
}

// Draft is the unsent create form.
type Draft struct {
	Title       string
	Description string
	DueDate     string
}

// State is what the UI renders.
type State struct {
	Tasks      []domain.Task
	Draft      Draft
	Loading    bool
	Submitting bool
	Error      string
}

// CompletedCount returns the number of completed tasks and the total.
func (s State) CompletedCount() (done, total int) {
	for _, t := range s.Tasks {
		if t.Completed {
			done++
		}
	}
	return done, len(s.Tasks)
}

func (s State) clone() State {
	s.Tasks = append([]domain.Task(nil), s.Tasks...)
	return s
}

func (s State) indexOf(id int64) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Board is the client-side task list. Methods block on the network and are
// safe to call from several goroutines; local state changes before the
// request is sent and is reverted if it fails.
type Board struct {
	api      TaskAPI
	loc      *time.Location
	state    *optimistic.Store[State]
	loads    singleflight.Group
	onChange func(State)
}

type Option func(*Board)

// WithLocation sets the zone draft due dates are entered in. Default time.Local.
func WithLocation(loc *time.Location) Option {
	return func(b *Board) { b.loc = loc }
}

// WithOnChange registers fn to receive every new state. fn runs on the
// goroutine that made the change and must not call back into the board.
func WithOnChange(fn func(State)) Option {
	return func(b *Board) { b.onChange = fn }
}

func NewBoard(api TaskAPI, opts ...Option) *Board {
	b := &Board{
		api:   api,
		loc:   time.Local,
		state: optimistic.NewStore(State{Tasks: []domain.Task{}}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() State {
	return b.state.Get().clone()
}

func (b *Board) Location() *time.Location {
	return b.loc
}

func (b *Board) update(fn func(s State) State) {
	next := b.state.Update(func(s State) State { return fn(s.clone()) })
	b.notify(next)
}

func (b *Board) notify(s State) {
	if b.onChange != nil {
		b.onChange(s.clone())
	}
}

func (b *Board) setError(msg string) {
	b.update(func(s State) State {
		s.Error = msg
		return s
	})
}

// ClearError dismisses the error banner.
func (b *Board) ClearError() {
	b.setError("")
}

// SetDraft replaces the create form contents.
func (b *Board) SetDraft(d Draft) {
	b.update(func(s State) State {
		s.Draft = d
		return s
	})
}

// Load fetches the list and replaces the local one. Concurrent calls share
// one request. On failure the previous list stays.
func (b *Board) Load(ctx context.Context) error {
	_, err, _ := b.loads.Do("load", func() (any, error) {
		b.update(func(s State) State {
			s.Error = ""
			s.Loading = true
			return s
		})

		tasks, err := b.api.List(ctx)

		b.update(func(s State) State {
			s.Loading = false
			if err != nil {
				s.Error = MsgLoadFailed
			} else {
				s.Tasks = tasks
			}
			return s
		})
		return nil, err
	})
	return err
}

// ParseDueDate converts a draft due date in loc to UTC RFC 3339. Empty input
// yields nil.
func ParseDueDate(raw string, loc *time.Location) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{DueDateLayout, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			s := t.UTC().Format(time.RFC3339)
			return &s, nil
		}
	}
	return nil, ErrInvalidDueDate
}

// Create submits the draft. A blank title sends nothing. On success the new
// task is prepended and the draft cleared; on failure the draft is kept.
func (b *Board) Create(ctx context.Context) error {
	draft := b.state.Get().Draft
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil
	}

	due, err := ParseDueDate(draft.DueDate, b.loc)
	if err != nil {
		b.setError(MsgInvalidDraftDue)
		return err
	}

	req := CreateRequest{Title: title, DueDate: due}
	if d := strings.TrimSpace(draft.Description); d != "" {
		req.Description = &d
	}

	b.update(func(s State) State {
		s.Error = ""
		s.Submitting = true
		return s
	})

	task, err := b.api.Create(ctx, req)

	b.update(func(s State) State {
		s.Submitting = false
		if err != nil {
			s.Error = ServerMessage(err, MsgCreateFailed)
			return s
		}
		// the change feed may have delivered it already
		if s.indexOf(task.ID) < 0 {
			s.Tasks = append([]domain.Task{*task}, s.Tasks...)
		}
		s.Draft = Draft{}
		return s
	})
	return err
}

// Toggle flips the task's completed flag locally, then sends it. On failure
// the flag goes back to the value this call saw.
func (b *Board) Toggle(ctx context.Context, id int64) error {
	var (
		found  bool
		target bool
	)
	pending := b.state.Apply(func(s State) (State, optimistic.Inverse[State]) {
		i := s.indexOf(id)
		if i < 0 {
			return s, nil
		}
		found = true
		prev := s.Tasks[i].Completed
		target = !prev

		next := s.clone()
		next.Tasks[i].Completed = target
		return next, func(cur State) State {
			cur = cur.clone()
			if j := cur.indexOf(id); j >= 0 {
				cur.Tasks[j].Completed = prev
			}
			cur.Error = MsgToggleFailed
			return cur
		}
	})
	if !found {
		pending.Commit()
		return nil
	}
	b.notify(b.state.Get())

	_, err := b.api.SetCompleted(ctx, id, target)
	if pending.Settle(err) != nil {
		b.notify(b.state.Get())
	}
	return err
}

// Delete removes the task locally, then sends the delete. On failure the
// task is put back where it was.
func (b *Board) Delete(ctx context.Context, id int64) error {
	found := false
	pending := b.state.Apply(func(s State) (State, optimistic.Inverse[State]) {
		i := s.indexOf(id)
		if i < 0 {
			return s, nil
		}
		found = true
		removed := s.Tasks[i]
		var after int64
		hasAfter := i+1 < len(s.Tasks)
		if hasAfter {
			after = s.Tasks[i+1].ID
		}

		next := s.clone()
		next.Tasks = append(next.Tasks[:i], next.Tasks[i+1:]...)
		return next, func(cur State) State {
			cur = cur.clone()
			cur.Error = MsgDeleteFailed
			if cur.indexOf(id) >= 0 {
				return cur
			}
			// before the task that followed it, else at the end
			at := len(cur.Tasks)
			if hasAfter {
				if j := cur.indexOf(after); j >= 0 {
					at = j
				}
			}
			cur.Tasks = append(cur.Tasks[:at], append([]domain.Task{removed}, cur.Tasks[at:]...)...)
			return cur
		}
	})
	if !found {
		pending.Commit()
		return nil
	}
	b.notify(b.state.Get())

	err := b.api.Delete(ctx, id)
	if pending.Settle(err) != nil {
		b.notify(b.state.Get())
	}
	return err
}

// ApplyEvent folds a change feed event into the local list.
func (b *Board) ApplyEvent(ev domain.TaskEvent) {
	b.update(func(s State) State {
		s = s.clone()
		i := s.indexOf(ev.ID)
		switch ev.Type {
		case domain.EventTaskCreated:
			if i < 0 && ev.Task != nil {
				s.Tasks = append([]domain.Task{*ev.Task}, s.Tasks...)
			}
		case domain.EventTaskUpdated:
			if i >= 0 && ev.Task != nil {
				s.Tasks[i] = *ev.Task
			}
		case domain.EventTaskDeleted:
			if i >= 0 {
				s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
			}
		}
		return s
	})
}
