package service

import (
	"context"
	"errors"

	"task_webapp/internal/domain"
	"task_webapp/internal/logger"
)

// TaskStore is the persistence the service needs. Implementations report a
// missing id with domain.ErrTaskNotFound.
type TaskStore interface {
	List(ctx context.Context) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id int64) error
}

// EventPublisher receives committed mutations.
type EventPublisher interface {
	Publish(ev domain.TaskEvent)
}

// TaskService validates requests and delegates to the store. Every error it
// returns is a *domain.Error.
type TaskService struct {
	store  TaskStore
	events EventPublisher
}

// NewTaskService creates a task service. events may be nil.
func NewTaskService(store TaskStore, events EventPublisher) *TaskService {
	return &TaskService{store: store, events: events}
}

func (s *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "list", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, rawID string) (*domain.Task, error) {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storageError(ctx, "get", err)
	}
	return t, nil
}

func (s *TaskService) Create(ctx context.Context, p domain.Payload) (*domain.Task, error) {
	n, err := domain.NewTaskFromPayload(p)
	if err != nil {
		return nil, err
	}

	t := n.Task()
	if err := s.store.Create(ctx, t); err != nil {
		return nil, s.storageError(ctx, "create", err)
	}

	s.publish(domain.EventTaskCreated, t.ID, t)
	return t, nil
}

// Update applies a partial update. The id is checked before the payload.
func (s *TaskService) Update(ctx context.Context, rawID string, p domain.Payload) (*domain.Task, error) {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	patch, err := domain.PatchFromPayload(p)
	if err != nil {
		return nil, err
	}

	t, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storageError(ctx, "update", err)
	}

	s.publish(domain.EventTaskUpdated, t.ID, t)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, rawID string) error {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storageError(ctx, "delete", err)
	}

	s.publish(domain.EventTaskDeleted, id, nil)
	return nil
}

func (s *TaskService) publish(typ string, id int64, t *domain.Task) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.TaskEvent{Type: typ, ID: id, Task: t})
}

// storageError translates store failures. Details are logged, never returned.
func (s *TaskService) storageError(ctx context.Context, op string, err error) error {
	if errors.Is(err, domain.ErrTaskNotFound) {
		return domain.NotFound(domain.MsgTaskNotFound)
	}
	logger.WithContext(ctx).Error("task storage failed", "op", op, "error", err)
	return domain.Internal(err)
}
