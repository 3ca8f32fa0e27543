package handlers

import (
	"context"

	"task_webapp/internal/domain"

	"github.com/gin-gonic/gin"
)

// TaskService is implemented by *service.TaskService.
type TaskService interface {
	List(ctx context.Context) ([]domain.Task, error)
	Get(ctx context.Context, rawID string) (*domain.Task, error)
	Create(ctx context.Context, p domain.Payload) (*domain.Task, error)
	Update(ctx context.Context, rawID string, p domain.Payload) (*domain.Task, error)
	Delete(ctx context.Context, rawID string) error
}

type Handler struct {
	Tasks TaskService
}

func NewHandler(tasks TaskService) *Handler {
	return &Handler{Tasks: tasks}
}

// respondError writes {"message": ...} with the status of the error's kind.
func respondError(c *gin.Context, err error) {
	c.JSON(domain.KindOf(err).HTTPStatus(), gin.H{"message": domain.MessageOf(err)})
}

// readPayload reads the raw body. Unreadable or malformed bodies are empty.
func readPayload(c *gin.Context) domain.Payload {
	body, err := c.GetRawData()
	if err != nil {
		return domain.Payload{}
	}
	return domain.DecodePayload(body)
}
