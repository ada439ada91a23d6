package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// Task represents a classification task for data transfer between layers.
type Task struct {
	ID        uuid.UUID                        `json:"task_id"`
	FileURL   string                           `json:"file_url"`
	Filename  string                           `json:"filename"`
	Status    constants.TaskStatus             `json:"status"`
	Result    *classifier.ClassificationResult `json:"result,omitempty"`
	Error     *string                          `json:"error,omitempty"`
	CreatedAt time.Time                        `json:"created_at"`
	UpdatedAt time.Time                        `json:"updated_at"`
}
