package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/entity"
)

// taskStatusResponse always carries result and error, null until set.
type taskStatusResponse struct {
	TaskID    string                           `json:"task_id"`
	Status    string                           `json:"status"`
	Result    *classifier.ClassificationResult `json:"result"`
	Error     *string                          `json:"error"`
	CreatedAt time.Time                        `json:"created_at"`
	UpdatedAt time.Time                        `json:"updated_at"`
}

func newTaskStatusResponse(t *entity.Task) taskStatusResponse {
	return taskStatusResponse{
		TaskID:    t.ID.String(),
		Status:    string(t.Status),
		Result:    t.Result,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (a *httpAPI) classifyFile(c *gin.Context) {
	if a.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxUploadSize)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file provided"})
		return
	}
	if strings.TrimSpace(fh.Filename) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file selected"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		a.writeError(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	task, err := a.Submitter.Submit(c.Request.Context(), fh.Filename, io.Reader(f))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID.String(),
		"message": "File uploaded successfully. Processing started.",
	})
}

func (a *httpAPI) taskStatus(c *gin.Context) {
	raw := c.Param("task_id")
	v := common.NewValidator().Field("task_id", raw, common.UUID)
	if err := v.Err(); err != nil {
		a.writeError(c, err)
		return
	}

	task, err := a.Tasks.Get(c.Request.Context(), uuid.MustParse(raw))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
			return
		}
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskStatusResponse(task))
}

func (a *httpAPI) classify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		a.writeError(c, common.NewAppError("INVALID_BODY", "read request body", common.ErrInvalidInput))
		return
	}
	res, err := classifyRaw(c.Request.Context(), a.Classifier, body)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
