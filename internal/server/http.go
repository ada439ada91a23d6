package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/entity"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
	"github.com/joseph-ayodele/doc-classifier/internal/ingest"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

const requestIDHeader = "X-Request-ID"

// TaskReader is the part of the task repository the transports read from.
type TaskReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Task, error)
}

// Exporter renders tasks as a spreadsheet.
type Exporter interface {
	ExportTasksXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Submitter     ingest.Submitter
	Tasks         TaskReader
	Classifier    extract.DocumentClassifier
	Exporter      Exporter
	DBPing        Pinger
	StoragePing   Pinger
	MaxUploadSize int64
}

type httpAPI struct {
	Deps
	logger *slog.Logger
}

// NewHTTPHandler builds the gin engine serving the classification API.
func NewHTTPHandler(deps Deps, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	api := &httpAPI{Deps: deps, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger))

	r.POST("/classify_file", api.classifyFile)
	r.GET("/task_status/:task_id", api.taskStatus)
	r.POST("/classify", api.classify)
	r.GET("/tasks/export", api.exportTasks)
	r.GET("/health", api.health)
	return r
}

// NewHTTPServer wraps handler in an http.Server with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
		)
	}
}

// writeError maps err onto a status code and a {"detail": ...} body.
func (a *httpAPI) writeError(c *gin.Context, err error) {
	code := common.HTTPStatus(err)
	log := common.LoggerFromContext(c.Request.Context(), a.logger)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(code, gin.H{"detail": "internal server error"})
		return
	}
	log.Warn("request rejected", "path", c.FullPath(), "status", code, "error", err)
	c.JSON(code, gin.H{"detail": err.Error()})
}
