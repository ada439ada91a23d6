package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// parseListFilter reads the optional status and limit query parameters.
func parseListFilter(status, limit string) (repository.ListFilter, error) {
	var f repository.ListFilter
	if s := strings.ToUpper(strings.TrimSpace(status)); s != "" {
		st := constants.TaskStatus(s)
		if !st.Valid() {
			return f, common.NewAppError("INVALID_STATUS", fmt.Sprintf("unknown status %q", status), common.ErrInvalidInput)
		}
		f.Status = st
	}
	if l := strings.TrimSpace(limit); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			return f, common.NewAppError("INVALID_LIMIT", "limit must be a positive integer", common.ErrInvalidInput)
		}
		f.Limit = n
	}
	return f, nil
}

func (a *httpAPI) exportTasks(c *gin.Context) {
	filter, err := parseListFilter(c.Query("status"), c.Query("limit"))
	if err != nil {
		a.writeError(c, err)
		return
	}

	xlsx, err := a.Exporter.ExportTasksXLSX(c.Request.Context(), filter)
	if err != nil {
		a.writeError(c, err)
		return
	}

	name := fmt.Sprintf("tasks-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, xlsx)
}
