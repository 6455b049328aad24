package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dubeyaashish/itradebook-sub000/internal/domain/entities"
	"github.com/dubeyaashish/itradebook-sub000/pkg/errors"
)

const dateLayout = "2006-01-02"

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondServiceError maps a service failure to an HTTP response. Stage
// tags pass through so callers can tell "no data shown" from "could not
// compute".
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.IsValidation(err):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case err == errors.ErrRebuildInProgress:
		respondError(c, http.StatusConflict, "REBUILD_IN_PROGRESS", err.Error(), nil)
	default:
		details := map[string]interface{}{
			"request_id": c.GetString("request_id"),
		}
		if stage, ok := errors.StageOf(err); ok {
			details["stage"] = string(stage)
		}
		respondError(c, http.StatusServiceUnavailable, "UPSTREAM_FAILURE", err.Error(), details)
	}
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", name+" must be an integer", nil)
		return 0, false
	}
	return value, true
}

func querySymbols(c *gin.Context) []string {
	raw := c.Query("symbols")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	return symbols
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, raw)
}
