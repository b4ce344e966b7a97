// Package api contains the HTTP handlers for the binder design service
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"binderflow/backend/internal/logging"
	"binderflow/backend/internal/repository"
	"binderflow/backend/pkg/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealth reports service health. The database is checked when a pinger
// is configured; a failed check yields 503.
func (s *Server) HandleHealth(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "binderflow",
		Version:   Version,
	}
	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		status.Checks = map[string]string{"database": "ok"}
		if err := s.db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// ErrorHandler renders every error as an RFC 7807 Problem Details response.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		detail := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				detail = msg
			} else {
				detail = http.StatusText(status)
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		problem := ProblemDetails{
			Type:     "about:blank",
			Title:    http.StatusText(status),
			Status:   status,
			Detail:   detail,
			Instance: c.Request().URL.Path,
		}
		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, problem)
	}
}

// httpError maps domain and storage errors onto HTTP statuses.
func httpError(err error) error {
	var verr *models.ValidationError
	var gate *models.GateError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.As(err, &gate):
		return echo.NewHTTPError(http.StatusConflict, gate.Reason)
	default:
		return err
	}
}

// bind decodes the request body into v, reporting failures as 400.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return nil
}
