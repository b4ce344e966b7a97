package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"binderflow/backend/internal/logging"
	"binderflow/backend/internal/pipeline"
	"binderflow/backend/internal/services"
	"binderflow/backend/pkg/models"
)

// maxImportBytes bounds an imported session document.
const maxImportBytes = 64 << 20

// Options holds the dependencies for the API server.
type Options struct {
	Sessions *services.SessionService
	Client   services.PredictionClient
	Pipeline pipeline.Config
	// OutputDir is the base directory for per-project artifacts on Fs.
	OutputDir string
	Fs        afero.Fs
	DB        Pinger
	Logger    *logging.Logger
}

// Server holds the dependencies for the API server.
type Server struct {
	sessions  *services.SessionService
	client    services.PredictionClient
	cfg       pipeline.Config
	outputDir string
	fs        afero.Fs
	db        Pinger
	logger    *logging.Logger
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	return &Server{
		sessions:  opts.Sessions,
		client:    opts.Client,
		cfg:       opts.Pipeline,
		outputDir: opts.OutputDir,
		fs:        opts.Fs,
		db:        opts.DB,
		logger:    opts.Logger.Component("api"),
	}
}

// RegisterHandlers mounts the session and analysis routes on g.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/sessions", s.ListSessions)
	g.POST("/sessions", s.CreateSession)
	g.POST("/sessions/import", s.ImportSession)
	g.GET("/sessions/:id", s.GetSession)
	g.DELETE("/sessions/:id", s.DeleteSession)
	g.GET("/sessions/:id/export", s.ExportSession)
	g.GET("/sessions/:id/summary", s.SessionSummary)
	g.PUT("/sessions/:id/target", s.SetTarget)
	g.PUT("/sessions/:id/binder", s.SetBinder)

	g.POST("/sessions/:id/stages/target_structure", s.RunTargetPrediction)
	g.POST("/sessions/:id/stages/binder_scaffold", s.RunScaffoldDesign)
	g.POST("/sessions/:id/stages/binder_sequence", s.RunSequenceDesign)
	g.POST("/sessions/:id/stages/complex_prediction", s.RunComplexPrediction)
	g.POST("/sessions/:id/overlay", s.RunOverlayAnalysis)
	g.POST("/sessions/:id/pipeline", s.RunFullPipeline)

	g.POST("/analyze", s.AnalyzeInterface)
}

type createSessionRequest struct {
	ProjectName string `json:"project_name"`
}

// ListSessions returns summaries of the caller's sessions
// (GET /api/v1/sessions)
func (s *Server) ListSessions(c echo.Context) error {
	summaries, err := s.sessions.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if summaries == nil {
		summaries = []models.SessionSummary{}
	}
	return c.JSON(http.StatusOK, summaries)
}

// CreateSession starts a new session
// (POST /api/v1/sessions)
func (s *Server) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := s.sessions.Create(c.Request().Context(), strings.TrimSpace(req.ProjectName))
	if err != nil {
		return httpError(err)
	}
	s.logger.Info("session created", "session_id", session.SessionID, "project", session.ProjectName)
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns the full session document
// (GET /api/v1/sessions/:id)
func (s *Server) GetSession(c echo.Context) error {
	session, err := s.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session
// (DELETE /api/v1/sessions/:id)
func (s *Server) DeleteSession(c echo.Context) error {
	if err := s.sessions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetTarget stores the target input
// (PUT /api/v1/sessions/:id/target)
func (s *Server) SetTarget(c echo.Context) error {
	var in models.TargetInput
	if err := bind(c, &in); err != nil {
		return err
	}
	session, err := s.sessions.Update(c.Request().Context(), c.Param("id"), func(ws *models.WorkflowSession) error {
		return ws.SetTargetInput(in)
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

// SetBinder stores a manually supplied binder
// (PUT /api/v1/sessions/:id/binder)
func (s *Server) SetBinder(c echo.Context) error {
	var in models.BinderInput
	if err := bind(c, &in); err != nil {
		return err
	}
	session, err := s.sessions.Update(c.Request().Context(), c.Param("id"), func(ws *models.WorkflowSession) error {
		return ws.SetBinderInput(in)
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func parseFormat(c echo.Context) (models.ExportFormat, error) {
	f, err := models.ParseExportFormat(c.QueryParam("format"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return f, nil
}

// ExportSession renders the session as a JSON or YAML document
// (GET /api/v1/sessions/:id/export?format=json|yaml)
func (s *Server) ExportSession(c echo.Context) error {
	format, err := parseFormat(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	data, err := s.sessions.Export(c.Request().Context(), id, format)
	if err != nil {
		return httpError(err)
	}
	contentType := echo.MIMEApplicationJSON
	if format == models.FormatYAML {
		contentType = "application/yaml"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "session_"+id+"."+string(format)))
	return c.Blob(http.StatusOK, contentType, data)
}

// ImportSession stores a previously exported session document
// (POST /api/v1/sessions/import?format=json|yaml)
func (s *Server) ImportSession(c echo.Context) error {
	format, err := parseFormat(c)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body: "+err.Error())
	}
	session, err := s.sessions.Import(c.Request().Context(), format, data)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDocument) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, session)
}
