package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"binderflow/backend/internal/pipeline"
	"binderflow/backend/pkg/models"
)

type stageResponse struct {
	Result  pipeline.Result  `json:"result"`
	Summary pipeline.Summary `json:"summary"`
}

type targetStageRequest struct {
	Model     string `json:"model"`
	Algorithm string `json:"algorithm"`
}

type scaffoldStageRequest struct {
	Contigs        string   `json:"contigs"`
	Hotspots       []string `json:"hotspot_res"`
	DiffusionSteps int      `json:"diffusion_steps"`
}

type complexStageRequest struct {
	pipeline.ComplexOptions
	SequenceIdx int `json:"sequence_idx"`
	// Candidates above one runs a ranked batch over the first designed sequences.
	Candidates int `json:"candidates"`
}

func (s *Server) orchestrator(ws *models.WorkflowSession) (*pipeline.Orchestrator, error) {
	art, err := pipeline.NewFSArtifacts(s.fs, pipeline.DefaultOutputDir(s.outputDir, ws.ProjectName))
	if err != nil {
		return nil, err
	}
	return pipeline.NewOrchestrator(ws, s.client, art, s.cfg, s.logger), nil
}

// runStage loads the session, runs one orchestrator operation and saves the
// session whatever the outcome, so failed stage statuses persist. The store
// calls outlive a cancelled request.
func (s *Server) runStage(c echo.Context, run func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result) error {
	ctx := c.Request().Context()
	var resp stageResponse
	_, err := s.sessions.Update(context.WithoutCancel(ctx), c.Param("id"), func(ws *models.WorkflowSession) error {
		o, err := s.orchestrator(ws)
		if err != nil {
			return err
		}
		resp.Result = run(ctx, o)
		resp.Summary = o.Summary()
		return nil
	})
	if err != nil {
		return httpError(err)
	}
	status := http.StatusOK
	if !resp.Result.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, resp)
}

// RunTargetPrediction predicts the target structure
// (POST /api/v1/sessions/:id/stages/target_structure)
func (s *Server) RunTargetPrediction(c echo.Context) error {
	var req targetStageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	model, err := pipeline.ParseTargetModel(req.Model)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return s.runStage(c, func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result {
		return o.RunTargetPrediction(ctx, model, pipeline.TargetOptions{Algorithm: req.Algorithm})
	})
}

// RunScaffoldDesign generates a binder scaffold
// (POST /api/v1/sessions/:id/stages/binder_scaffold)
func (s *Server) RunScaffoldDesign(c echo.Context) error {
	var req scaffoldStageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.runStage(c, func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result {
		return o.RunScaffoldDesign(ctx, req.Contigs, req.Hotspots, req.DiffusionSteps)
	})
}

// RunSequenceDesign designs binder sequences
// (POST /api/v1/sessions/:id/stages/binder_sequence)
func (s *Server) RunSequenceDesign(c echo.Context) error {
	var req pipeline.SequenceOptions
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.runStage(c, func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result {
		return o.RunSequenceDesign(ctx, req)
	})
}

// RunComplexPrediction predicts one complex or a ranked batch
// (POST /api/v1/sessions/:id/stages/complex_prediction)
func (s *Server) RunComplexPrediction(c echo.Context) error {
	var req complexStageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.runStage(c, func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result {
		if req.Candidates > 1 {
			return o.RunBatchComplexPrediction(ctx, req.Candidates, req.ComplexOptions)
		}
		return o.RunComplexPrediction(ctx, req.SequenceIdx, req.ComplexOptions)
	})
}

// RunOverlayAnalysis scores the target and binder structures as given
// (POST /api/v1/sessions/:id/overlay)
func (s *Server) RunOverlayAnalysis(c echo.Context) error {
	return s.runStage(c, func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result {
		return o.RunOverlayAnalysis(ctx)
	})
}

// RunFullPipeline runs every stage from target prediction to complex prediction
// (POST /api/v1/sessions/:id/pipeline)
func (s *Server) RunFullPipeline(c echo.Context) error {
	var req pipeline.FullOptions
	if err := bind(c, &req); err != nil {
		return err
	}
	model, err := pipeline.ParseTargetModel(string(req.Model))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Model = model
	return s.runStage(c, func(ctx context.Context, o *pipeline.Orchestrator) pipeline.Result {
		return o.RunFullPipeline(ctx, req)
	})
}

// SessionSummary reports pipeline progress
// (GET /api/v1/sessions/:id/summary)
func (s *Server) SessionSummary(c echo.Context) error {
	ws, err := s.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	o, err := s.orchestrator(ws)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o.Summary())
}
