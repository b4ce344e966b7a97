// Package pipeline drives a workflow session through the binder design
// stages, calling the prediction service for each one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/logging"
	"binderflow/backend/internal/services"
	"binderflow/backend/pkg/models"
)

// Config tunes an Orchestrator.
type Config struct {
	// StructurePolicy bounds polling for target and complex prediction.
	StructurePolicy services.PollPolicy `mapstructure:"structure_policy"`
	// DesignPolicy bounds polling for scaffold and sequence design.
	DesignPolicy services.PollPolicy `mapstructure:"design_policy"`
	// Parallelism is how many batch candidates are predicted at once.
	Parallelism int `mapstructure:"parallelism"`
	// ScaffoldAtomLimit caps the atom records sent to design models; 0 sends all.
	ScaffoldAtomLimit int `mapstructure:"scaffold_atom_limit"`
	// InterfaceCutoff is the contact distance in Ångström.
	InterfaceCutoff float64 `mapstructure:"interface_cutoff"`
}

// DefaultConfig returns the stock poll ceilings: 30 minutes for structure
// prediction and 10 minutes for design steps, polled every 10 seconds.
func DefaultConfig() Config {
	return Config{
		StructurePolicy: services.PollPolicy{Interval: 10 * time.Second, MaxAttempts: 180},
		DesignPolicy:    services.PollPolicy{Interval: 10 * time.Second, MaxAttempts: 60},
		Parallelism:     1,
		InterfaceCutoff: binding.DefaultCutoff,
	}
}

// Result is the outcome of one orchestrator operation. Failures are reported
// here rather than as errors.
type Result struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	Stage    models.WorkflowStage `json:"stage"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Orchestrator runs pipeline stages against one session. It holds the session
// only for the duration of the run and is not safe for concurrent use.
type Orchestrator struct {
	session   *models.WorkflowSession
	client    services.PredictionClient
	artifacts ArtifactWriter
	cfg       Config
	logger    *logging.Logger
	inst      instruments
}

// NewOrchestrator binds a session to a prediction client. A nil artifact
// writer keeps outputs in memory.
func NewOrchestrator(session *models.WorkflowSession, client services.PredictionClient, artifacts ArtifactWriter, cfg Config, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	if artifacts == nil {
		// MemMapFs creates parent directories on write.
		artifacts = &FSArtifacts{fs: afero.NewMemMapFs(), dir: DefaultOutputDir("/", session.ProjectName)}
	}
	if cfg.InterfaceCutoff <= 0 {
		cfg.InterfaceCutoff = binding.DefaultCutoff
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	inst := newInstruments()
	return &Orchestrator{
		session:   session,
		client:    countingClient{PredictionClient: client, attempts: inst.pollAttempts},
		artifacts: artifacts,
		cfg:       cfg,
		logger:    logger.Component("pipeline"),
		inst:      inst,
	}
}

// Session returns the session being driven.
func (o *Orchestrator) Session() *models.WorkflowSession { return o.session }

var stageLabels = map[models.WorkflowStage]string{
	models.StageTargetStructure:   "Target prediction",
	models.StageBinderScaffold:    "Scaffold design",
	models.StageBinderSequence:    "Sequence design",
	models.StageComplexPrediction: "Complex prediction",
}

// stageWork performs the external part of a stage and commits its output to
// the session, returning a success message and any warnings.
type stageWork func(ctx context.Context) (string, []string, error)

// invalid reports a precondition failure. The session is not touched.
func (o *Orchestrator) invalid(stage models.WorkflowStage, reason string, warnings ...string) Result {
	o.logger.Warn("stage rejected", "stage", stage, "reason", reason)
	return Result{Stage: stage, Message: reason, Warnings: warnings}
}

// runStage marks stage in progress, runs work, then either completes the
// stage and advances to the next one or marks it failed. Earlier stages are
// never rolled back.
func (o *Orchestrator) runStage(ctx context.Context, stage models.WorkflowStage, work stageWork, warnings ...string) Result {
	ctx, span := o.inst.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", o.session.SessionID),
		attribute.String("stage", string(stage)),
	)
	start := time.Now()
	label := stageLabels[stage]

	if err := o.session.AdvanceToStage(stage); err != nil {
		var gate *models.GateError
		if errors.As(err, &gate) {
			return o.invalid(stage, gate.Reason, warnings...)
		}
		return o.invalid(stage, err.Error(), warnings...)
	}
	o.logger.Info("stage started", "stage", stage, "session_id", o.session.SessionID)

	msg, more, err := work(ctx)
	warnings = append(warnings, more...)
	if err != nil {
		_ = o.session.UpdateStageStatus(stage, models.StatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.inst.recordStage(ctx, string(stage), false, time.Since(start).Seconds())
		o.logger.Error("stage failed", "stage", stage, "error", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return Result{Stage: stage, Message: fmt.Sprintf("%s failed: %s", label, err), Warnings: warnings}
	}

	if err := o.session.UpdateStageStatus(stage, models.StatusCompleted); err != nil {
		o.logger.Error("failed to complete stage", "stage", stage, "error", err)
		return Result{Stage: stage, Message: fmt.Sprintf("%s failed: %s", label, err), Warnings: warnings}
	}
	if next, ok := stage.Next(); ok {
		if err := o.session.AdvanceToStage(next); err != nil {
			o.logger.Warn("could not advance", "from", stage, "to", next, "error", err)
		}
	}
	o.inst.recordStage(ctx, string(stage), true, time.Since(start).Seconds())
	for _, w := range warnings {
		o.logger.Warn("stage warning", "stage", stage, "warning", w)
	}
	o.logger.Info("stage completed", "stage", stage, "elapsed", time.Since(start).Round(time.Millisecond))
	return Result{Success: true, Stage: stage, Message: msg, Warnings: warnings}
}

func (o *Orchestrator) stem() string { return fileStem(o.session.ProjectName) }

func (o *Orchestrator) write(name, content string) (string, error) {
	return o.artifacts.Write(name, []byte(content))
}
