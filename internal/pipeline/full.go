package pipeline

import (
	"context"
	"fmt"
	"strings"

	"binderflow/backend/pkg/models"
)

// FullOptions configures RunFullPipeline.
type FullOptions struct {
	Model      TargetModel     `json:"model"`
	Target     TargetOptions   `json:"target"`
	Contigs    string          `json:"contigs"`
	Hotspots   []string        `json:"hotspot_res"`
	Steps      int             `json:"diffusion_steps"`
	Sequence   SequenceOptions `json:"sequence"`
	Candidates int             `json:"candidates"`
	Complex    ComplexOptions  `json:"complex"`
}

// RunFullPipeline runs target prediction, scaffold design, sequence design
// and complex prediction in order, stopping at the first failing step.
// Target prediction is skipped when a target structure already exists.
func (o *Orchestrator) RunFullPipeline(ctx context.Context, opts FullOptions) Result {
	steps := []func() Result{
		func() Result {
			if o.session.HasTargetStructure() {
				return Result{Success: true, Stage: models.StageTargetStructure, Message: "Target structure already available"}
			}
			return o.RunTargetPrediction(ctx, opts.Model, opts.Target)
		},
		func() Result { return o.RunScaffoldDesign(ctx, opts.Contigs, opts.Hotspots, opts.Steps) },
		func() Result { return o.RunSequenceDesign(ctx, opts.Sequence) },
		func() Result {
			if opts.Candidates > 1 {
				return o.RunBatchComplexPrediction(ctx, opts.Candidates, opts.Complex)
			}
			return o.RunComplexPrediction(ctx, 0, opts.Complex)
		},
	}

	var warnings, messages []string
	var last Result
	for i, step := range steps {
		last = step()
		warnings = append(warnings, last.Warnings...)
		if !last.Success {
			return Result{
				Stage:    last.Stage,
				Message:  fmt.Sprintf("Pipeline failed at step %d: %s", i+1, last.Message),
				Warnings: warnings,
			}
		}
		messages = append(messages, last.Message)
	}
	return Result{
		Success:  true,
		Stage:    last.Stage,
		Message:  "Pipeline completed: " + strings.Join(messages, "; "),
		Warnings: warnings,
	}
}

// Summary is a snapshot of pipeline progress.
type Summary struct {
	SessionID          string                                      `json:"session_id"`
	ProjectName        string                                      `json:"project_name"`
	CurrentStage       models.WorkflowStage                        `json:"current_stage"`
	StageStatuses      map[models.WorkflowStage]models.StageStatus `json:"stage_statuses"`
	HasTargetStructure bool                                        `json:"has_target_structure"`
	HasScaffold        bool                                        `json:"has_scaffold"`
	HasComplex         bool                                        `json:"has_complex"`
	DesignedSequences  int                                         `json:"num_designed_sequences"`
	TargetConfidence   *float64                                    `json:"target_plddt"`
	ComplexConfidence  *float64                                    `json:"complex_plddt"`
	QualityGrade       string                                      `json:"quality_grade,omitempty"`
	OutputLocation     string                                      `json:"output_location"`
}

// Summary reports the session's progress and where artifacts are written.
func (o *Orchestrator) Summary() Summary {
	s := o.session
	statuses := make(map[models.WorkflowStage]models.StageStatus, len(models.Stages))
	for _, st := range models.Stages {
		statuses[st] = s.StatusOf(st)
	}
	return Summary{
		SessionID:          s.SessionID,
		ProjectName:        s.ProjectName,
		CurrentStage:       s.CurrentStage,
		StageStatuses:      statuses,
		HasTargetStructure: s.HasTargetStructure(),
		HasScaffold:        s.Binder.ScaffoldPDB != "",
		HasComplex:         s.Complex.ComplexPDB != "",
		DesignedSequences:  len(s.Binder.DesignedSequences),
		TargetConfidence:   s.Target.ConfidenceAvg,
		ComplexConfidence:  s.Complex.PLDDTScore,
		QualityGrade:       s.Complex.QualityGrade,
		OutputLocation:     o.artifacts.Location(),
	}
}
