package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkflowStage is one step of the binder design pipeline. Stages are ordered.
type WorkflowStage string

const (
	StageTargetInput       WorkflowStage = "target_input"
	StageTargetStructure   WorkflowStage = "target_structure"
	StageBinderScaffold    WorkflowStage = "binder_scaffold"
	StageBinderSequence    WorkflowStage = "binder_sequence"
	StageComplexPrediction WorkflowStage = "complex_prediction"
	StageResults           WorkflowStage = "results"
)

// Stages lists every workflow stage in pipeline order.
var Stages = []WorkflowStage{
	StageTargetInput,
	StageTargetStructure,
	StageBinderScaffold,
	StageBinderSequence,
	StageComplexPrediction,
	StageResults,
}

// Index returns the position of the stage in pipeline order, or -1.
func (s WorkflowStage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s WorkflowStage) Valid() bool { return s.Index() >= 0 }

// Next returns the stage that follows s.
func (s WorkflowStage) Next() (WorkflowStage, bool) {
	i := s.Index()
	if i < 0 || i == len(Stages)-1 {
		return "", false
	}
	return Stages[i+1], true
}

// ParseStage converts a string into a WorkflowStage.
func ParseStage(v string) (WorkflowStage, error) {
	s := WorkflowStage(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown workflow stage %q", v)
	}
	return s, nil
}

// StageStatus is the progress marker of a single stage
type StageStatus string

const (
	StatusNotStarted StageStatus = "not_started"
	StatusInProgress StageStatus = "in_progress"
	StatusCompleted  StageStatus = "completed"
	StatusFailed     StageStatus = "failed"
)

// Valid reports whether s is a known status.
func (s StageStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// ErrStageGated is returned when a stage precondition does not hold.
var ErrStageGated = errors.New("stage precondition not met")

// ErrInvalidTransition is returned for status changes the state machine forbids.
var ErrInvalidTransition = errors.New("invalid stage status transition")

// GateError carries the human-readable reason a stage cannot be entered.
type GateError struct {
	Stage  WorkflowStage
	Reason string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("cannot enter stage %s: %s", e.Stage, e.Reason)
}

func (e *GateError) Unwrap() error { return ErrStageGated }

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// WorkflowSession is the complete state of one binder design project.
// SessionID, ProjectName and CreatedAt never change after creation.
type WorkflowSession struct {
	SessionID     string                        `json:"session_id"`
	TenantID      string                        `json:"tenant_id"`
	ProjectName   string                        `json:"project_name"`
	CreatedAt     time.Time                     `json:"created_at"`
	LastUpdated   time.Time                     `json:"last_updated"`
	CurrentStage  WorkflowStage                 `json:"current_stage"`
	StageStatuses map[WorkflowStage]StageStatus `json:"stage_statuses"`
	Target        TargetData                    `json:"target"`
	Binder        BinderData                    `json:"binder"`
	Complex       ComplexData                   `json:"complex"`
	Notes         string                        `json:"notes"`
}

// NewSession creates a session positioned at the target input stage.
func NewSession(projectName string) *WorkflowSession {
	if projectName == "" {
		projectName = "Untitled Project"
	}
	ts := now()
	s := &WorkflowSession{
		SessionID:    uuid.New().String(),
		ProjectName:  projectName,
		CreatedAt:    ts,
		LastUpdated:  ts,
		CurrentStage: StageTargetInput,
		Target:       TargetData{InputType: TargetInputSequence},
		Binder:       BinderData{DesignMethod: DesignMethodManual},
		Complex:      ComplexData{DockingMethod: DockingMethodOverlay, QualityGrade: "N/A"},
	}
	s.ensureStatuses()
	return s
}

func (s *WorkflowSession) ensureStatuses() {
	if s.StageStatuses == nil {
		s.StageStatuses = make(map[WorkflowStage]StageStatus, len(Stages))
	}
	for _, st := range Stages {
		if _, ok := s.StageStatuses[st]; !ok {
			s.StageStatuses[st] = StatusNotStarted
		}
	}
}

// StatusOf returns the status recorded for stage.
func (s *WorkflowSession) StatusOf(stage WorkflowStage) StageStatus {
	if st, ok := s.StageStatuses[stage]; ok {
		return st
	}
	return StatusNotStarted
}

// HasTargetInput reports whether any form of target input exists.
func (s *WorkflowSession) HasTargetInput() bool {
	return s.Target.Sequence != "" || s.Target.PDBContent != "" || s.Target.PDBID != ""
}

// HasTargetStructure reports whether a target structure is available.
func (s *WorkflowSession) HasTargetStructure() bool {
	return s.Target.PDBContent != ""
}

// HasBinder reports whether a binder structure, scaffold or sequence is available.
func (s *WorkflowSession) HasBinder() bool {
	return s.Binder.PDBContent != "" || s.Binder.ScaffoldPDB != "" || s.Binder.Sequence != ""
}

// CanAdvanceTo checks the precondition of stage. It never mutates the session.
func (s *WorkflowSession) CanAdvanceTo(stage WorkflowStage) (bool, string) {
	switch stage {
	case StageTargetInput:
		return true, "Starting workflow"
	case StageTargetStructure:
		if s.HasTargetInput() {
			return true, "Target input provided"
		}
		return false, "No target protein input provided"
	case StageBinderScaffold:
		if s.HasTargetStructure() {
			return true, "Target structure available"
		}
		return false, "Target structure not available"
	case StageBinderSequence:
		if s.Binder.ScaffoldPDB != "" || s.Binder.PDBContent != "" {
			return true, "Binder scaffold available"
		}
		return false, "No binder scaffold available"
	case StageComplexPrediction:
		if s.HasTargetStructure() && s.HasBinder() {
			return true, "Target structure and binder available"
		}
		return false, "Both a target structure and a binder structure or sequence are required"
	case StageResults:
		if s.Complex.ComplexPDB != "" || s.Complex.NumContacts > 0 {
			return true, "Analysis complete"
		}
		return false, "Complex analysis not completed"
	}
	return false, "Unknown stage"
}

// AdvanceToStage makes stage current and marks it in progress. On a failed
// precondition the session is left untouched.
func (s *WorkflowSession) AdvanceToStage(stage WorkflowStage) error {
	if ok, reason := s.CanAdvanceTo(stage); !ok {
		return &GateError{Stage: stage, Reason: reason}
	}
	prev := s.CurrentStage
	s.CurrentStage = stage
	if err := s.UpdateStageStatus(stage, StatusInProgress); err != nil {
		s.CurrentStage = prev
		return err
	}
	return nil
}

// UpdateStageStatus sets the status of stage and refreshes LastUpdated.
// Entering in_progress is gated by CanAdvanceTo, and completed is only
// reachable from in_progress.
func (s *WorkflowSession) UpdateStageStatus(stage WorkflowStage, status StageStatus) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown workflow stage %q", stage)
	}
	if !status.Valid() {
		return fmt.Errorf("unknown stage status %q", status)
	}
	switch status {
	case StatusInProgress:
		if ok, reason := s.CanAdvanceTo(stage); !ok {
			return &GateError{Stage: stage, Reason: reason}
		}
	case StatusCompleted:
		cur := s.StatusOf(stage)
		if cur != StatusInProgress && cur != StatusCompleted {
			return fmt.Errorf("%w: %s is %s, must be in progress before completing", ErrInvalidTransition, stage, cur)
		}
	}
	s.ensureStatuses()
	s.StageStatuses[stage] = status
	s.LastUpdated = now()
	return nil
}

// CompletedStages returns the completed stages in pipeline order.
func (s *WorkflowSession) CompletedStages() []WorkflowStage {
	var out []WorkflowStage
	for _, st := range Stages {
		if s.StatusOf(st) == StatusCompleted {
			out = append(out, st)
		}
	}
	return out
}

// Summary returns the list view of the session.
func (s *WorkflowSession) Summary() SessionSummary {
	return SessionSummary{
		SessionID:    s.SessionID,
		ProjectName:  s.ProjectName,
		CurrentStage: s.CurrentStage,
		CreatedAt:    s.CreatedAt,
		LastUpdated:  s.LastUpdated,
	}
}
