package models

import "strings"

// TargetInput is the caller-supplied description of the target protein.
// Exactly one of the fields is normally set; a structure may accompany a sequence.
type TargetInput struct {
	Sequence   string `json:"sequence"`
	PDBContent string `json:"pdb_content"`
	PDBID      string `json:"pdb_id"`

	// BindingSiteResidues are 1-based target residue numbers to aim the binder at.
	BindingSiteResidues []int `json:"binding_site_residues"`
}

// SetTargetInput validates and stores the target input, completes the target
// input stage and moves the session to the target structure stage. When a
// structure is supplied the target structure stage is completed as well.
func (s *WorkflowSession) SetTargetInput(in TargetInput) error {
	var target TargetData
	switch {
	case in.PDBContent != "":
		if _, err := ValidateStructureText(in.PDBContent); err != nil {
			return err
		}
		target.PDBContent = in.PDBContent
		target.InputType = TargetInputStructure
	case in.PDBID != "":
		id := strings.ToUpper(strings.TrimSpace(in.PDBID))
		if len(id) != 4 {
			return &ValidationError{Field: "pdb_id", Reason: "structure identifiers are four characters"}
		}
		target.PDBID = id
		target.InputType = TargetInputPDBID
	case in.Sequence == "":
		return &ValidationError{Field: "target", Reason: "a sequence, structure or structure id is required"}
	default:
		target.InputType = TargetInputSequence
	}
	if in.Sequence != "" {
		seq, err := ValidateSequence(in.Sequence)
		if err != nil {
			return err
		}
		target.Sequence = seq
	}
	if len(in.BindingSiteResidues) > 0 {
		limit := MaxSequenceLength
		if target.Sequence != "" {
			limit = len(target.Sequence)
		}
		if err := ValidateBindingSiteResidues(in.BindingSiteResidues, limit); err != nil {
			return err
		}
		target.BindingSiteResidues = append([]int(nil), in.BindingSiteResidues...)
	}

	s.Target = target
	if err := s.UpdateStageStatus(StageTargetInput, StatusInProgress); err != nil {
		return err
	}
	if err := s.UpdateStageStatus(StageTargetInput, StatusCompleted); err != nil {
		return err
	}
	if err := s.AdvanceToStage(StageTargetStructure); err != nil {
		return err
	}
	if target.PDBContent == "" {
		return nil
	}
	if err := s.UpdateStageStatus(StageTargetStructure, StatusCompleted); err != nil {
		return err
	}
	return s.AdvanceToStage(StageBinderScaffold)
}

// BinderInput is a manually supplied binder.
type BinderInput struct {
	Sequence   string `json:"sequence"`
	PDBContent string `json:"pdb_content"`
}

// SetBinderInput stores a manual binder without touching stage statuses.
func (s *WorkflowSession) SetBinderInput(in BinderInput) error {
	if in.Sequence == "" && in.PDBContent == "" {
		return &ValidationError{Field: "binder", Reason: "a sequence or structure is required"}
	}
	if in.PDBContent != "" {
		if _, err := ValidateStructureText(in.PDBContent); err != nil {
			return err
		}
	}
	if in.Sequence != "" {
		seq, err := ValidateSequence(in.Sequence)
		if err != nil {
			return err
		}
		in.Sequence = seq
	}
	s.Binder.Sequence = in.Sequence
	s.Binder.PDBContent = in.PDBContent
	s.Binder.DesignMethod = DesignMethodManual
	s.LastUpdated = now()
	return nil
}
