package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"binderflow/backend/internal/services"
	"binderflow/backend/internal/structure"
	"binderflow/backend/pkg/models"
)

// TargetModel selects the structure prediction model for the target.
type TargetModel string

const (
	TargetModelAF2 TargetModel = "AF2"
	TargetModelOF3 TargetModel = "OF3"
)

// ParseTargetModel accepts "AF2"/"OF3" in any case.
func ParseTargetModel(v string) (TargetModel, error) {
	switch m := TargetModel(strings.ToUpper(strings.TrimSpace(v))); m {
	case TargetModelAF2, TargetModelOF3:
		return m, nil
	case "":
		return TargetModelAF2, nil
	default:
		return "", fmt.Errorf("unknown model: %s", v)
	}
}

func (m TargetModel) service() services.Model {
	if m == TargetModelOF3 {
		return services.ModelOpenFold3
	}
	return services.ModelAlphaFold2
}

// TargetOptions are the structure prediction settings.
type TargetOptions struct {
	// Algorithm is the MSA search used by AF2: "mmseqs2" or "jackhmmer".
	Algorithm string `json:"algorithm"`
}

// RunTargetPrediction predicts the target structure from its sequence. When
// the model returns an ensemble, the top-ranked structure becomes canonical
// and the whole ensemble is kept alongside.
func (o *Orchestrator) RunTargetPrediction(ctx context.Context, model TargetModel, opts TargetOptions) Result {
	stage := models.StageTargetStructure
	if o.session.Target.Sequence == "" {
		return o.invalid(stage, "No target sequence provided")
	}
	if model == "" {
		model = TargetModelAF2
	}
	if model != TargetModelAF2 && model != TargetModelOF3 {
		return o.invalid(stage, fmt.Sprintf("Unknown model: %s", model))
	}

	return o.runStage(ctx, stage, func(ctx context.Context) (string, []string, error) {
		spec := services.JobSpec{
			Model:     model.service(),
			RequestID: o.stem(),
			Sequence:  o.session.Target.Sequence,
			Algorithm: opts.Algorithm,
		}
		payload, err := services.AwaitResult(ctx, o.client, spec, o.cfg.StructurePolicy, o.logger)
		if err != nil {
			return "", nil, err
		}
		best := payload.Best()
		atoms := structure.Parse(best)
		if len(atoms) == 0 {
			return "", nil, errors.New("predicted structure has no atom records")
		}

		path, err := o.write(fmt.Sprintf("%s_target_%s.pdb", o.stem(), model), best)
		if err != nil {
			return "", nil, err
		}
		var ensemble []string
		if len(payload.Structures) > 1 {
			ensemble = payload.Structures
			if _, err := o.write(fmt.Sprintf("%s_target_%s_all.pdb", o.stem(), model), strings.Join(ensemble, "\n")); err != nil {
				return "", nil, err
			}
		}

		var warnings []string
		t := &o.session.Target
		t.PDBContent = best
		t.EnsemblePDB = ensemble
		t.ModelUsed = string(model)
		t.StructurePredicted = true
		t.StructureFilePath = path
		t.PLDDTScores, t.ConfidenceAvg = nil, nil
		if mean, ok := structure.MeanConfidence(atoms); ok {
			t.PLDDTScores = structure.ResidueConfidences(atoms)
			t.ConfidenceAvg = &mean
		} else {
			warnings = append(warnings, "predicted structure carries no plausible per-residue confidence")
		}

		msg := fmt.Sprintf("Target structure predicted with %s", model)
		if len(ensemble) > 1 {
			msg += fmt.Sprintf(" (best of %d)", len(ensemble))
		}
		return msg, warnings, nil
	})
}

// targetSequence returns the target's sequence, deriving it from the target
// structure when only a structure was provided.
func (o *Orchestrator) targetSequence() string {
	if o.session.Target.Sequence != "" {
		return o.session.Target.Sequence
	}
	if o.session.Target.PDBContent == "" {
		return ""
	}
	return structure.ExtractSequence(structure.Parse(o.session.Target.PDBContent))
}
