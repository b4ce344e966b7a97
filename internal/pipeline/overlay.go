package pipeline

import (
	"context"
	"errors"
	"fmt"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/structure"
	"binderflow/backend/pkg/models"
)

// RunOverlayAnalysis places the binder structure next to the target without a
// complex model and scores the interface the two form as given.
func (o *Orchestrator) RunOverlayAnalysis(ctx context.Context) Result {
	stage := models.StageComplexPrediction
	if !o.session.HasTargetStructure() {
		return o.invalid(stage, "No target structure available")
	}
	binderPDB := o.session.Binder.PDBContent
	if binderPDB == "" {
		binderPDB = o.session.Binder.ScaffoldPDB
	}
	if binderPDB == "" {
		return o.invalid(stage, "No binder structure available")
	}

	return o.runStage(ctx, stage, func(ctx context.Context) (string, []string, error) {
		target := structure.Parse(o.session.Target.PDBContent)
		binder := structure.Parse(binderPDB)
		if len(target) == 0 || len(binder) == 0 {
			return "", nil, errors.New("structures have no atom records")
		}
		combined := binding.CombineStructures(o.session.Target.PDBContent, binderPDB, "A", "B")
		path, err := o.write(o.stem()+"_complex_overlay.pdb", combined)
		if err != nil {
			return "", nil, err
		}

		a := binding.Analyze(target, binder, o.cfg.InterfaceCutoff)
		cx := models.ComplexData{
			DockingMethod:   models.DockingMethodOverlay,
			ComplexPDB:      combined,
			ComplexFilePath: path,
			ConfidenceGrade: binding.ConfidenceGrade(nil),
		}
		applyAnalysis(&cx, a)
		o.session.Complex = cx
		return fmt.Sprintf("Overlay analysis complete: %d contacts, grade %s", a.Interface.NumContacts, a.Quality.Grade), a.Quality.Warnings, nil
	})
}
