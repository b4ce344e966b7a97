package pipeline

import (
	"context"
	"errors"
	"fmt"

	"binderflow/backend/internal/services"
	"binderflow/backend/internal/structure"
	"binderflow/backend/pkg/models"
)

// DefaultDiffusionSteps is used when no step count is given.
const DefaultDiffusionSteps = 15

// RunScaffoldDesign generates a binder backbone against the target. Contig
// ranges outside the target are shifted into range and unknown hotspots are
// dropped, each with a warning. Without hotspots, the target's binding site
// residues on its first chain are used.
func (o *Orchestrator) RunScaffoldDesign(ctx context.Context, contigs string, hotspots []string, steps int) Result {
	stage := models.StageBinderScaffold
	if !o.session.HasTargetStructure() {
		return o.invalid(stage, "No target structure available. Run target prediction first.")
	}
	if steps <= 0 {
		steps = DefaultDiffusionSteps
	}

	input := structure.CoordinateRecords(o.session.Target.PDBContent, o.cfg.ScaffoldAtomLimit)
	atoms := structure.Parse(input)
	fixed, warnings, err := FixContigs(contigs, atoms)
	if err != nil {
		return o.invalid(stage, err.Error(), warnings...)
	}
	if len(hotspots) == 0 {
		hotspots = bindingSiteHotspots(o.session.Target.BindingSiteResidues, atoms)
	}
	kept, hotspotWarnings, err := FilterHotspots(hotspots, atoms)
	warnings = append(warnings, hotspotWarnings...)
	if err != nil {
		return o.invalid(stage, err.Error(), warnings...)
	}

	return o.runStage(ctx, stage, func(ctx context.Context) (string, []string, error) {
		spec := services.JobSpec{
			Model:          services.ModelRFdiffusion,
			Structure:      input,
			Contigs:        fixed,
			Hotspots:       kept,
			DiffusionSteps: steps,
		}
		payload, err := services.AwaitResult(ctx, o.client, spec, o.cfg.DesignPolicy, o.logger)
		if err != nil {
			return "", nil, err
		}
		scaffold := payload.Best()
		if len(structure.Parse(scaffold)) == 0 {
			return "", nil, errors.New("scaffold has no atom records")
		}
		path, err := o.write(o.stem()+"_scaffold_RFD.pdb", scaffold)
		if err != nil {
			return "", nil, err
		}

		b := &o.session.Binder
		b.ScaffoldPDB = scaffold
		b.ScaffoldFilePath = path
		b.DesignMethod = models.DesignMethodRFdiffusion
		b.ScaffoldParams = &models.ScaffoldParams{
			RequestedContigs: contigs,
			Contigs:          fixed,
			Hotspots:         kept,
			DiffusionSteps:   steps,
			Warnings:         warnings,
		}
		b.FASTA, b.DesignedSequences, b.SequenceScores = "", nil, nil
		return "Binder scaffold generated with RFdiffusion", nil, nil
	}, warnings...)
}

func bindingSiteHotspots(residues []int, atoms []structure.Atom) []string {
	chains := structure.Chains(atoms)
	if len(residues) == 0 || len(chains) == 0 {
		return nil
	}
	out := make([]string, len(residues))
	for i, r := range residues {
		out[i] = fmt.Sprintf("%s%d", chains[0], r)
	}
	return out
}

// SequenceOptions are the sequence design settings.
type SequenceOptions struct {
	Count        int     `json:"num_sequences"`
	SamplingTemp float64 `json:"sampling_temp"`
	SolubleModel bool    `json:"use_soluble_model"`
}

func (s SequenceOptions) withDefaults() SequenceOptions {
	if s.Count <= 0 {
		s.Count = 10
	}
	if s.SamplingTemp <= 0 {
		s.SamplingTemp = 0.1
	}
	return s
}

// RunSequenceDesign designs sequences for the scaffold. The first returned
// record echoes the input and is discarded; the first designed sequence
// becomes the selected binder.
func (o *Orchestrator) RunSequenceDesign(ctx context.Context, opts SequenceOptions) Result {
	stage := models.StageBinderSequence
	if o.session.Binder.ScaffoldPDB == "" {
		return o.invalid(stage, "No binder scaffold available. Run scaffold design first.")
	}
	opts = opts.withDefaults()

	return o.runStage(ctx, stage, func(ctx context.Context) (string, []string, error) {
		spec := services.JobSpec{
			Model:        services.ModelProteinMPNN,
			Structure:    structure.CoordinateRecords(o.session.Binder.ScaffoldPDB, o.cfg.ScaffoldAtomLimit),
			Chains:       []string{"A"},
			NumSequences: opts.Count,
			SamplingTemp: opts.SamplingTemp,
			SolubleModel: opts.SolubleModel,
		}
		payload, err := services.AwaitResult(ctx, o.client, spec, o.cfg.DesignPolicy, o.logger)
		if err != nil {
			return "", nil, err
		}

		records := ParseFasta(payload.Text)
		if len(records) > 1 {
			records = records[1:]
		}
		var sequences []string
		var scores []*float64
		for _, r := range records {
			if r.Sequence == "" {
				continue
			}
			sequences = append(sequences, r.Sequence)
			scores = append(scores, r.Score)
		}
		if len(sequences) == 0 {
			return "", nil, errors.New("no sequences returned")
		}
		if _, err := o.write(o.stem()+"_sequences_MPNN.fa", payload.Text); err != nil {
			return "", nil, err
		}

		b := &o.session.Binder
		b.FASTA = payload.Text
		b.DesignedSequences = sequences
		b.SequenceScores = scores
		b.Sequence = sequences[0]
		b.SelectedSequenceIdx = 0
		return fmt.Sprintf("Generated %d binder sequences", len(sequences)), nil, nil
	})
}
