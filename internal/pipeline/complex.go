package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/services"
	"binderflow/backend/internal/structure"
	"binderflow/backend/pkg/models"
)

// RankingsFile is the artifact name of the batch ranking table.
const RankingsFile = "confidence_rankings.tsv"

// ComplexOptions are the multimer prediction settings.
type ComplexOptions struct {
	SelectedModels []int `json:"selected_models"`
	Relax          bool  `json:"relax_prediction"`
}

// candidate is one predicted complex and its analysis. It is built without
// touching the session so candidates can be predicted concurrently.
type candidate struct {
	idx      int
	sequence string
	pdb      string
	path     string
	plddt    *float64
	analysis *binding.Analysis
	warnings []string
}

// RunComplexPrediction folds the designed sequence at idx together with the
// target and analyzes the resulting interface.
func (o *Orchestrator) RunComplexPrediction(ctx context.Context, idx int, opts ComplexOptions) Result {
	stage := models.StageComplexPrediction
	seqs := o.session.Binder.DesignedSequences
	if len(seqs) == 0 {
		return o.invalid(stage, "No designed sequences available. Run sequence design first.")
	}
	if idx < 0 || idx >= len(seqs) {
		return o.invalid(stage, fmt.Sprintf("Sequence index %d out of range (0-%d)", idx, len(seqs)-1))
	}
	target := o.targetSequence()
	if target == "" {
		return o.invalid(stage, "No target sequence available")
	}

	return o.runStage(ctx, stage, func(ctx context.Context) (string, []string, error) {
		c, err := o.predictCandidate(ctx, idx, seqs[idx], target, opts)
		if err != nil {
			return "", nil, err
		}
		o.applyCandidate(c)
		o.session.Complex.CandidateRankings = nil
		return fmt.Sprintf("Complex predicted for sequence %d (confidence: %s)", idx+1, o.session.Complex.ConfidenceGrade), c.warnings, nil
	})
}

// RunBatchComplexPrediction predicts complexes for the first n designed
// sequences and ranks the successful ones by confidence, highest first.
// The best candidate becomes the session's complex.
func (o *Orchestrator) RunBatchComplexPrediction(ctx context.Context, n int, opts ComplexOptions) Result {
	stage := models.StageComplexPrediction
	seqs := o.session.Binder.DesignedSequences
	if len(seqs) == 0 {
		return o.invalid(stage, "No designed sequences available. Run sequence design first.")
	}
	if n <= 0 {
		return o.invalid(stage, "Candidate count must be positive")
	}
	n = min(n, len(seqs))
	target := o.targetSequence()
	if target == "" {
		return o.invalid(stage, "No target sequence available")
	}

	return o.runStage(ctx, stage, func(ctx context.Context) (string, []string, error) {
		results := make([]*candidate, n)
		errs := make([]error, n)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Parallelism)
		for i := range n {
			g.Go(func() error {
				c, err := o.predictCandidate(gctx, i, seqs[i], target, opts)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					errs[i] = err
					return nil
				}
				results[i] = c
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", nil, err
		}

		var warnings []string
		var ranked []*candidate
		for i, c := range results {
			if c == nil {
				o.logger.Warn("candidate failed", "candidate", i+1, "error", errs[i])
				warnings = append(warnings, fmt.Sprintf("candidate %d failed: %v", i+1, errs[i]))
				continue
			}
			warnings = append(warnings, c.warnings...)
			ranked = append(ranked, c)
		}
		if len(ranked) == 0 {
			return "", warnings, errors.New("all candidates failed")
		}
		rankCandidates(ranked)

		rankings := make([]models.CandidateRanking, len(ranked))
		for i, c := range ranked {
			rankings[i] = c.ranking()
		}
		if _, err := o.write(RankingsFile, rankingTable(rankings)); err != nil {
			return "", warnings, err
		}

		best := ranked[0]
		o.applyCandidate(best)
		o.session.Complex.CandidateRankings = rankings
		msg := fmt.Sprintf("Predicted %d of %d candidates; best is sequence %d", len(ranked), n, best.idx+1)
		if best.plddt != nil {
			msg += fmt.Sprintf(" (pLDDT %.1f)", *best.plddt)
		}
		return msg, warnings, nil
	})
}

func (o *Orchestrator) predictCandidate(ctx context.Context, idx int, binderSeq, targetSeq string, opts ComplexOptions) (*candidate, error) {
	spec := services.JobSpec{
		Model:          services.ModelAFMultimer,
		Sequences:      []string{binderSeq, targetSeq},
		SelectedModels: opts.SelectedModels,
		Relax:          opts.Relax,
	}
	payload, err := services.AwaitResult(ctx, o.client, spec, o.cfg.StructurePolicy, o.logger)
	if err != nil {
		return nil, err
	}
	pdb := payload.Best()
	atoms := structure.Parse(pdb)
	if len(atoms) == 0 {
		return nil, errors.New("predicted complex has no atom records")
	}
	path, err := o.write(fmt.Sprintf("%s_complex_%d.pdb", o.stem(), idx+1), pdb)
	if err != nil {
		return nil, err
	}

	c := &candidate{idx: idx, sequence: binderSeq, pdb: pdb, path: path}
	if mean, ok := structure.MeanConfidence(atoms); ok {
		c.plddt = &mean
	}
	binder, target, err := binding.SplitComplex(atoms)
	if err != nil {
		c.warnings = append(c.warnings, fmt.Sprintf("sequence %d: interface not analyzed: %v", idx+1, err))
		return c, nil
	}
	a := binding.Analyze(target, binder, o.cfg.InterfaceCutoff)
	c.analysis = &a
	return c, nil
}

// applyCandidate replaces the session's complex with c.
func (o *Orchestrator) applyCandidate(c *candidate) {
	cx := models.ComplexData{
		DockingMethod:   models.DockingMethodMultimer,
		ComplexPDB:      c.pdb,
		ComplexFilePath: c.path,
		PLDDTScore:      c.plddt,
		ConfidenceGrade: binding.ConfidenceGrade(c.plddt),
		MultimerModel:   1,
	}
	if c.analysis != nil {
		applyAnalysis(&cx, *c.analysis)
	}
	o.session.Complex = cx
	o.session.Binder.Sequence = c.sequence
	o.session.Binder.SelectedSequenceIdx = c.idx
}

func applyAnalysis(cx *models.ComplexData, a binding.Analysis) {
	cx.InterfaceResiduesTarget = a.Interface.ResiduesA
	cx.InterfaceResiduesBinder = a.Interface.ResiduesB
	cx.NumContacts = a.Interface.NumContacts
	cx.AvgDistance = a.Interface.AvgDistance
	cx.MinDistance = a.Interface.MinDistance
	cx.MaxDistance = a.Interface.MaxDistance
	cx.BuriedSurfaceArea = a.BuriedSurfaceArea
	cx.QualityScore = a.Quality.Score
	cx.QualityGrade = a.Quality.Grade
	cx.Feedback = a.Quality.Feedback
	cx.Warnings = a.Quality.Warnings
	cx.Recommendation = a.Quality.Recommendation
}

func (c *candidate) ranking() models.CandidateRanking {
	r := models.CandidateRanking{
		SequenceIdx: c.idx,
		Sequence:    c.sequence,
		PLDDTScore:  c.plddt,
		PDBPath:     c.path,
	}
	if c.analysis != nil {
		r.QualityScore = c.analysis.Quality.Score
		r.QualityGrade = c.analysis.Quality.Grade
	}
	return r
}

// rankCandidates orders by confidence descending. Unknown confidence sorts
// last and ties keep candidate order.
func rankCandidates(cs []*candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].plddt, cs[j].plddt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func rankingTable(rankings []models.CandidateRanking) string {
	var b strings.Builder
	b.WriteString("rank\tsequence_idx\tplddt\tquality_score\tquality_grade\tsequence\n")
	for i, r := range rankings {
		score := "NA"
		if r.PLDDTScore != nil {
			score = fmt.Sprintf("%.2f", *r.PLDDTScore)
		}
		fmt.Fprintf(&b, "%d\t%d\t%s\t%d\t%s\t%s\n", i+1, r.SequenceIdx+1, score, r.QualityScore, r.QualityGrade, r.Sequence)
	}
	return b.String()
}
