package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"binderflow/backend/internal/pipeline"
	"binderflow/backend/internal/services"
	"binderflow/backend/pkg/models"
)

var runFlags struct {
	project      string
	sequence     string
	targetPDB    string
	pdbID        string
	bindingSite  []int
	model        string
	algorithm    string
	contigs      string
	hotspots     []string
	steps        int
	numSequences int
	samplingTemp float64
	soluble      bool
	candidates   int
	relax        bool
	outputDir    string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full binder design pipeline for a new session",
	Long: `Run creates a session from the target input and runs target structure
prediction, scaffold design, sequence design and complex prediction in order.
The session is stored whether or not the pipeline succeeds.

Usage:
  binderctl run --project il7r --sequence MKTAYIAKQR... --contigs "A1-100/0 60-80"
  binderctl run --project il7r --target-pdb target.pdb --hotspots A45,A47 --candidates 5
  binderctl run --project il7r --sequence target.fasta --model OF3`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.project, "project", "p", "", "Project name (required)")
	f.StringVar(&runFlags.sequence, "sequence", "", "Target sequence, or a path to a FASTA file")
	f.StringVar(&runFlags.targetPDB, "target-pdb", "", "Path to a target structure; skips target prediction")
	f.StringVar(&runFlags.pdbID, "pdb-id", "", "Four-character structure identifier for the target")
	f.IntSliceVar(&runFlags.bindingSite, "binding-site", nil, "Target residue numbers used as hotspots when --hotspots is empty")
	f.StringVar(&runFlags.model, "model", "AF2", "Target structure model: AF2 (AlphaFold2) or OF3 (OpenFold3)")
	f.StringVar(&runFlags.algorithm, "msa-algorithm", "", "MSA search algorithm for target prediction")
	f.StringVar(&runFlags.contigs, "contigs", "", "Scaffold contigs, e.g. \"A1-100/0 60-80\"")
	f.StringSliceVar(&runFlags.hotspots, "hotspots", nil, "Hotspot residues, e.g. A45,A47")
	f.IntVar(&runFlags.steps, "diffusion-steps", pipeline.DefaultDiffusionSteps, "Scaffold diffusion steps")
	f.IntVar(&runFlags.numSequences, "num-sequences", 10, "Sequences to design")
	f.Float64Var(&runFlags.samplingTemp, "sampling-temp", 0.1, "Sequence sampling temperature")
	f.BoolVar(&runFlags.soluble, "soluble", false, "Use the soluble sequence design model")
	f.IntVar(&runFlags.candidates, "candidates", 1, "Designed sequences to predict as complexes and rank")
	f.BoolVar(&runFlags.relax, "relax", false, "Relax predicted complexes")
	f.StringVarP(&runFlags.outputDir, "output", "o", "", "Artifact base directory (default: server.output_dir)")
	_ = runCmd.MarkFlagRequired("project")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	model, err := pipeline.ParseTargetModel(runFlags.model)
	if err != nil {
		return err
	}
	input, err := targetInput()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	sessions := services.NewSessionService(repo)

	ws, err := sessions.Create(ctx, runFlags.project)
	if err != nil {
		return err
	}
	if err := ws.SetTargetInput(input); err != nil {
		return err
	}

	base := runFlags.outputDir
	if base == "" {
		base = cfg.Server.OutputDir
	}
	art, err := pipeline.NewFSArtifacts(fs, pipeline.DefaultOutputDir(base, ws.ProjectName))
	if err != nil {
		return err
	}
	client := services.NewNIMClient(cfg.Prediction.Endpoints, cfg.Prediction.APIKey, cfg.Prediction.Timeout)
	o := pipeline.NewOrchestrator(ws, client, art, cfg.Pipeline, logger)

	logger.Info("Running pipeline", "session_id", ws.SessionID, "project", ws.ProjectName, "output", art.Location())
	result := o.RunFullPipeline(ctx, pipeline.FullOptions{
		Model:    model,
		Target:   pipeline.TargetOptions{Algorithm: runFlags.algorithm},
		Contigs:  runFlags.contigs,
		Hotspots: runFlags.hotspots,
		Steps:    runFlags.steps,
		Sequence: pipeline.SequenceOptions{
			Count:        runFlags.numSequences,
			SamplingTemp: runFlags.samplingTemp,
			SolubleModel: runFlags.soluble,
		},
		Candidates: runFlags.candidates,
		Complex:    pipeline.ComplexOptions{Relax: runFlags.relax},
	})

	// Persist even when the run was interrupted.
	if err := sessions.Save(context.WithoutCancel(ctx), ws); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if err := printJSON(cmd.OutOrStdout(), struct {
		Result  pipeline.Result  `json:"result"`
		Summary pipeline.Summary `json:"summary"`
	}{result, o.Summary()}); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}
	return nil
}

// targetInput builds the target from the flags. A --sequence value naming
// an existing file is read as FASTA and its first record is used.
func targetInput() (models.TargetInput, error) {
	var in models.TargetInput
	if runFlags.targetPDB != "" {
		text, err := readText(runFlags.targetPDB)
		if err != nil {
			return in, err
		}
		in.PDBContent = text
	}
	in.PDBID = runFlags.pdbID
	in.BindingSiteResidues = runFlags.bindingSite

	seq := runFlags.sequence
	if seq != "" && !looksLikeSequence(seq) {
		text, err := readText(seq)
		if err != nil {
			return in, err
		}
		records := pipeline.ParseFasta(text)
		if len(records) == 0 {
			return in, fmt.Errorf("%s contains no FASTA records", seq)
		}
		seq = records[0].Sequence
	}
	in.Sequence = seq

	if in.Sequence == "" && in.PDBContent == "" && in.PDBID == "" {
		return in, fmt.Errorf("one of --sequence, --target-pdb or --pdb-id is required")
	}
	return in, nil
}

func looksLikeSequence(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < 'A' || r > 'Z' }) < 0
}
