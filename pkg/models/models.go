// Package models defines the domain models for the binder design service
package models

import "time"

// TargetInputType describes how the target protein was supplied
type TargetInputType string

const (
	TargetInputSequence  TargetInputType = "sequence"
	TargetInputStructure TargetInputType = "pdb_file"
	TargetInputPDBID     TargetInputType = "pdb_id"
)

// DesignMethod records how the binder was obtained
type DesignMethod string

const (
	DesignMethodManual      DesignMethod = "manual"
	DesignMethodRFdiffusion DesignMethod = "rfdiffusion"
	DesignMethodTemplate    DesignMethod = "template"
)

// DockingMethod records how the complex structure was produced
type DockingMethod string

const (
	DockingMethodOverlay  DockingMethod = "overlay"
	DockingMethodMultimer DockingMethod = "alphafold_multimer"
)

// TargetData holds everything known about the target protein
type TargetData struct {
	Sequence            string          `json:"sequence"`
	PDBContent          string          `json:"pdb_content"`
	PDBID               string          `json:"pdb_id"`
	InputType           TargetInputType `json:"input_type"`
	StructurePredicted  bool            `json:"structure_predicted"`
	ModelUsed           string          `json:"model_used"`
	EnsemblePDB         []string        `json:"ensemble_pdb"`
	PLDDTScores         []float64       `json:"plddt_scores"`
	ConfidenceAvg       *float64        `json:"confidence_avg"`
	BindingSiteResidues []int           `json:"binding_site_residues"`
	StructureFilePath   string          `json:"structure_file_path"`
}

// ScaffoldParams captures the scaffold request after validation and correction
type ScaffoldParams struct {
	RequestedContigs string   `json:"requested_contigs"`
	Contigs          string   `json:"contigs"`
	Hotspots         []string `json:"hotspot_res"`
	DiffusionSteps   int      `json:"diffusion_steps"`
	Warnings         []string `json:"warnings"`
}

// BinderData holds the designed (or manually supplied) binder
type BinderData struct {
	Sequence            string          `json:"sequence"`
	PDBContent          string          `json:"pdb_content"`
	DesignMethod        DesignMethod    `json:"design_method"`
	StructurePredicted  bool            `json:"structure_predicted"`
	ModelUsed           string          `json:"model_used"`
	ConfidenceAvg       *float64        `json:"confidence_avg"`
	ScaffoldPDB         string          `json:"scaffold_pdb"`
	ScaffoldFilePath    string          `json:"scaffold_file_path"`
	ScaffoldParams      *ScaffoldParams `json:"rfdiffusion_params"`
	FASTA               string          `json:"mpnn_fasta_content"`
	DesignedSequences   []string        `json:"mpnn_sequences"`
	SequenceScores      []*float64      `json:"mpnn_scores"` // parallel to DesignedSequences, nil where unscored
	SelectedSequenceIdx int             `json:"selected_sequence_idx"`
}

// CandidateRanking is one ranked entry of a batch complex prediction
type CandidateRanking struct {
	SequenceIdx  int      `json:"sequence_idx"`
	Sequence     string   `json:"sequence"`
	PLDDTScore   *float64 `json:"plddt_score"`
	QualityScore int      `json:"quality_score"`
	QualityGrade string   `json:"quality_grade"`
	PDBPath      string   `json:"pdb_path"`
}

// ComplexData holds the complex structure and its interface analysis
type ComplexData struct {
	DockingMethod           DockingMethod      `json:"docking_method"`
	ComplexPDB              string             `json:"complex_pdb"`
	ComplexFilePath         string             `json:"complex_file_path"`
	InterfaceResiduesTarget []int              `json:"interface_residues_target"`
	InterfaceResiduesBinder []int              `json:"interface_residues_binder"`
	NumContacts             int                `json:"num_contacts"`
	AvgDistance             float64            `json:"avg_distance"`
	MinDistance             float64            `json:"min_distance"`
	MaxDistance             float64            `json:"max_distance"`
	BuriedSurfaceArea       float64            `json:"buried_surface_area"`
	BindingAffinity         *float64           `json:"binding_affinity"`
	QualityScore            int                `json:"quality_score"`
	QualityGrade            string             `json:"quality_grade"`
	Feedback                []string           `json:"feedback"`
	Warnings                []string           `json:"warnings"`
	Recommendation          string             `json:"recommendation"`
	PLDDTScore              *float64           `json:"plddt_score"`
	ConfidenceGrade         string             `json:"confidence_grade"`
	MultimerModel           int                `json:"multimer_model_used"`
	CandidateRankings       []CandidateRanking `json:"candidate_rankings"`
}

// SessionSummary is the list view of a stored session
type SessionSummary struct {
	SessionID    string        `json:"session_id"`
	ProjectName  string        `json:"project_name"`
	CurrentStage WorkflowStage `json:"current_stage"`
	CreatedAt    time.Time     `json:"created_at"`
	LastUpdated  time.Time     `json:"last_updated"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
