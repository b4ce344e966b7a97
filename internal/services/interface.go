package services

import "context"

// Model identifies an external prediction model.
type Model string

const (
	ModelAlphaFold2  Model = "alphafold2"
	ModelOpenFold3   Model = "openfold3"
	ModelRFdiffusion Model = "rfdiffusion"
	ModelProteinMPNN Model = "proteinmpnn"
	ModelAFMultimer  Model = "alphafold2-multimer"
)

// PredictionClient talks to a long-running job API.
type PredictionClient interface {
	// Submit starts a job. The result is either the finished payload or an
	// accepted handle to poll.
	Submit(ctx context.Context, spec JobSpec) (SubmitResult, error)
	// Poll checks a job once. A returned error is transient and may be retried;
	// a service-side failure is reported as PollFailed.
	Poll(ctx context.Context, handle JobHandle) (PollResult, error)
	// Fetch returns the payload of a completed job whose poll result did not
	// carry it.
	Fetch(ctx context.Context, handle JobHandle) (Payload, error)
}

// JobSpec describes one job. Model selects which fields are sent.
type JobSpec struct {
	Model Model
	// RequestID names the job where the model accepts one.
	RequestID string
	// Sequence is the single input chain for structure prediction.
	Sequence string
	// Sequences are the chains of a multimer prediction.
	Sequences []string
	// Structure is the input coordinate text for design models.
	Structure string

	Algorithm      string
	Contigs        string
	Hotspots       []string
	DiffusionSteps int
	Chains         []string
	NumSequences   int
	SamplingTemp   float64
	SolubleModel   bool
	SelectedModels []int
	Relax          bool
}

// Payload is what a finished job produced. Structure-producing models fill
// Structures, best ranked first; sequence design fills Text.
type Payload struct {
	Structures []string
	Text       string
}

// Best returns the top-ranked structure.
func (p Payload) Best() string {
	if len(p.Structures) == 0 {
		return ""
	}
	return p.Structures[0]
}

// SubmitKind tags the variant held by a SubmitResult.
type SubmitKind int

const (
	// SubmitImmediate carries a single finished result.
	SubmitImmediate SubmitKind = iota
	// SubmitEnsemble carries several ranked structures.
	SubmitEnsemble
	// SubmitAccepted carries a handle; the result must be polled.
	SubmitAccepted
)

func (k SubmitKind) String() string {
	switch k {
	case SubmitImmediate:
		return "immediate"
	case SubmitEnsemble:
		return "ensemble"
	case SubmitAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// SubmitResult is Immediate(payload), Ensemble(payloads) or Accepted(handle).
type SubmitResult struct {
	Kind    SubmitKind
	Payload Payload
	Handle  JobHandle
}

// Immediate wraps a finished payload, tagging it as an ensemble when it holds
// more than one structure.
func Immediate(p Payload) SubmitResult {
	if len(p.Structures) > 1 {
		return SubmitResult{Kind: SubmitEnsemble, Payload: p}
	}
	return SubmitResult{Kind: SubmitImmediate, Payload: p}
}

// Accepted wraps a handle for a job still running.
func Accepted(h JobHandle) SubmitResult {
	return SubmitResult{Kind: SubmitAccepted, Handle: h}
}

// JobHandle identifies an accepted job. It lives only as long as the
// orchestration call that submitted it.
type JobHandle struct {
	ID       string
	Endpoint string
	Model    Model
}

// PollState is the outcome of one poll.
type PollState int

const (
	PollPending PollState = iota
	PollCompleted
	PollFailed
)

// PollResult is Pending, Completed(payload) or Failed(message). Completed
// may leave Payload nil, in which case Fetch returns it.
type PollResult struct {
	State   PollState
	Payload *Payload
	Message string
}
