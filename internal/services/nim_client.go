package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// RequestIDHeader carries the job id of an accepted request.
const RequestIDHeader = "NVCF-REQID"

const maxErrorBody = 512

// Endpoints holds the URL of each model and of the job status service.
type Endpoints struct {
	AlphaFold2  string `mapstructure:"alphafold2"`
	OpenFold3   string `mapstructure:"openfold3"`
	RFdiffusion string `mapstructure:"rfdiffusion"`
	ProteinMPNN string `mapstructure:"proteinmpnn"`
	Multimer    string `mapstructure:"multimer"`
	Status      string `mapstructure:"status"`
}

// DefaultEndpoints returns the hosted biology endpoints.
func DefaultEndpoints() Endpoints {
	const base = "https://health.api.nvidia.com/v1"
	return Endpoints{
		AlphaFold2:  base + "/biology/deepmind/alphafold2",
		OpenFold3:   base + "/biology/openfold/openfold3/predict",
		RFdiffusion: base + "/biology/ipd/rfdiffusion/generate",
		ProteinMPNN: base + "/biology/ipd/proteinmpnn/predict",
		Multimer:    base + "/biology/deepmind/alphafold2-multimer",
		Status:      base + "/status",
	}
}

func (e Endpoints) forModel(m Model) (string, error) {
	var url string
	switch m {
	case ModelAlphaFold2:
		url = e.AlphaFold2
	case ModelOpenFold3:
		url = e.OpenFold3
	case ModelRFdiffusion:
		url = e.RFdiffusion
	case ModelProteinMPNN:
		url = e.ProteinMPNN
	case ModelAFMultimer:
		url = e.Multimer
	default:
		return "", fmt.Errorf("unknown model %q", m)
	}
	if url == "" {
		return "", fmt.Errorf("no endpoint configured for %s", m)
	}
	return url, nil
}

// NIMClient is an HTTP implementation of the PredictionClient interface.
type NIMClient struct {
	endpoints Endpoints
	apiKey    string
	http      *http.Client
}

// NewNIMClient creates a new NIMClient. Each request is bounded by timeout.
func NewNIMClient(endpoints Endpoints, apiKey string, timeout time.Duration) *NIMClient {
	return &NIMClient{
		endpoints: endpoints,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// Submit posts a job to the model's endpoint.
func (c *NIMClient) Submit(ctx context.Context, spec JobSpec) (SubmitResult, error) {
	url, err := c.endpoints.forModel(spec.Model)
	if err != nil {
		return SubmitResult{}, err
	}
	requestBody, err := json.Marshal(requestFor(spec))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		payload, err := decodePayload(spec.Model, body)
		if err != nil {
			return SubmitResult{}, &ServiceError{Model: spec.Model, StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return Immediate(payload), nil
	case http.StatusAccepted:
		id := resp.Header.Get(RequestIDHeader)
		if id == "" {
			return SubmitResult{}, &ServiceError{Model: spec.Model, StatusCode: resp.StatusCode, Message: "no request id in accepted response"}
		}
		return Accepted(JobHandle{ID: id, Endpoint: c.endpoints.Status, Model: spec.Model}), nil
	default:
		return SubmitResult{}, &ServiceError{Model: spec.Model, StatusCode: resp.StatusCode, Message: truncate(body)}
	}
}

// Poll queries the status endpoint once.
func (c *NIMClient) Poll(ctx context.Context, handle JobHandle) (PollResult, error) {
	endpoint := handle.Endpoint
	if endpoint == "" {
		endpoint = c.endpoints.Status
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+"/"+handle.ID, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to poll %s: %w", handle.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to read poll response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		payload, err := decodePayload(handle.Model, body)
		if err != nil {
			return PollResult{State: PollFailed, Message: err.Error()}, nil
		}
		return PollResult{State: PollCompleted, Payload: &payload}, nil
	case http.StatusAccepted:
		return PollResult{State: PollPending}, nil
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return PollResult{}, fmt.Errorf("transient poll status %d", resp.StatusCode)
	default:
		return PollResult{State: PollFailed, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(body))}, nil
	}
}

// Fetch re-reads the status endpoint and returns the completed payload.
func (c *NIMClient) Fetch(ctx context.Context, handle JobHandle) (Payload, error) {
	res, err := c.Poll(ctx, handle)
	if err != nil {
		return Payload{}, err
	}
	if res.State != PollCompleted || res.Payload == nil {
		return Payload{}, fmt.Errorf("job %s has no result yet", handle.ID)
	}
	return *res.Payload, nil
}

func (c *NIMClient) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

type alphaFoldRequest struct {
	Sequence  string `json:"sequence"`
	Algorithm string `json:"algorithm"`
}

type openFoldRequest struct {
	RequestID string          `json:"request_id"`
	Inputs    []openFoldInput `json:"inputs"`
}

type openFoldInput struct {
	InputID      string             `json:"input_id"`
	Molecules    []openFoldMolecule `json:"molecules"`
	OutputFormat string             `json:"output_format"`
}

type openFoldMolecule struct {
	Type     string      `json:"type"`
	ID       string      `json:"id"`
	Sequence string      `json:"sequence"`
	MSA      openFoldMSA `json:"msa"`
}

type openFoldMSA struct {
	MainDB struct {
		CSV struct {
			Alignment string `json:"alignment"`
			Format    string `json:"format"`
		} `json:"csv"`
	} `json:"main_db"`
}

type rfdiffusionRequest struct {
	InputPDB       string   `json:"input_pdb"`
	Contigs        string   `json:"contigs"`
	DiffusionSteps int      `json:"diffusion_steps"`
	Hotspots       []string `json:"hotspot_res,omitempty"`
}

type proteinMPNNRequest struct {
	InputPDB        string    `json:"input_pdb"`
	InputPDBChains  []string  `json:"input_pdb_chains"`
	CAOnly          bool      `json:"ca_only"`
	UseSolubleModel bool      `json:"use_soluble_model"`
	NumSeqPerTarget int       `json:"num_seq_per_target"`
	SamplingTemp    []float64 `json:"sampling_temp"`
}

type multimerRequest struct {
	Sequences       []string `json:"sequences"`
	SelectedModels  []int    `json:"selected_models"`
	RelaxPrediction bool     `json:"relax_prediction"`
	Databases       []string `json:"databases"`
}

func requestFor(spec JobSpec) any {
	switch spec.Model {
	case ModelOpenFold3:
		var msa openFoldMSA
		msa.MainDB.CSV.Alignment = "key,sequence\n-1," + spec.Sequence
		msa.MainDB.CSV.Format = "csv"
		return openFoldRequest{
			RequestID: spec.RequestID,
			Inputs: []openFoldInput{{
				InputID:      spec.RequestID,
				Molecules:    []openFoldMolecule{{Type: "protein", ID: "A", Sequence: spec.Sequence, MSA: msa}},
				OutputFormat: "pdb",
			}},
		}
	case ModelRFdiffusion:
		return rfdiffusionRequest{
			InputPDB:       spec.Structure,
			Contigs:        spec.Contigs,
			DiffusionSteps: spec.DiffusionSteps,
			Hotspots:       spec.Hotspots,
		}
	case ModelProteinMPNN:
		chains := spec.Chains
		if len(chains) == 0 {
			chains = []string{"A"}
		}
		return proteinMPNNRequest{
			InputPDB:        spec.Structure,
			InputPDBChains:  chains,
			UseSolubleModel: spec.SolubleModel,
			NumSeqPerTarget: spec.NumSequences,
			SamplingTemp:    []float64{spec.SamplingTemp},
		}
	case ModelAFMultimer:
		models := spec.SelectedModels
		if len(models) == 0 {
			models = []int{1}
		}
		return multimerRequest{
			Sequences:       spec.Sequences,
			SelectedModels:  models,
			RelaxPrediction: spec.Relax,
			Databases:       []string{"small_bfd"},
		}
	default:
		algorithm := spec.Algorithm
		if algorithm == "" {
			algorithm = "mmseqs2"
		}
		return alphaFoldRequest{Sequence: spec.Sequence, Algorithm: algorithm}
	}
}

var structurePrefixes = []string{"ATOM", "HETATM", "MODEL", "HEADER", "REMARK"}

func looksLikeStructure(text string) bool {
	t := strings.TrimSpace(text)
	for _, p := range structurePrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

// decodePayload turns a model's response body into a Payload.
func decodePayload(model Model, body []byte) (Payload, error) {
	switch model {
	case ModelAlphaFold2:
		var structures []string
		if err := json.Unmarshal(body, &structures); err != nil {
			return Payload{}, fmt.Errorf("failed to decode %s response: %w", model, err)
		}
		if len(structures) == 0 {
			return Payload{}, fmt.Errorf("%s returned no structures", model)
		}
		return Payload{Structures: structures}, nil
	case ModelOpenFold3:
		var resp struct {
			Outputs []struct {
				StructuresWithScores []struct {
					Structure string `json:"structure"`
				} `json:"structures_with_scores"`
			} `json:"outputs"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return Payload{}, fmt.Errorf("failed to decode %s response: %w", model, err)
		}
		if len(resp.Outputs) == 0 || len(resp.Outputs[0].StructuresWithScores) == 0 {
			return Payload{}, fmt.Errorf("%s returned no structures", model)
		}
		text := resp.Outputs[0].StructuresWithScores[0].Structure
		if !looksLikeStructure(text) {
			return Payload{}, fmt.Errorf("invalid structure content from %s", model)
		}
		return Payload{Structures: []string{text}}, nil
	case ModelRFdiffusion:
		var resp struct {
			OutputPDB string `json:"output_pdb"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return Payload{}, fmt.Errorf("failed to decode %s response: %w", model, err)
		}
		if resp.OutputPDB == "" {
			return Payload{}, fmt.Errorf("%s returned no structure", model)
		}
		return Payload{Structures: []string{resp.OutputPDB}}, nil
	case ModelProteinMPNN:
		var resp struct {
			MFASTA string `json:"mfasta"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return Payload{}, fmt.Errorf("failed to decode %s response: %w", model, err)
		}
		if resp.MFASTA == "" {
			return Payload{}, fmt.Errorf("%s returned no sequences", model)
		}
		return Payload{Text: resp.MFASTA}, nil
	case ModelAFMultimer:
		return decodeMultimerArchive(body)
	default:
		return Payload{}, fmt.Errorf("unknown model %q", model)
	}
}

// decodeMultimerArchive reads a zip of JSON documents, each holding either a
// structure string or a list of structure fragments.
func decodeMultimerArchive(body []byte) (Payload, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return Payload{}, fmt.Errorf("failed to open multimer archive: %w", err)
	}
	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var p Payload
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		text, err := readArchiveEntry(f)
		if err != nil {
			return Payload{}, err
		}
		if text != "" {
			p.Structures = append(p.Structures, text)
		}
	}
	if len(p.Structures) == 0 {
		return Payload{}, errors.New("multimer archive holds no structures")
	}
	return p, nil
}

func readArchiveEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
	}

	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	if looksLikeStructure(string(raw)) {
		return string(raw), nil
	}
	return "", nil
}
