package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/structure"
)

// Server exposes the structure analysis engine as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	cutoff    float64
}

// NewServer creates the MCP server. cutoff is the default contact distance.
func NewServer(version string, cutoff float64) *Server {
	if cutoff <= 0 {
		cutoff = binding.DefaultCutoff
	}
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Binder Design Analysis",
			version,
			server.WithToolCapabilities(true),
		),
		cutoff: cutoff,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"analyze_interface",
			mcp.WithDescription("Find interface residues and contacts between two protein chains and grade the binding"),
			mcp.WithString("complex_pdb", mcp.Description("A two-chain complex in PDB format")),
			mcp.WithString("structure_a", mcp.Description("First partner in PDB format, used with structure_b")),
			mcp.WithString("structure_b", mcp.Description("Second partner in PDB format, used with structure_a")),
			mcp.WithNumber("cutoff", mcp.Description("Contact distance in Ångström (default 5.0)")),
		),
		s.handleAnalyzeInterface,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"assess_binding_quality",
			mcp.WithDescription("Grade an interface from its contact statistics"),
			mcp.WithNumber("num_contacts", mcp.Required(), mcp.Description("Number of residue contacts")),
			mcp.WithNumber("avg_distance", mcp.Required(), mcp.Description("Average contact distance in Ångström")),
			mcp.WithNumber("min_distance", mcp.Required(), mcp.Description("Closest contact distance in Ångström")),
		),
		s.handleAssessBindingQuality,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"extract_sequence",
			mcp.WithDescription("Extract the one-letter amino acid sequence of each chain"),
			mcp.WithString("structure", mcp.Required(), mcp.Description("Structure in PDB format")),
			mcp.WithString("chain", mcp.Description("Only return this chain")),
		),
		s.handleExtractSequence,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"check_confidence",
			mcp.WithDescription("Report the per-residue model confidence (pLDDT) carried by a predicted structure"),
			mcp.WithString("structure", mcp.Required(), mcp.Description("Predicted structure in PDB format")),
		),
		s.handleCheckConfidence,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"combine_structures",
			mcp.WithDescription("Merge two structures into one complex with distinct chain IDs"),
			mcp.WithString("structure_a", mcp.Required(), mcp.Description("First structure in PDB format")),
			mcp.WithString("structure_b", mcp.Required(), mcp.Description("Second structure in PDB format")),
			mcp.WithString("chain_a", mcp.Description("Chain ID for the first structure (default A)")),
			mcp.WithString("chain_b", mcp.Description("Chain ID for the second structure (default B)")),
		),
		s.handleCombineStructures,
	)
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, mcp.NewToolResultError("Invalid arguments type")
	}
	return args, nil
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAnalyzeInterface(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := arguments(request)
	if bad != nil {
		return bad, nil
	}
	cutoff := s.cutoff
	if v, ok := args["cutoff"].(float64); ok && v > 0 {
		cutoff = v
	}

	var a, b []structure.Atom
	if complexPDB := stringArg(args, "complex_pdb", ""); complexPDB != "" {
		var err error
		a, b, err = binding.SplitComplex(structure.Parse(complexPDB))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to split complex: %v", err)), nil
		}
	} else {
		sa, sb := stringArg(args, "structure_a", ""), stringArg(args, "structure_b", "")
		if sa == "" || sb == "" {
			return mcp.NewToolResultError("Provide complex_pdb, or both structure_a and structure_b"), nil
		}
		a, b = structure.Parse(sa), structure.Parse(sb)
	}
	if len(a) == 0 || len(b) == 0 {
		return mcp.NewToolResultError("Structures contain no atom records"), nil
	}
	return jsonResult(binding.Analyze(a, b, cutoff))
}

func (s *Server) handleAssessBindingQuality(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := arguments(request)
	if bad != nil {
		return bad, nil
	}
	var values [3]float64
	for i, key := range []string{"num_contacts", "avg_distance", "min_distance"} {
		v, ok := args[key].(float64)
		if !ok {
			return mcp.NewToolResultError("Missing required parameter: " + key), nil
		}
		values[i] = v
	}
	if values[0] < 0 {
		return mcp.NewToolResultError("num_contacts cannot be negative"), nil
	}
	return jsonResult(binding.AssessBindingQuality(binding.InterfaceResult{
		NumContacts: int(values[0]),
		AvgDistance: values[1],
		MinDistance: values[2],
	}))
}

func (s *Server) handleExtractSequence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := arguments(request)
	if bad != nil {
		return bad, nil
	}
	text := stringArg(args, "structure", "")
	if text == "" {
		return mcp.NewToolResultError("Missing required parameter: structure"), nil
	}
	atoms := structure.Parse(text)
	if len(atoms) == 0 {
		return mcp.NewToolResultError("Structure contains no atom records"), nil
	}

	chains := structure.ChainSequences(atoms)
	if chain := stringArg(args, "chain", ""); chain != "" {
		seq, ok := chains[chain]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Chain %s not found", chain)), nil
		}
		chains = map[string]string{chain: seq}
	}

	type chainSequence struct {
		Chain    string `json:"chain"`
		Sequence string `json:"sequence"`
		Length   int    `json:"length"`
	}
	out := make([]chainSequence, 0, len(chains))
	for id, seq := range chains {
		out = append(out, chainSequence{Chain: id, Sequence: seq, Length: len(seq)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return jsonResult(out)
}

type confidenceReport struct {
	Plausible  bool      `json:"plausible"`
	Mean       *float64  `json:"mean_plddt"`
	Grade      string    `json:"grade"`
	PerResidue []float64 `json:"per_residue,omitempty"`
}

func (s *Server) handleCheckConfidence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := arguments(request)
	if bad != nil {
		return bad, nil
	}
	text := stringArg(args, "structure", "")
	if text == "" {
		return mcp.NewToolResultError("Missing required parameter: structure"), nil
	}
	atoms := structure.Parse(text)

	var report confidenceReport
	if mean, ok := structure.MeanConfidence(atoms); ok {
		report.Plausible = true
		report.Mean = &mean
		report.PerResidue = structure.ResidueConfidences(atoms)
	}
	report.Grade = binding.ConfidenceGrade(report.Mean)
	return jsonResult(report)
}

func (s *Server) handleCombineStructures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := arguments(request)
	if bad != nil {
		return bad, nil
	}
	a, b := stringArg(args, "structure_a", ""), stringArg(args, "structure_b", "")
	if a == "" || b == "" {
		return mcp.NewToolResultError("Missing required parameters: structure_a and structure_b"), nil
	}
	chainA, chainB := stringArg(args, "chain_a", "A"), stringArg(args, "chain_b", "B")
	if len(chainA) != 1 || len(chainB) != 1 || chainA == chainB {
		return mcp.NewToolResultError("Chain IDs must be two different single characters"), nil
	}
	return mcp.NewToolResultText(binding.CombineStructures(a, b, chainA, chainB)), nil
}

// MountHTTPHandlers serves the MCP server over SSE under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
