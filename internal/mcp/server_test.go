package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/structure"
)

func caChain(id, resName string, n int, x float64) []structure.Atom {
	atoms := make([]structure.Atom, n)
	for i := range atoms {
		atoms[i] = structure.Atom{
			Serial: i + 1, Name: "CA", ResidueName: resName, Chain: id, ResidueNumber: i + 1,
			X: x, Y: float64(i) * 3.8, Element: "C", Confidence: 88 + float64(i%2)*8, HasConfidence: true,
		}
	}
	return atoms
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestAnalyzeInterfaceTool(t *testing.T) {
	s := NewServer("test", 0)
	complexPDB := structure.Format(append(caChain("A", "ALA", 12, 0), caChain("B", "GLY", 12, 4)...))

	out, isErr := call(t, s.handleAnalyzeInterface, map[string]interface{}{"complex_pdb": complexPDB})
	require.False(t, isErr, out)
	var got binding.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 12, got.Interface.NumContacts)
	assert.Equal(t, 90, got.Quality.Score)

	out, isErr = call(t, s.handleAnalyzeInterface, map[string]interface{}{
		"structure_a": structure.Format(caChain("A", "ALA", 12, 0)),
		"structure_b": structure.Format(caChain("A", "GLY", 12, 4)),
		"cutoff":      3.0,
	})
	require.False(t, isErr, out)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 0, got.Interface.NumContacts)

	_, isErr = call(t, s.handleAnalyzeInterface, map[string]interface{}{"complex_pdb": structure.Format(caChain("A", "ALA", 12, 0))})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleAnalyzeInterface, map[string]interface{}{})
	assert.True(t, isErr)
}

func TestAssessBindingQualityTool(t *testing.T) {
	s := NewServer("test", 0)

	out, isErr := call(t, s.handleAssessBindingQuality, map[string]interface{}{
		"num_contacts": 20.0, "avg_distance": 4.0, "min_distance": 3.0,
	})
	require.False(t, isErr, out)
	var q binding.QualityAssessment
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, 100, q.Score)
	assert.Equal(t, "A - Excellent", q.Grade)

	_, isErr = call(t, s.handleAssessBindingQuality, map[string]interface{}{"num_contacts": 3.0})
	assert.True(t, isErr)
}

func TestExtractSequenceTool(t *testing.T) {
	s := NewServer("test", 0)
	pdb := structure.Format(append(caChain("A", "ALA", 3, 0), caChain("B", "TRP", 2, 4)...))

	out, isErr := call(t, s.handleExtractSequence, map[string]interface{}{"structure": pdb})
	require.False(t, isErr, out)
	var chains []struct {
		Chain    string `json:"chain"`
		Sequence string `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &chains))
	require.Len(t, chains, 2)
	assert.Equal(t, "AAA", chains[0].Sequence)
	assert.Equal(t, "WW", chains[1].Sequence)

	out, isErr = call(t, s.handleExtractSequence, map[string]interface{}{"structure": pdb, "chain": "B"})
	require.False(t, isErr, out)
	require.NoError(t, json.Unmarshal([]byte(out), &chains))
	require.Len(t, chains, 1)

	_, isErr = call(t, s.handleExtractSequence, map[string]interface{}{"structure": pdb, "chain": "Z"})
	assert.True(t, isErr)
}

func TestCheckConfidenceTool(t *testing.T) {
	s := NewServer("test", 0)

	out, isErr := call(t, s.handleCheckConfidence, map[string]interface{}{"structure": structure.Format(caChain("A", "ALA", 10, 0))})
	require.False(t, isErr, out)
	var report confidenceReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Plausible)
	require.NotNil(t, report.Mean)
	assert.InDelta(t, 92.0, *report.Mean, 1e-9)
	assert.Equal(t, "Excellent", report.Grade)
	assert.Len(t, report.PerResidue, 10)

	flat := caChain("A", "ALA", 10, 0)
	for i := range flat {
		flat[i].Confidence = 0
	}
	out, _ = call(t, s.handleCheckConfidence, map[string]interface{}{"structure": structure.Format(flat)})
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Plausible)
	assert.Equal(t, "Unknown", report.Grade)
}

func TestCombineStructuresTool(t *testing.T) {
	s := NewServer("test", 0)
	a := structure.Format(caChain("X", "ALA", 4, 0))
	b := structure.Format(caChain("X", "GLY", 3, 4))

	out, isErr := call(t, s.handleCombineStructures, map[string]interface{}{"structure_a": a, "structure_b": b})
	require.False(t, isErr, out)
	atoms := structure.Parse(out)
	require.Len(t, atoms, 7)
	assert.Equal(t, []string{"A", "B"}, structure.Chains(atoms))
	assert.Equal(t, 7, atoms[6].Serial)

	_, isErr = call(t, s.handleCombineStructures, map[string]interface{}{"structure_a": a, "structure_b": b, "chain_a": "C", "chain_b": "C"})
	assert.True(t, isErr)
}
