package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/structure"
)

func chain(id string, n int, x float64) []structure.Atom {
	atoms := make([]structure.Atom, n)
	for i := range atoms {
		atoms[i] = structure.Atom{
			Serial: i + 1, Name: "CA", ResidueName: "ALA", Chain: id, ResidueNumber: i + 1,
			X: x, Y: float64(i) * 3.8, Element: "C",
		}
	}
	return atoms
}

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := fs
	fs = afero.NewMemMapFs()
	t.Cleanup(func() { fs = prev })
	return fs
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	mem := useMemFs(t)
	complexPDB := structure.Format(append(chain("A", 10, 0), chain("B", 10, 4)...))
	require.NoError(t, afero.WriteFile(mem, "complex.pdb", []byte(complexPDB), 0o644))

	out, err := execute(t, "analyze", "complex.pdb", "--report=false", "--cutoff=5")
	require.NoError(t, err)
	var got binding.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 10, got.Interface.NumContacts)
	assert.Equal(t, 90, got.Quality.Score)

	out, err = execute(t, "analyze", "complex.pdb", "--report")
	require.NoError(t, err)
	assert.Contains(t, out, "Quality score: 90/100 (A - Excellent)")
	assert.Contains(t, out, "Contacts: 10")
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	mem := useMemFs(t)
	require.NoError(t, afero.WriteFile(mem, "single.pdb", []byte(structure.Format(chain("A", 5, 0))), 0o644))

	_, err := execute(t, "analyze", "single.pdb", "--report=false", "--cutoff=5")
	assert.Error(t, err)

	_, err = execute(t, "analyze", "missing.pdb", "--cutoff=5")
	assert.ErrorContains(t, err, "missing.pdb")
}

func TestCombineCommand(t *testing.T) {
	mem := useMemFs(t)
	require.NoError(t, afero.WriteFile(mem, "a.pdb", []byte(structure.Format(chain("X", 3, 0))), 0o644))
	require.NoError(t, afero.WriteFile(mem, "b.pdb", []byte(structure.Format(chain("X", 2, 4))), 0o644))

	_, err := execute(t, "combine", "a.pdb", "b.pdb", "-o", "out.pdb", "--chain-a=A", "--chain-b=B")
	require.NoError(t, err)
	data, err := afero.ReadFile(mem, "out.pdb")
	require.NoError(t, err)
	atoms := structure.Parse(string(data))
	require.Len(t, atoms, 5)
	assert.Equal(t, []string{"A", "B"}, structure.Chains(atoms))

	_, err = execute(t, "combine", "a.pdb", "b.pdb", "-o", "", "--chain-a=A", "--chain-b=A")
	assert.Error(t, err)
}

func TestTargetInput(t *testing.T) {
	mem := useMemFs(t)
	require.NoError(t, afero.WriteFile(mem, "target.fasta", []byte(">target\nMKTAY\nIAKQR\n"), 0o644))
	t.Cleanup(func() { runFlags.sequence, runFlags.targetPDB, runFlags.pdbID = "", "", "" })

	runFlags.sequence = "MKTAYIAKQR"
	in, err := targetInput()
	require.NoError(t, err)
	assert.Equal(t, "MKTAYIAKQR", in.Sequence)

	runFlags.sequence = "target.fasta"
	in, err = targetInput()
	require.NoError(t, err)
	assert.Equal(t, "MKTAYIAKQR", in.Sequence)

	runFlags.sequence = ""
	_, err = targetInput()
	assert.Error(t, err)
}
