package pipeline

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFasta(t *testing.T) {
	text := ">input_scaffold\nGGGGGGGG\n\n>T=0.1, sample=1, score=0.8123, seq_recovery=0.4\nMKTAY\nIAKQR\r\n>no score\nGSGS\n"

	records := ParseFasta(text)
	require.Len(t, records, 3)
	assert.Equal(t, "input_scaffold", records[0].Header)
	assert.Nil(t, records[0].Score)
	assert.Equal(t, "MKTAYIAKQR", records[1].Sequence)
	require.NotNil(t, records[1].Score)
	assert.InDelta(t, 0.8123, *records[1].Score, 1e-9)
	assert.Nil(t, records[2].Score)
	assert.Equal(t, "GSGS", records[2].Sequence)
}

func TestParseFasta_IgnoresLeadingText(t *testing.T) {
	records := ParseFasta("garbage before\n>a\nAC\n")
	require.Len(t, records, 1)
	assert.Equal(t, "AC", records[0].Sequence)
	assert.Empty(t, ParseFasta(""))
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "Test_Project", fileStem("Test Project"))
	assert.Equal(t, "a_b.c", fileStem("  a/b.c "))
	assert.Equal(t, "project", fileStem("///"))
}

func TestFSArtifacts(t *testing.T) {
	fs := afero.NewMemMapFs()
	art, err := NewFSArtifacts(fs, DefaultOutputDir("/data", "My Binder"))
	require.NoError(t, err)
	assert.Equal(t, "/data/My_Binder_output", art.Location())

	path, err := art.Write("../escape.pdb", []byte("END\n"))
	require.NoError(t, err)
	assert.Equal(t, "/data/My_Binder_output/escape.pdb", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "END\n", string(data))
}
