package chunkio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindgraph/internal/bindgraph"
)

func TestJSONManifest_RoundTrip(t *testing.T) {
	chunks := []bindgraph.PipelineChunk{
		{ChunkID: "c1", Datum: map[string]string{"k.fa": "/p/c1.fasta"}},
		{ChunkID: "c2", Datum: map[string]string{"k.fa": "/p/c2.fasta"}},
	}

	path := filepath.Join(t.TempDir(), "gathered-pipeline.chunks.json")
	m := JSONManifest{}
	require.NoError(t, m.Write(path, chunks, "test manifest"))

	got, err := m.Read(path)
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestJSONManifest_ReadMissingFileErrors(t *testing.T) {
	m := JSONManifest{}
	_, err := m.Read(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}

func TestJSONManifest_WriteOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := JSONManifest{}

	require.NoError(t, m.Write(path, []bindgraph.PipelineChunk{{ChunkID: "old"}}, ""))
	require.NoError(t, m.Write(path, []bindgraph.PipelineChunk{{ChunkID: "new"}}, ""))

	got, err := m.Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ChunkID)
}
