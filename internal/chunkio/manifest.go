package chunkio

import (
	"encoding/json"
	"fmt"
	"os"

	"bindgraph/internal/bindgraph"
)

// chunkRecord is the on-disk shape of one bindgraph.PipelineChunk.
type chunkRecord struct {
	ChunkID string            `json:"chunk_id"`
	Datum   map[string]string `json:"datum"`
}

// manifestFile wraps the chunk list with a free-text comment, matching the
// shape gathered-pipeline.chunks.json is written in.
type manifestFile struct {
	Comment string        `json:"comment,omitempty"`
	Chunks  []chunkRecord `json:"chunks"`
}

// JSONManifest implements bindgraph.ChunkManifestReader and
// bindgraph.ChunkManifestWriter over plain JSON files.
type JSONManifest struct{}

var (
	_ bindgraph.ChunkManifestReader = JSONManifest{}
	_ bindgraph.ChunkManifestWriter = JSONManifest{}
)

// Read loads a chunk manifest from path.
func (JSONManifest) Read(path string) ([]bindgraph.PipelineChunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunkio: read %s: %w", path, err)
	}
	var mf manifestFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("chunkio: decode %s: %w", path, err)
	}
	out := make([]bindgraph.PipelineChunk, len(mf.Chunks))
	for i, c := range mf.Chunks {
		out[i] = bindgraph.PipelineChunk{ChunkID: c.ChunkID, Datum: c.Datum}
	}
	return out, nil
}

// Write persists chunks to path as JSON, overwriting any existing file.
func (JSONManifest) Write(path string, chunks []bindgraph.PipelineChunk, comment string) error {
	mf := manifestFile{Comment: comment, Chunks: make([]chunkRecord, len(chunks))}
	for i, c := range chunks {
		mf.Chunks[i] = chunkRecord{ChunkID: c.ChunkID, Datum: c.Datum}
	}
	raw, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("chunkio: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("chunkio: write %s: %w", path, err)
	}
	return nil
}
