// Package chunkio provides the concrete chunk-manifest I/O that
// bindgraph.ChunkManifestReader/Writer leave abstract: JSON encoding on disk,
// plus an fsnotify-based helper for waiting on a manifest the task executor
// produces out-of-process.
package chunkio
