package core

import "iter"

// ChunkSeq is a lazily produced, finite sequence of chat chunks. A non-nil
// error ends the sequence. Ranging twice is not supported: the underlying
// network body is consumed by the first pass.
type ChunkSeq = iter.Seq2[*ChatChunk, error]

// SingleChunk is a stream that holds exactly one chunk. It is used where
// the backend answered with one complete response but the caller asked for
// a streaming-shaped result.
type SingleChunk struct {
	chunk ChatChunk
}

// NewSingleChunk wraps chunk as a one-element stream.
func NewSingleChunk(chunk ChatChunk) *SingleChunk {
	return &SingleChunk{chunk: chunk}
}

// Chunk returns the only element of the stream.
func (s *SingleChunk) Chunk() *ChatChunk {
	return &s.chunk
}

// Seq yields the chunk once.
func (s *SingleChunk) Seq() ChunkSeq {
	return func(yield func(*ChatChunk, error) bool) {
		c := s.chunk
		yield(&c, nil)
	}
}
