// Package core defines the core interfaces and types for the F5AI adapter.
package core

import "context"

// Provider defines the interface for LLM providers
type Provider interface {
	// ChatCompletion executes a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChat returns the chat result as a sequence of chunks.
	// The sequence is produced lazily and must be ranged at most once.
	StreamChat(ctx context.Context, req *ChatRequest) (ChunkSeq, error)

	// Completion executes a legacy prompt completion request
	Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// FIM executes a fill-in-the-middle request and returns its chunks
	FIM(ctx context.Context, req *FIMRequest) (ChunkSeq, error)

	// Embeddings sends an embeddings request to the provider
	Embeddings(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)

	// Rerank scores documents against a query
	Rerank(ctx context.Context, req *RerankRequest) (*RerankResponse, error)

	// ListModels returns the list of available models
	ListModels(ctx context.Context) (*ModelsResponse, error)
}
