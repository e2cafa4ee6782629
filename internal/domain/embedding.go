package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Template versions understood by InstructionTemplate.
const (
	// TemplateInstructorV1 joins instruction and text as "<instruction>: <text>".
	TemplateInstructorV1 = "instructor-v1"
	// TemplatePrefixV1 concatenates instruction and text verbatim.
	TemplatePrefixV1 = "prefix-v1"
)

// InstructionTemplate is the versioned wrapper a space applies to query text.
// The same template must have been used to embed the corpus.
type InstructionTemplate struct {
	Version     string
	Instruction string
}

// Apply wraps text with the instruction. An empty instruction leaves text unchanged.
func (t InstructionTemplate) Apply(text string) string {
	if t.Instruction == "" {
		return text
	}
	if t.Version == TemplatePrefixV1 {
		return t.Instruction + text
	}
	return t.Instruction + ": " + text
}

// InstructionEmbedder is a domain decorator that wraps text with an instruction before embedding.
type InstructionEmbedder struct {
	inner    Embedder
	template InstructionTemplate
}

// NewInstructionEmbedder creates a decorator that applies the instruction template.
func NewInstructionEmbedder(inner Embedder, template InstructionTemplate) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, template: template}
}

// Embed applies the template and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.template.Apply(text))
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
