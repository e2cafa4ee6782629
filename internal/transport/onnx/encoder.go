package onnx

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Output kinds of the exported graph.
const (
	// OutputTokenEmbeddings is a [batch, seq, dim] hidden state that needs mean pooling.
	OutputTokenEmbeddings = "token_embeddings"
	// OutputSentenceEmbedding is an already pooled [batch, dim] vector.
	OutputSentenceEmbedding = "sentence_embedding"
)

// Config describes one exported model.
type Config struct {
	LibraryPath   string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	// OutputName is the graph output to read, e.g. "last_hidden_state" or "sentence_embedding".
	OutputName string
	// OutputKind is OutputTokenEmbeddings or OutputSentenceEmbedding.
	OutputKind string
	// TokenTypeIDs feeds a token_type_ids input (BERT-style graphs only).
	TokenTypeIDs bool
	Normalize    bool
}

// Encoder is a domain.Embedder backed by an ONNX Runtime session.
type Encoder struct {
	cfg       Config
	session   *ort.DynamicAdvancedSession
	tokenizer textTokenizer
	logger    *zap.Logger
}

// NewEncoder loads the tokenizer and creates the inference session.
func NewEncoder(cfg Config, logger *zap.Logger) (*Encoder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, errors.New("model_path and tokenizer_path are required")
	}
	if cfg.OutputKind == "" {
		cfg.OutputKind = OutputTokenEmbeddings
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "last_hidden_state"
		if cfg.OutputKind == OutputSentenceEmbedding {
			cfg.OutputName = "sentence_embedding"
		}
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}

	if err := InitRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}
	tk, err := loadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, err
	}

	inputs := []string{"input_ids", "attention_mask"}
	if cfg.TokenTypeIDs {
		inputs = append(inputs, "token_type_ids")
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session %s: %w", cfg.ModelPath, err)
	}

	logger.Info("ONNX encoder ready",
		zap.String("model", cfg.ModelPath),
		zap.String("output", cfg.OutputName),
		zap.Int("max_seq_len", cfg.MaxSeqLen),
	)
	return &Encoder{cfg: cfg, session: session, tokenizer: tk, logger: logger}, nil
}

// Embed implements domain.Embedder.
func (e *Encoder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("onnx embed: %w", err)
	}
	tok, err := encode(e.tokenizer, text, e.cfg.MaxSeqLen)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	vec, err := e.run(tok)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("onnx inference: %w", err)
	}
	if e.cfg.Normalize {
		normalize(vec)
	}
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: tok.seqLength,
		TotalTokens:  tok.seqLength,
	}, nil
}

func (e *Encoder) run(tok tokens) ([]float32, error) {
	shape := ort.NewShape(1, int64(tok.seqLength))

	ids, err := ort.NewTensor(shape, tok.ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer ids.Destroy()
	mask, err := ort.NewTensor(shape, tok.mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer mask.Destroy()

	inputs := []ort.Value{ids, mask}
	if e.cfg.TokenTypeIDs {
		types, err := ort.NewTensor(shape, tok.typeIDs)
		if err != nil {
			return nil, fmt.Errorf("token_type_ids tensor: %w", err)
		}
		defer types.Destroy()
		inputs = append(inputs, types)
	}

	// nil output: onnxruntime allocates it with the dynamic shape
	outputs := []ort.Value{nil}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output %s is not a float32 tensor", e.cfg.OutputName)
	}
	data := out.GetData()
	dims := out.GetShape()

	switch e.cfg.OutputKind {
	case OutputSentenceEmbedding:
		if len(dims) != 2 {
			return nil, fmt.Errorf("sentence_embedding output has shape %v", dims)
		}
		vec := make([]float32, dims[1])
		copy(vec, data[:dims[1]])
		return vec, nil
	default:
		if len(dims) != 3 {
			return nil, fmt.Errorf("token_embeddings output has shape %v", dims)
		}
		return meanPool(data[:dims[1]*dims[2]], int(dims[1]), int(dims[2]), tok.mask)
	}
}

// Close releases the session.
func (e *Encoder) Close() error {
	if e.session == nil {
		return nil
	}
	if err := e.session.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	e.session = nil
	return nil
}
