package onnx

import (
	"errors"
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// tokens is one encoded sequence in the int64 layout ONNX graphs expect.
type tokens struct {
	ids       []int64
	mask      []int64
	typeIDs   []int64
	seqLength int
}

// textTokenizer is the part of tokenizer.Tokenizer the encoder uses.
type textTokenizer interface {
	EncodeSingle(input string, addSpecialTokensOpt ...bool) (*tokenizer.Encoding, error)
}

func loadTokenizer(path string) (*tokenizer.Tokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return tk, nil
}

func encode(tk textTokenizer, text string, maxLen int) (tokens, error) {
	enc, err := tk.EncodeSingle(text, true)
	if err != nil {
		return tokens{}, fmt.Errorf("tokenize: %w", err)
	}
	if len(enc.Ids) == 0 {
		return tokens{}, errors.New("tokenize: no tokens produced")
	}
	return truncate(enc.Ids, enc.AttentionMask, enc.TypeIds, maxLen), nil
}

// truncate cuts sequences longer than maxLen, keeping the final special token
// (</s> or [SEP]) so the model still sees a terminated sequence.
func truncate(ids, mask, typeIDs []int, maxLen int) tokens {
	n := len(ids)
	if maxLen > 0 && n > maxLen {
		n = maxLen
	}
	out := tokens{
		ids:       make([]int64, n),
		mask:      make([]int64, n),
		typeIDs:   make([]int64, n),
		seqLength: n,
	}
	for i := range n {
		src := i
		if i == n-1 {
			src = len(ids) - 1
		}
		out.ids[i] = int64(ids[src])
		out.mask[i] = 1
		if src < len(mask) {
			out.mask[i] = int64(mask[src])
		}
		if src < len(typeIDs) {
			out.typeIDs[i] = int64(typeIDs[src])
		}
	}
	return out
}
