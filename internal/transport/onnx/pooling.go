package onnx

import (
	"fmt"
	"math"
)

// meanPool averages token vectors weighted by the attention mask.
// hidden is [seqLen x dim] row-major for a single sequence.
func meanPool(hidden []float32, seqLen, dim int, mask []int64) ([]float32, error) {
	if len(hidden) != seqLen*dim {
		return nil, fmt.Errorf("hidden state has %d values, want %dx%d", len(hidden), seqLen, dim)
	}
	if len(mask) != seqLen {
		return nil, fmt.Errorf("attention mask has %d entries, want %d", len(mask), seqLen)
	}
	sum := make([]float64, dim)
	var count float64
	for t := range seqLen {
		if mask[t] == 0 {
			continue
		}
		count++
		row := hidden[t*dim : (t+1)*dim]
		for j, v := range row {
			sum[j] += float64(v)
		}
	}
	out := make([]float32, dim)
	if count == 0 {
		return out, nil
	}
	for j := range sum {
		out[j] = float32(sum[j] / count)
	}
	return out, nil
}

// normalize scales v to unit L2 norm in place. Zero vectors are left untouched.
func normalize(v []float32) {
	var ss float64
	for _, x := range v {
		ss += float64(x) * float64(x)
	}
	if ss == 0 {
		return
	}
	inv := 1 / math.Sqrt(ss)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
}
