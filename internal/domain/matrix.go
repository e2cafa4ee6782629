package domain

import "fmt"

// Matrix is a dense row-major float32 embedding matrix. Row i is the embedding of document i.
// Treat it as read-only once built.
type Matrix struct {
	data []float32
	rows int
	cols int
}

// NewMatrix validates the shape and wraps data without copying.
func NewMatrix(data []float32, rows, cols int) (Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return Matrix{}, fmt.Errorf("%w: matrix shape %dx%d", ErrInvalidInput, rows, cols)
	}
	if len(data) != rows*cols {
		return Matrix{}, fmt.Errorf("%w: matrix data has %d values, shape %dx%d needs %d",
			ErrInvalidInput, len(data), rows, cols, rows*cols)
	}
	return Matrix{data: data, rows: rows, cols: cols}, nil
}

// Rows returns the number of embedded documents.
func (m Matrix) Rows() int { return m.rows }

// Cols returns the embedding dimensionality.
func (m Matrix) Cols() int { return m.cols }

// Row returns row i as a subslice. Callers must not modify it.
func (m Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Manifest describes how a matrix was produced. Stored as a YAML sidecar next to the matrix.
type Manifest struct {
	Space           Space  `yaml:"space"`
	Model           string `yaml:"model"`
	Instruction     string `yaml:"instruction"`
	TemplateVersion string `yaml:"template_version"`
	Dimensions      int    `yaml:"dimensions"`
	Rows            int    `yaml:"rows"`
	Normalized      bool   `yaml:"normalized"`
}

// Template returns the instruction template queries in this space must use.
func (m Manifest) Template() InstructionTemplate {
	return InstructionTemplate{Version: m.TemplateVersion, Instruction: m.Instruction}
}
