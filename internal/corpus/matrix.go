package corpus

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/sbinet/npyio"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// readMatrix loads a 2-D C-order .npy array of float32 or float64 as a float32 Matrix.
func readMatrix(path string) (domain.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Matrix{}, fmt.Errorf("open matrix: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(bufio.NewReader(f))
	if err != nil {
		return domain.Matrix{}, fmt.Errorf("read npy header %s: %w", path, err)
	}

	descr := r.Header.Descr
	if descr.Fortran {
		return domain.Matrix{}, fmt.Errorf("matrix %s: fortran order not supported", path)
	}
	if len(descr.Shape) != 2 {
		return domain.Matrix{}, fmt.Errorf("matrix %s: expected 2-D array, got shape %v", path, descr.Shape)
	}
	rows, cols := descr.Shape[0], descr.Shape[1]

	var data []float32
	switch descr.Type {
	case "<f4", "f4", "float32":
		data = make([]float32, 0, rows*cols)
		if err := r.Read(&data); err != nil {
			return domain.Matrix{}, fmt.Errorf("read matrix %s: %w", path, err)
		}
	case "<f8", "f8", "float64":
		wide := make([]float64, 0, rows*cols)
		if err := r.Read(&wide); err != nil {
			return domain.Matrix{}, fmt.Errorf("read matrix %s: %w", path, err)
		}
		data = make([]float32, len(wide))
		for i, v := range wide {
			data[i] = float32(v)
		}
	default:
		return domain.Matrix{}, fmt.Errorf("matrix %s: unsupported dtype %q", path, descr.Type)
	}

	for i, v := range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return domain.Matrix{}, fmt.Errorf("matrix %s: non-finite value at row %d col %d", path, i/cols, i%cols)
		}
	}

	m, err := domain.NewMatrix(data, rows, cols)
	if err != nil {
		return domain.Matrix{}, fmt.Errorf("matrix %s: %w", path, err)
	}
	return m, nil
}
