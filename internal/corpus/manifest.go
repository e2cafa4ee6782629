package corpus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func readManifest(path string) (domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m domain.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// WriteManifest stores m as a YAML sidecar. Used when exporting a new matrix.
func WriteManifest(path string, m domain.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// DescribeMatrix returns base with Rows and Dimensions taken from the matrix at path.
// The matrix is fully read, so a manifest is never written for a file Load would reject.
func DescribeMatrix(path string, base domain.Manifest) (domain.Manifest, error) {
	m, err := readMatrix(path)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
	}
	base.Rows = m.Rows()
	base.Dimensions = m.Cols()
	return base, nil
}
