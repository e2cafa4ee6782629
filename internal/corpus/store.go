// Package corpus loads the fixed document set and its precomputed embedding matrices.
// A Store is immutable after Load and safe for concurrent readers.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/logger"
)

// Columns names the document fields in the source file.
type Columns struct {
	Title    string
	Author   string
	Subject  string
	Date     string
	Abstract string
}

// DefaultColumns matches the published corpus export.
var DefaultColumns = Columns{
	Title:    "Título",
	Author:   "Autor",
	Subject:  "Materia",
	Date:     "Fecha",
	Abstract: "Resumen",
}

// Format of the documents file.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// DocumentSource locates the tabular documents file.
type DocumentSource struct {
	Path string
	// Format is "csv" or "parquet"; empty infers it from the file extension.
	Format  string
	Columns Columns
}

// MatrixSource locates one space's embedding matrix.
type MatrixSource struct {
	Path string
	// ManifestPath defaults to Path with its extension replaced by ".yaml".
	ManifestPath string
	// Fallback is used when no manifest sidecar exists. Rows and Dimensions are taken from the matrix.
	Fallback domain.Manifest
	// ExpectedTemplateVersion pins the manifest template version. Empty accepts any.
	ExpectedTemplateVersion string
}

// Sources describes every artifact Load reads.
type Sources struct {
	Documents DocumentSource
	Matrices  map[domain.Space]MatrixSource
}

type space struct {
	matrix   domain.Matrix
	manifest domain.Manifest
}

// Store is the loaded, index-aligned corpus.
type Store struct {
	docs   []domain.Document
	spaces map[domain.Space]space
}

// Load reads the documents and every space matrix and verifies they are aligned.
// Any failure is wrapped in domain.ErrDataLoad and no Store is returned.
func Load(ctx context.Context, src Sources) (*Store, error) {
	log := logger.FromContext(ctx)

	docs, err := readDocuments(src.Documents)
	if err != nil {
		return nil, fmt.Errorf("%w: documents %s: %w", domain.ErrDataLoad, src.Documents.Path, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents %s: no rows", domain.ErrDataLoad, src.Documents.Path)
	}
	log.Info("Documents loaded", zap.String("path", src.Documents.Path), zap.Int("rows", len(docs)))

	s := &Store{docs: docs, spaces: make(map[domain.Space]space, len(domain.AllSpaces))}
	for _, sp := range domain.AllSpaces {
		ms, ok := src.Matrices[sp]
		if !ok || ms.Path == "" {
			return nil, fmt.Errorf("%w: no matrix configured for space %s", domain.ErrDataLoad, sp)
		}
		loaded, err := loadSpace(sp, ms, len(docs))
		if err != nil {
			return nil, fmt.Errorf("%w: space %s: %w", domain.ErrDataLoad, sp, err)
		}
		s.spaces[sp] = loaded
		log.Info("Embedding matrix loaded",
			zap.Stringer("space", sp),
			zap.String("path", ms.Path),
			zap.Int("rows", loaded.matrix.Rows()),
			zap.Int("dimensions", loaded.matrix.Cols()),
			zap.String("model", loaded.manifest.Model),
			zap.String("template_version", loaded.manifest.TemplateVersion),
		)
	}
	return s, nil
}

func loadSpace(sp domain.Space, ms MatrixSource, docRows int) (space, error) {
	m, err := readMatrix(ms.Path)
	if err != nil {
		return space{}, err
	}
	if m.Rows() != docRows {
		return space{}, fmt.Errorf("matrix has %d rows, corpus has %d documents", m.Rows(), docRows)
	}

	manifestPath := ms.ManifestPath
	if manifestPath == "" {
		manifestPath = strings.TrimSuffix(ms.Path, filepath.Ext(ms.Path)) + ".yaml"
	}
	man, err := readManifest(manifestPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		man = ms.Fallback
		man.Space = sp
		man.Rows = m.Rows()
		man.Dimensions = m.Cols()
	case err != nil:
		return space{}, err
	}
	if err := checkManifest(man, sp, m, ms.ExpectedTemplateVersion); err != nil {
		return space{}, fmt.Errorf("manifest %s: %w", manifestPath, err)
	}
	return space{matrix: m, manifest: man}, nil
}

func checkManifest(man domain.Manifest, sp domain.Space, m domain.Matrix, wantTemplate string) error {
	if man.Space != 0 && man.Space != sp {
		return fmt.Errorf("declares space %s", man.Space)
	}
	if man.Rows != 0 && man.Rows != m.Rows() {
		return fmt.Errorf("declares %d rows, matrix has %d", man.Rows, m.Rows())
	}
	if man.Dimensions != 0 && man.Dimensions != m.Cols() {
		return fmt.Errorf("declares %d dimensions, matrix has %d", man.Dimensions, m.Cols())
	}
	if wantTemplate != "" && man.TemplateVersion != wantTemplate {
		return fmt.Errorf("template version %q, expected %q", man.TemplateVersion, wantTemplate)
	}
	return nil
}

// RowCount returns the number of documents (and matrix rows).
func (s *Store) RowCount() int { return len(s.docs) }

// DocumentAt returns document i.
func (s *Store) DocumentAt(i int) (domain.Document, error) {
	if i < 0 || i >= len(s.docs) {
		return domain.Document{}, domain.NewIndexOutOfRange(i, len(s.docs))
	}
	return s.docs[i], nil
}

// MatrixFor returns the read-only embedding matrix of a space.
func (s *Store) MatrixFor(sp domain.Space) (domain.Matrix, error) {
	loaded, ok := s.spaces[sp]
	if !ok {
		return domain.Matrix{}, fmt.Errorf("%w: unknown embedding space %s", domain.ErrInvalidInput, sp)
	}
	return loaded.matrix, nil
}

// Manifest returns how a space's matrix was produced. Zero value for unknown spaces.
func (s *Store) Manifest(sp domain.Space) domain.Manifest {
	return s.spaces[sp].manifest
}

// Documents returns up to limit documents starting at offset. Out-of-range pages are empty.
func (s *Store) Documents(offset, limit int) []domain.Document {
	if offset < 0 || limit <= 0 || offset >= len(s.docs) {
		return nil
	}
	end := min(offset+limit, len(s.docs))
	out := make([]domain.Document, end-offset)
	copy(out, s.docs[offset:end])
	return out
}
