package corpus

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

var testDocs = []domain.Document{
	{Title: "Migración rural", Author: "Pérez, Ana", Subject: "Sociología", Date: "2019", Abstract: "Estudio de la migración."},
	{Title: "Agua y ciudad", Author: "López, Juan", Subject: "Urbanismo", Date: "2020", Abstract: "Gestión hídrica urbana."},
	{Title: "Maíz nativo", Author: "García, Luz", Subject: "Agronomía", Date: "2018", Abstract: "Variedades de maíz."},
	{Title: "Lenguas indígenas", Author: "Cruz, Eva", Subject: "Lingüística", Date: "2021", Abstract: "Vitalidad lingüística."},
	{Title: "Educación a distancia", Author: "Soto, Raúl", Subject: "Educación", Date: "2022", Abstract: "Aprendizaje en línea."},
}

// writeCSV writes docs with the default header. A BOM is prepended when bom is true.
func writeCSV(t *testing.T, dir string, docs []domain.Document, bom bool) string {
	t.Helper()
	var buf bytes.Buffer
	if bom {
		buf.WriteString(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Título", "Autor", "Materia", "Fecha", "Resumen"})
	for _, d := range docs {
		_ = w.Write([]string{d.Title, d.Author, d.Subject, d.Date, d.Abstract})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("csv: %v", err)
	}
	path := filepath.Join(dir, "corpus.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// writeNPY writes a 2-D C-order .npy (format 1.0) file. dtype is "<f4" or "<f8".
func writeNPY(t *testing.T, path, dtype string, rows, cols int, values []float64) {
	t.Helper()
	if len(values) != rows*cols {
		t.Fatalf("writeNPY: %d values for shape %dx%d", len(values), rows, cols)
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }", dtype, rows, cols)
	// magic(6) + version(2) + len(2) + header + '\n' must be a multiple of 64
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range values {
		switch dtype {
		case "<f4":
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(float32(v)))
		case "<f8":
			_ = binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
		default:
			t.Fatalf("writeNPY: unsupported dtype %s", dtype)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write npy: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type fixture struct {
	dir     string
	sources Sources
}

// newFixture builds a 5-document corpus with a 5x2 deep matrix and a 5x3 fast matrix.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	docsPath := writeCSV(t, dir, testDocs, false)

	deep := filepath.Join(dir, "deep.npy")
	writeNPY(t, deep, "<f4", 5, 2, []float64{
		0.8, 0.1,
		0.2, 0.9,
		1, 0,
		-1, 0,
		0, -1,
	})
	writeFile(t, filepath.Join(dir, "deep.yaml"), `space: deep
model: hkunlp/instructor-large
instruction: Representa este texto
template_version: instructor-v1
dimensions: 2
rows: 5
normalized: true
`)

	fast := filepath.Join(dir, "fast.npy")
	writeNPY(t, fast, "<f8", 5, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		0.5, 0.5, 0,
		0, 0.5, 0.5,
	})

	return fixture{
		dir: dir,
		sources: Sources{
			Documents: DocumentSource{Path: docsPath},
			Matrices: map[domain.Space]MatrixSource{
				domain.Deep: {Path: deep, ExpectedTemplateVersion: domain.TemplateInstructorV1},
				domain.FastMultilingual: {
					Path:     fast,
					Fallback: domain.Manifest{Model: "distiluse-base-multilingual-cased-v2"},
				},
			},
		},
	}
}
