package corpus

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func TestLoad_Success(t *testing.T) {
	fx := newFixture(t)

	s, err := Load(context.Background(), fx.sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RowCount() != 5 {
		t.Fatalf("expected 5 rows, got %d", s.RowCount())
	}

	doc, err := s.DocumentAt(2)
	if err != nil {
		t.Fatalf("DocumentAt: %v", err)
	}
	if doc != testDocs[2] {
		t.Errorf("DocumentAt(2) = %+v, want %+v", doc, testDocs[2])
	}

	deep, err := s.MatrixFor(domain.Deep)
	if err != nil {
		t.Fatalf("MatrixFor(deep): %v", err)
	}
	if deep.Rows() != 5 || deep.Cols() != 2 {
		t.Errorf("deep shape = %dx%d, want 5x2", deep.Rows(), deep.Cols())
	}
	if got := deep.Row(2); got[0] != 1 || got[1] != 0 {
		t.Errorf("deep row 2 = %v", got)
	}

	fast, err := s.MatrixFor(domain.FastMultilingual)
	if err != nil {
		t.Fatalf("MatrixFor(fast): %v", err)
	}
	if fast.Cols() != 3 || fast.Row(3)[0] != 0.5 {
		t.Errorf("unexpected fast matrix: cols=%d row3=%v", fast.Cols(), fast.Row(3))
	}
}

func TestLoad_Manifests(t *testing.T) {
	fx := newFixture(t)
	s, err := Load(context.Background(), fx.sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deep := s.Manifest(domain.Deep)
	if deep.Instruction != "Representa este texto" || deep.TemplateVersion != domain.TemplateInstructorV1 {
		t.Errorf("deep manifest not read from sidecar: %+v", deep)
	}
	if got := deep.Template().Apply("q"); got != "Representa este texto: q" {
		t.Errorf("deep template = %q", got)
	}

	fast := s.Manifest(domain.FastMultilingual)
	if fast.Model != "distiluse-base-multilingual-cased-v2" || fast.Space != domain.FastMultilingual {
		t.Errorf("fallback manifest not applied: %+v", fast)
	}
	if fast.Rows != 5 || fast.Dimensions != 3 {
		t.Errorf("fallback manifest shape = %dx%d, want 5x3", fast.Rows, fast.Dimensions)
	}
}

func TestLoad_DataLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, fx *fixture)
	}{
		{
			name: "missing documents file",
			mutate: func(_ *testing.T, fx *fixture) {
				fx.sources.Documents.Path = filepath.Join(fx.dir, "nope.csv")
			},
		},
		{
			name: "missing matrix file",
			mutate: func(_ *testing.T, fx *fixture) {
				ms := fx.sources.Matrices[domain.FastMultilingual]
				ms.Path = filepath.Join(fx.dir, "nope.npy")
				fx.sources.Matrices[domain.FastMultilingual] = ms
			},
		},
		{
			name: "space without matrix",
			mutate: func(_ *testing.T, fx *fixture) {
				delete(fx.sources.Matrices, domain.Deep)
			},
		},
		{
			name: "matrix row count differs from documents",
			mutate: func(t *testing.T, fx *fixture) {
				writeNPY(t, fx.sources.Matrices[domain.FastMultilingual].Path, "<f4", 4, 3, make([]float64, 12))
			},
		},
		{
			name: "NaN in matrix",
			mutate: func(t *testing.T, fx *fixture) {
				writeNPY(t, fx.sources.Matrices[domain.FastMultilingual].Path, "<f8", 5, 3, []float64{
					math.NaN(), 0, 0,
					0, 1, 0,
					0, 0, 1,
					0.5, 0.5, 0,
					0, 0.5, 0.5,
				})
			},
		},
		{
			name: "float64 value overflows float32",
			mutate: func(t *testing.T, fx *fixture) {
				writeNPY(t, fx.sources.Matrices[domain.FastMultilingual].Path, "<f8", 5, 3, []float64{
					1, 0, 0,
					0, 1, 0,
					0, 0, 1,
					0.5, 0.5, 0,
					0, 0.5, 1e300,
				})
			},
		},
		{
			name: "infinity in float32 matrix",
			mutate: func(t *testing.T, fx *fixture) {
				writeNPY(t, fx.sources.Matrices[domain.Deep].Path, "<f4", 5, 2, []float64{
					0.8, 0.1,
					0.2, math.Inf(1),
					1, 0,
					-1, 0,
					0, -1,
				})
			},
		},
		{
			name: "missing required column",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, fx.sources.Documents.Path, "Título,Autor,Fecha,Resumen\na,b,c,d\n")
			},
		},
		{
			name: "header only",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, fx.sources.Documents.Path, "Título,Autor,Materia,Fecha,Resumen\n")
			},
		},
		{
			name: "ragged csv row",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, fx.sources.Documents.Path, "Título,Autor,Materia,Fecha,Resumen\na,b,c\n")
			},
		},
		{
			name: "manifest template version mismatch",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, filepath.Join(fx.dir, "deep.yaml"), "space: deep\ntemplate_version: instructor-v0\n")
			},
		},
		{
			name: "manifest dimension mismatch",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, filepath.Join(fx.dir, "deep.yaml"),
					"space: deep\ntemplate_version: instructor-v1\ndimensions: 768\n")
			},
		},
		{
			name: "manifest declares other space",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, filepath.Join(fx.dir, "deep.yaml"), "space: fast\ntemplate_version: instructor-v1\n")
			},
		},
		{
			name: "malformed manifest",
			mutate: func(t *testing.T, fx *fixture) {
				writeFile(t, filepath.Join(fx.dir, "deep.yaml"), "space: [unterminated\n")
			},
		},
		{
			name: "malformed npy",
			mutate: func(t *testing.T, fx *fixture) {
				path := fx.sources.Matrices[domain.FastMultilingual].Path
				if err := os.WriteFile(path, []byte("not a numpy file"), 0o644); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "unsupported format",
			mutate: func(_ *testing.T, fx *fixture) {
				fx.sources.Documents.Format = "xlsx"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			tt.mutate(t, &fx)

			s, err := Load(context.Background(), fx.sources)
			if !errors.Is(err, domain.ErrDataLoad) {
				t.Fatalf("expected ErrDataLoad, got %v", err)
			}
			if s != nil {
				t.Error("no store must be returned on failure")
			}
		})
	}
}

func TestLoad_StripsBOMAndNormalizes(t *testing.T) {
	fx := newFixture(t)
	// decomposed form: o followed by a combining acute accent
	decomposed := []domain.Document{{Title: "Reflexio\u0301n", Author: "a", Subject: "s", Date: "d", Abstract: "x"}}
	docs := append(decomposed, testDocs[1:]...)
	writeCSV(t, fx.dir, docs, true)

	s, err := Load(context.Background(), fx.sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _ := s.DocumentAt(0)
	if doc.Title != "Reflexión" {
		t.Errorf("expected NFC title, got %q", doc.Title)
	}
}

func TestLoad_CustomColumns(t *testing.T) {
	fx := newFixture(t)
	writeFile(t, fx.sources.Documents.Path,
		"abstract,title,extra,author,subject,date\n"+
			"r0,t0,x,a0,s0,d0\nr1,t1,x,a1,s1,d1\nr2,t2,x,a2,s2,d2\nr3,t3,x,a3,s3,d3\nr4,t4,x,a4,s4,d4\n")
	fx.sources.Documents.Columns = Columns{
		Title: "title", Author: "author", Subject: "subject", Date: "date", Abstract: "abstract",
	}

	s, err := Load(context.Background(), fx.sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, _ := s.DocumentAt(4)
	want := domain.Document{Title: "t4", Author: "a4", Subject: "s4", Date: "d4", Abstract: "r4"}
	if doc != want {
		t.Errorf("DocumentAt(4) = %+v, want %+v", doc, want)
	}
}

type parquetRow struct {
	Title    string `parquet:"title"`
	Author   string `parquet:"author"`
	Subject  string `parquet:"subject"`
	Date     string `parquet:"date"`
	Abstract string `parquet:"abstract"`
}

func TestLoad_Parquet(t *testing.T) {
	fx := newFixture(t)
	path := filepath.Join(fx.dir, "corpus.parquet")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := parquet.NewGenericWriter[parquetRow](f)
	rows := make([]parquetRow, len(testDocs))
	for i, d := range testDocs {
		rows[i] = parquetRow{Title: d.Title, Author: d.Author, Subject: d.Subject, Date: d.Date, Abstract: d.Abstract}
	}
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	fx.sources.Documents = DocumentSource{
		Path: path,
		Columns: Columns{
			Title: "title", Author: "author", Subject: "subject", Date: "date", Abstract: "abstract",
		},
	}
	s, err := Load(context.Background(), fx.sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range testDocs {
		got, _ := s.DocumentAt(i)
		if got != want {
			t.Errorf("row %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestDocumentAt_OutOfRange(t *testing.T) {
	s, err := Load(context.Background(), newFixture(t).sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, i := range []int{-1, 5, 100} {
		_, err := s.DocumentAt(i)
		if !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Errorf("DocumentAt(%d): expected ErrIndexOutOfRange, got %v", i, err)
		}
	}
}

func TestDocuments_Paging(t *testing.T) {
	s, err := Load(context.Background(), newFixture(t).sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		offset, limit int
		want          int
	}{
		{0, 3, 3},
		{3, 10, 2},
		{5, 1, 0},
		{-1, 2, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		got := s.Documents(tt.offset, tt.limit)
		if len(got) != tt.want {
			t.Errorf("Documents(%d, %d) returned %d, want %d", tt.offset, tt.limit, len(got), tt.want)
		}
	}

	page := s.Documents(1, 1)
	page[0].Title = "mutated"
	if doc, _ := s.DocumentAt(1); doc.Title == "mutated" {
		t.Error("Documents must return a copy")
	}
}

func TestMatrixFor_UnknownSpace(t *testing.T) {
	s, err := Load(context.Background(), newFixture(t).sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.MatrixFor(domain.Space(42)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWriteManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	want := domain.Manifest{
		Space:           domain.Deep,
		Model:           "hkunlp/instructor-large",
		Instruction:     "Representa",
		TemplateVersion: domain.TemplateInstructorV1,
		Dimensions:      768,
		Rows:            1000,
		Normalized:      true,
	}
	if err := WriteManifest(path, want); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	got, err := readManifest(path)
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestDescribeMatrix(t *testing.T) {
	fx := newFixture(t)
	base := domain.Manifest{Space: domain.FastMultilingual, Model: "distiluse-base-multilingual-cased-v2"}

	got, err := DescribeMatrix(fx.sources.Matrices[domain.FastMultilingual].Path, base)
	if err != nil {
		t.Fatalf("DescribeMatrix: %v", err)
	}
	want := base
	want.Rows, want.Dimensions = 5, 3
	if got != want {
		t.Errorf("manifest = %+v, want %+v", got, want)
	}

	bad := filepath.Join(fx.dir, "bad.npy")
	writeNPY(t, bad, "<f4", 1, 2, []float64{math.NaN(), 1})
	if _, err := DescribeMatrix(bad, base); !errors.Is(err, domain.ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for NaN matrix, got %v", err)
	}
}
