package corpus

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

const utf8BOM = "\ufeff"

func readDocuments(src DocumentSource) ([]domain.Document, error) {
	cols := src.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns
	}

	format := strings.ToLower(src.Format)
	if format == "" {
		switch strings.ToLower(filepath.Ext(src.Path)) {
		case ".parquet", ".pq":
			format = FormatParquet
		default:
			format = FormatCSV
		}
	}

	switch format {
	case FormatCSV:
		return readCSV(src.Path, cols)
	case FormatParquet:
		return readParquet(src.Path, cols)
	default:
		return nil, fmt.Errorf("unsupported documents format %q", src.Format)
	}
}

// columnIndex maps each document field to its position in a header row.
type columnIndex struct {
	title, author, subject, date, abstract int
}

func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	lookup := func(name string) (int, error) {
		i, ok := pos[norm.NFC.String(name)]
		if !ok {
			return 0, fmt.Errorf("required column %q not found", name)
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	if idx.title, err = lookup(cols.Title); err != nil {
		return idx, err
	}
	if idx.author, err = lookup(cols.Author); err != nil {
		return idx, err
	}
	if idx.subject, err = lookup(cols.Subject); err != nil {
		return idx, err
	}
	if idx.date, err = lookup(cols.Date); err != nil {
		return idx, err
	}
	if idx.abstract, err = lookup(cols.Abstract); err != nil {
		return idx, err
	}
	return idx, nil
}

func (c columnIndex) document(field func(int) string) domain.Document {
	return domain.Document{
		Title:    field(c.title),
		Author:   field(c.author),
		Subject:  field(c.subject),
		Date:     field(c.date),
		Abstract: field(c.abstract),
	}
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func readCSV(path string, cols Columns) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := resolveColumns(header, cols)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		docs = append(docs, idx.document(func(i int) string { return clean(rec[i]) }))
	}
	return docs, nil
}

func readParquet(path string, cols Columns) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	schema := pf.Schema()
	leaf := func(name string) (int, error) {
		col, ok := schema.Lookup(name)
		if !ok {
			return 0, fmt.Errorf("required column %q not found", name)
		}
		return col.ColumnIndex, nil
	}
	var idx columnIndex
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{cols.Title, &idx.title},
		{cols.Author, &idx.author},
		{cols.Subject, &idx.subject},
		{cols.Date, &idx.date},
		{cols.Abstract, &idx.abstract},
	} {
		if *c.dst, err = leaf(c.name); err != nil {
			return nil, err
		}
	}

	docs := make([]domain.Document, 0, pf.NumRows())
	buf := make([]parquet.Row, 64)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				values := make(map[int]string, len(row))
				for _, v := range row {
					if v.IsNull() {
						continue
					}
					if v.Kind() == parquet.ByteArray {
						values[v.Column()] = string(v.ByteArray())
					} else {
						values[v.Column()] = v.String()
					}
				}
				docs = append(docs, idx.document(func(i int) string { return clean(values[i]) }))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("read rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close rows: %w", err)
		}
	}
	return docs, nil
}
