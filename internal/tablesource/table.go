// Package tablesource turns uploaded or local files into tables of
// header-keyed rows. It knows nothing about feeds; callers pass a header
// hint so banner rows above the real header can be skipped.
package tablesource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format (want .xlsx, .xls, .csv or .parquet)")

// maxHeaderScan bounds how far down a sheet the header row is searched for.
const maxHeaderScan = 20

// Table is a sheet of raw rows keyed by their header cell.
type Table struct {
	Sheet   string
	Headers []string
	Rows    []map[string]any
}

// Options tunes how a grid is turned into a Table.
type Options struct {
	// HeaderHint reports whether a row of cells is the header row. When nil,
	// or when no row in the first 20 matches, the first non-blank row is used.
	HeaderHint func(cells []string) bool
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// FromRecords builds a table from in-memory records, one value per header.
func FromRecords(headers []string, records ...[]any) *Table {
	t := &Table{Headers: append([]string(nil), headers...)}
	for _, rec := range records {
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ReadFile opens path and reads it according to its extension.
func ReadFile(path string, opts Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ReadBytes(filepath.Base(path), data, opts)
}

// Read buffers r fully and reads it according to the extension of name.
func Read(name string, r io.Reader, opts Options) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return ReadBytes(name, data, opts)
}

// ReadBytes reads an in-memory file according to the extension of name.
func ReadBytes(name string, data []byte, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readXLSX(bytes.NewReader(data), opts)
	case ".xls":
		return readXLS(bytes.NewReader(data), opts)
	case ".csv", ".txt":
		return readCSV(data, opts)
	case ".parquet":
		return readParquet(data)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
}

// fromGrid locates the header row and keys every following non-blank row
// by its header. Duplicate or blank header cells are ignored after the
// first occurrence.
func fromGrid(sheet string, grid [][]string, opts Options) *Table {
	t := &Table{Sheet: sheet}
	hdr := headerIndex(grid, opts.HeaderHint)
	if hdr < 0 {
		return t
	}

	type column struct {
		idx  int
		name string
	}
	var cols []column
	seen := make(map[string]bool)
	for i, cell := range grid[hdr] {
		name := strings.TrimSpace(cell)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, column{idx: i, name: name})
		t.Headers = append(t.Headers, name)
	}

	for _, cells := range grid[hdr+1:] {
		if blank(cells) {
			continue
		}
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			v := ""
			if c.idx < len(cells) {
				v = cells[c.idx]
			}
			row[c.name] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func headerIndex(grid [][]string, hint func([]string) bool) int {
	first := -1
	for i := 0; i < len(grid) && i < maxHeaderScan; i++ {
		if blank(grid[i]) {
			continue
		}
		if first < 0 {
			first = i
		}
		if hint != nil && hint(grid[i]) {
			return i
		}
	}
	if first < 0 {
		for i := maxHeaderScan; i < len(grid); i++ {
			if !blank(grid[i]) {
				return i
			}
		}
	}
	return first
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
