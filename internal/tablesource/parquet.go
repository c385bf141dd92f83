package tablesource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const readBatchSize = 1024

// readParquet reads a flat Parquet file. Column paths become headers and
// cell values keep their physical type (float64, int64, string, bool).
func readParquet(data []byte) (*Table, error) {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	cols := pf.Schema().Columns()
	t := &Table{Headers: make([]string, len(cols))}
	for i, path := range cols {
		t.Headers[i] = strings.Join(path, ".")
	}

	buf := make([]parquet.Row, readBatchSize)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, t *Table) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			rec := make(map[string]any, len(t.Headers))
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < len(t.Headers) {
					rec[t.Headers[c]] = parquetValue(v)
				}
			}
			t.Rows = append(t.Rows, rec)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func parquetValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}

// WriteParquet writes rows using the parquet tags of T.
func WriteParquet[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
