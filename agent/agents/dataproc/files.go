package dataproc

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Load reads a .json document or a .csv table with a header row. CSV cells
// stay strings; numeric rules and stats coerce them.
func Load(path string) (any, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrIO, path, err)
		}
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", contractx.ErrFormat, path, err)
		}
		return data, nil
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", contractx.ErrValidation, ext)
	}
}

func loadCSV(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", contractx.ErrIO, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s header: %v", contractx.ErrFormat, path, err)
	}

	rows := []any{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrFormat, path, err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
}

// Save writes data as indented JSON, or as CSV when it is a list of
// objects. CSV columns are the sorted union of every row's keys.
func Save(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", contractx.ErrIO, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", contractx.ErrFormat, path, err)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("%w: write %s: %v", contractx.ErrIO, path, err)
		}
		return nil
	case ".csv":
		return saveCSV(path, data)
	default:
		return fmt.Errorf("%w: unsupported file type %q", contractx.ErrValidation, ext)
	}
}

func saveCSV(path string, data any) error {
	list, ok := data.([]any)
	if !ok {
		return fmt.Errorf("%w: csv output needs a list of objects, got %s", contractx.ErrValidation, kindOf(data))
	}
	rows := make([]map[string]any, 0, len(list))
	var header []string
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: csv row %d is %s, not an object", contractx.ErrValidation, i, kindOf(item))
		}
		for k := range row {
			if !slices.Contains(header, k) {
				header = append(header, k)
			}
		}
		rows = append(rows, row)
	}
	slices.Sort(header)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", contractx.ErrIO, path, err)
	}
	w := csv.NewWriter(f)
	if len(header) > 0 {
		_ = w.Write(header)
	}
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, col := range header {
			if v, ok := row[col]; ok && v != nil {
				rec[i] = fmt.Sprint(v)
			}
		}
		_ = w.Write(rec)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %v", contractx.ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", contractx.ErrIO, path, err)
	}
	return nil
}
