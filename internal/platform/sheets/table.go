// Package sheets wraps a single worksheet of an .xlsx workbook as a
// row-oriented table with a fixed header row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ErrRowNotFound indicates a row lookup by index or key failed.
var ErrRowNotFound = errors.New("sheets: row not found")

// Table provides append, read, update and delete access over worksheet rows.
// Mutations rewrite the workbook on disk. Access is serialized with a mutex
// within this process only; concurrent writers from other processes are not
// coordinated.
type Table struct {
	mu      sync.Mutex
	path    string
	sheet   string
	headers []string
}

// NewTable binds a workbook path and worksheet name to the given header row.
// The workbook is created with the header row on first write when missing.
func NewTable(path, sheet string, headers []string) *Table {
	return &Table{path: path, sheet: sheet, headers: headers}
}

// Headers returns the configured header row.
func (t *Table) Headers() []string {
	out := make([]string, len(t.headers))
	copy(out, t.headers)
	return out
}

// Rows returns all data rows keyed by header name. Trailing missing cells
// read as empty strings.
func (t *Table) Rows(ctx context.Context) ([]map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	raw, err := f.GetRows(t.sheet)
	if err != nil {
		return nil, fmt.Errorf("sheets: read rows: %w", err)
	}
	if len(raw) <= 1 {
		return nil, nil
	}

	// Map columns by the header row actually stored, so column order in the
	// workbook does not have to match the configured order.
	colIndex := make(map[int]string, len(raw[0]))
	for i, name := range raw[0] {
		colIndex[i] = name
	}

	rows := make([]map[string]string, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(map[string]string, len(t.headers))
		for _, h := range t.headers {
			row[h] = ""
		}
		for i, cell := range cells {
			if name, ok := colIndex[i]; ok {
				row[name] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Append adds one row after the last data row.
func (t *Table) Append(ctx context.Context, row map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	raw, err := f.GetRows(t.sheet)
	if err != nil {
		return fmt.Errorf("sheets: read rows: %w", err)
	}
	target := len(raw) + 1
	if err := f.SetSheetRow(t.sheet, cellRef(0, target), t.rowValues(row)); err != nil {
		return fmt.Errorf("sheets: write row: %w", err)
	}
	return t.save(f)
}

// Update replaces the data row at the given zero-based index.
func (t *Table) Update(ctx context.Context, index int, row map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if err := t.checkIndex(f, index); err != nil {
		return err
	}
	// Sheet row = data index + 2: worksheets are 1-based and row 1 is the header.
	if err := f.SetSheetRow(t.sheet, cellRef(0, index+2), t.rowValues(row)); err != nil {
		return fmt.Errorf("sheets: write row: %w", err)
	}
	return t.save(f)
}

// Delete removes the data row at the given zero-based index. Rows below it
// shift up, which is why callers address rows by stable key and resolve the
// index immediately before deleting.
func (t *Table) Delete(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if err := t.checkIndex(f, index); err != nil {
		return err
	}
	if err := f.RemoveRow(t.sheet, index+2); err != nil {
		return fmt.Errorf("sheets: remove row: %w", err)
	}
	return t.save(f)
}

func (t *Table) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(t.path)
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("sheets: open %s: %w", t.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return nil, fmt.Errorf("sheets: create dir: %w", err)
	}
	f = excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if defaultSheet != t.sheet {
		if _, err := f.NewSheet(t.sheet); err != nil {
			return nil, fmt.Errorf("sheets: new sheet: %w", err)
		}
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return nil, fmt.Errorf("sheets: drop default sheet: %w", err)
		}
	}
	header := make([]interface{}, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("sheets: write header: %w", err)
	}
	if err := f.SaveAs(t.path); err != nil {
		return nil, fmt.Errorf("sheets: save new workbook: %w", err)
	}
	return f, nil
}

func (t *Table) save(f *excelize.File) error {
	if err := f.SaveAs(t.path); err != nil {
		return fmt.Errorf("sheets: save %s: %w", t.path, err)
	}
	return nil
}

func (t *Table) checkIndex(f *excelize.File, index int) error {
	raw, err := f.GetRows(t.sheet)
	if err != nil {
		return fmt.Errorf("sheets: read rows: %w", err)
	}
	if index < 0 || index >= len(raw)-1 {
		return ErrRowNotFound
	}
	return nil
}

func (t *Table) rowValues(row map[string]string) *[]interface{} {
	values := make([]interface{}, len(t.headers))
	for i, h := range t.headers {
		values[i] = row[h]
	}
	return &values
}

func cellRef(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col+1, row)
	return ref
}
