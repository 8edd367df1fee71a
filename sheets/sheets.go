// Package sheets stores the report tables written by the sync job.
//
// A workbook is a set of named sheets, each a sparse list of rows addressed
// from 1 like a spreadsheet. Sheets are created on first use by any
// operation.
package sheets

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"
)

type Row []any

type Workbook interface {
	Sheets(ctx context.Context) ([]string, error)
	// LastRow is the index of the last written row, 0 when the sheet is empty.
	LastRow(ctx context.Context, sheet string) (int, error)
	Clear(ctx context.Context, sheet string) error
	// DeleteRows removes count rows starting at from and shifts the rest up.
	DeleteRows(ctx context.Context, sheet string, from, count int) error
	WriteRows(ctx context.Context, sheet string, start int, rows []Row) error
	// ReadRows returns rows 1..LastRow; gaps come back as nil rows.
	ReadRows(ctx context.Context, sheet string) ([]Row, error)
}

var ErrBadRange = errors.New("sheets: row index out of range")

// Memory is an in-process workbook.
type Memory struct {
	mu     sync.Mutex
	order  []string
	sheets map[string][]Row
}

func NewMemory() *Memory {
	return &Memory{sheets: map[string][]Row{}}
}

func (m *Memory) ensure(sheet string) []Row {
	rows, ok := m.sheets[sheet]
	if !ok {
		m.order = append(m.order, sheet)
		m.sheets[sheet] = nil
	}
	return rows
}

func (m *Memory) Sheets(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order), nil
}

func (m *Memory) LastRow(ctx context.Context, sheet string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ensure(sheet)), nil
}

func (m *Memory) Clear(ctx context.Context, sheet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(sheet)
	m.sheets[sheet] = nil
	return nil
}

func (m *Memory) DeleteRows(ctx context.Context, sheet string, from, count int) error {
	if from < 1 || count < 0 {
		return ErrBadRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.ensure(sheet)
	if from > len(rows) || count == 0 {
		return nil
	}
	end := min(from-1+count, len(rows))
	m.sheets[sheet] = slices.Delete(slices.Clone(rows), from-1, end)
	return nil
}

func (m *Memory) WriteRows(ctx context.Context, sheet string, start int, rows []Row) error {
	if start < 1 {
		return ErrBadRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := slices.Clone(m.ensure(sheet))
	if need := start - 1 + len(rows); need > len(cur) {
		cur = append(cur, make([]Row, need-len(cur))...)
	}
	for i, r := range rows {
		cur[start-1+i] = slices.Clone(r)
	}
	m.sheets[sheet] = cur
	return nil
}

func (m *Memory) ReadRows(ctx context.Context, sheet string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.ensure(sheet)
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}
