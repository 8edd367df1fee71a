package sheets

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `
CREATE TABLE report_sheet (name TEXT PRIMARY KEY, created_at TIMESTAMP NOT NULL);
CREATE TABLE report_row (
	sheet TEXT NOT NULL REFERENCES report_sheet (name) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	cells TEXT NOT NULL,
	PRIMARY KEY (sheet, idx)
);`

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "sheets.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return NewSQLite(db)
}

func workbooks(t *testing.T) map[string]Workbook {
	return map[string]Workbook{
		"memory": NewMemory(),
		"sqlite": openSQLite(t),
	}
}

func texts(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if len(r) > 0 {
			out[i], _ = r[0].(string)
		}
	}
	return out
}

func TestWorkbook(t *testing.T) {
	ctx := context.Background()
	for name, wb := range workbooks(t) {
		t.Run(name, func(t *testing.T) {
			last, err := wb.LastRow(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, 0, last)

			require.NoError(t, wb.WriteRows(ctx, "A", 1, []Row{{"h"}, {"r1"}, {"r2"}, {"r3"}, {"r4"}}))
			last, err = wb.LastRow(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, 5, last)

			require.NoError(t, wb.DeleteRows(ctx, "A", 2, 2))
			rows, err := wb.ReadRows(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, []string{"h", "r3", "r4"}, texts(rows))

			require.NoError(t, wb.WriteRows(ctx, "A", 2, []Row{{"x"}}))
			rows, err = wb.ReadRows(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, []string{"h", "x", "r4"}, texts(rows))

			require.NoError(t, wb.Clear(ctx, "B"))
			require.NoError(t, wb.Clear(ctx, "A"))
			rows, err = wb.ReadRows(ctx, "A")
			require.NoError(t, err)
			assert.Empty(t, rows)

			names, err := wb.Sheets(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B"}, names)

			assert.ErrorIs(t, wb.WriteRows(ctx, "A", 0, []Row{{"x"}}), ErrBadRange)
			assert.ErrorIs(t, wb.DeleteRows(ctx, "A", 0, 1), ErrBadRange)
		})
	}
}

func TestWorkbook_Gaps(t *testing.T) {
	ctx := context.Background()
	for name, wb := range workbooks(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, wb.WriteRows(ctx, "G", 3, []Row{{"c"}}))
			rows, err := wb.ReadRows(ctx, "G")
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Empty(t, rows[0])
			assert.Empty(t, rows[1])
			assert.Equal(t, "c", rows[2][0])
		})
	}
}

func TestSQLite_NumbersDecodeAsFloat(t *testing.T) {
	ctx := context.Background()
	wb := openSQLite(t)
	require.NoError(t, wb.WriteRows(ctx, "N", 1, []Row{{"a", 3}}))
	rows, err := wb.ReadRows(ctx, "N")
	require.NoError(t, err)
	assert.Equal(t, []Row{{"a", float64(3)}}, rows)
}
