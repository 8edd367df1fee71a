package sheets

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// SQLite keeps the workbook in the report_sheet and report_row tables. Cells
// are stored as a JSON array per row, so numbers read back as float64.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) ensure(ctx context.Context, db execer, sheet string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO report_sheet (name, created_at) VALUES (?, ?)`,
		sheet, s.now().UTC(),
	)
	return errors.Wrapf(err, "sheets: create %q", sheet)
}

func (s *SQLite) Sheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM report_sheet ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "sheets: list")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "sheets: list.scan")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "sheets: list")
}

func (s *SQLite) LastRow(ctx context.Context, sheet string) (int, error) {
	if err := s.ensure(ctx, s.db, sheet); err != nil {
		return 0, err
	}
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(idx), 0) FROM report_row WHERE sheet = ?`, sheet,
	).Scan(&last)
	return last, errors.Wrapf(err, "sheets: last row of %q", sheet)
}

func (s *SQLite) Clear(ctx context.Context, sheet string) error {
	if err := s.ensure(ctx, s.db, sheet); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM report_row WHERE sheet = ?`, sheet)
	return errors.Wrapf(err, "sheets: clear %q", sheet)
}

func (s *SQLite) DeleteRows(ctx context.Context, sheet string, from, count int) error {
	if from < 1 || count < 0 {
		return ErrBadRange
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sheets: begin")
	}
	defer tx.Rollback()

	if err = s.ensure(ctx, tx, sheet); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	end := from + count
	_, err = tx.ExecContext(ctx,
		`DELETE FROM report_row WHERE sheet = ? AND idx >= ? AND idx < ?`,
		sheet, from, end,
	)
	if err != nil {
		return errors.Wrapf(err, "sheets: delete rows of %q", sheet)
	}

	// shift through negative indexes so no intermediate update collides
	// with the primary key
	_, err = tx.ExecContext(ctx,
		`UPDATE report_row SET idx = -(idx - ?) WHERE sheet = ? AND idx >= ?`,
		count, sheet, end,
	)
	if err != nil {
		return errors.Wrapf(err, "sheets: shift rows of %q", sheet)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE report_row SET idx = -idx WHERE sheet = ? AND idx < 0`, sheet,
	)
	if err != nil {
		return errors.Wrapf(err, "sheets: shift rows of %q", sheet)
	}

	return errors.Wrap(tx.Commit(), "sheets: commit")
}

func (s *SQLite) WriteRows(ctx context.Context, sheet string, start int, rows []Row) error {
	if start < 1 {
		return ErrBadRange
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sheets: begin")
	}
	defer tx.Rollback()

	if err = s.ensure(ctx, tx, sheet); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO report_row (sheet, idx, cells) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "sheets: write.prepare")
	}
	defer stmt.Close()

	for i, r := range rows {
		if r == nil {
			r = Row{}
		}
		cells, err := json.Marshal(r)
		if err != nil {
			return errors.Wrapf(err, "sheets: encode row %d of %q", start+i, sheet)
		}
		if _, err = stmt.ExecContext(ctx, sheet, start+i, string(cells)); err != nil {
			return errors.Wrapf(err, "sheets: write row %d of %q", start+i, sheet)
		}
	}

	return errors.Wrap(tx.Commit(), "sheets: commit")
}

func (s *SQLite) ReadRows(ctx context.Context, sheet string) ([]Row, error) {
	if err := s.ensure(ctx, s.db, sheet); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, cells FROM report_row WHERE sheet = ? ORDER BY idx`, sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "sheets: read %q", sheet)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			idx   int
			cells string
		)
		if err := rows.Scan(&idx, &cells); err != nil {
			return nil, errors.Wrapf(err, "sheets: read %q", sheet)
		}
		var r Row
		if err := json.Unmarshal([]byte(cells), &r); err != nil {
			return nil, errors.Wrapf(err, "sheets: decode row %d of %q", idx, sheet)
		}
		for len(out) < idx-1 {
			out = append(out, nil)
		}
		out = append(out, r)
	}
	return out, errors.Wrapf(rows.Err(), "sheets: read %q", sheet)
}
