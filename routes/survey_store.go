package routes

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/mbolis/barrio-survey/wizard"
)

func createSession(ctx context.Context, db *sql.DB, id string, state wizard.State, now time.Time) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO wizard_session (id, step, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, int(state.Step), string(data), now, now,
	)
	return err
}

// loadSession returns sql.ErrNoRows for unknown or expired sessions.
func loadSession(ctx context.Context, db *sql.DB, id string, notBefore time.Time) (state wizard.State, err error) {
	var data string
	err = db.QueryRowContext(ctx, `
		SELECT state FROM wizard_session
		WHERE id = ?
			AND updated_at >= ?`,
		id, notBefore,
	).Scan(&data)
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(data), &state)
	return
}

func saveSession(ctx context.Context, db *sql.DB, id string, state wizard.State, now time.Time) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE wizard_session
		SET step = ?, state = ?, updated_at = ?
		WHERE id = ?`,
		int(state.Step), string(data), now, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func purgeSessions(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM wizard_session WHERE updated_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
