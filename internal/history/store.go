// internal/history/store.go
//
// SQLite-backed record of guessing sessions.
// A row is inserted when a session starts, updated after every answer and
// finished when the engine converges. Signed-in players also get their
// counters bumped in the users table.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/guessage/internal/guess"
)

// Owner identifies who started a session: a user or an anonymous cookie.
type Owner struct {
	UserID string
	AnonID string
}

// ErrSessionNotFound is returned when an update matches no stored session.
var ErrSessionNotFound = errors.New("history: session not found")

// Row is one stored session as listed to its owner.
type Row struct {
	ID         string `json:"id"`
	Max        int    `json:"max"`
	FirstGuess int    `json:"firstGuess"`
	FinalGuess *int   `json:"finalGuess,omitempty"`
	Steps      int    `json:"steps"`
	Status     string `json:"status"`
	Trail      string `json:"trail"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Summary aggregates every stored session.
type Summary struct {
	Sessions  int     `json:"sessions"`
	Converged int     `json:"converged"`
	AvgSteps  float64 `json:"avgSteps"` // over converged sessions
}

// Store wraps a *sql.DB holding the users and sessions tables.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Begin inserts a new searching row for s.
func (st *Store) Begin(ctx context.Context, o Owner, s *guess.Session, at time.Time) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO sessions (id, user_id, anonymous_id, max_value, first_guess, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, nullable(o.UserID), nullable(o.AnonID), s.Max, s.FirstGuess,
		string(s.State), at.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if o.UserID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET sessions_played = sessions_played + 1 WHERE id=?`, o.UserID); err != nil {
			return fmt.Errorf("bump played: %w", err)
		}
	}
	return tx.Commit()
}

// Step stores the answers given so far. Rows are keyed by session ID only,
// so a player who signs in or out mid-session keeps updating the same row.
func (st *Store) Step(ctx context.Context, s *guess.Session) error {
	res, err := st.db.ExecContext(ctx,
		`UPDATE sessions SET steps=?, trail=? WHERE id=?`,
		s.Steps, joinTrail(s.Trail), s.ID)
	if err != nil {
		return fmt.Errorf("step session: %w", err)
	}
	return expectRow(res)
}

// Finish marks s converged and bumps the converged counter of whichever user
// owns the row now, in one transaction.
func (st *Store) Finish(ctx context.Context, s *guess.Session, at time.Time) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET steps=?, trail=?, status=?, final_guess=?, finished_at=? WHERE id=?`,
		s.Steps, joinTrail(s.Trail), string(s.State), s.Range.Guess,
		at.UTC().Format(time.RFC3339), s.ID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE users SET sessions_converged = sessions_converged + 1
        WHERE id = (SELECT user_id FROM sessions WHERE id=?)`, s.ID); err != nil {
		return fmt.Errorf("bump converged: %w", err)
	}
	return tx.Commit()
}

// Mine lists a user's most recent sessions, newest first.
// A limit <= 0 defaults to 50.
func (st *Store) Mine(ctx context.Context, userID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := st.db.QueryContext(ctx, `
        SELECT id, max_value, first_guess, final_guess, steps, status, trail, started_at, COALESCE(finished_at, '')
        FROM sessions
        WHERE user_id=?
        ORDER BY started_at DESC, rowid DESC
        LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Row, 0, limit)
	for rows.Next() {
		var r Row
		var final sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Max, &r.FirstGuess, &final, &r.Steps, &r.Status,
			&r.Trail, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if final.Valid {
			v := int(final.Int64)
			r.FinalGuess = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary counts sessions and averages the steps taken to converge.
func (st *Store) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	var avg sql.NullFloat64
	err := st.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
               AVG(CASE WHEN status = ? THEN steps END)
        FROM sessions`, string(guess.StateConverged), string(guess.StateConverged),
	).Scan(&s.Sessions, &s.Converged, &avg)
	if err != nil {
		return Summary{}, err
	}
	s.AvgSteps = avg.Float64
	return s, nil
}

// ClaimAnon transfers anonymous sessions to a user account after sign-in.
// The user's counters grow by the sessions claimed, so played and converged
// always count the rows the user owns.
func (st *Store) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        UPDATE users SET
            sessions_played    = sessions_played + (SELECT COUNT(1) FROM sessions WHERE anonymous_id=?),
            sessions_converged = sessions_converged + (SELECT COUNT(1) FROM sessions WHERE anonymous_id=? AND status=?)
        WHERE id=?`, anonID, anonID, string(guess.StateConverged), userID); err != nil {
		return fmt.Errorf("bump claimed: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		return fmt.Errorf("claim sessions: %w", err)
	}
	return tx.Commit()
}

// expectRow turns an update that matched nothing into ErrSessionNotFound.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func joinTrail(t []guess.Answer) string {
	parts := make([]string, len(t))
	for i, a := range t {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
