package sqlite

import (
	"database/sql"
	"time"

	"github.com/scenefetch/scenefetch/internal/storage"
)

// Journal is the SQLite-backed download journal.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record upserts the outcome for a pair. A re-run overwrites the previous
// outcome for the same pair.
func (j *Journal) Record(o storage.Outcome) error {
	_, err := j.db.Exec(`
		INSERT INTO outcomes (record_id, file_index, path, status, attempts, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id, file_index) DO UPDATE SET
			path = excluded.path,
			status = excluded.status,
			attempts = excluded.attempts,
			completed_at = excluded.completed_at
	`, o.RecordID, o.FileIndex, o.Path, o.Status, o.Attempts, o.CompletedAt.Format(time.RFC3339))

	return err
}

// Recent returns the most recently completed outcomes.
func (j *Journal) Recent(limit int) ([]storage.Outcome, error) {
	rows, err := j.db.Query(`
		SELECT record_id, file_index, path, status, attempts, completed_at
		FROM outcomes ORDER BY completed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []storage.Outcome

	for rows.Next() {
		var o storage.Outcome

		var completedAt string

		if err := rows.Scan(&o.RecordID, &o.FileIndex, &o.Path, &o.Status, &o.Attempts, &completedAt); err != nil {
			return nil, err
		}

		if t, err := time.Parse(time.RFC3339, completedAt); err == nil {
			o.CompletedAt = t
		}

		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
