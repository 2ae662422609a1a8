package sqlite

import (
	"database/sql"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database and creates the outcomes table if it
// doesn't exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY,
		record_id TEXT,
		file_index INTEGER,
		path TEXT,
		status TEXT,
		attempts INTEGER,
		completed_at DATETIME,
		UNIQUE(record_id, file_index)
	)`)

	if err != nil {
		return nil, err
	}

	return db, nil
}
