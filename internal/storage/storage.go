package storage

import "time"

// Outcome is the journaled result of one (record, file-index) pair.
type Outcome struct {
	RecordID    string
	FileIndex   int
	Path        string
	Status      string // "succeeded" or "failed"
	Attempts    int
	CompletedAt time.Time
}

// JournalReader reads back journaled outcomes, newest first.
type JournalReader interface {
	Recent(limit int) ([]Outcome, error)
}

// JournalWriter records pair outcomes as they complete.
type JournalWriter interface {
	Record(o Outcome) error
}

// Journal is the full download journal.
type Journal interface {
	JournalReader
	JournalWriter
}
