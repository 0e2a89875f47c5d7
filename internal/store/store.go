// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists finished runs to SQLite so their notes can be
// searched later. The pipeline itself never touches it; the CLI saves a
// run after it reaches a terminal phase.
//
// The schema includes an FTS5 virtual table, so binaries and tests using
// this package must be built with the sqlite_fts5 tag (mage build/test
// pass it).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deep-research/internal/pipeline"
	"github.com/pdiddy/deep-research/pkg/types"
)

const dbFile = "deep-research.db"

// Store manages the run archive database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database under dir, creating the
// schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			topics TEXT,
			questions TEXT,
			phase TEXT,
			message TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			run_id TEXT NOT NULL REFERENCES runs(id),
			id TEXT NOT NULL,
			uri TEXT,
			title TEXT,
			status TEXT,
			error TEXT,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			document_id TEXT NOT NULL,
			quote TEXT NOT NULL,
			justification TEXT,
			question TEXT,
			page INTEGER,
			score REAL,
			citations TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_run_id ON notes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_document_id ON notes(document_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='notes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE notes_fts USING fts5(quote, justification, content=notes, content_rowid=rowid)`,
			`CREATE TRIGGER notes_ai AFTER INSERT ON notes BEGIN
				INSERT INTO notes_fts(rowid, quote, justification) VALUES (new.rowid, new.quote, new.justification);
			END`,
			`CREATE TRIGGER notes_ad AFTER DELETE ON notes BEGIN
				INSERT INTO notes_fts(notes_fts, rowid, quote, justification) VALUES('delete', old.rowid, old.quote, old.justification);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveRun writes one finished run, its per-document outcomes, and its notes
// in a single transaction.
func (s *Store) SaveRun(ctx context.Context, run pipeline.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	topicsJSON, _ := json.Marshal(run.Query.Topics)
	questionsJSON, _ := json.Marshal(run.Query.Questions)
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, created_at, topics, questions, phase, message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, time.Now().UTC().Format(time.RFC3339),
		string(topicsJSON), string(questionsJSON),
		string(run.Phase), run.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	// Re-saving a run replaces its notes rather than appending duplicates.
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clearing old notes: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents (run_id, id, uri, title, status, error)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()

	for _, item := range run.Items {
		title := ""
		if item.Candidate != nil {
			title = item.Candidate.Title
		}
		_, err := docStmt.ExecContext(ctx,
			run.ID, item.ID, item.URI, title, string(item.Status), item.Error)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", item.ID, err)
		}
	}

	noteStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notes (run_id, document_id, quote, justification, question, page, score, citations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing note insert: %w", err)
	}
	defer noteStmt.Close()

	for _, note := range run.Notes {
		citationsJSON, _ := json.Marshal(note.Citations)
		_, err := noteStmt.ExecContext(ctx,
			run.ID, note.DocumentID, note.Quote, note.Justification,
			note.Question, note.Page, note.Score, string(citationsJSON))
		if err != nil {
			return fmt.Errorf("inserting note: %w", err)
		}
	}

	return tx.Commit()
}

// NoteResult is a stored note with the title of the document it came from.
type NoteResult struct {
	types.Note `yaml:",inline"`

	RunID         string `json:"run_id" yaml:"run_id"`
	DocumentTitle string `json:"document_title,omitempty" yaml:"document_title,omitempty"`
}

// SearchNotes runs a full-text query over stored quotes and justifications,
// ranked by FTS5 relevance.
func (s *Store) SearchNotes(ctx context.Context, query string, limit int) ([]NoteResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT n.run_id, n.document_id, n.quote, n.justification, n.question,
			n.page, n.score, n.citations, d.title
		FROM notes_fts
		JOIN notes n ON n.rowid = notes_fts.rowid
		LEFT JOIN documents d ON d.run_id = n.run_id AND d.id = n.document_id
		WHERE notes_fts MATCH ?
		ORDER BY notes_fts.rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var results []NoteResult
	for rows.Next() {
		var (
			nr       NoteResult
			citJSON  sql.NullString
			docTitle sql.NullString
		)
		if err := rows.Scan(
			&nr.RunID, &nr.DocumentID, &nr.Quote, &nr.Justification,
			&nr.Question, &nr.Page, &nr.Score, &citJSON, &docTitle,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if citJSON.Valid {
			json.Unmarshal([]byte(citJSON.String), &nr.Citations)
		}
		if docTitle.Valid {
			nr.DocumentTitle = docTitle.String
		}
		results = append(results, nr)
	}

	return results, rows.Err()
}
