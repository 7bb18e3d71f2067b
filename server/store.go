package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/puyokura/odysseychat/model"
)

// ErrFactNotFound is returned when a fact id does not exist.
var ErrFactNotFound = errors.New("fact not found")

// Store keeps facts and the request log in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS requests (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	prompt TEXT NOT NULL,
	persona TEXT,
	response TEXT,
	tokens INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	responded_at DATETIME
);
CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	request_id TEXT,
	fact_type TEXT NOT NULL,
	value TEXT NOT NULL,
	normalized_value TEXT,
	confidence REAL NOT NULL DEFAULT 0,
	source TEXT,
	created_at DATETIME NOT NULL,
	UNIQUE(username, fact_type)
);
CREATE INDEX IF NOT EXISTS idx_facts_username ON facts(username);
`

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite takes a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRequest logs an incoming chat message and returns its request id.
func (s *Store) CreateRequest(ctx context.Context, username, prompt string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests(id, username, prompt, created_at) VALUES(?, ?, ?, ?)`,
		id, username, prompt, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	return id, nil
}

// CompleteRequest attaches the persona reply to a logged request.
func (s *Store) CompleteRequest(ctx context.Context, id, persona string, reply Reply) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE requests SET persona = ?, response = ?, tokens = ?, responded_at = ? WHERE id = ?`,
		persona, reply.Text, reply.Tokens, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("complete request %s: %w", id, err)
	}
	return nil
}

// UpsertFact stores f, replacing any earlier fact of the same type for the
// same user. The stored row is returned.
func (s *Store) UpsertFact(ctx context.Context, f model.Fact) (model.Fact, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facts(id, username, request_id, fact_type, value, normalized_value, confidence, source, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username, fact_type) DO UPDATE SET
			request_id = excluded.request_id,
			value = excluded.value,
			normalized_value = excluded.normalized_value,
			confidence = excluded.confidence,
			source = excluded.source,
			created_at = excluded.created_at`,
		f.ID, f.Username, nullable(f.RequestID), f.FactType, f.Value,
		nullable(f.NormalizedValue), f.Confidence, nullable(f.Source), f.CreatedAt)
	if err != nil {
		return model.Fact{}, fmt.Errorf("upsert fact: %w", err)
	}

	row := s.db.QueryRowContext(ctx, selectFacts+` WHERE username = ? AND fact_type = ?`, f.Username, f.FactType)
	return scanFact(row)
}

const selectFacts = `SELECT id, username, request_id, fact_type, value, normalized_value, confidence, source, created_at FROM facts`

// ListFacts returns the facts of username, newest first.
func (s *Store) ListFacts(ctx context.Context, username string) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx, selectFacts+` WHERE username = ? ORDER BY created_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	out := []model.Fact{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFact removes one fact.
func (s *Store) DeleteFact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrFactNotFound
	}
	return nil
}

// FactPatch holds the editable fields of a fact. Nil fields are left alone.
type FactPatch struct {
	Value           *string  `json:"value"`
	NormalizedValue *string  `json:"normalized_value"`
	Confidence      *float64 `json:"confidence"`
}

// UpdateFact applies patch and returns the updated fact.
func (s *Store) UpdateFact(ctx context.Context, id string, patch FactPatch) (model.Fact, error) {
	var sets []string
	var args []any
	if patch.Value != nil {
		sets = append(sets, "value = ?")
		args = append(args, *patch.Value)
	}
	if patch.NormalizedValue != nil {
		sets = append(sets, "normalized_value = ?")
		args = append(args, nullable(*patch.NormalizedValue))
	}
	if patch.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, *patch.Confidence)
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, `UPDATE facts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return model.Fact{}, fmt.Errorf("update fact: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return model.Fact{}, ErrFactNotFound
		}
	}
	return scanFact(s.db.QueryRowContext(ctx, selectFacts+` WHERE id = ?`, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFact(row scanner) (model.Fact, error) {
	var (
		f                          model.Fact
		requestID, normalized, src sql.NullString
	)
	err := row.Scan(&f.ID, &f.Username, &requestID, &f.FactType, &f.Value, &normalized, &f.Confidence, &src, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Fact{}, ErrFactNotFound
	}
	if err != nil {
		return model.Fact{}, fmt.Errorf("scan fact: %w", err)
	}
	f.RequestID = requestID.String
	f.NormalizedValue = normalized.String
	f.Source = src.String
	return f, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
