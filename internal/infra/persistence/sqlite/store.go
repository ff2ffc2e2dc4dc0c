// Package sqlite provides an embedded-file response store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"surveycore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion.
var _ domain.ResponseStore = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS responses (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	participant_id TEXT NOT NULL,
	pair_id INTEGER NOT NULL,
	sentence_a TEXT NOT NULL,
	sentence_b TEXT NOT NULL,
	rating INTEGER NOT NULL,
	answered_at TEXT NOT NULL,
	name TEXT NOT NULL,
	birth_year INTEGER NOT NULL,
	phone TEXT NOT NULL,
	started_at TEXT NOT NULL,
	age INTEGER NOT NULL DEFAULT 0,
	gender TEXT NOT NULL DEFAULT '',
	affiliation TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	bank_account TEXT NOT NULL DEFAULT '',
	national_id TEXT NOT NULL DEFAULT '',
	UNIQUE(participant_id, pair_id)
)`

// Store persists responses to a single SQLite file.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the SQLite file at path and applies the
// responses schema. An empty path falls back to surveycore.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "surveycore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create responses table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Append inserts one response, rejecting duplicate (participant, pair) keys.
func (s *Store) Append(ctx context.Context, r domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM responses WHERE participant_id = ? AND pair_id = ?`,
		r.Participant.ID, r.PairID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if exists > 0 {
		return domain.DuplicateResponseError{ParticipantID: r.Participant.ID, PairID: r.PairID}
	}
	p := r.Participant
	_, err = s.db.ExecContext(ctx, `INSERT INTO responses
		(participant_id, pair_id, sentence_a, sentence_b, rating, answered_at,
		 name, birth_year, phone, started_at, age, gender, affiliation, email, bank_account, national_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, r.PairID, r.SentenceA, r.SentenceB, r.Rating,
		r.AnsweredAt.Format(domain.TimestampLayout),
		p.Name, p.BirthYear, p.Phone, p.StartedAt.Format(domain.TimestampLayout),
		p.Age, p.Gender, p.Affiliation, p.Email, p.BankAccount, p.NationalID)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// ListByParticipant returns the participant's responses in append order.
func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]domain.Response, error) {
	return s.query(ctx,
		`SELECT pair_id, sentence_a, sentence_b, rating, answered_at,
		        participant_id, name, birth_year, phone, started_at,
		        age, gender, affiliation, email, bank_account, national_id
		 FROM responses WHERE participant_id = ? ORDER BY seq`, participantID)
}

// List returns every recorded response in append order.
func (s *Store) List(ctx context.Context) ([]domain.Response, error) {
	return s.query(ctx,
		`SELECT pair_id, sentence_a, sentence_b, rating, answered_at,
		        participant_id, name, birth_year, phone, started_at,
		        age, gender, affiliation, email, bank_account, national_id
		 FROM responses ORDER BY seq`)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Response, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select responses: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return out, nil
}

func scanResponse(rows *sql.Rows) (domain.Response, error) {
	var (
		r                     domain.Response
		answeredAt, startedAt string
	)
	p := &r.Participant
	if err := rows.Scan(&r.PairID, &r.SentenceA, &r.SentenceB, &r.Rating, &answeredAt,
		&p.ID, &p.Name, &p.BirthYear, &p.Phone, &startedAt,
		&p.Age, &p.Gender, &p.Affiliation, &p.Email, &p.BankAccount, &p.NationalID); err != nil {
		return domain.Response{}, fmt.Errorf("scan: %w", err)
	}
	var err error
	if r.AnsweredAt, err = parseTimestamp(answeredAt); err != nil {
		return domain.Response{}, err
	}
	if r.Participant.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return domain.Response{}, err
	}
	return r, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
