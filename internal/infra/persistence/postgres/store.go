// Package postgres provides a PostgreSQL-backed response store mirroring
// the SQLite schema for deployments that centralize collection.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"surveycore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion.
var _ domain.ResponseStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenResponseStore defaults while
	// allowing overrides via env.
	defaultDSN = "postgres://localhost/surveycore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const schema = `CREATE TABLE IF NOT EXISTS responses (
	seq BIGSERIAL PRIMARY KEY,
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

// Store persists responses to a PostgreSQL server.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls
// back to defaultDSN) and applies the responses schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create responses table: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts one response. The unique (participant_id, pair_id)
// constraint enforces the duplicate guard server-side.
func (s *Store) Append(ctx context.Context, r domain.Response) error {
	p := r.Participant
	res, err := s.db.ExecContext(ctx, `INSERT INTO responses
		(participant_id, pair_id, sentence_a, sentence_b, rating, answered_at,
		 name, birth_year, phone, started_at, age, gender, affiliation, email, bank_account, national_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (participant_id, pair_id) DO NOTHING`,
		p.ID, r.PairID, r.SentenceA, r.SentenceB, r.Rating,
		r.AnsweredAt.Format(domain.TimestampLayout),
		p.Name, p.BirthYear, p.Phone, p.StartedAt.Format(domain.TimestampLayout),
		p.Age, p.Gender, p.Affiliation, p.Email, p.BankAccount, p.NationalID)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.DuplicateResponseError{ParticipantID: p.ID, PairID: r.PairID}
	}
	return nil
}

// ListByParticipant returns the participant's responses in append order.
func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]domain.Response, error) {
	return s.query(ctx,
		`SELECT pair_id, sentence_a, sentence_b, rating, answered_at,
		        participant_id, name, birth_year, phone, started_at,
		        age, gender, affiliation, email, bank_account, national_id
		 FROM responses WHERE participant_id = $1 ORDER BY seq`, participantID)
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
		var (
			r                     domain.Response
			answeredAt, startedAt string
		)
		p := &r.Participant
		if err := rows.Scan(&r.PairID, &r.SentenceA, &r.SentenceB, &r.Rating, &answeredAt,
			&p.ID, &p.Name, &p.BirthYear, &p.Phone, &startedAt,
			&p.Age, &p.Gender, &p.Affiliation, &p.Email, &p.BankAccount, &p.NationalID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if r.AnsweredAt, err = parseTimestamp(answeredAt); err != nil {
			return nil, err
		}
		if r.Participant.StartedAt, err = parseTimestamp(startedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
