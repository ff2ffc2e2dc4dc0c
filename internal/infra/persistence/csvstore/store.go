// Package csvstore implements the flat-file response persister: an
// append-only log plus full working and backup snapshots rewritten after
// every accepted answer. The backup snapshot doubles as the resume lookup
// source across process restarts.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"surveycore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.ResponseStore = (*Store)(nil)

// File names within the store directory.
const (
	LogFile     = "responses_log.csv"
	WorkingFile = "responses_temp.csv"
	BackupFile  = "responses_backup.csv"
)

type answerKey struct {
	participantID string
	pairID        int
}

// Store persists responses to flat CSV files. Appends hit the log in O(1);
// the two snapshots are rewritten in full each time, which is acceptable
// for the catalog sizes involved. Writers in the same process are
// serialized by the store mutex; concurrent processes sharing the same
// directory remain last-writer-wins on the snapshots.
type Store struct {
	dir      string
	extended bool

	mu        sync.Mutex
	log       *os.File
	logWriter *csv.Writer
	responses []domain.Response
	seen      map[answerKey]struct{}
}

// NewStore opens (or creates) a CSV store rooted at dir. Existing state is
// rehydrated from the append log when present, otherwise from the backup
// snapshot left by an earlier rewrite-only deployment.
func NewStore(dir string, extended bool) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Store{dir: dir, extended: extended, seen: make(map[answerKey]struct{})}
	if err := s.loadExisting(); err != nil {
		return nil, err
	}
	created, err := s.openLog()
	if err != nil {
		return nil, err
	}
	if created {
		// Seed a fresh log with rows rehydrated from the backup snapshot
		// so the log stays the authoritative record across restarts.
		for _, resp := range s.responses {
			if err := s.writeLogRow(resp.CSVRecord(s.extended)); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) loadExisting() error {
	rows, err := readCSV(filepath.Join(s.dir, LogFile))
	if errors.Is(err, fs.ErrNotExist) {
		rows, err = readCSV(filepath.Join(s.dir, BackupFile))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	for i, row := range rows[1:] {
		resp, err := domain.ParseResponseRecord(header, row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		s.responses = append(s.responses, resp)
		s.seen[answerKey{resp.Participant.ID, resp.PairID}] = struct{}{}
	}
	return nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func (s *Store) openLog() (created bool, err error) {
	path := filepath.Join(s.dir, LogFile)
	_, statErr := os.Stat(path)
	created = errors.Is(statErr, fs.ErrNotExist)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return false, fmt.Errorf("open log: %w", err)
	}
	s.log = f
	s.logWriter = csv.NewWriter(f)
	if created {
		if err := s.writeLogRow(domain.CSVHeader(s.extended)); err != nil {
			return false, err
		}
	}
	return created, nil
}

func (s *Store) writeLogRow(row []string) error {
	if err := s.logWriter.Write(row); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	s.logWriter.Flush()
	if err := s.logWriter.Error(); err != nil {
		return fmt.Errorf("flush log: %w", err)
	}
	return nil
}

// Append records the response in the log and rewrites both snapshots.
func (s *Store) Append(_ context.Context, r domain.Response) error {
	key := answerKey{r.Participant.ID, r.PairID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return domain.DuplicateResponseError{ParticipantID: r.Participant.ID, PairID: r.PairID}
	}
	if err := s.writeLogRow(r.CSVRecord(s.extended)); err != nil {
		return err
	}
	s.responses = append(s.responses, r)
	s.seen[key] = struct{}{}
	if err := s.writeSnapshot(WorkingFile); err != nil {
		return err
	}
	return s.writeSnapshot(BackupFile)
}

// writeSnapshot rewrites the full accumulated response list to name,
// staging through a temp file so a crash mid-write leaves the previous
// snapshot intact.
func (s *Store) writeSnapshot(name string) (retErr error) {
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("stage snapshot: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	writer := csv.NewWriter(tmp)
	if err := writer.Write(domain.CSVHeader(s.extended)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, resp := range s.responses {
		if err := writer.Write(resp.CSVRecord(s.extended)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write snapshot row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// ListByParticipant returns the participant's responses in append order.
func (s *Store) ListByParticipant(_ context.Context, participantID string) ([]domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Response
	for _, r := range s.responses {
		if r.Participant.ID == participantID {
			out = append(out, r)
		}
	}
	return out, nil
}

// List returns every recorded response in append order.
func (s *Store) List(_ context.Context) ([]domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Response, len(s.responses))
	copy(out, s.responses)
	return out, nil
}

// Close flushes and closes the append log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return nil
	}
	s.logWriter.Flush()
	err := s.log.Close()
	s.log = nil
	return err
}

// WorkingPath returns the working snapshot location.
func (s *Store) WorkingPath() string { return filepath.Join(s.dir, WorkingFile) }

// BackupPath returns the backup snapshot location.
func (s *Store) BackupPath() string { return filepath.Join(s.dir, BackupFile) }

// LogPath returns the append log location.
func (s *Store) LogPath() string { return filepath.Join(s.dir, LogFile) }
