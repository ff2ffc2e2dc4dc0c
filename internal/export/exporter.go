// Package export renders a participant's finished response set to its
// final CSV artifact and uploads it to blob storage asynchronously.
package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"sync"
	"time"

	"surveycore/internal/blob"
	"surveycore/internal/core"
	"surveycore/pkg/domain"
)

// FinalFile is the artifact filename participants download.
const FinalFile = "responses_attitude.csv"

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures a stored export artifact.
type Artifact struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks one export request.
type Record struct {
	ID            string     `json:"id"`
	ParticipantID string     `json:"participant_id"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	Artifact      *Artifact  `json:"artifact,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type task struct {
	id            string
	participantID string
}

// Worker executes participant exports asynchronously. It implements
// core.ExportQueue.
type Worker struct {
	responses domain.ResponseStore
	blobs     blob.Store
	audit     core.AuditRecorder
	logger    core.Logger
	extended  bool

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ core.ExportQueue = (*Worker)(nil)

// NewWorker constructs an export worker over the response and blob stores.
// extended controls whether the rendered CSV carries the extended intake
// columns. audit and logger may be nil.
func NewWorker(responses domain.ResponseStore, blobs blob.Store, extended bool, audit core.AuditRecorder, logger core.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		responses: responses,
		blobs:     blobs,
		audit:     audit,
		logger:    logger,
		extended:  extended,
		queue:     make(chan task, 32),
		jobs:      make(map[string]*Record),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing queued exports.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export of the participant's responses and returns
// the export ID.
func (w *Worker) Enqueue(ctx context.Context, participantID string) (string, error) {
	if participantID == "" {
		return "", fmt.Errorf("participant id required")
	}
	id := newID()
	now := time.Now().UTC()
	record := &Record{
		ID:            id,
		ParticipantID: participantID,
		Status:        StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	w.mu.Lock()
	w.jobs[id] = record
	w.mu.Unlock()

	w.recordAudit(ctx, record, StatusQueued, "")

	select {
	case w.queue <- task{id: id, participantID: participantID}:
	default:
		w.fail(id, "export queue full")
		return "", fmt.Errorf("export queue full")
	}
	return id, nil
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(t task) {
	w.updateStatus(t.id, StatusRunning, "")

	rows, err := w.responses.ListByParticipant(w.ctx, t.participantID)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("load responses: %v", err))
		return
	}
	if len(rows) == 0 {
		w.fail(t.id, "no responses recorded")
		return
	}
	payload, err := Render(rows, w.extended)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("render csv: %v", err))
		return
	}

	key := fmt.Sprintf("exports/%s/%s/%s", t.participantID, time.Now().UTC().Format("20060102T150405Z"), FinalFile)
	info, err := w.blobs.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"participant": t.participantID},
	})
	if err != nil {
		w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
		return
	}
	w.complete(t.id, Artifact{
		Key:         info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		CreatedAt:   info.LastModified,
	})
}

// Render serializes responses to the final CSV layout.
func Render(rows []domain.Response, extended bool) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(domain.CSVHeader(extended)); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := writer.Write(r.CSVRecord(extended)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Worker) updateStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	var snapshot Record
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		w.recordAudit(w.ctx, &snapshot, status, message)
	}
}

func (w *Worker) complete(id string, artifact Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifact = &artifact
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	var snapshot Record
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		if w.logger != nil {
			w.logger.Info("export complete", "export", id, "participant", snapshot.ParticipantID, "key", artifact.Key)
		}
		w.recordAudit(w.ctx, &snapshot, StatusSucceeded, "")
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	var snapshot Record
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		if w.logger != nil {
			w.logger.Error("export failed", "export", id, "participant", snapshot.ParticipantID, "reason", reason)
		}
		w.recordAudit(w.ctx, &snapshot, StatusFailed, reason)
	}
}

func (w *Worker) recordAudit(ctx context.Context, record *Record, status Status, message string) {
	if w.audit == nil {
		return
	}
	entry := core.AuditEntry{
		Operation:     "participant_export",
		Status:        core.AuditStatusSuccess,
		ParticipantID: record.ParticipantID,
		EntityID:      record.ID,
		OccurredAt:    time.Now().UTC(),
	}
	if status == StatusFailed {
		entry.Status = core.AuditStatusError
		entry.Error = message
	}
	w.audit.Record(ctx, entry)
}

func (r Record) copy() Record {
	dup := r
	if r.Artifact != nil {
		artifact := *r.Artifact
		dup.Artifact = &artifact
	}
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		dup.CompletedAt = &completed
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
