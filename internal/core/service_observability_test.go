package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestServiceEmitsObservabilitySignals(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc, _ := newTestService(t, 1,
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)
	ctx := context.Background()

	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	if err := svc.Submit(ctx, sess, 1, 7); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, op := range []string{"begin_session", "confirm_consent", "submit_rating"} {
		if !audit.has(op, AuditStatusSuccess) {
			t.Errorf("expected success audit entry for %s", op)
		}
		if !metrics.has(op, true) {
			t.Errorf("expected success metric for %s", op)
		}
	}
	if len(tracer.started) != 3 || len(tracer.ended) != 3 {
		t.Fatalf("expected 3 spans, got started=%d ended=%d", len(tracer.started), len(tracer.ended))
	}

	// Error path: duplicate submission.
	if err := svc.Submit(ctx, sess, 1, 7); err == nil {
		t.Fatalf("expected duplicate submit to fail")
	}
	if !audit.has("submit_rating", AuditStatusError) {
		t.Errorf("expected error audit entry for submit_rating")
	}
	if !metrics.has("submit_rating", false) {
		t.Errorf("expected error metric for submit_rating")
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "survey_service_metrics_") {
		t.Fatalf("unexpected generated name %s", rec.Name())
	}
	rec.Observe(context.Background(), "submit_rating", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "submit_rating", false, 10*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.DurationsMS["submit_rating"] != 30 {
		t.Fatalf("expected 30ms total, got %v", snap.DurationsMS["submit_rating"])
	}
	if snap.Results["submit_rating"]["success"] != 1 || snap.Results["submit_rating"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
}

func TestJSONTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "begin_session")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "submit_rating")
	span.End(context.DeadlineExceeded)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected statuses %+v", entries)
	}
	if !strings.Contains(buf.String(), "submit_rating") {
		t.Fatalf("expected encoded span output, got %q", buf.String())
	}
}
