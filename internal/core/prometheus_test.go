package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorderRegistersAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "submit_rating", true, 25*time.Millisecond)
	rec.Observe(context.Background(), "submit_rating", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	if !names["surveycore_service_operation_duration_seconds"] {
		t.Errorf("missing duration histogram")
	}
	if !names["surveycore_service_operations_total"] {
		t.Errorf("missing operations counter")
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
