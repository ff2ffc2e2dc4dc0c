package core

import "time"

// Option customizes service construction.
type Option func(*Service)

// WithLogger installs a structured logger. Defaults to a no-op logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder installs an audit sink for every service operation.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) { s.audit = recorder }
}

// WithMetricsRecorder installs a metrics sink for operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithTracer installs a tracer that wraps each operation in a span.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithClock overrides the time source. Defaults to the system clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTimeBudget overrides the advisory session time budget. Zero or
// negative values fall back to the default.
func WithTimeBudget(budget time.Duration) Option {
	return func(s *Service) {
		if budget > 0 {
			s.timeBudget = budget
		}
	}
}

// WithExtendedIntake enables the extended participant intake fields
// (age, gender, affiliation, contact and payment details).
func WithExtendedIntake(enabled bool) Option {
	return func(s *Service) { s.extendedIntake = enabled }
}

// WithExportQueue installs the export queue finalized sessions enqueue to.
func WithExportQueue(queue ExportQueue) Option {
	return func(s *Service) { s.exports = queue }
}

// WithShuffle overrides presentation-order generation. Used by tests that
// need a deterministic order.
func WithShuffle(shuffle func(n int) []int) Option {
	return func(s *Service) {
		if shuffle != nil {
			s.shuffle = shuffle
		}
	}
}
