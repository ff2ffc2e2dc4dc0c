// Package core orchestrates the survey lifecycle: participant intake,
// consent gating, the paginated rating loop, response persistence, and
// final export hand-off. It owns no transport concerns.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"surveycore/internal/catalog"
	"surveycore/pkg/domain"
)

// ExportQueue accepts finished participant exports for asynchronous upload.
type ExportQueue interface {
	Enqueue(ctx context.Context, participantID string) (string, error)
}

// Intake carries the fields of the participant entry form. Extended fields
// are carried only when extended intake is enabled.
type Intake struct {
	Name      string
	BirthYear int
	Phone     string

	Age         int
	Gender      string
	Affiliation string
	Email       string
	BankAccount string
	NationalID  string
}

// Service exposes the survey operations one browser session drives. All
// methods are safe for the single-session callers the HTTP layer provides;
// cross-session coordination happens in the response store.
type Service struct {
	catalog *catalog.Catalog
	store   domain.ResponseStore
	exports ExportQueue

	logger         Logger
	audit          AuditRecorder
	metrics        MetricsRecorder
	tracer         Tracer
	clock          Clock
	timeBudget     time.Duration
	extendedIntake bool
	shuffle        func(n int) []int
}

// NewService constructs a survey service over the supplied catalog and
// response store.
func NewService(cat *catalog.Catalog, store domain.ResponseStore, opts ...Option) *Service {
	s := &Service{
		catalog:    cat,
		store:      store,
		logger:     noopLogger{},
		clock:      systemClock{},
		timeBudget: domain.DefaultTimeBudget,
		shuffle:    domain.ShuffleOrder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtendedIntake reports whether the extended intake form is enabled.
func (s *Service) ExtendedIntake() bool { return s.extendedIntake }

// TimeBudget returns the advisory per-session time budget.
func (s *Service) TimeBudget() time.Duration { return s.timeBudget }

// Catalog returns the sentence-pair catalog the service serves.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// instrument wraps one operation with tracing, metrics and audit emission.
func (s *Service) instrument(ctx context.Context, operation, participantID string, fn func(ctx context.Context) error) error {
	started := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	duration := s.clock.Now().Sub(started)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if s.audit != nil {
		entry := AuditEntry{
			Operation:     operation,
			Status:        AuditStatusSuccess,
			ParticipantID: participantID,
			Duration:      duration,
			OccurredAt:    started.UTC(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	return err
}

// normalizeIntake trims the entry form. Intake is deliberately not
// validated: empty or malformed fields produce a degenerate participant
// identifier rather than an error.
func normalizeIntake(in Intake) Intake {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (s *Service) participantFrom(in Intake, now time.Time) domain.Participant {
	p := domain.Participant{
		ID:        domain.GenerateParticipantID(in.Name, in.BirthYear, in.Phone),
		Name:      in.Name,
		BirthYear: in.BirthYear,
		Phone:     in.Phone,
		StartedAt: now,
	}
	if s.extendedIntake {
		p.Age = in.Age
		p.Gender = strings.TrimSpace(in.Gender)
		p.Affiliation = strings.TrimSpace(in.Affiliation)
		p.Email = strings.TrimSpace(in.Email)
		p.BankAccount = strings.TrimSpace(in.BankAccount)
		p.NationalID = strings.TrimSpace(in.NationalID)
	}
	return p
}

// Begin opens a session from the intake form. When the store
// already holds responses for the derived participant ID the session
// resumes mid-survey with those answers preloaded (resumed=true) and the
// consent checklist is skipped; otherwise the session lands on the consent
// checklist.
func (s *Service) Begin(ctx context.Context, in Intake) (sess *domain.Session, resumed bool, err error) {
	err = s.instrument(ctx, "begin_session", "", func(ctx context.Context) error {
		now := s.clock.Now()
		participant := s.participantFrom(normalizeIntake(in), now)
		prior, lerr := s.store.ListByParticipant(ctx, participant.ID)
		if lerr != nil {
			return fmt.Errorf("load prior responses: %w", lerr)
		}
		order := s.shuffle(s.catalog.Len())
		sess = domain.NewSession()
		if len(prior) > 0 {
			if rerr := sess.ResumeSurvey(participant, order, prior, now, s.timeBudget); rerr != nil {
				return rerr
			}
			resumed = true
			s.logger.Info("session resumed", "participant", participant.ID, "answered", len(prior))
			return nil
		}
		if berr := sess.BeginInstruction(participant, order, now, s.timeBudget); berr != nil {
			return berr
		}
		s.logger.Info("session started", "participant", participant.ID, "pairs", s.catalog.Len())
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return sess, resumed, nil
}

// Resume is the explicit resume path on the entry form: it requires prior
// responses for the derived participant ID and returns
// domain.ErrNoPriorResponses when there are none. The condition is
// user-visible and recoverable; the respondent may retry or start fresh.
func (s *Service) Resume(ctx context.Context, in Intake) (sess *domain.Session, err error) {
	err = s.instrument(ctx, "resume_session", "", func(ctx context.Context) error {
		now := s.clock.Now()
		participant := s.participantFrom(normalizeIntake(in), now)
		prior, lerr := s.store.ListByParticipant(ctx, participant.ID)
		if lerr != nil {
			return fmt.Errorf("load prior responses: %w", lerr)
		}
		if len(prior) == 0 {
			return domain.ErrNoPriorResponses
		}
		sess = domain.NewSession()
		if rerr := sess.ResumeSurvey(participant, s.shuffle(s.catalog.Len()), prior, now, s.timeBudget); rerr != nil {
			return rerr
		}
		s.logger.Info("session resumed", "participant", participant.ID, "answered", len(prior))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ConfirmConsent moves a session past the consent checklist into the
// rating loop. The caller must only invoke it once every consent statement
// has been affirmed; the transport layer enforces that AND-gate.
func (s *Service) ConfirmConsent(ctx context.Context, sess *domain.Session) error {
	return s.instrument(ctx, "confirm_consent", sess.Participant.ID, func(ctx context.Context) error {
		return sess.BeginSurvey(s.clock.Now())
	})
}

// Current returns the pair the session should rate next. done is true when
// every pair has been answered.
func (s *Service) Current(sess *domain.Session) (pair domain.SentencePair, done bool) {
	p, ok := sess.CurrentPair(s.catalog.Pairs())
	return p, !ok
}

// Submit records one rating: it validates the value, guards against
// duplicate submissions of the same pair, persists the response, and only
// then records it in the session. Persisting first keeps a transient store
// failure retryable: the pair stays unanswered and the next submission
// attempts the write again.
func (s *Service) Submit(ctx context.Context, sess *domain.Session, pairID, rating int) error {
	return s.instrument(ctx, "submit_rating", sess.Participant.ID, func(ctx context.Context) error {
		if !domain.ValidRating(rating) {
			return domain.InvalidRatingError{Rating: rating}
		}
		pair, ok := s.pairByID(pairID)
		if !ok {
			return fmt.Errorf("unknown sentence pair %d", pairID)
		}
		if err := sess.CanAnswer(pair.ID); err != nil {
			return err
		}
		response := domain.Response{
			PairID:      pair.ID,
			SentenceA:   pair.SentenceA,
			SentenceB:   pair.SentenceB,
			Rating:      rating,
			AnsweredAt:  s.clock.Now(),
			Participant: sess.Participant,
		}
		if err := s.store.Append(ctx, response); err != nil {
			return fmt.Errorf("persist response: %w", err)
		}
		return sess.RecordAnswer(response)
	})
}

func (s *Service) pairByID(id int) (domain.SentencePair, bool) {
	for _, p := range s.catalog.Pairs() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.SentencePair{}, false
}

// Pause freezes the session timer. The budget is advisory; pausing never
// blocks rating.
func (s *Service) Pause(sess *domain.Session) {
	sess.Timer.Pause(s.clock.Now())
}

// Unpause resumes a paused timer.
func (s *Service) Unpause(sess *domain.Session) {
	sess.Timer.Unpause(s.clock.Now())
}

// Remaining reports the advisory time left on the session budget.
func (s *Service) Remaining(sess *domain.Session) time.Duration {
	return sess.Timer.Remaining(s.clock.Now())
}

// Finalize transitions a fully answered session to the terminal phase and
// enqueues the participant's export. Finalizing with unanswered pairs or
// finalizing twice is a transition error.
func (s *Service) Finalize(ctx context.Context, sess *domain.Session) error {
	return s.instrument(ctx, "finalize_session", sess.Participant.ID, func(ctx context.Context) error {
		if _, ok := sess.CurrentPair(s.catalog.Pairs()); ok {
			return fmt.Errorf("session has unanswered pairs")
		}
		if err := sess.Complete(); err != nil {
			return err
		}
		if s.exports != nil {
			id, err := s.exports.Enqueue(ctx, sess.Participant.ID)
			if err != nil {
				s.logger.Error("enqueue export", "participant", sess.Participant.ID, "error", err)
				return fmt.Errorf("enqueue export: %w", err)
			}
			sess.ExportID = id
		}
		s.logger.Info("session complete", "participant", sess.Participant.ID, "responses", sess.AnsweredCount())
		return nil
	})
}

// Responses returns all persisted responses for a participant, in append
// order. Used by the completion download.
func (s *Service) Responses(ctx context.Context, participantID string) ([]domain.Response, error) {
	var out []domain.Response
	err := s.instrument(ctx, "list_responses", participantID, func(ctx context.Context) error {
		var lerr error
		out, lerr = s.store.ListByParticipant(ctx, participantID)
		return lerr
	})
	return out, err
}
