package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"surveycore/internal/catalog"
	"surveycore/internal/infra/persistence/memory"
	"surveycore/pkg/domain"
)

func writeCatalogFile(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairs.csv")
	content := "ID,Sentence A,Sentence B\n"
	for i := 1; i <= n; i++ {
		content += fmt.Sprintf("%d,first sentence %d,second sentence %d\n", i, i, i)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

type queueStub struct {
	enqueued []string
	err      error
}

func (q *queueStub) Enqueue(_ context.Context, participantID string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, participantID)
	return fmt.Sprintf("export-%d", len(q.enqueued)), nil
}

func newTestService(t *testing.T, n int, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) })),
		WithShuffle(identityOrder),
	}
	svc := NewService(writeCatalogFile(t, n), store, append(base, opts...)...)
	return svc, store
}

func intakeFixture() Intake {
	return Intake{Name: "Kim", BirthYear: 1998, Phone: "01012345678"}
}

func TestBeginStartsAtConsent(t *testing.T) {
	svc, _ := newTestService(t, 3)
	sess, resumed, err := svc.Begin(context.Background(), intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if resumed {
		t.Fatalf("fresh participant should not resume")
	}
	if sess.Phase != domain.PhaseInstruction {
		t.Fatalf("expected instruction phase, got %s", sess.Phase)
	}
	if sess.Participant.ID != "Kim_1998_5678" {
		t.Fatalf("unexpected participant ID %s", sess.Participant.ID)
	}
	if sess.Total() != 3 {
		t.Fatalf("expected order over 3 pairs, got %d", sess.Total())
	}
}

func TestBeginAcceptsDegenerateIntake(t *testing.T) {
	svc, _ := newTestService(t, 1)
	cases := []struct {
		name   string
		intake Intake
		wantID string
	}{
		{"empty name", Intake{Name: "  ", BirthYear: 1990, Phone: "0101234"}, "_1990_1234"},
		{"short phone", Intake{Name: "A", BirthYear: 1990, Phone: "12"}, "A_1990_XXXX"},
		{"missing everything", Intake{}, "_0_XXXX"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess, _, err := svc.Begin(context.Background(), tc.intake)
			if err != nil {
				t.Fatalf("begin: %v", err)
			}
			if sess.Participant.ID != tc.wantID {
				t.Fatalf("expected participant ID %q, got %q", tc.wantID, sess.Participant.ID)
			}
		})
	}
}

func TestExtendedIntakeCarriesFields(t *testing.T) {
	svc, _ := newTestService(t, 1, WithExtendedIntake(true))
	in := intakeFixture()
	in.Age = 27
	in.Gender = "F"
	in.Affiliation = "Seoul National University"
	sess, _, err := svc.Begin(context.Background(), in)
	if err != nil {
		t.Fatalf("begin extended: %v", err)
	}
	if sess.Participant.Age != 27 || sess.Participant.Gender != "F" {
		t.Fatalf("extended fields not carried: %+v", sess.Participant)
	}
	if sess.Participant.Affiliation != "Seoul National University" {
		t.Fatalf("affiliation not carried: %+v", sess.Participant)
	}
}

func TestExtendedIntakeIgnoredWhenDisabled(t *testing.T) {
	svc, _ := newTestService(t, 1)
	in := intakeFixture()
	in.Age = 27
	in.Gender = "F"
	sess, _, err := svc.Begin(context.Background(), in)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if sess.Participant.Age != 0 || sess.Participant.Gender != "" {
		t.Fatalf("extended fields should be dropped: %+v", sess.Participant)
	}
}

func TestSurveyFlowToCompletion(t *testing.T) {
	queue := &queueStub{}
	svc, store := newTestService(t, 3, WithExportQueue(queue))
	ctx := context.Background()

	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	for i := 0; i < 3; i++ {
		pair, done := svc.Current(sess)
		if done {
			t.Fatalf("unexpected completion at step %d", i)
		}
		if err := svc.Submit(ctx, sess, pair.ID, i+1); err != nil {
			t.Fatalf("submit pair %d: %v", pair.ID, err)
		}
	}
	if _, done := svc.Current(sess); !done {
		t.Fatalf("expected all pairs answered")
	}
	if err := svc.Finalize(ctx, sess); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sess.Phase != domain.PhaseComplete {
		t.Fatalf("expected complete phase, got %s", sess.Phase)
	}
	if sess.ExportID != "export-1" {
		t.Fatalf("expected export id assigned, got %q", sess.ExportID)
	}
	rows, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 persisted responses, got %d", len(rows))
	}
}

func TestSubmitRejectsInvalidRating(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()
	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	var invalid domain.InvalidRatingError
	if err := svc.Submit(ctx, sess, 1, 0); !errors.As(err, &invalid) {
		t.Fatalf("expected invalid rating error, got %v", err)
	}
	if err := svc.Submit(ctx, sess, 1, 8); !errors.As(err, &invalid) {
		t.Fatalf("expected invalid rating error, got %v", err)
	}
}

func TestSubmitRejectsDuplicatePair(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()
	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	if err := svc.Submit(ctx, sess, 1, 4); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	var dup domain.DuplicateResponseError
	if err := svc.Submit(ctx, sess, 1, 5); !errors.As(err, &dup) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

// flakyStore fails a configured number of appends before delegating, to
// model a transient persistence outage.
type flakyStore struct {
	*memory.Store
	failures int
}

func (f *flakyStore) Append(ctx context.Context, r domain.Response) error {
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("append unavailable")
	}
	return f.Store.Append(ctx, r)
}

func TestSubmitRetriesAfterStoreFailure(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), failures: 1}
	svc := NewService(writeCatalogFile(t, 1), store,
		WithClock(ClockFunc(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) })),
		WithShuffle(identityOrder))
	ctx := context.Background()

	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}

	if err := svc.Submit(ctx, sess, 1, 5); err == nil {
		t.Fatalf("expected failing append to surface")
	}
	if sess.AnsweredCount() != 0 {
		t.Fatalf("failed submit must not count as answered, got %d", sess.AnsweredCount())
	}
	if pair, done := svc.Current(sess); done || pair.ID != 1 {
		t.Fatalf("expected pair 1 to remain current, got %+v done=%v", pair, done)
	}

	if err := svc.Submit(ctx, sess, 1, 5); err != nil {
		t.Fatalf("retry after transient failure: %v", err)
	}
	rows, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Rating != 5 {
		t.Fatalf("expected the retried rating persisted once, got %+v", rows)
	}
	if sess.AnsweredCount() != 1 {
		t.Fatalf("expected one recorded answer, got %d", sess.AnsweredCount())
	}
}

func TestBeginResumesWithPriorResponses(t *testing.T) {
	svc, store := newTestService(t, 3)
	ctx := context.Background()

	answered := domain.Response{
		PairID:     1,
		SentenceA:  "first sentence 1",
		SentenceB:  "second sentence 1",
		Rating:     6,
		AnsweredAt: time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
		Participant: domain.Participant{
			ID: "Kim_1998_5678", Name: "Kim", BirthYear: 1998, Phone: "01012345678",
			StartedAt: time.Date(2024, 4, 30, 11, 0, 0, 0, time.UTC),
		},
	}
	if err := store.Append(ctx, answered); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sess, resumed, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !resumed {
		t.Fatalf("expected resume")
	}
	if sess.Phase != domain.PhaseSurvey {
		t.Fatalf("resume should skip consent, got %s", sess.Phase)
	}
	pair, done := svc.Current(sess)
	if done || pair.ID != 2 {
		t.Fatalf("expected next unanswered pair 2, got %v done=%v", pair.ID, done)
	}
	if sess.AnsweredCount() != 1 {
		t.Fatalf("expected prior answer loaded, got %d", sess.AnsweredCount())
	}
}

func TestResumeRequiresPriorResponses(t *testing.T) {
	svc, _ := newTestService(t, 3)
	if _, err := svc.Resume(context.Background(), intakeFixture()); !errors.Is(err, domain.ErrNoPriorResponses) {
		t.Fatalf("expected ErrNoPriorResponses, got %v", err)
	}
}

func TestResumeLoadsPriorResponses(t *testing.T) {
	svc, store := newTestService(t, 3)
	ctx := context.Background()

	answered := domain.Response{
		PairID:     1,
		SentenceA:  "first sentence 1",
		SentenceB:  "second sentence 1",
		Rating:     2,
		AnsweredAt: time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
		Participant: domain.Participant{
			ID: "Kim_1998_5678", Name: "Kim", BirthYear: 1998, Phone: "01012345678",
			StartedAt: time.Date(2024, 4, 30, 11, 0, 0, 0, time.UTC),
		},
	}
	if err := store.Append(ctx, answered); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sess, err := svc.Resume(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if sess.Phase != domain.PhaseSurvey {
		t.Fatalf("resume should land in the survey phase, got %s", sess.Phase)
	}
	pair, done := svc.Current(sess)
	if done || pair.ID != 2 {
		t.Fatalf("expected next unanswered pair 2, got %v done=%v", pair.ID, done)
	}
}

func TestFinalizeRequiresAllAnswered(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()
	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	if err := svc.Finalize(ctx, sess); err == nil {
		t.Fatalf("expected finalize to fail with unanswered pairs")
	}
}

func TestFinalizeSurfacesEnqueueFailure(t *testing.T) {
	queue := &queueStub{err: fmt.Errorf("queue full")}
	svc, _ := newTestService(t, 1, WithExportQueue(queue))
	ctx := context.Background()
	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	if err := svc.Submit(ctx, sess, 1, 4); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Finalize(ctx, sess); err == nil {
		t.Fatalf("expected finalize to surface enqueue error")
	}
}

func TestPauseFreezesRemaining(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := ClockFunc(func() time.Time { return now })
	store := memory.NewStore()
	svc := NewService(writeCatalogFile(t, 1), store,
		WithClock(clock), WithShuffle(identityOrder), WithTimeBudget(time.Hour))

	sess, _, err := svc.Begin(context.Background(), intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	now = now.Add(10 * time.Minute)
	svc.Pause(sess)
	now = now.Add(30 * time.Minute)
	if got := svc.Remaining(sess); got != 50*time.Minute {
		t.Fatalf("expected 50m remaining while paused, got %s", got)
	}
	svc.Unpause(sess)
	now = now.Add(20 * time.Minute)
	if got := svc.Remaining(sess); got != 30*time.Minute {
		t.Fatalf("expected 30m remaining after unpause, got %s", got)
	}
}

func TestResponsesReturnsPersistedRows(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()
	sess, _, err := svc.Begin(ctx, intakeFixture())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := svc.ConfirmConsent(ctx, sess); err != nil {
		t.Fatalf("consent: %v", err)
	}
	if err := svc.Submit(ctx, sess, 1, 3); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rows, err := svc.Responses(ctx, sess.Participant.ID)
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(rows) != 1 || rows[0].Rating != 3 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
