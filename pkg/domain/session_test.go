package domain

import (
	"errors"
	"testing"
	"time"
)

var testCatalog = []SentencePair{
	{ID: 10, SentenceA: "a1", SentenceB: "b1"},
	{ID: 11, SentenceA: "a2", SentenceB: "b2"},
	{ID: 12, SentenceA: "a3", SentenceB: "b3"},
}

func testParticipant() Participant {
	return Participant{ID: "Kim_1998_5678", Name: "Kim", BirthYear: 1998, Phone: "01012345678"}
}

func surveySession(t *testing.T, order []int) *Session {
	t.Helper()
	now := time.Now()
	s := NewSession()
	if err := s.BeginInstruction(testParticipant(), order, now, DefaultTimeBudget); err != nil {
		t.Fatalf("begin instruction: %v", err)
	}
	if err := s.BeginSurvey(now); err != nil {
		t.Fatalf("begin survey: %v", err)
	}
	return s
}

func TestSessionAnswerAdvancesToNextPair(t *testing.T) {
	s := surveySession(t, []int{0, 1, 2})

	pair, ok := s.CurrentPair(testCatalog)
	if !ok || pair.ID != 10 {
		t.Fatalf("expected pair 10 first, got %+v ok=%v", pair, ok)
	}
	if err := s.RecordAnswer(Response{PairID: pair.ID, Rating: 5, AnsweredAt: time.Now(), Participant: s.Participant}); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	next, ok := s.CurrentPair(testCatalog)
	if !ok || next.ID != 11 {
		t.Fatalf("expected pair at shuffled position 1 (ID 11), got %+v", next)
	}
	if s.Index != 1 {
		t.Fatalf("expected index 1 after skipping the answered position, got %d", s.Index)
	}
}

func TestSessionOutOfOrderAnswerKeepsEarlierPair(t *testing.T) {
	s := surveySession(t, []int{0, 1, 2})

	// An answer for a later shuffled position must not move progress past
	// the still-unanswered first position.
	if err := s.RecordAnswer(Response{PairID: 12, Rating: 6, Participant: s.Participant}); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	pair, ok := s.CurrentPair(testCatalog)
	if !ok || pair.ID != 10 {
		t.Fatalf("expected unanswered pair 10, got %+v ok=%v", pair, ok)
	}

	if err := s.RecordAnswer(Response{PairID: 10, Rating: 4, Participant: s.Participant}); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if err := s.RecordAnswer(Response{PairID: 11, Rating: 4, Participant: s.Participant}); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if _, ok := s.CurrentPair(testCatalog); ok {
		t.Fatalf("expected every pair answered")
	}
	if got := s.AnsweredCount(); got != 3 {
		t.Fatalf("expected 3 responses, got %d", got)
	}
}

func TestSessionDuplicateAnswerRejected(t *testing.T) {
	s := surveySession(t, []int{0, 1, 2})
	resp := Response{PairID: 10, Rating: 4, Participant: s.Participant}
	if err := s.RecordAnswer(resp); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	err := s.RecordAnswer(resp)
	var dup DuplicateResponseError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateResponseError, got %v", err)
	}
	if dup.PairID != 10 {
		t.Fatalf("unexpected duplicate pair %d", dup.PairID)
	}
}

func TestSessionResumeSkipsAnsweredPairs(t *testing.T) {
	prior := []Response{
		{PairID: 10, Rating: 3, AnsweredAt: time.Now(), Participant: testParticipant()},
		{PairID: 12, Rating: 6, AnsweredAt: time.Now(), Participant: testParticipant()},
	}
	s := NewSession()
	if err := s.ResumeSurvey(testParticipant(), []int{0, 2, 1}, prior, time.Now(), DefaultTimeBudget); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if s.Phase != PhaseSurvey {
		t.Fatalf("expected survey phase after resume, got %s", s.Phase)
	}
	pair, ok := s.CurrentPair(testCatalog)
	if !ok {
		t.Fatalf("expected an unanswered pair")
	}
	if pair.ID == 10 || pair.ID == 12 {
		t.Fatalf("resume rendered already-answered pair %d", pair.ID)
	}
	if pair.ID != 11 {
		t.Fatalf("expected pair 11, got %d", pair.ID)
	}
}

func TestSessionCompletesExactlyOnce(t *testing.T) {
	s := surveySession(t, []int{2, 0, 1})
	for {
		pair, ok := s.CurrentPair(testCatalog)
		if !ok {
			break
		}
		if err := s.RecordAnswer(Response{PairID: pair.ID, Rating: 4, Participant: s.Participant}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if got := s.AnsweredCount(); got != 3 {
		t.Fatalf("expected 3 responses, got %d", got)
	}
	if err := s.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.Complete(); err == nil {
		t.Fatalf("second complete should fail")
	}
	if err := s.RecordAnswer(Response{PairID: 99, Rating: 1}); err == nil {
		t.Fatalf("answers after completion should be rejected")
	}
}

func TestSessionTransitionGuards(t *testing.T) {
	s := NewSession()
	if err := s.BeginSurvey(time.Now()); err == nil {
		t.Fatalf("begin_survey from start_check should fail")
	}
	if err := s.BeginInstruction(testParticipant(), []int{0}, time.Now(), DefaultTimeBudget); err != nil {
		t.Fatalf("begin instruction: %v", err)
	}
	if err := s.BeginInstruction(testParticipant(), []int{0}, time.Now(), DefaultTimeBudget); err == nil {
		t.Fatalf("begin_instruction twice should fail")
	}
	var te TransitionError
	err := s.ResumeSurvey(testParticipant(), []int{0}, nil, time.Now(), DefaultTimeBudget)
	if !errors.As(err, &te) || te.From != PhaseInstruction {
		t.Fatalf("expected transition error from instruction, got %v", err)
	}
}
