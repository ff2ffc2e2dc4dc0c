package domain

import "time"

// Phase names one state of the page-flow state machine.
type Phase string

// Session phases. Transitions fire only on explicit submission actions;
// the machine never auto-advances.
const (
	// PhaseStartCheck is the intake form (direct entry or resume choice).
	PhaseStartCheck Phase = "start_check"
	// PhaseInstruction is the consent checklist.
	PhaseInstruction Phase = "instruction"
	// PhaseSurvey is the paginated rating loop.
	PhaseSurvey Phase = "survey"
	// PhaseComplete is terminal; no further responses are accepted.
	PhaseComplete Phase = "complete"
)

// Session is the explicit per-browser-session state record. It is owned by
// one connection handler and passed through every transition; nothing in
// the package reads ambient globals.
type Session struct {
	Phase       Phase       `json:"phase"`
	Participant Participant `json:"participant"`
	Order       []int       `json:"order"`
	Index       int         `json:"index"`
	Responses   []Response  `json:"responses"`
	Timer       Timer       `json:"timer"`
	ExportID    string      `json:"export_id,omitempty"`

	answered map[int]struct{}
}

// NewSession returns a session positioned at the intake form.
func NewSession() *Session {
	return &Session{Phase: PhaseStartCheck, answered: make(map[int]struct{})}
}

// BeginInstruction records the intake submission and moves to the consent
// checklist. Valid only from the start_check phase.
func (s *Session) BeginInstruction(p Participant, order []int, now time.Time, budget time.Duration) error {
	if s.Phase != PhaseStartCheck {
		return TransitionError{From: s.Phase, Event: "begin_instruction"}
	}
	s.Participant = p
	s.Order = order
	s.Timer = NewTimer(now, budget)
	s.Phase = PhaseInstruction
	return nil
}

// BeginSurvey moves from the consent checklist into the rating loop and
// restarts the timer. The caller is responsible for the consent AND-gate.
func (s *Session) BeginSurvey(now time.Time) error {
	if s.Phase != PhaseInstruction {
		return TransitionError{From: s.Phase, Event: "begin_survey"}
	}
	s.Timer = NewTimer(now, s.Timer.Budget)
	s.Phase = PhaseSurvey
	return nil
}

// ResumeSurvey loads previously recorded responses for the participant and
// jumps directly into the rating loop, skipping the consent checklist.
func (s *Session) ResumeSurvey(p Participant, order []int, prior []Response, now time.Time, budget time.Duration) error {
	if s.Phase != PhaseStartCheck {
		return TransitionError{From: s.Phase, Event: "resume_survey"}
	}
	s.Participant = p
	s.Order = order
	s.Timer = NewTimer(now, budget)
	s.Responses = append(s.Responses, prior...)
	for _, r := range prior {
		s.markAnswered(r.PairID)
	}
	s.Phase = PhaseSurvey
	return nil
}

// Answered reports whether the session participant already rated pairID.
func (s *Session) Answered(pairID int) bool {
	_, ok := s.answered[pairID]
	return ok
}

func (s *Session) markAnswered(pairID int) {
	if s.answered == nil {
		s.answered = make(map[int]struct{})
	}
	s.answered[pairID] = struct{}{}
}

// CurrentPair returns the pair at the first unanswered shuffled position,
// advancing the progress index past positions whose pair ID was already
// answered (replayed renders and resumed sessions land here). ok is false
// when every position is answered.
func (s *Session) CurrentPair(catalog []SentencePair) (SentencePair, bool) {
	for s.Index < len(s.Order) {
		pair := catalog[s.Order[s.Index]]
		if !s.Answered(pair.ID) {
			return pair, true
		}
		s.Index++
	}
	return SentencePair{}, false
}

// CanAnswer reports whether the session may accept a rating for pairID:
// the session must be in the survey phase and the pair must not already be
// answered. Callers that persist before recording use it to guard the
// write.
func (s *Session) CanAnswer(pairID int) error {
	if s.Phase != PhaseSurvey {
		return TransitionError{From: s.Phase, Event: "record_answer"}
	}
	if s.Answered(pairID) {
		return DuplicateResponseError{ParticipantID: s.Participant.ID, PairID: pairID}
	}
	return nil
}

// RecordAnswer appends a response and marks its pair answered. The progress
// index moves only as CurrentPair skips answered positions, so recording a
// pair out of shuffled order never jumps past an unanswered one. The
// duplicate guard makes a replayed submission a no-op error rather than a
// second row.
func (s *Session) RecordAnswer(r Response) error {
	if err := s.CanAnswer(r.PairID); err != nil {
		return err
	}
	s.Responses = append(s.Responses, r)
	s.markAnswered(r.PairID)
	return nil
}

// Complete transitions to the terminal phase once the rating loop is
// exhausted. Completing twice is a transition error.
func (s *Session) Complete() error {
	if s.Phase != PhaseSurvey {
		return TransitionError{From: s.Phase, Event: "complete"}
	}
	s.Phase = PhaseComplete
	return nil
}

// AnsweredCount returns the number of recorded responses.
func (s *Session) AnsweredCount() int { return len(s.Responses) }

// Total returns the catalog size fixed for this session.
func (s *Session) Total() int { return len(s.Order) }
