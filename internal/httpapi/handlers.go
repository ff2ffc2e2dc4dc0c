package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"surveycore/internal/core"
	"surveycore/internal/export"
	"surveycore/pkg/domain"
)

type intakePage struct {
	Extended  bool
	Error     string
	Name      string
	BirthYear int
	Phone     string
}

type consentPage struct {
	Statements []string
	Error      string
}

type ratingChoice struct {
	Value   int
	Label   string
	Checked bool
}

type surveyPage struct {
	Pair      domain.SentencePair
	Answered  int
	Total     int
	Remaining string
	Paused    bool
	Expired   bool
	Choices   []ratingChoice
}

type completePage struct {
	Answered int
	ExportID string
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logError("render template", "template", name, "error", err)
	}
}

// requireSession resolves the cookie session or bounces to the intake form.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*browserSession, bool) {
	bs, ok := s.sessions.lookup(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return bs, true
}

func (s *Server) handleIntakeForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "intake", intakePage{Extended: s.svc.ExtendedIntake()})
}

func (s *Server) handleIntakeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	birthYear, _ := strconv.Atoi(r.PostFormValue("birth_year"))
	in := core.Intake{
		Name:      r.PostFormValue("name"),
		BirthYear: birthYear,
		Phone:     r.PostFormValue("phone"),
	}
	if s.svc.ExtendedIntake() {
		in.Age, _ = strconv.Atoi(r.PostFormValue("age"))
		in.Gender = r.PostFormValue("gender")
		in.Affiliation = r.PostFormValue("affiliation")
		in.Email = r.PostFormValue("email")
		in.BankAccount = r.PostFormValue("bank_account")
		in.NationalID = r.PostFormValue("national_id")
	}

	var (
		sess    *domain.Session
		resumed bool
		err     error
	)
	if r.PostFormValue("mode") == "resume" {
		sess, err = s.svc.Resume(r.Context(), in)
		resumed = true
		if errors.Is(err, domain.ErrNoPriorResponses) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.render(w, "intake", intakePage{
				Extended:  s.svc.ExtendedIntake(),
				Error:     "이전 응답 기록을 찾을 수 없습니다. 입력한 정보를 확인하거나 새로 시작해 주세요.",
				Name:      in.Name,
				BirthYear: in.BirthYear,
				Phone:     in.Phone,
			})
			return
		}
	} else {
		sess, resumed, err = s.svc.Begin(r.Context(), in)
	}
	if err != nil {
		s.logError("open session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.sessions.drop(r)
	setSessionCookie(w, s.sessions.create(sess))
	if resumed {
		http.Redirect(w, r, "/survey", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/consent", http.StatusSeeOther)
}

func (s *Server) handleConsentForm(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	bs.mu.Lock()
	phase := bs.sess.Phase
	bs.mu.Unlock()
	if phase != domain.PhaseInstruction {
		http.Redirect(w, r, "/survey", http.StatusSeeOther)
		return
	}
	s.render(w, "consent", consentPage{Statements: domain.ConsentStatements})
}

func (s *Server) handleConsentSubmit(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	// Every statement must be affirmed; one missing checkbox blocks the
	// transition.
	for i := range domain.ConsentStatements {
		if r.PostFormValue(fmt.Sprintf("consent_%d", i)) != "yes" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.render(w, "consent", consentPage{
				Statements: domain.ConsentStatements,
				Error:      "모든 항목에 동의해야 설문을 시작할 수 있습니다.",
			})
			return
		}
	}
	bs.mu.Lock()
	err := s.svc.ConfirmConsent(r.Context(), bs.sess)
	bs.mu.Unlock()
	if err != nil {
		var transition domain.TransitionError
		if errors.As(err, &transition) {
			http.Redirect(w, r, "/survey", http.StatusSeeOther)
			return
		}
		s.logError("confirm consent", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/survey", http.StatusSeeOther)
}

func (s *Server) handleSurvey(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()

	switch bs.sess.Phase {
	case domain.PhaseComplete:
		http.Redirect(w, r, "/complete", http.StatusSeeOther)
		return
	case domain.PhaseInstruction:
		http.Redirect(w, r, "/consent", http.StatusSeeOther)
		return
	case domain.PhaseSurvey:
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	pair, done := s.svc.Current(bs.sess)
	if done {
		if err := s.svc.Finalize(r.Context(), bs.sess); err != nil {
			s.logError("finalize session", "participant", bs.sess.Participant.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/complete", http.StatusSeeOther)
		return
	}

	choices := make([]ratingChoice, 0, len(domain.RatingLabels))
	for i, label := range domain.RatingLabels {
		value := domain.RatingMin + i
		choices = append(choices, ratingChoice{Value: value, Label: label, Checked: value == domain.RatingDefault})
	}
	remaining := s.svc.Remaining(bs.sess)
	s.render(w, "survey", surveyPage{
		Pair:      pair,
		Answered:  bs.sess.AnsweredCount(),
		Total:     bs.sess.Total(),
		Remaining: remaining.Truncate(time.Second).String(),
		Paused:    bs.sess.Timer.Paused,
		Expired:   remaining <= 0,
		Choices:   choices,
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	pairID, err := strconv.Atoi(r.PostFormValue("pair_id"))
	if err != nil {
		http.Error(w, "bad pair id", http.StatusBadRequest)
		return
	}
	rating, err := strconv.Atoi(r.PostFormValue("rating"))
	if err != nil {
		http.Error(w, "bad rating", http.StatusBadRequest)
		return
	}

	bs.mu.Lock()
	err = s.svc.Submit(r.Context(), bs.sess, pairID, rating)
	bs.mu.Unlock()
	if err != nil {
		var dup domain.DuplicateResponseError
		if errors.As(err, &dup) {
			// Replayed form post: the answer is already recorded.
			http.Redirect(w, r, "/survey", http.StatusSeeOther)
			return
		}
		var invalid domain.InvalidRatingError
		if errors.As(err, &invalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logError("submit rating", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/survey", http.StatusSeeOther)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	bs.mu.Lock()
	if bs.sess.Timer.Paused {
		s.svc.Unpause(bs.sess)
	} else {
		s.svc.Pause(bs.sess)
	}
	bs.mu.Unlock()
	http.Redirect(w, r, "/survey", http.StatusSeeOther)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.sess.Phase != domain.PhaseComplete {
		http.Redirect(w, r, "/survey", http.StatusSeeOther)
		return
	}
	s.render(w, "complete", completePage{
		Answered: bs.sess.AnsweredCount(),
		ExportID: bs.sess.ExportID,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	bs, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	bs.mu.Lock()
	participantID := bs.sess.Participant.ID
	bs.mu.Unlock()
	if participantID == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	rows, err := s.svc.Responses(r.Context(), participantID)
	if err != nil {
		s.logError("load responses for download", "participant", participantID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	payload, err := export.Render(rows, s.svc.ExtendedIntake())
	if err != nil {
		s.logError("render download", "participant", participantID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FinalFile))
	_, _ = w.Write(payload)
}
