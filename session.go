package topicquiz

import "strings"

// Session is the quiz state machine. It performs no I/O and is not safe for
// concurrent use; Quiz serializes access to it.
type Session struct {
	state State
}

// NewSession creates a session in the category selection phase
func NewSession() *Session {
	return &Session{state: InitialState()}
}

// State returns a copy of the current state
func (s *Session) State() State {
	st := s.state
	st.Questions = s.state.Questions.Clone()
	return st
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	return s.state.Phase
}

// SelectCategory stores the category and enters Loading
func (s *Session) SelectCategory(category string) error {
	if s.state.Phase != PhaseSelectingCategory {
		return invalidTransition("select a category", s.state.Phase)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}

	s.state.Category = category
	s.state.ErrorMessage = ""
	s.state.Phase = PhaseLoading
	return nil
}

// Loaded installs a freshly fetched question set and starts the quiz
func (s *Session) Loaded(questions QuestionSet) error {
	if s.state.Phase != PhaseLoading {
		return invalidTransition("load questions", s.state.Phase)
	}
	if len(questions) == 0 {
		return ErrEmptyQuestionSet
	}

	s.state.Questions = questions.Clone()
	s.state.CurrentIndex = 0
	s.state.Score = 0
	s.state.Answered = false
	s.state.SelectedAnswer = ""
	s.state.ErrorMessage = ""
	s.state.Phase = PhaseInQuiz
	return nil
}

// LoadFailed records the failure message and enters Failed
func (s *Session) LoadFailed(message string) error {
	if s.state.Phase != PhaseLoading {
		return invalidTransition("fail loading", s.state.Phase)
	}
	if message == "" {
		message = DefaultFailureMessage
	}

	s.state.ErrorMessage = message
	s.state.Phase = PhaseFailed
	return nil
}

// SubmitAnswer records the answer for the current question. A second
// submission for the same question is ignored.
func (s *Session) SubmitAnswer(answer string) error {
	if s.state.Phase != PhaseInQuiz {
		return invalidTransition("submit an answer", s.state.Phase)
	}
	if s.state.Answered {
		return nil
	}

	q, _ := s.state.CurrentQuestion()
	if !q.HasOption(answer) {
		return ErrUnknownOption
	}

	s.state.SelectedAnswer = answer
	s.state.Answered = true
	if q.IsCorrect(answer) {
		s.state.Score++
	}
	return nil
}

// Advance moves past an answered question, or to the results after the last one
func (s *Session) Advance() error {
	if s.state.Phase != PhaseInQuiz {
		return invalidTransition("advance", s.state.Phase)
	}
	if !s.state.Answered {
		return ErrNotAnswered
	}

	if s.state.CurrentIndex+1 < len(s.state.Questions) {
		s.state.CurrentIndex++
		s.state.Answered = false
		s.state.SelectedAnswer = ""
		return nil
	}

	s.state.Phase = PhaseShowingResult
	return nil
}

// PlayAgain resets a finished quiz back to category selection
func (s *Session) PlayAgain() error {
	if s.state.Phase != PhaseShowingResult {
		return invalidTransition("play again", s.state.Phase)
	}
	s.state = InitialState()
	return nil
}

// Retry re-enters Loading for the remembered category. Without one the
// session is reset instead. refetch reports whether a fetch must be started.
func (s *Session) Retry() (refetch bool, err error) {
	if s.state.Phase != PhaseFailed {
		return false, invalidTransition("retry", s.state.Phase)
	}

	if s.state.Category == "" {
		s.state = InitialState()
		return false, nil
	}

	s.state.ErrorMessage = ""
	s.state.Phase = PhaseLoading
	return true, nil
}

// Reset returns to the initial state from any phase but Loading
func (s *Session) Reset() error {
	if s.state.Phase == PhaseLoading {
		return invalidTransition("reset", s.state.Phase)
	}
	s.state = InitialState()
	return nil
}
