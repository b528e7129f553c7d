package topicquiz

// Question represents a single multiple choice question with its correct answer
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"` // equals one of Options
}

// HasOption reports whether option is one of the question's choices
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// IsCorrect reports whether answer matches the correct option
func (q Question) IsCorrect(answer string) bool {
	return answer == q.Answer
}

// QuestionSet is an ordered list of questions for one quiz run
type QuestionSet []Question

// Clone returns a deep copy of the set
func (qs QuestionSet) Clone() QuestionSet {
	if qs == nil {
		return nil
	}
	out := make(QuestionSet, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// Phase represents one state of the quiz session
type Phase string

const (
	PhaseSelectingCategory Phase = "selecting_category"
	PhaseLoading           Phase = "loading"
	PhaseInQuiz            Phase = "in_quiz"
	PhaseShowingResult     Phase = "showing_result"
	PhaseFailed            Phase = "failed"
)

// State is a snapshot of a quiz session. Empty strings stand for unset
// optional values.
type State struct {
	Phase          Phase       `json:"phase"`
	Questions      QuestionSet `json:"questions"`
	CurrentIndex   int         `json:"current_index"`
	Score          int         `json:"score"`
	SelectedAnswer string      `json:"selected_answer,omitempty"`
	Answered       bool        `json:"answered"`
	Category       string      `json:"category,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
}

// InitialState returns the state a session starts in and resets to
func InitialState() State {
	return State{Phase: PhaseSelectingCategory}
}

// CurrentQuestion returns the question at CurrentIndex, if there is one
func (s State) CurrentQuestion() (Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Total returns the number of questions in the current set
func (s State) Total() int {
	return len(s.Questions)
}

// IsLastQuestion reports whether the current question is the final one
func (s State) IsLastQuestion() bool {
	return len(s.Questions) > 0 && s.CurrentIndex == len(s.Questions)-1
}

// Mark describes how an option of the current question should be displayed
type Mark string

const (
	MarkNone    Mark = "none"    // not answered yet
	MarkCorrect Mark = "correct" // the right answer, shown after answering
	MarkWrong   Mark = "wrong"   // the user's pick when it was wrong
	MarkDimmed  Mark = "dimmed"  // any other option after answering
)

// Mark derives the display mark for option from the answer-tracking fields
func (s State) Mark(option string) Mark {
	q, ok := s.CurrentQuestion()
	if !ok || !s.Answered {
		return MarkNone
	}
	switch {
	case option == q.Answer:
		return MarkCorrect
	case option == s.SelectedAnswer:
		return MarkWrong
	default:
		return MarkDimmed
	}
}
