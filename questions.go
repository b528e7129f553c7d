package topicquiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawQuestion mirrors the generated JSON; pointers tell a missing field from an empty one
type rawQuestion struct {
	Question *string  `json:"question"`
	Options  []string `json:"options"`
	Answer   *string  `json:"answer"`
}

// ParseQuestions decodes a generated JSON array and validates every item.
// want is the number of questions the caller asked for; 0 accepts any
// non-empty list.
func ParseQuestions(data []byte, want int) (QuestionSet, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, &ValidationError{Reason: "empty response from question service"}
	}

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, &ValidationError{Reason: "failed to parse questions", Err: err}
	}

	if len(raw) == 0 {
		return nil, &ValidationError{Reason: "question service returned no questions"}
	}
	if want > 0 && len(raw) != want {
		return nil, &ValidationError{Reason: fmt.Sprintf("expected %d questions, got %d", want, len(raw))}
	}

	questions := make(QuestionSet, 0, len(raw))
	for i, r := range raw {
		q, err := r.validate()
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("question %d: %s", i+1, err)}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r rawQuestion) validate() (Question, error) {
	if r.Question == nil || strings.TrimSpace(*r.Question) == "" {
		return Question{}, fmt.Errorf("missing question text")
	}
	if r.Answer == nil || *r.Answer == "" {
		return Question{}, fmt.Errorf("missing answer")
	}
	if len(r.Options) != OptionsPerQuestion {
		return Question{}, fmt.Errorf("expected %d options, got %d", OptionsPerQuestion, len(r.Options))
	}

	seen := make(map[string]bool, len(r.Options))
	for _, o := range r.Options {
		if strings.TrimSpace(o) == "" {
			return Question{}, fmt.Errorf("empty option")
		}
		if seen[o] {
			return Question{}, fmt.Errorf("duplicate option %q", o)
		}
		seen[o] = true
	}

	q := Question{
		Text:    *r.Question,
		Options: append([]string(nil), r.Options...),
		Answer:  *r.Answer,
	}
	if !q.HasOption(q.Answer) {
		return Question{}, fmt.Errorf("answer %q is not one of the options", q.Answer)
	}
	return q, nil
}
