package topicquiz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuestions_Valid(t *testing.T) {
	want := makeQuestions("History", QuestionsPerQuiz)

	got, err := ParseQuestions(questionsJSON(t, want), QuestionsPerQuiz)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestParseQuestions_AnyCount(t *testing.T) {
	got, err := ParseQuestions(questionsJSON(t, makeQuestions("History", 2)), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestParseQuestions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		reason  string
	}{
		{"empty body", "  ", "empty response"},
		{"not json", "here are your questions", "failed to parse questions"},
		{"object instead of array", `{"questions": []}`, "failed to parse questions"},
		{"empty list", `[]`, "no questions"},
		{"missing question", `[{"options":["a","b","c","d"],"answer":"a"}]`, "missing question text"},
		{"blank question", `[{"question":" ","options":["a","b","c","d"],"answer":"a"}]`, "missing question text"},
		{"missing answer", `[{"question":"Q?","options":["a","b","c","d"]}]`, "missing answer"},
		{"missing options", `[{"question":"Q?","answer":"a"}]`, "expected 4 options, got 0"},
		{"three options", `[{"question":"Q?","options":["a","b","c"],"answer":"a"}]`, "expected 4 options, got 3"},
		{"duplicate options", `[{"question":"Q?","options":["a","b","b","d"],"answer":"a"}]`, "duplicate option"},
		{"empty option", `[{"question":"Q?","options":["a","","c","d"],"answer":"a"}]`, "empty option"},
		{"answer not in options", `[{"question":"Q?","options":["a","b","c","d"],"answer":"e"}]`, "not one of the options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestions([]byte(tt.payload), 0)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestParseQuestions_WrongCount(t *testing.T) {
	_, err := ParseQuestions(questionsJSON(t, makeQuestions("History", 6)), QuestionsPerQuiz)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "expected 5 questions, got 6", err.Error())
}

func TestParseQuestions_ReportsPosition(t *testing.T) {
	qs := makeQuestions("History", 3)
	qs[2].Answer = "nope"

	_, err := ParseQuestions(questionsJSON(t, qs), 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "question 3:")
}
