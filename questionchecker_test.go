package topicquiz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func testChecker(t *testing.T, status int, toolName, arguments string) (*QuestionChecker, *[]map[string]interface{}) {
	t.Helper()
	srv, requests := fakeOpenAI(t, status, toolName, arguments)
	return NewQuestionChecker(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, nil), requests
}

func TestQuestionChecker_AcceptsSet(t *testing.T) {
	checker, requests := testChecker(t, http.StatusOK, evaluateQuestionsTool,
		`{"verdicts":[{"index":1,"action":"accept","reason":"fine"},{"index":2,"action":"accept","reason":"fine"}]}`)

	err := checker.ReviewQuestions(context.Background(), "History", makeQuestions("History", 2))
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	messages := (*requests)[0]["messages"].([]interface{})
	prompt := messages[1].(map[string]interface{})["content"].(string)
	require.Contains(t, prompt, "Quiz Topic: History")
	require.Contains(t, prompt, "Question 2: History question 2?")
	require.Contains(t, prompt, "* B2")
}

func TestQuestionChecker_RejectsSet(t *testing.T) {
	checker, _ := testChecker(t, http.StatusOK, evaluateQuestionsTool,
		`{"verdicts":[{"index":1,"action":"accept","reason":"fine"},{"index":2,"action":"reject","reason":"answer in question"}]}`)

	err := checker.ReviewQuestions(context.Background(), "History", makeQuestions("History", 2))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "question 2 rejected by review: answer in question", err.Error())
}

func TestQuestionChecker_MalformedReview(t *testing.T) {
	checker, _ := testChecker(t, http.StatusOK, evaluateQuestionsTool, `{"verdicts": {`)

	err := checker.ReviewQuestions(context.Background(), "History", makeQuestions("History", 1))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, err.Error(), "failed to parse review")
}

func TestQuestionChecker_ServerError(t *testing.T) {
	checker, _ := testChecker(t, http.StatusInternalServerError, "", "")

	err := checker.ReviewQuestions(context.Background(), "History", makeQuestions("History", 1))
	require.Error(t, err)

	var verr *ValidationError
	require.False(t, errors.As(err, &verr))
	require.Contains(t, err.Error(), "failed to check questions")
}
