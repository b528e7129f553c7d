package topicquiz

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI serves /v1/chat/completions with a single tool call carrying arguments
func fakeOpenAI(t *testing.T, status int, toolName, arguments string) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()

	var requests []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
			return
		}

		resp := map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []interface{}{
				map[string]interface{}{
					"index":         0,
					"finish_reason": "tool_calls",
					"message": map[string]interface{}{
						"role": "assistant",
						"tool_calls": []interface{}{
							map[string]interface{}{
								"id":   "call_1",
								"type": "function",
								"function": map[string]interface{}{
									"name":      toolName,
									"arguments": arguments,
								},
							},
						},
					},
				},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func testMaker(srv *httptest.Server, transcriptDir string) *QuestionMaker {
	return NewQuestionMaker(OpenAIConfig{
		APIKey:        "sk-test",
		BaseURL:       srv.URL + "/v1",
		TranscriptDir: transcriptDir,
	}, nil)
}

func TestQuestionMaker_GenerateQuestions(t *testing.T) {
	want := makeQuestions("History", QuestionsPerQuiz)
	args, err := json.Marshal(map[string]interface{}{"questions": want})
	require.NoError(t, err)

	srv, requests := fakeOpenAI(t, http.StatusOK, submitQuestionsTool, string(args))

	raw, err := testMaker(srv, "").GenerateQuestions(context.Background(), "History")
	require.NoError(t, err)

	got, err := ParseQuestions(raw, QuestionsPerQuiz)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	require.Equal(t, "gpt-4o", req["model"])

	messages := req["messages"].([]interface{})
	system := messages[0].(map[string]interface{})
	require.Equal(t, "system", system["role"])
	require.Contains(t, system["content"], "expert quiz master")
	user := messages[1].(map[string]interface{})
	require.Contains(t, user["content"], "Generate 5 multiple choice questions about: History")

	tools := req["tools"].([]interface{})
	fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
	require.Equal(t, submitQuestionsTool, fn["name"])
}

func TestQuestionMaker_UnexpectedTool(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, "something_else", `{}`)

	_, err := testMaker(srv, "").GenerateQuestions(context.Background(), "History")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, err.Error(), "unexpected tool call")
}

func TestQuestionMaker_BadArguments(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, submitQuestionsTool, `{"questions": [`)

	_, err := testMaker(srv, "").GenerateQuestions(context.Background(), "History")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, err.Error(), "failed to parse tool arguments")
}

func TestQuestionMaker_MissingQuestions(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, submitQuestionsTool, `{"items": []}`)

	_, err := testMaker(srv, "").GenerateQuestions(context.Background(), "History")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestQuestionMaker_ServerErrorIsTransport(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusInternalServerError, "", "")

	_, err := testMaker(srv, "").GenerateQuestions(context.Background(), "History")
	require.Error(t, err)

	var verr *ValidationError
	require.False(t, errors.As(err, &verr))
	require.Equal(t, OutcomeTransport, outcomeOf(err))
}

func TestQuestionMaker_WritesTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	args, err := json.Marshal(map[string]interface{}{"questions": makeQuestions("Jazz", QuestionsPerQuiz)})
	require.NoError(t, err)
	srv, _ := fakeOpenAI(t, http.StatusOK, submitQuestionsTool, string(args))

	_, err = testMaker(srv, dir).GenerateQuestions(context.Background(), "Jazz")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "Category: Jazz")
	require.Contains(t, text, "LLM REQUEST (QuestionMaker)")
	require.Contains(t, text, "LLM RESPONSE (QuestionMaker)")
	require.Contains(t, text, "Request Complete")
}

func TestLLMLogger_Path(t *testing.T) {
	dir := t.TempDir()
	ll, err := NewLLMLogger(dir, "req-1", "Jazz")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "req-1.log"), ll.Path())
	require.NoError(t, ll.Close())
}
