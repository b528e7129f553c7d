package topicquiz

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateQuestions(ctx context.Context, category string) (json.RawMessage, error) {
	args := m.Called(ctx, category)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type generatorFunc func(ctx context.Context, category string) (json.RawMessage, error)

func (f generatorFunc) GenerateQuestions(ctx context.Context, category string) (json.RawMessage, error) {
	return f(ctx, category)
}

type fetcherFunc func(ctx context.Context, category string) (QuestionSet, error)

func (f fetcherFunc) Fetch(ctx context.Context, category string) (QuestionSet, error) {
	return f(ctx, category)
}

// sleepRecorder replaces the backoff wait and remembers every requested delay
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func (s *sleepRecorder) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func makeQuestions(category string, n int) QuestionSet {
	qs := make(QuestionSet, n)
	for i := range qs {
		qs[i] = Question{
			Text: fmt.Sprintf("%s question %d?", category, i+1),
			Options: []string{
				fmt.Sprintf("A%d", i+1),
				fmt.Sprintf("B%d", i+1),
				fmt.Sprintf("C%d", i+1),
				fmt.Sprintf("D%d", i+1),
			},
			Answer: fmt.Sprintf("B%d", i+1),
		}
	}
	return qs
}

func questionsJSON(t *testing.T, qs QuestionSet) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(qs)
	require.NoError(t, err)
	return data
}

// wrongAnswer returns an option of q that is not the correct one
func wrongAnswer(q Question) string {
	for _, o := range q.Options {
		if o != q.Answer {
			return o
		}
	}
	return ""
}
