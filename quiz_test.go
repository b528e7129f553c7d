package topicquiz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type phaseRecorder struct {
	mu     sync.Mutex
	phases []Phase
}

func (r *phaseRecorder) listen(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, s.Phase)
}

func (r *phaseRecorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Phase(nil), r.phases...)
}

func TestQuiz_HistoryScenario(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateQuestions", mock.Anything, "History").
		Return(questionsJSON(t, makeQuestions("History", QuestionsPerQuiz)), nil).Once()

	q := NewQuiz(NewFetcher(gen, WithSleep((&sleepRecorder{}).sleep)), nil)
	defer q.Close()

	require.NoError(t, q.SelectCategory("History"))
	q.Wait()

	st := q.State()
	require.Equal(t, PhaseInQuiz, st.Phase)
	require.Equal(t, 0, st.CurrentIndex)
	require.Equal(t, 0, st.Score)
	require.Len(t, st.Questions, QuestionsPerQuiz)

	for i := 0; i < QuestionsPerQuiz; i++ {
		cur, ok := q.State().CurrentQuestion()
		require.True(t, ok)
		require.NoError(t, q.SubmitAnswer(cur.Answer))
		require.NoError(t, q.Advance())
	}

	st = q.State()
	require.Equal(t, PhaseShowingResult, st.Phase)
	require.Equal(t, 5, st.Score)
	require.Equal(t, QuestionsPerQuiz-1, st.CurrentIndex)

	require.NoError(t, q.PlayAgain())
	require.Equal(t, InitialState(), q.State())
	gen.AssertExpectations(t)
}

func TestQuiz_NetworkDownScenario(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateQuestions", mock.Anything, "History").Return(nil, errors.New("network down")).Times(MaxAttempts)

	q := NewQuiz(NewFetcher(gen, WithSleep((&sleepRecorder{}).sleep)), nil)
	defer q.Close()

	require.NoError(t, q.SelectCategory("History"))
	q.Wait()

	st := q.State()
	require.Equal(t, PhaseFailed, st.Phase)
	require.Equal(t, "network down", st.ErrorMessage)
	gen.AssertNumberOfCalls(t, "GenerateQuestions", MaxAttempts)
}

func TestQuiz_RetryRefetchesSameCategory(t *testing.T) {
	var mu sync.Mutex
	var categories []string
	calls := 0
	fetcher := fetcherFunc(func(_ context.Context, category string) (QuestionSet, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		categories = append(categories, category)
		if calls == 1 {
			return nil, &ExhaustedRetriesError{Attempts: MaxAttempts, Last: errors.New("network down")}
		}
		return makeQuestions(category, QuestionsPerQuiz), nil
	})

	q := NewQuiz(fetcher, nil)
	defer q.Close()

	require.NoError(t, q.SelectCategory("Space"))
	q.Wait()
	require.Equal(t, PhaseFailed, q.State().Phase)

	require.NoError(t, q.Retry())
	q.Wait()

	st := q.State()
	require.Equal(t, PhaseInQuiz, st.Phase)
	require.Empty(t, st.ErrorMessage)
	require.Equal(t, []string{"Space", "Space"}, categories)
}

func TestQuiz_RejectsActionsWhileLoading(t *testing.T) {
	release := make(chan struct{})
	fetcher := fetcherFunc(func(_ context.Context, category string) (QuestionSet, error) {
		<-release
		return makeQuestions(category, QuestionsPerQuiz), nil
	})

	q := NewQuiz(fetcher, nil)
	defer q.Close()

	require.NoError(t, q.SelectCategory("History"))
	require.Equal(t, PhaseLoading, q.State().Phase)

	require.ErrorIs(t, q.SelectCategory("Science"), ErrInvalidTransition)
	require.ErrorIs(t, q.Retry(), ErrInvalidTransition)
	require.ErrorIs(t, q.Reset(), ErrInvalidTransition)
	require.ErrorIs(t, q.SubmitAnswer("A1"), ErrInvalidTransition)

	close(release)
	q.Wait()

	st := q.State()
	require.Equal(t, PhaseInQuiz, st.Phase)
	require.Equal(t, "History", st.Category)
}

func TestQuiz_ListenersSeeEveryTransition(t *testing.T) {
	fetcher := fetcherFunc(func(_ context.Context, category string) (QuestionSet, error) {
		return makeQuestions(category, 1), nil
	})

	rec := &phaseRecorder{}
	q := NewQuiz(fetcher, nil)
	defer q.Close()
	q.Subscribe(rec.listen)

	require.NoError(t, q.SelectCategory("History"))
	q.Wait()

	cur, _ := q.State().CurrentQuestion()
	require.NoError(t, q.SubmitAnswer(cur.Answer))
	require.NoError(t, q.Advance())
	require.NoError(t, q.PlayAgain())

	// rejected actions are not published
	require.Error(t, q.Advance())

	require.Equal(t, []Phase{
		PhaseLoading,
		PhaseInQuiz,
		PhaseInQuiz,
		PhaseShowingResult,
		PhaseSelectingCategory,
	}, rec.Phases())
}

func TestQuiz_EmptyResultFails(t *testing.T) {
	fetcher := fetcherFunc(func(context.Context, string) (QuestionSet, error) {
		return QuestionSet{}, nil
	})

	q := NewQuiz(fetcher, nil)
	defer q.Close()

	require.NoError(t, q.SelectCategory("History"))
	q.Wait()

	st := q.State()
	require.Equal(t, PhaseFailed, st.Phase)
	require.Equal(t, ErrEmptyQuestionSet.Error(), st.ErrorMessage)
}

func TestQuiz_CloseCancelsFetch(t *testing.T) {
	started := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, _ string) (QuestionSet, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	q := NewQuiz(fetcher, nil)
	require.NoError(t, q.SelectCategory("History"))
	<-started

	q.Close()

	st := q.State()
	require.Equal(t, PhaseFailed, st.Phase)
	require.Equal(t, context.Canceled.Error(), st.ErrorMessage)
}
