package topicquiz

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// QuestionFetcher is the fetch capability the Quiz drives. *Fetcher implements it.
type QuestionFetcher interface {
	Fetch(ctx context.Context, category string) (QuestionSet, error)
}

// Listener receives a snapshot after every transition. Listeners are called
// in transition order and must not block or call back into the Quiz.
type Listener func(State)

// Quiz couples a Session with a fetcher. Actions are applied one at a time;
// entering Loading starts the fetch in a background goroutine whose result
// drives the next transition.
type Quiz struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	session  *Session
	fetcher  QuestionFetcher
	logger   *zap.Logger

	listeners []Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	gen    uint64 // incremented per fetch; stale results are dropped
}

// NewQuiz creates a quiz in the category selection phase
func NewQuiz(fetcher QuestionFetcher, logger *zap.Logger) *Quiz {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Quiz{
		session: NewSession(),
		fetcher: fetcher,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe registers l for state snapshots
func (q *Quiz) Subscribe(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, l)
}

// State returns the current snapshot
func (q *Quiz) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.session.State()
}

// SelectCategory enters Loading and starts fetching questions for category
func (q *Quiz) SelectCategory(category string) error {
	return q.apply("select_category", func(s *Session) (bool, error) {
		return true, s.SelectCategory(category)
	})
}

// SubmitAnswer answers the current question
func (q *Quiz) SubmitAnswer(answer string) error {
	return q.apply("submit_answer", func(s *Session) (bool, error) {
		return false, s.SubmitAnswer(answer)
	})
}

// Advance moves to the next question or to the results
func (q *Quiz) Advance() error {
	return q.apply("advance", func(s *Session) (bool, error) {
		return false, s.Advance()
	})
}

// PlayAgain resets a finished quiz
func (q *Quiz) PlayAgain() error {
	return q.apply("play_again", func(s *Session) (bool, error) {
		return false, s.PlayAgain()
	})
}

// Retry refetches the remembered category after a failure
func (q *Quiz) Retry() error {
	return q.apply("retry", func(s *Session) (bool, error) {
		return s.Retry()
	})
}

// Reset starts over from category selection
func (q *Quiz) Reset() error {
	return q.apply("reset", func(s *Session) (bool, error) {
		return false, s.Reset()
	})
}

// Wait blocks until no fetch is in flight
func (q *Quiz) Wait() {
	q.wg.Wait()
}

// Close cancels an in-flight fetch and waits for it to finish
func (q *Quiz) Close() {
	q.cancel()
	q.wg.Wait()
}

// apply runs one transition under the lock, starts a fetch when asked to,
// and notifies listeners
func (q *Quiz) apply(action string, transition func(*Session) (bool, error)) error {
	q.mu.Lock()
	from := q.session.Phase()
	fetch, err := transition(q.session)
	if err != nil {
		q.mu.Unlock()
		q.logger.Debug("action rejected", zap.String("action", action), zap.String("phase", string(from)), zap.Error(err))
		return err
	}

	state := q.session.State()
	if fetch {
		q.gen++
		q.wg.Add(1)
		go q.fetch(q.gen, state.Category)
	}
	q.logger.Debug("transition",
		zap.String("action", action),
		zap.String("from", string(from)),
		zap.String("to", string(state.Phase)),
	)
	q.publish(state)
	return nil
}

func (q *Quiz) fetch(gen uint64, category string) {
	defer q.wg.Done()

	questions, err := q.fetcher.Fetch(q.ctx, category)

	q.mu.Lock()
	if gen != q.gen || q.session.Phase() != PhaseLoading {
		q.mu.Unlock()
		q.logger.Debug("discarding stale fetch result", zap.String("category", category))
		return
	}

	if err == nil {
		err = q.session.Loaded(questions)
	}
	if err != nil {
		q.logger.Warn("question fetch failed", zap.String("category", category), zap.Error(err))
		// Loading always accepts LoadFailed
		_ = q.session.LoadFailed(FailureMessage(err))
	}

	q.publish(q.session.State())
}

// publish must be called with q.mu held; it releases it
func (q *Quiz) publish(state State) {
	listeners := append([]Listener(nil), q.listeners...)
	q.notifyMu.Lock()
	q.mu.Unlock()
	defer q.notifyMu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
