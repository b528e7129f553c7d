package topicquiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// MaxAttempts is the number of calls made to the question service per fetch
	MaxAttempts = 3
	// QuestionsPerQuiz is the number of questions requested per fetch
	QuestionsPerQuiz = 5
	// OptionsPerQuestion is the number of choices every question carries
	OptionsPerQuestion = 4
	// BaseBackoff is the wait after the first failed attempt; it doubles after each failure
	BaseBackoff = time.Second
	// DefaultAttemptTimeout bounds a single call to the question service
	DefaultAttemptTimeout = 30 * time.Second
)

// Backoff returns the wait after the failed attempt with the given 0-based index
func Backoff(attempt int) time.Duration {
	return BaseBackoff << attempt
}

// Generator produces a JSON array of questions about category
type Generator interface {
	GenerateQuestions(ctx context.Context, category string) (json.RawMessage, error)
}

// Reviewer inspects a parsed question set and returns a *ValidationError
// when any question should not be played
type Reviewer interface {
	ReviewQuestions(ctx context.Context, category string, questions QuestionSet) error
}

// Journal records fetch activity. *DB implements it.
type Journal interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
	SaveQuestionSet(ctx context.Context, category string, questions QuestionSet) (string, error)
}

// Attempt outcomes
const (
	OutcomeOK         = "ok"
	OutcomeTransport  = "transport"
	OutcomeValidation = "validation"
)

// Fetcher turns a category into a validated question set, retrying with
// exponential backoff
type Fetcher struct {
	gen            Generator
	logger         *zap.Logger
	journal        Journal
	reviewer       Reviewer
	attemptTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithLogger sets the logger used for attempt diagnostics
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithJournal records every attempt and every accepted question set
func WithJournal(j Journal) FetcherOption {
	return func(f *Fetcher) {
		f.journal = j
	}
}

// WithReviewer adds a review step to every attempt after the response parses
func WithReviewer(r Reviewer) FetcherOption {
	return func(f *Fetcher) {
		f.reviewer = r
	}
}

// WithAttemptTimeout bounds each call to the question service; 0 disables the bound
func WithAttemptTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.attemptTimeout = d
	}
}

// WithSleep replaces the backoff wait
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a fetcher around gen
func NewFetcher(gen Generator, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		gen:            gen,
		logger:         zap.NewNop(),
		attemptTimeout: DefaultAttemptTimeout,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch asks the generator for QuestionsPerQuiz questions about category.
// It returns on the first valid response; after MaxAttempts failures it
// returns an *ExhaustedRetriesError carrying the last failure.
func (f *Fetcher) Fetch(ctx context.Context, category string) (QuestionSet, error) {
	log := f.logger.With(zap.String("category", category))

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		start := time.Now()
		questions, err := f.attempt(ctx, category)
		f.record(ctx, category, attempt+1, err, time.Since(start))

		if err == nil {
			log.Info("questions fetched", zap.Int("attempt", attempt+1), zap.Int("questions", len(questions)))
			f.archive(ctx, category, questions)
			return questions, nil
		}

		lastErr = err
		log.Warn("fetch attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))

		if attempt == MaxAttempts-1 {
			break
		}

		wait := Backoff(attempt)
		log.Debug("backing off", zap.Duration("wait", wait))
		if err := f.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("fetch %q interrupted after %d attempts: %w", category, attempt+1, err)
		}
	}

	return nil, &ExhaustedRetriesError{Attempts: MaxAttempts, Last: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, category string) (QuestionSet, error) {
	actx := ctx
	if f.attemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, f.attemptTimeout)
		defer cancel()
	}

	data, err := f.gen.GenerateQuestions(actx, category)
	if err != nil {
		return nil, classify(err)
	}

	questions, err := ParseQuestions(data, QuestionsPerQuiz)
	if err != nil {
		return nil, err
	}

	if f.reviewer != nil {
		if err := f.reviewer.ReviewQuestions(actx, category, questions); err != nil {
			return nil, classify(err)
		}
	}
	return questions, nil
}

// classify keeps validation failures and treats everything else as transport
func classify(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &TransportError{Err: err}
}

func (f *Fetcher) record(ctx context.Context, category string, number int, err error, took time.Duration) {
	if f.journal == nil {
		return
	}

	a := Attempt{
		Category: category,
		Number:   number,
		Outcome:  outcomeOf(err),
		Duration: took,
	}
	if err != nil {
		a.Error = err.Error()
	}

	if err := f.journal.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
		f.logger.Warn("failed to record attempt", zap.Error(err))
	}
}

func (f *Fetcher) archive(ctx context.Context, category string, questions QuestionSet) {
	if f.journal == nil {
		return
	}
	id, err := f.journal.SaveQuestionSet(context.WithoutCancel(ctx), category, questions)
	if err != nil {
		f.logger.Warn("failed to archive question set", zap.Error(err))
		return
	}
	f.logger.Info("question set archived", zap.String("category", category), zap.String("set_id", id))
}

func outcomeOf(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &verr):
		return OutcomeValidation
	default:
		return OutcomeTransport
	}
}

// sleepContext waits for d without holding up anything but the calling goroutine
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
