package topicquiz

import (
	"go.uber.org/zap"
)

// App holds the components built from a Config and shared by every Quiz
type App struct {
	Config  *Config
	Log     *zap.Logger
	DB      *DB // nil when storage.db_path is empty
	Fetcher *Fetcher
}

// NewApp opens the journal and builds the OpenAI-backed fetcher
func NewApp(cfg *Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	var db *DB
	if cfg.Storage.DBPath != "" {
		var err error
		db, err = OpenDB(cfg.Storage.DBPath)
		if err != nil {
			return nil, err
		}
		if err := db.CreateTables(); err != nil {
			db.Close()
			return nil, err
		}
	}

	maker := NewQuestionMaker(cfg.OpenAI, log.Named("maker"))
	opts := []FetcherOption{
		WithLogger(log.Named("fetcher")),
		WithAttemptTimeout(cfg.Fetch.AttemptTimeout),
	}
	if db != nil {
		opts = append(opts, WithJournal(db))
	}
	if cfg.Fetch.Review {
		opts = append(opts, WithReviewer(NewQuestionChecker(cfg.OpenAI, log.Named("checker"))))
	}

	return &App{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Fetcher: NewFetcher(maker, opts...),
	}, nil
}

// NewQuiz creates a fresh quiz driven by the app's fetcher
func (a *App) NewQuiz() *Quiz {
	return NewQuiz(a.Fetcher, a.Log.Named("quiz"))
}

// Close releases the journal and flushes the logger
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.Log.Sync()
}
