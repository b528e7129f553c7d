package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"topicquiz"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionName  = "quiz-session"
	sessionIDKey = "sid"
)

// defaultCategories are offered when the journal has no history yet
var defaultCategories = []string{"History", "Science", "Geography", "Literature", "Movies", "Sports"}

// categorySource supplies recently played categories. *topicquiz.DB implements it.
type categorySource interface {
	RecentCategories(ctx context.Context, limit int) ([]string, error)
}

// Server is the single-page web front end. Every browser session drives its own Quiz.
type Server struct {
	store     *sessions.CookieStore
	templates map[topicquiz.Phase]*template.Template
	newQuiz   func() *topicquiz.Quiz
	recent    categorySource
	logger    *zap.Logger

	mu      sync.Mutex
	quizzes map[string]*quizEntry
}

type quizEntry struct {
	quiz     *topicquiz.Quiz
	lastSeen time.Time
}

// NewServer builds a server around the app's fetcher and journal
func NewServer(app *topicquiz.App, logger *zap.Logger) (*Server, error) {
	var recent categorySource
	if app.DB != nil {
		recent = app.DB
	}
	return newServer(app.NewQuiz, recent, app.Config.Server.SessionSecret, logger)
}

func newServer(newQuiz func() *topicquiz.Quiz, recent categorySource, secret string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key := []byte(secret)
	if secret == "" {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("failed to generate session key")
		}
		logger.Warn("no session secret configured, sessions will not survive a restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		store:     store,
		templates: templates,
		newQuiz:   newQuiz,
		recent:    recent,
		logger:    logger,
		quizzes:   make(map[string]*quizEntry),
	}, nil
}

func loadTemplates() (map[topicquiz.Phase]*template.Template, error) {
	funcMap := template.FuncMap{
		"letter": func(i int) string {
			return string(rune('A' + i))
		},
	}

	pages := []struct {
		phase topicquiz.Phase
		file  string
	}{
		{topicquiz.PhaseSelectingCategory, "templates/select.html"},
		{topicquiz.PhaseLoading, "templates/loading.html"},
		{topicquiz.PhaseInQuiz, "templates/question.html"},
		{topicquiz.PhaseShowingResult, "templates/results.html"},
		{topicquiz.PhaseFailed, "templates/failed.html"},
	}

	templates := make(map[topicquiz.Phase]*template.Template, len(pages))
	for _, p := range pages {
		t, err := template.New(string(p.phase)).Funcs(funcMap).ParseFS(templateFS, "templates/base.html", p.file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p.file, err)
		}
		templates[p.phase] = t
	}
	return templates, nil
}

// Routes returns the HTTP handler for the single-page UI
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /category", s.handleCategory)
	mux.HandleFunc("POST /answer", s.handleAnswer)
	mux.HandleFunc("POST /next", s.action("advance", (*topicquiz.Quiz).Advance))
	mux.HandleFunc("POST /play-again", s.action("play_again", (*topicquiz.Quiz).PlayAgain))
	mux.HandleFunc("POST /retry", s.action("retry", (*topicquiz.Quiz).Retry))
	mux.HandleFunc("POST /reset", s.action("reset", (*topicquiz.Quiz).Reset))
	return mux
}

// quizFor returns the quiz bound to the request's session, creating both if needed
func (s *Server) quizFor(w http.ResponseWriter, r *http.Request) (*topicquiz.Quiz, error) {
	// A cookie that fails to decode yields a fresh session
	session, _ := s.store.Get(r, sessionName)
	id, _ := session.Values[sessionIDKey].(string)

	s.mu.Lock()
	entry, ok := s.quizzes[id]
	if ok {
		entry.lastSeen = time.Now()
		s.mu.Unlock()
		return entry.quiz, nil
	}

	id = uuid.NewString()
	entry = &quizEntry{quiz: s.newQuiz(), lastSeen: time.Now()}
	s.quizzes[id] = entry
	s.mu.Unlock()

	s.logger.Debug("new quiz session", zap.String("session", id))

	session.Values[sessionIDKey] = id
	if err := session.Save(r, w); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return entry.quiz, nil
}

type optionView struct {
	Text string
	Mark topicquiz.Mark
}

type pageData struct {
	State       topicquiz.State
	Question    topicquiz.Question
	Number      int
	Options     []optionView
	Suggestions []string
	Progress    int
	Percent     int
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.quizFor(w, r)
	if err != nil {
		s.logger.Error("session error", zap.Error(err))
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	state := quiz.State()
	data := pageData{State: state}

	switch state.Phase {
	case topicquiz.PhaseSelectingCategory:
		data.Suggestions = s.suggestions(r.Context())
	case topicquiz.PhaseInQuiz:
		q, _ := state.CurrentQuestion()
		data.Question = q
		data.Number = state.CurrentIndex + 1
		data.Progress = state.CurrentIndex * 100 / state.Total()
		for _, o := range q.Options {
			data.Options = append(data.Options, optionView{Text: o, Mark: state.Mark(o)})
		}
	case topicquiz.PhaseShowingResult:
		if state.Total() > 0 {
			data.Percent = state.Score * 100 / state.Total()
		}
	}

	tmpl, ok := s.templates[state.Phase]
	if !ok {
		http.Error(w, "Unknown phase", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.Error("template error", zap.String("phase", string(state.Phase)), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (s *Server) suggestions(ctx context.Context) []string {
	if s.recent == nil {
		return defaultCategories
	}

	recent, err := s.recent.RecentCategories(ctx, 6)
	if err != nil {
		s.logger.Warn("failed to load recent categories", zap.Error(err))
		return defaultCategories
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range append(recent, defaultCategories...) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.quizFor(w, r)
	if err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(quiz.State()); err != nil {
		s.logger.Error("failed to encode state", zap.Error(err))
	}
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	category := r.FormValue("category")

	s.action("select_category", func(q *topicquiz.Quiz) error {
		return q.SelectCategory(category)
	})(w, r)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	answer := r.FormValue("answer")

	s.action("submit_answer", func(q *topicquiz.Quiz) error {
		return q.SubmitAnswer(answer)
	})(w, r)
}

// action wraps a quiz transition in the post/redirect/get cycle
func (s *Server) action(name string, apply func(*topicquiz.Quiz) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quiz, err := s.quizFor(w, r)
		if err != nil {
			s.logger.Error("session error", zap.Error(err))
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		if err := apply(quiz); err != nil {
			s.logger.Debug("action rejected", zap.String("action", name), zap.Error(err))
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, topicquiz.ErrEmptyCategory), errors.Is(err, topicquiz.ErrUnknownOption):
		return http.StatusBadRequest
	case errors.Is(err, topicquiz.ErrInvalidTransition), errors.Is(err, topicquiz.ErrNotAnswered):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// SweepIdle closes quizzes not touched for idle until ctx is done
func (s *Server) SweepIdle(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(max(idle/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sweep(now.Add(-idle)); n > 0 {
				s.logger.Info("swept idle sessions", zap.Int("count", n))
			}
		}
	}
}

// sweep drops quizzes last seen before cutoff and returns how many it removed
func (s *Server) sweep(cutoff time.Time) int {
	s.mu.Lock()
	var stale []*topicquiz.Quiz
	for id, e := range s.quizzes {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.quiz)
			delete(s.quizzes, id)
		}
	}
	s.mu.Unlock()

	for _, q := range stale {
		q.Close()
	}
	return len(stale)
}

// Close stops every quiz
func (s *Server) Close() {
	s.sweep(time.Now().Add(time.Hour))
}
