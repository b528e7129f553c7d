package topicquiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the sqlite journal of fetch attempts and generated question sets.
// Session state is never stored here.
type DB struct {
	db *sql.DB
}

// Attempt is one journaled call to the question service
type Attempt struct {
	ID        int64         `json:"id"`
	Category  string        `json:"category"`
	Number    int           `json:"number"` // 1-based within its fetch
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// OpenDB opens a new database connection
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer; fetches from concurrent sessions queue here
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS question_sets (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			set_id TEXT NOT NULL,
			question_num INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			answer TEXT NOT NULL,
			PRIMARY KEY (set_id, question_num),
			FOREIGN KEY (set_id) REFERENCES question_sets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS fetch_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// RecordAttempt appends one attempt to the journal
func (db *DB) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := db.db.ExecContext(ctx,
		"INSERT INTO fetch_attempts (category, attempt, outcome, error, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.Category, a.Number, a.Outcome, a.Error, a.Duration.Milliseconds(), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the latest attempts, newest first
func (db *DB) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	query := "SELECT id, category, attempt, outcome, error, duration_ms, created_at FROM fetch_attempts ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var ms int64
		if err := rows.Scan(&a.ID, &a.Category, &a.Number, &a.Outcome, &a.Error, &ms, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Duration = time.Duration(ms) * time.Millisecond
		attempts = append(attempts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}
	return attempts, nil
}

// SaveQuestionSet archives a generated set and returns its id
func (db *DB) SaveQuestionSet(ctx context.Context, category string, questions QuestionSet) (string, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO question_sets (id, category, created_at) VALUES (?, ?, ?)",
		id, category, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("failed to create question set: %w", err)
	}

	for i, q := range questions {
		optionsJSON, err := OptionsToJSON(q.Options)
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO questions (set_id, question_num, text, options, answer) VALUES (?, ?, ?, ?, ?)",
			id, i+1, q.Text, optionsJSON, q.Answer,
		); err != nil {
			return "", fmt.Errorf("failed to create question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit question set: %w", err)
	}
	return id, nil
}

// GetQuestionSet loads an archived set by id
func (db *DB) GetQuestionSet(ctx context.Context, id string) (string, QuestionSet, error) {
	var category string
	err := db.db.QueryRowContext(ctx, "SELECT category FROM question_sets WHERE id = ?", id).Scan(&category)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, fmt.Errorf("question set not found: %s", id)
		}
		return "", nil, fmt.Errorf("failed to get question set: %w", err)
	}

	rows, err := db.db.QueryContext(ctx,
		"SELECT text, options, answer FROM questions WHERE set_id = ? ORDER BY question_num",
		id,
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions QuestionSet
	for rows.Next() {
		var q Question
		var optionsJSON string
		if err := rows.Scan(&q.Text, &optionsJSON, &q.Answer); err != nil {
			return "", nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if q.Options, err = JSONToOptions(optionsJSON); err != nil {
			return "", nil, err
		}
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return "", nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return category, questions, nil
}

// RecentCategories returns distinct categories of archived sets, most recent first
func (db *DB) RecentCategories(ctx context.Context, limit int) ([]string, error) {
	query := "SELECT category FROM question_sets GROUP BY category ORDER BY MAX(rowid) DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// Helper function to convert options slice to JSON string
func OptionsToJSON(options []string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// Helper function to convert JSON string to options slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	var options []string
	err := json.Unmarshal([]byte(optionsJSON), &options)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
