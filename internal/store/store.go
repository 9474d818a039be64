package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		college_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		question_types TEXT NOT NULL DEFAULT '[]',
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assessment_id TEXT NOT NULL,
		question_id TEXT NOT NULL DEFAULT '',
		question_type TEXT NOT NULL DEFAULT '',
		marks REAL,
		FOREIGN KEY (assessment_id) REFERENCES assessments(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assessment_id TEXT NOT NULL,
		student_id TEXT NOT NULL DEFAULT '',
		student_id_number TEXT,
		student_name TEXT,
		email TEXT,
		department_name TEXT,
		batch_name TEXT,
		college_name TEXT,
		admission_type TEXT,
		status TEXT NOT NULL DEFAULT 'not_attempted',
		score REAL,
		percentage_score REAL,
		attempt_number INTEGER,
		is_late INTEGER NOT NULL DEFAULT 0,
		is_disqualified INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME,
		submitted_at DATETIME,
		graded_at DATETIME,
		time_taken REAL,
		FOREIGN KEY (assessment_id) REFERENCES assessments(id)
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_assessment ON submissions(assessment_id);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'teacher',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS api_tokens (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// saveAssessment replaces an assessment, its questions and its submissions.
func saveAssessment(tx *sql.Tx, ds model.Dataset) error {
	a := ds.Assessment
	types, err := json.Marshal(a.QuestionTypes)
	if err != nil {
		return fmt.Errorf("encode question types: %w", err)
	}
	if a.QuestionTypes == nil {
		types = []byte("[]")
	}

	for _, q := range []string{
		`DELETE FROM submissions WHERE assessment_id = ?`,
		`DELETE FROM questions WHERE assessment_id = ?`,
		`DELETE FROM assessments WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, a.ID); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		`INSERT INTO assessments (id, title, college_name, created_at, question_types, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.CollegeName, a.CreatedAt.UTC(), string(types), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	for _, q := range a.Questions {
		_, err := tx.Exec(
			`INSERT INTO questions (assessment_id, question_id, question_type, marks) VALUES (?, ?, ?, ?)`,
			a.ID, q.ID, string(q.QuestionType), nullable(q.Marks),
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	for _, r := range ds.Submissions {
		if err := insertSubmission(tx, a.ID, r); err != nil {
			return fmt.Errorf("insert submission %q: %w", r.StudentID, err)
		}
	}
	return nil
}

// GetAssessment returns the metadata of a stored assessment.
func (s *Store) GetAssessment(id string) (model.AssessmentMetadata, error) {
	var (
		a     model.AssessmentMetadata
		types string
	)
	err := s.db.QueryRow(
		`SELECT id, title, college_name, created_at, question_types FROM assessments WHERE id = ?`, id,
	).Scan(&a.ID, &a.Title, &a.CollegeName, &a.CreatedAt, &types)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("assessment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(types), &a.QuestionTypes); err != nil {
		return a, fmt.Errorf("decode question types: %w", err)
	}
	if len(a.QuestionTypes) == 0 {
		a.QuestionTypes = nil
	}

	rows, err := s.db.Query(
		`SELECT question_id, question_type, marks FROM questions WHERE assessment_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return a, err
	}
	defer rows.Close()
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuestionType, &q.Marks); err != nil {
			return a, err
		}
		a.Questions = append(a.Questions, q)
	}
	return a, rows.Err()
}

// ListAssessments returns all stored assessments, newest first.
func (s *Store) ListAssessments() ([]model.AssessmentSummary, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.title, a.college_name, a.created_at, COUNT(s.id)
		 FROM assessments a LEFT JOIN submissions s ON s.assessment_id = a.id
		 GROUP BY a.id
		 ORDER BY a.created_at DESC, a.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []model.AssessmentSummary
	for rows.Next() {
		var a model.AssessmentSummary
		if err := rows.Scan(&a.ID, &a.Title, &a.CollegeName, &a.CreatedAt, &a.SubmissionCount); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// AssessmentCount returns the number of stored assessments.
func (s *Store) AssessmentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assessments`).Scan(&count)
	return count, err
}
