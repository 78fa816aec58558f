package survey

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/projectpulse/pulsebot/pkg/models"
)

// SQLStore persists answers as one row per (project_key, question_id) in
// SQLite or PostgreSQL. The upsert delegates per-key write serialization to
// the database, so no in-process locking is needed.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// rebind converts ?-style placeholders to $n for PostgreSQL so one query
// text serves both drivers.
func rebind(query string, postgres bool) string {
	if !postgres {
		return query
	}
	n := 1
	out := strings.Builder{}
	for _, ch := range query {
		if ch == '?' {
			out.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// NewSQLStore opens the database and ensures the schema. backend is
// BackendSQLite (dsn = file path) or BackendPostgres (dsn = connection
// string).
func NewSQLStore(backend, dsn string) (*SQLStore, error) {
	driver := "sqlite"
	postgres := false
	if backend == BackendPostgres {
		driver = "postgres"
		postgres = true
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s survey store: %w", backend, err)
	}

	s := &SQLStore{db: db, postgres: postgres}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize survey schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS survey_answers (
		project_key TEXT NOT NULL,
		question_id TEXT NOT NULL,
		answer TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (project_key, question_id)
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns all stored answers for the project key.
func (s *SQLStore) Load(ctx context.Context, projectKey string) (models.SurveyRecord, error) {
	query := `SELECT question_id, answer FROM survey_answers WHERE project_key = ?`
	rows, err := s.db.QueryContext(ctx, rebind(query, s.postgres), projectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey record for %s: %w", projectKey, err)
	}
	defer rows.Close()

	record := models.SurveyRecord{}
	for rows.Next() {
		var question, answer string
		if err := rows.Scan(&question, &answer); err != nil {
			return nil, fmt.Errorf("failed to scan survey row for %s: %w", projectKey, err)
		}
		record[question] = answer
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read survey rows for %s: %w", projectKey, err)
	}
	return record, nil
}

// Save upserts a single answer row.
func (s *SQLStore) Save(ctx context.Context, projectKey string, question QuestionID, answer string) error {
	query := `
	INSERT INTO survey_answers (project_key, question_id, answer, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (project_key, question_id) DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, rebind(query, s.postgres), projectKey, string(question), answer, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save survey answer for %s/%s: %w", projectKey, question, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
