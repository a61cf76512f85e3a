// Package store handles SQLite persistence of assessment history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for assessments and prompt attempts.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assessments (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			label TEXT NOT NULL,
			audio TEXT NOT NULL,
			whisper TEXT NOT NULL,
			llm TEXT NOT NULL,
			notes TEXT NOT NULL,
			target_cefr TEXT NOT NULL,
			duration_sec REAL NOT NULL,
			pause_count INTEGER NOT NULL,
			pause_total_sec REAL NOT NULL,
			speaking_time_sec REAL NOT NULL,
			word_count INTEGER NOT NULL,
			wpm REAL NOT NULL,
			fillers INTEGER NOT NULL,
			cohesion_markers INTEGER NOT NULL,
			complexity_index INTEGER NOT NULL,
			overall REAL,
			baseline_passed INTEGER,
			report_path TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assessment_targets (
			assessment_id INTEGER NOT NULL,
			metric TEXT NOT NULL,
			expected TEXT NOT NULL,
			actual REAL NOT NULL,
			ok INTEGER NOT NULL,
			PRIMARY KEY (assessment_id, metric)
		);`,
		`CREATE TABLE IF NOT EXISTS prompt_attempts (
			attempt_id TEXT PRIMARY KEY,
			prompt_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			state TEXT NOT NULL,
			audio_path TEXT NOT NULL,
			plays_used INTEGER NOT NULL,
			chunk_bytes INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_assessment_targets_metric ON assessment_targets(metric);`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_attempts_prompt ON prompt_attempts(prompt_id, started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAssessment stores an assessment and its baseline checks.
func (s *Store) InsertAssessment(ctx context.Context, rec model.AssessmentRecord) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	m := rec.Metrics
	res, err := tx.ExecContext(ctx,
		`INSERT INTO assessments (created_at, label, audio, whisper, llm, notes, target_cefr,
			duration_sec, pause_count, pause_total_sec, speaking_time_sec, word_count, wpm,
			fillers, cohesion_markers, complexity_index, overall, baseline_passed, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.Label,
		rec.Audio,
		rec.Whisper,
		rec.LLM,
		rec.Notes,
		rec.TargetCEFR,
		m.DurationSec,
		m.PauseCount,
		m.PauseTotalSec,
		m.SpeakingTimeSec,
		m.WordCount,
		m.WPM,
		m.Fillers,
		m.CohesionMarkers,
		m.ComplexityIndex,
		nullFloat(rec.Overall),
		nullBool(rec.BaselinePassed),
		rec.ReportPath,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.Targets) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO assessment_targets (assessment_id, metric, expected, actual, ok)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, tc := range rec.Targets {
			if _, err := stmt.ExecContext(ctx, id, tc.Metric, tc.Expected, tc.Actual, boolInt(tc.OK)); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListAssessments returns assessments matching the filter, oldest first.
// Baseline checks are not loaded; see ListTargetAggregates.
func (s *Store) ListAssessments(ctx context.Context, filter model.HistoryFilter) ([]model.AssessmentRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Label != "" {
		clauses = append(clauses, "label = ?")
		args = append(args, filter.Label)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, created_at, label, audio, whisper, llm, notes, target_cefr,
			duration_sec, pause_count, pause_total_sec, speaking_time_sec, word_count, wpm,
			fillers, cohesion_markers, complexity_index, overall, baseline_passed, report_path
		FROM assessments
		WHERE %s
		ORDER BY created_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AssessmentRecord
	for rows.Next() {
		var rec model.AssessmentRecord
		var createdAt string
		var overall sql.NullFloat64
		var passed sql.NullInt64
		m := &rec.Metrics
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Label, &rec.Audio, &rec.Whisper, &rec.LLM, &rec.Notes, &rec.TargetCEFR,
			&m.DurationSec, &m.PauseCount, &m.PauseTotalSec, &m.SpeakingTimeSec, &m.WordCount, &m.WPM,
			&m.Fillers, &m.CohesionMarkers, &m.ComplexityIndex, &overall, &passed, &rec.ReportPath); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = parsed
		if overall.Valid {
			v := overall.Float64
			rec.Overall = &v
		}
		if passed.Valid {
			v := passed.Int64 != 0
			rec.BaselinePassed = &v
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListTargetAggregates counts checks and misses per metric across the
// given assessments.
func (s *Store) ListTargetAggregates(ctx context.Context, assessmentIDs []int64) ([]model.TargetAggregate, error) {
	if len(assessmentIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(assessmentIDs))
	args := make([]any, len(assessmentIDs))
	for i, id := range assessmentIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT metric, COUNT(*) AS checks, SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END) AS failures
		FROM assessment_targets
		WHERE assessment_id IN (%s)
		GROUP BY metric`, strings.Join(placeholders, ","))
	return s.queryTargetAggregates(ctx, query, args...)
}

// GetWeakTargets aggregates baseline checks over the most recent
// assessments, optionally restricted to one CEFR level.
func (s *Store) GetWeakTargets(ctx context.Context, window int, level string) ([]model.TargetAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent AS (
		SELECT id FROM assessments
		WHERE target_cefr != '' AND (? = '' OR target_cefr = ?)
		ORDER BY created_at DESC
		LIMIT ?
	)
	SELECT t.metric, COUNT(*) AS checks, SUM(CASE WHEN t.ok = 0 THEN 1 ELSE 0 END) AS failures
	FROM assessment_targets t
	JOIN recent r ON r.id = t.assessment_id
	GROUP BY t.metric`
	return s.queryTargetAggregates(ctx, query, level, level, window)
}

func (s *Store) queryTargetAggregates(ctx context.Context, query string, args ...any) ([]model.TargetAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.TargetAggregate
	for rows.Next() {
		var agg model.TargetAggregate
		if err := rows.Scan(&agg.Metric, &agg.Checks, &agg.Failures); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertAttempt records how a timed prompt attempt ended.
func (s *Store) InsertAttempt(ctx context.Context, rec model.AttemptRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO prompt_attempts (attempt_id, prompt_id, started_at, ended_at, state, audio_path, plays_used, chunk_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AttemptID,
		rec.PromptID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
		rec.State,
		rec.AudioPath,
		rec.PlaysUsed,
		rec.ChunkBytes,
	)
	return err
}

// ListAttempts returns attempts for a prompt (all prompts when empty),
// newest first, at most limit rows when limit > 0.
func (s *Store) ListAttempts(ctx context.Context, promptID string, limit int) ([]model.AttemptRecord, error) {
	query := `SELECT attempt_id, prompt_id, started_at, ended_at, state, audio_path, plays_used, chunk_bytes
		FROM prompt_attempts
		WHERE (? = '' OR prompt_id = ?)
		ORDER BY started_at DESC`
	args := []any{promptID, promptID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AttemptRecord
	for rows.Next() {
		var rec model.AttemptRecord
		var started, ended string
		if err := rows.Scan(&rec.AttemptID, &rec.PromptID, &started, &ended, &rec.State, &rec.AudioPath, &rec.PlaysUsed, &rec.ChunkBytes); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return boolInt(*v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
