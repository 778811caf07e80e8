// Package store handles SQLite persistence of captured samples.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keyprint/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for sample history.
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
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			reference_text TEXT NOT NULL,
			typed_text TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			typed_chars INTEGER NOT NULL,
			correct_chars INTEGER NOT NULL,
			errors_total INTEGER NOT NULL,
			backspaces INTEGER NOT NULL,
			dwell_mean REAL NOT NULL,
			dwell_std REAL NOT NULL,
			dwell_median REAL NOT NULL,
			dwell_min REAL NOT NULL,
			dwell_max REAL NOT NULL,
			latency_mean REAL NOT NULL,
			latency_std REAL NOT NULL,
			latency_median REAL NOT NULL,
			latency_min REAL NOT NULL,
			latency_max REAL NOT NULL,
			flight_mean REAL NOT NULL,
			flight_std REAL NOT NULL,
			flight_median REAL NOT NULL,
			typing_speed REAL NOT NULL,
			total_time_ms REAL NOT NULL,
			key_count INTEGER NOT NULL,
			rhythm_consistency REAL NOT NULL,
			digraph_mean REAL NOT NULL,
			digraph_std REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sample_letter_stats (
			sample_id INTEGER NOT NULL,
			letter TEXT NOT NULL,
			total INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			PRIMARY KEY (sample_id, letter)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_ended_at ON samples(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_username ON samples(username);`,
		`CREATE INDEX IF NOT EXISTS idx_sample_letter_stats_letter ON sample_letter_stats(letter);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSample stores a completed sample and its per-letter stats.
func (s *Store) InsertSample(ctx context.Context, rec model.SampleRecord, letters []model.LetterCount) (int64, error) {
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

	f := rec.Features
	res, err := tx.ExecContext(ctx,
		`INSERT INTO samples (
			username, started_at, ended_at, reference_text, typed_text, duration_ms,
			typed_chars, correct_chars, errors_total, backspaces,
			dwell_mean, dwell_std, dwell_median, dwell_min, dwell_max,
			latency_mean, latency_std, latency_median, latency_min, latency_max,
			flight_mean, flight_std, flight_median,
			typing_speed, total_time_ms, key_count, rhythm_consistency,
			digraph_mean, digraph_std
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Username,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.ReferenceText,
		rec.TypedText,
		rec.DurationMs,
		rec.Counters.Typed,
		rec.Counters.Correct,
		rec.Counters.Errors,
		rec.Counters.Backspaces,
		f.DwellMean, f.DwellStd, f.DwellMedian, f.DwellMin, f.DwellMax,
		f.LatencyMean, f.LatencyStd, f.LatencyMedian, f.LatencyMin, f.LatencyMax,
		f.FlightMean, f.FlightStd, f.FlightMedian,
		f.TypingSpeed, f.TotalTimeMs, f.KeyCount, f.RhythmConsistency,
		f.DigraphMean, f.DigraphStd,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(letters) > 0 {
		// Assign the outer err so the deferred rollback fires on failure.
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO sample_letter_stats (sample_id, letter, total, errors)
			 VALUES (?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, lc := range letters {
			if _, err = stmt.ExecContext(ctx, id, lc.Letter, lc.Total, lc.Errors); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSamples returns sample aggregates filtered by stats config.
func (s *Store) ListSamples(ctx context.Context, cfg model.StatsConfig) ([]model.SampleAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.User != "" {
		clauses = append(clauses, "username = ?")
		args = append(args, cfg.User)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, typed_chars, correct_chars, errors_total, duration_ms,
		typing_speed, dwell_mean, latency_mean, flight_mean, rhythm_consistency
		FROM samples
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
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

	var samples []model.SampleAggregate
	for rows.Next() {
		var agg model.SampleAggregate
		var endedAt string
		if err := rows.Scan(&agg.SampleID, &endedAt, &agg.Typed, &agg.Correct, &agg.Errors, &agg.DurationMs,
			&agg.TypingSpeed, &agg.DwellMean, &agg.LatencyMean, &agg.FlightMean, &agg.RhythmConsistency); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		samples = append(samples, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// GetWeakLetters aggregates letter stats over the most recent samples.
func (s *Store) GetWeakLetters(ctx context.Context, window int, user string) ([]model.LetterAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_samples AS (
		SELECT id FROM samples
		WHERE (? = '' OR username = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT ls.letter, SUM(ls.total) AS total, SUM(ls.errors) AS errors
	FROM sample_letter_stats ls
	JOIN recent_samples r ON r.id = ls.sample_id
	GROUP BY ls.letter`

	rows, err := s.db.QueryContext(ctx, query, user, user, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LetterAggregate
	for rows.Next() {
		var agg model.LetterAggregate
		if err := rows.Scan(&agg.Letter, &agg.Total, &agg.Errors); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLetterAggregatesForSamples aggregates per-letter stats across samples.
func (s *Store) ListLetterAggregatesForSamples(ctx context.Context, sampleIDs []int64) ([]model.LetterAggregate, error) {
	if len(sampleIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sampleIDs))
	args := make([]any, len(sampleIDs))
	for i, id := range sampleIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT letter, SUM(total) AS total, SUM(errors) AS errors
		FROM sample_letter_stats
		WHERE sample_id IN (%s)
		GROUP BY letter`, strings.Join(placeholders, ","))
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

	var result []model.LetterAggregate
	for rows.Next() {
		var agg model.LetterAggregate
		if err := rows.Scan(&agg.Letter, &agg.Total, &agg.Errors); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLetterStatsForSamples returns per-sample stats for selected letters.
func (s *Store) ListLetterStatsForSamples(ctx context.Context, sampleIDs []int64, letters []string) (map[int64]map[string]model.LetterAggregate, error) {
	if len(sampleIDs) == 0 || len(letters) == 0 {
		return map[int64]map[string]model.LetterAggregate{}, nil
	}
	idPlaceholders := make([]string, len(sampleIDs))
	args := make([]any, 0, len(sampleIDs)+len(letters))
	for i, id := range sampleIDs {
		idPlaceholders[i] = "?"
		args = append(args, id)
	}
	letterPlaceholders := make([]string, len(letters))
	for i, l := range letters {
		letterPlaceholders[i] = "?"
		args = append(args, l)
	}

	query := fmt.Sprintf(`SELECT sample_id, letter, total, errors
		FROM sample_letter_stats
		WHERE sample_id IN (%s) AND letter IN (%s)`,
		strings.Join(idPlaceholders, ","), strings.Join(letterPlaceholders, ","))

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

	result := map[int64]map[string]model.LetterAggregate{}
	for rows.Next() {
		var sampleID int64
		var agg model.LetterAggregate
		if err := rows.Scan(&sampleID, &agg.Letter, &agg.Total, &agg.Errors); err != nil {
			return nil, err
		}
		if _, ok := result[sampleID]; !ok {
			result[sampleID] = map[string]model.LetterAggregate{}
		}
		result[sampleID][agg.Letter] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
