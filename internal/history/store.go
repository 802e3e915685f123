// Package history keeps a per-subject training history of analyzed sessions
// in SQLite, so a session's block metrics can be shown next to every earlier
// session of the same subject.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/models"
)

// ErrSessionNotFound is returned when a session key has no recorded session.
var ErrSessionNotFound = errors.New("session not found")

// DateLayout formats training history dates as month-day-year.
const DateLayout = "01-02-06"

// Store manages the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies migrations.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return s, nil
}

// execWithRetry retries a statement with exponential backoff while the database is locked.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSession stores an analyzed session and its block metrics, replacing
// any earlier record with the same session key. Returns the session row id.
func (s *Store) RecordSession(ctx context.Context, result *analysis.Result) (string, error) {
	sum := result.Summary
	key := sum.SessionKey()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE session_key = ?`, key).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
INSERT INTO sessions (id, session_key, subject, rig, task_version, start_time,
    n_trials, n_blocks, engaged, rewards, earned, source_path)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, key, sum.SubjectName, sum.RigName, sum.TaskVersion, sum.StartTime.UTC(),
			sum.NTrials, sum.NBlocks, sum.Engaged, sum.Rewards, sum.Earned, result.Path)
		if err != nil {
			return "", fmt.Errorf("insert session: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("look up session %s: %w", key, err)
	default:
		_, err = tx.ExecContext(ctx, `
UPDATE sessions SET rig = ?, task_version = ?, n_trials = ?, n_blocks = ?, engaged = ?,
    rewards = ?, earned = ?, source_path = ?, recorded_at = CURRENT_TIMESTAMP
WHERE id = ?`,
			sum.RigName, sum.TaskVersion, sum.NTrials, sum.NBlocks, sum.Engaged,
			sum.Rewards, sum.Earned, result.Path, id)
		if err != nil {
			return "", fmt.Errorf("update session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM block_metrics WHERE session_id = ?`, id); err != nil {
			return "", fmt.Errorf("clear block metrics: %w", err)
		}
	}

	for _, b := range result.Blocks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO block_metrics (session_id, block, rewarded_stim, go_trials, nogo_trials, catch_trials,
    hit_count, hit_rate, false_alarm_rate, false_alarm_same_modal, false_alarm_other_modal_go,
    false_alarm_other_modal_nogo, dprime_same_modal, dprime_other_modal_go,
    dprime_nonrewarded_modal, catch_response_rate)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, b.Block, b.RewardedStim, b.GoTrials, b.NogoTrials, b.CatchTrials,
			b.HitCount, nullable(b.HitRate), nullable(b.FalseAlarmRate), nullable(b.FalseAlarmSameModal),
			nullable(b.FalseAlarmOtherModalGo), nullable(b.FalseAlarmOtherModalNogo),
			nullable(b.DprimeSameModal), nullable(b.DprimeOtherModalGo),
			nullable(b.DprimeNonrewardedModal), nullable(b.CatchResponseRate))
		if err != nil {
			return "", fmt.Errorf("insert block %d: %w", b.Block, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	return id, nil
}

// SessionBlocks returns the recorded block metrics of a session in block order.
func (s *Store) SessionBlocks(ctx context.Context, sessionKey string) ([]models.BlockMetrics, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE session_key = ?`, sessionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionKey)
	}
	if err != nil {
		return nil, fmt.Errorf("look up session %s: %w", sessionKey, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT block, rewarded_stim, go_trials, nogo_trials, catch_trials, hit_count, hit_rate,
    false_alarm_rate, false_alarm_same_modal, false_alarm_other_modal_go,
    false_alarm_other_modal_nogo, dprime_same_modal, dprime_other_modal_go,
    dprime_nonrewarded_modal, catch_response_rate
FROM block_metrics WHERE session_id = ? ORDER BY block ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query block metrics: %w", err)
	}
	defer rows.Close()

	var blocks []models.BlockMetrics
	for rows.Next() {
		var b models.BlockMetrics
		var vals [9]sql.NullFloat64
		if err := rows.Scan(&b.Block, &b.RewardedStim, &b.GoTrials, &b.NogoTrials, &b.CatchTrials, &b.HitCount,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6], &vals[7], &vals[8]); err != nil {
			return nil, fmt.Errorf("scan block metrics: %w", err)
		}
		b.HitRate = fromNullable(vals[0])
		b.FalseAlarmRate = fromNullable(vals[1])
		b.FalseAlarmSameModal = fromNullable(vals[2])
		b.FalseAlarmOtherModalGo = fromNullable(vals[3])
		b.FalseAlarmOtherModalNogo = fromNullable(vals[4])
		b.DprimeSameModal = fromNullable(vals[5])
		b.DprimeOtherModalGo = fromNullable(vals[6])
		b.DprimeNonrewardedModal = fromNullable(vals[7])
		b.CatchResponseRate = fromNullable(vals[8])
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block metrics: %w", err)
	}
	return blocks, nil
}

// nullable stores NaN as SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
