package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BlockEntry holds the metrics a training history shows for one block.
type BlockEntry struct {
	Block              int
	HitCount           int
	DprimeSameModal    float64
	DprimeOtherModalGo float64
}

// Entry is one session of a subject's training history.
type Entry struct {
	SessionKey string
	StartTime  time.Time
	Stage      string // Task version the session ran
	Blocks     []BlockEntry
}

// Date returns the session date as month-day-year.
func (e Entry) Date() string {
	return e.StartTime.Format(DateLayout)
}

// TrainingHistory returns the subject's sessions in ascending start time, up
// to and including the session identified by sessionKey. Returns
// ErrSessionNotFound when the subject has no such session.
func (s *Store) TrainingHistory(ctx context.Context, subject, sessionKey string) ([]Entry, error) {
	entries, err := s.subjectEntries(ctx, subject)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.SessionKey == sessionKey {
			return entries[:i+1], nil
		}
	}
	return nil, fmt.Errorf("%w: subject %s session %s", ErrSessionNotFound, subject, sessionKey)
}

// SubjectHistory returns every recorded session of the subject in ascending
// start time. Returns ErrSessionNotFound when the subject has none.
func (s *Store) SubjectHistory(ctx context.Context, subject string) ([]Entry, error) {
	entries, err := s.subjectEntries(ctx, subject)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: subject %s has no sessions", ErrSessionNotFound, subject)
	}
	return entries, nil
}

func (s *Store) subjectEntries(ctx context.Context, subject string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.session_key, s.start_time, COALESCE(s.task_version, ''),
    b.block, b.hit_count, b.dprime_same_modal, b.dprime_other_modal_go
FROM sessions s
LEFT JOIN block_metrics b ON b.session_id = s.id
WHERE s.subject = ?
ORDER BY s.start_time ASC, s.session_key ASC, b.block ASC`, subject)
	if err != nil {
		return nil, fmt.Errorf("query training history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	var lastID string
	for rows.Next() {
		var (
			id, key, stage string
			start          time.Time
			block, hits    sql.NullInt64
			same, otherGo  sql.NullFloat64
		)
		if err := rows.Scan(&id, &key, &start, &stage, &block, &hits, &same, &otherGo); err != nil {
			return nil, fmt.Errorf("scan training history: %w", err)
		}

		if id != lastID {
			entries = append(entries, Entry{SessionKey: key, StartTime: start, Stage: stage})
			lastID = id
		}
		if block.Valid {
			e := &entries[len(entries)-1]
			e.Blocks = append(e.Blocks, BlockEntry{
				Block:              int(block.Int64),
				HitCount:           int(hits.Int64),
				DprimeSameModal:    fromNullable(same),
				DprimeOtherModalGo: fromNullable(otherGo),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training history: %w", err)
	}
	return entries, nil
}

// Subjects lists every subject with at least one recorded session.
func (s *Store) Subjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT subject FROM sessions ORDER BY subject ASC`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}
