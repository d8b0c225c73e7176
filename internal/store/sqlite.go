// Package store is the local SQLite journal of sync activity: poll
// attempts, report downloads and operator actions. It never stores job
// payloads.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/poller"
)

// Store provides SQLite-backed persistence
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the SQLite database at dbPath and runs migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("journal opened", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ============================================================================
// Poll attempts
// ============================================================================

// RecordPollAttempt inserts an attempt and sets its ID.
func (s *Store) RecordPollAttempt(a *PollAttempt) error {
	const query = `
		INSERT INTO poll_attempts (
			subscription_id, label, attempt, started_at, duration_ms,
			outcome, status_code, error_message, next_delay_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		a.SubscriptionID, a.Label, a.Attempt, a.StartedAt.UTC(), a.Duration.Milliseconds(),
		a.Outcome, a.StatusCode, a.ErrorMessage, a.NextDelay.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	a.ID = id
	return nil
}

// ListPollAttempts returns attempts newest first, optionally filtered by
// label. A limit of 0 returns everything.
func (s *Store) ListPollAttempts(label string, limit int) ([]PollAttempt, error) {
	query := `
		SELECT id, subscription_id, label, attempt, started_at, duration_ms,
		       outcome, status_code, error_message, next_delay_ms
		FROM poll_attempts
	`
	var args []interface{}

	if label != "" {
		query += " WHERE label = ?"
		args = append(args, label)
	}

	query += " ORDER BY id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll attempts: %w", err)
	}
	defer rows.Close()

	var attempts []PollAttempt
	for rows.Next() {
		var a PollAttempt
		var durationMS, delayMS int64
		err := rows.Scan(
			&a.ID, &a.SubscriptionID, &a.Label, &a.Attempt, &a.StartedAt, &durationMS,
			&a.Outcome, &a.StatusCode, &a.ErrorMessage, &delayMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll attempt: %w", err)
		}
		a.Duration = time.Duration(durationMS) * time.Millisecond
		a.NextDelay = time.Duration(delayMS) * time.Millisecond
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poll attempts: %w", err)
	}

	return attempts, nil
}

// SyncHealth summarizes the journal per label, ordered by label.
func (s *Store) SyncHealth() ([]LabelHealth, error) {
	const query = `
		SELECT label, COUNT(*),
		       SUM(CASE WHEN outcome = 'failure' THEN 1 ELSE 0 END),
		       COALESCE(MAX(CASE WHEN outcome = 'success' THEN id END), 0)
		FROM poll_attempts
		GROUP BY label
		ORDER BY label
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync health: %w", err)
	}

	type summary struct {
		health        LabelHealth
		lastSuccessID int64
	}
	var summaries []summary
	for rows.Next() {
		var sum summary
		if err := rows.Scan(&sum.health.Label, &sum.health.Attempts, &sum.health.Failures, &sum.lastSuccessID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sync health: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating sync health: %w", err)
	}
	rows.Close()

	out := make([]LabelHealth, 0, len(summaries))
	for _, sum := range summaries {
		h := sum.health

		err := s.db.QueryRow(
			"SELECT COUNT(*) FROM poll_attempts WHERE label = ? AND outcome = 'failure' AND id > ?",
			h.Label, sum.lastSuccessID,
		).Scan(&h.ConsecutiveFailures)
		if err != nil {
			return nil, fmt.Errorf("failed to count consecutive failures: %w", err)
		}

		if sum.lastSuccessID > 0 {
			err := s.db.QueryRow("SELECT started_at FROM poll_attempts WHERE id = ?", sum.lastSuccessID).Scan(&h.LastSuccess)
			if err != nil {
				return nil, fmt.Errorf("failed to read last success: %w", err)
			}
		}

		err = s.db.QueryRow(
			"SELECT started_at, error_message FROM poll_attempts WHERE label = ? AND outcome = 'failure' ORDER BY id DESC LIMIT 1",
			h.Label,
		).Scan(&h.LastFailure, &h.LastError)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to read last failure: %w", err)
		}

		out = append(out, h)
	}

	return out, nil
}

// PruneAttempts deletes attempts started before cutoff and returns how
// many were removed.
func (s *Store) PruneAttempts(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM poll_attempts WHERE started_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune poll attempts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ObservePoll journals a finished attempt. Write failures are logged and
// never reach the poll loop.
func (s *Store) ObservePoll(a poller.Attempt) {
	rec := &PollAttempt{
		SubscriptionID: a.SubscriptionID,
		Label:          a.Label,
		Attempt:        a.Number,
		StartedAt:      a.StartedAt,
		Duration:       a.Duration,
		Outcome:        OutcomeSuccess,
		NextDelay:      a.NextDelay,
	}
	if a.Err != nil {
		rec.Outcome = OutcomeFailure
		rec.StatusCode = gateway.StatusCode(a.Err)
		rec.ErrorMessage = a.Err.Error()
	}
	if err := s.RecordPollAttempt(rec); err != nil {
		s.logger.Error("journaling poll attempt", "label", a.Label, "error", err)
	}
}

// ============================================================================
// Report downloads
// ============================================================================

// RecordReportDownload inserts a download record and sets its ID.
func (s *Store) RecordReportDownload(d *ReportDownload) error {
	if d.DownloadedAt.IsZero() {
		d.DownloadedAt = time.Now()
	}

	const query = `
		INSERT INTO report_downloads (transfer_id, filename, size, destination, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, d.TransferID, d.Filename, d.Size, d.Destination, d.DownloadedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert report download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	d.ID = id
	return nil
}

// ListReportDownloads returns downloads newest first.
func (s *Store) ListReportDownloads(limit int) ([]ReportDownload, error) {
	query := `
		SELECT id, transfer_id, filename, size, destination, downloaded_at
		FROM report_downloads ORDER BY id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query report downloads: %w", err)
	}
	defer rows.Close()

	var downloads []ReportDownload
	for rows.Next() {
		var d ReportDownload
		if err := rows.Scan(&d.ID, &d.TransferID, &d.Filename, &d.Size, &d.Destination, &d.DownloadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report download: %w", err)
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report downloads: %w", err)
	}

	return downloads, nil
}

// ============================================================================
// Operator actions
// ============================================================================

// RecordAction journals a one-off action and its outcome. err may be nil.
func (s *Store) RecordAction(action, transferID string, err error) (*Action, error) {
	a := &Action{
		Action:      action,
		TransferID:  transferID,
		PerformedAt: time.Now(),
	}
	if err != nil {
		a.StatusCode = gateway.StatusCode(err)
		a.ErrorMessage = err.Error()
	}

	const query = `
		INSERT INTO actions (action, transfer_id, status_code, error_message, performed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, execErr := s.db.Exec(query, a.Action, a.TransferID, a.StatusCode, a.ErrorMessage, a.PerformedAt.UTC())
	if execErr != nil {
		return nil, fmt.Errorf("failed to insert action: %w", execErr)
	}

	id, idErr := result.LastInsertId()
	if idErr != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", idErr)
	}
	a.ID = id
	return a, nil
}

// ListActions returns actions newest first, optionally for one transfer.
func (s *Store) ListActions(transferID string, limit int) ([]Action, error) {
	query := `
		SELECT id, action, transfer_id, status_code, error_message, performed_at
		FROM actions
	`
	var args []interface{}

	if transferID != "" {
		query += " WHERE transfer_id = ?"
		args = append(args, transferID)
	}

	query += " ORDER BY id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Action, &a.TransferID, &a.StatusCode, &a.ErrorMessage, &a.PerformedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}

	return actions, nil
}
