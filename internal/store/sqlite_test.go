package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/poller"
)

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================================
// Store Lifecycle Tests
// ============================================================================

func TestNew(t *testing.T) {
	store, err := New(":memory:", nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Expected db to be initialized")
	}
	if store.logger == nil {
		t.Error("Expected logger to default when nil")
	}
}

func TestClose(t *testing.T) {
	store, err := New(":memory:", nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if _, err := store.ListPollAttempts("", 0); err == nil {
		t.Error("Expected error when using closed store, but got nil")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	first, err := New(path, nil)
	if err != nil {
		t.Fatalf("first New() failed: %v", err)
	}
	if err := first.RecordPollAttempt(&PollAttempt{SubscriptionID: "s", Label: "transfers", Attempt: 1, StartedAt: time.Now(), Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("RecordPollAttempt() failed: %v", err)
	}
	first.Close()

	second, err := New(path, nil)
	if err != nil {
		t.Fatalf("reopening journal failed: %v", err)
	}
	defer second.Close()

	var version int
	if err := second.db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version); err != nil {
		t.Fatalf("reading schema version: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}

	attempts, err := second.ListPollAttempts("", 0)
	if err != nil {
		t.Fatalf("ListPollAttempts() failed: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("expected journal to survive reopen, got %d attempts", len(attempts))
	}
}

// ============================================================================
// Poll Attempt Tests
// ============================================================================

func TestRecordAndListPollAttempts(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []*PollAttempt{
		{SubscriptionID: "a", Label: "transfers", Attempt: 1, StartedAt: start, Duration: 120 * time.Millisecond, Outcome: OutcomeSuccess, NextDelay: 5 * time.Second},
		{SubscriptionID: "b", Label: "health", Attempt: 1, StartedAt: start, Outcome: OutcomeFailure, StatusCode: 503, ErrorMessage: "unavailable", NextDelay: 30 * time.Second},
		{SubscriptionID: "a", Label: "transfers", Attempt: 2, StartedAt: start.Add(5 * time.Second), Outcome: OutcomeSuccess, NextDelay: 5 * time.Second},
	}
	for _, r := range records {
		if err := s.RecordPollAttempt(r); err != nil {
			t.Fatalf("RecordPollAttempt() failed: %v", err)
		}
		if r.ID == 0 {
			t.Error("Expected ID to be set")
		}
	}

	all, err := s.ListPollAttempts("", 0)
	if err != nil {
		t.Fatalf("ListPollAttempts() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(all))
	}
	if all[0].Attempt != 2 || all[0].Label != "transfers" {
		t.Errorf("expected newest first, got %+v", all[0])
	}

	transfers, err := s.ListPollAttempts("transfers", 1)
	if err != nil {
		t.Fatalf("ListPollAttempts(label) failed: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(transfers))
	}

	health, err := s.ListPollAttempts("health", 0)
	if err != nil {
		t.Fatalf("ListPollAttempts(health) failed: %v", err)
	}
	got := health[0]
	if got.StatusCode != 503 || got.ErrorMessage != "unavailable" {
		t.Errorf("unexpected failure record: %+v", got)
	}
	if got.NextDelay != 30*time.Second {
		t.Errorf("NextDelay = %v, want 30s", got.NextDelay)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}
}

func TestSyncHealth(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	add := func(label, outcome string, offset time.Duration, msg string) {
		t.Helper()
		rec := &PollAttempt{SubscriptionID: label, Label: label, Attempt: 1, StartedAt: base.Add(offset), Outcome: outcome, ErrorMessage: msg}
		if err := s.RecordPollAttempt(rec); err != nil {
			t.Fatalf("RecordPollAttempt() failed: %v", err)
		}
	}

	add("transfers", OutcomeSuccess, 0, "")
	add("transfers", OutcomeFailure, time.Second, "refused")
	add("transfers", OutcomeFailure, 2*time.Second, "timeout")
	add("alerts", OutcomeFailure, 0, "boom")
	add("alerts", OutcomeSuccess, time.Second, "")
	add("status", OutcomeFailure, 0, "dns")

	health, err := s.SyncHealth()
	if err != nil {
		t.Fatalf("SyncHealth() failed: %v", err)
	}
	if len(health) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(health))
	}

	byLabel := map[string]LabelHealth{}
	for _, h := range health {
		byLabel[h.Label] = h
	}

	tr := byLabel["transfers"]
	if tr.Attempts != 3 || tr.Failures != 2 || tr.ConsecutiveFailures != 2 {
		t.Errorf("transfers summary = %+v", tr)
	}
	if tr.LastError != "timeout" {
		t.Errorf("LastError = %q, want timeout", tr.LastError)
	}
	if !tr.LastSuccess.Equal(base) {
		t.Errorf("LastSuccess = %v, want %v", tr.LastSuccess, base)
	}
	if tr.Healthy() {
		t.Error("transfers should not be healthy")
	}

	al := byLabel["alerts"]
	if al.ConsecutiveFailures != 0 || !al.Healthy() {
		t.Errorf("alerts should have recovered: %+v", al)
	}

	st := byLabel["status"]
	if !st.LastSuccess.IsZero() || st.Healthy() {
		t.Errorf("status never succeeded: %+v", st)
	}
}

func TestPruneAttempts(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	for _, ts := range []time.Time{now.Add(-48 * time.Hour), now.Add(-25 * time.Hour), now.Add(-time.Minute)} {
		if err := s.RecordPollAttempt(&PollAttempt{SubscriptionID: "x", Label: "x", Attempt: 1, StartedAt: ts, Outcome: OutcomeSuccess}); err != nil {
			t.Fatalf("RecordPollAttempt() failed: %v", err)
		}
	}

	n, err := s.PruneAttempts(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneAttempts() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}

	left, _ := s.ListPollAttempts("", 0)
	if len(left) != 1 {
		t.Errorf("expected 1 attempt left, got %d", len(left))
	}
}

func TestObservePoll(t *testing.T) {
	s := newTestStore(t)
	start := time.Now()

	s.ObservePoll(poller.Attempt{SubscriptionID: "sub-1", Label: "transfers", Number: 1, StartedAt: start, NextDelay: 5 * time.Second})
	s.ObservePoll(poller.Attempt{
		SubscriptionID: "sub-1",
		Label:          "transfers",
		Number:         2,
		StartedAt:      start,
		Err:            &gateway.APIError{Kind: gateway.KindHTTP, StatusCode: 502, Message: "Bad Gateway"},
		NextDelay:      15 * time.Second,
	})
	s.ObservePoll(poller.Attempt{SubscriptionID: "sub-1", Label: "transfers", Number: 3, StartedAt: start, Err: errors.New("dial tcp: refused")})

	attempts, err := s.ListPollAttempts("transfers", 0)
	if err != nil {
		t.Fatalf("ListPollAttempts() failed: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	if attempts[2].Outcome != OutcomeSuccess {
		t.Errorf("first attempt outcome = %q", attempts[2].Outcome)
	}
	if attempts[1].Outcome != OutcomeFailure || attempts[1].StatusCode != 502 {
		t.Errorf("http failure not journaled: %+v", attempts[1])
	}
	if attempts[0].StatusCode != 0 || attempts[0].ErrorMessage != "dial tcp: refused" {
		t.Errorf("transport failure not journaled: %+v", attempts[0])
	}
}

// ============================================================================
// Report Download Tests
// ============================================================================

func TestReportDownloads(t *testing.T) {
	s := newTestStore(t)

	d := &ReportDownload{TransferID: "12", Filename: "transfer-12-report.pdf", Size: 2048, Destination: "/tmp/reports/transfer-12-report.pdf"}
	if err := s.RecordReportDownload(d); err != nil {
		t.Fatalf("RecordReportDownload() failed: %v", err)
	}
	if d.ID == 0 || d.DownloadedAt.IsZero() {
		t.Errorf("expected ID and timestamp to be set: %+v", d)
	}

	if err := s.RecordReportDownload(&ReportDownload{TransferID: "13", Filename: "r.pdf", Destination: "url:abc"}); err != nil {
		t.Fatalf("RecordReportDownload() failed: %v", err)
	}

	list, err := s.ListReportDownloads(0)
	if err != nil {
		t.Fatalf("ListReportDownloads() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 downloads, got %d", len(list))
	}
	if list[0].TransferID != "13" {
		t.Errorf("expected newest first, got %s", list[0].TransferID)
	}
	if list[1].Size != 2048 {
		t.Errorf("Size = %d, want 2048", list[1].Size)
	}

	limited, _ := s.ListReportDownloads(1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

// ============================================================================
// Action Tests
// ============================================================================

func TestActions(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.RecordAction("cancel", "7", nil)
	if err != nil {
		t.Fatalf("RecordAction() failed: %v", err)
	}
	if !ok.Succeeded() {
		t.Error("expected action without error to succeed")
	}

	failed, err := s.RecordAction("delete", "7", &gateway.APIError{Kind: gateway.KindHTTP, StatusCode: 409, Message: "still running"})
	if err != nil {
		t.Fatalf("RecordAction() failed: %v", err)
	}
	if failed.Succeeded() || failed.StatusCode != 409 {
		t.Errorf("unexpected failed action: %+v", failed)
	}

	if _, err := s.RecordAction("reload_volumes", "", nil); err != nil {
		t.Fatalf("RecordAction() failed: %v", err)
	}

	forTransfer, err := s.ListActions("7", 0)
	if err != nil {
		t.Fatalf("ListActions() failed: %v", err)
	}
	if len(forTransfer) != 2 {
		t.Fatalf("expected 2 actions for transfer 7, got %d", len(forTransfer))
	}
	if forTransfer[0].Action != "delete" {
		t.Errorf("expected newest first, got %s", forTransfer[0].Action)
	}

	all, _ := s.ListActions("", 0)
	if len(all) != 3 {
		t.Errorf("expected 3 actions, got %d", len(all))
	}
}
