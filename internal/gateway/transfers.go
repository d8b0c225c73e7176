package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BadgerOps/transferwatch/internal/model"
)

// Defaults carried over from the node's own UI.
const (
	DefaultListLimit    = 100
	DefaultHistoryDays  = 30
	DefaultWatchHistory = 100
)

// CreateTransferRequest is the body of POST /transfers.
type CreateTransferRequest struct {
	SourcePath        string `json:"source_path"`
	DestinationPath   string `json:"destination_path"`
	WatchModeEnabled  bool   `json:"watch_mode_enabled"`
	SettleTimeSeconds int    `json:"settle_time_seconds,omitempty"`
	WatchContinuous   bool   `json:"watch_continuous"`
	OperationMode     string `json:"operation_mode,omitempty"`
}

// ListOptions filters GET /transfers. A zero Limit uses DefaultListLimit.
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

func transferPath(id string, suffix ...string) string {
	p := "/transfers/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func requireID(id string) error {
	if id == "" {
		return validationError("Transfer id is required")
	}
	return nil
}

// CreateTransfer submits a new transfer job.
func (c *Client) CreateTransfer(ctx context.Context, req CreateTransferRequest) (model.TransferJob, error) {
	if req.SourcePath == "" || req.DestinationPath == "" {
		return model.TransferJob{}, validationError("Source and destination paths are required")
	}
	if req.OperationMode == "" {
		req.OperationMode = model.DefaultOperationMode
	}
	p, err := c.Request(ctx, "/transfers", RequestOptions{Method: http.MethodPost, Body: req, Operation: "create_transfer"})
	if err != nil {
		return model.TransferJob{}, err
	}
	return model.ParseTransfer(p.Result()), nil
}

// ListTransfers returns one page of jobs, optionally filtered by status.
func (c *Client) ListTransfers(ctx context.Context, opts ListOptions) (model.TransferList, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	p, err := c.Request(ctx, "/transfers", RequestOptions{
		Query:     []Param{{"limit", limit}, {"offset", opts.Offset}, {"status", opts.Status}},
		Operation: "list_transfers",
	})
	if err != nil {
		return model.TransferList{}, err
	}
	return model.ParseTransferList(p.Result()), nil
}

// GetTransfer returns a single job.
func (c *Client) GetTransfer(ctx context.Context, id string) (model.TransferJob, error) {
	if err := requireID(id); err != nil {
		return model.TransferJob{}, err
	}
	p, err := c.Request(ctx, transferPath(id), RequestOptions{Operation: "get_transfer"})
	if err != nil {
		return model.TransferJob{}, err
	}
	return model.ParseTransfer(p.Result()), nil
}

// GetChecksums returns the checksum triple of a job.
func (c *Client) GetChecksums(ctx context.Context, id string) (model.ChecksumList, error) {
	if err := requireID(id); err != nil {
		return model.ChecksumList{}, err
	}
	p, err := c.Request(ctx, transferPath(id, "checksums"), RequestOptions{Operation: "get_checksums"})
	if err != nil {
		return model.ChecksumList{}, err
	}
	return model.ParseChecksumList(p.Result()), nil
}

// GetLogs returns the audit trail of a job.
func (c *Client) GetLogs(ctx context.Context, id string) (model.AuditLogList, error) {
	if err := requireID(id); err != nil {
		return model.AuditLogList{}, err
	}
	p, err := c.Request(ctx, transferPath(id, "logs"), RequestOptions{Operation: "get_logs"})
	if err != nil {
		return model.AuditLogList{}, err
	}
	return model.ParseAuditLogList(p.Result()), nil
}

// DeleteTransfer removes a job from history. Files are not touched.
func (c *Client) DeleteTransfer(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	_, err := c.Request(ctx, transferPath(id), RequestOptions{Method: http.MethodDelete, Operation: "delete_transfer"})
	return err
}

// CancelTransfer stops an active job.
func (c *Client) CancelTransfer(ctx context.Context, id string) (*Payload, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.Request(ctx, transferPath(id, "cancel"), RequestOptions{Method: http.MethodPost, Operation: "cancel_transfer"})
}

// RecentTransfers returns jobs from the last days days. Zero uses
// DefaultHistoryDays.
func (c *Client) RecentTransfers(ctx context.Context, days int) (model.TransferList, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	p, err := c.Request(ctx, "/transfers/history/recent", RequestOptions{
		Query:     []Param{{"days", days}},
		Operation: "recent_transfers",
	})
	if err != nil {
		return model.TransferList{}, err
	}
	return model.ParseTransferList(p.Result()), nil
}

// PauseWatch suspends watch mode on a job.
func (c *Client) PauseWatch(ctx context.Context, id string) (*Payload, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.Request(ctx, transferPath(id, "pause-watch"), RequestOptions{Method: http.MethodPost, Operation: "pause_watch"})
}

// ResumeWatch resumes watch mode on a job.
func (c *Client) ResumeWatch(ctx context.Context, id string) (*Payload, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return c.Request(ctx, transferPath(id, "resume-watch"), RequestOptions{Method: http.MethodPost, Operation: "resume_watch"})
}

// WatchHistory lists the files a watch-mode job has detected.
func (c *Client) WatchHistory(ctx context.Context, id string, limit, offset int) (model.WatchHistory, error) {
	if err := requireID(id); err != nil {
		return model.WatchHistory{}, err
	}
	if limit <= 0 {
		limit = DefaultWatchHistory
	}
	p, err := c.Request(ctx, transferPath(id, "watch-history"), RequestOptions{
		Query:     []Param{{"limit", limit}, {"offset", offset}},
		Operation: "watch_history",
	})
	if err != nil {
		return model.WatchHistory{}, err
	}
	return model.ParseWatchHistory(p.Result()), nil
}
