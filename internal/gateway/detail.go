package gateway

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BadgerOps/transferwatch/internal/model"
)

// TransferDetail bundles everything the detail panel shows for one job.
type TransferDetail struct {
	Job       model.TransferJob   `json:"job"`
	Checksums model.ChecksumList  `json:"checksums"`
	Logs      model.AuditLogList  `json:"logs"`
	Watch     *model.WatchHistory `json:"watch,omitempty"`
}

// GetTransferDetail fetches the job, its checksums and its audit trail
// concurrently, plus the watch history for watch-mode jobs. The first
// failure cancels the remaining calls and is returned.
func (c *Client) GetTransferDetail(ctx context.Context, id string) (*TransferDetail, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	var d TransferDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		job, err := c.GetTransfer(gctx, id)
		d.Job = job
		return err
	})
	g.Go(func() error {
		sums, err := c.GetChecksums(gctx, id)
		d.Checksums = sums
		return err
	})
	g.Go(func() error {
		logs, err := c.GetLogs(gctx, id)
		d.Logs = logs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.Job.WatchModeEnabled {
		hist, err := c.WatchHistory(ctx, id, 0, 0)
		if err != nil {
			if !IsNotFound(err) {
				return nil, err
			}
			c.logger.Debug("watch history unavailable", "transfer_id", id)
		} else {
			d.Watch = &hist
		}
	}
	return &d, nil
}
