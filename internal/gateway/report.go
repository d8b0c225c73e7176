package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/BadgerOps/transferwatch/internal/safety"
)

// Report is a downloaded PDF report held in memory until saved or served.
type Report struct {
	TransferID  string
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the report length in bytes.
func (r *Report) Size() int64 {
	return int64(len(r.Data))
}

// WriteTo streams the report into w.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(r.Data).WriteTo(w)
}

var dispositionFilename = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)

// FilenameFromDisposition extracts the filename parameter of a
// Content-Disposition header, quoted or bare. It returns "" when absent.
func FilenameFromDisposition(value string) string {
	m := dispositionFilename.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

// FallbackReportName is used when the node sends no usable filename.
func FallbackReportName(transferID string) string {
	return fmt.Sprintf("transfer-%s-report.pdf", transferID)
}

// DownloadReport fetches the PDF report of a transfer. The body is never
// parsed as JSON.
func (c *Client) DownloadReport(ctx context.Context, transferID string) (*Report, error) {
	if transferID == "" {
		return nil, validationError("Transfer id is required")
	}

	resp, err := c.do(ctx, transferPath(transferID, "report"), RequestOptions{
		Header:    http.Header{"Accept": []string{"application/pdf"}},
		Operation: "download_report",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &APIError{Kind: KindHTTP, StatusCode: resp.StatusCode, Message: "Failed to download transfer report"}
	}

	data, err := safety.ReadAllWithLimit(resp.Body, c.maxReportBytes)
	if err != nil {
		return nil, networkError(fmt.Errorf("reading report body: %w", err))
	}

	filename := FallbackReportName(transferID)
	if name := FilenameFromDisposition(resp.Header.Get("Content-Disposition")); name != "" {
		if clean, err := safety.SanitizeFilename(name); err == nil {
			filename = clean
		} else {
			c.logger.Warn("ignoring unusable report filename", "transfer_id", transferID, "filename", name, "error", err)
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	return &Report{
		TransferID:  transferID,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
