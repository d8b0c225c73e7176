package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/store"
	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

// recordAction journals a one-off action when a journal is configured.
func (s *Server) recordAction(action, transferID string, err error) {
	if s.store == nil {
		return
	}
	if _, jerr := s.store.RecordAction(action, transferID, err); jerr != nil {
		s.logger.Warn("failed to journal action", "action", action, "error", jerr)
	}
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req gateway.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.client.CreateTransfer(r.Context(), req)
	s.recordAction("create", job.ID, err)
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	s.logger.Info("transfer created", "transfer_id", job.ID, "source", job.SourcePath)
	s.writeJSON(w, http.StatusCreated, viewmodel.Card(job))
}

// transferDetailJSON is the detail panel payload.
type transferDetailJSON struct {
	Card   viewmodel.JobCard       `json:"card"`
	Detail *gateway.TransferDetail `json:"detail"`
	Logs   []viewmodel.LogLine     `json:"log_lines"`
}

func (s *Server) handleTransferDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.client.GetTransferDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transferDetailJSON{
		Card:   viewmodel.Card(d.Job),
		Detail: d,
		Logs:   viewmodel.LogLines(d.Logs.Items),
	})
}

// runAction performs a one-off transfer action and relays its outcome.
func (s *Server) runAction(w http.ResponseWriter, r *http.Request, action string, call func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	err := call(r.Context(), id)
	s.recordAction(action, id, err)
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}
	s.logger.Info("transfer action", "action", action, "transfer_id", id)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": action, "transfer_id": id})
}

func dropPayload(fn func(context.Context, string) (*gateway.Payload, error)) func(context.Context, string) error {
	return func(ctx context.Context, id string) error {
		_, err := fn(ctx, id)
		return err
	}
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "delete", s.client.DeleteTransfer)
}

func (s *Server) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "cancel", dropPayload(s.client.CancelTransfer))
}

func (s *Server) handlePauseWatch(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "pause_watch", dropPayload(s.client.PauseWatch))
}

func (s *Server) handleResumeWatch(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "resume_watch", dropPayload(s.client.ResumeWatch))
}

// reportURLJSON tells the browser where to fetch the report once.
type reportURLJSON struct {
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	ExpiresIn string `json:"expires_in"`
}

func (s *Server) handleCreateReportURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.client.DownloadReport(r.Context(), id)
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	token := s.objects.Create(report)
	if token == "" {
		s.writeError(w, http.StatusServiceUnavailable, "dashboard is shutting down")
		return
	}

	if s.store != nil {
		rec := &store.ReportDownload{TransferID: id, Filename: report.Filename, Size: report.Size(), Destination: "url:" + token}
		if err := s.store.RecordReportDownload(rec); err != nil {
			s.logger.Warn("failed to journal report download", "transfer_id", id, "error", err)
		}
	}

	s.writeJSON(w, http.StatusCreated, reportURLJSON{
		URL:       "/reports/" + token,
		Filename:  report.Filename,
		Size:      report.Size(),
		ExpiresIn: s.objects.Delay().String(),
	})
}

func (s *Server) handleServeReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.objects.Take(chi.URLParam(r, "token"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "report link expired")
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(report.Size(), 10))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := report.WriteTo(w); err != nil {
		s.logger.Warn("failed to stream report", "transfer_id", report.TransferID, "error", err)
	}
}

func (s *Server) handleVolumes(w http.ResponseWriter, r *http.Request) {
	var (
		list any
		err  error
	)
	if r.URL.Query().Get("available") == "true" {
		list, err = s.client.AvailableVolumes(r.Context())
	} else {
		list, err = s.client.Volumes(r.Context())
	}
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleReloadVolumes(w http.ResponseWriter, r *http.Request) {
	res, err := s.client.ReloadVolumes(r.Context())
	s.recordAction("reload_volumes", "", err)
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidatePath(w http.ResponseWriter, r *http.Request) {
	res, err := s.client.ValidatePath(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
