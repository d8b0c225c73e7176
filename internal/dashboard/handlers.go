package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/store"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeGatewayError relays a node failure. Transport failures become 502
// since the dashboard itself is healthy.
func (s *Server) writeGatewayError(w http.ResponseWriter, err error) {
	status := gateway.StatusCode(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	msg := err.Error()
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	s.writeError(w, status, msg)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWidgets(w http.ResponseWriter, r *http.Request) {
	snaps := make([]Snapshot, 0, len(s.order))
	for _, name := range s.order {
		snaps = append(snaps, s.panels[name].Snapshot())
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panels[chi.URLParam(r, "name")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "widget not found")
		return
	}
	s.writeJSON(w, http.StatusOK, p.Snapshot())
}

// syncHealthResponse combines the journal with the live widget states.
type syncHealthResponse struct {
	Widgets []widgetState       `json:"widgets"`
	Journal []store.LabelHealth `json:"journal"`
	Actions []actionJSON        `json:"recent_actions"`
}

type widgetState struct {
	Name      string `json:"name"`
	State     State  `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

type actionJSON struct {
	Action      string `json:"action"`
	TransferID  string `json:"transfer_id,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	Error       string `json:"error,omitempty"`
	PerformedAt string `json:"performed_at"`
}

func (s *Server) handleSyncHealth(w http.ResponseWriter, r *http.Request) {
	resp := syncHealthResponse{
		Widgets: make([]widgetState, 0, len(s.order)),
		Journal: []store.LabelHealth{},
		Actions: []actionJSON{},
	}
	for _, name := range s.order {
		snap := s.panels[name].Snapshot()
		resp.Widgets = append(resp.Widgets, widgetState{Name: name, State: snap.State, LastError: snap.LastError})
	}
	sort.Slice(resp.Widgets, func(i, j int) bool { return resp.Widgets[i].Name < resp.Widgets[j].Name })

	if s.store != nil {
		health, err := s.store.SyncHealth()
		if err != nil {
			s.logger.Error("failed to read sync journal", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to read sync journal")
			return
		}
		resp.Journal = append(resp.Journal, health...)

		actions, err := s.store.ListActions("", 20)
		if err != nil {
			s.logger.Warn("failed to list actions", "error", err)
		}
		for _, a := range actions {
			resp.Actions = append(resp.Actions, actionJSON{
				Action:      a.Action,
				TransferID:  a.TransferID,
				StatusCode:  a.StatusCode,
				Error:       a.ErrorMessage,
				PerformedAt: a.PerformedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
