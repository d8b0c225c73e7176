package dashboard

import (
	"context"
	"log/slog"

	"github.com/BadgerOps/transferwatch/internal/config"
	"github.com/BadgerOps/transferwatch/internal/gateway"
	"github.com/BadgerOps/transferwatch/internal/model"
	"github.com/BadgerOps/transferwatch/internal/poller"
	"github.com/BadgerOps/transferwatch/internal/viewmodel"
)

// Widget names, also used as poll labels.
const (
	PanelTransfers = "transfers"
	PanelAlerts    = "alerts"
	PanelAudit     = "audit"
	PanelStatus    = "status"
	PanelHealth    = "health"
)

// TransfersView splits the job list into the active and history tabs.
type TransfersView struct {
	Total      int                 `json:"total"`
	Active     []viewmodel.JobCard `json:"active"`
	Historical []viewmodel.JobCard `json:"historical"`
	Unknown    []viewmodel.JobCard `json:"unknown"`
}

// ComponentView is one row of the infrastructure status list.
type ComponentView struct {
	Label  string               `json:"label"`
	Status string               `json:"status"`
	Tone   viewmodel.HealthTone `json:"tone"`
}

// StatusView is the rendered /status payload.
type StatusView struct {
	Version    string          `json:"version"`
	Components []ComponentView `json:"components"`
}

// HealthView is the rendered /health payload.
type HealthView struct {
	Service     string               `json:"service"`
	Version     string               `json:"version"`
	Environment string               `json:"environment"`
	Status      string               `json:"status"`
	Tone        viewmodel.HealthTone `json:"tone"`
	Database    viewmodel.HealthTone `json:"database"`
	Redis       viewmodel.HealthTone `json:"redis"`
}

// RenderTransfers partitions a job list into cards.
func RenderTransfers(list model.TransferList) any {
	active, historical, unknown := viewmodel.Partition(list.Items)
	return TransfersView{
		Total:      list.Total,
		Active:     viewmodel.Cards(active),
		Historical: viewmodel.Cards(historical),
		Unknown:    viewmodel.Cards(unknown),
	}
}

// RenderStatus classifies every component of the status payload.
func RenderStatus(st model.SystemStatus) any {
	rows := []struct{ label, value string }{
		{"API", st.API},
		{"Database", st.Database},
		{"Redis", st.Redis},
		{"Workers", st.Worker},
	}
	v := StatusView{Version: st.Version, Components: make([]ComponentView, 0, len(rows))}
	for _, r := range rows {
		v.Components = append(v.Components, ComponentView{Label: r.label, Status: r.value, Tone: viewmodel.HealthToneOf(r.value)})
	}
	return v
}

// RenderHealth classifies the health payload.
func RenderHealth(h model.SystemHealth) any {
	return HealthView{
		Service:     h.Service,
		Version:     h.Version,
		Environment: h.Environment,
		Status:      h.Status,
		Tone:        viewmodel.HealthToneOf(h.Status),
		Database:    viewmodel.HealthBool(h.Database),
		Redis:       viewmodel.HealthBool(h.Redis),
	}
}

// NewPanels builds the standard widget set against client, with each
// cadence taken from cfg.Polling.
func NewPanels(client *gateway.Client, cfg *config.Config, obs poller.Observer, logger *slog.Logger) []Panel {
	opts := func(c config.Cadence) WidgetOptions {
		return WidgetOptions{
			Interval:         c.Interval.Std(),
			FallbackInterval: c.FallbackInterval.Std(),
			Observer:         obs,
			Logger:           logger,
		}
	}

	alertLimit := cfg.Alerts.Limit
	if alertLimit <= 0 {
		alertLimit = viewmodel.DefaultAlertLimit
	}
	auditLimit := cfg.Alerts.AuditLimit
	auditDays := cfg.Alerts.AuditDays
	if auditDays <= 0 {
		auditDays = viewmodel.DefaultAuditDays
	}

	return []Panel{
		NewWidget(PanelTransfers,
			func(ctx context.Context) (model.TransferList, error) {
				return client.ListTransfers(ctx, gateway.ListOptions{})
			},
			RenderTransfers, opts(cfg.Polling.Transfers)),
		NewWidget(PanelAlerts,
			func(ctx context.Context) (model.TransferList, error) {
				return client.ListTransfers(ctx, gateway.ListOptions{Limit: alertLimit})
			},
			func(l model.TransferList) any { return viewmodel.Alerts(l.Items, alertLimit) },
			opts(cfg.Polling.Alerts)),
		NewWidget(PanelAudit,
			func(ctx context.Context) (model.TransferList, error) {
				return client.RecentTransfers(ctx, auditDays)
			},
			func(l model.TransferList) any { return viewmodel.AuditFeed(l.Items, auditLimit) },
			opts(cfg.Polling.Audit)),
		NewWidget(PanelStatus, client.Status, RenderStatus, opts(cfg.Polling.Status)),
		NewWidget(PanelHealth, client.Health, RenderHealth, opts(cfg.Polling.Health)),
	}
}
