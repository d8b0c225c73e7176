package gateway

import (
	"context"
	"net/http"

	"github.com/BadgerOps/transferwatch/internal/model"
)

// Volumes lists every configured volume.
func (c *Client) Volumes(ctx context.Context) (model.VolumeList, error) {
	p, err := c.Request(ctx, "/volumes", RequestOptions{Operation: "volumes"})
	if err != nil {
		return model.VolumeList{}, err
	}
	return model.ParseVolumeList(p.Result()), nil
}

// AvailableVolumes lists volumes currently mounted and writable.
func (c *Client) AvailableVolumes(ctx context.Context) (model.VolumeList, error) {
	p, err := c.Request(ctx, "/volumes/available", RequestOptions{Operation: "available_volumes"})
	if err != nil {
		return model.VolumeList{}, err
	}
	return model.ParseVolumeList(p.Result()), nil
}

// ReloadVolumes asks the node to re-read its volume configuration.
func (c *Client) ReloadVolumes(ctx context.Context) (model.ReloadResult, error) {
	p, err := c.Request(ctx, "/volumes/reload", RequestOptions{Method: http.MethodPost, Operation: "reload_volumes"})
	if err != nil {
		return model.ReloadResult{}, err
	}
	return model.ParseReloadResult(p.Result()), nil
}

// ValidatePath checks a path against the node's volume rules. An empty
// path fails locally without contacting the node.
func (c *Client) ValidatePath(ctx context.Context, path string) (model.PathValidation, error) {
	if path == "" {
		return model.PathValidation{}, validationError("Path is required for validation")
	}
	p, err := c.Request(ctx, "/volumes/validate", RequestOptions{
		Query:     []Param{{"path", path}},
		Operation: "validate_path",
	})
	if err != nil {
		return model.PathValidation{}, err
	}
	return model.ParsePathValidation(p.Result()), nil
}

// Status returns the node's component status summary.
func (c *Client) Status(ctx context.Context) (model.SystemStatus, error) {
	p, err := c.Request(ctx, "/status", RequestOptions{Operation: "status"})
	if err != nil {
		return model.SystemStatus{}, err
	}
	return model.ParseSystemStatus(p.Result()), nil
}

// Health returns the node's health summary.
func (c *Client) Health(ctx context.Context) (model.SystemHealth, error) {
	p, err := c.Request(ctx, "/health", RequestOptions{Operation: "health"})
	if err != nil {
		return model.SystemHealth{}, err
	}
	return model.ParseSystemHealth(p.Result()), nil
}
