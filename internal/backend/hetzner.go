package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"fleetops/nodewarden/internal/auth"
	"fleetops/nodewarden/internal/domain"
	"fleetops/nodewarden/internal/retry"
)

// HetznerBackend implements Backend on the Hetzner Cloud API. Container
// ids map to Hetzner server names, which the API enforces as unique per
// project.
type HetznerBackend struct {
	client *hcloud.Client
}

// NewHetznerBackend creates a HetznerBackend with the given client options.
// Default options (application name) are applied first; callers can
// override them.
func NewHetznerBackend(opts ...hcloud.ClientOption) *HetznerBackend {
	defaults := []hcloud.ClientOption{
		hcloud.WithApplication("nodewarden", "0.1.0"),
	}
	allOpts := append(defaults, opts...)
	return &HetznerBackend{
		client: hcloud.NewClient(allOpts...),
	}
}

// RegisterHetzner registers the Hetzner backend factory with the global
// registry.
func RegisterHetzner() {
	Register("hetzner", func(store auth.Store) (Backend, error) {
		token, err := store.GetToken("hetzner")
		if err != nil {
			return nil, fmt.Errorf("hetzner auth: %w", err)
		}
		return NewHetznerBackend(hcloud.WithToken(token)), nil
	})
}

// Status reports the backend-observed state of the container.
func (h *HetznerBackend) Status(ctx context.Context, containerID string) (string, error) {
	server, err := h.getServer(ctx, containerID)
	if err != nil {
		return domain.StatusUnknown, WrapError("status", containerID, err)
	}

	switch server.Status {
	case hcloud.ServerStatusRunning:
		return domain.StatusRunning, nil
	case hcloud.ServerStatusOff:
		return domain.StatusStopped, nil
	default:
		// Transitional states (starting, stopping, migrating, ...) map to
		// the unknown sentinel for display.
		return domain.StatusUnknown, nil
	}
}

// Start powers the container on.
func (h *HetznerBackend) Start(ctx context.Context, containerID string) error {
	server, err := h.getServer(ctx, containerID)
	if err != nil {
		return WrapError("start", containerID, err)
	}
	if _, _, err := h.client.Server.Poweron(ctx, server); err != nil {
		return WrapError("start", containerID, err)
	}
	return nil
}

// Stop powers the container off: a hard poweroff when forced, otherwise a
// graceful ACPI shutdown signal.
func (h *HetznerBackend) Stop(ctx context.Context, containerID string, force bool) error {
	server, err := h.getServer(ctx, containerID)
	if err != nil {
		return WrapError("stop", containerID, err)
	}

	if force {
		_, _, err = h.client.Server.Poweroff(ctx, server)
	} else {
		_, _, err = h.client.Server.Shutdown(ctx, server)
	}
	if err != nil {
		return WrapError("stop", containerID, err)
	}
	return nil
}

// Delete removes the server. Hetzner deletion is always forceful; the
// force flag only suppresses the not-found error so reclaiming an already
// vanished server succeeds.
func (h *HetznerBackend) Delete(ctx context.Context, containerID string, force bool) error {
	server, getErr := h.getServer(ctx, containerID)
	if getErr != nil {
		if force && errors.Is(getErr, domain.ErrNotFound) {
			return nil
		}
		return WrapError("delete", containerID, getErr)
	}

	if _, _, err := h.client.Server.DeleteWithResult(ctx, server); err != nil {
		return WrapError("delete", containerID, err)
	}
	return nil
}

// Usage returns a best-effort telemetry snapshot: live CPU from the
// metrics API, memory and disk from the server type.
func (h *HetznerBackend) Usage(ctx context.Context, containerID string) (*domain.Usage, error) {
	server, err := h.getServer(ctx, containerID)
	if err != nil {
		return nil, WrapError("usage", containerID, err)
	}

	usage := &domain.Usage{}
	if server.ServerType != nil {
		usage.Memory = fmt.Sprintf("%.0fGB", server.ServerType.Memory)
		usage.Disk = fmt.Sprintf("%dGB", server.ServerType.Disk)
	}

	end := time.Now()
	metrics, _, err := h.client.Server.GetMetrics(ctx, server, hcloud.ServerGetMetricsOpts{
		Types: []hcloud.ServerMetricType{hcloud.ServerMetricCPU},
		Start: end.Add(-5 * time.Minute),
		End:   end,
	})
	if err != nil {
		return nil, WrapError("usage", containerID, err)
	}
	if series, ok := metrics.TimeSeries["cpu"]; ok && len(series) > 0 {
		if pct, err := strconv.ParseFloat(series[len(series)-1].Value, 64); err == nil {
			usage.CPUPct = pct
		}
	}
	return usage, nil
}

// getServer resolves a container id to its Hetzner server, retrying
// transient and rate-limit failures. Lookups are read-only, so the retry
// never repeats a destructive call.
func (h *HetznerBackend) getServer(ctx context.Context, containerID string) (*hcloud.Server, error) {
	var server *hcloud.Server
	err := retry.Do(ctx, retry.DefaultConfig(), retryableHCloud, func() error {
		s, _, err := h.client.Server.GetByName(ctx, containerID)
		if err != nil {
			return err
		}
		server = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("server %q: %w", containerID, domain.ErrNotFound)
	}
	return server, nil
}

func retryableHCloud(err error) bool {
	if hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded) {
		return true
	}
	return retry.IsRetryable(err)
}
