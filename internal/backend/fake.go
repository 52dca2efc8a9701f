package backend

import (
	"context"
	"errors"
	"sync"

	"fleetops/nodewarden/internal/domain"
)

// Fake is an in-memory Backend for tests. Statuses are seeded per
// container id; per-operation error maps make individual calls fail.
type Fake struct {
	mu sync.Mutex

	// Statuses maps container id to the status Status returns.
	Statuses map[string]string

	// StatusErr, StartErr, StopErr, DeleteErr, UsageErr fail the
	// corresponding call for a container id.
	StatusErr map[string]error
	StartErr  map[string]error
	StopErr   map[string]error
	DeleteErr map[string]error
	UsageErr  map[string]error

	// Calls records every invocation as "op container_id".
	Calls []string
}

// NewFake returns an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		Statuses:  map[string]string{},
		StatusErr: map[string]error{},
		StartErr:  map[string]error{},
		StopErr:   map[string]error{},
		DeleteErr: map[string]error{},
		UsageErr:  map[string]error{},
	}
}

func (f *Fake) record(op, containerID string) {
	f.Calls = append(f.Calls, op+" "+containerID)
}

// CallsTo returns the recorded invocations for one operation.
func (f *Fake) CallsTo(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, call := range f.Calls {
		if len(call) > len(op) && call[:len(op)] == op && call[len(op)] == ' ' {
			out = append(out, call[len(op)+1:])
		}
	}
	return out
}

func (f *Fake) Status(_ context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("status", containerID)
	if err := f.StatusErr[containerID]; err != nil {
		return domain.StatusUnknown, WrapError("status", containerID, err)
	}
	if status, ok := f.Statuses[containerID]; ok {
		return status, nil
	}
	return domain.StatusUnknown, WrapError("status", containerID, errors.New("unknown container"))
}

func (f *Fake) Start(_ context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start", containerID)
	if err := f.StartErr[containerID]; err != nil {
		return WrapError("start", containerID, err)
	}
	f.Statuses[containerID] = domain.StatusRunning
	return nil
}

func (f *Fake) Stop(_ context.Context, containerID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop", containerID)
	if err := f.StopErr[containerID]; err != nil {
		return WrapError("stop", containerID, err)
	}
	f.Statuses[containerID] = domain.StatusStopped
	return nil
}

func (f *Fake) Delete(_ context.Context, containerID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete", containerID)
	if err := f.DeleteErr[containerID]; err != nil {
		return WrapError("delete", containerID, err)
	}
	delete(f.Statuses, containerID)
	return nil
}

func (f *Fake) Usage(_ context.Context, containerID string) (*domain.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("usage", containerID)
	if err := f.UsageErr[containerID]; err != nil {
		return nil, WrapError("usage", containerID, err)
	}
	return &domain.Usage{CPUPct: 1.5, Memory: "2GB", Disk: "40GB", ProcessCount: 12}, nil
}
