package planner

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
)

// Status is the busy state of one backing store
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// guard allows one operation at a time per store. A second operation
// started while one is in flight is rejected, not queued.
type guard struct {
	name string

	mu     sync.Mutex
	status Status
}

func newGuard(name string) *guard {
	return &guard{name: name, status: StatusIdle}
}

func (g *guard) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status == StatusLoading {
		return goerr.Wrap(model.ErrBusy, "another operation is in progress", goerr.V("store", g.name))
	}
	g.status = StatusLoading
	return nil
}

func (g *guard) end(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err != nil {
		g.status = StatusError
		return
	}
	g.status = StatusIdle
}

func (g *guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}
