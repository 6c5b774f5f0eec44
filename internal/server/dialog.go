// internal/server/dialog.go
package server

import (
	"sync"

	"workflow-submit/internal/common/metrics"
	"workflow-submit/internal/orchestrator"
)

// dialog is one task's orchestrator plus the notices it raised since the
// last response. It is the orchestrator's Notifier and Host.
type dialog struct {
	orch  *orchestrator.Orchestrator
	evict func()

	mu      sync.Mutex
	notices []orchestrator.Notice
	open    bool
}

func (d *dialog) Notify(n orchestrator.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, n)
}

// CloseDialog drops the dialog from its server. The caller still holds d and
// answers the current request with its final snapshot.
func (d *dialog) CloseDialog() {
	d.mu.Lock()
	if d.open {
		d.open = false
		metrics.OpenDialogs.Dec()
	}
	d.mu.Unlock()

	if d.evict != nil {
		d.evict()
	}
}

func (d *dialog) markOpen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		d.open = true
		metrics.OpenDialogs.Inc()
	}
}

// drain hands out the pending notices once.
func (d *dialog) drain() []orchestrator.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	notices := d.notices
	d.notices = nil
	if notices == nil {
		notices = []orchestrator.Notice{}
	}
	return notices
}

type dialogResponse struct {
	Dialog  orchestrator.Snapshot `json:"dialog"`
	Notices []orchestrator.Notice `json:"notices"`
}

func (d *dialog) response() dialogResponse {
	return dialogResponse{
		Dialog:  d.orch.Snapshot(),
		Notices: d.drain(),
	}
}
