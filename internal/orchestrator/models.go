// internal/orchestrator/models.go
package orchestrator

import (
	"context"
	"time"

	"workflow-submit/internal/catalog"
	"workflow-submit/internal/parameter"
	"workflow-submit/internal/result"
)

// Catalog is what the orchestrator needs from the template backend.
type Catalog interface {
	ListTemplates(ctx context.Context) ([]catalog.Template, error)
	GetSchema(ctx context.Context, uid, version string) ([]parameter.Parameter, error)
	GetPreflightCount(ctx context.Context, taskID string) (catalog.PreflightCount, error)
	Dispatch(ctx context.Context, taskID string, payload catalog.DispatchPayload) (catalog.DispatchResult, error)
}

// NodePoolSource is implemented by catalogs that can fill select.nodepool
// parameters shipped without options.
type NodePoolSource interface {
	GetNodePool(ctx context.Context) (catalog.NodePool, error)
}

// Task is the unit of work a dialog submits for.
type Task struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-visible message.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	DetailURL string    `json:"detailUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier presents notices. It is called without the dialog lock held.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Host owns the dialog window. It is called without the dialog lock held.
type Host interface {
	CloseDialog()
}

// HostFunc adapts a function to Host.
type HostFunc func()

func (f HostFunc) CloseDialog() { f() }

// Field is one rendered parameter with its current value.
type Field struct {
	Parameter parameter.Parameter `json:"parameter"`
	Value     string              `json:"value"`
}

// Busy reports which network calls are in flight.
type Busy struct {
	Templates bool `json:"templates"`
	Schema    bool `json:"schema"`
	Preflight bool `json:"preflight"`
	Dispatch  bool `json:"dispatch"`
}

// Snapshot is everything a host needs to render the dialog.
type Snapshot struct {
	State         State              `json:"state"`
	Task          Task               `json:"task"`
	Templates     []catalog.Template `json:"templates"`
	Selected      *catalog.Template  `json:"selected,omitempty"`
	Fields        []Field            `json:"fields"`
	Busy          Busy               `json:"busy"`
	SubmitEnabled bool               `json:"submitEnabled"`
	CancelEnabled bool               `json:"cancelEnabled"`
	Prompt        *Prompt            `json:"prompt,omitempty"`
	LastOutcome   *result.Outcome    `json:"lastOutcome,omitempty"`
}
