// cmd/workflow-submit/submit.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/common/observability"
	"workflow-submit/internal/orchestrator"
)

type submitOptions struct {
	taskID   string
	taskName string
	template string
	params   []string
	yes      bool
}

type paramAssignment struct {
	name  string
	value string
}

// parseParams splits repeated name=value flags. The value may contain '='.
func parseParams(raw []string) ([]paramAssignment, error) {
	out := make([]paramAssignment, 0, len(raw))
	for _, item := range raw {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", item)
		}
		out = append(out, paramAssignment{name: name, value: value})
	}
	return out, nil
}

// console prints notices and records when the dialog was closed.
type console struct {
	out io.Writer

	mu     sync.Mutex
	closed bool
}

func (c *console) Notify(n orchestrator.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] %s: %s\n", n.Level, n.Title, n.Message)
	if n.DetailURL != "" {
		fmt.Fprintf(c.out, "  %s\n", n.DetailURL)
	}
}

func (c *console) CloseDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

type submitter struct {
	config  *orchestrator.Config
	catalog orchestrator.Catalog
	obs     *observability.Observability
	log     logger.Logger
	prompt  prompter
	out     io.Writer
}

// run drives one dialog from open to close for opts.
func (s *submitter) run(ctx context.Context, opts submitOptions) error {
	assignments, err := parseParams(opts.params)
	if err != nil {
		return err
	}

	con := &console{out: s.out}
	orch := orchestrator.New(s.config, s.catalog, con, con, s.obs, s.log)

	if err := orch.Open(ctx, orchestrator.Task{ID: opts.taskID, Name: opts.taskName}); err != nil {
		return err
	}
	snap := orch.Snapshot()
	if len(snap.Templates) == 0 {
		return errors.New("no workflow templates available")
	}

	uid := opts.template
	if uid == "" {
		labels := make([]string, len(snap.Templates))
		for i, tpl := range snap.Templates {
			labels[i] = fmt.Sprintf("%s (%s)", tpl.Name, tpl.UID)
		}
		idx, err := s.prompt.Select("Select a workflow template", labels)
		if err != nil {
			return err
		}
		uid = snap.Templates[idx].UID
	}

	if err := orch.SelectTemplate(ctx, uid); err != nil {
		return err
	}
	if orch.Snapshot().State != orchestrator.StateReadyToSubmit {
		return fmt.Errorf("could not load parameters of template %s", uid)
	}

	for _, a := range assignments {
		if err := orch.SetParameter(a.name, a.value, "cli"); err != nil {
			return fmt.Errorf("--param %s: %w", a.name, err)
		}
	}

	if err := orch.RequestSubmit(ctx); err != nil {
		return err
	}

	if p := orch.Snapshot().Prompt; p != nil {
		confirmed := opts.yes
		if !confirmed {
			confirmed, err = s.prompt.Confirm(p.Title, p.Message)
			if err != nil {
				return err
			}
		}
		if !confirmed {
			if err := orch.CancelPrompt(); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Submission cancelled.")
			return orch.Cancel()
		}
		if err := orch.ConfirmPrompt(ctx); err != nil {
			return err
		}
	}

	snap = orch.Snapshot()
	switch {
	case snap.LastOutcome != nil && snap.LastOutcome.Failure != nil:
		return errors.New(snap.LastOutcome.Failure.Message)
	case snap.State != orchestrator.StateClosed:
		return errors.New("submission did not complete")
	}
	return nil
}
