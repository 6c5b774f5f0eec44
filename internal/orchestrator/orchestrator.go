// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"workflow-submit/internal/catalog"
	apperrors "workflow-submit/internal/common/errors"
	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/common/metrics"
	"workflow-submit/internal/common/observability"
	"workflow-submit/internal/parameter"
	"workflow-submit/internal/result"

	"github.com/google/uuid"
)

// Orchestrator drives one submission dialog. Calls are serialized by a
// mutex that is released only while a network call is in flight, so at most
// one submit pipeline runs at a time.
type Orchestrator struct {
	config   *Config
	policy   Policy
	catalog  Catalog
	notifier Notifier
	host     Host
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
	logger   logger.Logger

	mu    sync.Mutex
	state State

	// session changes on every Open and Cancel; results of calls started in
	// an older session are dropped. fetchGen also changes on every schema
	// fetch, so only the newest fetch may seed the store.
	session  uint64
	fetchGen uint64

	task      Task
	templates []catalog.Template
	selected  *catalog.Template
	schema    []parameter.Parameter
	values    parameter.Values

	// pending is the payload frozen by RequestSubmit for the current cycle.
	pending      *catalog.DispatchPayload
	submissionID string
	prompt       *Prompt
	busy         Busy
	lastOutcome  *result.Outcome

	// effects run after the lock is released.
	effects []func()
}

// New builds an orchestrator. obs may be nil.
func New(config *Config, cat Catalog, notifier Notifier, host Host, obs *observability.Observability, log logger.Logger) *Orchestrator {
	log = log.WithFields(map[string]interface{}{
		"component": "orchestrator",
	})
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	if host == nil {
		host = HostFunc(func() {})
	}
	return &Orchestrator{
		config:   config,
		policy:   Policy{SmallDatasetThreshold: config.SmallDatasetThreshold},
		catalog:  cat,
		notifier: notifier,
		host:     host,
		obs:      obs,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
		state:    StateReady,
	}
}

// Open resets the dialog for task, whatever its state, and lists the
// templates. A listing failure leaves the list empty and raises a notice.
func (o *Orchestrator) Open(ctx context.Context, task Task) error {
	if task.ID == "" {
		return ErrMissingTask
	}

	o.mu.Lock()
	o.reset()
	o.task = task
	o.busy.Templates = true
	session := o.session
	o.logger.Info("dialog opened", map[string]interface{}{"taskId": task.ID})
	o.unlock()

	templates, err := o.catalog.ListTemplates(ctx)

	o.mu.Lock()
	defer o.unlock()
	if session != o.session {
		return nil
	}
	o.busy.Templates = false
	if err != nil {
		o.errors.Handle("list-templates", err, map[string]interface{}{"taskId": task.ID})
		o.notify(LevelError, "Failed to fetch workflow templates", catalogMessage(err), "")
		o.templates = nil
		return nil
	}
	o.templates = templates
	return nil
}

// SelectTemplate loads the schema of a listed template and reseeds the
// store. An empty or unknown uid is a no-op returning ErrUnknownTemplate.
func (o *Orchestrator) SelectTemplate(ctx context.Context, uid string) error {
	o.mu.Lock()
	if uid == "" {
		o.unlock()
		return ErrUnknownTemplate
	}
	if err := o.guard(OpSelectTemplate); err != nil {
		o.unlock()
		return err
	}
	tpl, ok := o.findTemplate(uid)
	if !ok {
		o.unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, uid)
	}

	o.fetchGen++
	gen := o.fetchGen
	o.selected = &tpl
	o.busy.Schema = true
	o.setState(StateLoadingSchema)
	o.unlock()

	start := time.Now()
	params, err := o.catalog.GetSchema(ctx, tpl.UID, tpl.Version)
	o.obs.RecordStep(ctx, "schema", time.Since(start), err == nil)
	if err == nil {
		params = o.fillNodePools(ctx, params)
	}

	o.mu.Lock()
	defer o.unlock()
	if gen != o.fetchGen {
		o.logger.Debug("discarding stale schema", map[string]interface{}{"uid": tpl.UID})
		return nil
	}
	o.busy.Schema = false
	if err != nil {
		o.errors.Handle("get-schema", err, map[string]interface{}{"uid": tpl.UID, "version": tpl.Version})
		o.notify(LevelError, "Failed to load workflow parameters", catalogMessage(err), "")
		o.selected = nil
		o.schema = nil
		o.values = nil
		o.setState(StateReady)
		return nil
	}

	o.schema = params
	o.values = parameter.Seed(params)
	o.setState(StateReadyToSubmit)
	o.logger.Info("template selected", map[string]interface{}{
		"uid":        tpl.UID,
		"version":    tpl.Version,
		"parameters": len(params),
	})
	return nil
}

// ChangeParameter is the single entry point for edits. Unknown names are
// stored as well.
func (o *Orchestrator) ChangeParameter(event parameter.ChangeEvent) error {
	o.mu.Lock()
	defer o.unlock()
	if err := o.guard(OpChangeParameter); err != nil {
		return err
	}
	o.values = parameter.Apply(o.values, event)
	return nil
}

// SetParameter edits a visible parameter of the selected template by name.
func (o *Orchestrator) SetParameter(name, raw string, source any) error {
	o.mu.Lock()
	p, ok := o.visibleParameter(name)
	o.unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}

	event, err := parameter.NewChangeEvent(p, raw, source)
	if err != nil {
		return err
	}
	return o.ChangeParameter(event)
}

// RequestSubmit freezes the current values as the payload, fetches the
// pre-flight counts and either raises a prompt or dispatches. Calls while a
// submission is already running are rejected.
func (o *Orchestrator) RequestSubmit(ctx context.Context) error {
	o.mu.Lock()
	if err := o.guard(OpRequestSubmit); err != nil {
		o.unlock()
		return err
	}

	o.setState(StateConfirmingSubmit)
	o.pending = &catalog.DispatchPayload{
		WorkflowTemplate: o.selected.UID,
		Parameters:       o.values.Clone(),
	}
	o.submissionID = uuid.NewString()
	o.busy.Preflight = true
	session := o.session
	taskID := o.task.ID
	o.logger.Info("submission requested", map[string]interface{}{
		"submissionId": o.submissionID,
		"taskId":       taskID,
		"uid":          o.selected.UID,
	})
	o.unlock()

	start := time.Now()
	count, err := o.catalog.GetPreflightCount(ctx, taskID)
	o.obs.RecordStep(ctx, "preflight", time.Since(start), err == nil)

	o.mu.Lock()
	if session != o.session {
		o.unlock()
		return nil
	}
	o.busy.Preflight = false
	if err != nil {
		o.errors.Handle("get-object-counts", err, map[string]interface{}{"taskId": taskID})
		o.notify(LevelError, "Failed to check annotations", catalogMessage(err), "")
		o.pending = nil
		o.setState(StateReadyToSubmit)
		o.unlock()
		return nil
	}

	if prompt := o.policy.Decide(count); prompt != nil {
		o.prompt = prompt
		metrics.SubmissionPrompts.WithLabelValues(string(prompt.Reason)).Inc()
		o.logger.Info("confirmation required", map[string]interface{}{
			"submissionId": o.submissionID,
			"reason":       prompt.Reason,
			"shapes":       count.AnnotatedShapeCount,
		})
		o.unlock()
		return nil
	}

	o.dispatch(ctx)
	return nil
}

// ConfirmPrompt answers the pending prompt with confirm and dispatches.
func (o *Orchestrator) ConfirmPrompt(ctx context.Context) error {
	o.mu.Lock()
	if err := o.takePrompt(OpConfirmPrompt); err != nil {
		o.unlock()
		return err
	}
	o.dispatch(ctx)
	return nil
}

// CancelPrompt answers the pending prompt with cancel; the dialog is ready
// to submit again.
func (o *Orchestrator) CancelPrompt() error {
	o.mu.Lock()
	defer o.unlock()
	if err := o.takePrompt(OpCancelPrompt); err != nil {
		return err
	}
	o.pending = nil
	o.setState(StateReadyToSubmit)
	o.obs.RecordSubmission(context.Background(), "cancelled")
	return nil
}

// Cancel resets the dialog and asks the host to close it. It is rejected
// while a dispatch is in flight.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.unlock()
	if err := o.guard(OpCancel); err != nil {
		return err
	}
	if o.pending != nil {
		o.obs.RecordSubmission(context.Background(), "cancelled")
	}
	task := o.task
	o.reset()
	o.task = task
	o.setState(StateClosed)
	o.effects = append(o.effects, o.host.CloseDialog)
	o.logger.Info("dialog cancelled", map[string]interface{}{"taskId": task.ID})
	return nil
}

// Snapshot returns the render state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State:         o.state,
		Task:          o.task,
		Templates:     append([]catalog.Template(nil), o.templates...),
		Fields:        []Field{},
		Busy:          o.busy,
		SubmitEnabled: o.state == StateReadyToSubmit,
		CancelEnabled: o.state != StateDispatching && o.state != StateClosed,
		LastOutcome:   o.lastOutcome,
	}
	if o.selected != nil {
		selected := *o.selected
		snap.Selected = &selected
	}
	if o.prompt != nil {
		prompt := *o.prompt
		snap.Prompt = &prompt
	}
	for _, p := range parameter.Visible(o.schema) {
		val, _ := o.values.Get(p.Name)
		snap.Fields = append(snap.Fields, Field{Parameter: p, Value: val.String()})
	}
	return snap
}

// dispatch runs the execution call for the pending payload. It is entered
// with the lock held and releases it.
func (o *Orchestrator) dispatch(ctx context.Context) {
	if !o.setState(StateDispatching) || o.pending == nil {
		o.unlock()
		return
	}
	payload := *o.pending
	session := o.session
	taskID := o.task.ID
	submissionID := o.submissionID
	o.busy.Dispatch = true
	o.unlock()

	start := time.Now()
	res, err := o.catalog.Dispatch(ctx, taskID, payload)
	o.obs.RecordStep(ctx, "dispatch", time.Since(start), err == nil)
	outcome := result.Interpret(payload.WorkflowTemplate, res.URL, err)

	o.mu.Lock()
	defer o.unlock()

	fields := map[string]interface{}{
		"submissionId": submissionID,
		"taskId":       taskID,
		"uid":          payload.WorkflowTemplate,
	}

	if err != nil {
		metrics.SubmissionDispatches.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
		o.obs.RecordSubmission(ctx, "failed")
		o.errors.Handle("execute-workflow", err, fields)
		o.notify(LevelError, outcome.Failure.Title, outcome.Failure.Message, "")
	} else {
		metrics.SubmissionDispatches.WithLabelValues("success").Inc()
		o.obs.RecordSubmission(ctx, "dispatched")
		fields["url"] = res.URL
		o.logger.Info("workflow dispatched", fields)
		o.notify(LevelSuccess, outcome.Success.Title, outcome.Success.Body, outcome.Success.DetailURL)
	}

	if session != o.session {
		// The dialog was reopened meanwhile; the notice above is all that
		// remains of this cycle.
		return
	}

	o.busy.Dispatch = false
	o.pending = nil
	o.lastOutcome = &outcome
	if err != nil {
		o.setState(StateReadyToSubmit)
		return
	}

	task := o.task
	o.reset()
	o.task = task
	o.lastOutcome = &outcome
	o.setState(StateClosed)
	o.effects = append(o.effects, o.host.CloseDialog)
}

// fillNodePools gives select.nodepool parameters without options the
// backend node pool. Failures leave the parameters as they are.
func (o *Orchestrator) fillNodePools(ctx context.Context, params []parameter.Parameter) []parameter.Parameter {
	source, ok := o.catalog.(NodePoolSource)
	if !ok {
		return params
	}
	needed := false
	for _, p := range params {
		if p.Type == parameter.TypeNodePool && len(p.Options) == 0 {
			needed = true
			break
		}
	}
	if !needed {
		return params
	}

	pool, err := source.GetNodePool(ctx)
	if err != nil {
		o.logger.Warn("node pool unavailable", map[string]interface{}{"error": err.Error()})
		return params
	}

	out := make([]parameter.Parameter, len(params))
	copy(out, params)
	for i := range out {
		if out[i].Type != parameter.TypeNodePool || len(out[i].Options) > 0 {
			continue
		}
		out[i].Options = pool.Options
		if out[i].Hint == "" {
			out[i].Hint = pool.Hint
		}
		if out[i].DisplayName == "" {
			out[i].DisplayName = pool.DisplayName
		}
	}
	return out
}

// guard rejects op unless the current state allows it. Lock held.
func (o *Orchestrator) guard(op Operation) error {
	if canPerform(op, o.state) {
		return nil
	}
	metrics.SubmissionRejectedCalls.WithLabelValues(string(op), o.state.String()).Inc()
	o.logger.Debug("call rejected", map[string]interface{}{
		"operation": string(op),
		"state":     o.state.String(),
	})
	return &TransitionError{Op: op, State: o.state}
}

// takePrompt consumes the pending prompt. Lock held.
func (o *Orchestrator) takePrompt(op Operation) error {
	if err := o.guard(op); err != nil {
		return err
	}
	if o.prompt == nil {
		return ErrNoPrompt
	}
	o.prompt = nil
	return nil
}

// setState moves along an edge of the transition table. Illegal edges are
// refused and logged. Lock held.
func (o *Orchestrator) setState(to State) bool {
	from := o.state
	if from == to && to == StateReady {
		return true
	}
	if !canMove(from, to) {
		o.logger.Error("illegal state transition", map[string]interface{}{
			"from": from.String(),
			"to":   to.String(),
		})
		return false
	}
	o.state = to
	metrics.SubmissionTransitions.WithLabelValues(from.String(), to.String()).Inc()
	o.logger.Debug("state changed", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	return true
}

// reset drops all dialog state and invalidates in-flight calls. The state is
// forced to Ready. Lock held.
func (o *Orchestrator) reset() {
	from := o.state
	o.session++
	o.fetchGen++
	o.task = Task{}
	o.templates = nil
	o.selected = nil
	o.schema = nil
	o.values = nil
	o.pending = nil
	o.submissionID = ""
	o.prompt = nil
	o.busy = Busy{}
	o.lastOutcome = nil
	o.state = StateReady
	if from != StateReady {
		metrics.SubmissionTransitions.WithLabelValues(from.String(), StateReady.String()).Inc()
	}
}

func (o *Orchestrator) findTemplate(uid string) (catalog.Template, bool) {
	for _, tpl := range o.templates {
		if tpl.UID == uid {
			return tpl, true
		}
	}
	return catalog.Template{}, false
}

func (o *Orchestrator) visibleParameter(name string) (parameter.Parameter, bool) {
	for _, p := range o.schema {
		if p.Name == name && p.IsPublic() {
			return p, true
		}
	}
	return parameter.Parameter{}, false
}

// notify queues a notice for delivery after unlock. Lock held.
func (o *Orchestrator) notify(level Level, title, message, detailURL string) {
	n := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		DetailURL: detailURL,
		Timestamp: time.Now().UTC(),
	}
	o.effects = append(o.effects, func() { o.notifier.Notify(n) })
}

// unlock releases the lock and runs the queued effects.
func (o *Orchestrator) unlock() {
	effects := o.effects
	o.effects = nil
	o.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

// catalogMessage turns a read-path error into notice text.
func catalogMessage(err error) string {
	stdErr := apperrors.Normalize("catalog", err)
	switch stdErr.Code {
	case apperrors.ErrCodeTemplateNotFound:
		return fmt.Sprintf("Workflow template was not found (%s).", stdErr.Details)
	default:
		return fmt.Sprintf("The workflow service is unavailable (Error code: %s). Please try again later.", stdErr.Code)
	}
}
