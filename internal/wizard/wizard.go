// Package wizard drives the citizen-facing procedure workflow: a linear
// SELECT → UPLOAD → FORM → PAY → DONE flow whose per-step state lives in the
// session store so any step survives a reload and can be resumed.
package wizard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"tramite-portal/internal/common/auth"
	"tramite-portal/internal/common/config"
	apperrors "tramite-portal/internal/common/errors"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/common/metrics"
	"tramite-portal/internal/common/validation"
	"tramite-portal/internal/models"
	"tramite-portal/internal/session"
	"tramite-portal/internal/status"
)

// Backend is the slice of the municipal backend client the wizard drives.
type Backend interface {
	ListProcedures(ctx context.Context, token string) ([]models.Procedure, error)
	GetRequisitos(ctx context.Context, token string, procedureID int64) ([]models.Requirement, error)
	CreateApplication(ctx context.Context, token string, userID, procedureID int64) (*models.Application, error)
	UploadFile(ctx context.Context, token string, applicationID, requirementID int64, fileName, contentType string, content io.Reader) (*models.UploadedFile, error)
	DeleteFile(ctx context.Context, token string, applicationID, fileID int64) error
	SaveForm(ctx context.Context, token string, applicationID int64, fields []models.FormField) error
	Submit(ctx context.Context, token string, applicationID int64) error
	Pay(ctx context.Context, token string, applicationID int64, payment models.Payment) error
	GetSummary(ctx context.Context, token string, applicationID int64) (*models.BackendSummary, error)
}

// Auditor records workflow events. Failures are logged, never surfaced.
type Auditor interface {
	Record(ctx context.Context, scope string, applicationID int64, event, details string) error
}

// CompletionHook runs after a workflow reaches its confirmation step.
type CompletionHook interface {
	OnCompleted(ctx context.Context, summary *models.Summary)
}

// Wizard is the workflow engine. One instance serves all scopes; per-scope
// in-flight guards live in memory and reset on restart, which only means a
// duplicate guard is lost, never workflow state.
type Wizard struct {
	store   session.Store
	backend Backend
	upload  config.UploadConfig
	logger  logger.Logger
	audit   Auditor
	hooks   []CompletionHook

	mu       sync.Mutex
	runtimes map[string]*workflowRuntime
}

// workflowRuntime holds the transient per-scope guards: which step has a
// request in flight and which requirement is currently uploading.
type workflowRuntime struct {
	mu        sync.Mutex
	busy      map[Step]bool
	uploading int64
}

func New(store session.Store, backend Backend, upload config.UploadConfig, log logger.Logger) *Wizard {
	return &Wizard{
		store:    store,
		backend:  backend,
		upload:   upload,
		logger:   log.WithFields(map[string]interface{}{"component": "wizard"}),
		runtimes: make(map[string]*workflowRuntime),
	}
}

// SetAuditor wires the persistent event log. Optional.
func (w *Wizard) SetAuditor(a Auditor) { w.audit = a }

// AddCompletionHook registers a post-completion side effect (receipt
// notification, search indexing). Hooks run synchronously in order.
func (w *Wizard) AddCompletionHook(h CompletionHook) { w.hooks = append(w.hooks, h) }

func (w *Wizard) runtime(scope string) *workflowRuntime {
	w.mu.Lock()
	defer w.mu.Unlock()
	rt, ok := w.runtimes[scope]
	if !ok {
		rt = &workflowRuntime{busy: make(map[Step]bool)}
		w.runtimes[scope] = rt
	}
	return rt
}

// beginStep marks a step in flight, rejecting duplicates while one is active.
func (rt *workflowRuntime) beginStep(step Step) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.busy[step] {
		return apperrors.NewStepBusyError(string(step))
	}
	rt.busy[step] = true
	return nil
}

func (rt *workflowRuntime) endStep(step Step) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.busy, step)
}

// State returns the current workflow snapshot for a scope.
func (w *Wizard) State(ctx context.Context, scope string) (*State, error) {
	return w.loadState(ctx, scope)
}

// Procedures lists the selectable catalog. Pure relay, no state change.
func (w *Wizard) Procedures(ctx context.Context, token string) ([]models.Procedure, error) {
	return w.backend.ListProcedures(ctx, token)
}

// Select starts a new workflow for the chosen procedure. Any previous cached
// workflow for the scope is discarded first, so an abandoned run never leaks
// into a new one.
func (w *Wizard) Select(ctx context.Context, scope, token string, procedureID int64) (*State, error) {
	procedures, err := w.backend.ListProcedures(ctx, token)
	if err != nil {
		metrics.WizardStepsTotal.WithLabelValues(string(StepSelect), "error").Inc()
		return nil, err
	}

	var selected *models.Procedure
	for i := range procedures {
		if procedures[i].ID == procedureID {
			selected = &procedures[i]
			break
		}
	}
	if selected == nil {
		metrics.WizardStepsTotal.WithLabelValues(string(StepSelect), "rejected").Inc()
		return nil, apperrors.NewFormFieldInvalidError("procedureId",
			fmt.Sprintf("unknown procedure %d", procedureID))
	}

	if err := w.store.Clear(ctx, scope, clearedOnFinish...); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	if err := w.store.Save(ctx, scope, session.KeySelectedTramite, selected); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	if err := w.store.Save(ctx, scope, session.KeyTramiteCost, selected.Cost); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	if err := w.saveStep(ctx, scope, StepUpload); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}

	metrics.WizardStepsTotal.WithLabelValues(string(StepSelect), "ok").Inc()
	w.record(ctx, scope, 0, "procedure_selected", selected.Name)
	return w.loadState(ctx, scope)
}

// StartUpload enters the upload step. The application is created at most
// once per workflow: a cached id is reused, only a cache miss triggers the
// backend create. Requisitos are fetched and cached alongside.
func (w *Wizard) StartUpload(ctx context.Context, scope, token string) (*State, error) {
	rt := w.runtime(scope)
	if err := rt.beginStep(StepUpload); err != nil {
		return nil, err
	}
	defer rt.endStep(StepUpload)

	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.Procedure == nil {
		return nil, apperrors.NewWorkflowMissingError(string(StepUpload))
	}

	claims, err := auth.DecodeClaims(token)
	if err != nil {
		return nil, err
	}

	if state.ApplicationID == 0 {
		if claims.UserID == 0 {
			return nil, apperrors.NewTokenInvalidError("token has no user id")
		}
		app, err := w.backend.CreateApplication(ctx, token, claims.UserID, state.Procedure.ID)
		if err != nil {
			metrics.WizardStepsTotal.WithLabelValues(string(StepUpload), "error").Inc()
			return nil, err
		}
		state.ApplicationID = app.ID
		if err := w.store.Save(ctx, scope, session.KeyApplicationID, app.ID); err != nil {
			return nil, apperrors.NewSessionStoreFailedError(err)
		}
		w.record(ctx, scope, app.ID, "application_created", state.Procedure.Name)
	}

	if len(state.Requisitos) == 0 {
		requisitos, err := w.backend.GetRequisitos(ctx, token, state.Procedure.ID)
		if err != nil {
			metrics.WizardStepsTotal.WithLabelValues(string(StepUpload), "error").Inc()
			return nil, err
		}
		state.Requisitos = requisitos
		if err := w.store.Save(ctx, scope, session.KeyCurrentRequisitos, requisitos); err != nil {
			return nil, apperrors.NewSessionStoreFailedError(err)
		}
	}

	metrics.WizardStepsTotal.WithLabelValues(string(StepUpload), "ok").Inc()
	return state, nil
}

// ContinueToForm advances past the upload step. Blocked while an upload is
// still in flight and until every declared requirement has a completed upload.
func (w *Wizard) ContinueToForm(ctx context.Context, scope string) (*State, error) {
	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.ApplicationID == 0 {
		return nil, apperrors.NewApplicationMissingError()
	}
	if uploading := w.runtime(scope).currentUpload(); uploading != 0 {
		metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "rejected").Inc()
		return nil, apperrors.NewUploadInFlightError(uploading)
	}
	if !state.UploadsComplete() {
		metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "rejected").Inc()
		return nil, apperrors.NewRequirementsPendingError(state.PendingRequirements())
	}

	if err := w.saveStep(ctx, scope, StepForm); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	state.Step = StepForm
	metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "ok").Inc()
	return state, nil
}

// SetFormField stores one draft field locally. Numeric fields are sanitized
// to digits plus at most one decimal point before caching, so the draft never
// holds a value the backend would reject.
func (w *Wizard) SetFormField(ctx context.Context, scope, field, value string, numeric bool) (*State, error) {
	if strings.TrimSpace(field) == "" {
		return nil, apperrors.NewFormFieldInvalidError("field", "empty field name")
	}

	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if numeric {
		value = SanitizeDecimal(value)
	}
	state.FormDraft[field] = value
	if err := w.store.Save(ctx, scope, session.KeyTramiteFormData, state.FormDraft); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	return state, nil
}

// SubmitForm sends the drafted fields and submits the application. The draft
// is cleared and the step advances only when both backend calls succeed; a
// failure in either leaves the draft cached for retry.
func (w *Wizard) SubmitForm(ctx context.Context, scope, token string) (*State, error) {
	rt := w.runtime(scope)
	if err := rt.beginStep(StepForm); err != nil {
		return nil, err
	}
	defer rt.endStep(StepForm)

	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.ApplicationID == 0 {
		return nil, apperrors.NewApplicationMissingError()
	}
	if len(state.FormDraft) == 0 {
		metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "rejected").Inc()
		return nil, apperrors.NewFormFieldInvalidError("fields", "no drafted fields")
	}

	fields := make([]models.FormField, 0, len(state.FormDraft))
	for field, value := range state.FormDraft {
		fields = append(fields, models.FormField{Field: field, Value: value})
	}

	doc := map[string]interface{}{"fields": fields}
	if result := validation.ValidateFormFields(doc); !result.Valid {
		metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "rejected").Inc()
		first := result.Errors[0]
		return nil, apperrors.NewFormFieldInvalidError(first.Field, first.Message)
	}

	if err := w.backend.SaveForm(ctx, token, state.ApplicationID, fields); err != nil {
		metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "error").Inc()
		return nil, err
	}
	if err := w.backend.Submit(ctx, token, state.ApplicationID); err != nil {
		metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "error").Inc()
		return nil, err
	}

	if err := w.store.Clear(ctx, scope, session.KeyTramiteFormData); err != nil {
		w.logger.WithError(err).Warn("failed to clear form draft", map[string]interface{}{
			"scope": scope,
		})
	}
	if err := w.saveStep(ctx, scope, StepPay); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}

	state.FormDraft = map[string]string{}
	state.Step = StepPay
	metrics.WizardStepsTotal.WithLabelValues(string(StepForm), "ok").Inc()
	w.record(ctx, scope, state.ApplicationID, "form_submitted", fmt.Sprintf("%d fields", len(fields)))
	return state, nil
}

// paymentMethods maps the portal's localized method names onto the backend
// vocabulary.
var paymentMethods = map[string]string{
	"tarjeta":       "card",
	"card":          "card",
	"transferencia": "transfer",
	"transfer":      "transfer",
	"efectivo":      "cash",
	"cash":          "cash",
}

// SelectPaymentMethod caches the chosen method so the pay step survives a
// reload.
func (w *Wizard) SelectPaymentMethod(ctx context.Context, scope, method string) (*State, error) {
	canonical, ok := paymentMethods[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		return nil, apperrors.NewFormFieldInvalidError("method",
			fmt.Sprintf("unknown payment method %q", method))
	}

	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	state.PaymentMethod = canonical
	if err := w.store.Save(ctx, scope, session.KeyPaymentMethod, canonical); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	return state, nil
}

// Pay charges the cached cost with the cached method and advances to the
// confirmation step. Duplicate submissions while one is in flight are
// rejected, not queued.
func (w *Wizard) Pay(ctx context.Context, scope, token string) (*State, error) {
	rt := w.runtime(scope)
	if err := rt.beginStep(StepPay); err != nil {
		return nil, err
	}
	defer rt.endStep(StepPay)

	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.ApplicationID == 0 {
		return nil, apperrors.NewApplicationMissingError()
	}
	if state.PaymentMethod == "" {
		metrics.WizardStepsTotal.WithLabelValues(string(StepPay), "rejected").Inc()
		return nil, apperrors.NewFormFieldInvalidError("method", "no payment method selected")
	}

	payment := models.Payment{Amount: state.Cost, Method: state.PaymentMethod}
	doc := map[string]interface{}{"amount": payment.Amount, "method": payment.Method}
	if result := validation.ValidatePayment(doc); !result.Valid {
		metrics.WizardStepsTotal.WithLabelValues(string(StepPay), "rejected").Inc()
		first := result.Errors[0]
		return nil, apperrors.NewFormFieldInvalidError(first.Field, first.Message)
	}

	if err := w.backend.Pay(ctx, token, state.ApplicationID, payment); err != nil {
		metrics.WizardStepsTotal.WithLabelValues(string(StepPay), "error").Inc()
		return nil, err
	}

	if err := w.saveStep(ctx, scope, StepDone); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}
	state.Step = StepDone
	metrics.WizardStepsTotal.WithLabelValues(string(StepPay), "ok").Inc()
	w.record(ctx, scope, state.ApplicationID,
		"payment_made", fmt.Sprintf("%s %.2f", payment.Method, payment.Amount))
	return state, nil
}

// Summary builds the confirmation view. The backend summary is preferred;
// when that call fails the view is rebuilt from cached values, flagged Local,
// with a synthesized application number and the registration status.
func (w *Wizard) Summary(ctx context.Context, scope, token string) (*models.Summary, error) {
	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.ApplicationID == 0 {
		return nil, apperrors.NewApplicationMissingError()
	}

	claims, _ := auth.DecodeClaims(token)

	remote, err := w.backend.GetSummary(ctx, token, state.ApplicationID)
	if err != nil {
		w.logger.WithError(err).Warn("summary unavailable, using cached values", map[string]interface{}{
			"applicationId": state.ApplicationID,
		})
		summary := w.localSummary(state, claims)
		w.notifyCompletion(ctx, scope, summary)
		return summary, nil
	}

	parsed, err := status.Parse(remote.Application.Status)
	if err != nil {
		return nil, err
	}

	summary := &models.Summary{
		ApplicationNumber: remote.Application.Code,
		ProcedureName:     remote.Application.Procedure,
		CreatedAt:         remote.Application.Date,
		Cost:              remote.Pay.Amount,
		Status:            string(parsed),
		FormData:          remote.Form,
	}
	if claims != nil {
		summary.UserEmail = claims.Email
		summary.UserPhone = claims.Phone
	}
	w.notifyCompletion(ctx, scope, summary)
	return summary, nil
}

func (w *Wizard) localSummary(state *State, claims *auth.Claims) *models.Summary {
	summary := &models.Summary{
		ApplicationNumber: fmt.Sprintf("TR-%06d", state.ApplicationID),
		Cost:              state.Cost,
		Status:            "REGISTRADO",
		Local:             true,
	}
	if state.Procedure != nil {
		summary.ProcedureName = state.Procedure.Name
	}
	for field, value := range state.FormDraft {
		summary.FormData = append(summary.FormData, models.FormField{Field: field, Value: value})
	}
	if claims != nil {
		summary.UserEmail = claims.Email
		summary.UserPhone = claims.Phone
	}
	return summary
}

// notifyCompletion runs the completion hooks at most once per workflow. The
// flag lives in the session store, so reloading the confirmation view does not
// resend receipts or reindex.
func (w *Wizard) notifyCompletion(ctx context.Context, scope string, summary *models.Summary) {
	if len(w.hooks) == 0 {
		return
	}

	var notified bool
	ok, err := w.store.Load(ctx, scope, session.KeyCompletionNotified, &notified)
	if err != nil {
		w.logger.WithError(err).Warn("completion flag unavailable, skipping hooks", map[string]interface{}{
			"scope": scope,
		})
		return
	}
	if ok && notified {
		return
	}

	for _, hook := range w.hooks {
		hook.OnCompleted(ctx, summary)
	}

	if err := w.store.Save(ctx, scope, session.KeyCompletionNotified, true); err != nil {
		w.logger.WithError(err).Warn("failed to persist completion flag", map[string]interface{}{
			"scope": scope,
		})
	}
}

// Finish leaves the confirmation step and clears the cached workflow so the
// next selection starts clean.
func (w *Wizard) Finish(ctx context.Context, scope string) error {
	state, err := w.loadState(ctx, scope)
	if err == nil && state.ApplicationID != 0 {
		w.record(ctx, scope, state.ApplicationID, "workflow_finished", "")
	}

	if err := w.store.Clear(ctx, scope, clearedOnFinish...); err != nil {
		return apperrors.NewSessionStoreFailedError(err)
	}
	metrics.WizardStepsTotal.WithLabelValues(string(StepDone), "ok").Inc()
	return nil
}

func (w *Wizard) record(ctx context.Context, scope string, applicationID int64, event, details string) {
	if w.audit == nil {
		return
	}
	if err := w.audit.Record(ctx, scope, applicationID, event, details); err != nil {
		w.logger.WithError(err).Warn("audit write failed", map[string]interface{}{
			"event": event,
			"scope": scope,
		})
	}
}
