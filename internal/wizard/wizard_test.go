package wizard

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tramite-portal/internal/common/config"
	apperrors "tramite-portal/internal/common/errors"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/models"
	"tramite-portal/internal/session"
)

// testToken carries userId 42 and email vecino@example.com, no signature
// verification needed. Generated with alg=none-style HS256 header; only the
// payload is read.
const testToken = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
	"eyJ1c2VySWQiOjQyLCJlbWFpbCI6InZlY2lub0BleGFtcGxlLmNvbSIsImV4cCI6NDg5MzQ1NjAwMH0." +
	"c2ln"

type fakeBackend struct {
	mu sync.Mutex

	procedures []models.Procedure
	requisitos map[int64][]models.Requirement

	createCalls int
	uploadCalls int
	deleteCalls int

	uploadErr  error
	deleteErr  error
	formErr    error
	submitErr  error
	payErr     error
	summary    *models.BackendSummary
	summaryErr error

	lastFields  []models.FormField
	lastPayment models.Payment

	uploadGate chan struct{}
	nextFileID int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		procedures: []models.Procedure{
			{ID: 7, Name: "Licencia de Construcción", Cost: 25.50},
			{ID: 9, Name: "Certificado de Residencia", Cost: 5.00},
		},
		requisitos: map[int64][]models.Requirement{
			7: {
				{ID: 1, Name: "Plano de ubicación", FormatID: 11},
				{ID: 2, Name: "Título de propiedad"},
			},
			9: {{ID: 3, Name: "Recibo de servicios"}},
		},
		nextFileID: 500,
	}
}

func (f *fakeBackend) ListProcedures(ctx context.Context, token string) ([]models.Procedure, error) {
	return f.procedures, nil
}

func (f *fakeBackend) GetRequisitos(ctx context.Context, token string, procedureID int64) ([]models.Requirement, error) {
	return f.requisitos[procedureID], nil
}

func (f *fakeBackend) CreateApplication(ctx context.Context, token string, userID, procedureID int64) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return &models.Application{ID: 101, ProcedureID: procedureID, UserID: userID, Status: "DRAFT"}, nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, token string, applicationID, requirementID int64, fileName, contentType string, content io.Reader) (*models.UploadedFile, error) {
	f.mu.Lock()
	f.uploadCalls++
	gate := f.uploadGate
	uploadErr := f.uploadErr
	f.nextFileID++
	fileID := f.nextFileID
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if uploadErr != nil {
		return nil, uploadErr
	}
	return &models.UploadedFile{ID: fileID, RequirementID: requirementID, ApplicationID: applicationID}, nil
}

func (f *fakeBackend) DeleteFile(ctx context.Context, token string, applicationID, fileID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeBackend) SaveForm(ctx context.Context, token string, applicationID int64, fields []models.FormField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formErr != nil {
		return f.formErr
	}
	f.lastFields = fields
	return nil
}

func (f *fakeBackend) Submit(ctx context.Context, token string, applicationID int64) error {
	return f.submitErr
}

func (f *fakeBackend) Pay(ctx context.Context, token string, applicationID int64, payment models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil {
		return f.payErr
	}
	f.lastPayment = payment
	return nil
}

func (f *fakeBackend) GetSummary(ctx context.Context, token string, applicationID int64) (*models.BackendSummary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

func newTestWizard(t *testing.T, backend Backend) (*Wizard, session.Store) {
	t.Helper()
	store := session.NewMemoryStore(logger.NewTestLogger(t))
	w := New(store, backend, config.UploadConfig{
		MaxSizeBytes: 10 * 1024 * 1024,
		ContentType:  "application/pdf",
	}, logger.NewTestLogger(t))
	return w, store
}

func pdfReader() io.Reader {
	return strings.NewReader("%PDF-1.4 test")
}

func TestSelectCachesProcedureAndCost(t *testing.T) {
	w, store := newTestWizard(t, newFakeBackend())
	ctx := context.Background()

	state, err := w.Select(ctx, "u42", testToken, 7)
	assert.NoError(t, err)
	assert.Equal(t, StepUpload, state.Step)
	assert.Equal(t, "Licencia de Construcción", state.Procedure.Name)
	assert.Equal(t, 25.50, state.Cost)

	var cost float64
	ok, err := store.Load(ctx, "u42", session.KeyTramiteCost, &cost)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 25.50, cost)
}

func TestSelectUnknownProcedureRejected(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())

	_, err := w.Select(context.Background(), "u42", testToken, 999)
	assert.Equal(t, apperrors.ErrCodeFormFieldInvalid, apperrors.CodeOf(err))
}

func TestSelectDiscardsPreviousWorkflow(t *testing.T) {
	w, store := newTestWizard(t, newFakeBackend())
	ctx := context.Background()

	_, err := w.Select(ctx, "u42", testToken, 7)
	assert.NoError(t, err)
	_, err = w.StartUpload(ctx, "u42", testToken)
	assert.NoError(t, err)

	state, err := w.Select(ctx, "u42", testToken, 9)
	assert.NoError(t, err)
	assert.Zero(t, state.ApplicationID)
	assert.Empty(t, state.Requisitos)

	var appID int64
	ok, err := store.Load(ctx, "u42", session.KeyApplicationID, &appID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStartUploadCreatesApplicationOnce(t *testing.T) {
	backend := newFakeBackend()
	w, _ := newTestWizard(t, backend)
	ctx := context.Background()

	_, err := w.Select(ctx, "u42", testToken, 7)
	assert.NoError(t, err)

	state, err := w.StartUpload(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, int64(101), state.ApplicationID)
	assert.Len(t, state.Requisitos, 2)

	// Re-entering the step reuses the cached id.
	state, err = w.StartUpload(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, int64(101), state.ApplicationID)
	assert.Equal(t, 1, backend.createCalls)
}

func TestStartUploadWithoutSelectionFails(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())

	_, err := w.StartUpload(context.Background(), "u42", testToken)
	assert.Equal(t, apperrors.ErrCodeWorkflowMissing, apperrors.CodeOf(err))
}

func startedWorkflow(t *testing.T, w *Wizard, scope string) {
	t.Helper()
	ctx := context.Background()
	_, err := w.Select(ctx, scope, testToken, 7)
	assert.NoError(t, err)
	_, err = w.StartUpload(ctx, scope, testToken)
	assert.NoError(t, err)
}

func TestUploadRejectsNonPDFBeforeBackendCall(t *testing.T) {
	backend := newFakeBackend()
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")

	_, err := w.Upload(context.Background(), "u42", testToken, 1,
		"plano.docx", "application/msword", 1024, strings.NewReader("doc"))
	assert.Equal(t, apperrors.ErrCodeFileTypeInvalid, apperrors.CodeOf(err))
	assert.Zero(t, backend.uploadCalls)
}

func TestUploadRejectsOversizeBeforeBackendCall(t *testing.T) {
	backend := newFakeBackend()
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")

	_, err := w.Upload(context.Background(), "u42", testToken, 1,
		"plano.pdf", "application/pdf", 10*1024*1024+1, pdfReader())
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, apperrors.CodeOf(err))
	assert.Zero(t, backend.uploadCalls)
}

func TestUploadAtExactLimitAccepted(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")

	state, err := w.Upload(context.Background(), "u42", testToken, 1,
		"plano.pdf", "application/pdf", 10*1024*1024, pdfReader())
	assert.NoError(t, err)
	assert.True(t, state.UploadProgress[1])
}

func TestUploadMarksProgressAndStoresFileID(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")

	state, err := w.Upload(context.Background(), "u42", testToken, 1,
		"plano.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)
	assert.True(t, state.UploadProgress[1])
	assert.NotZero(t, state.UploadedFileIDs[1])
	assert.False(t, state.UploadsComplete())
}

func TestUploadFailureLeavesNoProgress(t *testing.T) {
	backend := newFakeBackend()
	backend.uploadErr = apperrors.NewBackendRejectedError(500, "storage down")
	w, store := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	_, err := w.Upload(ctx, "u42", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
	assert.Equal(t, apperrors.ErrCodeBackendRejected, apperrors.CodeOf(err))

	state, err := w.State(ctx, "u42")
	assert.NoError(t, err)
	assert.False(t, state.UploadProgress[1])
	assert.NotContains(t, state.UploadedFileIDs, int64(1))

	progress := map[int64]bool{}
	ok, err := store.Load(ctx, "u42", session.KeyUploadProgress, &progress)
	assert.NoError(t, err)
	assert.False(t, ok && progress[1])
}

// An upload that is still with the backend must not count as done: neither
// the progress map nor the continue transition may observe it.
func TestContinueToFormRejectedWhileUploadInFlight(t *testing.T) {
	backend := newFakeBackend()
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	_, err := w.Upload(ctx, "u42", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)

	backend.mu.Lock()
	backend.uploadGate = make(chan struct{})
	backend.mu.Unlock()

	secondDone := make(chan error, 1)
	go func() {
		_, err := w.Upload(ctx, "u42", testToken, 2, "titulo.pdf", "application/pdf", 1024, pdfReader())
		secondDone <- err
	}()

	for {
		backend.mu.Lock()
		started := backend.uploadCalls > 1
		backend.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	_, err = w.ContinueToForm(ctx, "u42")
	assert.Equal(t, apperrors.ErrCodeUploadInFlight, apperrors.CodeOf(err))

	state, err := w.State(ctx, "u42")
	assert.NoError(t, err)
	assert.False(t, state.UploadProgress[2])
	assert.False(t, state.UploadsComplete())

	close(backend.uploadGate)
	assert.NoError(t, <-secondDone)

	state, err = w.ContinueToForm(ctx, "u42")
	assert.NoError(t, err)
	assert.Equal(t, StepForm, state.Step)
}

func TestConcurrentUploadRejectedNotQueued(t *testing.T) {
	backend := newFakeBackend()
	backend.uploadGate = make(chan struct{})
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := w.Upload(ctx, "u42", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
		firstDone <- err
	}()

	// Wait for the first upload to reach the backend.
	for {
		backend.mu.Lock()
		started := backend.uploadCalls > 0
		backend.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	_, err := w.Upload(ctx, "u42", testToken, 2, "titulo.pdf", "application/pdf", 1024, pdfReader())
	assert.Equal(t, apperrors.ErrCodeUploadInFlight, apperrors.CodeOf(err))

	close(backend.uploadGate)
	assert.NoError(t, <-firstDone)

	// The rejected selection left no trace; only requirement 1 is uploaded.
	state, err := w.State(ctx, "u42")
	assert.NoError(t, err)
	assert.True(t, state.UploadProgress[1])
	assert.False(t, state.UploadProgress[2])
	assert.Equal(t, 1, backend.uploadCalls)
}

func TestUploadsOnDifferentScopesDoNotBlockEachOther(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")
	startedWorkflow(t, w, "u43")
	ctx := context.Background()

	_, err := w.Upload(ctx, "u42", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)
	_, err = w.Upload(ctx, "u43", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)
}

func TestDeleteUploadClearsLocalStateEvenWhenBackendFails(t *testing.T) {
	backend := newFakeBackend()
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	_, err := w.Upload(ctx, "u42", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)

	backend.deleteErr = apperrors.NewBackendUnreachableError(io.ErrUnexpectedEOF)
	state, err := w.DeleteUpload(ctx, "u42", testToken, 1)
	assert.NoError(t, err)
	assert.False(t, state.UploadProgress[1])
	assert.NotContains(t, state.UploadedFileIDs, int64(1))
	assert.Equal(t, 1, backend.deleteCalls)
}

func TestContinueToFormBlockedUntilAllRequirementsUploaded(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	_, err := w.Upload(ctx, "u42", testToken, 1, "plano.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)

	_, err = w.ContinueToForm(ctx, "u42")
	assert.Equal(t, apperrors.ErrCodeRequirementsPending, apperrors.CodeOf(err))

	_, err = w.Upload(ctx, "u42", testToken, 2, "titulo.pdf", "application/pdf", 1024, pdfReader())
	assert.NoError(t, err)

	state, err := w.ContinueToForm(ctx, "u42")
	assert.NoError(t, err)
	assert.Equal(t, StepForm, state.Step)
}

func TestSetFormFieldSanitizesNumericValues(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	state, err := w.SetFormField(ctx, "u42", "area_m2", "12a.b3.4", true)
	assert.NoError(t, err)
	assert.Equal(t, "12.34", state.FormDraft["area_m2"])

	state, err = w.SetFormField(ctx, "u42", "direccion_propiedad", "Av. Los Pinos 123", false)
	assert.NoError(t, err)
	assert.Equal(t, "Av. Los Pinos 123", state.FormDraft["direccion_propiedad"])
}

func uploadAll(t *testing.T, w *Wizard, scope string) {
	t.Helper()
	ctx := context.Background()
	for _, reqID := range []int64{1, 2} {
		_, err := w.Upload(ctx, scope, testToken, reqID, "doc.pdf", "application/pdf", 1024, pdfReader())
		assert.NoError(t, err)
	}
	_, err := w.ContinueToForm(ctx, scope)
	assert.NoError(t, err)
}

func TestSubmitFormClearsDraftOnlyWhenBothCallsSucceed(t *testing.T) {
	backend := newFakeBackend()
	w, store := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")
	uploadAll(t, w, "u42")
	ctx := context.Background()

	_, err := w.SetFormField(ctx, "u42", "direccion_propiedad", "Av. Los Pinos 123", false)
	assert.NoError(t, err)

	backend.submitErr = apperrors.NewBackendRejectedError(500, "submit failed")
	_, err = w.SubmitForm(ctx, "u42", testToken)
	assert.Equal(t, apperrors.ErrCodeBackendRejected, apperrors.CodeOf(err))

	// Draft survives the failed submit.
	draft := map[string]string{}
	ok, err := store.Load(ctx, "u42", session.KeyTramiteFormData, &draft)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Av. Los Pinos 123", draft["direccion_propiedad"])

	backend.submitErr = nil
	state, err := w.SubmitForm(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, StepPay, state.Step)
	assert.Empty(t, state.FormDraft)

	ok, err = store.Load(ctx, "u42", session.KeyTramiteFormData, &draft)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitFormWithoutDraftRejected(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")
	uploadAll(t, w, "u42")

	_, err := w.SubmitForm(context.Background(), "u42", testToken)
	assert.Equal(t, apperrors.ErrCodeFormFieldInvalid, apperrors.CodeOf(err))
}

func TestSelectPaymentMethodMapsLocalizedNames(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	state, err := w.SelectPaymentMethod(ctx, "u42", "Tarjeta")
	assert.NoError(t, err)
	assert.Equal(t, "card", state.PaymentMethod)

	_, err = w.SelectPaymentMethod(ctx, "u42", "bitcoin")
	assert.Equal(t, apperrors.ErrCodeFormFieldInvalid, apperrors.CodeOf(err))
}

func TestPayUsesCachedCostAndMethod(t *testing.T) {
	backend := newFakeBackend()
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	_, err := w.SelectPaymentMethod(ctx, "u42", "tarjeta")
	assert.NoError(t, err)

	state, err := w.Pay(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, StepDone, state.Step)
	assert.Equal(t, models.Payment{Amount: 25.50, Method: "card"}, backend.lastPayment)
}

func TestPayWithoutMethodRejected(t *testing.T) {
	w, _ := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")

	_, err := w.Pay(context.Background(), "u42", testToken)
	assert.Equal(t, apperrors.ErrCodeFormFieldInvalid, apperrors.CodeOf(err))
}

func TestSummaryPrefersBackendAndNormalizesStatus(t *testing.T) {
	backend := newFakeBackend()
	backend.summary = &models.BackendSummary{}
	backend.summary.Application.ID = 101
	backend.summary.Application.Code = "LC-2026-000101"
	backend.summary.Application.Procedure = "Licencia de Construcción"
	backend.summary.Application.Status = "completado"
	backend.summary.Pay.Amount = 25.50
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")

	summary, err := w.Summary(context.Background(), "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, "LC-2026-000101", summary.ApplicationNumber)
	assert.Equal(t, "APROBADO", summary.Status)
	assert.Equal(t, "vecino@example.com", summary.UserEmail)
	assert.False(t, summary.Local)
}

func TestSummaryFallsBackToCachedValues(t *testing.T) {
	backend := newFakeBackend()
	backend.summaryErr = apperrors.NewBackendUnreachableError(io.ErrUnexpectedEOF)
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")

	summary, err := w.Summary(context.Background(), "u42", testToken)
	assert.NoError(t, err)
	assert.True(t, summary.Local)
	assert.Equal(t, "TR-000101", summary.ApplicationNumber)
	assert.Equal(t, "REGISTRADO", summary.Status)
	assert.Equal(t, "Licencia de Construcción", summary.ProcedureName)
	assert.Equal(t, 25.50, summary.Cost)
}

func TestSummaryUnknownStatusFailsLoudly(t *testing.T) {
	backend := newFakeBackend()
	backend.summary = &models.BackendSummary{}
	backend.summary.Application.Status = "LIMBO"
	w, _ := newTestWizard(t, backend)
	startedWorkflow(t, w, "u42")

	_, err := w.Summary(context.Background(), "u42", testToken)
	assert.Equal(t, apperrors.ErrCodeUnknownStatus, apperrors.CodeOf(err))
}

func TestFinishClearsWorkflowKeys(t *testing.T) {
	w, store := newTestWizard(t, newFakeBackend())
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	assert.NoError(t, w.Finish(ctx, "u42"))

	for _, key := range []string{
		session.KeyApplicationID,
		session.KeySelectedTramite,
		session.KeyTramiteCost,
		session.KeyTramiteFormData,
		session.KeyPaymentMethod,
		session.KeyCurrentRequisitos,
	} {
		var raw interface{}
		ok, err := store.Load(ctx, "u42", key, &raw)
		assert.NoError(t, err)
		assert.False(t, ok, "key %s should be cleared", key)
	}
}

type recordingHook struct {
	summaries []*models.Summary
}

func (h *recordingHook) OnCompleted(ctx context.Context, summary *models.Summary) {
	h.summaries = append(h.summaries, summary)
}

// Reloading the confirmation view must not resend receipts: the hooks fire on
// the first summary only, then again after a finished workflow starts over.
func TestSummaryNotifiesHooksOncePerWorkflow(t *testing.T) {
	backend := newFakeBackend()
	backend.summary = &models.BackendSummary{}
	backend.summary.Application.Code = "LC-2026-000101"
	backend.summary.Application.Status = "PAID"

	hook := &recordingHook{}
	w, _ := newTestWizard(t, backend)
	w.AddCompletionHook(hook)
	startedWorkflow(t, w, "u42")
	ctx := context.Background()

	_, err := w.Summary(ctx, "u42", testToken)
	assert.NoError(t, err)
	_, err = w.Summary(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Len(t, hook.summaries, 1)

	assert.NoError(t, w.Finish(ctx, "u42"))
	startedWorkflow(t, w, "u42")

	_, err = w.Summary(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Len(t, hook.summaries, 2)
}

// Full run: select a procedure, upload both requirements, draft and submit
// the form, pay by card, read the confirmation, close it.
func TestCompleteWorkflowRun(t *testing.T) {
	backend := newFakeBackend()
	backend.summary = &models.BackendSummary{}
	backend.summary.Application.Code = "LC-2026-000101"
	backend.summary.Application.Procedure = "Licencia de Construcción"
	backend.summary.Application.Status = "PAID"
	backend.summary.Pay.Amount = 25.50

	hook := &recordingHook{}
	w, _ := newTestWizard(t, backend)
	w.AddCompletionHook(hook)
	ctx := context.Background()

	state, err := w.Select(ctx, "u42", testToken, 7)
	assert.NoError(t, err)
	assert.Equal(t, 25.50, state.Cost)

	state, err = w.StartUpload(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, int64(101), state.ApplicationID)

	for _, reqID := range []int64{1, 2} {
		_, err = w.Upload(ctx, "u42", testToken, reqID, "doc.pdf", "application/pdf", 2048, pdfReader())
		assert.NoError(t, err)
	}

	state, err = w.ContinueToForm(ctx, "u42")
	assert.NoError(t, err)
	assert.Equal(t, StepForm, state.Step)

	_, err = w.SetFormField(ctx, "u42", "direccion_propiedad", "Av. Los Pinos 123", false)
	assert.NoError(t, err)
	_, err = w.SetFormField(ctx, "u42", "area_m2", "120.5", true)
	assert.NoError(t, err)

	state, err = w.SubmitForm(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, StepPay, state.Step)
	assert.Len(t, backend.lastFields, 2)

	_, err = w.SelectPaymentMethod(ctx, "u42", "tarjeta")
	assert.NoError(t, err)
	state, err = w.Pay(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, StepDone, state.Step)

	summary, err := w.Summary(ctx, "u42", testToken)
	assert.NoError(t, err)
	assert.Equal(t, "LC-2026-000101", summary.ApplicationNumber)
	assert.Equal(t, "PAID", summary.Status)
	assert.Len(t, hook.summaries, 1)

	assert.NoError(t, w.Finish(ctx, "u42"))
	state, err = w.State(ctx, "u42")
	assert.NoError(t, err)
	assert.Equal(t, StepSelect, state.Step)
	assert.Zero(t, state.ApplicationID)
}

func TestSanitizeDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"120.5", "120.5"},
		{"12a.b3.4", "12.34"},
		{"abc", ""},
		{"", ""},
		{"1.2.3", "1.23"},
		{"-15", "15"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeDecimal(tt.in), "input %q", tt.in)
	}
}
