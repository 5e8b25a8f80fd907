package wizard

import (
	"context"

	"tramite-portal/internal/models"
	"tramite-portal/internal/session"
)

// Step identifies a wizard stage. The flow is linear:
// SELECT → UPLOAD → FORM → PAY → DONE.
type Step string

const (
	StepSelect Step = "SELECT"
	StepUpload Step = "UPLOAD"
	StepForm   Step = "FORM"
	StepPay    Step = "PAY"
	StepDone   Step = "DONE"
)

// State is the resumable workflow snapshot, reassembled from the session
// store on every operation so each step survives reloads independently.
type State struct {
	Step            Step                 `json:"step"`
	ApplicationID   int64                `json:"applicationId,omitempty"`
	Procedure       *models.Procedure    `json:"procedure,omitempty"`
	Requisitos      []models.Requirement `json:"requisitos,omitempty"`
	UploadProgress  map[int64]bool       `json:"uploadProgress,omitempty"`
	UploadedFileIDs map[int64]int64      `json:"uploadedFileIds,omitempty"`
	FormDraft       map[string]string    `json:"formDraft,omitempty"`
	PaymentMethod   string               `json:"paymentMethod,omitempty"`
	Cost            float64              `json:"cost"`
}

// UploadsComplete reports whether every declared requirement has a true
// entry in the upload progress map.
func (s *State) UploadsComplete() bool {
	for _, req := range s.Requisitos {
		if !s.UploadProgress[req.ID] {
			return false
		}
	}
	return len(s.Requisitos) > 0
}

// PendingRequirements lists requirement ids still missing an upload.
func (s *State) PendingRequirements() []int64 {
	var pending []int64
	for _, req := range s.Requisitos {
		if !s.UploadProgress[req.ID] {
			pending = append(pending, req.ID)
		}
	}
	return pending
}

// clearedOnFinish are the keys removed when the confirmation step is exited
// or a new procedure is started. Every workflow entry goes, including the
// receipt flag, so a fresh run notifies again.
var clearedOnFinish = session.AllKeys

// loadState reassembles the workflow snapshot from the per-key session
// entries, tolerating absent pieces.
func (w *Wizard) loadState(ctx context.Context, scope string) (*State, error) {
	state := &State{
		Step:            StepSelect,
		UploadProgress:  make(map[int64]bool),
		UploadedFileIDs: make(map[int64]int64),
		FormDraft:       make(map[string]string),
	}

	var step Step
	if ok, err := w.store.Load(ctx, scope, session.KeyWorkflowState, &step); err != nil {
		return nil, err
	} else if ok {
		state.Step = step
	}

	if _, err := w.store.Load(ctx, scope, session.KeyApplicationID, &state.ApplicationID); err != nil {
		return nil, err
	}

	var procedure models.Procedure
	if ok, err := w.store.Load(ctx, scope, session.KeySelectedTramite, &procedure); err != nil {
		return nil, err
	} else if ok {
		state.Procedure = &procedure
	}

	if _, err := w.store.Load(ctx, scope, session.KeyTramiteCost, &state.Cost); err != nil {
		return nil, err
	}
	if _, err := w.store.Load(ctx, scope, session.KeyCurrentRequisitos, &state.Requisitos); err != nil {
		return nil, err
	}
	if _, err := w.store.Load(ctx, scope, session.KeyUploadProgress, &state.UploadProgress); err != nil {
		return nil, err
	}
	if _, err := w.store.Load(ctx, scope, session.KeyUploadedFiles, &state.UploadedFileIDs); err != nil {
		return nil, err
	}
	if _, err := w.store.Load(ctx, scope, session.KeyTramiteFormData, &state.FormDraft); err != nil {
		return nil, err
	}
	if _, err := w.store.Load(ctx, scope, session.KeyPaymentMethod, &state.PaymentMethod); err != nil {
		return nil, err
	}

	if state.UploadProgress == nil {
		state.UploadProgress = make(map[int64]bool)
	}
	if state.UploadedFileIDs == nil {
		state.UploadedFileIDs = make(map[int64]int64)
	}
	if state.FormDraft == nil {
		state.FormDraft = make(map[string]string)
	}

	return state, nil
}

func (w *Wizard) saveStep(ctx context.Context, scope string, step Step) error {
	return w.store.Save(ctx, scope, session.KeyWorkflowState, step)
}

func (w *Wizard) saveProgress(ctx context.Context, scope string, state *State) error {
	if err := w.store.Save(ctx, scope, session.KeyUploadProgress, state.UploadProgress); err != nil {
		return err
	}
	return w.store.Save(ctx, scope, session.KeyUploadedFiles, state.UploadedFileIDs)
}
