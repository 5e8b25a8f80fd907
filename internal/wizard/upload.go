package wizard

import (
	"context"
	"io"
	"strings"

	apperrors "tramite-portal/internal/common/errors"
	"tramite-portal/internal/common/metrics"
)

// beginUpload claims the single upload slot for a scope. At most one
// requirement upload may be in flight per workflow; a second selection is
// rejected outright rather than queued, and its content is never read.
func (rt *workflowRuntime) beginUpload(requirementID int64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.uploading != 0 {
		return apperrors.NewUploadInFlightError(rt.uploading)
	}
	rt.uploading = requirementID
	return nil
}

func (rt *workflowRuntime) endUpload() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.uploading = 0
}

// currentUpload reports the requirement id holding the upload slot, zero when
// idle.
func (rt *workflowRuntime) currentUpload() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.uploading
}

// Upload validates and relays one requirement file. Type and size are checked
// before the slot is claimed or any byte leaves the process. Progress and the
// backend file id are persisted only once the backend accepts the file, so the
// completion check never counts an unfinished or failed upload.
func (w *Wizard) Upload(ctx context.Context, scope, token string, requirementID int64, fileName, contentType string, size int64, content io.Reader) (*State, error) {
	if !strings.EqualFold(contentType, w.upload.ContentType) ||
		!strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		metrics.UploadsTotal.WithLabelValues("rejected_type").Inc()
		return nil, apperrors.NewFileTypeInvalidError(fileName)
	}
	if size > w.upload.MaxSizeBytes {
		metrics.UploadsTotal.WithLabelValues("rejected_size").Inc()
		return nil, apperrors.NewFileTooLargeError(fileName, w.upload.MaxSizeBytes)
	}

	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.ApplicationID == 0 {
		return nil, apperrors.NewApplicationMissingError()
	}
	if !w.declaredRequirement(state, requirementID) {
		return nil, apperrors.NewFormFieldInvalidError("requirementId", "requirement not part of this procedure")
	}

	rt := w.runtime(scope)
	if err := rt.beginUpload(requirementID); err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected_concurrent").Inc()
		return nil, err
	}
	defer rt.endUpload()

	metrics.UploadsInFlight.Inc()
	defer metrics.UploadsInFlight.Dec()

	uploaded, err := w.backend.UploadFile(ctx, token, state.ApplicationID, requirementID,
		fileName, contentType, io.LimitReader(content, w.upload.MaxSizeBytes))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	state.UploadProgress[requirementID] = true
	state.UploadedFileIDs[requirementID] = uploaded.ID
	if err := w.saveProgress(ctx, scope, state); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	w.record(ctx, scope, state.ApplicationID, "file_uploaded", fileName)
	return state, nil
}

// DeleteUpload removes a requirement's file. Local progress is cleared even
// when the backend delete fails, so the citizen can always re-upload; the
// backend copy is orphaned at worst, never blocking.
func (w *Wizard) DeleteUpload(ctx context.Context, scope, token string, requirementID int64) (*State, error) {
	state, err := w.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	if state.ApplicationID == 0 {
		return nil, apperrors.NewApplicationMissingError()
	}

	if fileID, ok := state.UploadedFileIDs[requirementID]; ok {
		if err := w.backend.DeleteFile(ctx, token, state.ApplicationID, fileID); err != nil {
			w.logger.WithError(err).Warn("backend file delete failed, clearing local state anyway", map[string]interface{}{
				"applicationId": state.ApplicationID,
				"fileId":        fileID,
			})
		}
	}

	delete(state.UploadProgress, requirementID)
	delete(state.UploadedFileIDs, requirementID)
	if err := w.saveProgress(ctx, scope, state); err != nil {
		return nil, apperrors.NewSessionStoreFailedError(err)
	}

	w.record(ctx, scope, state.ApplicationID, "file_deleted", "")
	return state, nil
}

func (w *Wizard) declaredRequirement(state *State, requirementID int64) bool {
	for _, req := range state.Requisitos {
		if req.ID == requirementID {
			return true
		}
	}
	return false
}
