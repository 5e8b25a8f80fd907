// Package session is the workflow-cache storage port. It replaces the
// browser-local storage of the old portal with an injected store so the
// wizard survives page reloads without a server-held session object.
//
// No implementation does cross-instance invalidation or locking; concurrent
// writers to the same scope are last-write-wins, matching the single-tab,
// single-action usage the portal is designed for.
package session

import "context"

// Well-known workflow cache keys.
const (
	KeyApplicationID      = "applicationId"
	KeySelectedTramite    = "selectedTramite"
	KeyTramiteCost        = "tramiteCost"
	KeyTramiteFormData    = "tramiteFormData"
	KeyPaymentMethod      = "paymentMethod"
	KeyCurrentRequisitos  = "currentRequisitos"
	KeyUploadProgress     = "uploadProgress"
	KeyUploadedFiles      = "uploadedFileIds"
	KeyWorkflowState      = "workflowState"
	KeyCompletionNotified = "completionNotified"
)

// AllKeys lists every per-scope entry the portal writes. Stores that cannot
// enumerate a scope delete exactly this set when Clear is called without keys,
// so a whole-scope clear behaves the same across implementations.
var AllKeys = []string{
	KeyApplicationID,
	KeySelectedTramite,
	KeyTramiteCost,
	KeyTramiteFormData,
	KeyPaymentMethod,
	KeyCurrentRequisitos,
	KeyUploadProgress,
	KeyUploadedFiles,
	KeyWorkflowState,
	KeyCompletionNotified,
}

// Store persists JSON-serialized workflow state per scope (user/session id).
//
// Load reports (false, nil) for absent entries. A corrupted entry is treated
// as absent rather than surfaced as an error: availability over correctness,
// so a bad cache entry resets the step instead of wedging it.
type Store interface {
	Save(ctx context.Context, scope, key string, value interface{}) error
	Load(ctx context.Context, scope, key string, dest interface{}) (bool, error)
	Clear(ctx context.Context, scope string, keys ...string) error
}
