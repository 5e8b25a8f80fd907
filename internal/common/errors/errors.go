// Package errors provides standardized error handling for the portal.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Authentication errors: missing or expired token.
	ErrCodeTokenMissing ErrorCode = "TOKEN_MISSING"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid ErrorCode = "TOKEN_INVALID"

	// Validation errors: rejected before any network call is made.
	ErrCodeFileTypeInvalid  ErrorCode = "FILE_TYPE_INVALID"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrCodeFormFieldInvalid ErrorCode = "FORM_FIELD_INVALID"

	// Workflow errors: the wizard refused the operation.
	ErrCodeStepBusy            ErrorCode = "STEP_BUSY"
	ErrCodeUploadInFlight      ErrorCode = "UPLOAD_IN_FLIGHT"
	ErrCodeRequirementsPending ErrorCode = "REQUIREMENTS_PENDING"
	ErrCodeWorkflowMissing     ErrorCode = "WORKFLOW_MISSING"
	ErrCodeApplicationMissing  ErrorCode = "APPLICATION_MISSING"

	// Backend errors: the municipal backend answered non-2xx.
	ErrCodeBackendRejected ErrorCode = "BACKEND_REJECTED"
	ErrCodeUnknownEnvelope ErrorCode = "UNKNOWN_ENVELOPE"
	ErrCodeUnknownStatus   ErrorCode = "UNKNOWN_STATUS"

	// Transport errors: the backend could not be reached.
	ErrCodeBackendUnreachable ErrorCode = "BACKEND_UNREACHABLE"

	// Local infrastructure errors.
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeAuditWriteFailed   ErrorCode = "AUDIT_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Status    int                    `json:"status,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets callers match errors by code with errors.Is.
func (e *StandardError) Is(target error) bool {
	var other *StandardError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// CodeOf extracts the ErrorCode from any error chain, or "" when absent.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTokenMissingError creates a non-retryable authentication error.
func NewTokenMissingError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenMissing,
		Message:   "No autorizado: debes iniciar sesión",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenExpiredError creates a non-retryable authentication error.
func NewTokenExpiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenExpired,
		Message:   "Sesión expirada. Por favor, inicia sesión nuevamente",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenInvalidError creates a non-retryable authentication error.
func NewTokenInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenInvalid,
		Message:   "Token inválido",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTypeInvalidError is raised before any upload is queued.
func NewFileTypeInvalidError(fileName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTypeInvalid,
		Message:   fmt.Sprintf("El archivo %q debe ser un PDF", fileName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTooLargeError is raised before any upload is queued.
func NewFileTooLargeError(fileName string, maxBytes int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   fmt.Sprintf("El archivo %q es muy grande. Tamaño máximo: %d MB", fileName, maxBytes/(1024*1024)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFormFieldInvalidError creates a non-retryable validation error.
func NewFormFieldInvalidError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFormFieldInvalid,
		Message:   fmt.Sprintf("Campo inválido: %s", field),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepBusyError rejects a duplicate submission while a step is in flight.
func NewStepBusyError(step string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepBusy,
		Message:   "Operación en curso. Espera a que termine la actual",
		Details:   fmt.Sprintf("step: %s", step),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadInFlightError rejects a concurrent file selection.
func NewUploadInFlightError(requirementID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadInFlight,
		Message:   "Espera a que termine la subida actual antes de subir otro archivo",
		Details:   fmt.Sprintf("requirementId: %d", requirementID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequirementsPendingError blocks advancing past the upload step.
func NewRequirementsPendingError(missing []int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequirementsPending,
		Message:   "Debes subir todos los archivos requeridos antes de continuar",
		Details:   fmt.Sprintf("pending requirements: %v", missing),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkflowMissingError signals a step entered without its cached prerequisites.
func NewWorkflowMissingError(step string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowMissing,
		Message:   "No se encontró la solicitud. Por favor, reinicia el proceso",
		Details:   fmt.Sprintf("step: %s", step),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationMissingError signals a missing cached application id.
func NewApplicationMissingError() *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationMissing,
		Message:   "No se encontró la solicitud",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendRejectedError wraps a non-2xx backend response. The message comes
// from the backend payload when present, else a generic localized fallback.
func NewBackendRejectedError(status int, message string) *StandardError {
	if message == "" {
		message = "Error en la petición"
	}
	return &StandardError{
		Code:      ErrCodeBackendRejected,
		Message:   message,
		Status:    status,
		Retryable: status >= 500,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownEnvelopeError fails loudly on an unrecognized list envelope shape.
func NewUnknownEnvelopeError(keys []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownEnvelope,
		Message:   "Respuesta del servidor con formato desconocido",
		Details:   fmt.Sprintf("envelope keys: %v", keys),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownStatusError fails loudly on a status outside the canonical vocabulary.
func NewUnknownStatusError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownStatus,
		Message:   "Estado de solicitud desconocido",
		Details:   fmt.Sprintf("status: %s", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnreachableError wraps a transport-level failure.
func NewBackendUnreachableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendUnreachable,
		Message:   "No se pudo conectar con el servidor",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError wraps a workflow-cache store failure.
func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Error al guardar el estado del trámite",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError wraps a local audit-log failure. Non-critical.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Audit log write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// HTTPStatus maps an error to the status code the gateway should answer with.
func HTTPStatus(err error) int {
	stdErr := &StandardError{}
	if !errors.As(err, &stdErr) {
		return 500
	}
	switch stdErr.Code {
	case ErrCodeTokenMissing, ErrCodeTokenExpired, ErrCodeTokenInvalid:
		return 401
	case ErrCodeFileTypeInvalid, ErrCodeFileTooLarge, ErrCodeFormFieldInvalid:
		return 400
	case ErrCodeStepBusy, ErrCodeUploadInFlight:
		return 409
	case ErrCodeRequirementsPending:
		return 412
	case ErrCodeWorkflowMissing, ErrCodeApplicationMissing:
		return 404
	case ErrCodeBackendRejected:
		if stdErr.Status != 0 {
			return stdErr.Status
		}
		return 502
	case ErrCodeUnknownEnvelope, ErrCodeUnknownStatus:
		return 502
	case ErrCodeBackendUnreachable:
		return 500
	default:
		return 500
	}
}

// GetErrorCategory returns the taxonomy bucket of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TOKEN"):
		return "AUTH"
	case strings.Contains(codeStr, "FILE") || strings.Contains(codeStr, "FORM"):
		return "VALIDATION"
	case strings.Contains(codeStr, "STEP") || strings.Contains(codeStr, "UPLOAD") ||
		strings.Contains(codeStr, "REQUIREMENTS") || strings.Contains(codeStr, "WORKFLOW") ||
		strings.Contains(codeStr, "APPLICATION"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "BACKEND_UNREACHABLE"):
		return "NETWORK"
	case strings.Contains(codeStr, "BACKEND") || strings.Contains(codeStr, "UNKNOWN"):
		return "BACKEND"
	default:
		return "OTHER"
	}
}
