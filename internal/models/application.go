package models

// Application is a citizen's in-progress or completed administrative
// procedure instance. The backend owns it; the portal caches identifiers.
type Application struct {
	ID          int64  `json:"id"`
	ProcedureID int64  `json:"procedureId"`
	UserID      int64  `json:"userId"`
	Status      string `json:"status"`
	Code        string `json:"code,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// UploadedFile is created by a successful requirement upload. The portal
// retains only the requirement-to-file mapping to allow deletion/replacement.
type UploadedFile struct {
	ID            int64 `json:"id"`
	RequirementID int64 `json:"requirementId"`
	ApplicationID int64 `json:"applicationId"`
}

// FormField is one free-form field tied to an application.
type FormField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Payment is the payload for the pay transition.
type Payment struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

// HistoryEntry is one append-only status change, rendered as a timeline.
type HistoryEntry struct {
	Status      string `json:"status"`
	ChangedAt   string `json:"changedAt"`
	Description string `json:"description,omitempty"`
}
