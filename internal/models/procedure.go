package models

// Procedure is a catalog entry describing a type of trámite and its cost.
// Immutable from the portal's perspective; fetched read-only from the backend.
type Procedure struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Cost        float64 `json:"cost"`
}

// Requirement enumerates a document type that must be uploaded before an
// application can be submitted.
type Requirement struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FormatID int64  `json:"formatId,omitempty"`
}
