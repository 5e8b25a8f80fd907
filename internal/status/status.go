// Package status holds the single canonical application-status vocabulary and
// its display-category mapping, replacing the per-page translation tables the
// portal used to duplicate.
package status

import (
	"strings"

	apperrors "tramite-portal/internal/common/errors"
)

// Status is the canonical backend status vocabulary.
type Status string

const (
	Draft      Status = "DRAFT"
	Submitted  Status = "SUBMITTED"
	Paid       Status = "PAID"
	EnRevision Status = "EN_REVISION"
	Observado  Status = "OBSERVADO"
	Aprobado   Status = "APROBADO"
	Rechazado  Status = "RECHAZADO"
)

// Category buckets statuses for display.
type Category string

const (
	CategoryPending    Category = "pending"
	CategoryInProgress Category = "in_progress"
	CategoryAttention  Category = "attention"
	CategoryFinal      Category = "final"
)

// aliases maps legacy vocabulary observed in older portal pages onto the
// canonical set.
var aliases = map[string]Status{
	"COMPLETED":  Aprobado,
	"COMPLETADO": Aprobado,
	"EN_PROCESO": EnRevision,
	"REGISTRADO": Draft,
	"PENDIENTE":  Submitted,
}

var categories = map[Status]Category{
	Draft:      CategoryPending,
	Submitted:  CategoryPending,
	Paid:       CategoryInProgress,
	EnRevision: CategoryInProgress,
	Observado:  CategoryAttention,
	Aprobado:   CategoryFinal,
	Rechazado:  CategoryFinal,
}

var labels = map[Status]string{
	Draft:      "Borrador",
	Submitted:  "Enviado",
	Paid:       "Pagado",
	EnRevision: "En revisión",
	Observado:  "Observado",
	Aprobado:   "Aprobado",
	Rechazado:  "Rechazado",
}

// Parse normalizes a backend status string to the canonical vocabulary.
// Unknown statuses produce a typed error, never a silent default.
func Parse(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := categories[s]; ok {
		return s, nil
	}
	if canonical, ok := aliases[string(s)]; ok {
		return canonical, nil
	}
	return "", apperrors.NewUnknownStatusError(raw)
}

// CategoryOf returns the display category of a canonical status.
func CategoryOf(s Status) Category {
	return categories[s]
}

// Label returns the localized display label of a canonical status.
func Label(s Status) string {
	return labels[s]
}

// IsFinal reports whether the application can change no further.
func IsFinal(s Status) bool {
	return categories[s] == CategoryFinal
}

// All lists the canonical vocabulary in lifecycle order.
func All() []Status {
	return []Status{Draft, Submitted, Paid, EnRevision, Observado, Aprobado, Rechazado}
}
