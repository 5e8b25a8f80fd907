package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "tramite-portal/internal/common/errors"
)

func TestParseCanonicalStatuses(t *testing.T) {
	for _, s := range All() {
		parsed, err := Parse(string(s))
		assert.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseNormalizesCaseAndWhitespace(t *testing.T) {
	parsed, err := Parse("  aprobado ")
	assert.NoError(t, err)
	assert.Equal(t, Aprobado, parsed)
}

func TestParseLegacyAliases(t *testing.T) {
	tests := map[string]Status{
		"COMPLETED":  Aprobado,
		"completado": Aprobado,
		"EN_PROCESO": EnRevision,
		"REGISTRADO": Draft,
		"PENDIENTE":  Submitted,
	}
	for raw, want := range tests {
		parsed, err := Parse(raw)
		assert.NoError(t, err, "alias %s", raw)
		assert.Equal(t, want, parsed, "alias %s", raw)
	}
}

func TestParseUnknownStatusFails(t *testing.T) {
	_, err := Parse("LIMBO")
	assert.Equal(t, apperrors.ErrCodeUnknownStatus, apperrors.CodeOf(err))

	_, err = Parse("")
	assert.Equal(t, apperrors.ErrCodeUnknownStatus, apperrors.CodeOf(err))
}

func TestEveryStatusHasCategoryAndLabel(t *testing.T) {
	for _, s := range All() {
		assert.NotEmpty(t, CategoryOf(s), "status %s", s)
		assert.NotEmpty(t, Label(s), "status %s", s)
	}
}

func TestIsFinal(t *testing.T) {
	assert.True(t, IsFinal(Aprobado))
	assert.True(t, IsFinal(Rechazado))
	assert.False(t, IsFinal(Paid))
	assert.False(t, IsFinal(Observado))
}
