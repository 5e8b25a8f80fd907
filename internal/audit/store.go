// Package audit persists a per-event workflow trail in Postgres. Writes are
// best effort: the wizard logs and continues when the insert fails, so the
// audit table never blocks a citizen's workflow.
package audit

import (
	"context"
	"time"

	"tramite-portal/internal/common/database"
	apperrors "tramite-portal/internal/common/errors"
	"tramite-portal/internal/common/logger"
)

const insertEventQuery = `
	INSERT INTO workflow_events (scope, application_id, event, details, created_at)
	VALUES ($1, $2, $3, $4, $5)`

type Store struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewStore(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record inserts one workflow event row.
func (s *Store) Record(ctx context.Context, scope string, applicationID int64, event, details string) error {
	var appID interface{}
	if applicationID != 0 {
		appID = applicationID
	}

	_, err := s.db.Exec(ctx, insertEventQuery, scope, appID, event, details, time.Now().UTC())
	if err != nil {
		return apperrors.NewAuditWriteFailedError(err)
	}

	s.logger.Debug("workflow event recorded", map[string]interface{}{
		"event":         event,
		"applicationId": applicationID,
	})
	return nil
}
