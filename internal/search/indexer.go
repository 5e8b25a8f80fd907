// Package search maintains an optional write-through Elasticsearch index of
// completed-workflow summaries for the back-office search screens. Indexing
// failures are logged and swallowed; the index is a read replica, never the
// source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"tramite-portal/internal/common/database"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/models"
)

type Indexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

type summaryDocument struct {
	ApplicationNumber string             `json:"applicationNumber"`
	ProcedureName     string             `json:"procedureName"`
	Status            string             `json:"status"`
	Cost              float64            `json:"cost"`
	UserEmail         string             `json:"userEmail,omitempty"`
	Form              []models.FormField `json:"form,omitempty"`
	Local             bool               `json:"local"`
	IndexedAt         time.Time          `json:"indexedAt"`
}

// OnCompleted indexes one summary, keyed by application number so re-reads of
// the confirmation page overwrite instead of duplicating.
func (i *Indexer) OnCompleted(ctx context.Context, summary *models.Summary) {
	doc := summaryDocument{
		ApplicationNumber: summary.ApplicationNumber,
		ProcedureName:     summary.ProcedureName,
		Status:            summary.Status,
		Cost:              summary.Cost,
		UserEmail:         summary.UserEmail,
		Form:              summary.FormData,
		Local:             summary.Local,
		IndexedAt:         time.Now().UTC(),
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		i.logger.WithError(err).Error("failed to serialize summary document", nil)
		return
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(encoded),
		i.es.Client.Index.WithContext(ctx),
		i.es.Client.Index.WithDocumentID(summary.ApplicationNumber),
	)
	if err != nil {
		i.logger.WithError(err).Warn("summary indexing failed", map[string]interface{}{
			"applicationNumber": summary.ApplicationNumber,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("summary indexing rejected", map[string]interface{}{
			"applicationNumber": summary.ApplicationNumber,
			"status":            res.Status(),
		})
		return
	}

	i.logger.Debug("summary indexed", map[string]interface{}{
		"applicationNumber": summary.ApplicationNumber,
	})
}
