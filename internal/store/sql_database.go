package store

import (
	"database/sql"

	"github.com/MKhiriev/go-track-gateway/internal/logger"
)

type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// ErrorClassificator decides whether a failed database operation is worth
// retrying. Backends without transient-failure semantics may return a
// classifier that always answers NonRetryable.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
