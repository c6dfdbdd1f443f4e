package store

import (
	"context"

	"github.com/MKhiriev/go-track-gateway/models"
)

// PositionRepository is the durable store contract the gateway requires.
//
// Create persists a single position record synchronously; the ingest
// pipeline is fail-closed on its error. ListPositions serves the read-side
// position history query.
type PositionRepository interface {
	Create(ctx context.Context, record models.PositionRecord) (models.PositionRecord, error)
	ListPositions(ctx context.Context, filter models.PositionFilter) ([]models.PositionRecord, error)
}
