// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/models"
)

// positionRepository is the SQL-backed implementation of
// [PositionRepository]. It writes and reads the "positions" table through
// the shared [DB] handle, so the same code serves both the PostgreSQL and
// the embedded SQLite backend.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type positionRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewPositionRepository constructs a [PositionRepository] backed by the
// provided database connection and logger.
//
// A debug-level log message is emitted at construction time to aid
// application startup diagnostics.
func NewPositionRepository(db *DB, logger *logger.Logger) PositionRepository {
	logger.Debug().Msg("creating position repository")
	return &positionRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a position record and returns it with the server-assigned
// row id populated.
//
// The INSERT uses the [createPosition] prepared query, returning the new id
// via a RETURNING clause. On failure the error is classified (retryable vs
// not) for operational visibility and wrapped; the record is NOT considered
// persisted and callers must not act on it.
func (r *positionRepository) Create(ctx context.Context, record models.PositionRecord) (models.PositionRecord, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, createPosition,
		record.DeliveryID,
		record.DriverID,
		record.Coordinates.Latitude,
		record.Coordinates.Longitude,
		record.Coordinates.Accuracy,
		record.Speed,
		record.Heading,
		record.ServerTimestamp,
	)

	if err := row.Scan(&record.ID); err != nil {
		log.Err(err).
			Str("func", "*positionRepository.Create").
			Str("delivery", record.DeliveryID).
			Str("driver", record.DriverID).
			Bool("retryable", r.db.errorClassificator.Classify(err) == Retryable).
			Msg("error: position insert failed")
		return models.PositionRecord{}, fmt.Errorf("%w: %w", ErrPositionNotSaved, err)
	}

	return record, nil
}

// ListPositions retrieves the position history for a delivery, newest first,
// honouring the optional driver and time-window constraints in filter.
//
// The SELECT is built dynamically by [buildListPositionsQuery]; the page
// size is capped at the repository level.
func (r *positionRepository) ListPositions(ctx context.Context, filter models.PositionFilter) ([]models.PositionRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListPositionsQuery(filter)
	if err != nil {
		log.Err(err).Str("func", "*positionRepository.ListPositions").Msg("error: building query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*positionRepository.ListPositions").Msg("error: executing query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.PositionRecord, 0)
	for rows.Next() {
		var record models.PositionRecord
		if err := rows.Scan(
			&record.ID,
			&record.DeliveryID,
			&record.DriverID,
			&record.Coordinates.Latitude,
			&record.Coordinates.Longitude,
			&record.Coordinates.Accuracy,
			&record.Speed,
			&record.Heading,
			&record.ServerTimestamp,
		); err != nil {
			log.Err(err).Str("func", "*positionRepository.ListPositions").Msg("error: scanning rows")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*positionRepository.ListPositions").Msg("error: iterating rows")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return records, nil
}
