package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-track-gateway/models"
)

const (
	createPosition = `INSERT INTO positions (delivery_id, driver_id, latitude, longitude, accuracy, speed, heading, recorded_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id;`

	createPositionsTableSQLite = `CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		delivery_id TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		accuracy REAL,
		speed REAL,
		heading REAL,
		recorded_at TIMESTAMP NOT NULL
	);`
)

// maxListLimit caps a single position history page.
const maxListLimit = 1000

// buildListPositionsQuery assembles the filtered history SELECT for the given
// filter. DeliveryID is always required; driver and time-window constraints
// are added only when set.
func buildListPositionsQuery(filter models.PositionFilter) (string, []any, error) {
	limit := filter.Limit
	if limit == 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	builder := sq.
		Select("id", "delivery_id", "driver_id", "latitude", "longitude", "accuracy", "speed", "heading", "recorded_at").
		From("positions").
		Where(sq.Eq{"delivery_id": filter.DeliveryID}).
		OrderBy("recorded_at DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar)

	if filter.DriverID != "" {
		builder = builder.Where(sq.Eq{"driver_id": filter.DriverID})
	}
	if !filter.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"recorded_at": filter.Since})
	}

	return builder.ToSql()
}
