package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newDBFromSQL создаёт DB из существующего *sql.DB (для тестов).
func newDBFromSQL(db *sql.DB) *DB {
	return &DB{
		DB:                 db,
		errorClassificator: NewPostgresErrorClassifier(),
		logger:             logger.Nop(),
	}
}

func newTestRepo(t *testing.T, db *sql.DB) PositionRepository {
	t.Helper()
	return NewPositionRepository(newDBFromSQL(db), logger.Nop())
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

var positionColumns = []string{
	"id", "delivery_id", "driver_id", "latitude", "longitude",
	"accuracy", "speed", "heading", "recorded_at",
}

func TestCreatePosition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accuracy := 4.2

	record := models.PositionRecord{
		DeliveryID: "delivery-1",
		DriverID:   "driver-1",
		Coordinates: models.Coordinates{
			Latitude:  55.7558,
			Longitude: 37.6173,
			Accuracy:  &accuracy,
		},
		ServerTimestamp: now,
	}

	t.Run("success: returns record with assigned id", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := newTestRepo(t, db)

		mock.ExpectQuery(regexp.QuoteMeta(createPosition)).
			WithArgs(
				"delivery-1", "driver-1",
				55.7558, 37.6173, &accuracy,
				nil, nil,
				now,
			).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

		got, err := repo.Create(testContext(), record)

		require.NoError(t, err)
		assert.Equal(t, int64(17), got.ID)
		assert.Equal(t, record.DeliveryID, got.DeliveryID)
		assert.Equal(t, record.ServerTimestamp, got.ServerTimestamp)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error: insert fails", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := newTestRepo(t, db)

		mock.ExpectQuery(regexp.QuoteMeta(createPosition)).
			WillReturnError(errors.New("connection reset by peer"))

		_, err := repo.Create(testContext(), record)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPositionNotSaved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListPositions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rowFor := func(id int64, ts time.Time) []driver.Value {
		return []driver.Value{
			id, "delivery-1", "driver-1",
			55.0, 37.0, nil, nil, nil, ts,
		}
	}

	t.Run("success: delivery filter only", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := newTestRepo(t, db)

		rows := sqlmock.NewRows(positionColumns).
			AddRow(rowFor(2, now)...).
			AddRow(rowFor(1, now.Add(-time.Minute))...)

		mock.ExpectQuery(`SELECT id, delivery_id, driver_id, latitude, longitude, accuracy, speed, heading, recorded_at FROM positions WHERE delivery_id = \$1 ORDER BY recorded_at DESC LIMIT 1000`).
			WithArgs("delivery-1").
			WillReturnRows(rows)

		got, err := repo.ListPositions(testContext(), models.PositionFilter{DeliveryID: "delivery-1"})

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[0].ID)
		assert.Equal(t, "driver-1", got[0].DriverID)
		assert.Equal(t, 55.0, got[0].Coordinates.Latitude)
		assert.Nil(t, got[0].Speed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success: driver and since filters applied", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := newTestRepo(t, db)

		since := now.Add(-time.Hour)
		mock.ExpectQuery(`WHERE delivery_id = \$1 AND driver_id = \$2 AND recorded_at >= \$3`).
			WithArgs("delivery-1", "driver-1", since).
			WillReturnRows(sqlmock.NewRows(positionColumns))

		got, err := repo.ListPositions(testContext(), models.PositionFilter{
			DeliveryID: "delivery-1",
			DriverID:   "driver-1",
			Since:      since,
			Limit:      50,
		})

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error: query fails", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := newTestRepo(t, db)

		mock.ExpectQuery(`FROM positions`).
			WillReturnError(errors.New("relation does not exist"))

		_, err := repo.ListPositions(testContext(), models.PositionFilter{DeliveryID: "delivery-1"})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExecutingQuery)
	})

	t.Run("error: scan fails on malformed row", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := newTestRepo(t, db)

		rows := sqlmock.NewRows(positionColumns).
			AddRow(int64(1), "delivery-1", "driver-1", "not-a-float", 37.0, nil, nil, nil, now)

		mock.ExpectQuery(`FROM positions`).WillReturnRows(rows)

		_, err := repo.ListPositions(testContext(), models.PositionFilter{DeliveryID: "delivery-1"})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrScanningRows)
	})
}
