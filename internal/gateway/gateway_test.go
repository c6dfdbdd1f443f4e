// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MKhiriev/go-track-gateway/internal/config"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/mock"
	"github.com/MKhiriev/go-track-gateway/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T, repo *mock.MockPositionRepository) *Gateway {
	t.Helper()

	g := NewGateway(repo, config.Gateway{SendBufferSize: 16}, logger.Nop())
	g.now = func() time.Time { return testClock }
	return g
}

// drainEvents собирает все события, уже стоящие в очереди соединения.
func drainEvents(c *Client) []models.ServerEvent {
	var events []models.ServerEvent
	for {
		select {
		case event, ok := <-c.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func eventTypes(events []models.ServerEvent) []models.MessageType {
	types := make([]models.MessageType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

func driverIdentity(id string) models.Identity {
	return models.Identity{SubjectID: id, Role: models.RoleDriver}
}

func customerIdentity(id string) models.Identity {
	return models.Identity{SubjectID: id, Role: models.RoleCustomer}
}

func TestRegister(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	first := g.Register(customerIdentity("customer-1"))
	second := g.Register(driverIdentity("driver-1"))

	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, g.ConnectedClientCount())

	events := drainEvents(first)
	require.Len(t, events, 1)
	assert.Equal(t, models.EvtConnected, events[0].Type)
	assert.Equal(t, "customer-1", events[0].UserID)
	assert.Equal(t, testClock, events[0].Timestamp)
}

func TestSubscribeIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	client := g.Register(customerIdentity("customer-1"))
	drainEvents(client)

	g.Subscribe(client.ID, "delivery-1")
	g.Subscribe(client.ID, "delivery-1")

	// повторная подписка не меняет индекс, но подтверждается каждый раз
	assert.Equal(t, map[string]int{"delivery-1": 1}, g.ActiveSubscriptions())

	events := drainEvents(client)
	require.Len(t, events, 2)
	assert.Equal(t, models.EvtSubscribed, events[0].Type)
	assert.Equal(t, models.EvtSubscribed, events[1].Type)
	assert.Equal(t, "delivery-1", events[0].DeliveryID)
}

func TestSubscribeUnknownConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	g.Subscribe("no-such-connection", "delivery-1")

	assert.Empty(t, g.ActiveSubscriptions())
}

func TestUnsubscribePrunesEmptyEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	first := g.Register(customerIdentity("customer-1"))
	second := g.Register(customerIdentity("customer-2"))
	g.Subscribe(first.ID, "delivery-1")
	g.Subscribe(second.ID, "delivery-1")
	drainEvents(first)
	drainEvents(second)

	g.Unsubscribe(first.ID, "delivery-1")
	assert.Equal(t, map[string]int{"delivery-1": 1}, g.ActiveSubscriptions())

	g.Unsubscribe(second.ID, "delivery-1")
	assert.Empty(t, g.ActiveSubscriptions())

	// unsubscribe is idempotent and still acknowledged
	g.Unsubscribe(second.ID, "delivery-1")
	events := drainEvents(second)
	require.Len(t, events, 2)
	assert.Equal(t, models.EvtUnsubscribed, events[0].Type)
	assert.Equal(t, models.EvtUnsubscribed, events[1].Type)
}

func TestIngestLocation(t *testing.T) {
	t.Run("success: persists, caches, fans out, acknowledges", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockPositionRepository(ctrl)
		g := newTestGateway(t, repo)

		driver := g.Register(driverIdentity("driver-1"))
		subscriber := g.Register(customerIdentity("customer-1"))
		outsider := g.Register(customerIdentity("customer-2"))
		g.Subscribe(subscriber.ID, "delivery-1")
		g.Subscribe(outsider.ID, "delivery-2")
		drainEvents(driver)
		drainEvents(subscriber)
		drainEvents(outsider)

		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, record models.PositionRecord) (models.PositionRecord, error) {
				assert.Equal(t, "delivery-1", record.DeliveryID)
				assert.Equal(t, "driver-1", record.DriverID)
				assert.Equal(t, testClock, record.ServerTimestamp)
				record.ID = 1
				return record, nil
			})

		g.HandleRaw(context.Background(), driver, []byte(`{
			"type": "location_update",
			"deliveryId": "delivery-1",
			"coordinates": {"latitude": 55.75, "longitude": 37.61},
			"timestamp": "1999-01-01T00:00:00Z"
		}`))

		cached, ok := g.CachedPosition("driver-1")
		require.True(t, ok)
		assert.Equal(t, int64(1), cached.ID)
		// client timestamp discarded in favour of the server clock
		assert.Equal(t, testClock, cached.ServerTimestamp)

		subEvents := drainEvents(subscriber)
		require.Len(t, subEvents, 1)
		assert.Equal(t, models.EvtLocationUpdate, subEvents[0].Type)
		assert.Equal(t, "driver-1", subEvents[0].DriverID)
		require.NotNil(t, subEvents[0].Coordinates)
		assert.Equal(t, 55.75, subEvents[0].Coordinates.Latitude)

		driverEvents := drainEvents(driver)
		require.Len(t, driverEvents, 1)
		assert.Equal(t, models.EvtLocationAcknowledged, driverEvents[0].Type)
		assert.Equal(t, "delivery-1", driverEvents[0].DeliveryID)

		assert.Empty(t, drainEvents(outsider))
	})

	t.Run("error: customer may not report positions", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockPositionRepository(ctrl)
		g := newTestGateway(t, repo)

		customer := g.Register(customerIdentity("customer-1"))
		drainEvents(customer)

		g.HandleRaw(context.Background(), customer, []byte(`{
			"type": "location_update",
			"deliveryId": "delivery-1",
			"coordinates": {"latitude": 1, "longitude": 2}
		}`))

		events := drainEvents(customer)
		require.Len(t, events, 1)
		assert.Equal(t, models.EvtError, events[0].Type)
		assert.Equal(t, "only drivers may report positions", events[0].Message)

		_, ok := g.CachedPosition("customer-1")
		assert.False(t, ok)
	})

	t.Run("error: persistence failure is fail-closed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mock.NewMockPositionRepository(ctrl)
		g := newTestGateway(t, repo)

		driver := g.Register(driverIdentity("driver-1"))
		subscriber := g.Register(customerIdentity("customer-1"))
		g.Subscribe(subscriber.ID, "delivery-1")
		drainEvents(driver)
		drainEvents(subscriber)

		repo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			Return(models.PositionRecord{}, errors.New("connection refused"))

		g.HandleRaw(context.Background(), driver, []byte(`{
			"type": "location_update",
			"deliveryId": "delivery-1",
			"coordinates": {"latitude": 1, "longitude": 2}
		}`))

		driverEvents := drainEvents(driver)
		require.Len(t, driverEvents, 1)
		assert.Equal(t, models.EvtError, driverEvents[0].Type)
		assert.Equal(t, "failed to persist location update", driverEvents[0].Message)

		// subscribers never see data that did not durably land
		assert.Empty(t, drainEvents(subscriber))
		_, ok := g.CachedPosition("driver-1")
		assert.False(t, ok)
	})
}

func TestSubscribeReplaysCachedPosition(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockPositionRepository(ctrl)
	g := newTestGateway(t, repo)

	driver := g.Register(driverIdentity("driver-1"))
	drainEvents(driver)

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record models.PositionRecord) (models.PositionRecord, error) {
			record.ID = 7
			return record, nil
		})

	g.HandleRaw(context.Background(), driver, []byte(`{
		"type": "location_update",
		"deliveryId": "delivery-1",
		"coordinates": {"latitude": 10, "longitude": 20}
	}`))
	drainEvents(driver)

	lateJoiner := g.Register(customerIdentity("customer-1"))
	drainEvents(lateJoiner)

	g.Subscribe(lateJoiner.ID, "delivery-1")

	events := drainEvents(lateJoiner)
	require.Equal(t,
		[]models.MessageType{models.EvtSubscribed, models.EvtLocationUpdate},
		eventTypes(events),
	)
	assert.Equal(t, "driver-1", events[1].DriverID)
	require.NotNil(t, events[1].Coordinates)
	assert.Equal(t, 10.0, events[1].Coordinates.Latitude)

	// subscribing to a delivery nobody reported on replays nothing
	g.Subscribe(lateJoiner.ID, "delivery-2")
	require.Equal(t,
		[]models.MessageType{models.EvtSubscribed},
		eventTypes(drainEvents(lateJoiner)),
	)
}

func TestDriverStatus(t *testing.T) {
	statusMessage := func(status string) []byte {
		return []byte(`{"type": "driver_status", "status": "` + status + `"}`)
	}

	t.Run("success: full lifecycle broadcast to everyone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

		driver := g.Register(driverIdentity("driver-1"))
		observer := g.Register(customerIdentity("customer-1"))
		drainEvents(driver)
		drainEvents(observer)

		ctx := context.Background()
		g.HandleRaw(ctx, driver, statusMessage("online"))
		g.HandleRaw(ctx, driver, statusMessage("busy"))
		g.HandleRaw(ctx, driver, statusMessage("offline"))

		assert.Equal(t, models.DriverOffline, g.DriverPresence("driver-1"))

		// observer never subscribed to anything, presence is still global
		observerEvents := drainEvents(observer)
		require.Equal(t,
			[]models.MessageType{
				models.EvtDriverStatusChange,
				models.EvtDriverStatusChange,
				models.EvtDriverStatusChange,
			},
			eventTypes(observerEvents),
		)
		require.NotNil(t, observerEvents[0].Data)
		assert.Equal(t, "online", observerEvents[0].Data.Status)
		assert.Equal(t, "busy", observerEvents[1].Data.Status)
		assert.Equal(t, "offline", observerEvents[2].Data.Status)
		assert.Equal(t, "driver-1", observerEvents[0].DriverID)

		driverEvents := drainEvents(driver)
		require.Len(t, driverEvents, 6)
		assert.Equal(t, models.EvtStatusAcknowledged, driverEvents[0].Type)
		assert.Equal(t, "online", driverEvents[0].Status)
	})

	t.Run("error: busy directly from offline", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

		driver := g.Register(driverIdentity("driver-1"))
		observer := g.Register(customerIdentity("customer-1"))
		drainEvents(driver)
		drainEvents(observer)

		g.HandleRaw(context.Background(), driver, statusMessage("busy"))

		events := drainEvents(driver)
		require.Len(t, events, 1)
		assert.Equal(t, models.EvtError, events[0].Type)
		assert.Equal(t, "invalid status transition", events[0].Message)

		assert.Equal(t, models.DriverOffline, g.DriverPresence("driver-1"))
		assert.Empty(t, drainEvents(observer))
	})

	t.Run("success: repeating the current status is not broadcast", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

		driver := g.Register(driverIdentity("driver-1"))
		observer := g.Register(customerIdentity("customer-1"))
		drainEvents(driver)
		drainEvents(observer)

		ctx := context.Background()

		// a driver that never went online announces offline: nothing changed,
		// so nobody else hears about it
		g.HandleRaw(ctx, driver, statusMessage("offline"))

		events := drainEvents(driver)
		require.Len(t, events, 1)
		assert.Equal(t, models.EvtStatusAcknowledged, events[0].Type)
		assert.Equal(t, "offline", events[0].Status)
		assert.Empty(t, drainEvents(observer))
		assert.Equal(t, models.DriverOffline, g.DriverPresence("driver-1"))

		// same for re-announcing an active status
		g.HandleRaw(ctx, driver, statusMessage("online"))
		drainEvents(driver)
		drainEvents(observer)

		g.HandleRaw(ctx, driver, statusMessage("online"))

		events = drainEvents(driver)
		require.Len(t, events, 1)
		assert.Equal(t, models.EvtStatusAcknowledged, events[0].Type)
		assert.Empty(t, drainEvents(observer))
		assert.Equal(t, models.DriverOnline, g.DriverPresence("driver-1"))
	})

	t.Run("error: customer may not change presence", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

		customer := g.Register(customerIdentity("customer-1"))
		drainEvents(customer)

		g.HandleRaw(context.Background(), customer, statusMessage("online"))

		events := drainEvents(customer)
		require.Len(t, events, 1)
		assert.Equal(t, models.EvtError, events[0].Type)
	})
}

func TestUnregisterCascade(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockPositionRepository(ctrl)
	g := newTestGateway(t, repo)

	driver := g.Register(driverIdentity("driver-1"))
	observer := g.Register(customerIdentity("customer-1"))
	g.Subscribe(driver.ID, "delivery-1")
	g.Subscribe(observer.ID, "delivery-1")
	g.Subscribe(driver.ID, "delivery-2")
	drainEvents(driver)
	drainEvents(observer)

	ctx := context.Background()
	g.HandleRaw(ctx, driver, []byte(`{"type": "driver_status", "status": "online"}`))

	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record models.PositionRecord) (models.PositionRecord, error) {
			return record, nil
		})
	g.HandleRaw(ctx, driver, []byte(`{
		"type": "location_update",
		"deliveryId": "delivery-1",
		"coordinates": {"latitude": 1, "longitude": 2}
	}`))
	drainEvents(driver)
	drainEvents(observer)

	g.Unregister(driver.ID)

	assert.Equal(t, 1, g.ConnectedClientCount())
	// delivery-2 had only the driver subscribed, its entry is pruned
	assert.Equal(t, map[string]int{"delivery-1": 1}, g.ActiveSubscriptions())
	assert.Equal(t, models.DriverOffline, g.DriverPresence("driver-1"))
	_, ok := g.CachedPosition("driver-1")
	assert.False(t, ok)

	// remaining connections are told the driver went offline
	events := drainEvents(observer)
	require.Len(t, events, 1)
	assert.Equal(t, models.EvtDriverStatusChange, events[0].Type)
	assert.Equal(t, "driver-1", events[0].DriverID)
	require.NotNil(t, events[0].Data)
	assert.Equal(t, "offline", events[0].Data.Status)

	// the driver's own channel is closed
	_, open := <-driver.Events()
	assert.False(t, open)

	// unregister is idempotent
	g.Unregister(driver.ID)
	assert.Equal(t, 1, g.ConnectedClientCount())
	assert.Empty(t, drainEvents(observer))
}

func TestHandleRaw(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	client := g.Register(customerIdentity("customer-1"))
	drainEvents(client)
	ctx := context.Background()

	tests := []struct {
		name        string
		frame       string
		wantType    models.MessageType
		wantMessage string
	}{
		{
			name:        "malformed json",
			frame:       `{"type": "subscribe_delivery"`,
			wantType:    models.EvtError,
			wantMessage: "malformed message",
		},
		{
			name:        "unknown type",
			frame:       `{"type": "teleport"}`,
			wantType:    models.EvtError,
			wantMessage: models.ErrUnknownMessageType.Error(),
		},
		{
			name:        "missing deliveryId",
			frame:       `{"type": "subscribe_delivery"}`,
			wantType:    models.EvtError,
			wantMessage: models.ErrMissingDeliveryID.Error(),
		},
		{
			name:        "second connect",
			frame:       `{"type": "connect", "token": "whatever"}`,
			wantType:    models.EvtError,
			wantMessage: "already connected",
		},
		{
			name:     "ping",
			frame:    `{"type": "ping"}`,
			wantType: models.EvtPong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.HandleRaw(ctx, client, []byte(tt.frame))

			events := drainEvents(client)
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantType, events[0].Type)
			assert.Equal(t, tt.wantMessage, events[0].Message)
		})
	}

	// connection survives every rejected frame
	assert.Equal(t, 1, g.ConnectedClientCount())
}

func TestPongCarriesServerTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	client := g.Register(customerIdentity("customer-1"))
	drainEvents(client)

	g.HandleRaw(context.Background(), client, []byte(`{"type": "ping"}`))

	events := drainEvents(client)
	require.Len(t, events, 1)
	assert.Equal(t, testClock.UnixMilli(), events[0].ServerTime)
}

func TestAnnouncements(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	subscriber := g.Register(customerIdentity("customer-1"))
	outsider := g.Register(customerIdentity("customer-2"))
	g.Subscribe(subscriber.ID, "delivery-1")
	drainEvents(subscriber)
	drainEvents(outsider)

	g.AnnounceDeliveryStatusChange("delivery-1", "picked_up", "driver-1")
	g.AnnounceDriverAssignment("delivery-1", "driver-1")

	events := drainEvents(subscriber)
	require.Equal(t,
		[]models.MessageType{models.EvtDeliveryStatusChange, models.EvtDriverAssigned},
		eventTypes(events),
	)
	require.NotNil(t, events[0].Data)
	assert.Equal(t, "picked_up", events[0].Data.Status)
	assert.Equal(t, "driver-1", events[0].DriverID)
	require.NotNil(t, events[1].Data)
	assert.Equal(t, "assigned", events[1].Data.Action)

	// announcements are scoped to the delivery's subscribers
	assert.Empty(t, drainEvents(outsider))
}

func TestToAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	first := g.Register(customerIdentity("customer-1"))
	second := g.Register(driverIdentity("driver-1"))
	drainEvents(first)
	drainEvents(second)

	g.ToAll(models.NewErrorEvent("maintenance in 5 minutes", testClock))

	require.Len(t, drainEvents(first), 1)
	require.Len(t, drainEvents(second), 1)
}

func TestShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := newTestGateway(t, mock.NewMockPositionRepository(ctrl))

	first := g.Register(customerIdentity("customer-1"))
	second := g.Register(driverIdentity("driver-1"))
	g.Subscribe(first.ID, "delivery-1")

	g.Shutdown()

	assert.Equal(t, 0, g.ConnectedClientCount())
	assert.Empty(t, g.ActiveSubscriptions())

	// обе очереди закрыты
	for _, c := range []*Client{first, second} {
		for {
			if _, open := <-c.Events(); !open {
				break
			}
		}
	}
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	g := NewGateway(mock.NewMockPositionRepository(ctrl), config.Gateway{SendBufferSize: 1}, logger.Nop())
	g.now = func() time.Time { return testClock }

	client := g.Register(customerIdentity("customer-1"))

	// buffer of one already holds the connected event; both sends must not block
	g.ToAll(models.NewPongEvent(testClock))
	g.ToAll(models.NewPongEvent(testClock))

	events := drainEvents(client)
	require.Len(t, events, 1)
	assert.Equal(t, models.EvtConnected, events[0].Type)
	assert.Equal(t, 1, g.ConnectedClientCount())
}
