package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/messaging"
	"github.com/optilens/optilens-backend/pkg/testutil"
)

// stubOrderStore implements orderStore with overridable function fields.
type stubOrderStore struct {
	createOrder         func(ctx context.Context, order *storage.Order) error
	getOrder            func(ctx context.Context, id, companyID string) (*storage.Order, error)
	getOrderWithDetails func(ctx context.Context, id, companyID string) (*storage.OrderWithDetails, error)
	listOrders          func(ctx context.Context, companyID string, filter storage.OrderFilter) ([]*storage.Order, error)
	updateOrder         func(ctx context.Context, id, companyID string, patch storage.OrderPatch) (*storage.Order, error)
	shipOrder           func(ctx context.Context, id, companyID, trackingNumber string) (*storage.Order, error)
	getPatient          func(ctx context.Context, id, companyID string) (*storage.Patient, error)
	getOrderStats       func(ctx context.Context, companyID string) (*storage.OrderStats, error)
}

func (s *stubOrderStore) CreateOrder(ctx context.Context, order *storage.Order) error {
	return s.createOrder(ctx, order)
}

func (s *stubOrderStore) GetOrder(ctx context.Context, id, companyID string) (*storage.Order, error) {
	return s.getOrder(ctx, id, companyID)
}

func (s *stubOrderStore) GetOrderWithDetails(ctx context.Context, id, companyID string) (*storage.OrderWithDetails, error) {
	return s.getOrderWithDetails(ctx, id, companyID)
}

func (s *stubOrderStore) ListOrders(ctx context.Context, companyID string, filter storage.OrderFilter) ([]*storage.Order, error) {
	return s.listOrders(ctx, companyID, filter)
}

func (s *stubOrderStore) UpdateOrder(ctx context.Context, id, companyID string, patch storage.OrderPatch) (*storage.Order, error) {
	return s.updateOrder(ctx, id, companyID, patch)
}

func (s *stubOrderStore) ShipOrder(ctx context.Context, id, companyID, trackingNumber string) (*storage.Order, error) {
	return s.shipOrder(ctx, id, companyID, trackingNumber)
}

func (s *stubOrderStore) GetPatient(ctx context.Context, id, companyID string) (*storage.Patient, error) {
	return s.getPatient(ctx, id, companyID)
}

func (s *stubOrderStore) GetOrderStats(ctx context.Context, companyID string) (*storage.OrderStats, error) {
	return s.getOrderStats(ctx, companyID)
}

func newRecordedPublisher() (*events.ClinicEventPublisher, *testutil.MockPublisher) {
	mock := &testutil.MockPublisher{}
	return events.NewWithPublisher(mock, logger.Nop()), mock
}

func TestOrderCreate_RetriesOnNumberCollision(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	attempts := 0
	store := &stubOrderStore{
		getPatient: func(ctx context.Context, id, companyID string) (*storage.Patient, error) {
			return &storage.Patient{ID: id, CompanyID: companyID}, nil
		},
		createOrder: func(ctx context.Context, order *storage.Order) error {
			attempts++
			if attempts < 3 {
				return errors.Conflict("order number already exists")
			}
			order.ID = uuid.New().String()
			order.OrderNumber = "ORD-2026-000123"
			return nil
		},
	}
	svc := NewOrderService(store, publisher, logger.Nop())

	order, err := svc.Create(context.Background(), "company-1", CreateOrderRequest{
		PatientID: uuid.New().String(),
		EcpID:     uuid.New().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "ORD-2026-000123", order.OrderNumber)
	assert.Equal(t, []string{messaging.EventOrderCreated}, mock.EventTypes())
}

func TestOrderCreate_GivesUpAfterRetryBudget(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	attempts := 0
	store := &stubOrderStore{
		getPatient: func(ctx context.Context, id, companyID string) (*storage.Patient, error) {
			return &storage.Patient{ID: id, CompanyID: companyID}, nil
		},
		createOrder: func(ctx context.Context, order *storage.Order) error {
			attempts++
			return errors.Conflict("order number already exists")
		},
	}
	svc := NewOrderService(store, publisher, logger.Nop())

	order, err := svc.Create(context.Background(), "company-1", CreateOrderRequest{
		PatientID: uuid.New().String(),
		EcpID:     uuid.New().String(),
	})
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Equal(t, createOrderRetries+1, attempts)
	assert.Empty(t, mock.EventTypes())
}

func TestOrderCreate_UnknownPatientStopsBeforeInsert(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	store := &stubOrderStore{
		getPatient: func(ctx context.Context, id, companyID string) (*storage.Patient, error) {
			return nil, errors.NotFound("patient")
		},
		createOrder: func(ctx context.Context, order *storage.Order) error {
			t.Fatal("CreateOrder must not be called for an unknown patient")
			return nil
		},
	}
	svc := NewOrderService(store, publisher, logger.Nop())

	order, err := svc.Create(context.Background(), "company-1", CreateOrderRequest{
		PatientID: uuid.New().String(),
		EcpID:     uuid.New().String(),
	})
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, mock.EventTypes())
}

func TestOrderUpdateStatus_PublishesTransition(t *testing.T) {
	publisher, mock := newRecordedPublisher()

	store := &stubOrderStore{
		getOrder: func(ctx context.Context, id, companyID string) (*storage.Order, error) {
			return &storage.Order{ID: id, CompanyID: companyID, Status: storage.OrderStatusPending}, nil
		},
		updateOrder: func(ctx context.Context, id, companyID string, patch storage.OrderPatch) (*storage.Order, error) {
			return &storage.Order{ID: id, CompanyID: companyID, Status: *patch.Status}, nil
		},
	}
	svc := NewOrderService(store, publisher, logger.Nop())

	order, err := svc.UpdateStatus(context.Background(), "order-1", "company-1", storage.OrderStatusInProduction)
	require.NoError(t, err)
	assert.Equal(t, storage.OrderStatusInProduction, order.Status)

	require.Len(t, mock.Published, 1)
	event, ok := mock.Published[0].Data.(messaging.OrderStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, storage.OrderStatusPending, event.OldStatus)
	assert.Equal(t, storage.OrderStatusInProduction, event.NewStatus)
}

func TestOrderShip_RequiresTrackingNumber(t *testing.T) {
	publisher, mock := newRecordedPublisher()
	svc := NewOrderService(&stubOrderStore{}, publisher, logger.Nop())

	order, err := svc.Ship(context.Background(), "order-1", "company-1", "")
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
	assert.Empty(t, mock.EventTypes())
}
