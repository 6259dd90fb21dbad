package service

import (
	"context"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/errors"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
)

// orderStore is the slice of storage the order service uses.
type orderStore interface {
	CreateOrder(ctx context.Context, order *storage.Order) error
	GetOrder(ctx context.Context, id, companyID string) (*storage.Order, error)
	GetOrderWithDetails(ctx context.Context, id, companyID string) (*storage.OrderWithDetails, error)
	ListOrders(ctx context.Context, companyID string, filter storage.OrderFilter) ([]*storage.Order, error)
	UpdateOrder(ctx context.Context, id, companyID string, patch storage.OrderPatch) (*storage.Order, error)
	ShipOrder(ctx context.Context, id, companyID, trackingNumber string) (*storage.Order, error)
	GetPatient(ctx context.Context, id, companyID string) (*storage.Patient, error)
	GetOrderStats(ctx context.Context, companyID string) (*storage.OrderStats, error)
}

// createOrderRetries bounds re-attempts on order number collisions.
const createOrderRetries = 3

// OrderService handles lab order business logic
type OrderService struct {
	store     orderStore
	publisher *events.ClinicEventPublisher
	logger    *logger.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store orderStore, publisher *events.ClinicEventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// CreateOrderRequest carries the fields to place a lab order
type CreateOrderRequest struct {
	PatientID      string  `json:"patient_id" validate:"required,uuid"`
	EcpID          string  `json:"ecp_id" validate:"required,uuid"`
	PrescriptionID *string `json:"prescription_id,omitempty" validate:"omitempty,uuid"`
	LensType       *string `json:"lens_type,omitempty" validate:"omitempty,max=100"`
	Notes          *string `json:"notes,omitempty"`
	TotalCents     int64   `json:"total_cents" validate:"omitempty,gt=0"`
}

// Create places a lab order. The patient must exist in the calling
// company. Order number collisions are retried with a fresh number.
func (s *OrderService) Create(ctx context.Context, companyID string, req CreateOrderRequest) (*storage.Order, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.store.GetPatient(ctx, req.PatientID, companyID); err != nil {
		return nil, err
	}

	var order *storage.Order
	for attempt := 0; ; attempt++ {
		order = &storage.Order{
			CompanyID:      companyID,
			PatientID:      req.PatientID,
			EcpID:          req.EcpID,
			PrescriptionID: req.PrescriptionID,
			LensType:       req.LensType,
			Notes:          req.Notes,
			TotalCents:     req.TotalCents,
		}

		err := s.store.CreateOrder(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, errors.ErrConflict) && attempt < createOrderRetries {
			continue
		}
		return nil, err
	}

	s.publisher.PublishOrderCreated(ctx, order)

	s.logger.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("company_id", companyID).
		Msg("order created")

	return order, nil
}

// Get gets an order by ID
func (s *OrderService) Get(ctx context.Context, id, companyID string) (*storage.Order, error) {
	return s.store.GetOrder(ctx, id, companyID)
}

// GetWithDetails gets an order joined with patient and ECP summaries
func (s *OrderService) GetWithDetails(ctx context.Context, id, companyID string) (*storage.OrderWithDetails, error) {
	return s.store.GetOrderWithDetails(ctx, id, companyID)
}

// List lists orders with filters
func (s *OrderService) List(ctx context.Context, companyID string, filter storage.OrderFilter) ([]*storage.Order, error) {
	return s.store.ListOrders(ctx, companyID, filter)
}

// UpdateStatus transitions an order to a new status
func (s *OrderService) UpdateStatus(ctx context.Context, id, companyID, status string) (*storage.Order, error) {
	current, err := s.store.GetOrder(ctx, id, companyID)
	if err != nil {
		return nil, err
	}

	order, err := s.store.UpdateOrder(ctx, id, companyID, storage.OrderPatch{Status: &status})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderStatusChanged(ctx, order, current.Status)

	return order, nil
}

// Update applies a partial update to an order
func (s *OrderService) Update(ctx context.Context, id, companyID string, patch storage.OrderPatch) (*storage.Order, error) {
	return s.store.UpdateOrder(ctx, id, companyID, patch)
}

// Ship records the shipping action and publishes the shipped event
func (s *OrderService) Ship(ctx context.Context, id, companyID, trackingNumber string) (*storage.Order, error) {
	if trackingNumber == "" {
		return nil, errors.BadRequest("tracking number is required")
	}

	order, err := s.store.ShipOrder(ctx, id, companyID, trackingNumber)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishOrderShipped(ctx, order)

	s.logger.Info().
		Str("order_id", order.ID).
		Str("tracking_number", trackingNumber).
		Msg("order shipped")

	return order, nil
}

// Stats aggregates order counts and revenue for the company
func (s *OrderService) Stats(ctx context.Context, companyID string) (*storage.OrderStats, error) {
	return s.store.GetOrderStats(ctx, companyID)
}
