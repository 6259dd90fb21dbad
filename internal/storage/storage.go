// Package storage is the tenant-scoped persistence layer. Every method
// on Store takes the calling company's ID explicitly and folds it into
// the SQL predicate, so a row belonging to another company is
// indistinguishable from a row that does not exist. Unscoped access
// lives on the Internal type and is reached only via Store.Internal().
package storage

import (
	"context"
	"encoding/json"

	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store is the tenant-scoped data access layer.
type Store struct {
	db  *database.DB
	log *logger.Logger
}

// New builds a Store on top of an open connection pool.
func New(db *database.DB, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithComponent("storage"),
	}
}

// ListOptions carries pagination for list queries. The zero value is
// valid and means the first page at the default size.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) limits() (limit, offset int) {
	limit = o.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset = o.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// TenantStore is the scoped surface consumed by request-path services.
// It deliberately excludes the unscoped accessors on InternalStore, so
// handing a service this interface makes a cross-tenant read a compile
// error rather than a code-review catch.
type TenantStore interface {
	// Companies
	CreateCompany(ctx context.Context, company *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (*Company, error)
	UpdateCompany(ctx context.Context, id string, patch CompanyPatch) (*Company, error)

	// Users and roles
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id, companyID string) (*User, error)
	GetUserByEmail(ctx context.Context, email, companyID string) (*User, error)
	GetSupplier(ctx context.Context, id, companyID string) (*User, error)
	ListUsers(ctx context.Context, companyID string, filter UserFilter) ([]*User, error)
	UpdateUser(ctx context.Context, id, companyID string, patch UserPatch) (*User, error)
	AvailableRoles(ctx context.Context, userID, companyID string) ([]string, error)
	GrantUserRole(ctx context.Context, userID, companyID, role string, grantedBy *string) error
	SwitchUserRole(ctx context.Context, userID, companyID, newRole string) (*User, error)

	// Patients
	CreatePatient(ctx context.Context, patient *Patient) error
	GetPatient(ctx context.Context, id, companyID string) (*Patient, error)
	ListPatients(ctx context.Context, companyID string, filter PatientFilter) ([]*Patient, error)
	UpdatePatient(ctx context.Context, id, companyID string, patch PatientPatch) (*Patient, error)
	DeletePatient(ctx context.Context, id, companyID string) error

	// Orders
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id, companyID string) (*Order, error)
	GetOrderWithDetails(ctx context.Context, id, companyID string) (*OrderWithDetails, error)
	ListOrders(ctx context.Context, companyID string, filter OrderFilter) ([]*Order, error)
	UpdateOrder(ctx context.Context, id, companyID string, patch OrderPatch) (*Order, error)
	ShipOrder(ctx context.Context, id, companyID, trackingNumber string) (*Order, error)

	// Invoices
	CreateInvoice(ctx context.Context, invoice *Invoice, items []*InvoiceLineItem) error
	GetInvoice(ctx context.Context, id, companyID string) (*Invoice, error)
	GetInvoiceWithDetails(ctx context.Context, id, companyID string) (*InvoiceWithDetails, error)
	ListInvoices(ctx context.Context, companyID string, filter InvoiceFilter) ([]*Invoice, error)
	RecordPayment(ctx context.Context, id, companyID string, amountCents int64) (*Invoice, error)
	VoidInvoice(ctx context.Context, id, companyID string) (*Invoice, error)

	// Purchase orders
	CreatePurchaseOrder(ctx context.Context, po *PurchaseOrder, items []*POLineItem) error
	GetPurchaseOrder(ctx context.Context, id, companyID string) (*PurchaseOrder, error)
	GetPurchaseOrderWithDetails(ctx context.Context, id, companyID string) (*PurchaseOrderWithDetails, error)
	ListPurchaseOrders(ctx context.Context, companyID string, filter PurchaseOrderFilter) ([]*PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, id, companyID string, patch PurchaseOrderPatch) (*PurchaseOrder, error)

	// Clinical
	CreateExamination(ctx context.Context, exam *EyeExamination) error
	GetExamination(ctx context.Context, id, companyID string) (*EyeExamination, error)
	ListExaminations(ctx context.Context, companyID, patientID string, opts ListOptions) ([]*EyeExamination, error)
	CreatePrescription(ctx context.Context, rx *Prescription) error
	GetPrescription(ctx context.Context, id, companyID string) (*Prescription, error)
	ListPrescriptions(ctx context.Context, companyID, patientID string, opts ListOptions) ([]*Prescription, error)
	SignPrescription(ctx context.Context, id, companyID, ecpID, signature string) (*Prescription, error)
	CreateMedicalRecord(ctx context.Context, record *MedicalRecord) error
	ListMedicalRecords(ctx context.Context, companyID, patientID string, opts ListOptions) ([]*MedicalRecord, error)
	CreateBooking(ctx context.Context, booking *AppointmentBooking) error
	GetBooking(ctx context.Context, id, companyID string) (*AppointmentBooking, error)
	ListBookings(ctx context.Context, companyID string, ecpID, status *string, opts ListOptions) ([]*AppointmentBooking, error)
	UpdateBookingStatus(ctx context.Context, id, companyID, status string) (*AppointmentBooking, error)

	// Products
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id, companyID string) (*Product, error)
	GetProductBySKU(ctx context.Context, companyID, sku string) (*Product, error)
	ListProducts(ctx context.Context, companyID string, filter ProductFilter) ([]*Product, error)
	UpdateProduct(ctx context.Context, id, companyID string, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id, companyID string) error

	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id, companyID string) (*Workflow, error)
	ListWorkflows(ctx context.Context, companyID string, opts ListOptions) ([]*Workflow, error)
	StartWorkflowInstance(ctx context.Context, instance *WorkflowInstance) error
	GetWorkflowInstance(ctx context.Context, id, companyID string) (*WorkflowInstance, error)
	CompleteWorkflowInstance(ctx context.Context, id, companyID, status string, state json.RawMessage) (*WorkflowInstance, error)
	GetRunCount(ctx context.Context, companyID, workflowID, patientID string) (int, error)

	// Aggregates
	GetOrderStats(ctx context.Context, companyID string) (*OrderStats, error)
	GetUserStats(ctx context.Context, companyID string) (*UserStats, error)
}

// InternalStore is the unscoped surface for background jobs, sign-in,
// and platform tooling. Keep it small.
type InternalStore interface {
	GetUserByIDInternal(ctx context.Context, id string) (*User, error)
	GetUserByEmailInternal(ctx context.Context, email string) (*User, error)
	GetOrderInternal(ctx context.Context, id string) (*Order, error)
	UpdateOrderLabInternal(ctx context.Context, id, jobID, jobStatus string) (*Order, error)
	UpdateOrderPDFInternal(ctx context.Context, id, pdfURL string) (*Order, error)
}

var (
	_ TenantStore   = (*Store)(nil)
	_ InternalStore = (*Internal)(nil)
)
