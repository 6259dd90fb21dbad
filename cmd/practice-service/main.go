package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/optilens/optilens-backend/internal/clinic/events"
	"github.com/optilens/optilens-backend/internal/clinic/handler"
	"github.com/optilens/optilens-backend/internal/clinic/service"
	"github.com/optilens/optilens-backend/internal/storage"
	"github.com/optilens/optilens-backend/pkg/config"
	"github.com/optilens/optilens-backend/pkg/database"
	"github.com/optilens/optilens-backend/pkg/httputil"
	"github.com/optilens/optilens-backend/pkg/logger"
	"github.com/optilens/optilens-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.Load("practice-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithLevel("practice-service", cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Practice Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewClinicEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize store
	store := storage.New(db, log)

	// Initialize services
	patientService := service.NewPatientService(store, publisher, log)
	orderService := service.NewOrderService(store, publisher, log)
	invoiceService := service.NewInvoiceService(store, publisher, log)
	userService := service.NewUserService(store, publisher, log)
	clinicalService := service.NewClinicalService(store, publisher, log)
	inventoryService := service.NewInventoryService(store, log)
	workflowService := service.NewWorkflowService(store, log)
	companyService := service.NewCompanyService(store, log)

	// Initialize handlers
	patientHandler := handler.NewPatientHandler(patientService, log)
	orderHandler := handler.NewOrderHandler(orderService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, log)
	userHandler := handler.NewUserHandler(userService, log)
	clinicalHandler := handler.NewClinicalHandler(clinicalService, log)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, log)
	workflowHandler := handler.NewWorkflowHandler(workflowService, log)
	companyHandler := handler.NewCompanyHandler(companyService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// CORS - permissive for local development, locked to the app domain otherwise
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			return strings.HasSuffix(origin, ".optilens.app")
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Company-ID", "X-User-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "practice-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Tenant registration is the one endpoint without a company context
		r.Post("/companies", companyHandler.Register)

		// Everything else requires the company header
		r.Group(func(r chi.Router) {
			r.Use(httputil.CompanyContext)

			r.Route("/company", func(r chi.Router) {
				r.Get("/", companyHandler.Get)
				r.Put("/", companyHandler.Update)
			})

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", patientHandler.List)
				r.Post("/", patientHandler.Create)
				r.Get("/{id}", patientHandler.Get)
				r.Put("/{id}", patientHandler.Update)
				r.Delete("/{id}", patientHandler.Delete)
				r.Get("/{id}/examinations", clinicalHandler.ListExaminations)
				r.Get("/{id}/prescriptions", clinicalHandler.ListPrescriptions)
				r.Get("/{id}/records", clinicalHandler.ListMedicalRecords)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.List)
				r.Post("/", orderHandler.Create)
				r.Get("/stats", orderHandler.Stats)
				r.Get("/{id}", orderHandler.Get)
				r.Put("/{id}/status", orderHandler.UpdateStatus)
				r.Post("/{id}/ship", orderHandler.Ship)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", invoiceHandler.List)
				r.Post("/", invoiceHandler.Create)
				r.Get("/{id}", invoiceHandler.Get)
				r.Post("/{id}/payments", invoiceHandler.RecordPayment)
				r.Post("/{id}/void", invoiceHandler.Void)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Get("/stats", userHandler.Stats)
				r.Get("/{id}", userHandler.Get)
				r.Get("/{id}/roles", userHandler.AvailableRoles)
				r.Post("/{id}/roles", userHandler.GrantRole)
				r.Put("/{id}/role", userHandler.SwitchRole)
			})

			r.Route("/examinations", func(r chi.Router) {
				r.Post("/", clinicalHandler.CreateExamination)
				r.Get("/{id}", clinicalHandler.GetExamination)
			})

			r.Route("/prescriptions", func(r chi.Router) {
				r.Post("/", clinicalHandler.CreatePrescription)
				r.Get("/{id}", clinicalHandler.GetPrescription)
				r.Post("/{id}/sign", clinicalHandler.SignPrescription)
			})

			r.Route("/records", func(r chi.Router) {
				r.Post("/", clinicalHandler.CreateMedicalRecord)
			})

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", clinicalHandler.ListBookings)
				r.Post("/", clinicalHandler.CreateBooking)
				r.Get("/{id}", clinicalHandler.GetBooking)
				r.Put("/{id}/status", clinicalHandler.UpdateBookingStatus)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", inventoryHandler.ListProducts)
				r.Post("/", inventoryHandler.CreateProduct)
				r.Get("/{id}", inventoryHandler.GetProduct)
				r.Put("/{id}", inventoryHandler.UpdateProduct)
				r.Delete("/{id}", inventoryHandler.DeleteProduct)
			})

			r.Route("/purchase-orders", func(r chi.Router) {
				r.Get("/", inventoryHandler.ListPurchaseOrders)
				r.Post("/", inventoryHandler.CreatePurchaseOrder)
				r.Get("/{id}", inventoryHandler.GetPurchaseOrder)
				r.Put("/{id}", inventoryHandler.UpdatePurchaseOrder)
			})

			r.Route("/workflows", func(r chi.Router) {
				r.Get("/", workflowHandler.List)
				r.Post("/", workflowHandler.Create)
				r.Post("/instances", workflowHandler.StartInstance)
				r.Get("/instances/{id}", workflowHandler.GetInstance)
				r.Post("/instances/{id}/complete", workflowHandler.CompleteInstance)
				r.Get("/{id}", workflowHandler.Get)
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
