package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/debtflow/platform/internal/adapters/ledger"
	"github.com/debtflow/platform/internal/agency"
	"github.com/debtflow/platform/internal/allocation"
	"github.com/debtflow/platform/internal/analysis"
	"github.com/debtflow/platform/internal/calendar"
	caseapi "github.com/debtflow/platform/internal/case/api"
	casedomain "github.com/debtflow/platform/internal/case/domain"
	caseinfra "github.com/debtflow/platform/internal/case/infrastructure"
	"github.com/debtflow/platform/internal/escalation"
	"github.com/debtflow/platform/internal/region"
	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/config"
	"github.com/debtflow/platform/internal/shared/database"
	"github.com/debtflow/platform/internal/shared/events"
	"github.com/debtflow/platform/internal/shared/metrics"
	secmiddleware "github.com/debtflow/platform/internal/shared/middleware"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/debtflow/platform/internal/sla"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    events.EventBus
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Database (optional - skip if not available)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running in limited mode without database...")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// Event bus (optional - skip if not available)
	bus, err := events.NewBus(cfg.EventDB)
	if err != nil {
		fmt.Printf("Warning: EventStoreDB not available: %v\n", err)
		fmt.Println("Running without event streaming...")
		app.Bus = events.NopBus{}
	} else {
		app.Bus = bus
		defer bus.Close()
		fmt.Println("EventStoreDB Event Bus initialized")
	}

	cal, err := calendar.Load(cfg.Calendar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load business calendar: %v\n", err)
		os.Exit(1)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.RateLimiter(100, 200))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	var monitor *sla.Monitor
	var ledgerAdapter *ledger.Adapter

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		if app.DB == nil {
			return
		}

		regionRepo := region.NewRepository(app.DB.Pool)
		resolver := region.NewResolver(regionRepo)
		r.Mount("/regions", region.NewHandler(regionRepo).Routes())

		agencyRepo := agency.NewRepository(app.DB.Pool)
		r.Mount("/agencies", agency.NewHandler(agencyRepo).Routes())

		deadlineStore := sla.NewStore(app.DB.Pool, cal, cfg.SLA)

		caseRepo := caseinfra.NewPostgresRepository(app.DB.Pool)
		caseHandler := caseapi.NewHandler(caseRepo, resolver, deadlineStore, agencyRepo, app.Bus)
		r.Mount("/cases", caseHandler.Routes())

		scorer := agency.NewScorer(cfg.Scoring)
		assigner := allocation.NewPostgresAssigner(app.DB.Pool, caseRepo, agencyRepo)
		orchestrator := allocation.NewOrchestrator(caseRepo, agencyRepo, scorer, assigner, deadlineStore, app.Bus)
		r.Mount("/allocations", allocation.NewHandler(orchestrator).Routes())

		escalationRepo := escalation.NewRepository(app.DB.Pool)
		escalationSvc := escalation.NewService(escalationRepo, caseRepo, app.Bus)
		r.Mount("/escalations", escalation.NewHandler(escalationSvc, escalationRepo).Routes())

		r.Mount("/analysis", analysis.NewHandler(agencyRepo).Routes())

		monitor = sla.NewMonitor(deadlineStore, caseRepo, cal, cfg.SLA, escalationSvc)

		if cfg.Ledger.Enabled {
			intake := &ledgerIntake{
				cases:        caseRepo,
				resolver:     resolver,
				orchestrator: orchestrator,
				bus:          app.Bus,
			}
			ledgerAdapter = ledger.New(ledger.DefaultConfig(cfg.Ledger), intake)
		}
	})

	if monitor != nil {
		if err := monitor.Start(); err != nil {
			fmt.Printf("Warning: SLA monitor failed to start: %v\n", err)
		} else {
			defer monitor.Stop()
		}
	}

	if ledgerAdapter != nil {
		if err := ledgerAdapter.Start(ctx); err != nil {
			fmt.Printf("Warning: Ledger adapter failed to start: %v\n", err)
		} else {
			fmt.Println("Billing ledger adapter started")
			defer ledgerAdapter.Stop(context.Background())
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Case Routing & SLA Compliance Engine")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Breach scan:    %s\n", cfg.SLA.ScanSchedule)
	fmt.Printf("EventStoreDB:   %s:%d\n", cfg.EventDB.Host, cfg.EventDB.Port)
	fmt.Printf("Ledger intake:  %v\n", cfg.Ledger.Enabled)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

// ledgerIntake routes ledger-discovered invoices through the same
// creation and allocation paths as API intake.
type ledgerIntake struct {
	cases        *caseinfra.PostgresRepository
	resolver     *region.Resolver
	orchestrator *allocation.Orchestrator
	bus          events.EventBus
}

func (l *ledgerIntake) CreateCase(ctx context.Context, c *casedomain.Case) error {
	match, err := l.resolver.Resolve(ctx, c.Geography)
	if err == nil {
		c.RegionCode = match.Region.Code
	}

	if err := l.cases.Save(ctx, c); err != nil {
		return err
	}

	evt := events.NewEvent(events.TypeCaseCreated, c.ID.String(), map[string]any{
		"reference":   c.Reference,
		"region_code": c.RegionCode,
		"source":      "ledger",
	})
	if err := l.bus.Publish(ctx, evt); err != nil {
		fmt.Printf("Warning: failed to publish case.created: %v\n", err)
	}
	return nil
}

func (l *ledgerIntake) Allocate(ctx context.Context, caseID types.ID) error {
	_, err := l.orchestrator.Allocate(ctx, caseID, auth.Pipeline())
	return err
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Case Routing & SLA Compliance Engine",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if _, ok := app.Bus.(events.NopBus); ok {
			checks["eventstore"] = "not configured"
		} else {
			checks["eventstore"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-Pipeline-Token")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
