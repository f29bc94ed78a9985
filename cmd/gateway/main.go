package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Artemka2031/finance-control-sub000/internal/analytics"
	"github.com/Artemka2031/finance-control-sub000/internal/api/handlers"
	"github.com/Artemka2031/finance-control-sub000/internal/api/middleware"
	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/config"
	"github.com/Artemka2031/finance-control-sub000/internal/document"
	"github.com/Artemka2031/finance-control-sub000/internal/logger"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
	"github.com/Artemka2031/finance-control-sub000/internal/sheet"
	"github.com/Artemka2031/finance-control-sub000/internal/tasks"
	"github.com/Artemka2031/finance-control-sub000/internal/tasks/sqlite"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Sheet.SpreadsheetID == "" {
		log.Fatal().Msg("No spreadsheet configured - set LEDGER_SHEET_SPREADSHEET_ID or a config file")
	}

	ctx := context.Background()

	// Construction order matters: the schema builder depends on the document
	// cache, the engine on the builder, the scheduler on everything above.
	client, err := sheet.NewGoogleClient(ctx, cfg.Sheet.SpreadsheetID, cfg.Sheet.WorksheetName,
		cfg.Sheet.CredentialsFile, cfg.Sheet.MaxRows, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheet client")
	}

	var store cache.Store
	redisStore, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, falling back to in-process cache")
		store = cache.NewMemory()
	} else {
		defer redisStore.Close()
		store = redisStore
	}

	doc := document.NewCache(client, store, log)
	builder := schema.NewBuilder(doc, store, log)
	engine := analytics.NewEngine(builder, doc, store, log)

	taskStore, err := sqlite.Open(cfg.Tasks.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Tasks.DBPath).Msg("Failed to open task store")
	}
	defer taskStore.Close()

	exec := tasks.NewExecutor(client, builder, taskStore, log)
	inv := tasks.NewInvalidator(store, doc, builder, engine, cfg.Tasks.RefreshDebounce, log)
	sched := tasks.NewScheduler(taskStore, exec, inv, log)
	sched.Start()

	// Prime the schema and the hot aggregates before serving traffic. A
	// failure here is not fatal: the document may be temporarily unreachable
	// and every read path retries on demand.
	if _, err := builder.Schema(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial schema build failed, will retry on first request")
	} else {
		engine.WarmCache(ctx)
	}

	opsHandler := handlers.NewOperationsHandler(sched, log)
	tasksHandler := handlers.NewTasksHandler(sched, log)
	analyticsHandler := handlers.NewAnalyticsHandler(engine, log)
	cacheHandler := handlers.NewCacheHandler(inv, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/operations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			opsHandler.Submit(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			tasksHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tasks/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			taskID := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
			if taskID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Task ID is required")
				return
			}
			tasksHandler.Get(w, r, taskID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/day", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Day(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/month", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Month(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/period", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Period(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/overview", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.Overview(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/cache/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			cacheHandler.Refresh(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting ledger gateway")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain mutation tasks before closing the stores they write through.
	sched.Stop()
	inv.Stop()

	log.Info().Msg("Server exited")
}
