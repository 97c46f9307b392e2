package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/ayael01/tazrim/src/config"
	"github.com/ayael01/tazrim/src/database"
	"github.com/ayael01/tazrim/src/handlers"
	"github.com/ayael01/tazrim/src/logger"
	"github.com/ayael01/tazrim/src/services"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

func rateLimitMiddleware(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(config.Cfg.RateLimitInterval), config.Cfg.RateLimitBurst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Tazrim backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing skip-log cache...")
	skipLogCache := cache.New(config.Cfg.SkipLogRetention, 2*config.Cfg.SkipLogRetention)

	logger.L.Info("Initializing services and handlers...")
	importService := services.NewImportService(config.Cfg.DefaultCurrency, skipLogCache)
	draftService := services.NewDraftService(config.Cfg.DefaultCurrency, skipLogCache)

	importHandler := handlers.NewImportHandler(importService)
	draftHandler := handlers.NewDraftHandler(draftService)
	categoryHandler := handlers.NewCategoryHandler()

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/imports", importHandler.HandleImport)
	apiRouter.HandleFunc("GET /api/imports", importHandler.HandleListImports)
	apiRouter.HandleFunc("DELETE /api/imports/{id}", importHandler.HandleDeleteImport)
	apiRouter.HandleFunc("GET /api/imports/{id}/skipped", importHandler.HandleGetSkippedRows)

	apiRouter.HandleFunc("POST /api/drafts", draftHandler.HandleCreateDraft)
	apiRouter.HandleFunc("GET /api/drafts", draftHandler.HandleListDrafts)
	apiRouter.HandleFunc("GET /api/drafts/{id}", draftHandler.HandleGetDraft)
	apiRouter.HandleFunc("GET /api/drafts/{id}/skipped", importHandler.HandleGetDraftSkippedRows)
	apiRouter.HandleFunc("PATCH /api/drafts/{id}/rows/{rowID}", draftHandler.HandleSetRowApproval)
	apiRouter.HandleFunc("POST /api/drafts/{id}/commit", draftHandler.HandleCommitDraft)
	apiRouter.HandleFunc("DELETE /api/drafts/{id}", draftHandler.HandleDiscardDraft)

	apiRouter.HandleFunc("GET /api/categories", categoryHandler.HandleListCategories)
	apiRouter.HandleFunc("POST /api/categories", categoryHandler.HandleCreateCategory)
	apiRouter.HandleFunc("GET /api/entities/unmapped", categoryHandler.HandleListUnmappedEntities)
	apiRouter.HandleFunc("PUT /api/entities/{id}/category", categoryHandler.HandleAssignEntityCategory)
	apiRouter.HandleFunc("PATCH /api/activities/{id}/category", categoryHandler.HandleSetActivityCategory)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Tazrim backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
