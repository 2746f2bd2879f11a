package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mydraw/mydraw/internal/auth"
	"github.com/mydraw/mydraw/internal/config"
	"github.com/mydraw/mydraw/internal/db"
	"github.com/mydraw/mydraw/internal/discovery"
	"github.com/mydraw/mydraw/internal/drawing"
	"github.com/mydraw/mydraw/internal/export"
	mw "github.com/mydraw/mydraw/internal/middleware"
	"github.com/mydraw/mydraw/internal/session"
	"github.com/mydraw/mydraw/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := db.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	drawingService := drawing.NewService(queries)
	hub := session.NewHub(drawingService.Load, drawingService.Persist)
	drawingHandler := drawing.NewHandler(drawingService, cfg.MaxUploadBytes, drawing.WithOpenCheck(hub.IsOpen))

	background, _ := cfg.Background()
	exportHandler := export.NewHandler(drawingService.Shapes, export.Options{
		Width:      cfg.ExportWidth,
		Height:     cfg.ExportHeight,
		Background: background,
	})

	origins := cfg.Origins()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/drawings", drawingHandler.List).Methods("GET")
	api.HandleFunc("/drawings", drawingHandler.Create).Methods("POST")
	api.HandleFunc("/drawings/import", drawingHandler.Import).Methods("POST")
	api.HandleFunc("/drawings/{drawingId}", drawingHandler.Get).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}", drawingHandler.Delete).Methods("DELETE")
	api.HandleFunc("/drawings/{drawingId}/file", drawingHandler.Download).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}/file", drawingHandler.Upload).Methods("PUT")
	api.HandleFunc("/drawings/{drawingId}/export", exportHandler.Export).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/drawings/{drawingId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, drawingService, mw.OriginPatterns(origins))
	})

	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		advertiser, err = discovery.Advertise(cfg.MDNSInstance, cfg.Port)
		if err != nil {
			slog.Warn("mDNS advertising disabled", "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		if advertiser != nil {
			advertiser.Shutdown()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		// Stop the hub first so open drawings are saved
		slog.Info("saving open drawings...")
		if err := hub.Stop(shutdownCtx); err != nil {
			slog.Error("stop sessions", "error", err)
		}
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, drawings *drawing.Service, originPatterns []string) {
	drawingID := mux.Vars(r)["drawingId"]
	if err := typeid.Validate(drawingID, typeid.PrefixDrawing); err != nil {
		http.Error(w, "drawing not found", http.StatusNotFound)
		return
	}

	// Browsers cannot set headers on a websocket upgrade, so the token
	// travels in the query string.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := drawings.Get(r.Context(), drawingID, userID); err != nil {
		switch {
		case errors.Is(err, drawing.ErrNotFound):
			http.Error(w, "drawing not found", http.StatusNotFound)
		case errors.Is(err, drawing.ErrForbidden):
			http.Error(w, "not the drawing owner", http.StatusForbidden)
		default:
			slog.Error("look up drawing", "error", err, "drawing", drawingID)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	clientID := uuid.New().String()
	s, err := hub.Open(r.Context(), drawingID, userID, clientID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrDrawingBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, session.ErrHubStopped):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			slog.Error("open session", "error", err, "drawing", drawingID)
			http.Error(w, "could not open drawing", http.StatusInternalServerError)
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		hub.Close(s)
		return
	}

	s.Serve(r.Context(), conn)
}
