package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamedex/catalog"
	"gamedex/config"
	"gamedex/core"
	"gamedex/handlers/api/collections"
	"gamedex/handlers/api/games"
	"gamedex/handlers/api/search"
	"gamedex/handlers/auth"
	authMiddleware "gamedex/middleware"
	"gamedex/realtime"
	"gamedex/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

func setupRouter(cfg *config.Config, client *catalog.Client, store core.CollectionStore, authService *auth.Service, hub *realtime.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "X-Requested-With"},
		AllowCredentials: false, // API auth is bearer-only
		MaxAge:           300,   // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]bool{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/games/{id}", games.HandleGetGame(client))
		r.Get("/search", search.HandleSearch(client))

		// Collection routes, protected by bearer auth
		collectionHandler := collections.NewHandler(store, hub)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthBearer(authService))
			r.Route("/user/collections", func(r chi.Router) {
				r.Get("/", collectionHandler.HandleList)
				r.Post("/", collectionHandler.HandleAdd)
				r.Delete("/", collectionHandler.HandleRemove)
			})
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authService.HandleLogin)
		r.Get("/callback", authService.HandleCallback)
	})

	r.Handle("/socket.io/", hub.Handler())
	return r
}

func waitForShutdown(server *http.Server, hub *realtime.Hub, store core.CollectionStore) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}

	switch closer := store.(type) {
	case interface{ Close() error }:
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close store")
		}
	case interface{ Close() }:
		closer.Close()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	listenAddress := flag.String("listen", cfg.Server.ListenAddress, "The address to listen on.")
	logLevel := flag.String("loglevel", cfg.Server.LogLevel, "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	cfg.Warn()

	ctx := context.Background()

	httpClient := &http.Client{Timeout: cfg.Catalog.Timeout}
	tokens := catalog.NewTokenManager(cfg.Catalog.ClientID, cfg.Catalog.ClientSecret, cfg.Catalog.TokenURL, httpClient)
	client, err := catalog.NewClient(catalog.Options{
		BaseURL:        cfg.Catalog.BaseURL,
		ClientID:       cfg.Catalog.ClientID,
		Tokens:         tokens,
		HTTPClient:     httpClient,
		RequestsPerSec: cfg.Catalog.RequestsPerSec,
		CacheSize:      cfg.Catalog.CacheSize,
		GameTTL:        cfg.Catalog.GameTTL,
		SearchTTL:      cfg.Catalog.SearchTTL,
	})
	if err != nil {
		logrus.Fatalf("Failed to create catalog client: %v", err)
	}

	store, err := stores.GetStore(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatalf("Failed to open storage: %v", err)
	}

	authService := auth.NewService(cfg.Auth)
	hub := realtime.NewHub(authService)

	server := &http.Server{
		Addr:              *listenAddress,
		Handler:           setupRouter(cfg, client, store, authService, hub),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(server, hub, store)
}
