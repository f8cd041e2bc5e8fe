package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cashbook/backend/internal/audit"
	"github.com/cashbook/backend/internal/config"
	"github.com/cashbook/backend/internal/database"
	"github.com/cashbook/backend/internal/handlers"
	"github.com/cashbook/backend/internal/metrics"
	mW "github.com/cashbook/backend/internal/middleware"
	"github.com/cashbook/backend/internal/remote"
	"github.com/cashbook/backend/internal/services"
	"github.com/cashbook/backend/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the device session and its local API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load(viper.GetViper()))
		},
	}
	cmd.Flags().String("port", "", "Local API port")
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

// openLocalSlots picks the device's local persistence. The returned func
// releases whatever connection was opened.
func openLocalSlots(ctx context.Context, driver string) (store.SlotStore, func(), error) {
	switch driver {
	case "postgres":
		db, err := database.InitDB(ctx, database.GetConfig(viper.GetViper()))
		if err != nil {
			return nil, nil, err
		}
		slots := store.NewPostgresSlotStore(db)
		if err := slots.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return slots, func() { db.Close() }, nil
	case "redis":
		rdb := database.InitRedis(ctx, viper.GetViper())
		if rdb == nil {
			return nil, nil, errors.New("redis is unavailable")
		}
		return store.NewRedisSlotStore(rdb, viper.GetString("redis.prefix")), func() { rdb.Close() }, nil
	case "memory", "":
		return store.NewMemorySlotStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown local.driver %q", driver)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slots, release, err := openLocalSlots(ctx, cfg.LocalDriver)
	if err != nil {
		return err
	}
	defer release()

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	session, err := services.NewSession(ctx, store.NewLocalState(slots), remote.NewClient(remote.Config{
		BaseURL: cfg.RemoteURL,
		Timeout: cfg.SyncTimeout,
	}), services.SessionConfig{
		BookID:       cfg.BookID,
		Role:         cfg.Role,
		DeviceType:   cfg.DeviceType,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.SyncTimeout,
		DateLayout:   cfg.DateLayout,
		Audit:        audit.NewAuditLogger(),
		Metrics:      m,
	})
	if err != nil {
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()

	ledgerHandler := handlers.NewLedgerHandler(session)
	qrHandler := handlers.NewQRHandler(session.Ledger.BookID)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(mW.DeviceType)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Device-Type"},
		MaxAge:         86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "bookId": session.Ledger.BookID()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		ledgerHandler.Routes(r)
		r.Get("/book/qr", qrHandler.BookQR)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("role", string(session.Role())).Msg("Cash book API starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
