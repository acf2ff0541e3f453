package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurokana/SiTeJo-Web/internal/config"
	"github.com/kurokana/SiTeJo-Web/internal/database"
	"github.com/kurokana/SiTeJo-Web/internal/handlers"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
	"github.com/kurokana/SiTeJo-Web/internal/repository/memory"
	"github.com/kurokana/SiTeJo-Web/internal/repository/postgres"
	"github.com/kurokana/SiTeJo-Web/internal/router"
	"github.com/kurokana/SiTeJo-Web/internal/service"
	"github.com/kurokana/SiTeJo-Web/internal/storage"
	"github.com/kurokana/SiTeJo-Web/internal/telemetry"
	"github.com/kurokana/SiTeJo-Web/pkg/logger"
)

type stores struct {
	tickets repository.TicketRepository
	docs    repository.DocumentRepository
	users   repository.UserRepository
	ready   handlers.ReadinessChecker
	close   func()
}

func openStores(ctx context.Context, cfg config.Config, l zerolog.Logger) (stores, error) {
	if cfg.StoreDriver == "memory" {
		l.Warn().Msg("using in-memory store; data is lost on restart")
		m := memory.NewStore()
		return stores{tickets: m.Tickets(), docs: m.Documents(), users: m.Users(), close: func() {}}, nil
	}

	if cfg.Migrate {
		if err := database.Migrate(cfg.DBURL, l); err != nil {
			return stores{}, err
		}
	}
	pool, err := database.Open(ctx, cfg.DBURL)
	if err != nil {
		return stores{}, err
	}
	return stores{
		tickets: postgres.NewTicketRepo(pool),
		docs:    postgres.NewDocumentRepo(pool),
		users:   postgres.NewUserRepo(pool),
		ready:   database.NewChecker(pool),
		close:   pool.Close,
	}, nil
}

func main() {
	// config + logger
	cfg, err := config.Load()
	l := logger.New(cfg.Env)
	if err != nil {
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, "sitejo-api", l)

	// persistence
	st, err := openStores(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store init failed")
	}
	defer st.close()

	blobs, err := storage.New(cfg.StorageDir, cfg.MaxUploadBytes)
	if err != nil {
		l.Fatal().Err(err).Str("dir", cfg.StorageDir).Msg("document storage init failed")
	}

	// services
	tickets := service.NewTicketService(st.tickets, st.docs, st.users, blobs, l)
	lecturers := service.NewLecturerDirectory(st.users, cfg.LecturerCacheSize, cfg.LecturerCacheTTL)
	users := service.NewUserService(st.users, lecturers)
	if cfg.AdminEmail != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			l.Fatal().Err(err).Msg("admin bootstrap failed")
		}
		if created {
			l.Info().Str("email", cfg.AdminEmail).Msg("bootstrap admin created")
		}
	}

	// http
	h := router.New(l, router.Services{
		Auth:      service.NewAuthService(st.users, cfg.SessionSecret, cfg.SessionTTL),
		Tickets:   tickets,
		Documents: service.NewDocumentService(tickets, st.docs, blobs, l),
		Users:     users,
		Lecturers: lecturers,
		Ready:     st.ready,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("tracing shutdown")
	}
	l.Info().Msg("shutdown complete")
}
