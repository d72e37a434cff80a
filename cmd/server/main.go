package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/berrylive/live-service/internal/cache"
	"github.com/berrylive/live-service/internal/catalog"
	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/handler"
	"github.com/berrylive/live-service/internal/hub"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/internal/service"
	"github.com/berrylive/live-service/internal/signaling"
	"github.com/berrylive/live-service/internal/wallet"
	"github.com/berrylive/live-service/pkg/database"
	"github.com/berrylive/live-service/pkg/jwt"
	pkglog "github.com/berrylive/live-service/pkg/log"
	"github.com/berrylive/live-service/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "live-service",
	})
	logger := pkglog.L()

	// Repositories: a real database when one is configured, otherwise the
	// in-memory implementations for local development.
	var (
		userRepo   repository.UserRepository
		roomRepo   repository.RoomRepository
		ledgerRepo repository.LedgerRepository
		invRepo    repository.InvitationRepository
		followRepo repository.FollowRepository
	)
	if cfg.Database.Driver == "memory" {
		logger.Warn().Msg("running with in-memory repositories, state is not durable")
		userRepo = repository.NewMemoryUserRepository()
		roomRepo = repository.NewMemoryRoomRepository()
		ledgerRepo = repository.NewMemoryLedgerRepository()
		invRepo = repository.NewMemoryInvitationRepository()
		followRepo = repository.NewMemoryFollowRepository()
	} else {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.AutoMigrate(db,
			&domain.UserModel{},
			&domain.RoomModel{},
			&domain.LedgerModel{},
			&domain.InvitationModel{},
			&domain.FollowModel{},
		); err != nil {
			logger.Fatal().Err(err).Msg("failed to auto-migrate")
		}
		logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

		userRepo = repository.NewGormUserRepository(db)
		roomRepo = repository.NewGormRoomRepository(db)
		ledgerRepo = repository.NewGormLedgerRepository(db)
		invRepo = repository.NewGormInvitationRepository(db)
		followRepo = repository.NewGormFollowRepository(db)
	}

	var snapshots cache.SnapshotCache
	if cfg.Redis.Enabled {
		snapshots, err = cache.NewRedisSnapshotCache(cfg.Redis, "live")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		logger.Info().Msg("redis snapshot cache connected")
	} else {
		snapshots = cache.NewMemorySnapshotCache()
	}
	defer snapshots.Close()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret is required")
	}
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenLifetime)

	// Realtime bus
	bus := hub.NewHub(cfg.WebSocket)
	go bus.Run()
	defer bus.Stop()

	// Domain collaborators
	giftCatalog := catalog.NewMemory(cfg.Catalog.Gifts)
	if len(cfg.Catalog.Gifts) == 0 {
		giftCatalog = catalog.NewMemory(catalog.DefaultEntries())
	}
	calculator := wallet.NewCalculator(cfg.Wallet.Tiers)
	levels := domain.LevelTable(cfg.Levels)
	if len(levels) == 0 {
		levels = domain.DefaultLevelTable()
	}

	// Services
	locks := service.NewUserLocks()
	sessions := service.NewSessionRegistry()
	followSvc := service.NewFollowService(followRepo, bus)
	userSvc := service.NewUserService(userRepo, locks, bus)
	walletSvc := service.NewWalletService(userRepo, ledgerRepo, calculator, locks, bus)
	giftSvc := service.NewGiftService(userRepo, roomRepo, ledgerRepo, giftCatalog, sessions, levels, locks, followSvc, bus)
	presenceSvc := service.NewPresenceService(sessions, bus)
	pkSvc := service.NewPKService(roomRepo, userRepo, cfg.PK.Duration, bus)
	roomSvc := service.NewRoomService(roomRepo, userRepo, invRepo, followSvc, sessions, presenceSvc, pkSvc, snapshots, cfg.Snapshot.TTL, bus)
	reconciler := service.NewPresenceReconciler(bus, presenceSvc, cfg.Presence.SyncInterval)

	streams := signaling.NewManager(cfg.Signaling)

	// HTTP and WebSocket surface
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	httpHandler := handler.NewHandler(userSvc, giftSvc, walletSvc, roomSvc, pkSvc, followSvc, streams, authMiddleware)
	wsHandler := handler.NewWSHandler(bus, presenceSvc, roomSvc, tokens, cfg.WebSocket)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("live-service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reconciler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		streams.StopAll(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("live-service stopped")
}
