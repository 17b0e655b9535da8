package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veiledapp/veiled-backend/internal/app"
	"github.com/veiledapp/veiled-backend/internal/auth"
	"github.com/veiledapp/veiled-backend/internal/cache"
	"github.com/veiledapp/veiled-backend/internal/chat"
	"github.com/veiledapp/veiled-backend/internal/config"
	"github.com/veiledapp/veiled-backend/internal/db"
	"github.com/veiledapp/veiled-backend/internal/groups"
	"github.com/veiledapp/veiled-backend/internal/handler"
	"github.com/veiledapp/veiled-backend/internal/logger"
	"github.com/veiledapp/veiled-backend/internal/notify"
	"github.com/veiledapp/veiled-backend/internal/server"
	"github.com/veiledapp/veiled-backend/internal/service/identity"
	"github.com/veiledapp/veiled-backend/internal/service/likes"
	"github.com/veiledapp/veiled-backend/internal/service/match"
	"github.com/veiledapp/veiled-backend/internal/service/meeting"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	appCtx := app.NewAppContext(database, redisCache, log)

	// Collaborators behind the services.
	provisioner := chat.NewRedisProvisioner(redisCache)
	notifier := notify.NewRedisNotifier(redisCache)
	directory := groups.NewRedisDirectory(redisCache)

	matchSvc := match.NewService(appCtx, provisioner, notifier)
	likesSvc := likes.NewService(appCtx, matchSvc, directory)
	identitySvc := identity.NewService(appCtx)
	meetingSvc := meeting.NewService(appCtx, matchSvc)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	srv := server.New(cfg, log, tokens, server.Handlers{
		Likes:    handler.NewLikesHandler(likesSvc, log),
		Matches:  handler.NewMatchesHandler(matchSvc, identitySvc, log),
		Identity: handler.NewIdentityHandler(identitySvc, log),
		Meetings: handler.NewMeetingsHandler(meetingSvc, log),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown did not drain cleanly", "err", err)
		}
	}
}
