// Command lumicastd runs the identity and account-lifecycle core: login,
// registration, recovery, profile/stream mutation, and the admin GC sweep,
// behind a single gin HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lumicast/core/internal/cache"
	"github.com/lumicast/core/internal/config"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/filestore"
	"github.com/lumicast/core/internal/handler"
	"github.com/lumicast/core/internal/hasher"
	"github.com/lumicast/core/internal/mailer"
	"github.com/lumicast/core/internal/middleware"
	"github.com/lumicast/core/internal/service/credential"
	"github.com/lumicast/core/internal/service/gc"
	"github.com/lumicast/core/internal/service/profile"
	"github.com/lumicast/core/internal/service/recovery"
	"github.com/lumicast/core/internal/service/registration"
	"github.com/lumicast/core/internal/service/stream"
	"github.com/lumicast/core/internal/store"
	"github.com/lumicast/core/internal/store/cachedstore"
	"github.com/lumicast/core/internal/store/gormstore"
	"github.com/lumicast/core/pkg/database"
	pkglog "github.com/lumicast/core/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "lumicastd",
	})
	logger := pkglog.L()

	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, gormstore.AllModels...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	var st store.Store = gormstore.New(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable; profile/stream reads will bypass cache-aside")
	} else {
		profiles := cache.NewRedisProfileCache(redisClient, cfg.Cache.Prefix)
		streams := cache.NewRedisStreamCache(redisClient, cfg.Cache.Prefix)
		st = cachedstore.New(st, profiles, streams, cfg.Cache.TTL)
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	pingCancel()
	defer redisClient.Close()

	pwHasher := hasher.New(hasher.DefaultParams)
	pool := exec.New(cfg.Blocking.PoolSize)

	smtp := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	avatars, err := filestore.New(filestore.Config{
		Dir:         cfg.Storage.AvatarDir,
		AliasPrefix: cfg.Storage.AvatarAlias,
		Format:      imaging.JPEG,
		JPEGQuality: cfg.Storage.JPEGQuality,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize avatar filestore")
	}
	logos, err := filestore.New(filestore.Config{
		Dir:         cfg.Storage.LogoDir,
		AliasPrefix: cfg.Storage.LogoAlias,
		Format:      imaging.JPEG,
		JPEGQuality: cfg.Storage.JPEGQuality,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize logo filestore")
	}

	credentialSvc := credential.New(st, pwHasher, pool, credential.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	registrationSvc := registration.New(st, pwHasher, smtp, pool, registration.Config{
		Secret:   cfg.JWT.Secret,
		Duration: cfg.JWT.RegistrTTL,
		Domain:   cfg.SMTP.Domain,
		Subject:  cfg.SMTP.RegistrSubject,
	})
	recoverySvc := recovery.New(st, pwHasher, smtp, pool, recovery.Config{
		Secret:                cfg.JWT.Secret,
		Duration:              cfg.JWT.RecoveryTTL,
		Domain:                cfg.SMTP.Domain,
		Subject:               cfg.SMTP.RecoverySubject,
		ClearSessionOnConfirm: cfg.Recovery.ClearSessionOnConfirm,
	})
	profileSvc := profile.New(st, pwHasher, avatars, pool, profile.Config{
		MaxAvatarSize: cfg.Storage.MaxUploadBytes,
		ValidMimes:    cfg.Storage.ValidMimes,
		TargetExt:     cfg.Storage.TargetExt,
		MaxW:          cfg.Storage.MaxWidth,
		MaxH:          cfg.Storage.MaxHeight,
	})
	streamSvc := stream.New(st, logos, pool, stream.Config{
		MaxLogoSize: cfg.Storage.MaxUploadBytes,
		ValidMimes:  cfg.Storage.ValidMimes,
		TargetExt:   cfg.Storage.TargetExt,
		MaxW:        cfg.Storage.MaxWidth,
		MaxH:        cfg.Storage.MaxHeight,
	})
	gcSvc := gc.New(st, pool)

	authenticator := middleware.NewAuthenticator(st, pool, cfg.JWT.Secret)

	h := handler.New(credentialSvc, registrationSvc, recoverySvc, profileSvc, streamSvc, gcSvc, authenticator, cfg.JWT.AccessTTL, cfg.Storage.MaxUploadBytes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("lumicastd starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
	}

	logger.Info().Msg("lumicastd stopped")
}
