package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-activity-portal/api/swagger"
	"github.com/noah-isme/sma-activity-portal/internal/client"
	"github.com/noah-isme/sma-activity-portal/internal/handler"
	"github.com/noah-isme/sma-activity-portal/internal/middleware"
	"github.com/noah-isme/sma-activity-portal/internal/repository"
	"github.com/noah-isme/sma-activity-portal/internal/service"
	"github.com/noah-isme/sma-activity-portal/pkg/cache"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	"github.com/noah-isme/sma-activity-portal/pkg/database"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-activity-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-activity-portal/pkg/middleware/requestid"
)

type closableProfileStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// @title Activity Portal API
// @version 1.0.0
// @description Local portal over the extracurricular activities backend
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	profile, err := openProfileStore(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open profile store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer profile.Close() //nolint:errcheck

	tab := repository.NewTabRepository(cfg.Session.SnapshotTTL)
	defer tab.Close()

	backend, err := client.NewBackend(cfg.Backend, metrics, logr)
	if err != nil {
		logr.Fatal("invalid backend configuration", zap.Error(err))
	}

	validate := validator.New()
	dismissals := service.NewDismissalService(profile, metrics, logr.Named("dismissals"))
	auth := service.NewAuthService(backend, profile, tab, validate, metrics, cfg.Session, logr.Named("auth"))
	session := service.NewSessionService(service.SessionDeps{
		Backend:    backend,
		Planner:    service.NewQueryPlanner(cfg.TimeWindows),
		Engine:     service.NewFilterEngine(metrics, logr.Named("filter")),
		Dismissals: dismissals,
		Auth:       auth,
		Tab:        tab,
		Validator:  validate,
		Metrics:    metrics,
	}, cfg.Session, logr.Named("session"))
	announcements := service.NewAnnouncementService(backend, session, validate, logr.Named("announcements"))
	enrollment := service.NewEnrollmentService(backend, session, validate, logr.Named("enrollment"))
	exporter := service.NewExportService(session, nil, nil, cfg.Export, logr.Named("export"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))

	var metricsHandler http.Handler
	if metrics != nil {
		metricsHandler = metrics.Handler()
	}
	handler.Routes{
		Activities:    handler.NewActivityHandler(session, enrollment, exporter),
		Announcements: handler.NewAnnouncementHandler(session, announcements),
		Auth:          handler.NewAuthHandler(session),
		Metrics:       handler.NewMetricsHandler(metricsHandler, profileProbe(profile)),
	}.Register(r, cfg.APIPrefix, handler.Guards{
		AttachUser:  middleware.AttachUser(session),
		RequireUser: middleware.RequireUser(session),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	restoreCtx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout+5*time.Second)
	if user := session.Restore(restoreCtx); user != nil {
		logr.Info("session restored", zap.String("username", user.Username))
	}
	cancel()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("portal starting", "addr", addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("portal failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("portal shutdown", zap.Error(err))
	}
}

func openProfileStore(cfg *config.Config, logr *zap.Logger) (closableProfileStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		rdb, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisProfileRepository(rdb, cfg.Storage.ProfileID, logr.Named("profile")), nil
	case config.StorageDriverSQLite, "":
		db, err := database.NewSQLite(cfg.Storage)
		if err != nil {
			return nil, err
		}
		return repository.NewProfileRepository(db, cfg.Storage.ProfileID), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// profileProbe reads a key that may be absent; only storage errors count.
func profileProbe(store closableProfileStore) handler.Probe {
	return handler.Probe{Name: "profile_store", Check: func(ctx context.Context) error {
		_, err := store.Get(ctx, service.KeyCurrentUser)
		if err != nil && !errors.Is(err, appErrors.ErrStateNotFound) {
			return err
		}
		return nil
	}}
}
