package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/stitchfin/payops-agent/internal/pkg/logger"
	"github.com/stitchfin/payops-agent/internal/sse"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Router   *gin.Engine
	Services Services
	SSEHub   *sse.SSEHub

	rdb *redis.Client
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	rdb := newRedisClient(log, cfg.RedisAddr)
	ssehub := sse.NewSSEHub(log)

	serviceset := wireServices(log, cfg, rdb, ssehub)
	handlerset := wireHandlers(serviceset, ssehub)
	router := wireRouter(handlerset)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Router:   router,
		Services: serviceset,
		SSEHub:   ssehub,
		rdb:      rdb,
	}, nil
}

// Run starts the HTTP server, the agent loop and the telemetry broadcaster,
// and blocks until the context is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.Services.Bus != nil {
		if err := a.Services.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start sse forwarder: %w", err)
		}
	}

	if a.Cfg.SimulatorEnabled {
		a.Services.Simulator.Start()
	}

	srv := &http.Server{
		Addr:    ":" + a.Cfg.Port,
		Handler: a.Router,
	}

	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := a.Services.Controller.RunLoop(runCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := a.Services.Telemetry.Run(runCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-runCtx.Done()
		a.Services.Simulator.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
