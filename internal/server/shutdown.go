package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sales-kpi-dashboard/internal/config"
)

const hookTimeout = 10 * time.Second

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulServer drains in-flight uploads and dashboard streams on
// SIGINT/SIGTERM, then runs the registered hooks.
type GracefulServer struct {
	server *http.Server
	cfg    config.ServerConfig
	logger *slog.Logger

	mu    sync.Mutex
	hooks []shutdownHook
}

func NewGracefulServer(server *http.Server, cfg config.ServerConfig, logger *slog.Logger) *GracefulServer {
	return &GracefulServer{server: server, cfg: cfg, logger: logger}
}

// OnShutdown registers fn to run after the HTTP server has stopped. Hooks
// run in reverse registration order, like deferred calls.
func (gs *GracefulServer) OnShutdown(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

func (gs *GracefulServer) ListenAndServe() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	return gs.serve(stop)
}

func (gs *GracefulServer) serve(stop <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		gs.logger.Info("listening",
			"addr", gs.server.Addr,
			"read_timeout", gs.cfg.ReadTimeout,
			"write_timeout", gs.cfg.WriteTimeout,
		)
		listenErr <- gs.server.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", gs.server.Addr, err)
	case sig := <-stop:
		gs.logger.Info("shutdown signal received", "signal", sig, "timeout", gs.cfg.ShutdownTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), gs.cfg.ShutdownTimeout)
		defer cancel()
		return gs.shutdown(ctx)
	}
}

// shutdown stops accepting requests and waits for open ones before any hook
// runs, so telemetry flushed by a hook includes the final requests. Every
// hook runs even when an earlier one fails; all errors are returned joined.
func (gs *GracefulServer) shutdown(ctx context.Context) error {
	var errs []error
	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Error("http server did not drain", "error", err)
		errs = append(errs, fmt.Errorf("drain http server: %w", err))
	} else {
		gs.logger.Info("http server drained")
	}

	gs.mu.Lock()
	hooks := append([]shutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := gs.runHook(ctx, h); err != nil {
			gs.logger.Error("shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %s: %w", h.name, err))
		}
	}

	if len(errs) == 0 {
		gs.logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

func (gs *GracefulServer) runHook(ctx context.Context, h shutdownHook) error {
	ctx, cancel := context.WithTimeout(ctx, hookTimeout)
	defer cancel()

	start := time.Now()
	err := h.fn(ctx)
	gs.logger.Debug("shutdown hook finished", "hook", h.name, "duration", time.Since(start))
	return err
}
