package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/logging"
	"shortcast/internal/notifications"
	"shortcast/internal/queue"
)

// apiServer owns the HTTP listener for the daemon's control API.
type apiServer struct {
	bind    string
	logger  *slog.Logger
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *apiServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &apiServer{
		bind:    cfg.Paths.APIBind,
		logger:  logger.With(logging.String(logging.FieldComponent, "api")),
		handler: NewHandler(cfg, store, logger, notifier),
	}
}

func (a *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.bind)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.listener = listener
	a.server = &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads can be large; no overall read deadline.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	server := a.server
	a.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("api server terminated", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		a.stop()
	}()

	a.logger.Info("api listening", logging.String("bind", listener.Addr().String()))
	return nil
}

func (a *apiServer) stop() {
	a.mu.Lock()
	server := a.server
	a.server = nil
	a.listener = nil
	a.mu.Unlock()
	if server == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("api shutdown", logging.Error(err))
	}
}

// Addr reports the bound address, useful when bind used port 0.
func (a *apiServer) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return a.bind
	}
	return a.listener.Addr().String()
}
