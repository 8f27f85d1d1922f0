package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	WebhookPath = "/telegram/webhook"
	HealthPath  = "/healthz"

	shutdownTimeout = 10 * time.Second
)

// UpdateHandler receives decoded updates. It must not block on the handling of the update.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Server accepts Telegram webhook deliveries.
type Server struct {
	addr    string
	handler UpdateHandler
	log     *zap.Logger
	router  *mux.Router
}

func New(addr string, handler UpdateHandler, log *zap.Logger) *Server {
	s := &Server{addr: addr, handler: handler, log: log}

	r := mux.NewRouter()
	r.HandleFunc(WebhookPath, s.webhook).Methods(http.MethodPost)
	r.HandleFunc(HealthPath, s.health).Methods(http.MethodGet)
	s.router = r

	return s
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("webhook server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen %s: %w", s.addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown webhook server: %w", err)
	}
	s.log.Info("webhook server stopped")
	return nil
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.log.Warn("bad webhook payload", zap.Error(err))
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	s.handler(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
