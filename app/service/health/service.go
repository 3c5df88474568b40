package health

import (
	"context"
	"errors"
	"log/slog"
	"mastogpt/app/config"
	"mastogpt/app/service/engine"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

const shutdownTimeout = 5 * time.Second

type StatusProvider interface {
	Status() engine.Status
}

// Service exposes the stream state over HTTP.
type Service struct {
	listen string
	app    *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.HTTP.Listen, do.MustInvoke[*engine.Service](di)), nil
}

func NewService(listen string, provider StatusProvider) *Service {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "mastogpt",
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		status := provider.Status()

		code := fiber.StatusOK
		if status.State != engine.StateConnected {
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(status)
	})

	return &Service{
		listen: listen,
		app:    app,
	}
}

// Run serves until ctx is done. It does nothing when no listen address is
// configured. Failures are logged only; the endpoint is optional.
func (s *Service) Run(ctx context.Context) {
	if s.listen == "" {
		return
	}

	if err := s.serve(ctx); err != nil {
		slog.Error("Status server stopped", "addr", s.listen, "error", err)
	}
}

func (s *Service) serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Warn("Failed to stop status server", "error", err)
		}
		// covers cancellation before serving started
		_ = ln.Close()
	})
	defer stop()

	slog.Info("Status server listening", "addr", ln.Addr().String())

	if err = s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
