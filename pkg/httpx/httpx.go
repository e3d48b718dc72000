package httpx

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
)

// Http holds HTTP server configuration options.
type Http struct {
	Host            string
	Port            int
	ContextPath     string
	AccessLog       bool
	ExposeMetrics   bool
	ReadTimeout     int
	WriteTimeout    int
	IdleTimeout     int
	ShutdownTimeout int
	TLS             TLS
}

type TLS struct {
	CertFile string
	KeyFile  string
}

// Addr returns the listen address host:port.
func (h Http) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// NewApp creates a fiber application with the shared middleware stack.
func NewApp(cfg Http) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "conveyor",
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(cfg.IdleTimeout) * time.Second,
	})

	app.Use(fiberrecover.New())

	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}

	return app
}

// Serve starts the fiber app and returns a shutdown function.
// The shutdown function blocks until in-flight requests drain or the
// configured timeout elapses.
func Serve(app *fiber.App, cfg Http) (func() error, error) {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
			err = app.ListenTLS(cfg.Addr(), cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = app.Listen(cfg.Addr())
		}
		if err != nil {
			errCh <- err
		}
	}()

	shutdown := func() error {
		timeout := time.Duration(cfg.ShutdownTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return app.ShutdownWithTimeout(timeout)
	}

	// give the listener a moment to fail fast on bad addresses
	select {
	case err := <-errCh:
		return nil, err
	case <-time.After(100 * time.Millisecond):
	}

	return shutdown, nil
}
