// Copyright 2025 Conveyor Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bootstrap

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/conveyorci/conveyor/internal/engine/conf"
	"github.com/conveyorci/conveyor/internal/engine/router"
	"github.com/conveyorci/conveyor/internal/engine/service"
	"github.com/conveyorci/conveyor/pkg/cron"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/shutdown"
	"github.com/conveyorci/conveyor/pkg/storage"
)

type App struct {
	HttpApp   *fiber.App
	Runs      *service.RunService
	Scheduler *cron.Scheduler
	Lifecycle *shutdown.Manager
	Logger    *log.Logger
	Storage   storage.Provider
	AppConf   conf.AppConfig
}

// InitAppFunc is the wire-generated application constructor.
type InitAppFunc func(configFile string) (*App, func(), error)

func NewApp(
	rt *router.Router,
	runs *service.RunService,
	scheduler *cron.Scheduler,
	lifecycle *shutdown.Manager,
	logger *log.Logger,
	store storage.Provider,
	appConf conf.AppConfig,
) (*App, func(), error) {
	app := &App{
		HttpApp:   rt.Router(),
		Runs:      runs,
		Scheduler: scheduler,
		Lifecycle: lifecycle,
		Logger:    logger,
		Storage:   store,
		AppConf:   appConf,
	}

	cleanup := func() {
		if scheduler != nil {
			scheduler.Stop()
		}
	}

	return app, cleanup, nil
}

// Bootstrap builds the application from the configuration file.
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	app, cleanup, err := initApp(configFile)
	if err != nil {
		return nil, nil, err
	}
	return app, cleanup, nil
}

// Run starts the app and blocks until an exit signal arrives, then
// shuts down gracefully: stop accepting requests, let in-flight runs
// finish their current stage, drain, clean up.
func Run(app *App, cleanup func()) {
	logger := app.Logger.Log
	appConf := app.AppConf

	if app.Scheduler != nil && appConf.Retention.SweepCron != "" {
		app.Scheduler.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		logger.Infow("HTTP listener started",
			"address", appConf.Http.Addr(),
		)
		if err := app.HttpApp.Listen(appConf.Http.Addr()); err != nil {
			logger.Errorw("HTTP listener failed",
				"address", appConf.Http.Addr(),
				"error", err,
			)
		}
	}()

	sig := <-quit
	logger.Infof("received signal: %v, shutting down gracefully", sig)

	// stop taking new events before draining in-flight runs
	app.Lifecycle.Shutdown()

	timeout := time.Duration(appConf.Http.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if err := app.HttpApp.ShutdownWithTimeout(timeout); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	app.Runs.Drain()

	if cleanup != nil {
		cleanup()
	}
	logger.Info("shutdown complete")
}
