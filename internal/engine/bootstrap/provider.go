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
	"time"

	"github.com/google/wire"

	"github.com/conveyorci/conveyor/internal/engine/artifact"
	"github.com/conveyorci/conveyor/internal/engine/conf"
	"github.com/conveyorci/conveyor/internal/engine/router"
	"github.com/conveyorci/conveyor/internal/engine/runner"
	"github.com/conveyorci/conveyor/internal/engine/service"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/internal/engine/trigger"
	"github.com/conveyorci/conveyor/internal/pkg/executor"
	"github.com/conveyorci/conveyor/pkg/cron"
	"github.com/conveyorci/conveyor/pkg/event"
	"github.com/conveyorci/conveyor/pkg/httpx"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/shutdown"
	"github.com/conveyorci/conveyor/pkg/storage"
)

// ProviderSet wires the engine's components together.
var ProviderSet = wire.NewSet(
	ProvideLifecycle,
	ProvideBus,
	ProvideExecutor,
	ProvideRegistry,
	ProvideDispatcher,
	ProvideArtifactManager,
	ProvideStageRunner,
	ProvideController,
	ProvideRunStore,
	ProvideRunService,
	ProvideRouter,
	ProvideScheduler,
	NewApp,
)

func ProvideLifecycle() *shutdown.Manager {
	return shutdown.NewManager()
}

func ProvideBus() *event.EventBus {
	return event.NewEventBus()
}

func ProvideExecutor(logger *log.Logger) executor.Executor {
	return executor.NewLocalExecutor(logger)
}

func ProvideRegistry(engineConf conf.Engine) (*template.Registry, error) {
	registry := template.NewRegistry()
	if err := registry.LoadDir(engineConf.TemplateDir); err != nil {
		return nil, err
	}
	return registry, nil
}

func ProvideDispatcher(engineConf conf.Engine, registry *template.Registry, logger *log.Logger) (*trigger.Dispatcher, error) {
	return trigger.NewDispatcher(engineConf.Triggers, registry, engineConf.TemplateName, logger)
}

func ProvideArtifactManager(store storage.Provider, bus *event.EventBus, logger *log.Logger) *artifact.Manager {
	return artifact.NewManager(store, bus, logger)
}

func ProvideStageRunner(exec executor.Executor, artifacts *artifact.Manager, logger *log.Logger, engineConf conf.Engine) *runner.StageRunner {
	return runner.NewStageRunner(exec, artifacts, logger, engineConf.Workspace, time.Duration(engineConf.StageTimeout)*time.Second)
}

func ProvideController(stages *runner.StageRunner, bus *event.EventBus, logger *log.Logger) *runner.Controller {
	return runner.NewController(stages, bus, logger)
}

func ProvideRunStore(engineConf conf.Engine) *service.RunStore {
	return service.NewRunStore(engineConf.MaxHistory)
}

func ProvideRunService(store *service.RunStore, dispatcher *trigger.Dispatcher, controller *runner.Controller, artifacts *artifact.Manager, bus *event.EventBus, lifecycle *shutdown.Manager, logger *log.Logger) *service.RunService {
	return service.NewRunService(store, dispatcher, controller, artifacts, bus, lifecycle, logger)
}

func ProvideRouter(httpConf httpx.Http, runs *service.RunService, logger *log.Logger) *router.Router {
	return router.NewRouter(httpConf, runs, logger)
}

// ProvideScheduler builds the cron scheduler with the retention sweep
// registered. The scheduler is returned unstarted.
func ProvideScheduler(retentionConf conf.Retention, artifacts *artifact.Manager, logger *log.Logger) (*cron.Scheduler, error) {
	scheduler := cron.New(logger)
	scheduler.SetObserver(func(name string, d time.Duration) {
		if d > time.Second && logger != nil && logger.Log != nil {
			logger.Log.Warnw("slow cron job", "job", name, "duration", d)
		}
	})

	if retentionConf.SweepCron != "" {
		if err := artifacts.ScheduleSweep(scheduler, retentionConf.SweepCron); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}
