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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/conveyorci/conveyor/internal/engine/service"
	"github.com/conveyorci/conveyor/pkg/httpx"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/metrics"
	"github.com/conveyorci/conveyor/pkg/version"
)

type Router struct {
	Http   httpx.Http
	Runs   *service.RunService
	Logger *log.Logger
}

func NewRouter(httpConf httpx.Http, runs *service.RunService, logger *log.Logger) *Router {
	return &Router{
		Http:   httpConf,
		Runs:   runs,
		Logger: logger,
	}
}

// Router builds the fiber application with every route registered.
func (rt *Router) Router() *fiber.App {
	app := httpx.NewApp(rt.Http)

	if rt.Http.ExposeMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	contextPath := rt.Http.ContextPath
	if contextPath == "" {
		contextPath = "/api/v1"
	}

	api := app.Group(contextPath)
	{
		api.Post("/events", rt.handleEvent)

		runs := api.Group("/runs")
		{
			runs.Get("/", rt.listRuns)
			runs.Get("/:runId", rt.getRun)
			runs.Post("/:runId/cancel", rt.cancelRun)
			runs.Get("/:runId/report", rt.getReport)
			runs.Get("/:runId/artifacts", rt.listArtifacts)
		}

		api.Get("/artifacts/:artifactId/download", rt.downloadArtifact)
	}

	return app
}
