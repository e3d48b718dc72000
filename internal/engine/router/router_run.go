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
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/service"
	"github.com/conveyorci/conveyor/pkg/httpx"
)

// handleEvent ingests an external trigger event. A non-matching event
// is reported as such, not as an error.
func (rt *Router) handleEvent(c *fiber.Ctx) error {
	var ev model.TriggerEvent
	if err := c.BodyParser(&ev); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	if ev.Kind == "" || ev.Ref == "" {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "kind and ref are required", c.Path())
	}

	run, err := rt.Runs.HandleEvent(c.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRunCreated):
			return httpx.WithRepMsg(c, httpx.TriggerNotMatched.Code, httpx.TriggerNotMatched.Msg)
		case errors.Is(err, service.ErrShuttingDown):
			return httpx.WithRepErrMsg(c, httpx.EngineShuttingDown.Code, httpx.EngineShuttingDown.Msg, c.Path())
		}
		return httpx.WithRepErrMsg(c, httpx.InternalError.Code, err.Error(), c.Path())
	}
	return httpx.WithRepJSON(c, run)
}

func (rt *Router) listRuns(c *fiber.Ctx) error {
	return httpx.WithRepJSON(c, rt.Runs.List())
}

func (rt *Router) getRun(c *fiber.Ctx) error {
	run, err := rt.Runs.Get(c.Params("runId"))
	if err != nil {
		return httpx.WithRepErrMsg(c, httpx.RunNotExist.Code, httpx.RunNotExist.Msg, c.Path())
	}
	return httpx.WithRepJSON(c, run)
}

func (rt *Router) cancelRun(c *fiber.Ctx) error {
	err := rt.Runs.Cancel(c.Params("runId"))
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		return httpx.WithRepErrMsg(c, httpx.RunNotExist.Code, httpx.RunNotExist.Msg, c.Path())
	case errors.Is(err, service.ErrRunFinished):
		return httpx.WithRepErrMsg(c, httpx.RunAlreadyFinished.Code, httpx.RunAlreadyFinished.Msg, c.Path())
	case err != nil:
		return httpx.WithRepErrMsg(c, httpx.InternalError.Code, err.Error(), c.Path())
	}
	return httpx.WithRepNotDetail(c)
}

// getReport returns the run's summary; ?format=junit yields the
// JUnit-style XML document instead.
func (rt *Router) getReport(c *fiber.Ctx) error {
	runId := c.Params("runId")

	if c.Query("format") == "junit" {
		data, err := rt.Runs.JUnitReport(runId)
		if err != nil {
			return httpx.WithRepErrMsg(c, httpx.RunNotExist.Code, httpx.RunNotExist.Msg, c.Path())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
		return c.Send(data)
	}

	summary, err := rt.Runs.Report(runId)
	if err != nil {
		return httpx.WithRepErrMsg(c, httpx.RunNotExist.Code, httpx.RunNotExist.Msg, c.Path())
	}
	return httpx.WithRepJSON(c, summary)
}
