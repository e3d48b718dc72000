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
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/conveyorci/conveyor/internal/engine/artifact"
	"github.com/conveyorci/conveyor/pkg/httpx"
)

func (rt *Router) listArtifacts(c *fiber.Ctx) error {
	arts, err := rt.Runs.Artifacts(c.Params("runId"))
	if err != nil {
		return httpx.WithRepErrMsg(c, httpx.RunNotExist.Code, httpx.RunNotExist.Msg, c.Path())
	}
	return httpx.WithRepJSON(c, arts)
}

func (rt *Router) downloadArtifact(c *fiber.Ctx) error {
	art, data, err := rt.Runs.FetchArtifact(c.Context(), c.Params("artifactId"))
	switch {
	case errors.Is(err, artifact.ErrArtifactNotFound):
		return httpx.WithRepErrMsg(c, httpx.ArtifactNotExist.Code, httpx.ArtifactNotExist.Msg, c.Path())
	case errors.Is(err, artifact.ErrArtifactExpired):
		return httpx.WithRepErrMsg(c, httpx.ArtifactExpired.Code, httpx.ArtifactExpired.Msg, c.Path())
	case err != nil:
		return httpx.WithRepErrMsg(c, httpx.InternalError.Code, err.Error(), c.Path())
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", art.Name))
	return c.Send(data)
}
