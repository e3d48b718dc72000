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

package runner

import (
	"context"
	"time"

	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/pkg/event"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/metrics"
	"github.com/conveyorci/conveyor/pkg/statemachine"
)

// UpdateFunc receives a snapshot of the run after every state change.
// The service wires this to the run store so readers never observe a
// half-updated run.
type UpdateFunc func(*model.PipelineRun)

// Controller walks a run through its template's stage sequence,
// applying fail-fast and always-run semantics. Stages execute strictly
// sequentially: stage N+1 never starts before stage N's result is
// recorded, because later stages may depend on state the earlier ones
// left in the shared workspace.
type Controller struct {
	stages *StageRunner
	bus    *event.EventBus
	logger *log.Logger
}

// NewController creates a run controller.
func NewController(stages *StageRunner, bus *event.EventBus, logger *log.Logger) *Controller {
	return &Controller{
		stages: stages,
		bus:    bus,
		logger: logger,
	}
}

// Execute runs every stage of the template and returns the run with
// its final status and the full result sequence: exactly one
// StepResult per StageSpec, always.
//
// A fail-fast stage failure marks the run's eventual status as failed
// but does not abort the walk; always-run stages still execute so that
// reports and partial artifacts survive a broken build. Cancellation
// is cooperative: it is checked only between stages, never interrupts
// a stage in flight, and yields the distinct CANCELED terminal status.
func (c *Controller) Execute(ctx context.Context, run *model.PipelineRun, tpl *template.Template, onUpdate UpdateFunc) *model.PipelineRun {
	if onUpdate == nil {
		onUpdate = func(*model.PipelineRun) {}
	}

	sm := statemachine.NewRunStateMachine()
	sm.SetCurrent(run.Status)
	if c.bus != nil {
		sm.OnTransition(func(from, to statemachine.RunStatus) error {
			c.bus.Publish(model.RunStatusChangedEvent{RunId: run.RunId, From: from, To: to})
			return nil
		})
	}

	now := time.Now()
	run.StartTime = &now
	sm.MustTransitionTo(statemachine.RunRunning)
	run.Status = sm.Current()
	onUpdate(run.Clone())

	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	if c.logger != nil && c.logger.Log != nil {
		c.logger.Log.Infow("run started",
			"run", run.RunId,
			"template", tpl.Name,
			"stages", len(tpl.Stages),
		)
	}

	fatalFailed := false
	canceled := false

	for _, spec := range tpl.Stages {
		// stage boundary: the only place cancellation is honored
		if !canceled && ctx.Err() != nil {
			canceled = true
		}

		var result model.StepResult
		switch {
		case canceled:
			result = skippedResult(spec.Name)
			metrics.StageResultsTotal.WithLabelValues(spec.Name, string(model.OutcomeSkipped)).Inc()
		case spec.RunCondition == model.OnSuccessSoFar && fatalFailed:
			result = skippedResult(spec.Name)
			metrics.StageResultsTotal.WithLabelValues(spec.Name, string(model.OutcomeSkipped)).Inc()
		default:
			// the stage itself is shielded from run cancellation: an
			// in-flight command finishes and keeps its real result, the
			// cancel takes effect at the next boundary check above
			result = c.stages.Run(context.WithoutCancel(ctx), run, spec)
			if result.Outcome == model.OutcomeFailed && spec.FailurePolicy == model.FailFast {
				fatalFailed = true
			}
		}

		run.StageResults = append(run.StageResults, result)
		if c.bus != nil {
			c.bus.Publish(model.StageFinishedEvent{RunId: run.RunId, Result: result})
		}
		onUpdate(run.Clone())
	}

	switch {
	case canceled:
		sm.MustTransitionTo(statemachine.RunCanceled)
	case fatalFailed:
		sm.MustTransitionTo(statemachine.RunFailed)
	default:
		sm.MustTransitionTo(statemachine.RunSucceeded)
	}
	run.Status = sm.Current()

	end := time.Now()
	run.EndTime = &end
	if run.StartTime != nil {
		run.Duration = end.Sub(*run.StartTime).Milliseconds()
	}
	onUpdate(run.Clone())

	metrics.RunsTotal.WithLabelValues(run.TemplateName, string(run.Status)).Inc()
	if c.bus != nil {
		c.bus.Publish(model.RunFinishedEvent{Run: run.Clone()})
	}

	if c.logger != nil && c.logger.Log != nil {
		c.logger.Log.Infow("run finished",
			"run", run.RunId,
			"status", run.Status,
			"duration", run.Duration,
		)
	}

	return run
}

func skippedResult(stageName string) model.StepResult {
	return model.StepResult{
		StageName: stageName,
		Outcome:   model.OutcomeSkipped,
	}
}
