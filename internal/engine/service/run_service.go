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

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/conveyorci/conveyor/internal/engine/artifact"
	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/report"
	"github.com/conveyorci/conveyor/internal/engine/runner"
	"github.com/conveyorci/conveyor/internal/engine/trigger"
	"github.com/conveyorci/conveyor/pkg/event"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/safe"
	"github.com/conveyorci/conveyor/pkg/shutdown"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunFinished  = errors.New("run already finished")
	ErrNoRunCreated = errors.New("event matched no trigger filter")
	ErrShuttingDown = errors.New("engine is shutting down")
)

// RunService owns the run lifecycle end to end: event intake, run
// launch, cancellation, and read access for the HTTP layer.
type RunService struct {
	store      *RunStore
	dispatcher *trigger.Dispatcher
	controller *runner.Controller
	artifacts  *artifact.Manager
	bus        *event.EventBus
	lifecycle  *shutdown.Manager
	logger     *log.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunService creates the run service.
func NewRunService(store *RunStore, dispatcher *trigger.Dispatcher, controller *runner.Controller, artifacts *artifact.Manager, bus *event.EventBus, lifecycle *shutdown.Manager, logger *log.Logger) *RunService {
	return &RunService{
		store:      store,
		dispatcher: dispatcher,
		controller: controller,
		artifacts:  artifacts,
		bus:        bus,
		lifecycle:  lifecycle,
		logger:     logger,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// HandleEvent dispatches the event. On a filter match it creates a
// pending run, supersedes any in-flight run for the same pull request,
// and launches execution on its own goroutine. The returned run is a
// snapshot; progress is observable through the store.
func (s *RunService) HandleEvent(ctx context.Context, ev model.TriggerEvent) (*model.PipelineRun, error) {
	if s.lifecycle != nil && s.lifecycle.IsShuttingDown() {
		return nil, ErrShuttingDown
	}

	run, ok := s.dispatcher.Dispatch(ev)
	if !ok {
		return nil, ErrNoRunCreated
	}

	if ev.Kind == model.EventPullRequestSynchronized && ev.PrID != "" {
		s.supersede(ev.PrID, run.RunId)
	}

	// snapshot before launch: once the controller goroutine starts it
	// owns the run value, and reading it here would race
	snapshot := run.Clone()

	s.store.Put(run.Clone())
	if s.bus != nil {
		s.bus.Publish(model.RunCreatedEvent{Run: run.Clone()})
	}
	s.launch(run)

	if s.logger != nil && s.logger.Log != nil {
		s.logger.Log.Infow("run created",
			"run", snapshot.RunId,
			"kind", ev.Kind,
			"ref", ev.Ref,
		)
	}
	return snapshot, nil
}

// launch starts run execution in the background and tracks its cancel
// func until the run reaches a terminal status.
func (s *RunService) launch(run *model.PipelineRun) {
	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels[run.RunId] = cancel
	s.mu.Unlock()

	tpl := s.dispatcher.Template()

	s.wg.Add(1)
	safe.Go(func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, run.RunId)
			s.mu.Unlock()
			cancel()
		}()

		s.controller.Execute(runCtx, run, tpl, func(snapshot *model.PipelineRun) {
			s.store.Put(snapshot)
		})
	})
}

// supersede cancels any non-terminal run for the same pull request so
// only the newest head commit keeps executing.
func (s *RunService) supersede(prId, newRunId string) {
	for _, run := range s.store.List() {
		if run.RunId == newRunId || run.Status.IsTerminal() {
			continue
		}
		if run.Trigger.PrID != prId {
			continue
		}
		if err := s.Cancel(run.RunId); err == nil {
			if s.logger != nil && s.logger.Log != nil {
				s.logger.Log.Infow("superseded run canceled",
					"run", run.RunId,
					"pr", prId,
					"by", newRunId,
				)
			}
		}
	}
}

// Cancel requests cooperative cancellation of a run. The run keeps
// executing its current stage; remaining stages are skipped at the
// next stage boundary.
func (s *RunService) Cancel(runId string) error {
	run, ok := s.store.Get(runId)
	if !ok {
		return ErrRunNotFound
	}
	if run.Status.IsTerminal() {
		return ErrRunFinished
	}

	s.mu.Lock()
	cancel, ok := s.cancels[runId]
	s.mu.Unlock()
	if !ok {
		return ErrRunFinished
	}
	cancel()
	return nil
}

// Get returns a snapshot of one run.
func (s *RunService) Get(runId string) (*model.PipelineRun, error) {
	run, ok := s.store.Get(runId)
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// List returns snapshots of all known runs, most recent first.
func (s *RunService) List() []*model.PipelineRun {
	return s.store.List()
}

// Report builds the summary report for a run.
func (s *RunService) Report(runId string) (report.Summary, error) {
	run, ok := s.store.Get(runId)
	if !ok {
		return report.Summary{}, ErrRunNotFound
	}
	return report.BuildSummary(run), nil
}

// JUnitReport renders the run's results as a JUnit-style XML document.
func (s *RunService) JUnitReport(runId string) ([]byte, error) {
	run, ok := s.store.Get(runId)
	if !ok {
		return nil, ErrRunNotFound
	}
	return report.MarshalJUnit(report.BuildJUnit(run))
}

// Artifacts lists a run's artifacts that are still within retention.
func (s *RunService) Artifacts(runId string) ([]model.Artifact, error) {
	if _, ok := s.store.Get(runId); !ok {
		return nil, ErrRunNotFound
	}
	return s.artifacts.ListActive(runId, time.Now()), nil
}

// FetchArtifact returns an artifact's metadata and decoded content.
func (s *RunService) FetchArtifact(ctx context.Context, artifactId string) (model.Artifact, []byte, error) {
	art, ok := s.artifacts.Get(artifactId)
	if !ok {
		return model.Artifact{}, nil, artifact.ErrArtifactNotFound
	}
	data, err := s.artifacts.Fetch(ctx, artifactId, time.Now())
	if err != nil {
		return model.Artifact{}, nil, err
	}
	return art, data, nil
}

// Drain blocks until all in-flight runs have finished.
func (s *RunService) Drain() {
	s.wg.Wait()
}
