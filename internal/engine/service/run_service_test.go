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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/engine/artifact"
	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/runner"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/internal/engine/trigger"
	"github.com/conveyorci/conveyor/internal/pkg/executor"
	"github.com/conveyorci/conveyor/pkg/event"
	"github.com/conveyorci/conveyor/pkg/shutdown"
	"github.com/conveyorci/conveyor/pkg/statemachine"
	"github.com/conveyorci/conveyor/pkg/storage"
)

// blockingExecutor holds every stage until release is closed, so tests
// can observe runs in flight.
type blockingExecutor struct {
	release chan struct{}
}

func (f *blockingExecutor) Name() string { return "blocking" }

func (f *blockingExecutor) Execute(ctx context.Context, req *executor.ExecutionRequest) *executor.ExecutionResult {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	res := executor.NewExecutionResult(f.Name())
	res.Complete(0, nil)
	return res
}

func newTestService(t *testing.T, exec executor.Executor) (*RunService, *RunStore) {
	t.Helper()

	registry := template.NewRegistry()
	require.NoError(t, registry.Add(&template.Template{
		Name: "ci",
		Stages: []template.StageSpec{
			{Name: "build", Command: "fake"},
			{Name: "test", Command: "fake"},
		},
	}))

	filters := []trigger.FilterConf{
		{Kind: "push", Branch: "main"},
		{Kind: "pull_request_opened", Branch: "*"},
		{Kind: "pull_request_synchronized", Branch: "*"},
	}
	dispatcher, err := trigger.NewDispatcher(filters, registry, "ci", nil)
	require.NoError(t, err)

	bus := event.NewEventBus()
	artifacts := artifact.NewManager(storage.NewMemory(), bus, nil)
	stages := runner.NewStageRunner(exec, artifacts, nil, t.TempDir(), time.Minute)
	controller := runner.NewController(stages, bus, nil)

	store := NewRunStore(0)
	svc := NewRunService(store, dispatcher, controller, artifacts, bus, shutdown.NewManager(), nil)
	return svc, store
}

func pushEvent() model.TriggerEvent {
	return model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/main", CommitSha: "abc"}
}

func TestHandleEvent_NoMatch(t *testing.T) {
	svc, _ := newTestService(t, &blockingExecutor{})
	_, err := svc.HandleEvent(context.Background(), model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/other"})
	require.ErrorIs(t, err, ErrNoRunCreated)
}

func TestHandleEvent_RunsToCompletion(t *testing.T) {
	svc, store := newTestService(t, &blockingExecutor{})

	run, err := svc.HandleEvent(context.Background(), pushEvent())
	require.NoError(t, err)
	require.NotEmpty(t, run.RunId)

	require.Eventually(t, func() bool {
		got, ok := store.Get(run.RunId)
		return ok && got.Status == statemachine.RunSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	got, _ := svc.Get(run.RunId)
	require.Len(t, got.StageResults, 2)
	assert.Greater(t, got.Duration, int64(-1))
}

func TestHandleEvent_ReturnedRunIsDetachedSnapshot(t *testing.T) {
	svc, store := newTestService(t, &blockingExecutor{})

	run, err := svc.HandleEvent(context.Background(), pushEvent())
	require.NoError(t, err)

	// the returned value is frozen at creation time: the controller
	// goroutine mutates its own copy, never this one
	require.Eventually(t, func() bool {
		got, ok := store.Get(run.RunId)
		return ok && got.Status == statemachine.RunSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, statemachine.RunPending, run.Status)
	assert.Empty(t, run.StageResults)
	assert.Nil(t, run.EndTime)
}

func TestCancel_UnknownAndFinished(t *testing.T) {
	svc, store := newTestService(t, &blockingExecutor{})

	require.ErrorIs(t, svc.Cancel("missing"), ErrRunNotFound)

	run, err := svc.HandleEvent(context.Background(), pushEvent())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := store.Get(run.RunId)
		return ok && got.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, svc.Cancel(run.RunId), ErrRunFinished)
}

func TestCancel_InFlightRun(t *testing.T) {
	release := make(chan struct{})
	svc, store := newTestService(t, &blockingExecutor{release: release})

	run, err := svc.HandleEvent(context.Background(), pushEvent())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := store.Get(run.RunId)
		return ok && got.Status == statemachine.RunRunning
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Cancel(run.RunId))
	close(release)

	require.Eventually(t, func() bool {
		got, _ := store.Get(run.RunId)
		return got.Status == statemachine.RunCanceled
	}, 5*time.Second, 10*time.Millisecond)

	// every declared stage still has a result, skips included
	got, _ := svc.Get(run.RunId)
	assert.Len(t, got.StageResults, 2)
}

func TestHandleEvent_SupersedesOlderPullRequestRun(t *testing.T) {
	release := make(chan struct{})
	svc, store := newTestService(t, &blockingExecutor{release: release})

	prEvent := model.TriggerEvent{
		Kind: model.EventPullRequestOpened,
		Ref:  "refs/heads/feature",
		PrID: "42",
	}
	older, err := svc.HandleEvent(context.Background(), prEvent)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := store.Get(older.RunId)
		return ok && got.Status == statemachine.RunRunning
	}, 5*time.Second, 10*time.Millisecond)

	// a new head commit on the same pull request supersedes the run
	syncEvent := model.TriggerEvent{
		Kind: model.EventPullRequestSynchronized,
		Ref:  "refs/heads/feature",
		PrID: "42",
	}
	newer, err := svc.HandleEvent(context.Background(), syncEvent)
	require.NoError(t, err)
	assert.NotEqual(t, older.RunId, newer.RunId)

	close(release)

	require.Eventually(t, func() bool {
		oldGot, _ := store.Get(older.RunId)
		newGot, _ := store.Get(newer.RunId)
		return oldGot.Status == statemachine.RunCanceled && newGot.Status == statemachine.RunSucceeded
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHandleEvent_RejectedDuringShutdown(t *testing.T) {
	svc, _ := newTestService(t, &blockingExecutor{})
	svc.lifecycle.Shutdown()

	_, err := svc.HandleEvent(context.Background(), pushEvent())
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestReportAndArtifacts_UnknownRun(t *testing.T) {
	svc, _ := newTestService(t, &blockingExecutor{})

	_, err := svc.Report("missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	_, err = svc.JUnitReport("missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	_, err = svc.Artifacts("missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestReport_AfterRun(t *testing.T) {
	svc, store := newTestService(t, &blockingExecutor{})

	run, err := svc.HandleEvent(context.Background(), pushEvent())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := store.Get(run.RunId)
		return ok && got.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	summary, err := svc.Report(run.RunId)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)

	xml, err := svc.JUnitReport(run.RunId)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "testsuite")
}
