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
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/engine/artifact"
	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/internal/pkg/executor"
	"github.com/conveyorci/conveyor/pkg/event"
	"github.com/conveyorci/conveyor/pkg/metrics"
	"github.com/conveyorci/conveyor/pkg/statemachine"
	"github.com/conveyorci/conveyor/pkg/storage"
)

// fakeExecutor resolves each stage's exit code from a table keyed by
// stage name. onExecute runs during the stage, before completion.
type fakeExecutor struct {
	exits     map[string]int
	onExecute func(stage string)
}

func (f *fakeExecutor) Name() string { return "fake" }

func (f *fakeExecutor) Execute(ctx context.Context, req *executor.ExecutionRequest) *executor.ExecutionResult {
	stage := req.Env["CONVEYOR_STAGE"]
	if f.onExecute != nil {
		f.onExecute(stage)
	}
	res := executor.NewExecutionResult(f.Name())
	res.Complete(f.exits[stage], nil)
	return res
}

func newTestController(exec executor.Executor, workspace string) *Controller {
	artifacts := artifact.NewManager(storage.NewMemory(), event.NewEventBus(), nil)
	stages := NewStageRunner(exec, artifacts, nil, workspace, time.Minute)
	return NewController(stages, event.NewEventBus(), nil)
}

func newRun() *model.PipelineRun {
	return &model.PipelineRun{
		RunId:        "run-1",
		TemplateName: "ci",
		Trigger:      model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/main"},
		Status:       statemachine.RunPending,
		CreatedAt:    time.Now(),
	}
}

func tpl(stages ...template.StageSpec) *template.Template {
	t := &template.Template{Name: "ci", Stages: stages}
	return t
}

func stage(name string, policy model.FailurePolicy, cond model.RunCondition) template.StageSpec {
	return template.StageSpec{
		Name:          name,
		Command:       "fake",
		FailurePolicy: policy,
		RunCondition:  cond,
	}
}

func TestExecute_AllPass(t *testing.T) {
	exec := &fakeExecutor{exits: map[string]int{}}
	c := newTestController(exec, t.TempDir())

	run := c.Execute(context.Background(), newRun(), tpl(
		stage("build", model.FailFast, model.OnSuccessSoFar),
		stage("test", model.FailFast, model.OnSuccessSoFar),
	), nil)

	assert.Equal(t, statemachine.RunSucceeded, run.Status)
	require.Len(t, run.StageResults, 2)
	for _, sr := range run.StageResults {
		assert.Equal(t, model.OutcomePassed, sr.Outcome)
	}
	require.NotNil(t, run.EndTime)
}

func TestExecute_FailFastSkipsLaterButRunsAlways(t *testing.T) {
	exec := &fakeExecutor{exits: map[string]int{"test": 1}}
	c := newTestController(exec, t.TempDir())

	run := c.Execute(context.Background(), newRun(), tpl(
		stage("build", model.FailFast, model.OnSuccessSoFar),
		stage("test", model.FailFast, model.OnSuccessSoFar),
		stage("package", model.FailFast, model.OnSuccessSoFar),
		stage("report", model.ContinueOnError, model.Always),
	), nil)

	assert.Equal(t, statemachine.RunFailed, run.Status)
	// exactly one result per declared stage, skips included
	require.Len(t, run.StageResults, 4)

	assert.Equal(t, model.OutcomePassed, run.StageResults[0].Outcome)
	assert.Equal(t, model.OutcomeFailed, run.StageResults[1].Outcome)
	assert.Equal(t, 1, run.StageResults[1].ExitCode)
	assert.Equal(t, model.OutcomeSkipped, run.StageResults[2].Outcome)
	// the always-run stage still executes after a fatal failure
	assert.Equal(t, model.OutcomePassed, run.StageResults[3].Outcome)
}

func TestExecute_DefaultWorkflowShape(t *testing.T) {
	workflow := tpl(
		stage("checkout", model.FailFast, model.OnSuccessSoFar),
		stage("lint-strict", model.FailFast, model.OnSuccessSoFar),
		stage("lint-lenient", model.ContinueOnError, model.OnSuccessSoFar),
		stage("test", model.FailFast, model.OnSuccessSoFar),
		stage("upload-test-results", model.ContinueOnError, model.Always),
		stage("build-image", model.FailFast, model.OnSuccessSoFar),
		stage("save-image", model.FailFast, model.OnSuccessSoFar),
	)

	t.Run("lint-strict failure", func(t *testing.T) {
		exec := &fakeExecutor{exits: map[string]int{"lint-strict": 1}}
		c := newTestController(exec, t.TempDir())

		run := c.Execute(context.Background(), newRun(), workflow, nil)

		assert.Equal(t, statemachine.RunFailed, run.Status)
		require.Len(t, run.StageResults, 7)

		want := []model.StepOutcome{
			model.OutcomePassed,  // checkout
			model.OutcomeFailed,  // lint-strict
			model.OutcomeSkipped, // lint-lenient
			model.OutcomeSkipped, // test
			model.OutcomePassed,  // upload-test-results, always
			model.OutcomeSkipped, // build-image
			model.OutcomeSkipped, // save-image
		}
		for i, sr := range run.StageResults {
			assert.Equal(t, want[i], sr.Outcome, sr.StageName)
		}
	})

	t.Run("all green", func(t *testing.T) {
		exec := &fakeExecutor{exits: map[string]int{}}
		c := newTestController(exec, t.TempDir())

		run := c.Execute(context.Background(), newRun(), workflow, nil)

		assert.Equal(t, statemachine.RunSucceeded, run.Status)
		require.Len(t, run.StageResults, 7)
		for _, sr := range run.StageResults {
			assert.Equal(t, model.OutcomePassed, sr.Outcome, sr.StageName)
		}
	})
}

func TestExecute_ContinueOnErrorDoesNotFailRun(t *testing.T) {
	exec := &fakeExecutor{exits: map[string]int{"lint-lenient": 1}}
	c := newTestController(exec, t.TempDir())

	run := c.Execute(context.Background(), newRun(), tpl(
		stage("lint-lenient", model.ContinueOnError, model.OnSuccessSoFar),
		stage("test", model.FailFast, model.OnSuccessSoFar),
	), nil)

	assert.Equal(t, statemachine.RunSucceeded, run.Status)
	assert.Equal(t, model.OutcomeFailed, run.StageResults[0].Outcome)
	assert.Equal(t, model.OutcomePassed, run.StageResults[1].Outcome)
}

func TestExecute_CanceledBeforeFirstStage(t *testing.T) {
	exec := &fakeExecutor{exits: map[string]int{}}
	c := newTestController(exec, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := c.Execute(ctx, newRun(), tpl(
		stage("build", model.FailFast, model.OnSuccessSoFar),
		stage("test", model.FailFast, model.OnSuccessSoFar),
	), nil)

	assert.Equal(t, statemachine.RunCanceled, run.Status)
	require.Len(t, run.StageResults, 2)
	for _, sr := range run.StageResults {
		assert.Equal(t, model.OutcomeSkipped, sr.Outcome)
	}
}

func TestExecute_CancelHonoredOnlyAtStageBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{
		exits: map[string]int{},
		onExecute: func(stage string) {
			if stage == "test" {
				// cancel arrives while the stage is in flight
				cancel()
			}
		},
	}
	c := newTestController(exec, t.TempDir())

	run := c.Execute(ctx, newRun(), tpl(
		stage("build", model.FailFast, model.OnSuccessSoFar),
		stage("test", model.FailFast, model.OnSuccessSoFar),
		stage("package", model.FailFast, model.OnSuccessSoFar),
		stage("report", model.ContinueOnError, model.Always),
	), nil)

	assert.Equal(t, statemachine.RunCanceled, run.Status)
	require.Len(t, run.StageResults, 4)

	// the in-flight stage ran to completion
	assert.Equal(t, model.OutcomePassed, run.StageResults[1].Outcome)
	// everything after the boundary is skipped, always-run included
	assert.Equal(t, model.OutcomeSkipped, run.StageResults[2].Outcome)
	assert.Equal(t, model.OutcomeSkipped, run.StageResults[3].Outcome)
}

func TestExecute_PublishesStatusTransitions(t *testing.T) {
	bus := event.NewEventBus()
	var transitions []model.RunStatusChangedEvent
	bus.RegisterHandler(model.EventNameRunStatusChanged, event.HandlerFunc(func(ev event.Event) {
		if sc, ok := ev.(model.RunStatusChangedEvent); ok {
			transitions = append(transitions, sc)
		}
	}))

	artifacts := artifact.NewManager(storage.NewMemory(), event.NewEventBus(), nil)
	stages := NewStageRunner(&fakeExecutor{exits: map[string]int{}}, artifacts, nil, t.TempDir(), time.Minute)
	c := NewController(stages, bus, nil)

	run := c.Execute(context.Background(), newRun(), tpl(
		stage("build", model.FailFast, model.OnSuccessSoFar),
	), nil)

	require.Equal(t, statemachine.RunSucceeded, run.Status)
	require.Len(t, transitions, 2)
	assert.Equal(t, statemachine.RunPending, transitions[0].From)
	assert.Equal(t, statemachine.RunRunning, transitions[0].To)
	assert.Equal(t, statemachine.RunRunning, transitions[1].From)
	assert.Equal(t, statemachine.RunSucceeded, transitions[1].To)
	for _, tr := range transitions {
		assert.Equal(t, run.RunId, tr.RunId)
	}
}

func TestExecute_SkipsCountedOnCancelPath(t *testing.T) {
	exec := &fakeExecutor{exits: map[string]int{}}
	c := newTestController(exec, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := c.Execute(ctx, newRun(), tpl(
		stage("cancel-metric-a", model.FailFast, model.OnSuccessSoFar),
		stage("cancel-metric-b", model.FailFast, model.OnSuccessSoFar),
	), nil)

	require.Equal(t, statemachine.RunCanceled, run.Status)
	for _, name := range []string{"cancel-metric-a", "cancel-metric-b"} {
		got := testutil.ToFloat64(metrics.StageResultsTotal.WithLabelValues(name, string(model.OutcomeSkipped)))
		assert.Equal(t, 1.0, got, name)
	}
}

func TestExecute_CancelDoesNotKillInFlightCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	exec := executor.NewLocalExecutor(nil)
	c := newTestController(exec, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	run := c.Execute(ctx, newRun(), tpl(
		template.StageSpec{
			Name:    "work",
			Command: "/bin/sh",
			Args:    []string{"-c", "sleep 0.5; exit 0"},
		},
		template.StageSpec{
			Name:    "after",
			Command: "/bin/sh",
			Args:    []string{"-c", "exit 0"},
		},
	), nil)

	assert.Equal(t, statemachine.RunCanceled, run.Status)
	require.Len(t, run.StageResults, 2)

	// the command running when the cancel arrived finishes and keeps
	// its real exit status
	assert.Equal(t, model.OutcomePassed, run.StageResults[0].Outcome)
	assert.Equal(t, 0, run.StageResults[0].ExitCode)
	assert.Equal(t, model.OutcomeSkipped, run.StageResults[1].Outcome)
}

func TestExecute_PublishesSnapshots(t *testing.T) {
	exec := &fakeExecutor{exits: map[string]int{}}
	c := newTestController(exec, t.TempDir())

	var snapshots []*model.PipelineRun
	run := c.Execute(context.Background(), newRun(), tpl(
		stage("build", model.FailFast, model.OnSuccessSoFar),
	), func(snap *model.PipelineRun) {
		snapshots = append(snapshots, snap)
	})

	// running, after the stage, and terminal
	require.GreaterOrEqual(t, len(snapshots), 3)
	assert.Equal(t, statemachine.RunRunning, snapshots[0].Status)
	assert.Equal(t, run.Status, snapshots[len(snapshots)-1].Status)

	// snapshots are isolated copies
	snapshots[0].RunId = "mutated"
	assert.Equal(t, "run-1", run.RunId)
}
