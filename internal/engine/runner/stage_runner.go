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
	"os"
	"path/filepath"
	"time"

	"github.com/conveyorci/conveyor/internal/engine/artifact"
	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/internal/pkg/executor"
	"github.com/conveyorci/conveyor/pkg/id"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/metrics"
)

// StageRunner executes one stage and classifies the result. It is
// policy-agnostic: fail-fast versus continue-on-error is decided by
// the controller, never here.
type StageRunner struct {
	exec      executor.Executor
	artifacts *artifact.Manager
	logger    *log.Logger

	workspace      string
	defaultTimeout time.Duration
}

// NewStageRunner creates a stage runner.
func NewStageRunner(exec executor.Executor, artifacts *artifact.Manager, logger *log.Logger, workspace string, defaultTimeout time.Duration) *StageRunner {
	return &StageRunner{
		exec:           exec,
		artifacts:      artifacts,
		logger:         logger,
		workspace:      workspace,
		defaultTimeout: defaultTimeout,
	}
}

// Run invokes the stage command and records the outcome. Exit status
// zero maps to PASSED, anything else (including invocation failures
// and timeouts) to FAILED. Declared artifacts are registered
// regardless of the stage's outcome.
func (r *StageRunner) Run(ctx context.Context, run *model.PipelineRun, spec template.StageSpec) model.StepResult {
	start := time.Now()

	timeout := spec.StageTimeout()
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	req := &executor.ExecutionRequest{
		Command:   spec.Command,
		Args:      spec.Args,
		Workspace: r.workspace,
		Env:       r.stageEnv(run, spec),
		Timeout:   timeout,
	}

	res := r.exec.Execute(ctx, req)

	outcome := model.OutcomePassed
	if !res.Success() {
		outcome = model.OutcomeFailed
	}

	result := model.StepResult{
		StageName:   spec.Name,
		Outcome:     outcome,
		ExitCode:    res.ExitCode,
		Output:      res.Output,
		ErrorOutput: res.ErrorOutput,
		StartTime:   &res.StartTime,
		EndTime:     &res.EndTime,
		Duration:    res.Duration.Milliseconds(),
	}

	result.ArtifactIds = r.registerArtifacts(ctx, run, spec)

	metrics.StageDurationSeconds.WithLabelValues(spec.Name).Observe(time.Since(start).Seconds())
	metrics.StageResultsTotal.WithLabelValues(spec.Name, string(outcome)).Inc()

	if r.logger != nil && r.logger.Log != nil {
		r.logger.Log.Infow("stage finished",
			"run", run.RunId,
			"stage", spec.Name,
			"outcome", outcome,
			"exitCode", res.ExitCode,
			"duration", res.Duration,
		)
	}

	return result
}

// registerArtifacts reads each declared artifact from the workspace and
// hands it to the artifact manager. A missing file degrades to a
// metadata-only registration; a failed stage may still leave partial
// output worth keeping.
func (r *StageRunner) registerArtifacts(ctx context.Context, run *model.PipelineRun, spec template.StageSpec) []string {
	if len(spec.Artifacts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(spec.Artifacts))
	for _, decl := range spec.Artifacts {
		art := &model.Artifact{
			ArtifactId:         id.GetULID(),
			RunId:              run.RunId,
			Name:               decl.Name,
			ProducingStageName: spec.Name,
			Path:               decl.Path,
			RetentionDays:      decl.RetentionDays,
			CreatedAt:          time.Now(),
			Compressed:         decl.Compress,
		}

		content, err := os.ReadFile(filepath.Join(r.workspace, decl.Path))
		if err != nil {
			if r.logger != nil && r.logger.Log != nil {
				r.logger.Log.Warnw("artifact file not readable, registering metadata only",
					"run", run.RunId,
					"stage", spec.Name,
					"artifact", decl.Name,
					"error", err,
				)
			}
			content = nil
		}

		if err := r.artifacts.Register(ctx, art, content); err != nil {
			if r.logger != nil && r.logger.Log != nil {
				r.logger.Log.Errorw("artifact registration failed",
					"run", run.RunId,
					"stage", spec.Name,
					"artifact", decl.Name,
					"error", err,
				)
			}
			continue
		}
		ids = append(ids, art.ArtifactId)
	}
	return ids
}

// stageEnv merges the stage's declared environment with the
// event-derived variables every stage receives.
func (r *StageRunner) stageEnv(run *model.PipelineRun, spec template.StageSpec) map[string]string {
	env := make(map[string]string, len(spec.Env)+5)
	for k, v := range spec.Env {
		env[k] = v
	}
	env["CONVEYOR_RUN_ID"] = run.RunId
	env["CONVEYOR_STAGE"] = spec.Name
	env["CONVEYOR_REF"] = run.Trigger.Ref
	if run.Trigger.CommitSha != "" {
		env["CONVEYOR_COMMIT_SHA"] = run.Trigger.CommitSha
	}
	if run.Trigger.PrID != "" {
		env["CONVEYOR_PR_ID"] = run.Trigger.PrID
	}
	return env
}
