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

package model

import (
	"time"

	"github.com/conveyorci/conveyor/pkg/statemachine"
)

// EventKind is the kind of external event that can trigger a run.
type EventKind string

const (
	EventPush                    EventKind = "push"
	EventPullRequestOpened       EventKind = "pull_request_opened"
	EventPullRequestSynchronized EventKind = "pull_request_synchronized"
)

// TriggerEvent is the external event record handed to the dispatcher.
type TriggerEvent struct {
	Kind      EventKind `json:"kind"`
	Ref       string    `json:"ref"`
	PrID      string    `json:"prId,omitempty"`
	CommitSha string    `json:"commitSha,omitempty"`
}

// FailurePolicy decides whether a stage failure is fatal for the run.
type FailurePolicy string

const (
	FailFast        FailurePolicy = "fail_fast"
	ContinueOnError FailurePolicy = "continue_on_error"
)

// RunCondition decides when a stage runs relative to prior failures.
type RunCondition string

const (
	OnSuccessSoFar RunCondition = "on_success"
	Always         RunCondition = "always"
)

// StepOutcome classifies the result of a single stage within a run.
type StepOutcome string

const (
	OutcomePassed  StepOutcome = "PASSED"
	OutcomeFailed  StepOutcome = "FAILED"
	OutcomeSkipped StepOutcome = "SKIPPED"
)

// StepResult is the immutable record of one stage execution.
// Exactly one StepResult per StageSpec is appended to a run.
type StepResult struct {
	StageName   string     `json:"stageName"`
	Outcome     StepOutcome `json:"outcome"`
	ExitCode    int        `json:"exitCode"`
	Output      string     `json:"output,omitempty"`
	ErrorOutput string     `json:"errorOutput,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    int64      `json:"duration"` // milliseconds
	ArtifactIds []string   `json:"artifactIds,omitempty"`
}

// PipelineRun is one full execution of a template's stage sequence
// for a single triggering event.
type PipelineRun struct {
	RunId        string                   `json:"runId"`
	TemplateName string                   `json:"templateName"`
	Trigger      TriggerEvent             `json:"trigger"`
	Status       statemachine.RunStatus   `json:"status"`
	StageResults []StepResult             `json:"stageResults"`
	StartTime    *time.Time               `json:"startTime,omitempty"`
	EndTime      *time.Time               `json:"endTime,omitempty"`
	Duration     int64                    `json:"duration"` // milliseconds
	CreatedAt    time.Time                `json:"createdAt"`
}

// Clone returns a deep copy of the run. The runner mutates its working
// copy and publishes clones to the store, so readers never observe a
// half-updated run.
func (r *PipelineRun) Clone() *PipelineRun {
	cp := *r
	cp.StageResults = make([]StepResult, len(r.StageResults))
	copy(cp.StageResults, r.StageResults)
	for i, sr := range r.StageResults {
		if len(sr.ArtifactIds) > 0 {
			ids := make([]string, len(sr.ArtifactIds))
			copy(ids, sr.ArtifactIds)
			cp.StageResults[i].ArtifactIds = ids
		}
	}
	return &cp
}

// Failed reports whether any fail-fast stage failed.
func (r *PipelineRun) Failed() bool {
	return r.Status == statemachine.RunFailed
}
