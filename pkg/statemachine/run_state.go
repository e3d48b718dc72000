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

package statemachine

type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunCanceled  RunStatus = "CANCELED"
)

// IsTerminal reports whether the status is a terminal state.
func (rs RunStatus) IsTerminal() bool {
	return rs == RunSucceeded || rs == RunFailed || rs == RunCanceled
}

// NewRunStateMachine creates the state machine driving a pipeline run.
// A run is terminal once it leaves RUNNING; there is no retry transition,
// a superseded or failed run is replaced by a fresh one.
func NewRunStateMachine() *StateMachine[RunStatus] {
	sm := NewWithState(RunPending)

	sm.Allow(RunPending, RunRunning, RunCanceled).
		Allow(RunRunning, RunSucceeded, RunFailed, RunCanceled)

	return sm
}
