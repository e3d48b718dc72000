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

package executor

import (
	"context"
	"time"
)

// SyntheticExitCode marks results whose command never produced a real
// exit status (missing binary, crash before exec, timeout).
const SyntheticExitCode = -1

// Executor runs one opaque stage command. The engine core treats the
// command strictly as a black box: it only observes the exit status,
// the output streams, and whatever files the command left behind.
type Executor interface {
	// Execute runs the command described by req.
	// Invocation failures are folded into the result, not returned.
	Execute(ctx context.Context, req *ExecutionRequest) *ExecutionResult

	// Name returns the executor name.
	Name() string
}

// ExecutionRequest describes a single command invocation.
type ExecutionRequest struct {
	Command   string
	Args      []string
	Workspace string
	Env       map[string]string

	// Timeout bounds the invocation. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// ExecutionResult is the observed outcome of one command invocation.
type ExecutionResult struct {
	ExitCode    int
	Output      string
	ErrorOutput string
	Error       string
	TimedOut    bool

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	ExecutorName string
}

// NewExecutionResult creates an execution result stamped with the
// start time.
func NewExecutionResult(executorName string) *ExecutionResult {
	return &ExecutionResult{
		ExecutorName: executorName,
		StartTime:    time.Now(),
	}
}

// Complete finalizes the result with an exit code and optional error.
func (r *ExecutionResult) Complete(exitCode int, err error) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.ExitCode = exitCode
	if err != nil {
		r.Error = err.Error()
	}
}

// Success reports whether the command exited with status zero.
func (r *ExecutionResult) Success() bool {
	return r.ExitCode == 0 && r.Error == ""
}
