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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/conveyorci/conveyor/pkg/log"
)

// LocalExecutor runs stage commands as child processes on the engine
// host. Every invocation failure is folded into the result with a
// synthetic exit code, so callers never special-case infrastructure
// failures against logical ones.
type LocalExecutor struct {
	logger *log.Logger
}

// NewLocalExecutor creates a local executor.
func NewLocalExecutor(logger *log.Logger) *LocalExecutor {
	return &LocalExecutor{logger: logger}
}

// Name returns the executor name.
func (e *LocalExecutor) Name() string {
	return "local"
}

// Execute runs the command and captures its exit status and output.
func (e *LocalExecutor) Execute(ctx context.Context, req *ExecutionRequest) *ExecutionResult {
	result := NewExecutionResult(e.Name())

	if req == nil || req.Command == "" {
		result.Complete(SyntheticExitCode, fmt.Errorf("command is empty"))
		return result
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...)
	cmd.Dir = req.Workspace

	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Output = stdout.String()
	result.ErrorOutput = stderr.String()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.Complete(SyntheticExitCode, fmt.Errorf("command timed out after %s", req.Timeout))
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// real nonzero exit status, not an invocation failure
			result.Complete(exitErr.ExitCode(), nil)
			return result
		}
		result.Complete(SyntheticExitCode, err)
		return result
	}

	result.Complete(0, nil)
	return result
}
