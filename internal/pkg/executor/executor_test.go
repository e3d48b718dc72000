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
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWithoutShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestLocalExecutor_ExitZero(t *testing.T) {
	skipWithoutShell(t)

	e := NewLocalExecutor(nil)
	res := e.Execute(context.Background(), &ExecutionRequest{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo hello"},
	})

	if !res.Success() {
		t.Fatalf("expected success, got exit=%d err=%q", res.ExitCode, res.Error)
	}
	if !strings.Contains(res.Output, "hello") {
		t.Errorf("stdout not captured: %q", res.Output)
	}
	if res.ExecutorName != "local" {
		t.Errorf("unexpected executor name %q", res.ExecutorName)
	}
}

func TestLocalExecutor_NonZeroExit(t *testing.T) {
	skipWithoutShell(t)

	e := NewLocalExecutor(nil)
	res := e.Execute(context.Background(), &ExecutionRequest{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
	})

	if res.Success() {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected real exit code 3, got %d", res.ExitCode)
	}
	if res.Error != "" {
		t.Errorf("nonzero exit is not an invocation error, got %q", res.Error)
	}
	if !strings.Contains(res.ErrorOutput, "oops") {
		t.Errorf("stderr not captured: %q", res.ErrorOutput)
	}
}

func TestLocalExecutor_MissingBinary(t *testing.T) {
	e := NewLocalExecutor(nil)
	res := e.Execute(context.Background(), &ExecutionRequest{
		Command: "/no/such/binary",
	})

	if res.Success() {
		t.Fatal("expected failure")
	}
	if res.ExitCode != SyntheticExitCode {
		t.Errorf("expected synthetic exit code, got %d", res.ExitCode)
	}
	if res.Error == "" {
		t.Error("invocation failure should carry an error")
	}
}

func TestLocalExecutor_EmptyCommand(t *testing.T) {
	e := NewLocalExecutor(nil)
	res := e.Execute(context.Background(), &ExecutionRequest{})
	if res.ExitCode != SyntheticExitCode || res.Error == "" {
		t.Errorf("empty command should fold into a synthetic failure, got %+v", res)
	}
}

func TestLocalExecutor_Timeout(t *testing.T) {
	skipWithoutShell(t)

	e := NewLocalExecutor(nil)
	res := e.Execute(context.Background(), &ExecutionRequest{
		Command: "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})

	if !res.TimedOut {
		t.Fatal("expected timeout")
	}
	if res.ExitCode != SyntheticExitCode {
		t.Errorf("timeout should use the synthetic exit code, got %d", res.ExitCode)
	}
}

func TestLocalExecutor_EnvPassing(t *testing.T) {
	skipWithoutShell(t)

	e := NewLocalExecutor(nil)
	res := e.Execute(context.Background(), &ExecutionRequest{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo $CONVEYOR_RUN_ID"},
		Env:     map[string]string{"CONVEYOR_RUN_ID": "run-42"},
	})

	if !strings.Contains(res.Output, "run-42") {
		t.Errorf("env var not passed, output %q", res.Output)
	}
}
