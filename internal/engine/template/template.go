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

package template

import (
	"errors"
	"fmt"
	"time"

	"github.com/conveyorci/conveyor/internal/engine/model"
)

var (
	// ErrUnknownFailurePolicy is a configuration-load-time fatal error.
	ErrUnknownFailurePolicy = errors.New("unknown failure policy")
	// ErrUnknownRunCondition is a configuration-load-time fatal error.
	ErrUnknownRunCondition = errors.New("unknown run condition")
	// ErrRetentionUnderflow rejects retentionDays <= 0 at template load.
	ErrRetentionUnderflow = errors.New("artifact retention days must be positive")
	// ErrDuplicateStage rejects two stages sharing a name in one template.
	ErrDuplicateStage = errors.New("duplicate stage name")
	// ErrEmptyTemplate rejects templates without stages.
	ErrEmptyTemplate = errors.New("template declares no stages")
)

// ArtifactSpec declares a file a stage produces, with its retention.
type ArtifactSpec struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	RetentionDays int    `json:"retentionDays"`
	Compress      bool   `json:"compress"`
}

// StageSpec is the immutable definition of one stage. Two specs may
// share the same command with different args, e.g. a strict lint pass
// that fails the run and a lenient pass that only reports.
type StageSpec struct {
	Name          string              `json:"name"`
	Command       string              `json:"command"`
	Args          []string            `json:"args,omitempty"`
	Env           map[string]string   `json:"env,omitempty"`
	FailurePolicy model.FailurePolicy `json:"failurePolicy,omitempty"`
	RunCondition  model.RunCondition  `json:"runCondition,omitempty"`
	Timeout       string              `json:"timeout,omitempty"`
	Artifacts     []ArtifactSpec      `json:"artifacts,omitempty"`
}

// Template is the ordered, immutable stage sequence for a pipeline.
type Template struct {
	Name   string      `json:"name"`
	Stages []StageSpec `json:"stages"`
}

// StageTimeout returns the parsed per-stage timeout, or zero when the
// stage relies on the engine default.
func (s *StageSpec) StageTimeout() time.Duration {
	if s.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		// validated at load time, unreachable for loaded templates
		return 0
	}
	return d
}

// applyDefaults fills the zero values the YAML may omit.
func (t *Template) applyDefaults() {
	for i := range t.Stages {
		if t.Stages[i].FailurePolicy == "" {
			t.Stages[i].FailurePolicy = model.FailFast
		}
		if t.Stages[i].RunCondition == "" {
			t.Stages[i].RunCondition = model.OnSuccessSoFar
		}
	}
}

// Validate checks the template against the load-time rules. All
// violations are fatal before any run is created.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Stages) == 0 {
		return fmt.Errorf("template %q: %w", t.Name, ErrEmptyTemplate)
	}

	seen := make(map[string]struct{}, len(t.Stages))
	for _, stage := range t.Stages {
		if stage.Name == "" {
			return fmt.Errorf("template %q: stage name is required", t.Name)
		}
		if _, ok := seen[stage.Name]; ok {
			return fmt.Errorf("template %q: %w: %s", t.Name, ErrDuplicateStage, stage.Name)
		}
		seen[stage.Name] = struct{}{}

		if stage.Command == "" {
			return fmt.Errorf("template %q: stage %q: command is required", t.Name, stage.Name)
		}

		switch stage.FailurePolicy {
		case model.FailFast, model.ContinueOnError:
		default:
			return fmt.Errorf("template %q: stage %q: %w: %q",
				t.Name, stage.Name, ErrUnknownFailurePolicy, stage.FailurePolicy)
		}

		switch stage.RunCondition {
		case model.OnSuccessSoFar, model.Always:
		default:
			return fmt.Errorf("template %q: stage %q: %w: %q",
				t.Name, stage.Name, ErrUnknownRunCondition, stage.RunCondition)
		}

		if stage.Timeout != "" {
			if _, err := time.ParseDuration(stage.Timeout); err != nil {
				return fmt.Errorf("template %q: stage %q: invalid timeout: %w", t.Name, stage.Name, err)
			}
		}

		for _, art := range stage.Artifacts {
			if art.Name == "" || art.Path == "" {
				return fmt.Errorf("template %q: stage %q: artifact name and path are required", t.Name, stage.Name)
			}
			if art.RetentionDays <= 0 {
				return fmt.Errorf("template %q: stage %q: artifact %q: %w: %d",
					t.Name, stage.Name, art.Name, ErrRetentionUnderflow, art.RetentionDays)
			}
		}
	}
	return nil
}
