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

package trigger

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/pkg/id"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/statemachine"
)

// FilterConf is one trigger filter as declared in configuration.
// Kind and Branch are required; Condition is an optional expression
// evaluated against the event, e.g. `prId != "" || branch == "main"`.
type FilterConf struct {
	Kind      string
	Branch    string
	Condition string
}

type compiledFilter struct {
	kind      model.EventKind
	branch    string
	condition *vm.Program
}

// Dispatcher matches incoming events against the configured filters
// and creates a pending run for the first filter that matches. A
// non-matching event is not an error; it simply creates nothing.
type Dispatcher struct {
	filters      []compiledFilter
	registry     *template.Registry
	templateName string
	logger       *log.Logger
}

// conditionEnv is the expression environment a filter condition sees.
type conditionEnv struct {
	Kind   string `expr:"kind"`
	Ref    string `expr:"ref"`
	Branch string `expr:"branch"`
	PrID   string `expr:"prId"`
}

// NewDispatcher compiles the filters and binds the template. Invalid
// patterns, conditions, or an unknown template are configuration
// errors surfaced before any run is created.
func NewDispatcher(filters []FilterConf, registry *template.Registry, templateName string, logger *log.Logger) (*Dispatcher, error) {
	if _, ok := registry.Get(templateName); !ok {
		return nil, fmt.Errorf("trigger dispatcher: unknown template %q", templateName)
	}
	if len(filters) == 0 {
		return nil, fmt.Errorf("trigger dispatcher: no filters configured")
	}

	compiled := make([]compiledFilter, 0, len(filters))
	for i, f := range filters {
		switch model.EventKind(f.Kind) {
		case model.EventPush, model.EventPullRequestOpened, model.EventPullRequestSynchronized:
		default:
			return nil, fmt.Errorf("trigger filter %d: unknown event kind %q", i, f.Kind)
		}
		if f.Branch == "" {
			return nil, fmt.Errorf("trigger filter %d: branch pattern is required", i)
		}
		if _, err := path.Match(f.Branch, "probe"); err != nil {
			return nil, fmt.Errorf("trigger filter %d: invalid branch pattern %q: %w", i, f.Branch, err)
		}

		cf := compiledFilter{
			kind:   model.EventKind(f.Kind),
			branch: f.Branch,
		}
		if f.Condition != "" {
			program, err := expr.Compile(f.Condition, expr.Env(conditionEnv{}), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("trigger filter %d: invalid condition: %w", i, err)
			}
			cf.condition = program
		}
		compiled = append(compiled, cf)
	}

	return &Dispatcher{
		filters:      compiled,
		registry:     registry,
		templateName: templateName,
		logger:       logger,
	}, nil
}

// Dispatch matches the event and, on a hit, instantiates a new pending
// run bound to the registry's current template. Run creation is the
// only state mutation; dispatch is otherwise pure.
func (d *Dispatcher) Dispatch(ev model.TriggerEvent) (*model.PipelineRun, bool) {
	branch := BranchOf(ev.Ref)

	matched := false
	for _, f := range d.filters {
		if f.kind != ev.Kind {
			continue
		}
		ok, err := path.Match(f.branch, branch)
		if err != nil || !ok {
			continue
		}
		if f.condition != nil {
			out, err := expr.Run(f.condition, conditionEnv{
				Kind:   string(ev.Kind),
				Ref:    ev.Ref,
				Branch: branch,
				PrID:   ev.PrID,
			})
			if err != nil {
				if d.logger != nil && d.logger.Log != nil {
					d.logger.Log.Warnw("trigger condition evaluation failed",
						"kind", ev.Kind,
						"ref", ev.Ref,
						"error", err,
					)
				}
				continue
			}
			if pass, _ := out.(bool); !pass {
				continue
			}
		}
		matched = true
		break
	}

	if !matched {
		if d.logger != nil && d.logger.Log != nil {
			d.logger.Log.Debugw("event matched no trigger filter",
				"kind", ev.Kind,
				"ref", ev.Ref,
			)
		}
		return nil, false
	}

	run := &model.PipelineRun{
		RunId:        id.GetUUID(),
		TemplateName: d.templateName,
		Trigger:      ev,
		Status:       statemachine.RunPending,
		CreatedAt:    time.Now(),
	}
	return run, true
}

// Template returns the template runs created by this dispatcher bind.
func (d *Dispatcher) Template() *template.Template {
	t, _ := d.registry.Get(d.templateName)
	return t
}

// BranchOf normalizes a git ref to its branch name.
func BranchOf(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
