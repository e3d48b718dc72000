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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/internal/engine/template"
	"github.com/conveyorci/conveyor/pkg/statemachine"
)

func testRegistry(t *testing.T) *template.Registry {
	t.Helper()
	r := template.NewRegistry()
	require.NoError(t, r.Add(&template.Template{
		Name:   "ci",
		Stages: []template.StageSpec{{Name: "build", Command: "make"}},
	}))
	return r
}

func TestNewDispatcher_ConfigErrors(t *testing.T) {
	registry := testRegistry(t)
	valid := []FilterConf{{Kind: "push", Branch: "main"}}

	_, err := NewDispatcher(valid, registry, "nope", nil)
	require.Error(t, err, "unknown template")

	_, err = NewDispatcher(nil, registry, "ci", nil)
	require.Error(t, err, "no filters")

	_, err = NewDispatcher([]FilterConf{{Kind: "cron", Branch: "main"}}, registry, "ci", nil)
	require.Error(t, err, "unknown event kind")

	_, err = NewDispatcher([]FilterConf{{Kind: "push"}}, registry, "ci", nil)
	require.Error(t, err, "missing branch pattern")

	_, err = NewDispatcher([]FilterConf{{Kind: "push", Branch: "[unclosed"}}, registry, "ci", nil)
	require.Error(t, err, "invalid glob")

	_, err = NewDispatcher([]FilterConf{{Kind: "push", Branch: "main", Condition: "prId +"}}, registry, "ci", nil)
	require.Error(t, err, "invalid condition expression")

	_, err = NewDispatcher([]FilterConf{{Kind: "push", Branch: "main", Condition: `prId + "x"`}}, registry, "ci", nil)
	require.Error(t, err, "condition must be boolean")
}

func TestDispatch_MatchCreatesPendingRun(t *testing.T) {
	d, err := NewDispatcher([]FilterConf{{Kind: "push", Branch: "main"}}, testRegistry(t), "ci", nil)
	require.NoError(t, err)

	run, ok := d.Dispatch(model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/main", CommitSha: "abc"})
	require.True(t, ok)
	assert.NotEmpty(t, run.RunId)
	assert.Equal(t, "ci", run.TemplateName)
	assert.Equal(t, statemachine.RunPending, run.Status)
	assert.Equal(t, "abc", run.Trigger.CommitSha)
	assert.Empty(t, run.StageResults)
}

func TestDispatch_NoMatchIsNotAnError(t *testing.T) {
	d, err := NewDispatcher([]FilterConf{{Kind: "push", Branch: "main"}}, testRegistry(t), "ci", nil)
	require.NoError(t, err)

	// wrong kind
	_, ok := d.Dispatch(model.TriggerEvent{Kind: model.EventPullRequestOpened, Ref: "refs/heads/main"})
	assert.False(t, ok)

	// wrong branch
	_, ok = d.Dispatch(model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/feature"})
	assert.False(t, ok)
}

func TestDispatch_BranchGlob(t *testing.T) {
	d, err := NewDispatcher([]FilterConf{{Kind: "push", Branch: "release-*"}}, testRegistry(t), "ci", nil)
	require.NoError(t, err)

	_, ok := d.Dispatch(model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/release-1.2"})
	assert.True(t, ok)

	_, ok = d.Dispatch(model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/main"})
	assert.False(t, ok)
}

func TestDispatch_ConditionExpression(t *testing.T) {
	filters := []FilterConf{{
		Kind:      "pull_request_opened",
		Branch:    "*",
		Condition: `prId != "" && branch != "main"`,
	}}
	d, err := NewDispatcher(filters, testRegistry(t), "ci", nil)
	require.NoError(t, err)

	_, ok := d.Dispatch(model.TriggerEvent{Kind: model.EventPullRequestOpened, Ref: "refs/heads/feature", PrID: "12"})
	assert.True(t, ok)

	// condition false: no pr id
	_, ok = d.Dispatch(model.TriggerEvent{Kind: model.EventPullRequestOpened, Ref: "refs/heads/feature"})
	assert.False(t, ok)

	// condition false: main branch
	_, ok = d.Dispatch(model.TriggerEvent{Kind: model.EventPullRequestOpened, Ref: "refs/heads/main", PrID: "12"})
	assert.False(t, ok)
}

func TestDispatch_FirstMatchingFilterWins(t *testing.T) {
	filters := []FilterConf{
		{Kind: "push", Branch: "release-*"},
		{Kind: "push", Branch: "*"},
	}
	d, err := NewDispatcher(filters, testRegistry(t), "ci", nil)
	require.NoError(t, err)

	_, ok := d.Dispatch(model.TriggerEvent{Kind: model.EventPush, Ref: "refs/heads/anything"})
	assert.True(t, ok)
}

func TestBranchOf(t *testing.T) {
	assert.Equal(t, "main", BranchOf("refs/heads/main"))
	assert.Equal(t, "feature/x", BranchOf("refs/heads/feature/x"))
	assert.Equal(t, "main", BranchOf("main"))
}
