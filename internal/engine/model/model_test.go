package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conveyorci/conveyor/pkg/statemachine"
)

func TestPipelineRun_CloneIsDeep(t *testing.T) {
	run := &PipelineRun{
		RunId:  "r1",
		Status: statemachine.RunRunning,
		StageResults: []StepResult{
			{StageName: "build", Outcome: OutcomePassed, ArtifactIds: []string{"a1"}},
		},
	}

	cp := run.Clone()
	cp.StageResults[0].Outcome = OutcomeFailed
	cp.StageResults[0].ArtifactIds[0] = "mutated"
	cp.StageResults = append(cp.StageResults, StepResult{StageName: "extra"})

	assert.Equal(t, OutcomePassed, run.StageResults[0].Outcome)
	assert.Equal(t, "a1", run.StageResults[0].ArtifactIds[0])
	assert.Len(t, run.StageResults, 1)
}

func TestArtifact_ExpiryIsPureFunctionOfInputs(t *testing.T) {
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a := &Artifact{CreatedAt: createdAt, RetentionDays: 7}

	assert.Equal(t, createdAt.AddDate(0, 0, 7), a.ExpiresAt())
	assert.True(t, a.ActiveAt(createdAt.AddDate(0, 0, 6)))
	assert.False(t, a.ActiveAt(createdAt.AddDate(0, 0, 7)))
	assert.False(t, a.ActiveAt(createdAt.AddDate(0, 0, 8)))
}
