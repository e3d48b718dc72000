package model

import "github.com/conveyorci/conveyor/pkg/statemachine"

// Lifecycle event names published on the engine event bus.
const (
	EventNameRunCreated       = "run.created"
	EventNameRunStatusChanged = "run.status_changed"
	EventNameRunFinished      = "run.finished"
	EventNameStageFinished    = "stage.finished"
	EventNameArtifactExpired  = "artifact.expired"
)

type RunCreatedEvent struct {
	Run *PipelineRun
}

func (e RunCreatedEvent) EventName() string { return EventNameRunCreated }
func (e RunCreatedEvent) EventType() string { return "pipeline" }

// RunStatusChangedEvent is published on every run status transition,
// including the terminal one that RunFinishedEvent also reports.
type RunStatusChangedEvent struct {
	RunId string
	From  statemachine.RunStatus
	To    statemachine.RunStatus
}

func (e RunStatusChangedEvent) EventName() string { return EventNameRunStatusChanged }
func (e RunStatusChangedEvent) EventType() string { return "pipeline" }

type RunFinishedEvent struct {
	Run *PipelineRun
}

func (e RunFinishedEvent) EventName() string { return EventNameRunFinished }
func (e RunFinishedEvent) EventType() string { return "pipeline" }

type StageFinishedEvent struct {
	RunId  string
	Result StepResult
}

func (e StageFinishedEvent) EventName() string { return EventNameStageFinished }
func (e StageFinishedEvent) EventType() string { return "pipeline" }

type ArtifactExpiredEvent struct {
	Artifact Artifact
}

func (e ArtifactExpiredEvent) EventName() string { return EventNameArtifactExpired }
func (e ArtifactExpiredEvent) EventType() string { return "artifact" }
