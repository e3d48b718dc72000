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
)

// Artifact is a file produced by a stage, owned by the run that
// produced it. Expiry is logical: an expired artifact stays recorded
// but becomes unreachable through the manager.
type Artifact struct {
	ArtifactId         string    `json:"artifactId"`
	RunId              string    `json:"runId"`
	Name               string    `json:"name"`
	ProducingStageName string    `json:"producingStageName"`
	Path               string    `json:"path"`
	RetentionDays      int       `json:"retentionDays"`
	CreatedAt          time.Time `json:"createdAt"`
	Compressed         bool      `json:"compressed"`
	Size               int64     `json:"size"` // bytes
	StorageRef         string    `json:"storagePath,omitempty"`
	Expired            bool      `json:"expired"`
}

// ExpiresAt returns the instant the retention window elapses.
func (a *Artifact) ExpiresAt() time.Time {
	return a.CreatedAt.AddDate(0, 0, a.RetentionDays)
}

// ActiveAt reports whether the artifact is inside its retention window
// at the given instant. Pure function of (createdAt, retentionDays, now).
func (a *Artifact) ActiveAt(now time.Time) bool {
	return now.Before(a.ExpiresAt())
}
