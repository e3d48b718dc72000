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

package artifact

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/pkg/event"
	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/metrics"
	"github.com/conveyorci/conveyor/pkg/retry"
	"github.com/conveyorci/conveyor/pkg/storage"
)

var (
	// ErrArtifactNotFound is returned for unknown artifact ids.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrArtifactExpired is returned when the retention window has elapsed.
	ErrArtifactExpired = errors.New("artifact retention window has elapsed")
)

// Manager owns artifact retention bookkeeping. Registration happens
// once per artifact, from the stage runner, regardless of the stage's
// outcome; per-run lists are append-only and never mutated across runs.
type Manager struct {
	mu    sync.RWMutex
	byRun map[string][]*model.Artifact
	byId  map[string]*model.Artifact

	store  storage.Provider
	bus    *event.EventBus
	logger *log.Logger
}

// NewManager creates an artifact manager backed by the given storage
// provider.
func NewManager(store storage.Provider, bus *event.EventBus, logger *log.Logger) *Manager {
	return &Manager{
		byRun:  make(map[string][]*model.Artifact),
		byId:   make(map[string]*model.Artifact),
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// Register records the artifact and uploads its content to the backend.
// Content may be nil for metadata-only registration (the producing
// stage declared the artifact but left no readable file).
func (m *Manager) Register(ctx context.Context, art *model.Artifact, content []byte) error {
	if art.RetentionDays <= 0 {
		return fmt.Errorf("artifact %q: retention days must be positive", art.Name)
	}
	if art.CreatedAt.IsZero() {
		art.CreatedAt = time.Now()
	}

	if content != nil {
		data := content
		if art.Compressed {
			compressed, err := gzipBytes(content)
			if err != nil {
				return fmt.Errorf("compress artifact %q: %w", art.Name, err)
			}
			data = compressed
		}
		art.Size = int64(len(data))

		objectName := fmt.Sprintf("%s/%s", art.RunId, art.Name)
		err := retry.Do(ctx, func(ctx context.Context) error {
			ref, err := m.store.PutObject(ctx, objectName, data, "application/octet-stream")
			if err != nil {
				return err
			}
			art.StorageRef = ref
			return nil
		}, retry.WithMaxAttempts(3), retry.WithBackoff(retry.Exponential(200*time.Millisecond)))
		if err != nil {
			return fmt.Errorf("upload artifact %q: %w", art.Name, err)
		}
	}

	m.mu.Lock()
	m.byRun[art.RunId] = append(m.byRun[art.RunId], art)
	m.byId[art.ArtifactId] = art
	m.mu.Unlock()

	metrics.ArtifactsActive.Inc()

	if m.logger != nil && m.logger.Log != nil {
		m.logger.Log.Infow("artifact registered",
			"artifactId", art.ArtifactId,
			"run", art.RunId,
			"stage", art.ProducingStageName,
			"retentionDays", art.RetentionDays,
			"compressed", art.Compressed,
			"size", art.Size,
		)
	}
	return nil
}

// ListActive returns the run's artifacts still inside their retention
// window as of now, in registration order.
func (m *Manager) ListActive(runId string, now time.Time) []model.Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()

	arts := m.byRun[runId]
	out := make([]model.Artifact, 0, len(arts))
	for _, a := range arts {
		if a.ActiveAt(now) {
			out = append(out, *a)
		}
	}
	return out
}

// Get returns the artifact record, expired or not.
func (m *Manager) Get(artifactId string) (model.Artifact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byId[artifactId]
	if !ok {
		return model.Artifact{}, false
	}
	return *a, true
}

// Fetch downloads the artifact content. Expired artifacts are
// unreachable even when the backend still holds the bytes.
func (m *Manager) Fetch(ctx context.Context, artifactId string, now time.Time) ([]byte, error) {
	m.mu.RLock()
	a, ok := m.byId[artifactId]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrArtifactNotFound
	}
	if !a.ActiveAt(now) {
		return nil, ErrArtifactExpired
	}
	if a.StorageRef == "" {
		return nil, fmt.Errorf("artifact %s has no stored content", artifactId)
	}

	data, err := m.store.GetObject(ctx, a.StorageRef)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact %s: %w", artifactId, err)
	}
	if a.Compressed {
		return gunzipBytes(data)
	}
	return data, nil
}

// Expire flags every artifact whose retention window elapsed as of now.
// Idempotent and monotonic: repeated calls with non-decreasing now never
// resurrect an expired artifact and never touch a non-expired one.
// Returns the number of artifacts newly flagged.
func (m *Manager) Expire(now time.Time) int {
	start := time.Now()

	m.mu.Lock()
	var expired []model.Artifact
	for _, a := range m.byId {
		if a.Expired || a.ActiveAt(now) {
			continue
		}
		a.Expired = true
		expired = append(expired, *a)
	}
	m.mu.Unlock()

	flagged := len(expired)
	if flagged > 0 {
		metrics.ArtifactsActive.Sub(float64(flagged))
		metrics.ArtifactsExpiredTotal.Add(float64(flagged))
		if m.bus != nil {
			for _, a := range expired {
				m.bus.Publish(model.ArtifactExpiredEvent{Artifact: a})
			}
		}
	}
	metrics.ObserveSweep(time.Since(start))

	return flagged
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
