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

package cron

import (
	"errors"
	"sync"
	"time"

	robfig "github.com/robfig/cron"

	"github.com/conveyorci/conveyor/pkg/log"
	"github.com/conveyorci/conveyor/pkg/safe"
)

var (
	// ErrNotInitialized is returned when trying to use the global scheduler before initialization
	ErrNotInitialized = errors.New("global cron instance is not initialized")
)

var (
	globalCron *Scheduler
	globalMu   sync.RWMutex
	once       sync.Once
)

// JobObserver is notified after every scheduled job run.
// Used to feed metrics without the scheduler importing them.
type JobObserver func(name string, duration time.Duration)

// Scheduler wraps robfig/cron with named jobs and panic-safe execution.
type Scheduler struct {
	inner    *robfig.Cron
	logger   *log.Logger
	observer JobObserver

	mu    sync.Mutex
	names []string
}

// New creates a new Scheduler.
func New(logger *log.Logger) *Scheduler {
	return &Scheduler{
		inner:  robfig.New(),
		logger: logger,
	}
}

// SetObserver registers a job observer. Must be called before Start.
func (s *Scheduler) SetObserver(o JobObserver) {
	s.observer = o
}

// AddFunc schedules cmd according to spec. The job name is used for
// logging and metrics only.
func (s *Scheduler) AddFunc(spec, name string, cmd func()) error {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()

	return s.inner.AddFunc(spec, func() {
		start := time.Now()
		safe.Do(cmd)
		elapsed := time.Since(start)
		if s.observer != nil {
			s.observer(name, elapsed)
		}
		if s.logger != nil && s.logger.Log != nil {
			s.logger.Log.Debugw("cron job finished",
				"job", name,
				"duration", elapsed,
			)
		}
	})
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.inner.Start()
}

// Stop stops the scheduler. Running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.inner.Stop()
}

// Names returns the names of all registered jobs.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Init initializes the global scheduler instance.
func Init(logger *log.Logger) {
	once.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		globalCron = New(logger)
	})
}

// Get returns the global scheduler instance.
// Returns nil if not initialized.
func Get() *Scheduler {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCron
}

// AddFunc adds a func to the global scheduler instance.
func AddFunc(spec, name string, cmd func()) error {
	globalMu.RLock()
	s := globalCron
	globalMu.RUnlock()

	if s == nil {
		return ErrNotInitialized
	}
	return s.AddFunc(spec, name, cmd)
}

// Start starts the global scheduler.
func Start() {
	globalMu.RLock()
	s := globalCron
	globalMu.RUnlock()

	if s != nil {
		s.Start()
	}
}

// Stop stops the global scheduler.
func Stop() {
	globalMu.RLock()
	s := globalCron
	globalMu.RUnlock()

	if s != nil {
		s.Stop()
	}
}
