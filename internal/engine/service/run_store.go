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

package service

import (
	"sync"

	"github.com/conveyorci/conveyor/internal/engine/model"
)

// RunStore is the in-memory run history. Writers always put clones, so
// a stored run is never mutated after Put; readers get further clones
// and can never race a writer.
type RunStore struct {
	mu    sync.RWMutex
	runs  map[string]*model.PipelineRun
	order []string
	cap   int
}

// NewRunStore creates a store keeping at most cap runs; zero means
// unbounded.
func NewRunStore(cap int) *RunStore {
	return &RunStore{
		runs: make(map[string]*model.PipelineRun),
		cap:  cap,
	}
}

// Put inserts or replaces a run snapshot.
func (s *RunStore) Put(run *model.PipelineRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunId]; !exists {
		s.order = append(s.order, run.RunId)
		if s.cap > 0 && len(s.order) > s.cap {
			evict := s.order[0]
			s.order = s.order[1:]
			delete(s.runs, evict)
		}
	}
	s.runs[run.RunId] = run
}

// Get returns a copy of the run with the given id.
func (s *RunStore) Get(runId string) (*model.PipelineRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runId]
	if !ok {
		return nil, false
	}
	return run.Clone(), true
}

// List returns copies of all stored runs, most recent first.
func (s *RunStore) List() []*model.PipelineRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.PipelineRun, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if run, ok := s.runs[s.order[i]]; ok {
			out = append(out, run.Clone())
		}
	}
	return out
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
