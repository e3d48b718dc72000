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

// Package shutdown coordinates graceful termination: once shutdown
// begins, intake surfaces stop accepting work while in-flight work
// drains.
package shutdown

import (
	"sync"
	"sync/atomic"
)

type Manager struct {
	draining atomic.Bool
	once     sync.Once
	done     chan struct{}
}

func NewManager() *Manager {
	return &Manager{done: make(chan struct{})}
}

// IsShuttingDown reports whether Shutdown has been called.
func (m *Manager) IsShuttingDown() bool {
	return m.draining.Load()
}

// Shutdown moves the manager into the draining state. Safe to call more
// than once; only the first call returns true.
func (m *Manager) Shutdown() bool {
	first := m.draining.CompareAndSwap(false, true)
	m.once.Do(func() { close(m.done) })
	return first
}

// Done is closed when shutdown begins.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
