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

package safe

import (
	"fmt"
	"runtime/debug"

	"github.com/conveyorci/conveyor/pkg/log"
)

// Go runs f in a new goroutine, recovering any panic so a misbehaving
// run or cron job cannot take down the engine.
func Go(f func()) {
	go Do(f)
}

// Do runs f and absorbs any panic, logging the value and stack trace.
func Do(f func()) {
	defer func() {
		if r := recover(); r != nil {
			if l := log.GetLogger(); l != nil {
				l.Errorw("recovered from panic",
					"panic", r,
					"stack", string(debug.Stack()),
				)
			} else {
				fmt.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}
	}()
	f()
}
