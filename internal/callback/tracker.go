/*
Copyright 2020 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package callback

import "time"

// A DurationTracker remembers when tasks started. It is not safe for
// concurrent use.
type DurationTracker struct {
	started map[string]int64
}

// NewDurationTracker returns an empty tracker.
func NewDurationTracker() *DurationTracker {
	return &DurationTracker{started: map[string]int64{}}
}

// Start records that the task identified by key started at now.
func (t *DurationTracker) Start(key string, now time.Time) {
	t.started[key] = now.UnixMilli()
}

// Stop forgets the task identified by key and returns how many milliseconds
// it ran. It returns 0 if the task was never started.
func (t *DurationTracker) Stop(key string, now time.Time) int64 {
	start, ok := t.started[key]
	if !ok {
		return 0
	}
	delete(t.started, key)
	return now.UnixMilli() - start
}

// Len returns the number of tasks that started but have not stopped.
func (t *DurationTracker) Len() int {
	return len(t.started)
}
