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

// Status of a task as reported to the event endpoint.
type Status string

// Task statuses.
const (
	StatusRunning     Status = "RUNNING"
	StatusOK          Status = "OK"
	StatusFailed      Status = "FAILED"
	StatusSkipped     Status = "SKIPPED"
	StatusUnreachable Status = "UNREACHABLE"
)

// Phase tells whether an event was emitted before or after a task ran.
type Phase string

// Event phases.
const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// The interfaces below are implemented by the host integration layer. They
// expose only what the reporter reads from the host's own objects.

// A Host is a managed host of the inventory.
type Host interface {
	Name() string
}

// A Task is a single task of a play.
type Task interface {
	// UUID is unique per task within a run.
	UUID() string
	Name() string
	Action() string
	// Fields are the task's declared keywords, such as ignore_errors.
	Fields() map[string]any
}

// A Result is the outcome of a Task on a Host.
type Result interface {
	Host() Host
	Task() Task
	Result() map[string]any
}

// A Playbook is the playbook being run.
type Playbook interface {
	FileName() string
}

// A Play is the play currently being run.
type Play interface {
	Name() string
}

// A Record is one task event.
type Record struct {
	Status        Status
	Playbook      string
	Host          string
	HostGroup     string
	Task          string
	Action        string
	CorrelationID string
	Phase         Phase

	// Set on post events only.
	Duration *int64
	Result   map[string]any

	// Set on failed events only.
	IgnoreErrors *bool
}

// Data returns the record as the flat mapping sent to the event endpoint.
func (r Record) Data() map[string]any {
	d := map[string]any{
		"status":        string(r.Status),
		"playbook":      r.Playbook,
		"host":          r.Host,
		"hostGroup":     r.HostGroup,
		"task":          r.Task,
		"action":        r.Action,
		"correlationId": r.CorrelationID,
		"phase":         string(r.Phase),
	}
	if r.Duration != nil {
		d["duration"] = *r.Duration
	}
	if r.Phase == PhasePost {
		d["result"] = r.Result
	}
	if r.IgnoreErrors != nil {
		d["ignore_errors"] = *r.IgnoreErrors
	}
	return d
}

// CorrelationID returns the key shared by the pre and post events of a task
// on a host.
func CorrelationID(h Host, t Task) string {
	return h.Name() + t.UUID()
}
