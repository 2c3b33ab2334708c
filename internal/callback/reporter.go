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

// Package callback turns Ansible lifecycle callbacks into task events.
package callback

import (
	"context"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/pkg/errors"

	"github.com/concord-contrib/ansible-events/pkg/sanitize"
)

const (
	errSendEvent = "cannot send task event"

	fieldIgnoreErrors = "ignore_errors"
)

// A Sender delivers the data of one event.
type Sender interface {
	Send(ctx context.Context, data map[string]any) error
}

// A SenderFn is a function that satisfies Sender.
type SenderFn func(ctx context.Context, data map[string]any) error

// Send calls fn.
func (fn SenderFn) Send(ctx context.Context, data map[string]any) error {
	return fn(ctx, data)
}

// A DeliveryRecorder counts delivery outcomes by status.
type DeliveryRecorder interface {
	Delivered(status string)
	Failed(status string)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(string) {}
func (nopRecorder) Failed(string)    {}

// A ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.now = now
	}
}

// WithLogger sets the reporter's logger.
func WithLogger(l logging.Logger) ReporterOption {
	return func(r *Reporter) {
		r.log = l
	}
}

// WithDeliveryRecorder sets where delivery outcomes are counted.
func WithDeliveryRecorder(m DeliveryRecorder) ReporterOption {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// WithAsyncFailedStatus sets the status reported when an async task fails.
// It defaults to UNREACHABLE.
func WithAsyncFailedStatus(s Status) ReporterOption {
	return func(r *Reporter) {
		r.asyncFailed = s
	}
}

// A Reporter receives the lifecycle callbacks of one playbook run and sends
// a task event for each of them. The host must call it sequentially.
type Reporter struct {
	sender      Sender
	tracker     *DurationTracker
	now         func() time.Time
	log         logging.Logger
	metrics     DeliveryRecorder
	asyncFailed Status

	playbook string
	play     string
}

// New returns a Reporter that delivers events through the supplied sender.
func New(s Sender, o ...ReporterOption) *Reporter {
	r := &Reporter{
		sender:      s,
		tracker:     NewDurationTracker(),
		now:         time.Now,
		log:         logging.NewNopLogger(),
		metrics:     nopRecorder{},
		asyncFailed: StatusUnreachable,
	}

	for _, fn := range o {
		fn(r)
	}

	return r
}

// HandleEvent delivers one record. Delivery is attempted exactly once; any
// failure is returned to the caller.
func (r *Reporter) HandleEvent(ctx context.Context, rec Record) error {
	if err := r.sender.Send(ctx, rec.Data()); err != nil {
		r.metrics.Failed(string(rec.Status))
		return errors.Wrap(err, errSendEvent)
	}
	r.metrics.Delivered(string(rec.Status))
	r.log.Debug("Sent task event", "status", rec.Status, "phase", rec.Phase, "correlationId", rec.CorrelationID)
	return nil
}

// OnPlaybookStart remembers the playbook being run.
func (r *Reporter) OnPlaybookStart(p Playbook) {
	r.playbook = p.FileName()
	r.log.Info("Ansible event recording started", "playbook", r.playbook)
}

// OnPlayStart remembers the play being run. Its name is reported as the
// host group of subsequent events.
func (r *Reporter) OnPlayStart(p Play) {
	r.play = p.Name()
}

// OnTaskStart starts timing the task and sends a RUNNING event.
func (r *Reporter) OnTaskStart(ctx context.Context, h Host, t Task) error {
	id := CorrelationID(h, t)
	r.tracker.Start(id, r.now())

	return r.HandleEvent(ctx, Record{
		Status:        StatusRunning,
		Playbook:      r.playbook,
		Host:          h.Name(),
		HostGroup:     r.play,
		Task:          t.Name(),
		Action:        t.Action(),
		CorrelationID: id,
		Phase:         PhasePre,
	})
}

// OnRunnerOK sends an OK event.
func (r *Reporter) OnRunnerOK(ctx context.Context, res Result) error {
	return r.HandleEvent(ctx, r.complete(res, StatusOK))
}

// OnRunnerFailed sends a FAILED event carrying the task's ignore_errors
// keyword.
func (r *Reporter) OnRunnerFailed(ctx context.Context, res Result) error {
	rec := r.complete(res, StatusFailed)
	ignore := ignoreErrors(res.Task())
	rec.IgnoreErrors = &ignore
	return r.HandleEvent(ctx, rec)
}

// OnRunnerSkipped sends a SKIPPED event.
func (r *Reporter) OnRunnerSkipped(ctx context.Context, res Result) error {
	return r.HandleEvent(ctx, r.complete(res, StatusSkipped))
}

// OnRunnerItemSkipped sends a SKIPPED event for a skipped loop item.
func (r *Reporter) OnRunnerItemSkipped(ctx context.Context, res Result) error {
	return r.HandleEvent(ctx, r.complete(res, StatusSkipped))
}

// OnRunnerUnreachable sends an UNREACHABLE event.
func (r *Reporter) OnRunnerUnreachable(ctx context.Context, res Result) error {
	return r.HandleEvent(ctx, r.complete(res, StatusUnreachable))
}

// OnRunnerAsyncFailed sends an event for a failed async task, using the
// configured async failure status.
func (r *Reporter) OnRunnerAsyncFailed(ctx context.Context, res Result) error {
	return r.HandleEvent(ctx, r.complete(res, r.asyncFailed))
}

// Pending returns the number of started tasks that have not completed.
func (r *Reporter) Pending() int {
	return r.tracker.Len()
}

func (r *Reporter) complete(res Result, s Status) Record {
	h, t := res.Host(), res.Task()
	id := CorrelationID(h, t)
	d := r.tracker.Stop(id, r.now())

	return Record{
		Status:        s,
		Playbook:      r.playbook,
		Host:          h.Name(),
		HostGroup:     r.play,
		Task:          t.Name(),
		Action:        t.Action(),
		CorrelationID: id,
		Phase:         PhasePost,
		Duration:      &d,
		Result:        sanitize.Cleanup(res.Result()),
	}
}

func ignoreErrors(t Task) bool {
	v, ok := t.Fields()[fieldIgnoreErrors].(bool)
	return ok && v
}
