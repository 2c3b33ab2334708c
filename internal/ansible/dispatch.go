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

package ansible

import (
	"context"

	"github.com/concord-contrib/ansible-events/internal/callback"
)

// Callbacks are the lifecycle entry points a job event stream is dispatched
// to. *callback.Reporter satisfies Callbacks.
type Callbacks interface {
	OnPlaybookStart(p callback.Playbook)
	OnPlayStart(p callback.Play)
	OnTaskStart(ctx context.Context, h callback.Host, t callback.Task) error
	OnRunnerOK(ctx context.Context, r callback.Result) error
	OnRunnerFailed(ctx context.Context, r callback.Result) error
	OnRunnerSkipped(ctx context.Context, r callback.Result) error
	OnRunnerItemSkipped(ctx context.Context, r callback.Result) error
	OnRunnerUnreachable(ctx context.Context, r callback.Result) error
	OnRunnerAsyncFailed(ctx context.Context, r callback.Result) error
}

type handlerFn func(ctx context.Context, cb Callbacks, e *jobEvent) error

func resultHandler(fn func(Callbacks, context.Context, callback.Result) error) handlerFn {
	return func(ctx context.Context, cb Callbacks, e *jobEvent) error {
		return fn(cb, ctx, eventResult{&e.EventData})
	}
}

var handlers = map[string]handlerFn{
	eventTypePlaybookStart: func(_ context.Context, cb Callbacks, e *jobEvent) error {
		cb.OnPlaybookStart(eventPlaybook{&e.EventData})
		return nil
	},
	eventTypePlayStart: func(_ context.Context, cb Callbacks, e *jobEvent) error {
		cb.OnPlayStart(eventPlay{&e.EventData})
		return nil
	},
	eventTypeRunnerStart: func(ctx context.Context, cb Callbacks, e *jobEvent) error {
		return cb.OnTaskStart(ctx, eventHost{&e.EventData}, eventTask{&e.EventData})
	},
	eventTypeRunnerOK:          resultHandler(Callbacks.OnRunnerOK),
	eventTypeRunnerFailed:      resultHandler(Callbacks.OnRunnerFailed),
	eventTypeRunnerSkipped:     resultHandler(Callbacks.OnRunnerSkipped),
	eventTypeRunnerItemSkipped: resultHandler(Callbacks.OnRunnerItemSkipped),
	eventTypeRunnerUnreachable: resultHandler(Callbacks.OnRunnerUnreachable),
	eventTypeRunnerAsyncFailed: resultHandler(Callbacks.OnRunnerAsyncFailed),
}

// dispatch calls the callback matching the event. It reports whether the
// event type has a callback at all.
func dispatch(ctx context.Context, cb Callbacks, e *jobEvent) (bool, error) {
	fn, ok := handlers[e.Event]
	if !ok {
		return false, nil
	}
	return true, fn(ctx, cb, e)
}
