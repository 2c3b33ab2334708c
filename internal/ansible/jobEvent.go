package ansible

import (
	"github.com/concord-contrib/ansible-events/internal/callback"
)

const (
	// https://github.com/ansible/awx/blob/devel/docs/job_events.md#job-event-relationships
	// outlines various event types and the relationships between them
	eventTypePlaybookStart     = "playbook_on_start"
	eventTypePlayStart         = "playbook_on_play_start"
	eventTypeRunnerStart       = "runner_on_start"
	eventTypeRunnerOK          = "runner_on_ok"
	eventTypeRunnerFailed      = "runner_on_failed"
	eventTypeRunnerSkipped     = "runner_on_skipped"
	eventTypeRunnerItemSkipped = "runner_item_on_skipped"
	eventTypeRunnerUnreachable = "runner_on_unreachable"
	eventTypeRunnerAsyncFailed = "runner_on_async_failed"

	fieldIgnoreErrors = "ignore_errors"
	fieldArgs         = "args"
)

// jobEvent represents [ansible-runner's job events](https://ansible.readthedocs.io/projects/runner/en/stable/intro/#artifactevents)
type jobEvent struct {
	UUID      string          `json:"uuid"`
	Counter   int             `json:"counter"`
	Stdout    string          `json:"stdout"`
	Event     string          `json:"event"`
	EventData runnerEventData `json:"event_data"`
}

type runnerEventData struct {
	Playbook     string         `json:"playbook"`
	Play         string         `json:"play"`
	Task         string         `json:"task"`
	TaskUUID     string         `json:"task_uuid"`
	TaskAction   string         `json:"task_action"`
	TaskArgs     string         `json:"task_args"`
	Host         string         `json:"host"`
	Result       map[string]any `json:"res"`
	IgnoreErrors *bool          `json:"ignore_errors"`
}

// The types below expose a job event through the callback host contracts.

type eventHost struct{ d *runnerEventData }

func (h eventHost) Name() string { return h.d.Host }

type eventTask struct{ d *runnerEventData }

func (t eventTask) UUID() string   { return t.d.TaskUUID }
func (t eventTask) Name() string   { return t.d.Task }
func (t eventTask) Action() string { return t.d.TaskAction }

func (t eventTask) Fields() map[string]any {
	f := map[string]any{}
	if t.d.IgnoreErrors != nil {
		f[fieldIgnoreErrors] = *t.d.IgnoreErrors
	}
	if t.d.TaskArgs != "" {
		f[fieldArgs] = t.d.TaskArgs
	}
	return f
}

type eventResult struct{ d *runnerEventData }

func (r eventResult) Host() callback.Host    { return eventHost{r.d} }
func (r eventResult) Task() callback.Task    { return eventTask{r.d} }
func (r eventResult) Result() map[string]any { return r.d.Result }

type eventPlaybook struct{ d *runnerEventData }

func (p eventPlaybook) FileName() string { return p.d.Playbook }

type eventPlay struct{ d *runnerEventData }

func (p eventPlay) Name() string { return p.d.Play }
