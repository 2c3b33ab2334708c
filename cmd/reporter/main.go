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

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	kingpin "github.com/alecthomas/kingpin/v2"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/spf13/afero"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/concord-contrib/ansible-events/internal/ansible"
	"github.com/concord-contrib/ansible-events/internal/callback"
	"github.com/concord-contrib/ansible-events/internal/concord"
	"github.com/concord-contrib/ansible-events/internal/metrics"
	"github.com/concord-contrib/ansible-events/pkg/runnerutil"
)

func main() {
	var (
		app             = kingpin.New(filepath.Base(os.Args[0]), "Reports Ansible task events to a Concord process.")
		debug           = app.Flag("debug", "Run with debug logging.").Short('d').Bool()
		baseURL         = app.Flag("base-url", "Base URL of the Concord server.").Envar("CONCORD_BASE_URL").Required().String()
		instanceID      = app.Flag("instance-id", "ID of the Concord process the events belong to.").Envar("CONCORD_INSTANCE_ID").Required().String()
		sessionToken    = app.Flag("session-token", "Session token of the Concord process.").Envar("CONCORD_SESSION_TOKEN").Required().String()
		correlationID   = app.Flag("event-correlation-id", "Correlation ID of the step that started the playbook.").Envar("CONCORD_EVENT_CORRELATION_ID").String()
		retryCount      = app.Flag("current-retry-count", "Retry attempt of the step that started the playbook.").Envar("CONCORD_CURRENT_RETRY_COUNT").String()
		timeout         = app.Flag("timeout", "Controls how long a single event delivery may take.").Default("30s").Duration()
		continueOnError = app.Flag("continue-on-error", "Log undeliverable events instead of aborting.").Default("true").Envar("CONCORD_EVENTS_CONTINUE_ON_ERROR").Bool()
		asyncFailed     = app.Flag("async-failed-status", "Status reported for failed async tasks.").Default(string(callback.StatusUnreachable)).Enum(string(callback.StatusUnreachable), string(callback.StatusFailed))
		metricsAddr     = app.Flag("metrics-addr", "Address to serve delivery metrics on. Disabled when empty.").String()

		runCmd       = app.Command("run", "Run a playbook with ansible-runner and report its task events.")
		runDir       = runCmd.Flag("private-data-dir", "ansible-runner private data dir.").Default(".").String()
		runPlaybook  = runCmd.Flag("playbook", "Playbook to run, relative to the project directory.").Short('p').Default(runnerutil.PlaybookYml).String()
		runSource    = runCmd.Flag("source", "go-getter source fetched into the project directory before the run.").String()
		runHosts     = runCmd.Flag("hosts", "Limit the run to these hosts.").String()
		runIdent     = runCmd.Flag("ident", "Ident of the run. Random when empty.").String()
		runVerbosity = runCmd.Flag("verbosity", "Ansible verbosity level.").Short('v').Default("0").Int()
		runBinary    = runCmd.Flag("runner-binary", "Path to ansible-runner. Looked up in PATH when empty.").Envar("ANSIBLE_RUNNER_BINARY").String()
		runEnv       = runCmd.Flag("env", "Extra environment variable for ansible-runner, KEY=VALUE.").StringMap()

		streamCmd = app.Command("stream", "Report a job event stream, as printed by ansible-runner --json, read from stdin.")

		replayCmd = app.Command("replay", "Report the job events of a finished ansible-runner run.")
		replayDir = replayCmd.Arg("artifacts-dir", "Artifacts directory of the run.").Required().ExistingDir()
	)
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	zl := zap.New(zap.UseDevMode(*debug))
	log := logging.NewLogrLogger(zl.WithName("ansible-events"))

	client, err := concord.NewClient(concord.Config{
		BaseURL:            *baseURL,
		InstanceID:         *instanceID,
		SessionToken:       *sessionToken,
		EventCorrelationID: optional(*correlationID),
		CurrentRetryCount:  optional(*retryCount),
		Timeout:            *timeout,
	})
	kingpin.FatalIfError(err, "Cannot configure event delivery")

	delivery := metrics.NewDelivery()
	if *metricsAddr != "" {
		serveMetrics(log, *metricsAddr, delivery.Handler())
	}

	reporter := callback.New(client,
		callback.WithLogger(log),
		callback.WithDeliveryRecorder(delivery),
		callback.WithAsyncFailedStatus(callback.Status(*asyncFailed)),
	)
	streamOpts := []ansible.StreamOption{
		ansible.WithContinueOnError(*continueOnError),
		ansible.WithStreamLogger(log),
	}

	ctx := signals.SetupSignalHandler()

	log.Debug("Starting", "endpoint", concord.Config{BaseURL: *baseURL, InstanceID: *instanceID}.Endpoint(), "command", cmd)

	switch cmd {
	case runCmd.FullCommand():
		if *runSource != "" {
			kingpin.FatalIfError(ansible.FetchProject(ctx, *runSource, filepath.Join(*runDir, "project")), "Cannot fetch project")
		}
		r, err := ansible.Parameters{
			WorkingDir:   *runDir,
			RunnerBinary: *runBinary,
			Playbook:     *runPlaybook,
			Ident:        *runIdent,
			Hosts:        *runHosts,
			Verbosity:    *runVerbosity,
			Env:          *runEnv,
		}.Init()
		kingpin.FatalIfError(err, "Cannot initialize ansible-runner")
		kingpin.FatalIfError(run(ctx, log, r, reporter, streamOpts...), "Playbook run failed")

	case streamCmd.FullCommand():
		kingpin.FatalIfError(ansible.Stream(ctx, os.Stdin, reporter, streamOpts...), "Cannot report job event stream")

	case replayCmd.FullCommand():
		kingpin.FatalIfError(ansible.ReplayArtifacts(ctx, afero.NewOsFs(), *replayDir, reporter, streamOpts...), "Cannot report job events")
	}

	if n := reporter.Pending(); n > 0 {
		log.Debug("Tasks started without a reported completion", "count", n)
	}
}

// run reports the event stream of a playbook run. A reporting error stops
// the run.
func run(ctx context.Context, log logging.Logger, r *ansible.Runner, cb ansible.Callbacks, o ...ansible.StreamOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Running playbook", "ident", r.Ident, "artifacts", r.ArtifactsDir())
	dc, out, err := r.Run(ctx)
	if err != nil {
		return err
	}

	serr := ansible.Stream(ctx, out, cb, o...)
	if serr != nil {
		cancel()
		// Unblock ansible-runner until it notices the cancellation.
		_, _ = io.Copy(io.Discard, out)
	}
	werr := dc.Wait()

	if serr != nil {
		return serr
	}
	return werr
}

func serveMetrics(log logging.Logger, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Info("Cannot serve metrics", "addr", addr, "error", err)
		}
	}()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
