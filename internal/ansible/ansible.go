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
	"io"
	"os"
	"os/exec"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/concord-contrib/ansible-events/pkg/runnerutil"
)

const (
	errRunnerBinary = "cannot find ansible-runner binary"
	errStdoutPipe   = "cannot open ansible-runner stdout"
	errStartRunner  = "cannot start ansible-runner"
)

// Parameters are minimal needed Parameters to initializes ansible-runner command
type Parameters struct {
	// Private data dir of ansible-runner. The playbook is resolved against its project/ directory.
	WorkingDir   string
	RunnerBinary string
	Playbook     string
	// Ident names the run's artifacts directory. A random one is used when empty.
	Ident     string
	Hosts     string
	Verbosity int
	// Env is added to the environment of ansible-runner.
	Env map[string]string
}

// A runnerOption configures a Runner.
type runnerOption func(*Runner)

// withPath initializes a runner path.
func withPath(path string) runnerOption {
	return func(r *Runner) {
		r.Path = path
	}
}

// withIdent sets the ident of the run.
func withIdent(ident string) runnerOption {
	return func(r *Runner) {
		r.Ident = ident
	}
}

// withCmdFunc defines the runner CmdFunc.
func withCmdFunc(cmdFunc cmdFuncType) runnerOption {
	return func(r *Runner) {
		r.cmdFunc = cmdFunc
	}
}

// withStderr sets where ansible-runner's stderr goes.
func withStderr(w io.Writer) runnerOption {
	return func(r *Runner) {
		r.stderr = w
	}
}

type cmdFuncType func(ctx context.Context) *exec.Cmd

// playbookCmdFunc mimics https://github.com/operator-framework/operator-sdk/blob/707240f006ecfc0bc86e5c21f6874d302992d598/internal/ansible/runner/runner.go#L75-L90
func (p Parameters) playbookCmdFunc(path, ident string) cmdFuncType {
	return func(ctx context.Context) *exec.Cmd {
		cmdArgs := []string{"run", p.WorkingDir}
		cmdOptions := []string{
			"-p", path,
			"--ident", ident,
			// one job event per stdout line
			"--json",
		}

		if p.Hosts != "" {
			cmdOptions = append(cmdOptions, "--hosts", p.Hosts)
		}

		// check the verbosity since the exec.Command will fail if an arg as "" or " " be informed
		if p.Verbosity > 0 {
			cmdOptions = append(cmdOptions, runnerutil.AnsibleVerbosityString(p.Verbosity))
		}

		// gosec is disabled here because of G204. We should pay attention that user can't
		// make command injection via command argument
		dc := exec.CommandContext(ctx, p.RunnerBinary, append(cmdArgs, cmdOptions...)...) //nolint:gosec
		dc.Dir = p.WorkingDir
		dc.Env = append(os.Environ(), runnerutil.ConvertMapToSlice(p.Env)...)
		return dc
	}
}

// Init initializes a new runner from parameters
func (p Parameters) Init() (*Runner, error) {
	if p.RunnerBinary == "" {
		bin, err := runnerutil.RunnerBinary()
		if err != nil {
			return nil, errors.Wrap(err, errRunnerBinary)
		}
		p.RunnerBinary = bin
	}

	path := p.Playbook
	if path == "" {
		path = runnerutil.PlaybookYml
	}

	ident := p.Ident
	if ident == "" {
		ident = uuid.NewString()
	}

	return new(withPath(p.WorkingDir),
		withIdent(ident),
		withCmdFunc(p.playbookCmdFunc(path, ident)),
		withStderr(os.Stderr),
	), nil
}

// Runner struct
type Runner struct {
	Path    string // private data dir of ansible-runner
	Ident   string
	cmdFunc cmdFuncType // returns a Cmd that runs ansible-runner
	stderr  io.Writer
}

// new returns a runner that will be used as ansible-runner client
func new(o ...runnerOption) *Runner {

	r := &Runner{}

	for _, fn := range o {
		fn(r)
	}

	return r
}

// ArtifactsDir returns the directory ansible-runner writes this run's artifacts to.
func (r *Runner) ArtifactsDir() string {
	return runnerutil.ArtifactsPath(r.Path, r.Ident)
}

// Run starts ansible-runner and returns the started command along with its
// job event stream. The caller must drain the stream before calling Wait.
func (r *Runner) Run(ctx context.Context) (*exec.Cmd, io.Reader, error) {
	dc := r.cmdFunc(ctx)
	dc.Stderr = r.stderr

	out, err := dc.StdoutPipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, errStdoutPipe)
	}

	if err := dc.Start(); err != nil {
		return nil, nil, errors.Wrap(err, errStartRunner)
	}
	return dc, out, nil
}
