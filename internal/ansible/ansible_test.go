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
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gotest.tools/v3/assert"
)

const ident = "definitely-a-uuid"

func TestInit(t *testing.T) {
	dir := t.TempDir()

	params := Parameters{
		WorkingDir:   dir,
		RunnerBinary: "fake-runner",
		Playbook:     "site.yml",
		Ident:        ident,
		Hosts:        "web",
		Verbosity:    2,
	}

	expectedRunner := &Runner{
		Path:  dir,
		Ident: ident,
	}

	runner, err := params.Init()
	if err != nil {
		t.Fatalf("Unexpected Init() error: %v", err)
	}

	if diff := cmp.Diff(expectedRunner, runner, cmpopts.IgnoreUnexported(Runner{})); diff != "" {
		t.Errorf("Unexpected Runner -want, +got:\n%s\n", diff)
	}

	cmd := runner.cmdFunc(context.Background())
	expectedArgs := []string{"fake-runner", "run", dir, "-p", "site.yml", "--ident", ident, "--json", "--hosts", "web", "-vv"}
	if diff := cmp.Diff(expectedArgs, cmd.Args); diff != "" {
		t.Errorf("Unexpected Runner.cmdFunc args -want, +got:\n%s\n", diff)
	}
	assert.Equal(t, cmd.Dir, dir)
	assert.Equal(t, runner.ArtifactsDir(), filepath.Join(dir, "artifacts", ident))
}

func TestInitDefaults(t *testing.T) {
	runner, err := Parameters{WorkingDir: "/runner", RunnerBinary: "fake-runner"}.Init()
	assert.NilError(t, err)

	assert.Assert(t, runner.Ident != "", "a random ident should be generated")

	args := runner.cmdFunc(context.Background()).Args
	assert.Equal(t, args[4], "playbook.yml")
	assert.Equal(t, strings.Join(args, " "), "fake-runner run /runner -p playbook.yml --ident "+runner.Ident+" --json")
}

func TestInitEnv(t *testing.T) {
	runner, err := Parameters{WorkingDir: "/runner", RunnerBinary: "fake-runner", Env: map[string]string{"CONCORD_INSTANCE_ID": "abc"}}.Init()
	assert.NilError(t, err)

	env := runner.cmdFunc(context.Background()).Env
	assert.Equal(t, env[len(env)-1], "CONCORD_INSTANCE_ID=abc")
	assert.Equal(t, len(env), len(os.Environ())+1)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	runner := &Runner{
		Path:  dir,
		Ident: ident,
		cmdFunc: func(ctx context.Context) *exec.Cmd {
			// echo works well for testing cause it will just print all the args it receives and return success
			return exec.CommandContext(ctx, "echo", playbookStart)
		},
		stderr: io.Discard,
	}

	cmd, out, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected Run() error: %v", err)
	}

	m := &MockCallbacks{}
	if err := Stream(context.Background(), out, m); err != nil {
		t.Fatalf("Unexpected Stream() error: %v", err)
	}

	if err := cmd.Wait(); err != nil {
		t.Fatalf("Unexpected cmd.Wait() error: %v", err)
	}

	if diff := cmp.Diff([]call{{Name: "PlaybookStart", Playbook: "site.yml"}}, m.calls); diff != "" {
		t.Errorf("Unexpected callbacks -want, +got:\n%s\n", diff)
	}
}

func TestRunStartError(t *testing.T) {
	runner := &Runner{
		cmdFunc: func(ctx context.Context) *exec.Cmd {
			return exec.CommandContext(ctx, filepath.Join(t.TempDir(), "does-not-exist"))
		},
	}

	_, _, err := runner.Run(context.Background())
	assert.ErrorContains(t, err, errStartRunner)
}
