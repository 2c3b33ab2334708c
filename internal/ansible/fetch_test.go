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
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestFetchProject(t *testing.T) {
	src := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(src, "site.yml"), []byte("- hosts: all\n"), 0600))

	dst := filepath.Join(t.TempDir(), "project")
	assert.NilError(t, FetchProject(context.Background(), src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "site.yml"))
	assert.NilError(t, err)
	assert.Equal(t, string(b), "- hosts: all\n")
}

func TestFetchProjectError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "project")
	err := FetchProject(context.Background(), filepath.Join(t.TempDir(), "missing"), dst)
	assert.ErrorContains(t, err, errFetchProject)
}
