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

package runnerutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestAnsibleVerbosityString(t *testing.T) {
	cases := map[string]struct {
		verbosity int
		want      string
	}{
		"Zero":     {verbosity: 0, want: ""},
		"Negative": {verbosity: -1, want: ""},
		"Three":    {verbosity: 3, want: "-vvv"},
		"Capped":   {verbosity: 12, want: "-vvvvvvv"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, AnsibleVerbosityString(tc.verbosity), tc.want)
		})
	}
}

func TestConvertMapToSlice(t *testing.T) {
	got := ConvertMapToSlice(map[string]string{"b": "2", "a": "1"})
	if diff := cmp.Diff([]string{"a=1", "b=2"}, got); diff != "" {
		t.Errorf("ConvertMapToSlice(...): -want, +got:\n%s\n", diff)
	}
}

func TestArtifactsPath(t *testing.T) {
	assert.Equal(t, ArtifactsPath("/work", "abc"), "/work/artifacts/abc")
}
