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

	getter "github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

const errFetchProject = "cannot fetch ansible project"

// FetchProject downloads the project at src, in any form go-getter
// understands (git, http archive, local path...), into the dst directory.
func FetchProject(ctx context.Context, src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, errFetchProject)
	}

	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeDir,
	}
	return errors.Wrap(client.Get(), errFetchProject)
}
