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

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"
)

func TestDelivery(t *testing.T) {
	d := NewDelivery()
	d.Delivered("OK")
	d.Delivered("OK")
	d.Failed("FAILED")

	assert.Equal(t, testutil.ToFloat64(d.delivered.WithLabelValues("OK")), float64(2))
	assert.Equal(t, testutil.ToFloat64(d.failed.WithLabelValues("FAILED")), float64(1))

	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	assert.NilError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	b, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)

	assert.Assert(t, strings.Contains(string(b), `concord_ansible_events_delivered_total{status="OK"} 2`))
}

func TestNilDelivery(t *testing.T) {
	var d *Delivery
	d.Delivered("OK")
	d.Failed("OK")
}
