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

package concord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

const (
	// SessionTokenHeader carries the process session token.
	SessionTokenHeader = "X-Concord-SessionToken"

	// EventTypeAnsible is the event type of every reported task event.
	EventTypeAnsible = "ANSIBLE"

	userAgentPrefix = "Concord-Runner: txId="
	eventPath       = "/api/v1/process/%s/event"

	// maxErrorBody bounds how much of a failed response ends up in an error.
	maxErrorBody = 512
)

const (
	errMissingBaseURL      = "base URL is required"
	errMissingInstanceID   = "instance ID is required"
	errMissingSessionToken = "session token is required"
	errMarshalEvent        = "cannot marshal event"
	errNewRequest          = "cannot create event request"
	errPostEvent           = "cannot post event"
)

// Config holds everything needed to deliver events of one process.
type Config struct {
	BaseURL      string
	InstanceID   string
	SessionToken string

	// EventCorrelationID and CurrentRetryCount are echoed in every event as
	// parentCorrelationId and currentRetryCount. Nil values are sent as null.
	EventCorrelationID *string
	CurrentRetryCount  *string

	// Timeout of a single POST. Zero means no timeout.
	Timeout time.Duration
}

// Validate returns an error if a required value is missing.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New(errMissingBaseURL)
	case c.InstanceID == "":
		return errors.New(errMissingInstanceID)
	case c.SessionToken == "":
		return errors.New(errMissingSessionToken)
	}
	return nil
}

// Endpoint returns the URL events are posted to.
func (c Config) Endpoint() string {
	return strings.TrimSuffix(c.BaseURL, "/") + fmt.Sprintf(eventPath, c.InstanceID)
}

// Envelope is the body of an event request.
type Envelope struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data"`
}

// A StatusError is returned when the event endpoint answers with a
// non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected response status %d: %s", e.StatusCode, e.Body)
}

// A ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// Client posts events to the process event endpoint over a single
// persistent HTTP session.
type Client struct {
	http    *http.Client
	url     string
	headers http.Header

	correlationID *string
	retryCount    *string
}

// NewClient returns a Client for the supplied configuration.
func NewClient(cfg Config, o ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = cfg.Timeout

	h := http.Header{}
	h.Set(SessionTokenHeader, cfg.SessionToken)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", userAgentPrefix+cfg.InstanceID)

	c := &Client{
		http:          hc,
		url:           cfg.Endpoint(),
		headers:       h,
		correlationID: cfg.EventCorrelationID,
		retryCount:    cfg.CurrentRetryCount,
	}

	for _, fn := range o {
		fn(c)
	}

	return c, nil
}

// Envelope wraps the supplied event data, merging in the parent correlation
// ID and retry count of this process. The supplied data is not modified.
func (c *Client) Envelope(data map[string]any) Envelope {
	merged := make(map[string]any, len(data)+2)
	for k, v := range data {
		merged[k] = v
	}
	merged["parentCorrelationId"] = c.correlationID
	merged["currentRetryCount"] = c.retryCount

	return Envelope{EventType: EventTypeAnsible, Data: merged}
}

// Send posts the event data once. Any non-2xx response is returned as a
// *StatusError.
func (c *Client) Send(ctx context.Context, data map[string]any) error {
	body, err := json.Marshal(c.Envelope(data))
	if err != nil {
		return errors.Wrap(err, errMarshalEvent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errNewRequest)
	}
	req.Header = c.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errPostEvent)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}, errPostEvent)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
