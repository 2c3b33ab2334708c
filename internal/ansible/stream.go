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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	errReadStream     = "cannot read job event stream"
	errDispatchEvent  = "cannot dispatch job event"
	errListArtifacts  = "cannot list job events in artifacts directory"
	errReadArtifact   = "cannot read job event file"
	errDecodeArtifact = "cannot decode job event file"

	jobEventsDir = "job_events"

	// ansible-runner prints a job event on a single line, results included.
	maxEventLineSize = 64 * 1024 * 1024
	readBufferSize   = 64 * 1024
)

// A StreamOption configures how a job event stream is consumed.
type StreamOption func(*streamer)

// WithContinueOnError logs callback errors and keeps consuming the stream
// instead of returning the first error.
func WithContinueOnError(c bool) StreamOption {
	return func(s *streamer) {
		s.continueOnError = c
	}
}

// WithMaxLineSize sets the size of the longest line that is decoded. Longer
// lines are skipped.
func WithMaxLineSize(n int) StreamOption {
	return func(s *streamer) {
		s.maxLineSize = n
	}
}

// WithStreamLogger sets the logger used while consuming a stream.
func WithStreamLogger(l logging.Logger) StreamOption {
	return func(s *streamer) {
		s.log = l
	}
}

type streamer struct {
	cb              Callbacks
	log             logging.Logger
	continueOnError bool
	maxLineSize     int
}

func newStreamer(cb Callbacks, o ...StreamOption) *streamer {
	s := &streamer{cb: cb, log: logging.NewNopLogger(), maxLineSize: maxEventLineSize}
	for _, fn := range o {
		fn(s)
	}
	return s
}

func (s *streamer) handle(ctx context.Context, e *jobEvent) error {
	known, err := dispatch(ctx, s.cb, e)
	if !known {
		s.log.Debug("Ignoring job event", "event", e.Event, "counter", e.Counter)
		return nil
	}
	if err == nil {
		return nil
	}
	if s.continueOnError {
		s.log.Info("Cannot report job event", "event", e.Event, "counter", e.Counter, "error", err)
		return nil
	}
	return errors.Wrap(err, errDispatchEvent)
}

// decodeEvent decodes a job event keeping numbers as json.Number, so task
// results are reported with the values the host produced.
func decodeEvent(b []byte, e *jobEvent) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(e)
}

// readLine returns the next line of br. Lines longer than limit are discarded
// and reported as too long.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, tooLong, err
	}
}

// Stream reads newline delimited job events, as printed by
// `ansible-runner run --json`, and dispatches them in order. Lines that are
// not job events, or that are too long to decode, are skipped.
func Stream(ctx context.Context, r io.Reader, cb Callbacks, o ...StreamOption) error {
	s := newStreamer(cb, o...)

	br := bufio.NewReaderSize(r, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, tooLong, rerr := readLine(br, s.maxLineSize)
		if tooLong {
			s.log.Info("Skipping job event line over the size limit", "limit", s.maxLineSize)
		} else if err := s.handleLine(ctx, raw); err != nil {
			return err
		}

		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return errors.Wrap(rerr, errReadStream)
		}
	}
}

func (s *streamer) handleLine(ctx context.Context, raw []byte) error {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 || line[0] != '{' {
		return nil
	}
	e := &jobEvent{}
	if err := decodeEvent(line, e); err != nil || e.Event == "" {
		s.log.Debug("Skipping line that is not a job event", "line", string(line))
		return nil
	}
	return s.handle(ctx, e)
}

// ReplayArtifacts dispatches the job events stored in the artifacts
// directory of a finished run, ordered by their counter.
func ReplayArtifacts(ctx context.Context, fs afero.Fs, dir string, cb Callbacks, o ...StreamOption) error {
	events, err := readArtifacts(fs, dir)
	if err != nil {
		return err
	}

	s := newStreamer(cb, o...)
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.handle(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func readArtifacts(fs afero.Fs, dir string) ([]*jobEvent, error) {
	files, err := afero.Glob(fs, filepath.Join(dir, jobEventsDir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, errListArtifacts)
	}

	events := make([]*jobEvent, 0, len(files))
	for _, f := range files {
		b, err := afero.ReadFile(fs, f)
		if err != nil {
			return nil, errors.Wrap(err, errReadArtifact)
		}
		e := &jobEvent{}
		if err := decodeEvent(b, e); err != nil {
			return nil, errors.Wrapf(err, "%s %s", errDecodeArtifact, filepath.Base(f))
		}
		events = append(events, e)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Counter < events[j].Counter })
	return events, nil
}
