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

// Package sanitize shapes Ansible task results into compact, size-bounded
// values suitable for an event stream.
package sanitize

import (
	"strconv"
	"strings"
)

const (
	// MaxStringLen is the number of characters kept from an over-long string.
	MaxStringLen = 1024
	// OverlimitStringLen is how far past MaxStringLen a string may run
	// before it is truncated.
	OverlimitStringLen = MaxStringLen / 10

	// MaxArrayLen is the number of items kept from an over-long list.
	MaxArrayLen = 25
	// OverlimitArrayLen is how far past MaxArrayLen a list may run before
	// it is truncated.
	OverlimitArrayLen = MaxArrayLen / 10

	// InternalKeyPrefix marks result keys that are private to Ansible.
	InternalKeyPrefix = "_ansible_"
)

// Keys removed from the top level of a result.
var noisyKeys = []string{"invocation", "diff", "exception"}

// A Tuple is a fixed-arity sequence. Unlike a list it is never shortened.
type Tuple []any

// Cleanup returns a copy of the supplied task result with Ansible internal
// keys removed at every level, the invocation, diff and exception keys
// removed from the top level, and over-long values truncated. The supplied
// result is not modified.
func Cleanup(result map[string]any) map[string]any {
	if result == nil {
		return nil
	}

	clean := stripInternalKeys(result)
	for _, k := range noisyKeys {
		delete(clean, k)
	}

	return Truncate(clean).(map[string]any)
}

func stripInternalKeys(dirty map[string]any) map[string]any {
	clean := make(map[string]any, len(dirty))
	for k, v := range dirty {
		if strings.HasPrefix(k, InternalKeyPrefix) {
			continue
		}
		clean[k] = stripValue(v)
	}
	return clean
}

func stripValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return stripInternalKeys(t)
	case []any:
		out := make([]any, len(t))
		for i, o := range t {
			out[i] = stripValue(o)
		}
		return out
	case Tuple:
		out := make(Tuple, len(t))
		for i, o := range t {
			out[i] = stripValue(o)
		}
		return out
	default:
		return v
	}
}

// Truncate shortens strings and lists that run more than ten percent over
// their limits, recursing into lists, tuples and maps. Values that are over
// the limit by a smaller margin are returned unchanged.
func Truncate(v any) any {
	switch t := v.(type) {
	case string:
		return truncateString(t)
	case []any:
		return truncateList(t)
	case Tuple:
		out := make(Tuple, len(t))
		for i, o := range t {
			out[i] = Truncate(o)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, o := range t {
			out[k] = Truncate(o)
		}
		return out
	default:
		return v
	}
}

func truncateString(s string) string {
	r := []rune(s)
	over := len(r) - MaxStringLen
	if over <= OverlimitStringLen {
		return s
	}
	return string(r[:MaxStringLen]) + "...[skipped " + strconv.Itoa(over) + " bytes]"
}

func truncateList(l []any) []any {
	over := len(l) - MaxArrayLen
	if over <= OverlimitArrayLen {
		out := make([]any, len(l))
		for i, o := range l {
			out[i] = Truncate(o)
		}
		return out
	}

	out := make([]any, 0, MaxArrayLen+1)
	for _, o := range l[:MaxArrayLen] {
		out = append(out, Truncate(o))
	}
	return append(out, "[skipped "+strconv.Itoa(over)+" lines]")
}
