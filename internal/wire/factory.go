// Copyright 2026 The Gridcache Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

import (
	"encoding/json"

	"go.chromium.org/luci/common/errors"
)

// Scope restricts an invocation or aggregation to part of a cache. At most
// one field is honored; precedence is Key, then Keys, then Filter, then the
// whole cache.
type Scope struct {
	Key    json.RawMessage
	Keys   []json.RawMessage
	Filter any
}

// Unscoped reports whether the scope spans the whole cache.
func (s Scope) Unscoped() bool {
	return s.Key == nil && len(s.Keys) == 0 && s.Filter == nil
}

// keys resolves the scope's key list under the precedence rule: a single key
// wins over a key collection.
func (s Scope) keys() []json.RawMessage {
	if s.Key != nil {
		return []json.RawMessage{s.Key}
	}
	return s.Keys
}

// filter resolves the scope's filter under the precedence rule: any explicit
// key scope wins over a filter.
func (s Scope) filter() any {
	if s.Key != nil || len(s.Keys) > 0 {
		return nil
	}
	return s.Filter
}

// NewInvoke builds a single-entry processor invocation.
func NewInvoke(cache string, key json.RawMessage, processor any) (*InvokeRequest, error) {
	if processor == nil {
		return nil, errors.New("wire: invoke requires a processor")
	}
	return &InvokeRequest{Cache: cache, Key: key, Processor: processor}, nil
}

// NewInvokeAll builds a scoped processor invocation.
func NewInvokeAll(cache string, scope Scope, processor any) (*InvokeAllRequest, error) {
	if processor == nil {
		return nil, errors.New("wire: invokeAll requires a processor")
	}
	return &InvokeAllRequest{
		Cache:     cache,
		Keys:      scope.keys(),
		Filter:    scope.filter(),
		Processor: processor,
	}, nil
}

// NewAggregate builds a scoped aggregation.
func NewAggregate(cache string, scope Scope, aggregator any) (*AggregateRequest, error) {
	if aggregator == nil {
		return nil, errors.New("wire: aggregate requires an aggregator")
	}
	return &AggregateRequest{
		Cache:      cache,
		Keys:       scope.keys(),
		Filter:     scope.filter(),
		Aggregator: aggregator,
	}, nil
}

// NewCollection builds a one-shot filtered enumeration request.
func NewCollection(cache string, filter any) (*CollectionRequest, error) {
	if filter == nil {
		return nil, errors.New("wire: a filtered enumeration requires a filter; unscoped enumerations are paged")
	}
	return &CollectionRequest{Cache: cache, Filter: filter}, nil
}

// NewPage builds a page request for an unscoped enumeration. A nil cookie
// asks for the first page.
func NewPage(cache string, cookie []byte) *PageRequest {
	return &PageRequest{Cache: cache, Cookie: cookie}
}
