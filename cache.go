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

package gridcache

import (
	"context"
	"encoding/json"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"go.gridcache.dev/gridcache/aggregators"
	"go.gridcache.dev/gridcache/extractors"
	"go.gridcache.dev/gridcache/filters"
	"go.gridcache.dev/gridcache/internal/wire"
	"go.gridcache.dev/gridcache/processors"
)

// NamedCache is a typed handle to one named cache. It holds no entry state:
// every operation is a call against current server state.
//
// A handle may be used concurrently by multiple goroutines issuing
// independent operations. The client does not serialize them: operations
// issued without awaiting the previous one may execute on the server in
// either order.
type NamedCache[K comparable, V any] struct {
	session *Session
	name    string
}

// Entry is one key/value mapping of a cache.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Name returns the cache's name.
func (nc *NamedCache[K, V]) Name() string { return nc.name }

// Release releases the server-side handle for this cache. The cache and its
// contents are untouched; only this client's registration goes away.
func (nc *NamedCache[K, V]) Release(ctx context.Context) error {
	logging.Debugf(ctx, "gridcache: releasing cache %q", nc.name)
	return nc.session.tr.Unary(ctx, wire.MethodReleaseCache, &wire.CacheRequest{Cache: nc.name}, &wire.Empty{})
}

func (nc *NamedCache[K, V]) encodeKey(k K) (json.RawMessage, error) {
	b, err := nc.session.codec.Marshal(k)
	if err != nil {
		return nil, errors.Fmt("gridcache: encoding key: %w", err)
	}
	return b, nil
}

func (nc *NamedCache[K, V]) encodeValue(v V) (json.RawMessage, error) {
	b, err := nc.session.codec.Marshal(v)
	if err != nil {
		return nil, errors.Fmt("gridcache: encoding value: %w", err)
	}
	return b, nil
}

// decodeOptional decodes a possibly-absent response value into *V; absence
// decodes to nil.
func (nc *NamedCache[K, V]) decodeOptional(resp *wire.OptionalValue) (*V, error) {
	if !resp.Present {
		return nil, nil
	}
	var v V
	if err := nc.session.codec.Unmarshal(resp.Value, &v); err != nil {
		return nil, errors.Fmt("gridcache: decoding value: %w", err)
	}
	return &v, nil
}

// keyed issues a unary call whose request is {cache, key} and whose response
// is an optional value.
func (nc *NamedCache[K, V]) keyed(ctx context.Context, method string, key K) (*V, error) {
	rawKey, err := nc.encodeKey(key)
	if err != nil {
		return nil, err
	}
	var resp wire.OptionalValue
	if err := nc.session.tr.Unary(ctx, method, &wire.KeyRequest{Cache: nc.name, Key: rawKey}, &resp); err != nil {
		return nil, err
	}
	return nc.decodeOptional(&resp)
}

// entryRequest builds the {cache, key, value} request shape shared by the
// two-argument mutations.
func (nc *NamedCache[K, V]) entryRequest(key K, value V, ttl time.Duration) (*wire.EntryRequest, error) {
	rawKey, err := nc.encodeKey(key)
	if err != nil {
		return nil, err
	}
	rawVal, err := nc.encodeValue(value)
	if err != nil {
		return nil, err
	}
	return &wire.EntryRequest{Cache: nc.name, Key: rawKey, Value: rawVal, TTLMillis: ttl.Milliseconds()}, nil
}

// Get returns the value mapped to key, or nil when there is no mapping.
func (nc *NamedCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	return nc.keyed(ctx, wire.MethodGet, key)
}

// Put maps key to value and returns the previous value, if any.
func (nc *NamedCache[K, V]) Put(ctx context.Context, key K, value V) (*V, error) {
	return nc.PutWithExpiry(ctx, key, value, 0)
}

// PutWithExpiry is Put with an entry lifetime; zero means the cache default.
func (nc *NamedCache[K, V]) PutWithExpiry(ctx context.Context, key K, value V, ttl time.Duration) (*V, error) {
	req, err := nc.entryRequest(key, value, ttl)
	if err != nil {
		return nil, err
	}
	var resp wire.OptionalValue
	if err := nc.session.tr.Unary(ctx, wire.MethodPut, req, &resp); err != nil {
		return nil, err
	}
	return nc.decodeOptional(&resp)
}

// PutIfAbsent maps key to value only when no mapping exists, returning the
// existing value when one does.
func (nc *NamedCache[K, V]) PutIfAbsent(ctx context.Context, key K, value V) (*V, error) {
	req, err := nc.entryRequest(key, value, 0)
	if err != nil {
		return nil, err
	}
	var resp wire.OptionalValue
	if err := nc.session.tr.Unary(ctx, wire.MethodPutIfAbsent, req, &resp); err != nil {
		return nil, err
	}
	return nc.decodeOptional(&resp)
}

// Remove removes the mapping for key and returns the removed value, if any.
func (nc *NamedCache[K, V]) Remove(ctx context.Context, key K) (*V, error) {
	return nc.keyed(ctx, wire.MethodRemove, key)
}

// RemoveMapping removes the entry only when key currently maps to value and
// reports whether it did.
func (nc *NamedCache[K, V]) RemoveMapping(ctx context.Context, key K, value V) (bool, error) {
	req, err := nc.entryRequest(key, value, 0)
	if err != nil {
		return false, err
	}
	var resp wire.BoolValue
	if err := nc.session.tr.Unary(ctx, wire.MethodRemoveMapping, req, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// Replace maps key to value only when a mapping already exists, returning
// the previous value, if any.
func (nc *NamedCache[K, V]) Replace(ctx context.Context, key K, value V) (*V, error) {
	req, err := nc.entryRequest(key, value, 0)
	if err != nil {
		return nil, err
	}
	var resp wire.OptionalValue
	if err := nc.session.tr.Unary(ctx, wire.MethodReplace, req, &resp); err != nil {
		return nil, err
	}
	return nc.decodeOptional(&resp)
}

// ReplaceMapping maps key to newValue only when it currently maps to
// previous, and reports whether it did.
func (nc *NamedCache[K, V]) ReplaceMapping(ctx context.Context, key K, previous, newValue V) (bool, error) {
	rawKey, err := nc.encodeKey(key)
	if err != nil {
		return false, err
	}
	rawPrev, err := nc.encodeValue(previous)
	if err != nil {
		return false, err
	}
	rawNew, err := nc.encodeValue(newValue)
	if err != nil {
		return false, err
	}
	req := &wire.ReplaceMappingRequest{Cache: nc.name, Key: rawKey, PreviousValue: rawPrev, NewValue: rawNew}
	var resp wire.BoolValue
	if err := nc.session.tr.Unary(ctx, wire.MethodReplaceMapping, req, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// ContainsKey reports whether a mapping for key exists.
func (nc *NamedCache[K, V]) ContainsKey(ctx context.Context, key K) (bool, error) {
	rawKey, err := nc.encodeKey(key)
	if err != nil {
		return false, err
	}
	var resp wire.BoolValue
	if err := nc.session.tr.Unary(ctx, wire.MethodContainsKey, &wire.KeyRequest{Cache: nc.name, Key: rawKey}, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// ContainsValue reports whether any entry maps to value.
func (nc *NamedCache[K, V]) ContainsValue(ctx context.Context, value V) (bool, error) {
	rawVal, err := nc.encodeValue(value)
	if err != nil {
		return false, err
	}
	var resp wire.BoolValue
	if err := nc.session.tr.Unary(ctx, wire.MethodContainsValue, &wire.ValueRequest{Cache: nc.name, Value: rawVal}, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// ContainsEntry reports whether key currently maps to value.
func (nc *NamedCache[K, V]) ContainsEntry(ctx context.Context, key K, value V) (bool, error) {
	req, err := nc.entryRequest(key, value, 0)
	if err != nil {
		return false, err
	}
	var resp wire.BoolValue
	if err := nc.session.tr.Unary(ctx, wire.MethodContainsEntry, req, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// Clear removes every entry.
func (nc *NamedCache[K, V]) Clear(ctx context.Context) error {
	return nc.session.tr.Unary(ctx, wire.MethodClear, &wire.CacheRequest{Cache: nc.name}, &wire.Empty{})
}

// Size returns the number of entries.
func (nc *NamedCache[K, V]) Size(ctx context.Context) (int, error) {
	var resp wire.IntValue
	if err := nc.session.tr.Unary(ctx, wire.MethodSize, &wire.CacheRequest{Cache: nc.name}, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// IsEmpty reports whether the cache has no entries.
func (nc *NamedCache[K, V]) IsEmpty(ctx context.Context) (bool, error) {
	var resp wire.BoolValue
	if err := nc.session.tr.Unary(ctx, wire.MethodIsEmpty, &wire.CacheRequest{Cache: nc.name}, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// AddIndex asks the server to index the values ex yields, optionally keeping
// the index sorted by their natural order.
func (nc *NamedCache[K, V]) AddIndex(ctx context.Context, ex extractors.Extractor, sorted bool) error {
	if ex == nil {
		return errors.New("gridcache: AddIndex requires an extractor")
	}
	req := &wire.AddIndexRequest{Cache: nc.name, Extractor: ex, Sorted: sorted}
	return nc.session.tr.Unary(ctx, wire.MethodAddIndex, req, &wire.Empty{})
}

// AddIndexWithComparator is AddIndex with an explicit ordering; the index is
// always sorted.
func (nc *NamedCache[K, V]) AddIndexWithComparator(ctx context.Context, ex extractors.Extractor, cmp *extractors.Comparator) error {
	if ex == nil {
		return errors.New("gridcache: AddIndex requires an extractor")
	}
	if cmp == nil {
		return errors.New("gridcache: AddIndexWithComparator requires a comparator")
	}
	req := &wire.AddIndexRequest{Cache: nc.name, Extractor: ex, Sorted: true, Comparator: cmp}
	return nc.session.tr.Unary(ctx, wire.MethodAddIndex, req, &wire.Empty{})
}

// Invoke applies proc to the entry for key and returns the decoded
// invocation result (nil when the processor returns nothing). A flattened
// chain built with AndThen yields one result per leaf processor, in leaf
// order, decoded as a slice.
func (nc *NamedCache[K, V]) Invoke(ctx context.Context, key K, proc processors.Processor) (any, error) {
	rawKey, err := nc.encodeKey(key)
	if err != nil {
		return nil, err
	}
	req, err := wire.NewInvoke(nc.name, rawKey, proc)
	if err != nil {
		return nil, err
	}
	var resp wire.OptionalValue
	if err := nc.session.tr.Unary(ctx, wire.MethodInvoke, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Present {
		return nil, nil
	}
	var out any
	if err := nc.session.codec.Unmarshal(resp.Value, &out); err != nil {
		return nil, errors.Fmt("gridcache: decoding invocation result: %w", err)
	}
	return out, nil
}

// InvokeAll applies proc to every entry and streams per-entry results as
// they arrive. The returned iterator is a one-shot cursor: unlike a
// Collection it is not restartable, since re-running it would re-execute the
// processor.
func (nc *NamedCache[K, V]) InvokeAll(proc processors.Processor) *Iterator[Entry[K, any]] {
	return nc.invokeScoped(wire.Scope{}, proc)
}

// InvokeAllKeys is InvokeAll restricted to the given keys. An empty key
// list invokes nothing: the wire format cannot tell an empty key scope from
// no scope, so it never leaves the client.
func (nc *NamedCache[K, V]) InvokeAllKeys(keys []K, proc processors.Processor) *Iterator[Entry[K, any]] {
	if len(keys) == 0 {
		return exhaustedIterator[Entry[K, any]]()
	}
	raw, err := nc.encodeKeys(keys)
	if err != nil {
		return failedIterator[Entry[K, any]](err)
	}
	return nc.invokeScoped(wire.Scope{Keys: raw}, proc)
}

// InvokeAllFilter is InvokeAll restricted to entries f matches.
func (nc *NamedCache[K, V]) InvokeAllFilter(f filters.Filter, proc processors.Processor) *Iterator[Entry[K, any]] {
	if f == nil {
		return failedIterator[Entry[K, any]](errors.New("gridcache: InvokeAllFilter requires a filter"))
	}
	return nc.invokeScoped(wire.Scope{Filter: f}, proc)
}

func (nc *NamedCache[K, V]) invokeScoped(scope wire.Scope, proc processors.Processor) *Iterator[Entry[K, any]] {
	req, err := wire.NewInvokeAll(nc.name, scope, proc)
	if err != nil {
		return failedIterator[Entry[K, any]](err)
	}
	return newIterator(
		func(ctx context.Context, _ []byte) (stream, error) {
			logging.Debugf(ctx, "gridcache: %q: invoking across entries", nc.name)
			return nc.session.tr.Stream(ctx, wire.MethodInvokeAll, req)
		},
		nc.readResult,
		false,
	)
}

// readResult decodes one invokeAll stream element: the entry key plus that
// entry's invocation result.
func (nc *NamedCache[K, V]) readResult(s stream, pos int) (Entry[K, any], error) {
	var msg wire.EntryMessage
	if err := s.Recv(&msg); err != nil {
		return Entry[K, any]{}, err
	}
	var k K
	if err := nc.session.codec.Unmarshal(msg.Key, &k); err != nil {
		return Entry[K, any]{}, errors.Fmt("gridcache: decoding key of element %d: %w", pos, err)
	}
	var result any
	if len(msg.Value) > 0 {
		if err := nc.session.codec.Unmarshal(msg.Value, &result); err != nil {
			return Entry[K, any]{}, errors.Fmt("gridcache: decoding result of element %d: %w", pos, err)
		}
	}
	return Entry[K, any]{Key: k, Value: result}, nil
}

// Aggregate folds the whole cache with agg. Numeric folds over an empty
// entry set yield nil (absent), not zero; Distinct yields an empty slice.
func (nc *NamedCache[K, V]) Aggregate(ctx context.Context, agg aggregators.Aggregator) (any, error) {
	return nc.aggregateScoped(ctx, wire.Scope{}, agg)
}

// AggregateKeys is Aggregate restricted to the given keys. An empty key
// list folds nothing and yields an absent (nil) result without a server
// round trip; the wire format cannot tell an empty key scope from no scope.
func (nc *NamedCache[K, V]) AggregateKeys(ctx context.Context, keys []K, agg aggregators.Aggregator) (any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := nc.encodeKeys(keys)
	if err != nil {
		return nil, err
	}
	return nc.aggregateScoped(ctx, wire.Scope{Keys: raw}, agg)
}

// AggregateFilter is Aggregate restricted to entries f matches.
func (nc *NamedCache[K, V]) AggregateFilter(ctx context.Context, f filters.Filter, agg aggregators.Aggregator) (any, error) {
	if f == nil {
		return nil, errors.New("gridcache: AggregateFilter requires a filter")
	}
	return nc.aggregateScoped(ctx, wire.Scope{Filter: f}, agg)
}

func (nc *NamedCache[K, V]) aggregateScoped(ctx context.Context, scope wire.Scope, agg aggregators.Aggregator) (any, error) {
	req, err := wire.NewAggregate(nc.name, scope, agg)
	if err != nil {
		return nil, err
	}
	var resp wire.OptionalValue
	if err := nc.session.tr.Unary(ctx, wire.MethodAggregate, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Present {
		return nil, nil
	}
	var out any
	if err := nc.session.codec.Unmarshal(resp.Value, &out); err != nil {
		return nil, errors.Fmt("gridcache: decoding aggregation result: %w", err)
	}
	return out, nil
}

func (nc *NamedCache[K, V]) encodeKeys(keys []K) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(keys))
	for i, k := range keys {
		b, err := nc.encodeKey(k)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return raw, nil
}
