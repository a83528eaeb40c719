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

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"go.gridcache.dev/gridcache/filters"
	"go.gridcache.dev/gridcache/internal/wire"
)

// Collection is a lazily-enumerated view over a cache's keys, entries or
// values. It is a view, not a snapshot: every Iterate issues fresh requests
// against current server state, starting from the first page.
//
// Unscoped collections (KeySet, EntrySet, Values) are delivered page at a
// time, continued with server-issued cookies, because their cardinality is
// unbounded. Filter-scoped collections are a single one-shot stream: a
// filtered result is assumed bounded by the filter's selectivity. The
// asymmetry is part of the protocol, not an optimization to revisit.
type Collection[T any] struct {
	open  openFunc
	read  readFunc[T]
	paged bool
	err   error // construction error, surfaced on iteration
}

// Iterate starts a fresh enumeration. The returned iterator is exclusively
// the caller's: a Collection may be iterated many times (including
// concurrently), but each Iterator is single-consumer.
func (c *Collection[T]) Iterate() *Iterator[T] {
	if c.err != nil {
		return failedIterator[T](c.err)
	}
	return newIterator(c.open, c.read, c.paged)
}

// Collect drains a fresh enumeration into a slice. For unbounded caches
// prefer Iterate.
func (c *Collection[T]) Collect(ctx context.Context) ([]T, error) {
	it := c.Iterate()
	defer it.Close()
	var out []T
	for {
		el, err := it.Next(ctx)
		if err == Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
}

// KeySet enumerates every key in the cache, paged.
func (nc *NamedCache[K, V]) KeySet() *Collection[K] {
	return &Collection[K]{
		paged: true,
		open:  nc.openPaged(wire.MethodNextKeySetPage, "key set"),
		read:  nc.readKey,
	}
}

// KeySetFilter enumerates the keys of entries f matches, as one un-paged
// stream.
func (nc *NamedCache[K, V]) KeySetFilter(f filters.Filter) *Collection[K] {
	open, err := nc.openFiltered(wire.MethodKeySet, f)
	return &Collection[K]{open: open, read: nc.readKey, err: err}
}

// EntrySet enumerates every entry in the cache, paged.
func (nc *NamedCache[K, V]) EntrySet() *Collection[Entry[K, V]] {
	return &Collection[Entry[K, V]]{
		paged: true,
		open:  nc.openPaged(wire.MethodNextEntrySetPage, "entry set"),
		read:  nc.readEntry,
	}
}

// EntrySetFilter enumerates the entries f matches, as one un-paged stream.
func (nc *NamedCache[K, V]) EntrySetFilter(f filters.Filter) *Collection[Entry[K, V]] {
	open, err := nc.openFiltered(wire.MethodEntrySet, f)
	return &Collection[Entry[K, V]]{open: open, read: nc.readEntry, err: err}
}

// Values enumerates every value in the cache. The server pages only key-set
// and entry-set enumerations, so an unscoped value enumeration rides the
// entry-set pages and keeps the value of each entry.
func (nc *NamedCache[K, V]) Values() *Collection[V] {
	return &Collection[V]{
		paged: true,
		open:  nc.openPaged(wire.MethodNextEntrySetPage, "value set"),
		read:  nc.readEntryValue,
	}
}

// ValuesFilter enumerates the values of entries f matches, as one un-paged
// stream.
func (nc *NamedCache[K, V]) ValuesFilter(f filters.Filter) *Collection[V] {
	open, err := nc.openFiltered(wire.MethodValues, f)
	return &Collection[V]{open: open, read: nc.readValue, err: err}
}

// openPaged opens one page of an unscoped enumeration.
func (nc *NamedCache[K, V]) openPaged(method, what string) openFunc {
	return func(ctx context.Context, cookie []byte) (stream, error) {
		logging.Debugf(ctx, "gridcache: %q: fetching %s page (cookie %d bytes)", nc.name, what, len(cookie))
		return nc.session.tr.Stream(ctx, method, wire.NewPage(nc.name, cookie))
	}
}

// openFiltered builds the opener of a one-shot filtered enumeration; a nil
// filter is a construction error surfaced on iteration.
func (nc *NamedCache[K, V]) openFiltered(method string, f filters.Filter) (openFunc, error) {
	if f == nil {
		return nil, errors.New("gridcache: a filtered enumeration requires a filter; use the unscoped variant to enumerate everything")
	}
	// The request factory runs per iteration: requests are built fresh per
	// call and never reused.
	return func(ctx context.Context, _ []byte) (stream, error) {
		req, err := wire.NewCollection(nc.name, f)
		if err != nil {
			return nil, err
		}
		logging.Debugf(ctx, "gridcache: %q: opening filtered enumeration", nc.name)
		return nc.session.tr.Stream(ctx, method, req)
	}, nil
}

func (nc *NamedCache[K, V]) readKey(s stream, pos int) (K, error) {
	var zero K
	var msg wire.KeyMessage
	if err := s.Recv(&msg); err != nil {
		return zero, err
	}
	var k K
	if err := nc.session.codec.Unmarshal(msg.Key, &k); err != nil {
		return zero, errors.Fmt("gridcache: decoding key at position %d: %w", pos, err)
	}
	return k, nil
}

func (nc *NamedCache[K, V]) readEntry(s stream, pos int) (Entry[K, V], error) {
	var zero Entry[K, V]
	var msg wire.EntryMessage
	if err := s.Recv(&msg); err != nil {
		return zero, err
	}
	var e Entry[K, V]
	if err := nc.session.codec.Unmarshal(msg.Key, &e.Key); err != nil {
		return zero, errors.Fmt("gridcache: decoding key at position %d: %w", pos, err)
	}
	if err := nc.session.codec.Unmarshal(msg.Value, &e.Value); err != nil {
		return zero, errors.Fmt("gridcache: decoding value at position %d: %w", pos, err)
	}
	return e, nil
}

// readEntryValue drains entry messages but keeps only the value.
func (nc *NamedCache[K, V]) readEntryValue(s stream, pos int) (V, error) {
	e, err := nc.readEntry(s, pos)
	if err != nil {
		var zero V
		return zero, err
	}
	return e.Value, nil
}

func (nc *NamedCache[K, V]) readValue(s stream, pos int) (V, error) {
	var zero V
	var msg wire.ValueMessage
	if err := s.Recv(&msg); err != nil {
		return zero, err
	}
	var v V
	if err := nc.session.codec.Unmarshal(msg.Value, &v); err != nil {
		return zero, errors.Fmt("gridcache: decoding value at position %d: %w", pos, err)
	}
	return v, nil
}
