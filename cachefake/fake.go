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

// Package cachefake implements an in-memory fake of the
// gridcache.v1.NamedCache service for use in tests.
//
// The fake serves over a bufconn listener, keeps each cache as an ordered
// in-memory map and evaluates a useful subset of the expression vocabulary
// (filters, extractors, processors, aggregators) against JSON-decoded
// values. Tests can seed entries directly, shrink the enumeration page size
// and inject per-method failures.
package cachefake

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.gridcache.dev/gridcache/internal/transport"
	"go.gridcache.dev/gridcache/internal/wire"
)

const bufSize = 1024 * 1024

// entry is one stored mapping: the decoded key and the decoded value.
type entry struct {
	key   any
	value any
}

// cacheState is one named cache. Keys are canonical JSON strings; order
// records insertion order so enumerations are deterministic.
type cacheState struct {
	order   []string
	entries map[string]*entry
	indexes []any
}

func newCacheState() *cacheState {
	return &cacheState{entries: map[string]*entry{}}
}

func (c *cacheState) store(key string, decodedKey any, value any) (prev any, existed bool) {
	if e, ok := c.entries[key]; ok {
		prev, existed = e.value, true
		e.value = value
		return
	}
	c.entries[key] = &entry{key: decodedKey, value: value}
	c.order = append(c.order, key)
	return nil, false
}

func (c *cacheState) remove(key string) (prev any, existed bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return e.value, true
}

func (c *cacheState) clear() {
	c.order = nil
	c.entries = map[string]*entry{}
}

// scopedKeys resolves an invocation scope to canonical keys. An explicit key
// list passes through as-is (absent entries included, guards decide what to
// do with them); a filter selects matching existing entries; no scope means
// every existing entry.
func (c *cacheState) scopedKeys(keys []json.RawMessage, filter any) ([]string, error) {
	if len(keys) > 0 {
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = canonicalRaw(k)
		}
		return out, nil
	}
	if filter != nil {
		var out []string
		for _, k := range c.order {
			e := c.entries[k]
			ok, err := evalFilter(filter, e.key, e.value, true)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, k)
			}
		}
		return out, nil
	}
	return append([]string(nil), c.order...), nil
}

type streamBreak struct {
	after int
	err   error
}

// Fake is an in-memory NamedCache server.
type Fake struct {
	mu       sync.Mutex
	caches   map[string]*cacheState
	released map[string]bool
	failures map[string]error
	breaks   map[string]streamBreak
	pageSize int

	srv *grpc.Server
	lis *bufconn.Listener
}

// New returns an unstarted fake with the default page size.
func New() *Fake {
	return &Fake{
		caches:   map[string]*cacheState{},
		released: map[string]bool{},
		failures: map[string]error{},
		breaks:   map[string]streamBreak{},
		pageSize: 100,
	}
}

// Start begins serving on an in-process listener.
func (f *Fake) Start() {
	f.lis = bufconn.Listen(bufSize)
	f.srv = grpc.NewServer(grpc.ForceServerCodec(encoding.GetCodec(transport.CodecName)))
	f.srv.RegisterService(&serviceDesc, f)
	go f.srv.Serve(f.lis)
}

// Stop tears the server down.
func (f *Fake) Stop() {
	f.srv.Stop()
}

// Target is the dial target to use together with DialOptions.
func (f *Fake) Target() string {
	return "passthrough:///gridcache.fake"
}

// DialOptions returns the options that route a client connection to the
// fake's in-process listener.
func (f *Fake) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return f.lis.DialContext(ctx)
		}),
	}
}

// SetPageSize sets how many elements unscoped enumerations return per page.
func (f *Fake) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// FailCalls makes the named method (short name, e.g. "Get") fail with err.
// A nil err clears the injection.
func (f *Fake) FailCalls(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

// BreakStream makes the named streaming method fail with err after yielding
// the given number of elements.
func (f *Fake) BreakStream(method string, after int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaks[method] = streamBreak{after: after, err: err}
}

// Seed stores an entry directly, bypassing the wire protocol.
func (f *Fake) Seed(cache string, key, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(cache)
	k, decoded := roundTrip(key)
	_, v := roundTrip(value)
	c.store(k, decoded, v)
}

// Value returns the decoded stored value for a key, if any.
func (f *Fake) Value(cache string, key any) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, _ := roundTrip(key)
	e, ok := f.cache(cache).entries[k]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// EntryCount returns the number of entries in a cache.
func (f *Fake) EntryCount(cache string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache(cache).entries)
}

// Released reports whether ReleaseCache was called for a cache.
func (f *Fake) Released(cache string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[cache]
}

// IndexCount returns how many indexes AddIndex registered on a cache.
func (f *Fake) IndexCount(cache string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache(cache).indexes)
}

func (f *Fake) cache(name string) *cacheState {
	c, ok := f.caches[name]
	if !ok {
		c = newCacheState()
		f.caches[name] = c
	}
	return c
}

// roundTrip converts an arbitrary Go value into its canonical key string and
// JSON-decoded form, matching what arrives over the wire.
func roundTrip(v any) (canon string, decoded any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		panic(err)
	}
	return canonical(decoded), decoded
}

func canonicalRaw(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return canonical(v)
}

func decodeCanonical(key string) any {
	var v any
	// Canonical keys come out of canonical(); they always parse.
	_ = json.Unmarshal([]byte(key), &v)
	return v
}

func unmarshalCanonical(canon string, out any) bool {
	return json.Unmarshal([]byte(canon), out) == nil
}

func decodeRaw(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad payload: %s", err)
	}
	return v, nil
}

func encodeResult(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding result: %s", err)
	}
	return b, nil
}

func optional(v any, present bool) (*wire.OptionalValue, error) {
	if !present {
		return &wire.OptionalValue{}, nil
	}
	b, err := encodeResult(v)
	if err != nil {
		return nil, err
	}
	return &wire.OptionalValue{Present: true, Value: b}, nil
}
