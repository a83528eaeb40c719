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

package cachefake

import (
	"context"
	"encoding/json"
	"strconv"

	"google.golang.org/grpc"

	"go.gridcache.dev/gridcache/internal/wire"
)

// backend exists only to satisfy grpc.ServiceDesc.HandlerType.
type backend interface{}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*backend)(nil),
	Methods: []grpc.MethodDesc{
		unary("EnsureCache", (*Fake).ensureCache),
		unary("ReleaseCache", (*Fake).releaseCache),
		unary("Get", (*Fake).get),
		unary("Put", (*Fake).put),
		unary("PutIfAbsent", (*Fake).putIfAbsent),
		unary("Remove", (*Fake).removeKey),
		unary("RemoveMapping", (*Fake).removeMapping),
		unary("Replace", (*Fake).replace),
		unary("ReplaceMapping", (*Fake).replaceMapping),
		unary("ContainsKey", (*Fake).containsKey),
		unary("ContainsValue", (*Fake).containsValue),
		unary("ContainsEntry", (*Fake).containsEntry),
		unary("Clear", (*Fake).clearCache),
		unary("Size", (*Fake).size),
		unary("IsEmpty", (*Fake).isEmpty),
		unary("AddIndex", (*Fake).addIndex),
		unary("Invoke", (*Fake).invoke),
		unary("Aggregate", (*Fake).aggregate),
	},
	Streams: []grpc.StreamDesc{
		streaming("InvokeAll", (*Fake).invokeAll),
		streaming("KeySet", (*Fake).keySetFiltered),
		streaming("EntrySet", (*Fake).entrySetFiltered),
		streaming("Values", (*Fake).valuesFiltered),
		streaming("NextKeySetPage", (*Fake).nextKeySetPage),
		streaming("NextEntrySetPage", (*Fake).nextEntrySetPage),
	},
}

func unary[Req any](name string, h func(*Fake, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			f := srv.(*Fake)
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if err := f.injectedError(name); err != nil {
				return nil, err
			}
			return h(f, req)
		},
	}
}

func streaming[Req any](name string, h func(*Fake, *Req, *sender) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, ss grpc.ServerStream) error {
			f := srv.(*Fake)
			req := new(Req)
			if err := ss.RecvMsg(req); err != nil {
				return err
			}
			if err := f.injectedError(name); err != nil {
				return err
			}
			return h(f, req, &sender{ss: ss, brk: f.streamBreak(name)})
		},
	}
}

// sender emits stream elements, honoring a configured mid-stream break.
type sender struct {
	ss   grpc.ServerStream
	brk  streamBreak
	sent int
}

func (s *sender) send(msg any) error {
	if s.brk.err != nil && s.sent == s.brk.after {
		return s.brk.err
	}
	s.sent++
	return s.ss.SendMsg(msg)
}

func (f *Fake) injectedError(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[method]
}

func (f *Fake) streamBreak(method string) streamBreak {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.breaks[method]
}

func (f *Fake) ensureCache(req *wire.CacheRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache(req.Cache)
	f.released[req.Cache] = false
	return &wire.Empty{}, nil
}

func (f *Fake) releaseCache(req *wire.CacheRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[req.Cache] = true
	return &wire.Empty{}, nil
}

func (f *Fake) get(req *wire.KeyRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.cache(req.Cache).entries[canonicalRaw(req.Key)]
	if !ok {
		return optional(nil, false)
	}
	return optional(e.value, true)
}

func (f *Fake) put(req *wire.EntryRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := canonicalRaw(req.Key)
	v, err := decodeRaw(req.Value)
	if err != nil {
		return nil, err
	}
	prev, existed := f.cache(req.Cache).store(k, decodeCanonical(k), v)
	return optional(prev, existed)
}

func (f *Fake) putIfAbsent(req *wire.EntryRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	k := canonicalRaw(req.Key)
	if e, ok := c.entries[k]; ok {
		return optional(e.value, true)
	}
	v, err := decodeRaw(req.Value)
	if err != nil {
		return nil, err
	}
	c.store(k, decodeCanonical(k), v)
	return optional(nil, false)
}

func (f *Fake) removeKey(req *wire.KeyRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, existed := f.cache(req.Cache).remove(canonicalRaw(req.Key))
	return optional(prev, existed)
}

func (f *Fake) removeMapping(req *wire.EntryRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	k := canonicalRaw(req.Key)
	v, err := decodeRaw(req.Value)
	if err != nil {
		return nil, err
	}
	if e, ok := c.entries[k]; ok && equal(e.value, v) {
		c.remove(k)
		return &wire.BoolValue{Value: true}, nil
	}
	return &wire.BoolValue{}, nil
}

func (f *Fake) replace(req *wire.EntryRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	k := canonicalRaw(req.Key)
	e, ok := c.entries[k]
	if !ok {
		return optional(nil, false)
	}
	v, err := decodeRaw(req.Value)
	if err != nil {
		return nil, err
	}
	prev := e.value
	e.value = v
	return optional(prev, true)
}

func (f *Fake) replaceMapping(req *wire.ReplaceMappingRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	k := canonicalRaw(req.Key)
	prev, err := decodeRaw(req.PreviousValue)
	if err != nil {
		return nil, err
	}
	next, err := decodeRaw(req.NewValue)
	if err != nil {
		return nil, err
	}
	if e, ok := c.entries[k]; ok && equal(e.value, prev) {
		e.value = next
		return &wire.BoolValue{Value: true}, nil
	}
	return &wire.BoolValue{}, nil
}

func (f *Fake) containsKey(req *wire.KeyRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.cache(req.Cache).entries[canonicalRaw(req.Key)]
	return &wire.BoolValue{Value: ok}, nil
}

func (f *Fake) containsValue(req *wire.ValueRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := decodeRaw(req.Value)
	if err != nil {
		return nil, err
	}
	for _, e := range f.cache(req.Cache).entries {
		if equal(e.value, v) {
			return &wire.BoolValue{Value: true}, nil
		}
	}
	return &wire.BoolValue{}, nil
}

func (f *Fake) containsEntry(req *wire.EntryRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := decodeRaw(req.Value)
	if err != nil {
		return nil, err
	}
	e, ok := f.cache(req.Cache).entries[canonicalRaw(req.Key)]
	return &wire.BoolValue{Value: ok && equal(e.value, v)}, nil
}

func (f *Fake) clearCache(req *wire.CacheRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache(req.Cache).clear()
	return &wire.Empty{}, nil
}

func (f *Fake) size(req *wire.CacheRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &wire.IntValue{Value: len(f.cache(req.Cache).entries)}, nil
}

func (f *Fake) isEmpty(req *wire.CacheRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &wire.BoolValue{Value: len(f.cache(req.Cache).entries) == 0}, nil
}

func (f *Fake) addIndex(req *wire.AddIndexRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	c.indexes = append(c.indexes, req.Extractor)
	return &wire.Empty{}, nil
}

func (f *Fake) invoke(req *wire.InvokeRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, present, err := f.cache(req.Cache).applyProcessor(canonicalRaw(req.Key), req.Processor)
	if err != nil {
		return nil, err
	}
	return optional(result, present)
}

func (f *Fake) aggregate(req *wire.AggregateRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	keys, err := c.scopedKeys(req.Keys, req.Filter)
	if err != nil {
		return nil, err
	}
	var values []any
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			values = append(values, e.value)
		}
	}
	result, present, err := applyAggregator(req.Aggregator, values)
	if err != nil {
		return nil, err
	}
	return optional(result, present)
}

func (f *Fake) invokeAll(req *wire.InvokeAllRequest, s *sender) error {
	f.mu.Lock()
	c := f.cache(req.Cache)
	keys, err := c.scopedKeys(req.Keys, req.Filter)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	var out []*wire.EntryMessage
	for _, k := range keys {
		result, present, err := c.applyProcessor(k, req.Processor)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		if !present {
			continue
		}
		b, err := encodeResult(result)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		out = append(out, &wire.EntryMessage{Key: json.RawMessage(k), Value: b})
	}
	f.mu.Unlock()
	for _, msg := range out {
		if err := s.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// matching snapshots the entries a collection filter selects, in insertion
// order.
func (f *Fake) matching(cache string, filter any) ([]*entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(cache)
	var out []*entry
	for _, k := range c.order {
		e := c.entries[k]
		ok, err := evalFilter(filter, e.key, e.value, true)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &entry{key: e.key, value: e.value})
		}
	}
	return out, nil
}

func (f *Fake) keySetFiltered(req *wire.CollectionRequest, s *sender) error {
	matched, err := f.matching(req.Cache, req.Filter)
	if err != nil {
		return err
	}
	for _, e := range matched {
		b, err := encodeResult(e.key)
		if err != nil {
			return err
		}
		if err := s.send(&wire.KeyMessage{Key: b}); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) entrySetFiltered(req *wire.CollectionRequest, s *sender) error {
	matched, err := f.matching(req.Cache, req.Filter)
	if err != nil {
		return err
	}
	for _, e := range matched {
		msg, err := entryMessage(e)
		if err != nil {
			return err
		}
		if err := s.send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) valuesFiltered(req *wire.CollectionRequest, s *sender) error {
	matched, err := f.matching(req.Cache, req.Filter)
	if err != nil {
		return err
	}
	for _, e := range matched {
		b, err := encodeResult(e.value)
		if err != nil {
			return err
		}
		if err := s.send(&wire.ValueMessage{Value: b}); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) nextKeySetPage(req *wire.PageRequest, s *sender) error {
	page, cookie, err := f.page(req)
	if err != nil {
		return err
	}
	if err := s.send(&wire.PageHeader{Cookie: cookie}); err != nil {
		return err
	}
	for _, e := range page {
		b, err := encodeResult(e.key)
		if err != nil {
			return err
		}
		if err := s.send(&wire.KeyMessage{Key: b}); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) nextEntrySetPage(req *wire.PageRequest, s *sender) error {
	page, cookie, err := f.page(req)
	if err != nil {
		return err
	}
	if err := s.send(&wire.PageHeader{Cookie: cookie}); err != nil {
		return err
	}
	for _, e := range page {
		msg, err := entryMessage(e)
		if err != nil {
			return err
		}
		if err := s.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// page slices one enumeration page out of the cache. The cookie is the
// decimal start index of the next page; an absent cookie on the way out
// marks the terminal page.
func (f *Fake) page(req *wire.PageRequest) ([]*entry, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cache(req.Cache)
	start := 0
	if len(req.Cookie) > 0 {
		var err error
		start, err = strconv.Atoi(string(req.Cookie))
		if err != nil {
			return nil, nil, err
		}
	}
	if start > len(c.order) {
		start = len(c.order)
	}
	end := start + f.pageSize
	if end > len(c.order) {
		end = len(c.order)
	}
	var page []*entry
	for _, k := range c.order[start:end] {
		e := c.entries[k]
		page = append(page, &entry{key: e.key, value: e.value})
	}
	var cookie []byte
	if end < len(c.order) {
		cookie = []byte(strconv.Itoa(end))
	}
	return page, cookie, nil
}

func entryMessage(e *entry) (*wire.EntryMessage, error) {
	k, err := encodeResult(e.key)
	if err != nil {
		return nil, err
	}
	v, err := encodeResult(e.value)
	if err != nil {
		return nil, err
	}
	return &wire.EntryMessage{Key: k, Value: v}, nil
}
