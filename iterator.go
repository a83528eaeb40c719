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
	"io"

	"go.chromium.org/luci/common/errors"

	"go.gridcache.dev/gridcache/internal/transport"
	"go.gridcache.dev/gridcache/internal/wire"
)

// stream is the transport-level server stream an iterator drains.
type stream = transport.Stream

// openFunc opens one server stream. For paged enumerations the cookie is nil
// for the first page and the server-issued continuation afterwards; one-shot
// enumerations ignore it.
type openFunc func(ctx context.Context, cookie []byte) (stream, error)

// readFunc receives and decodes one element. It returns io.EOF at the end of
// the current stream and pre-wrapped decode errors mentioning pos, the
// element's position in the overall enumeration.
type readFunc[T any] func(s stream, pos int) (T, error)

// Iterator pulls elements out of one or more server streams, one page at a
// time. The next page is not requested until the current page's stream
// completes; there is no speculative prefetch.
//
// An Iterator is a single-consumer cursor: it must not be used from multiple
// goroutines. Abandoning it without draining requires Close, which releases
// the underlying transport stream.
type Iterator[T any] struct {
	open  openFunc
	read  readFunc[T]
	paged bool

	state  iterState
	cur    stream
	cookie []byte
	pos    int
	err    error
}

type iterState int

const (
	iterNotStarted iterState = iota
	iterStreaming
	iterExhausted
	iterFailed
)

func newIterator[T any](open openFunc, read readFunc[T], paged bool) *Iterator[T] {
	return &Iterator[T]{open: open, read: read, paged: paged}
}

// failedIterator yields err from every Next call. Used when an enumeration
// is invalid before anything is sent.
func failedIterator[T any](err error) *Iterator[T] {
	return &Iterator[T]{state: iterFailed, err: err}
}

// exhaustedIterator yields Done from every Next call. Used when an
// enumeration is empty by construction and nothing needs to be sent.
func exhaustedIterator[T any]() *Iterator[T] {
	return &Iterator[T]{state: iterExhausted}
}

// Next returns the next element. It returns Done once the enumeration is
// exhausted, and the failing error if the stream broke or an element failed
// to decode, after which the iterator is dead and keeps returning that
// error. Elements arrive in server-yielded order, which is not stable across
// pages.
//
// Next suspends at page boundaries: crossing one issues the next page
// request, carrying the cookie the previous page's header supplied.
func (it *Iterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		switch it.state {
		case iterFailed:
			return zero, it.err
		case iterExhausted:
			return zero, Done
		case iterNotStarted:
			if err := it.openPage(ctx, nil); err != nil {
				return zero, it.fail(err)
			}
		case iterStreaming:
			el, err := it.read(it.cur, it.pos)
			switch {
			case err == nil:
				it.pos++
				return el, nil
			case err == io.EOF:
				// Current page drained. A present cookie means another page
				// exists; absent means the enumeration is complete.
				it.cur.Close()
				it.cur = nil
				if !it.paged || len(it.cookie) == 0 {
					it.state = iterExhausted
					return zero, Done
				}
				cookie := it.cookie
				it.cookie = nil
				if err := it.openPage(ctx, cookie); err != nil {
					return zero, it.fail(err)
				}
			default:
				// Transport or decode failure: already-yielded elements
				// stand, nothing further is produced.
				return zero, it.fail(err)
			}
		}
	}
}

func (it *Iterator[T]) openPage(ctx context.Context, cookie []byte) error {
	s, err := it.open(ctx, cookie)
	if err != nil {
		return err
	}
	if it.paged {
		var hdr wire.PageHeader
		if err := s.Recv(&hdr); err != nil {
			s.Close()
			if err == io.EOF {
				return errors.New("gridcache: page stream ended before its header")
			}
			return err
		}
		it.cookie = hdr.Cookie
	}
	it.cur = s
	it.state = iterStreaming
	return nil
}

func (it *Iterator[T]) fail(err error) error {
	if it.cur != nil {
		it.cur.Close()
		it.cur = nil
	}
	it.state = iterFailed
	it.err = err
	return err
}

// Close abandons the iteration and releases the underlying stream. It is
// idempotent; Next afterwards returns Done.
func (it *Iterator[T]) Close() {
	if it.cur != nil {
		it.cur.Close()
		it.cur = nil
	}
	if it.state != iterFailed {
		it.state = iterExhausted
	}
}
