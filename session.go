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

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"
	"go.chromium.org/luci/grpc/grpcutil"

	"go.gridcache.dev/gridcache/codec"
	"go.gridcache.dev/gridcache/internal/transport"
	"go.gridcache.dev/gridcache/internal/wire"
)

// Session owns one connection to a cache service and hands out named cache
// handles. It is safe for concurrent use.
type Session struct {
	conn  *grpc.ClientConn
	tr    transport.Transport
	codec codec.Codec
}

// Dial connects a new Session to the cache service at target (any address
// format grpc accepts). The connection is established lazily; failures
// surface on the first operation.
func Dial(target string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	dialOpts := append(
		[]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		o.dialOpts...,
	)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, errors.Fmt("gridcache: dialing %q: %w", target, err)
	}
	return &Session{
		conn:  conn,
		tr:    transport.NewGRPC(conn, o.callOpts...),
		codec: o.codec,
	}, nil
}

// Close releases the session's connection. Cache handles acquired from the
// session stop working.
func (s *Session) Close() error {
	return s.conn.Close()
}

// GetNamedCache acquires a handle to the named cache, creating it server-side
// if it does not exist yet. Acquisition is the one call the client retries:
// transient transport failures (e.g. the service not being reachable yet)
// are retried with backoff; data operations afterwards never are.
//
// The handle is typed: keys encode from K and values decode into V through
// the session's codec.
func GetNamedCache[K comparable, V any](ctx context.Context, s *Session, name string) (*NamedCache[K, V], error) {
	if name == "" {
		return nil, errors.New("gridcache: cache name must not be empty")
	}
	req := &wire.CacheRequest{Cache: name, Format: s.codec.Format()}
	err := retry.Retry(ctx, transient.Only(retry.Default), func() error {
		return grpcutil.WrapIfTransient(s.tr.Unary(ctx, wire.MethodEnsureCache, req, &wire.Empty{}))
	}, retry.LogCallback(ctx, "gridcache: ensure cache"))
	if err != nil {
		return nil, errors.Fmt("gridcache: acquiring cache %q: %w", name, err)
	}
	logging.Debugf(ctx, "gridcache: acquired cache %q (format %q)", name, s.codec.Format())
	return &NamedCache[K, V]{session: s, name: name}, nil
}
