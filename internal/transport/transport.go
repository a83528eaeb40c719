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

// Package transport issues cache requests over a gRPC connection.
//
// The cache protocol is JSON-bodied gRPC: requests and responses are the
// structs of the wire package, marshaled by a codec registered under
// CodecName and selected per call via the content-subtype. No generated
// stubs are involved; unary calls go through ClientConn.Invoke and
// server-streamed calls through ClientConn.NewStream.
//
// This package performs no retries and no error reinterpretation: transport
// and server errors surface to the caller as the gRPC status errors they
// are.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"path"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the cache protocol's JSON payload
// encoding. Both ends of a connection must have the codec registered, which
// importing this package does.
const CodecName = "gridcache-json"

type jsonCodec struct{}

func (jsonCodec) Name() string                    { return CodecName }
func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Transport sends requests against the cache service: one unary call, or one
// server-streamed call yielding a sequence of messages.
//
// Implementations must be safe for concurrent use.
type Transport interface {
	Unary(ctx context.Context, method string, req, resp any) error
	Stream(ctx context.Context, method string, req any) (Stream, error)
}

// Stream is a single server-streamed response sequence.
//
// A Stream is a single-consumer cursor; it must not be shared across
// goroutines.
type Stream interface {
	// Recv decodes the next message into msg. It returns io.EOF when the
	// server completes the stream normally.
	Recv(msg any) error

	// Close releases the underlying stream without draining it. Safe to call
	// at any point and more than once; abandoning an enumeration must not
	// leak the transport stream.
	Close()
}

// GRPC is the Transport implementation over a gRPC client connection.
type GRPC struct {
	conn *grpc.ClientConn
	opts []grpc.CallOption
}

// NewGRPC wraps conn. Extra call options apply to every call made through
// the transport; the JSON content-subtype option is always applied.
func NewGRPC(conn *grpc.ClientConn, opts ...grpc.CallOption) *GRPC {
	all := make([]grpc.CallOption, 0, len(opts)+1)
	all = append(all, grpc.CallContentSubtype(CodecName))
	all = append(all, opts...)
	return &GRPC{conn: conn, opts: all}
}

// Unary implements Transport.
func (g *GRPC) Unary(ctx context.Context, method string, req, resp any) error {
	return g.conn.Invoke(ctx, method, req, resp, g.opts...)
}

// Stream implements Transport. The request is sent eagerly and the send side
// closed; the returned Stream only receives.
func (g *GRPC) Stream(ctx context.Context, method string, req any) (Stream, error) {
	// The cancel func is the stream's release mechanism: gRPC frees a client
	// stream when its context is canceled, whether or not it was drained.
	ctx, cancel := context.WithCancel(ctx)
	desc := &grpc.StreamDesc{
		StreamName:    path.Base(method),
		ServerStreams: true,
	}
	cs, err := g.conn.NewStream(ctx, desc, method, g.opts...)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		cancel()
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, err
	}
	return &grpcStream{cs: cs, cancel: cancel}, nil
}

type grpcStream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
}

func (s *grpcStream) Recv(msg any) error {
	err := s.cs.RecvMsg(msg)
	if err == io.EOF {
		// Normal completion also releases the stream context.
		s.cancel()
	}
	return err
}

func (s *grpcStream) Close() {
	s.cancel()
}
