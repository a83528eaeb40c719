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
	"google.golang.org/grpc"

	"go.gridcache.dev/gridcache/codec"
)

// Option adjusts how a Session is dialed.
type Option func(*options)

type options struct {
	codec    codec.Codec
	dialOpts []grpc.DialOption
	callOpts []grpc.CallOption
}

func defaultOptions() *options {
	return &options{codec: codec.JSON()}
}

// WithCodec replaces the default JSON key/value codec. The server must
// understand the codec's format for expressions that reach into stored
// values to keep working.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithDialOptions appends gRPC dial options, e.g. transport credentials. By
// default the connection is dialed with insecure credentials; channel
// security and authentication are the caller's concern.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// WithCallOptions appends gRPC call options applied to every request sent
// through the session.
func WithCallOptions(opts ...grpc.CallOption) Option {
	return func(o *options) { o.callOpts = append(o.callOpts, opts...) }
}
