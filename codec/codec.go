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

// Package codec defines how cache keys and values are encoded for the wire.
//
// The cache server stores keys and values as opaque byte blobs; this package
// is the client-side half of that contract. The default codec is JSON, which
// is what the server's expression evaluator understands when filters and
// extractors reach into stored values.
package codec

import "encoding/json"

// Codec encodes cache keys and values to and from their wire form.
//
// Implementations must be safe for concurrent use.
type Codec interface {
	// Format names the encoding, e.g. "json". The server is told the format
	// when a cache handle is acquired.
	Format() string

	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, out any) error
}

type jsonCodec struct{}

func (jsonCodec) Format() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)        { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, out any) error { return json.Unmarshal(data, out) }

// JSON returns the default JSON codec.
func JSON() Codec { return jsonCodec{} }
