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

// Package gridcache is a client for a partitioned, server-managed key/value
// store ("named cache").
//
// Client code builds query expressions (package filters), transformation and
// mutation expressions (package processors), and fold expressions (package
// aggregators) as data; the expressions are shipped to the server for
// evaluation. Results arrive either as single values or as server-streamed,
// cookie-paginated enumerations consumed through Collection and Iterator.
//
// A Session owns one connection to the cache service. Cache handles are
// acquired per named cache:
//
//	s, err := gridcache.Dial("cache.example.com:1408")
//	...
//	people, err := gridcache.GetNamedCache[int, Person](ctx, s, "people")
//	...
//	adults := people.KeySetFilter(filters.GreaterEqual(extractors.Extract("age"), 18))
//	it := adults.Iterate()
//	defer it.Close()
//	for {
//		k, err := it.Next(ctx)
//		if err == gridcache.Done {
//			break
//		}
//		...
//	}
//
// Expression values are immutable after construction and safe to share
// across goroutines and reuse across calls. A cache handle may be used
// concurrently; an Iterator is a single-consumer cursor and may not.
//
// The client never retries data operations and never reorders them: two
// operations issued without awaiting the first may execute on the server in
// either order. Transport, decode and server errors surface as they are;
// already-yielded elements of a failed enumeration stand, but no further
// elements are produced.
package gridcache
