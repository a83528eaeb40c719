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

// Package wire defines the request and response shapes of the
// gridcache.v1.NamedCache service and the factory that builds requests.
//
// Keys and values travel as pre-encoded blobs (json.RawMessage) produced by
// the caller's codec; expression payloads (filters, processors, aggregators)
// travel as themselves and are serialized by the connection codec, which
// recursively emits each node's "@class" discriminator. Optional fields are
// omitted when empty, never sent as null: the evaluator's parsing of null is
// not part of the contract this client relies on.
//
// Requests are immutable descriptions built fresh per call and never reused.
package wire

import "encoding/json"

// ServiceName is the gRPC service implemented by the cache server.
const ServiceName = "gridcache.v1.NamedCache"

// Full method paths, as passed to the transport.
const (
	MethodEnsureCache      = "/" + ServiceName + "/EnsureCache"
	MethodReleaseCache     = "/" + ServiceName + "/ReleaseCache"
	MethodGet              = "/" + ServiceName + "/Get"
	MethodPut              = "/" + ServiceName + "/Put"
	MethodPutIfAbsent      = "/" + ServiceName + "/PutIfAbsent"
	MethodRemove           = "/" + ServiceName + "/Remove"
	MethodRemoveMapping    = "/" + ServiceName + "/RemoveMapping"
	MethodReplace          = "/" + ServiceName + "/Replace"
	MethodReplaceMapping   = "/" + ServiceName + "/ReplaceMapping"
	MethodContainsKey      = "/" + ServiceName + "/ContainsKey"
	MethodContainsValue    = "/" + ServiceName + "/ContainsValue"
	MethodContainsEntry    = "/" + ServiceName + "/ContainsEntry"
	MethodClear            = "/" + ServiceName + "/Clear"
	MethodSize             = "/" + ServiceName + "/Size"
	MethodIsEmpty          = "/" + ServiceName + "/IsEmpty"
	MethodAddIndex         = "/" + ServiceName + "/AddIndex"
	MethodInvoke           = "/" + ServiceName + "/Invoke"
	MethodInvokeAll        = "/" + ServiceName + "/InvokeAll"
	MethodAggregate        = "/" + ServiceName + "/Aggregate"
	MethodKeySet           = "/" + ServiceName + "/KeySet"
	MethodEntrySet         = "/" + ServiceName + "/EntrySet"
	MethodValues           = "/" + ServiceName + "/Values"
	MethodNextKeySetPage   = "/" + ServiceName + "/NextKeySetPage"
	MethodNextEntrySetPage = "/" + ServiceName + "/NextEntrySetPage"
)

// CacheRequest addresses a whole cache: clear, size, isEmpty, ensure,
// release.
type CacheRequest struct {
	Cache string `json:"cache"`
	// Format names the key/value encoding; only ensureCache sends it.
	Format string `json:"format,omitempty"`
}

// KeyRequest addresses a single entry: get, remove, containsKey.
type KeyRequest struct {
	Cache string          `json:"cache"`
	Key   json.RawMessage `json:"key"`
}

// EntryRequest carries a key and a value: put, putIfAbsent, removeMapping,
// replace, containsEntry.
type EntryRequest struct {
	Cache string          `json:"cache"`
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
	// TTLMillis is the entry expiry for put; zero means the cache default
	// and is omitted.
	TTLMillis int64 `json:"ttl,omitempty"`
}

// ValueRequest carries only a value: containsValue.
type ValueRequest struct {
	Cache string          `json:"cache"`
	Value json.RawMessage `json:"value"`
}

// ReplaceMappingRequest carries the three-way compare-and-set payload.
type ReplaceMappingRequest struct {
	Cache         string          `json:"cache"`
	Key           json.RawMessage `json:"key"`
	PreviousValue json.RawMessage `json:"previousValue"`
	NewValue      json.RawMessage `json:"newValue"`
}

// AddIndexRequest asks the server to index the values a given extractor
// yields.
type AddIndexRequest struct {
	Cache      string `json:"cache"`
	Extractor  any    `json:"extractor"`
	Sorted     bool   `json:"sorted,omitempty"`
	Comparator any    `json:"comparator,omitempty"`
}

// InvokeRequest applies a processor to a single entry.
type InvokeRequest struct {
	Cache     string          `json:"cache"`
	Key       json.RawMessage `json:"key"`
	Processor any             `json:"processor"`
}

// InvokeAllRequest applies a processor to a scoped set of entries. Exactly
// one of Keys/Filter is set, or neither for a whole-cache invocation.
type InvokeAllRequest struct {
	Cache     string            `json:"cache"`
	Keys      []json.RawMessage `json:"keys,omitempty"`
	Filter    any               `json:"filter,omitempty"`
	Processor any               `json:"processor"`
}

// AggregateRequest folds a scoped set of entries with an aggregator. Scope
// rules match InvokeAllRequest.
type AggregateRequest struct {
	Cache      string            `json:"cache"`
	Keys       []json.RawMessage `json:"keys,omitempty"`
	Filter     any               `json:"filter,omitempty"`
	Aggregator any               `json:"aggregator"`
}

// CollectionRequest starts a one-shot filtered enumeration: keySet(filter),
// entrySet(filter), values(filter). Unscoped enumerations never use this
// shape; they go through PageRequest.
type CollectionRequest struct {
	Cache  string `json:"cache"`
	Filter any    `json:"filter"`
}

// PageRequest fetches one page of an unscoped key-set or entry-set
// enumeration. An absent cookie starts from the beginning. Page requests are
// only valid for collection-producing operations.
type PageRequest struct {
	Cache  string `json:"cache"`
	Cookie []byte `json:"cookie,omitempty"`
}

// OptionalValue is the unary response carrying a possibly-absent value:
// get, put (previous value), aggregate, and friends. Present distinguishes
// "mapped to null" and "no result" from "no mapping"; Value is the encoded
// blob only read when Present.
type OptionalValue struct {
	Present bool            `json:"present"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// BoolValue is the unary response of predicates and conditional mutations.
type BoolValue struct {
	Value bool `json:"value"`
}

// IntValue is the unary response of size.
type IntValue struct {
	Value int `json:"value"`
}

// Empty is the unary response of operations with nothing to report.
type Empty struct{}

// PageHeader is the first message of every page stream: the continuation
// cookie for the page after this one. An absent cookie marks the terminal
// page. Subsequent messages of the stream are KeyMessage or EntryMessage
// elements.
type PageHeader struct {
	Cookie []byte `json:"cookie,omitempty"`
}

// KeyMessage is one element of a key enumeration stream.
type KeyMessage struct {
	Key json.RawMessage `json:"key"`
}

// ValueMessage is one element of a value enumeration stream.
type ValueMessage struct {
	Value json.RawMessage `json:"value"`
}

// EntryMessage is one element of an entry enumeration or invokeAll result
// stream.
type EntryMessage struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}
