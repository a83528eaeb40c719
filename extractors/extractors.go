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

// Package extractors builds value-extraction and value-update expressions.
//
// An Extractor describes how the cache server derives a value from an
// entry's stored value (e.g. a property lookup, or a chain of lookups for a
// dotted path). An Updater describes the write-path mirror of that. Both are
// pure recipes: they are serialized as part of a request and evaluated
// remotely, nothing is evaluated client-side.
//
// Expressions are immutable once constructed and may be shared freely across
// goroutines and reused across calls.
package extractors

import "strings"

// Wire discriminators understood by the remote evaluator. The vocabulary is
// closed and versioned; adding a tag here without a matching server-side
// evaluator change breaks dispatch.
const (
	tagUniversalExtractor = "extractor.UniversalExtractor"
	tagChainedExtractor   = "extractor.ChainedExtractor"
	tagIdentityExtractor  = "extractor.IdentityExtractor"
	tagUniversalUpdater   = "extractor.UniversalUpdater"
	tagCompositeUpdater   = "extractor.CompositeUpdater"
	tagExtractorComparer  = "comparator.ExtractorComparator"
)

// Extractor derives a value from a cache entry's stored value. The concrete
// set of extractors is closed; values are created through the constructors
// in this package.
type Extractor interface {
	extractorTag() string
}

// Updater writes a value into a cache entry's stored value.
type Updater interface {
	updaterTag() string
}

type universalExtractor struct {
	Tag    string `json:"@class"`
	Name   string `json:"name"`
	Params []any  `json:"params,omitempty"`
}

func (e *universalExtractor) extractorTag() string { return e.Tag }

type chainedExtractor struct {
	Tag        string      `json:"@class"`
	Extractors []Extractor `json:"extractors"`
}

func (e *chainedExtractor) extractorTag() string { return e.Tag }

type identityExtractor struct {
	Tag string `json:"@class"`
}

func (e *identityExtractor) extractorTag() string { return e.Tag }

// Extract resolves a property path into an extractor.
//
// An empty path extracts the entire stored value. A single property name
// ("age") extracts that property. A dotted path ("address.city") builds a
// left-to-right chain, each step consuming the previous step's result; a step
// that yields an absent value short-circuits the rest of the chain, the
// overall extraction is then absent.
func Extract(path string) Extractor {
	if path == "" {
		return Identity()
	}
	if !strings.Contains(path, ".") {
		return universal(path)
	}
	return Chained(path)
}

// Chained builds an explicit multi-step extraction pipeline from a dotted
// property path. It panics if path is empty: a chain needs at least one step.
func Chained(path string) Extractor {
	if path == "" {
		panic("gridcache/extractors: Chained called with an empty path")
	}
	parts := strings.Split(path, ".")
	steps := make([]Extractor, len(parts))
	for i, p := range parts {
		steps[i] = universal(p)
	}
	return ChainedOf(steps...)
}

// ChainedOf builds a pipeline from already-constructed extractors, applied
// left to right. It panics if given no extractors or a nil extractor.
func ChainedOf(steps ...Extractor) Extractor {
	if len(steps) == 0 {
		panic("gridcache/extractors: ChainedOf called with no extractors")
	}
	out := make([]Extractor, len(steps))
	for i, s := range steps {
		if s == nil {
			panic("gridcache/extractors: ChainedOf called with a nil extractor")
		}
		out[i] = s
	}
	return &chainedExtractor{Tag: tagChainedExtractor, Extractors: out}
}

// Identity returns an extractor that yields the stored value itself.
func Identity() Extractor {
	return &identityExtractor{Tag: tagIdentityExtractor}
}

func universal(name string) Extractor {
	if name == "" {
		panic("gridcache/extractors: empty property name")
	}
	return &universalExtractor{Tag: tagUniversalExtractor, Name: name}
}

type universalUpdater struct {
	Tag  string `json:"@class"`
	Name string `json:"name"`
}

func (u *universalUpdater) updaterTag() string { return u.Tag }

// Update returns an updater that writes a value at the given property path
// of the stored value. Like extraction, a dotted path resolves left to right.
// It panics if path is empty.
func Update(path string) Updater {
	if path == "" {
		panic("gridcache/extractors: Update called with an empty property path")
	}
	return &universalUpdater{Tag: tagUniversalUpdater, Name: path}
}

type compositeUpdater struct {
	Tag       string    `json:"@class"`
	Extractor Extractor `json:"extractor"`
	Updater   Updater   `json:"updater"`
}

func (u *compositeUpdater) updaterTag() string { return u.Tag }

// Composite binds a read path to a write path, producing the manipulator
// used by fold-and-store processors (multiply, increment): the server
// extracts the current value, folds it, and writes the result back. It panics
// if either argument is nil.
func Composite(extractor Extractor, updater Updater) Updater {
	if extractor == nil || updater == nil {
		panic("gridcache/extractors: Composite requires both an extractor and an updater")
	}
	return &compositeUpdater{Tag: tagCompositeUpdater, Extractor: extractor, Updater: updater}
}

// Manipulator resolves a property path into a composite read/write updater
// for that path.
func Manipulator(path string) Updater {
	if path == "" {
		panic("gridcache/extractors: Manipulator called with an empty path")
	}
	return Composite(Extract(path), Update(path))
}

// Comparator orders values by an extracted property, for use with sorted
// indexes.
type Comparator struct {
	Tag       string    `json:"@class"`
	Extractor Extractor `json:"extractor"`
}

// ComparatorFor returns a comparator ordering entries by what ex extracts.
// It panics if ex is nil.
func ComparatorFor(ex Extractor) *Comparator {
	if ex == nil {
		panic("gridcache/extractors: ComparatorFor called with a nil extractor")
	}
	return &Comparator{Tag: tagExtractorComparer, Extractor: ex}
}
