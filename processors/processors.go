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

// Package processors builds serializable entry-processor expressions: recipes
// for read and/or write operations the cache server applies to one or more
// entries.
//
// Processors compose two ways:
//
//   - AndThen sequences processors against the same entry. The result is
//     always a single flat ordered chain, never a chain of chains, so the
//     invocation result arity equals the number of leaf processors.
//   - When guards a processor (or a whole chain) with a filter; the server
//     applies the processor to an entry only if the guard holds for it.
//     Re-guarding replaces the previous guard rather than nesting it, so an
//     invocation always pays exactly one guard check.
//
// Both return new derived expressions; processors are immutable once
// constructed and safe to share across goroutines and reuse across calls.
package processors

import (
	"fmt"
	"sort"

	"go.gridcache.dev/gridcache/extractors"
	"go.gridcache.dev/gridcache/filters"
)

// Wire discriminators understood by the remote evaluator. Closed, versioned
// vocabulary; must match the server's dispatch table exactly.
const (
	tagExtractor         = "processor.ExtractorProcessor"
	tagComposite         = "processor.CompositeProcessor"
	tagConditional       = "processor.ConditionalProcessor"
	tagConditionalPut    = "processor.ConditionalPut"
	tagConditionalPutAll = "processor.ConditionalPutAll"
	tagConditionalRemove = "processor.ConditionalRemove"
	tagVersionedPut      = "processor.VersionedPut"
	tagVersionedPutAll   = "processor.VersionedPutAll"
	tagUpdater           = "processor.UpdaterProcessor"
	tagMethodInvocation  = "processor.MethodInvocationProcessor"
	tagNumberMultiplier  = "processor.NumberMultiplier"
	tagNumberIncrementor = "processor.NumberIncrementor"
	tagPreload           = "processor.PreloadRequest"
	tagTouch             = "processor.TouchProcessor"
)

// Processor is a serializable entry-processor expression. The concrete set
// of processors is closed; values are created through the constructors in
// this package.
type Processor interface {
	// AndThen returns a new processor running p, then next, in order against
	// the same entry. Chains flatten: composing chains splices their leaves.
	AndThen(next Processor) Processor

	// When returns a new processor that applies p only to entries guard
	// matches. Guarding an already-guarded processor replaces the previous
	// guard (last guard wins).
	When(guard filters.Filter) Processor

	processorTag() string
}

// core carries the shared composition behavior. Each concrete processor
// embeds it and sets self to its own pointer at construction; core has no
// serializable state.
type core struct {
	self Processor
}

func (c *core) AndThen(next Processor) Processor {
	return compose(c.self, next)
}

func (c *core) When(guard filters.Filter) Processor {
	return guarded(c.self, guard)
}

func compose(first, next Processor) Processor {
	if next == nil {
		panic("gridcache/processors: AndThen called with a nil processor")
	}
	leaves := make([]Processor, 0, 2)
	leaves = appendLeaves(leaves, first)
	leaves = appendLeaves(leaves, next)
	out := &compositeProcessor{Tag: tagComposite, Processors: leaves}
	out.self = out
	return out
}

func appendLeaves(dst []Processor, p Processor) []Processor {
	if c, ok := p.(*compositeProcessor); ok {
		return append(dst, c.Processors...)
	}
	return append(dst, p)
}

func guarded(p Processor, guard filters.Filter) Processor {
	if guard == nil {
		panic("gridcache/processors: When called with a nil filter")
	}
	// Last guard wins: re-guarding swaps the filter on the same inner
	// processor instead of stacking conditionals.
	if c, ok := p.(*conditionalProcessor); ok {
		p = c.Processor
	}
	out := &conditionalProcessor{Tag: tagConditional, Filter: guard, Processor: p}
	out.self = out
	return out
}

type compositeProcessor struct {
	core
	Tag        string      `json:"@class"`
	Processors []Processor `json:"processors"`
}

func (p *compositeProcessor) processorTag() string { return p.Tag }

type conditionalProcessor struct {
	core
	Tag       string         `json:"@class"`
	Filter    filters.Filter `json:"filter"`
	Processor Processor      `json:"processor"`
}

func (p *conditionalProcessor) processorTag() string { return p.Tag }

type extractorProcessor struct {
	core
	Tag       string               `json:"@class"`
	Extractor extractors.Extractor `json:"extractor"`
}

func (p *extractorProcessor) processorTag() string { return p.Tag }

// Extract returns a processor that reads the value at the given property
// path from the entry ("" reads the whole stored value).
func Extract(path string) Processor {
	return ExtractWith(extractors.Extract(path))
}

// ExtractWith returns a processor that reads whatever ex extracts from the
// entry. It panics if ex is nil.
func ExtractWith(ex extractors.Extractor) Processor {
	if ex == nil {
		panic("gridcache/processors: ExtractWith called with a nil extractor")
	}
	out := &extractorProcessor{Tag: tagExtractor, Extractor: ex}
	out.self = out
	return out
}

type conditionalPut struct {
	core
	Tag    string         `json:"@class"`
	Filter filters.Filter `json:"filter"`
	Value  any            `json:"value"`
	Return bool           `json:"return,omitempty"`
}

func (p *conditionalPut) processorTag() string { return p.Tag }

// ConditionalPut returns a processor that stores value iff guard matches the
// entry's current state. The invocation returns nothing by default; refined
// with ReturnCurrent it returns the entry's current value when the guard
// rejects the write. It panics if guard is nil.
func ConditionalPut(guard filters.Filter, value any) Processor {
	if guard == nil {
		panic("gridcache/processors: ConditionalPut requires a filter")
	}
	out := &conditionalPut{Tag: tagConditionalPut, Filter: guard, Value: value}
	out.self = out
	return out
}

// entryPair is a key/value pair inside a batch processor payload. Pairs are
// sorted at construction so a given mapping always serializes identically.
type entryPair struct {
	Key   any `json:"key"`
	Value any `json:"value"`
}

func sortedPairs[K comparable, V any](entries map[K]V) []entryPair {
	pairs := make([]entryPair, 0, len(entries))
	for k, v := range entries {
		pairs = append(pairs, entryPair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return fmt.Sprint(pairs[i].Key) < fmt.Sprint(pairs[j].Key)
	})
	return pairs
}

type conditionalPutAll struct {
	core
	Tag     string         `json:"@class"`
	Filter  filters.Filter `json:"filter"`
	Entries []entryPair    `json:"entries"`
}

func (p *conditionalPutAll) processorTag() string { return p.Tag }

// ConditionalPutAll is the batch form of ConditionalPut: the guard is
// evaluated per key against each target entry, and entries whose guard fails
// are left untouched. It panics if guard is nil.
func ConditionalPutAll[K comparable, V any](guard filters.Filter, entries map[K]V) Processor {
	if guard == nil {
		panic("gridcache/processors: ConditionalPutAll requires a filter")
	}
	out := &conditionalPutAll{Tag: tagConditionalPutAll, Filter: guard, Entries: sortedPairs(entries)}
	out.self = out
	return out
}

type conditionalRemove struct {
	core
	Tag    string         `json:"@class"`
	Filter filters.Filter `json:"filter"`
	Return bool           `json:"return,omitempty"`
}

func (p *conditionalRemove) processorTag() string { return p.Tag }

// ConditionalRemove returns a processor that removes the entry iff guard
// matches it; non-matching entries are untouched. Result policy mirrors
// ConditionalPut. It panics if guard is nil.
func ConditionalRemove(guard filters.Filter) Processor {
	if guard == nil {
		panic("gridcache/processors: ConditionalRemove requires a filter")
	}
	out := &conditionalRemove{Tag: tagConditionalRemove, Filter: guard}
	out.self = out
	return out
}

type versionedPut struct {
	core
	Tag    string `json:"@class"`
	Value  any    `json:"value"`
	Insert bool   `json:"insert,omitempty"`
	Return bool   `json:"return,omitempty"`
}

func (p *versionedPut) processorTag() string { return p.Tag }

// VersionedPut returns an optimistic-concurrency write: value carries an
// embedded version, and the server applies the write only if that version
// matches the stored entry's. A stale version is silently skipped, never an
// error. Refine with InsertIfAbsent to create missing entries.
func VersionedPut(value any) Processor {
	out := &versionedPut{Tag: tagVersionedPut, Value: value}
	out.self = out
	return out
}

type versionedPutAll struct {
	core
	Tag     string      `json:"@class"`
	Entries []entryPair `json:"entries"`
	Insert  bool        `json:"insert,omitempty"`
}

func (p *versionedPutAll) processorTag() string { return p.Tag }

// VersionedPutAll is the batch form of VersionedPut. Stale entries are
// skipped per key; when insertIfAbsent is set, keys with no prior mapping are
// inserted instead of skipped.
func VersionedPutAll[K comparable, V any](entries map[K]V, insertIfAbsent bool) Processor {
	out := &versionedPutAll{Tag: tagVersionedPutAll, Entries: sortedPairs(entries), Insert: insertIfAbsent}
	out.self = out
	return out
}

type updaterProcessor struct {
	core
	Tag     string             `json:"@class"`
	Updater extractors.Updater `json:"updater"`
	Value   any                `json:"value"`
}

func (p *updaterProcessor) processorTag() string { return p.Tag }

// Update returns a processor that writes value at the given property path of
// the entry's stored value. Sequenced updates (AndThen) run in declaration
// order against the same entry. It panics if path is empty.
func Update(path string, value any) Processor {
	return UpdateWith(extractors.Update(path), value)
}

// UpdateWith is Update with an explicit updater expression. It panics if
// updater is nil.
func UpdateWith(updater extractors.Updater, value any) Processor {
	if updater == nil {
		panic("gridcache/processors: UpdateWith called with a nil updater")
	}
	out := &updaterProcessor{Tag: tagUpdater, Updater: updater, Value: value}
	out.self = out
	return out
}

type methodInvocation struct {
	core
	Tag        string `json:"@class"`
	MethodName string `json:"methodName"`
	Args       []any  `json:"args,omitempty"`
	Mutator    bool   `json:"mutator,omitempty"`
}

func (p *methodInvocation) processorTag() string { return p.Tag }

// InvokeAccessor returns a processor invoking a named read-only method
// against the stored value's shape. The client encodes the recipe verbatim;
// the method name and arity are validated only by the remote evaluator. It
// panics if name is empty.
func InvokeAccessor(name string, args ...any) Processor {
	return invocation(name, args, false)
}

// InvokeMutator is InvokeAccessor for a method that mutates the stored
// value.
func InvokeMutator(name string, args ...any) Processor {
	return invocation(name, args, true)
}

func invocation(name string, args []any, mutator bool) Processor {
	if name == "" {
		panic("gridcache/processors: method invocation requires a method name")
	}
	out := &methodInvocation{Tag: tagMethodInvocation, MethodName: name, Args: args, Mutator: mutator}
	out.self = out
	return out
}

type numberMultiplier struct {
	core
	Tag         string             `json:"@class"`
	Manipulator extractors.Updater `json:"manipulator"`
	Multiplier  any                `json:"multiplier"`
	// PostMultiplication selects which value the invocation returns: true
	// returns the value from before the multiply (the default), false the
	// new one. Always serialized; the evaluator must not guess a default.
	PostMultiplication bool `json:"postMultiplication"`
}

func (p *numberMultiplier) processorTag() string { return p.Tag }

// Multiply returns a processor that multiplies the number at the given
// property path by factor and stores the result. The invocation returns the
// previous value; refine with ReturnNew for the post-multiply value.
func Multiply(path string, factor any) Processor {
	out := &numberMultiplier{
		Tag:                tagNumberMultiplier,
		Manipulator:        extractors.Manipulator(path),
		Multiplier:         factor,
		PostMultiplication: true,
	}
	out.self = out
	return out
}

type numberIncrementor struct {
	core
	Tag           string             `json:"@class"`
	Manipulator   extractors.Updater `json:"manipulator"`
	Increment     any                `json:"increment"`
	PostIncrement bool               `json:"postIncrement"`
}

func (p *numberIncrementor) processorTag() string { return p.Tag }

// Increment returns a processor that adds delta to the number at the given
// property path and stores the result. The invocation returns the previous
// value; refine with ReturnNew for the post-increment value.
func Increment(path string, delta any) Processor {
	out := &numberIncrementor{
		Tag:           tagNumberIncrementor,
		Manipulator:   extractors.Manipulator(path),
		Increment:     delta,
		PostIncrement: true,
	}
	out.self = out
	return out
}

type markerProcessor struct {
	core
	Tag string `json:"@class"`
}

func (p *markerProcessor) processorTag() string { return p.Tag }

// Preload returns a processor that asks the server to load the entry from
// its backing store without returning anything.
func Preload() Processor {
	out := &markerProcessor{Tag: tagPreload}
	out.self = out
	return out
}

// Touch returns a processor that resets the entry's expiry without reading
// or writing its value.
func Touch() Processor {
	out := &markerProcessor{Tag: tagTouch}
	out.self = out
	return out
}
