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

// Package filters builds serializable predicate expressions evaluated by the
// cache server to select entries.
//
// Filters are trees: leaf filters pair an extractor with a comparison value,
// composite filters (And, Or, Xor, Not, All, Any) hold child filters. No
// evaluation happens client-side; a filter is a recipe shipped to the remote
// evaluator as part of a request.
//
// A key-association filter (KeyAssociated) is a scope restriction, not a
// predicate. It must be the outermost node of a filter tree: the composite
// constructors panic when handed one as a child, and KeyAssociated panics
// when asked to wrap a tree that already contains one.
//
// Filters are immutable once constructed and may be shared across goroutines
// and reused across calls.
package filters

import (
	"go.gridcache.dev/gridcache/extractors"
)

// Wire discriminators understood by the remote evaluator. Closed, versioned
// vocabulary; must match the server's dispatch table exactly.
const (
	tagEquals        = "filter.EqualsFilter"
	tagNotEquals     = "filter.NotEqualsFilter"
	tagLess          = "filter.LessFilter"
	tagLessEquals    = "filter.LessEqualsFilter"
	tagGreater       = "filter.GreaterFilter"
	tagGreaterEquals = "filter.GreaterEqualsFilter"
	tagLike          = "filter.LikeFilter"
	tagIsNil         = "filter.IsNullFilter"
	tagIsNotNil      = "filter.IsNotNullFilter"
	tagAnd           = "filter.AndFilter"
	tagOr            = "filter.OrFilter"
	tagXor           = "filter.XorFilter"
	tagAll           = "filter.AllFilter"
	tagAny           = "filter.AnyFilter"
	tagNot           = "filter.NotFilter"
	tagContains      = "filter.ContainsFilter"
	tagContainsAll   = "filter.ContainsAllFilter"
	tagContainsAny   = "filter.ContainsAnyFilter"
	tagAlways        = "filter.AlwaysFilter"
	tagNever         = "filter.NeverFilter"
	tagPresent       = "filter.PresentFilter"
	tagKeyAssociated = "filter.KeyAssociatedFilter"
)

// Filter selects cache entries server-side. The concrete set of filters is
// closed; values are created through the constructors in this package.
type Filter interface {
	filterTag() string
}

type comparisonFilter struct {
	Tag       string               `json:"@class"`
	Extractor extractors.Extractor `json:"extractor"`
	Value     any                  `json:"value"`
}

func (f *comparisonFilter) filterTag() string { return f.Tag }

func comparison(tag string, ex extractors.Extractor, value any) Filter {
	if ex == nil {
		panic("gridcache/filters: comparison filter requires an extractor")
	}
	return &comparisonFilter{Tag: tag, Extractor: ex, Value: value}
}

// Equal matches entries whose extracted value equals value.
func Equal(ex extractors.Extractor, value any) Filter {
	return comparison(tagEquals, ex, value)
}

// NotEqual matches entries whose extracted value differs from value.
func NotEqual(ex extractors.Extractor, value any) Filter {
	return comparison(tagNotEquals, ex, value)
}

// Less matches entries whose extracted value is strictly less than value.
func Less(ex extractors.Extractor, value any) Filter {
	return comparison(tagLess, ex, value)
}

// LessEqual matches entries whose extracted value is at most value.
func LessEqual(ex extractors.Extractor, value any) Filter {
	return comparison(tagLessEquals, ex, value)
}

// Greater matches entries whose extracted value is strictly greater than
// value.
func Greater(ex extractors.Extractor, value any) Filter {
	return comparison(tagGreater, ex, value)
}

// GreaterEqual matches entries whose extracted value is at least value.
func GreaterEqual(ex extractors.Extractor, value any) Filter {
	return comparison(tagGreaterEquals, ex, value)
}

// Contains matches entries whose extracted collection or array contains
// value.
func Contains(ex extractors.Extractor, value any) Filter {
	return comparison(tagContains, ex, value)
}

type setFilter struct {
	Tag       string               `json:"@class"`
	Extractor extractors.Extractor `json:"extractor"`
	Values    []any                `json:"values"`
}

func (f *setFilter) filterTag() string { return f.Tag }

func setPredicate(tag string, ex extractors.Extractor, values []any) Filter {
	if ex == nil {
		panic("gridcache/filters: collection filter requires an extractor")
	}
	out := make([]any, len(values))
	copy(out, values)
	return &setFilter{Tag: tag, Extractor: ex, Values: out}
}

// ContainsAll matches entries whose extracted collection contains every one
// of values.
func ContainsAll(ex extractors.Extractor, values ...any) Filter {
	return setPredicate(tagContainsAll, ex, values)
}

// ContainsAny matches entries whose extracted collection contains at least
// one of values.
func ContainsAny(ex extractors.Extractor, values ...any) Filter {
	return setPredicate(tagContainsAny, ex, values)
}

type likeFilter struct {
	Tag        string               `json:"@class"`
	Extractor  extractors.Extractor `json:"extractor"`
	Pattern    string               `json:"pattern"`
	Escape     string               `json:"escape,omitempty"`
	IgnoreCase bool                 `json:"ignoreCase,omitempty"`
}

func (f *likeFilter) filterTag() string { return f.Tag }

// Like matches entries whose extracted value matches a SQL LIKE pattern
// ('%' any run, '_' one character), case-sensitively and with no escape
// character. Use LikeWith for an escape character or case folding.
func Like(ex extractors.Extractor, pattern string) Filter {
	return LikeWith(ex, pattern, 0, false)
}

// LikeWith is Like with an explicit escape rune (0 for none; omitted on the
// wire, never sent as null) and case-insensitivity flag.
func LikeWith(ex extractors.Extractor, pattern string, escape rune, ignoreCase bool) Filter {
	if ex == nil {
		panic("gridcache/filters: Like requires an extractor")
	}
	esc := ""
	if escape != 0 {
		esc = string(escape)
	}
	return &likeFilter{
		Tag:        tagLike,
		Extractor:  ex,
		Pattern:    pattern,
		Escape:     esc,
		IgnoreCase: ignoreCase,
	}
}

type unaryFilter struct {
	Tag       string               `json:"@class"`
	Extractor extractors.Extractor `json:"extractor"`
}

func (f *unaryFilter) filterTag() string { return f.Tag }

// IsNil matches entries whose extraction yields an absent or null value.
func IsNil(ex extractors.Extractor) Filter {
	if ex == nil {
		panic("gridcache/filters: IsNil requires an extractor")
	}
	return &unaryFilter{Tag: tagIsNil, Extractor: ex}
}

// IsNotNil matches entries whose extraction yields a present, non-null
// value.
func IsNotNil(ex extractors.Extractor) Filter {
	if ex == nil {
		panic("gridcache/filters: IsNotNil requires an extractor")
	}
	return &unaryFilter{Tag: tagIsNotNil, Extractor: ex}
}

type constFilter struct {
	Tag string `json:"@class"`
}

func (f *constFilter) filterTag() string { return f.Tag }

// Always matches every entry.
func Always() Filter { return &constFilter{Tag: tagAlways} }

// Never matches no entry.
func Never() Filter { return &constFilter{Tag: tagNever} }

// Present matches entries that exist in the cache, whatever their value.
// Useful as a processor guard: the guard holds only when a mapping is
// already present.
func Present() Filter { return &constFilter{Tag: tagPresent} }

type compositeFilter struct {
	Tag     string   `json:"@class"`
	Filters []Filter `json:"filters"`
}

func (f *compositeFilter) filterTag() string { return f.Tag }

func composite(tag string, children []Filter) Filter {
	out := make([]Filter, len(children))
	for i, c := range children {
		if c == nil {
			panic("gridcache/filters: composite filter given a nil child")
		}
		if c.filterTag() == tagKeyAssociated {
			panic("gridcache/filters: a key-association filter must be the outermost filter, it cannot be composed")
		}
		out[i] = c
	}
	return &compositeFilter{Tag: tag, Filters: out}
}

// And matches entries that both l and r match.
func And(l, r Filter) Filter { return composite(tagAnd, []Filter{l, r}) }

// Or matches entries that at least one of l, r matches.
func Or(l, r Filter) Filter { return composite(tagOr, []Filter{l, r}) }

// Xor matches entries that exactly one of l, r matches.
func Xor(l, r Filter) Filter { return composite(tagXor, []Filter{l, r}) }

// All matches entries that every child filter matches. It panics if given no
// children.
func All(children ...Filter) Filter {
	if len(children) == 0 {
		panic("gridcache/filters: All requires at least one filter")
	}
	return composite(tagAll, children)
}

// Any matches entries that at least one child filter matches. It panics if
// given no children.
func Any(children ...Filter) Filter {
	if len(children) == 0 {
		panic("gridcache/filters: Any requires at least one filter")
	}
	return composite(tagAny, children)
}

type notFilter struct {
	Tag    string `json:"@class"`
	Filter Filter `json:"filter"`
}

func (f *notFilter) filterTag() string { return f.Tag }

// Not matches entries that inner does not match.
func Not(inner Filter) Filter {
	if inner == nil {
		panic("gridcache/filters: Not requires a filter")
	}
	if inner.filterTag() == tagKeyAssociated {
		panic("gridcache/filters: a key-association filter must be the outermost filter, it cannot be composed")
	}
	return &notFilter{Tag: tagNot, Filter: inner}
}

// Between matches entries whose extracted value lies strictly between from
// and to. It is pure sugar: the wire form is And(Greater(from), Less(to)).
// Use BetweenBounds for inclusive bounds.
func Between(ex extractors.Extractor, from, to any) Filter {
	return BetweenBounds(ex, from, to, false, false)
}

// BetweenBounds is Between with explicit bound inclusivity.
func BetweenBounds(ex extractors.Extractor, from, to any, includeFrom, includeTo bool) Filter {
	lower := Greater(ex, from)
	if includeFrom {
		lower = GreaterEqual(ex, from)
	}
	upper := Less(ex, to)
	if includeTo {
		upper = LessEqual(ex, to)
	}
	return And(lower, upper)
}

type keyAssociatedFilter struct {
	Tag     string `json:"@class"`
	Filter  Filter `json:"filter"`
	HostKey any    `json:"hostKey"`
}

func (f *keyAssociatedFilter) filterTag() string { return f.Tag }

// KeyAssociated restricts inner to the partition owning hostKey. It is the
// one filter that may not appear inside another: it panics if inner is nil
// or is itself key-associated. (The composite constructors reject
// key-associated children, so a deeper nesting cannot be built either.)
func KeyAssociated(inner Filter, hostKey any) Filter {
	if inner == nil {
		panic("gridcache/filters: KeyAssociated requires a filter")
	}
	if inner.filterTag() == tagKeyAssociated {
		panic("gridcache/filters: key-association filters cannot nest")
	}
	return &keyAssociatedFilter{Tag: tagKeyAssociated, Filter: inner, HostKey: hostKey}
}
