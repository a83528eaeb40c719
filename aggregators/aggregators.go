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

// Package aggregators builds serializable fold expressions applied by the
// cache server across a selected entry set.
//
// An aggregator pairs a fold operation with an extractor (property paths are
// shorthand for one). Aggregators carry no state between invocations: every
// call is a fresh fold over the server's current entry set.
//
// Result-on-empty is part of the server contract the client surfaces
// faithfully: numeric folds (Min, Max, Sum, Average) yield an absent result
// over an empty entry set, never a zero; Distinct yields an empty set, never
// an absent one.
package aggregators

import (
	"go.gridcache.dev/gridcache/extractors"
	"go.gridcache.dev/gridcache/filters"
)

// Wire discriminators understood by the remote evaluator. Closed, versioned
// vocabulary; must match the server's dispatch table exactly.
const (
	tagMin      = "aggregator.ComparableMin"
	tagMax      = "aggregator.ComparableMax"
	tagSum      = "aggregator.DoubleSum"
	tagAverage  = "aggregator.DoubleAverage"
	tagCount    = "aggregator.Count"
	tagDistinct = "aggregator.DistinctValues"
	tagGroup    = "aggregator.GroupAggregator"
)

// Aggregator is a serializable fold expression. The concrete set is closed;
// values are created through the constructors in this package.
type Aggregator interface {
	aggregatorTag() string
}

type extractorAggregator struct {
	Tag       string               `json:"@class"`
	Extractor extractors.Extractor `json:"extractor"`
}

func (a *extractorAggregator) aggregatorTag() string { return a.Tag }

func overExtractor(tag string, ex extractors.Extractor) Aggregator {
	if ex == nil {
		panic("gridcache/aggregators: aggregator requires an extractor")
	}
	return &extractorAggregator{Tag: tag, Extractor: ex}
}

// Min folds to the smallest extracted value at the given property path.
func Min(path string) Aggregator { return MinBy(extractors.Extract(path)) }

// MinBy is Min with an explicit extractor.
func MinBy(ex extractors.Extractor) Aggregator { return overExtractor(tagMin, ex) }

// Max folds to the largest extracted value at the given property path.
func Max(path string) Aggregator { return MaxBy(extractors.Extract(path)) }

// MaxBy is Max with an explicit extractor.
func MaxBy(ex extractors.Extractor) Aggregator { return overExtractor(tagMax, ex) }

// Sum folds to the numeric sum of extracted values at the given property
// path.
func Sum(path string) Aggregator { return SumBy(extractors.Extract(path)) }

// SumBy is Sum with an explicit extractor.
func SumBy(ex extractors.Extractor) Aggregator { return overExtractor(tagSum, ex) }

// Average folds to the numeric mean of extracted values at the given
// property path.
func Average(path string) Aggregator { return AverageBy(extractors.Extract(path)) }

// AverageBy is Average with an explicit extractor.
func AverageBy(ex extractors.Extractor) Aggregator { return overExtractor(tagAverage, ex) }

// Distinct folds to the set of unique extracted values at the given property
// path (unique tuples if the extractor yields a composite).
func Distinct(path string) Aggregator { return DistinctBy(extractors.Extract(path)) }

// DistinctBy is Distinct with an explicit extractor.
func DistinctBy(ex extractors.Extractor) Aggregator { return overExtractor(tagDistinct, ex) }

type countAggregator struct {
	Tag string `json:"@class"`
}

func (a *countAggregator) aggregatorTag() string { return a.Tag }

// Count folds to the number of selected entries.
func Count() Aggregator { return &countAggregator{Tag: tagCount} }

type groupAggregator struct {
	Tag        string               `json:"@class"`
	Extractor  extractors.Extractor `json:"extractor"`
	Aggregator Aggregator           `json:"aggregator"`
	Filter     filters.Filter       `json:"filter,omitempty"`
}

func (a *groupAggregator) aggregatorTag() string { return a.Tag }

// GroupBy groups entries by the value at the given property path and applies
// inner to each group, folding to a group-value -> result mapping. It panics
// if inner is nil.
func GroupBy(path string, inner Aggregator) Aggregator {
	return GroupFiltered(path, inner, nil)
}

// GroupFiltered is GroupBy restricted to groups whose aggregate result the
// given filter matches; a nil filter keeps every group and is omitted on the
// wire.
func GroupFiltered(path string, inner Aggregator, keep filters.Filter) Aggregator {
	if inner == nil {
		panic("gridcache/aggregators: GroupBy requires an inner aggregator")
	}
	return &groupAggregator{
		Tag:        tagGroup,
		Extractor:  extractors.Extract(path),
		Aggregator: inner,
		Filter:     keep,
	}
}
