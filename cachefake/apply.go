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

package cachefake

import (
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// applyProcessor applies a processor expression to the entry addressed by
// canonical key within a cache. The entry may be absent. result is
// meaningful only when present is true: guarded processors with a failed
// guard and pure mutations yield no result at all. Return-refined
// conditional and versioned mutations yield the entry's current value only
// when the mutation did not apply, so the caller can see what blocked it.
func (c *cacheState) applyProcessor(key string, p any) (result any, present bool, err error) {
	tag, m, err := tagOf(p)
	if err != nil {
		return nil, false, err
	}
	ent, exists := c.entries[key]
	var value any
	var decodedKey any
	if exists {
		value = ent.value
		decodedKey = ent.key
	} else {
		decodedKey = decodeCanonical(key)
	}

	switch tag {
	case "processor.ExtractorProcessor":
		if !exists {
			return nil, false, nil
		}
		got, _, err := extract(m["extractor"], value)
		return got, err == nil, err

	case "processor.CompositeProcessor":
		children, _ := m["processors"].([]any)
		out := make([]any, 0, len(children))
		for _, child := range children {
			r, ok, err := c.applyProcessor(key, child)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				r = nil
			}
			out = append(out, r)
		}
		return out, true, nil

	case "processor.ConditionalProcessor":
		ok, err := evalFilter(m["filter"], decodedKey, value, exists)
		if err != nil || !ok {
			return nil, false, err
		}
		return c.applyProcessor(key, m["processor"])

	case "processor.ConditionalPut":
		ok, err := evalFilter(m["filter"], decodedKey, value, exists)
		if err != nil {
			return nil, false, err
		}
		if ok {
			c.store(key, decodedKey, m["value"])
		} else if wantBool(m, "return") {
			return value, exists, nil
		}
		return nil, false, nil

	case "processor.ConditionalPutAll":
		newVal, found := pairValue(m["entries"], key)
		if !found {
			return nil, false, nil
		}
		ok, err := evalFilter(m["filter"], decodedKey, value, exists)
		if err != nil {
			return nil, false, err
		}
		if ok {
			c.store(key, decodedKey, newVal)
		}
		return nil, false, nil

	case "processor.ConditionalRemove":
		ok, err := evalFilter(m["filter"], decodedKey, value, exists)
		if err != nil {
			return nil, false, err
		}
		if ok && exists {
			c.remove(key)
		}
		if wantBool(m, "return") && !ok {
			return value, exists, nil
		}
		return nil, false, nil

	case "processor.VersionedPut":
		applied := c.versionedStore(key, decodedKey, value, exists, m["value"], wantBool(m, "insert"))
		if !applied && wantBool(m, "return") {
			return value, exists, nil
		}
		return nil, false, nil

	case "processor.VersionedPutAll":
		newVal, found := pairValue(m["entries"], key)
		if !found {
			return nil, false, nil
		}
		c.versionedStore(key, decodedKey, value, exists, newVal, wantBool(m, "insert"))
		return nil, false, nil

	case "processor.UpdaterProcessor":
		updated, err := update(m["updater"], value, m["value"])
		if err != nil {
			return nil, false, err
		}
		c.store(key, decodedKey, updated)
		return nil, false, nil

	case "processor.MethodInvocationProcessor":
		name, _ := m["methodName"].(string)
		if wantBool(m, "mutator") {
			args, _ := m["args"].([]any)
			var arg any
			if len(args) > 0 {
				arg = args[0]
			}
			updated, err := writeProperty(value, name, arg)
			if err != nil {
				return nil, false, err
			}
			c.store(key, decodedKey, updated)
			return nil, false, nil
		}
		if !exists {
			return nil, false, nil
		}
		got, _, err := property(value, name)
		return got, err == nil, err

	case "processor.NumberMultiplier", "processor.NumberIncrementor":
		manip, _ := m["manipulator"].(map[string]any)
		old, _, err := extract(manip["extractor"], value)
		if err != nil {
			return nil, false, err
		}
		oldNum, _ := toFloat(old)
		var newNum float64
		var post bool
		if tag == "processor.NumberMultiplier" {
			factor, _ := toFloat(m["multiplier"])
			newNum = oldNum * factor
			post = wantBool(m, "postMultiplication")
		} else {
			delta, _ := toFloat(m["increment"])
			newNum = oldNum + delta
			post = wantBool(m, "postIncrement")
		}
		updated, err := update(manip, value, newNum)
		if err != nil {
			return nil, false, err
		}
		c.store(key, decodedKey, updated)
		if post {
			return oldNum, true, nil
		}
		return newNum, true, nil

	case "processor.PreloadRequest", "processor.TouchProcessor":
		return nil, false, nil

	default:
		return nil, false, status.Errorf(codes.Unimplemented, "unknown processor %q", tag)
	}
}

// versionedStore implements versioned-put semantics over values that carry
// a numeric "version" property. A matching version wins and is bumped by
// one, a stale version is silently ignored and insert controls what happens
// for absent entries. It reports whether the write applied.
func (c *cacheState) versionedStore(key string, decodedKey any, cur any, exists bool, newVal any, insert bool) bool {
	nv, ok := newVal.(map[string]any)
	if !ok {
		if !exists {
			c.store(key, decodedKey, newVal)
			return true
		}
		return false
	}
	if !exists {
		if insert {
			c.store(key, decodedKey, nv)
			return true
		}
		return false
	}
	curVer := versionOf(cur)
	newVer, hasVer := toFloat(nv["version"])
	if !hasVer || newVer != curVer {
		return false
	}
	stored := make(map[string]any, len(nv))
	for k, v := range nv {
		stored[k] = v
	}
	stored["version"] = newVer + 1
	c.store(key, decodedKey, stored)
	return true
}

func versionOf(v any) float64 {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	ver, _ := toFloat(obj["version"])
	return ver
}

// pairValue looks up the batch entry addressed to the given canonical key.
func pairValue(entries any, key string) (any, bool) {
	list, _ := entries.([]any)
	for _, item := range list {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if canonical(pair["key"]) == key {
			return pair["value"], true
		}
	}
	return nil, false
}

func wantBool(m map[string]any, field string) bool {
	b, _ := m[field].(bool)
	return b
}

// applyAggregator folds an aggregator expression over a slice of entry
// values. present is false when the aggregate is undefined for an empty
// input (min, max, sum, average).
func applyAggregator(agg any, values []any) (result any, present bool, err error) {
	tag, m, err := tagOf(agg)
	if err != nil {
		return nil, false, err
	}
	switch tag {
	case "aggregator.Count":
		return float64(len(values)), true, nil

	case "aggregator.ComparableMin", "aggregator.ComparableMax":
		extracted, err := extractAll(m["extractor"], values)
		if err != nil {
			return nil, false, err
		}
		var best any
		for _, v := range extracted {
			if best == nil {
				best = v
				continue
			}
			cmp, ok := compare(v, best)
			if !ok {
				continue
			}
			if (tag == "aggregator.ComparableMin" && cmp < 0) || (tag == "aggregator.ComparableMax" && cmp > 0) {
				best = v
			}
		}
		return best, best != nil, nil

	case "aggregator.DoubleSum", "aggregator.DoubleAverage":
		extracted, err := extractAll(m["extractor"], values)
		if err != nil {
			return nil, false, err
		}
		sum, n := 0.0, 0
		for _, v := range extracted {
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			sum += f
			n++
		}
		if n == 0 {
			return nil, false, nil
		}
		if tag == "aggregator.DoubleAverage" {
			return sum / float64(n), true, nil
		}
		return sum, true, nil

	case "aggregator.DistinctValues":
		extracted, err := extractAll(m["extractor"], values)
		if err != nil {
			return nil, false, err
		}
		seen := map[string]bool{}
		out := []any{}
		for _, v := range extracted {
			c := canonical(v)
			if !seen[c] {
				seen[c] = true
				out = append(out, v)
			}
		}
		sort.Slice(out, func(i, j int) bool { return canonical(out[i]) < canonical(out[j]) })
		return out, true, nil

	case "aggregator.GroupAggregator":
		groups := map[string][]any{}
		var order []string
		for _, v := range values {
			gk, ok, err := extract(m["extractor"], v)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}
			ck := canonical(gk)
			if _, seen := groups[ck]; !seen {
				order = append(order, ck)
			}
			groups[ck] = append(groups[ck], v)
		}
		out := map[string]any{}
		for _, ck := range order {
			r, ok, err := applyAggregator(m["aggregator"], groups[ck])
			if err != nil {
				return nil, false, err
			}
			if !ok {
				r = nil
			}
			// The optional filter is a HAVING clause over aggregate results.
			if flt, found := m["filter"]; found && flt != nil {
				keep, err := evalFilter(flt, decodeCanonical(ck), r, true)
				if err != nil {
					return nil, false, err
				}
				if !keep {
					continue
				}
			}
			out[groupKeyString(ck)] = r
		}
		return out, true, nil

	default:
		return nil, false, status.Errorf(codes.Unimplemented, "unknown aggregator %q", tag)
	}
}

// extractAll maps the extractor over the values, dropping entries where the
// extraction yields nothing.
func extractAll(ex any, values []any) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		got, ok, err := extract(ex, v)
		if err != nil {
			return nil, err
		}
		if ok && got != nil {
			out = append(out, got)
		}
	}
	return out, nil
}

// groupKeyString renders a canonical group key as a JSON object key.
// Strings lose their quoting so that grouping by a string property
// produces the natural map keys.
func groupKeyString(canon string) string {
	var s string
	if unmarshalCanonical(canon, &s) {
		return s
	}
	return canon
}
