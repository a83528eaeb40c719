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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// The fake's expression evaluator: a deliberately small rendition of the
// server-side contract, covering the client's closed tag vocabulary over
// JSON-decoded values. Expressions arrive as the generic JSON forms the
// client serialized (map[string]any with an "@class" discriminator).

func tagOf(expr any) (string, map[string]any, error) {
	m, ok := expr.(map[string]any)
	if !ok {
		return "", nil, status.Errorf(codes.InvalidArgument, "expression is not an object: %v", expr)
	}
	tag, ok := m["@class"].(string)
	if !ok {
		return "", nil, status.Errorf(codes.InvalidArgument, "expression lacks an @class tag: %v", expr)
	}
	return tag, m, nil
}

// canonical returns a stable comparison form of a decoded JSON value.
func canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// compare orders two decoded JSON values: numerically when both are
// numbers, by canonical form otherwise. ok is false when either side is
// absent.
func compare(a, b any) (cmp int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	return strings.Compare(canonical(a), canonical(b)), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return canonical(a) == canonical(b)
}

// extract walks an extractor expression over a decoded value. present is
// false when any step yields nothing; absence propagates, it never errors.
func extract(ex any, v any) (out any, present bool, err error) {
	tag, m, err := tagOf(ex)
	if err != nil {
		return nil, false, err
	}
	switch tag {
	case "extractor.IdentityExtractor":
		return v, true, nil
	case "extractor.UniversalExtractor":
		name, _ := m["name"].(string)
		return property(v, name)
	case "extractor.ChainedExtractor":
		steps, _ := m["extractors"].([]any)
		cur := v
		for _, s := range steps {
			next, ok, err := extract(s, cur)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			cur = next
		}
		return cur, true, nil
	default:
		return nil, false, status.Errorf(codes.Unimplemented, "unknown extractor %q", tag)
	}
}

// property resolves one (possibly dotted) property name against a decoded
// object.
func property(v any, name string) (any, bool, error) {
	cur := v
	for _, part := range strings.Split(name, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

// update writes newVal through an updater expression, returning the updated
// stored value.
func update(up any, stored any, newVal any) (any, error) {
	tag, m, err := tagOf(up)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "extractor.UniversalUpdater":
		name, _ := m["name"].(string)
		return writeProperty(stored, name, newVal)
	case "extractor.CompositeUpdater":
		// The write half of a manipulator; the read half is consumed by the
		// numeric processors directly.
		return update(m["updater"], stored, newVal)
	default:
		return nil, status.Errorf(codes.Unimplemented, "unknown updater %q", tag)
	}
}

func writeProperty(v any, name string, newVal any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			return nil, status.Errorf(codes.InvalidArgument, "cannot update property %q of a non-object value", name)
		}
		obj = map[string]any{}
	}
	parts := strings.Split(name, ".")
	cur := obj
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = newVal
	return obj, nil
}

// evalFilter evaluates a filter expression against one entry. exists is
// false for keys with no current mapping (value is then nil).
func evalFilter(fl any, key any, value any, exists bool) (bool, error) {
	tag, m, err := tagOf(fl)
	if err != nil {
		return false, err
	}
	switch tag {
	case "filter.AlwaysFilter":
		return true, nil
	case "filter.NeverFilter":
		return false, nil
	case "filter.PresentFilter":
		return exists, nil
	case "filter.NotFilter":
		ok, err := evalFilter(m["filter"], key, value, exists)
		return !ok, err
	case "filter.AndFilter", "filter.AllFilter":
		return evalChildren(m, key, value, exists, func(acc, ok bool) bool { return acc && ok }, true)
	case "filter.OrFilter", "filter.AnyFilter":
		return evalChildren(m, key, value, exists, func(acc, ok bool) bool { return acc || ok }, false)
	case "filter.XorFilter":
		children, _ := m["filters"].([]any)
		count := 0
		for _, c := range children {
			ok, err := evalFilter(c, key, value, exists)
			if err != nil {
				return false, err
			}
			if ok {
				count++
			}
		}
		return count == 1, nil
	case "filter.KeyAssociatedFilter":
		// The fake is a single partition: key association does not restrict
		// anything here, the wrapped filter decides.
		return evalFilter(m["filter"], key, value, exists)
	case "filter.EqualsFilter", "filter.NotEqualsFilter",
		"filter.LessFilter", "filter.LessEqualsFilter",
		"filter.GreaterFilter", "filter.GreaterEqualsFilter":
		got, present, err := extract(m["extractor"], value)
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
		cmp, ok := compare(got, m["value"])
		if !ok {
			return tag == "filter.NotEqualsFilter", nil
		}
		switch tag {
		case "filter.EqualsFilter":
			return equal(got, m["value"]), nil
		case "filter.NotEqualsFilter":
			return !equal(got, m["value"]), nil
		case "filter.LessFilter":
			return cmp < 0, nil
		case "filter.LessEqualsFilter":
			return cmp <= 0, nil
		case "filter.GreaterFilter":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case "filter.IsNullFilter", "filter.IsNotNullFilter":
		got, present, err := extract(m["extractor"], value)
		if err != nil {
			return false, err
		}
		isNil := !present || got == nil
		if tag == "filter.IsNullFilter" {
			return isNil, nil
		}
		return !isNil, nil
	case "filter.LikeFilter":
		got, present, err := extract(m["extractor"], value)
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
		s, ok := got.(string)
		if !ok {
			return false, nil
		}
		pattern, _ := m["pattern"].(string)
		escape, _ := m["escape"].(string)
		ignoreCase, _ := m["ignoreCase"].(bool)
		re, err := likeRegexp(pattern, escape, ignoreCase)
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	case "filter.ContainsFilter":
		items, err := extractSlice(m["extractor"], value)
		if err != nil {
			return false, err
		}
		return containsValue(items, m["value"]), nil
	case "filter.ContainsAllFilter", "filter.ContainsAnyFilter":
		items, err := extractSlice(m["extractor"], value)
		if err != nil {
			return false, err
		}
		wanted, _ := m["values"].([]any)
		if tag == "filter.ContainsAllFilter" {
			for _, w := range wanted {
				if !containsValue(items, w) {
					return false, nil
				}
			}
			return true, nil
		}
		for _, w := range wanted {
			if containsValue(items, w) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, status.Errorf(codes.Unimplemented, "unknown filter %q", tag)
	}
}

func evalChildren(m map[string]any, key, value any, exists bool, fold func(acc, ok bool) bool, acc bool) (bool, error) {
	children, _ := m["filters"].([]any)
	for _, c := range children {
		ok, err := evalFilter(c, key, value, exists)
		if err != nil {
			return false, err
		}
		acc = fold(acc, ok)
	}
	return acc, nil
}

func extractSlice(ex any, value any) ([]any, error) {
	got, present, err := extract(ex, value)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	items, _ := got.([]any)
	return items, nil
}

func containsValue(items []any, want any) bool {
	for _, it := range items {
		if equal(it, want) {
			return true
		}
	}
	return false
}

// likeRegexp compiles a SQL LIKE pattern ('%' any run, '_' one character,
// optional escape character) into an anchored regexp.
func likeRegexp(pattern, escape string, ignoreCase bool) (*regexp.Regexp, error) {
	var b strings.Builder
	if ignoreCase {
		b.WriteString("(?is)")
	} else {
		b.WriteString("(?s)")
	}
	b.WriteString("^")
	var esc rune
	if escape != "" {
		esc = []rune(escape)[0]
	}
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case esc != 0 && r == esc:
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
