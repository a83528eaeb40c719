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

package processors

import (
	"encoding/json"
	"testing"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"go.gridcache.dev/gridcache/filters"
)

func wireJSON(t testing.TB, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	assert.NoErr(t, err)
	return string(b)
}

func TestWireShapes(t *testing.T) {
	t.Parallel()

	ftt.Run("Wire shapes", t, func(t *ftt.Test) {
		t.Run("Extract", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Extract("ival")), should.Equal(
				`{"@class":"processor.ExtractorProcessor","extractor":{"@class":"extractor.UniversalExtractor","name":"ival"}}`))
		})

		t.Run("ConditionalPut omits the unset return flag", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, ConditionalPut(filters.Present(), 5)), should.Equal(
				`{"@class":"processor.ConditionalPut","filter":{"@class":"filter.PresentFilter"},"value":5}`))
		})

		t.Run("ConditionalPutAll serializes entries deterministically", func(t *ftt.Test) {
			p := ConditionalPutAll(filters.Always(), map[string]int{"b": 2, "a": 1})
			assert.That(t, wireJSON(t, p), should.Equal(
				`{"@class":"processor.ConditionalPutAll","filter":{"@class":"filter.AlwaysFilter"},"entries":[{"key":"a","value":1},{"key":"b","value":2}]}`))
		})

		t.Run("VersionedPut defaults are omitted", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, VersionedPut(map[string]any{"version": 3})), should.Equal(
				`{"@class":"processor.VersionedPut","value":{"version":3}}`))
		})

		t.Run("Method invocation", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, InvokeAccessor("getAge")), should.Equal(
				`{"@class":"processor.MethodInvocationProcessor","methodName":"getAge"}`))
			assert.That(t, wireJSON(t, InvokeMutator("setAge", 30)), should.Equal(
				`{"@class":"processor.MethodInvocationProcessor","methodName":"setAge","args":[30],"mutator":true}`))
		})

		t.Run("Numeric processors always carry their post flag", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Multiply("qty", 2)), should.Equal(
				`{"@class":"processor.NumberMultiplier","manipulator":{"@class":"extractor.CompositeUpdater","extractor":{"@class":"extractor.UniversalExtractor","name":"qty"},"updater":{"@class":"extractor.UniversalUpdater","name":"qty"}},"multiplier":2,"postMultiplication":true}`))
			assert.That(t, wireJSON(t, ReturnNew(Increment("qty", 1))), should.ContainSubstring(
				`"postIncrement":false`))
		})

		t.Run("Markers carry only their tag", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Preload()), should.Equal(`{"@class":"processor.PreloadRequest"}`))
			assert.That(t, wireJSON(t, Touch()), should.Equal(`{"@class":"processor.TouchProcessor"}`))
		})
	})
}

func TestAndThen(t *testing.T) {
	t.Parallel()

	ftt.Run("AndThen", t, func(t *ftt.Test) {
		t.Run("Chains flatten to one composite", func(t *ftt.Test) {
			p := Extract("a").AndThen(Extract("b")).AndThen(Extract("c"))
			assert.That(t, wireJSON(t, p), should.Equal(
				`{"@class":"processor.CompositeProcessor","processors":[`+
					`{"@class":"processor.ExtractorProcessor","extractor":{"@class":"extractor.UniversalExtractor","name":"a"}},`+
					`{"@class":"processor.ExtractorProcessor","extractor":{"@class":"extractor.UniversalExtractor","name":"b"}},`+
					`{"@class":"processor.ExtractorProcessor","extractor":{"@class":"extractor.UniversalExtractor","name":"c"}}]}`))
		})

		t.Run("Flattening is associative", func(t *ftt.Test) {
			left := Extract("a").AndThen(Extract("b")).AndThen(Extract("c"))
			right := Extract("a").AndThen(Extract("b").AndThen(Extract("c")))
			assert.That(t, wireJSON(t, left), should.Equal(wireJSON(t, right)))
		})

		t.Run("Chaining does not mutate the receiver", func(t *ftt.Test) {
			a := Extract("a")
			before := wireJSON(t, a)
			a.AndThen(Extract("b"))
			assert.That(t, wireJSON(t, a), should.Equal(before))
		})

		t.Run("Nil processor panics", func(t *ftt.Test) {
			assert.Loosely(t, func() { Extract("a").AndThen(nil) }, should.PanicLikeString("nil processor"))
		})
	})
}

func TestWhen(t *testing.T) {
	t.Parallel()

	ftt.Run("When", t, func(t *ftt.Test) {
		t.Run("Wraps in a conditional", func(t *ftt.Test) {
			p := Extract("a").When(filters.Present())
			assert.That(t, wireJSON(t, p), should.Equal(
				`{"@class":"processor.ConditionalProcessor","filter":{"@class":"filter.PresentFilter"},"processor":{"@class":"processor.ExtractorProcessor","extractor":{"@class":"extractor.UniversalExtractor","name":"a"}}}`))
		})

		t.Run("Re-guarding replaces the guard, last one wins", func(t *ftt.Test) {
			p := Extract("a").When(filters.Always()).When(filters.Never())
			assert.That(t, wireJSON(t, p), should.Equal(
				wireJSON(t, Extract("a").When(filters.Never()))))
		})

		t.Run("Nil filter panics", func(t *ftt.Test) {
			assert.Loosely(t, func() { Extract("a").When(nil) }, should.PanicLikeString("nil filter"))
		})
	})
}

func TestRefinements(t *testing.T) {
	t.Parallel()

	ftt.Run("Refinements", t, func(t *ftt.Test) {
		t.Run("ReturnCurrent derives a copy", func(t *ftt.Test) {
			p := ConditionalPut(filters.Present(), 5)
			before := wireJSON(t, p)
			refined := ReturnCurrent(p)
			assert.That(t, wireJSON(t, refined), should.ContainSubstring(`"return":true`))
			assert.That(t, wireJSON(t, p), should.Equal(before))
		})

		t.Run("ReturnCurrent covers remove and versioned put", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, ReturnCurrent(ConditionalRemove(filters.Present()))),
				should.ContainSubstring(`"return":true`))
			assert.That(t, wireJSON(t, ReturnCurrent(VersionedPut(map[string]any{"version": 1}))),
				should.ContainSubstring(`"return":true`))
		})

		t.Run("InsertIfAbsent applies to versioned put only", func(t *ftt.Test) {
			refined := InsertIfAbsent(VersionedPut(map[string]any{"version": 1}))
			assert.That(t, wireJSON(t, refined), should.ContainSubstring(`"insert":true`))
			assert.Loosely(t, func() { InsertIfAbsent(Extract("a")) },
				should.PanicLikeString("versioned put"))
		})

		t.Run("Refined processors still chain", func(t *ftt.Test) {
			p := ReturnCurrent(ConditionalPut(filters.Present(), 5)).AndThen(Extract("a"))
			assert.That(t, wireJSON(t, p), should.ContainSubstring(`"@class":"processor.CompositeProcessor"`))
		})

		t.Run("Inapplicable kinds panic", func(t *ftt.Test) {
			assert.Loosely(t, func() { ReturnCurrent(Extract("a")) },
				should.PanicLikeString("ReturnCurrent applies only"))
			assert.Loosely(t, func() { ReturnNew(ConditionalRemove(filters.Present())) },
				should.PanicLikeString("ReturnNew applies only"))
		})
	})
}
