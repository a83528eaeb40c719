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

package filters

import (
	"encoding/json"
	"testing"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"go.gridcache.dev/gridcache/extractors"
)

func wireJSON(t testing.TB, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	assert.NoErr(t, err)
	return string(b)
}

func TestWireShapes(t *testing.T) {
	t.Parallel()

	age := extractors.Extract("age")

	ftt.Run("Wire shapes", t, func(t *ftt.Test) {
		t.Run("Comparisons", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Equal(age, 21)), should.Equal(
				`{"@class":"filter.EqualsFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"age"},"value":21}`))
			assert.That(t, wireJSON(t, Greater(age, 21)), should.Equal(
				`{"@class":"filter.GreaterFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"age"},"value":21}`))
			assert.That(t, wireJSON(t, LessEqual(age, 21)), should.Equal(
				`{"@class":"filter.LessEqualsFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"age"},"value":21}`))
		})

		t.Run("Dotted paths become chains", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Equal(extractors.Extract("addr.city"), "NYC")), should.Equal(
				`{"@class":"filter.EqualsFilter","extractor":{"@class":"extractor.ChainedExtractor","extractors":[`+
					`{"@class":"extractor.UniversalExtractor","name":"addr"},`+
					`{"@class":"extractor.UniversalExtractor","name":"city"}]},"value":"NYC"}`))
		})

		t.Run("Like omits unset options", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Like(extractors.Extract("name"), "Bo%")), should.Equal(
				`{"@class":"filter.LikeFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"name"},"pattern":"Bo%"}`))
			assert.That(t, wireJSON(t, LikeWith(extractors.Extract("name"), "100~%", '~', true)), should.Equal(
				`{"@class":"filter.LikeFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"name"},"pattern":"100~%","escape":"~","ignoreCase":true}`))
		})

		t.Run("Nullness", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, IsNil(age)), should.Equal(
				`{"@class":"filter.IsNullFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
			assert.That(t, wireJSON(t, IsNotNil(age)), should.Equal(
				`{"@class":"filter.IsNotNullFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
		})

		t.Run("Constants carry only their tag", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Always()), should.Equal(`{"@class":"filter.AlwaysFilter"}`))
			assert.That(t, wireJSON(t, Never()), should.Equal(`{"@class":"filter.NeverFilter"}`))
			assert.That(t, wireJSON(t, Present()), should.Equal(`{"@class":"filter.PresentFilter"}`))
		})

		t.Run("Composites", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, And(Always(), Never())), should.Equal(
				`{"@class":"filter.AndFilter","filters":[{"@class":"filter.AlwaysFilter"},{"@class":"filter.NeverFilter"}]}`))
			assert.That(t, wireJSON(t, Not(Always())), should.Equal(
				`{"@class":"filter.NotFilter","filter":{"@class":"filter.AlwaysFilter"}}`))
			assert.That(t, wireJSON(t, Any(Always(), Never(), Present())), should.Equal(
				`{"@class":"filter.AnyFilter","filters":[{"@class":"filter.AlwaysFilter"},{"@class":"filter.NeverFilter"},{"@class":"filter.PresentFilter"}]}`))
		})

		t.Run("Collection membership", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, ContainsAny(extractors.Extract("tags"), "a", "b")), should.Equal(
				`{"@class":"filter.ContainsAnyFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"tags"},"values":["a","b"]}`))
		})

		t.Run("Key association", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, KeyAssociated(Equal(age, 21), 17)), should.Equal(
				`{"@class":"filter.KeyAssociatedFilter","filter":{"@class":"filter.EqualsFilter","extractor":{"@class":"extractor.UniversalExtractor","name":"age"},"value":21},"hostKey":17}`))
		})
	})
}

func TestBetween(t *testing.T) {
	t.Parallel()

	age := extractors.Extract("age")

	ftt.Run("Between", t, func(t *ftt.Test) {
		t.Run("Defaults to exclusive bounds", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Between(age, 1, 10)),
				should.Equal(wireJSON(t, And(Greater(age, 1), Less(age, 10)))))
		})

		t.Run("Inclusive bounds", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, BetweenBounds(age, 1, 10, true, true)),
				should.Equal(wireJSON(t, And(GreaterEqual(age, 1), LessEqual(age, 10)))))
		})

		t.Run("Mixed bounds", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, BetweenBounds(age, 1, 10, true, false)),
				should.Equal(wireJSON(t, And(GreaterEqual(age, 1), Less(age, 10)))))
		})
	})
}

func TestConstructionPanics(t *testing.T) {
	t.Parallel()

	ftt.Run("Construction contract", t, func(t *ftt.Test) {
		t.Run("Comparison without an extractor", func(t *ftt.Test) {
			assert.Loosely(t, func() { Equal(nil, 1) }, should.PanicLikeString("requires an extractor"))
		})

		t.Run("Composite with a nil child", func(t *ftt.Test) {
			assert.Loosely(t, func() { And(nil, Always()) }, should.PanicLikeString("nil child"))
		})

		t.Run("Empty n-ary composites", func(t *ftt.Test) {
			assert.Loosely(t, func() { All() }, should.PanicLikeString("at least one filter"))
			assert.Loosely(t, func() { Any() }, should.PanicLikeString("at least one filter"))
		})

		t.Run("Key association must stay outermost", func(t *ftt.Test) {
			ka := KeyAssociated(Always(), 1)
			assert.Loosely(t, func() { And(ka, Always()) }, should.PanicLikeString("outermost"))
			assert.Loosely(t, func() { Or(Always(), ka) }, should.PanicLikeString("outermost"))
			assert.Loosely(t, func() { Not(ka) }, should.PanicLikeString("outermost"))
			assert.Loosely(t, func() { KeyAssociated(ka, 2) }, should.PanicLikeString("cannot nest"))
		})

		t.Run("Key association requires a filter", func(t *ftt.Test) {
			assert.Loosely(t, func() { KeyAssociated(nil, 1) }, should.PanicLikeString("requires a filter"))
		})
	})
}
