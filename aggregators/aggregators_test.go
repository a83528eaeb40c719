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

package aggregators

import (
	"encoding/json"
	"testing"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"go.gridcache.dev/gridcache/extractors"
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
		t.Run("Extractor-backed aggregators", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Min("age")), should.Equal(
				`{"@class":"aggregator.ComparableMin","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
			assert.That(t, wireJSON(t, Max("age")), should.Equal(
				`{"@class":"aggregator.ComparableMax","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
			assert.That(t, wireJSON(t, Sum("age")), should.Equal(
				`{"@class":"aggregator.DoubleSum","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
			assert.That(t, wireJSON(t, Average("age")), should.Equal(
				`{"@class":"aggregator.DoubleAverage","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
			assert.That(t, wireJSON(t, Distinct("age")), should.Equal(
				`{"@class":"aggregator.DistinctValues","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
		})

		t.Run("Path and extractor forms agree", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Min("a.b")), should.Equal(wireJSON(t, MinBy(extractors.Extract("a.b")))))
		})

		t.Run("Count carries only its tag", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Count()), should.Equal(`{"@class":"aggregator.Count"}`))
		})

		t.Run("GroupBy nests the inner aggregator", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, GroupBy("dept", Sum("pay"))), should.Equal(
				`{"@class":"aggregator.GroupAggregator","extractor":{"@class":"extractor.UniversalExtractor","name":"dept"},"aggregator":{"@class":"aggregator.DoubleSum","extractor":{"@class":"extractor.UniversalExtractor","name":"pay"}}}`))
		})

		t.Run("GroupFiltered includes the filter, GroupBy omits it", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, GroupFiltered("dept", Count(), filters.Present())), should.ContainSubstring(
				`"filter":{"@class":"filter.PresentFilter"}`))
			assert.That(t, wireJSON(t, GroupBy("dept", Count())), should.NotContainSubstring(`"filter"`))
		})
	})
}

func TestConstructionPanics(t *testing.T) {
	t.Parallel()

	ftt.Run("Construction contract", t, func(t *ftt.Test) {
		assert.Loosely(t, func() { MinBy(nil) }, should.PanicLikeString("requires an extractor"))
		assert.Loosely(t, func() { GroupBy("dept", nil) }, should.PanicLikeString("inner aggregator"))
	})
}
