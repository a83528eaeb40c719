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

package extractors

import (
	"encoding/json"
	"testing"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

func wireJSON(t testing.TB, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	assert.NoErr(t, err)
	return string(b)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	ftt.Run("Extract", t, func(t *ftt.Test) {
		t.Run("Empty path is the identity", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Extract("")), should.Equal(
				`{"@class":"extractor.IdentityExtractor"}`))
		})

		t.Run("Single property", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Extract("name")), should.Equal(
				`{"@class":"extractor.UniversalExtractor","name":"name"}`))
		})

		t.Run("Dotted path chains per segment", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Extract("addr.city")), should.Equal(
				`{"@class":"extractor.ChainedExtractor","extractors":[`+
					`{"@class":"extractor.UniversalExtractor","name":"addr"},`+
					`{"@class":"extractor.UniversalExtractor","name":"city"}]}`))
		})

		t.Run("Extract and Chained agree on dotted paths", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Extract("a.b.c")), should.Equal(wireJSON(t, Chained("a.b.c"))))
		})

		t.Run("ChainedOf composes arbitrary steps", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, ChainedOf(Extract("a"), Identity())), should.Equal(
				`{"@class":"extractor.ChainedExtractor","extractors":[`+
					`{"@class":"extractor.UniversalExtractor","name":"a"},`+
					`{"@class":"extractor.IdentityExtractor"}]}`))
		})
	})
}

func TestUpdaters(t *testing.T) {
	t.Parallel()

	ftt.Run("Updaters", t, func(t *ftt.Test) {
		t.Run("Update keeps the dotted path in one node", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Update("a.b")), should.Equal(
				`{"@class":"extractor.UniversalUpdater","name":"a.b"}`))
		})

		t.Run("Manipulator pairs the read and write halves", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, Manipulator("n")), should.Equal(
				`{"@class":"extractor.CompositeUpdater","extractor":{"@class":"extractor.UniversalExtractor","name":"n"},"updater":{"@class":"extractor.UniversalUpdater","name":"n"}}`))
		})

		t.Run("ComparatorFor wraps an extractor", func(t *ftt.Test) {
			assert.That(t, wireJSON(t, ComparatorFor(Extract("age"))), should.Equal(
				`{"@class":"comparator.ExtractorComparator","extractor":{"@class":"extractor.UniversalExtractor","name":"age"}}`))
		})
	})
}

func TestConstructionPanics(t *testing.T) {
	t.Parallel()

	ftt.Run("Construction contract", t, func(t *ftt.Test) {
		assert.Loosely(t, func() { Chained("") }, should.PanicLikeString("empty path"))
		assert.Loosely(t, func() { ChainedOf() }, should.PanicLikeString("no extractors"))
		assert.Loosely(t, func() { ChainedOf(Extract("a"), nil) }, should.PanicLikeString("nil extractor"))
		assert.Loosely(t, func() { Update("") }, should.PanicLikeString("empty property path"))
		assert.Loosely(t, func() { Composite(nil, Update("a")) }, should.PanicLikeString("both an extractor and an updater"))
		assert.Loosely(t, func() { Manipulator("") }, should.PanicLikeString("empty path"))
		assert.Loosely(t, func() { ComparatorFor(nil) }, should.PanicLikeString("nil extractor"))
	})
}
