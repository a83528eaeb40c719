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

package gridcache_test

import (
	"fmt"
	"sort"
	"testing"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"go.gridcache.dev/gridcache"
	"go.gridcache.dev/gridcache/extractors"
	"go.gridcache.dev/gridcache/filters"
)

func TestPagedEnumeration(t *testing.T) {
	t.Parallel()

	ftt.Run("Paged enumeration", t, func(t *ftt.Test) {
		ctx, fake, s := setup(t)
		cache, err := gridcache.GetNamedCache[string, int](ctx, s, "nums")
		assert.NoErr(t, err)

		// Three entries per page: ten entries span four pages, the last one
		// short.
		fake.SetPageSize(3)
		var want []string
		for i := 0; i < 10; i++ {
			k := fmt.Sprintf("k%02d", i)
			fake.Seed("nums", k, i)
			want = append(want, k)
		}

		t.Run("KeySet crosses pages without loss or duplication", func(t *ftt.Test) {
			keys, err := cache.KeySet().Collect(ctx)
			assert.NoErr(t, err)
			sort.Strings(keys)
			assert.That(t, keys, should.Match(want))
		})

		t.Run("EntrySet pairs keys with values", func(t *ftt.Test) {
			entries, err := cache.EntrySet().Collect(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, entries, should.HaveLength(10))
			byKey := map[string]int{}
			for _, e := range entries {
				byKey[e.Key] = e.Value
			}
			assert.Loosely(t, byKey["k07"], should.Equal(7))
		})

		t.Run("Values ride the entry pages", func(t *ftt.Test) {
			vals, err := cache.Values().Collect(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, vals, should.HaveLength(10))
			sum := 0
			for _, v := range vals {
				sum += v
			}
			assert.Loosely(t, sum, should.Equal(45))
		})

		t.Run("Collections restart from the first page", func(t *ftt.Test) {
			ks := cache.KeySet()
			first, err := ks.Collect(ctx)
			assert.NoErr(t, err)
			second, err := ks.Collect(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, second, should.HaveLength(len(first)))
		})

		t.Run("An empty cache enumerates to nothing", func(t *ftt.Test) {
			empty, err := gridcache.GetNamedCache[string, int](ctx, s, "empty")
			assert.NoErr(t, err)
			keys, err := empty.KeySet().Collect(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, keys, should.BeEmpty)
		})
	})
}

func TestFilteredEnumeration(t *testing.T) {
	t.Parallel()

	ftt.Run("Filtered enumeration", t, func(t *ftt.Test) {
		ctx, fake, s := setup(t)
		cache, err := gridcache.GetNamedCache[string, map[string]any](ctx, s, "c")
		assert.NoErr(t, err)

		fake.Seed("c", "a", map[string]any{"n": 1})
		fake.Seed("c", "b", map[string]any{"n": 5})
		fake.Seed("c", "d", map[string]any{"n": 9})

		big := filters.Greater(extractors.Extract("n"), 3)

		t.Run("KeySetFilter", func(t *ftt.Test) {
			keys, err := cache.KeySetFilter(big).Collect(ctx)
			assert.NoErr(t, err)
			sort.Strings(keys)
			assert.That(t, keys, should.Match([]string{"b", "d"}))
		})

		t.Run("EntrySetFilter", func(t *ftt.Test) {
			entries, err := cache.EntrySetFilter(big).Collect(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, entries, should.HaveLength(2))
		})

		t.Run("ValuesFilter", func(t *ftt.Test) {
			vals, err := cache.ValuesFilter(filters.Equal(extractors.Extract("n"), 5)).Collect(ctx)
			assert.NoErr(t, err)
			assert.That(t, vals, should.Match([]map[string]any{{"n": float64(5)}}))
		})

		t.Run("A nil filter fails on iteration, not construction", func(t *ftt.Test) {
			col := cache.KeySetFilter(nil)
			_, err := col.Collect(ctx)
			assert.Loosely(t, err, should.ErrLike("requires a filter"))
		})
	})
}

func TestIterator(t *testing.T) {
	t.Parallel()

	ftt.Run("Iterator", t, func(t *ftt.Test) {
		ctx, fake, s := setup(t)
		cache, err := gridcache.GetNamedCache[string, int](ctx, s, "nums")
		assert.NoErr(t, err)

		fake.SetPageSize(2)
		for i := 0; i < 6; i++ {
			fake.Seed("nums", fmt.Sprintf("k%d", i), i)
		}

		t.Run("Close abandons the enumeration", func(t *ftt.Test) {
			it := cache.KeySet().Iterate()
			_, err := it.Next(ctx)
			assert.NoErr(t, err)
			it.Close()
			_, err = it.Next(ctx)
			assert.Loosely(t, err, should.Equal(gridcache.Done))
		})

		t.Run("Close is idempotent", func(t *ftt.Test) {
			it := cache.KeySet().Iterate()
			it.Close()
			it.Close()
			_, err := it.Next(ctx)
			assert.Loosely(t, err, should.Equal(gridcache.Done))
		})

		t.Run("Next keeps returning Done once exhausted", func(t *ftt.Test) {
			it := cache.KeySet().Iterate()
			seen := 0
			for {
				if _, err := it.Next(ctx); err == gridcache.Done {
					break
				} else {
					assert.NoErr(t, err)
				}
				seen++
			}
			assert.Loosely(t, seen, should.Equal(6))
			_, err := it.Next(ctx)
			assert.Loosely(t, err, should.Equal(gridcache.Done))
		})

		t.Run("A decode failure kills the iterator", func(t *ftt.Test) {
			fake.Seed("nums", "bad", "not a number")
			it := cache.Values().Iterate()
			defer it.Close()
			var firstErr error
			for {
				_, err := it.Next(ctx)
				if err != nil {
					firstErr = err
					break
				}
			}
			assert.Loosely(t, firstErr, should.ErrLike("decoding value"))
			_, err := it.Next(ctx)
			assert.Loosely(t, err, should.Equal(firstErr))
		})

		t.Run("A mid-stream transport error surfaces and sticks", func(t *ftt.Test) {
			fake.SetPageSize(100)
			fake.BreakStream("NextKeySetPage", 3, status.Error(codes.Unavailable, "mid-stream boom"))
			it := cache.KeySet().Iterate()
			defer it.Close()

			// The header and two elements make it through.
			_, err := it.Next(ctx)
			assert.NoErr(t, err)
			_, err = it.Next(ctx)
			assert.NoErr(t, err)
			_, err = it.Next(ctx)
			assert.Loosely(t, err, should.ErrLike("mid-stream boom"))
			_, err = it.Next(ctx)
			assert.Loosely(t, err, should.ErrLike("mid-stream boom"))
		})

		t.Run("Stream open failures surface on the first Next", func(t *ftt.Test) {
			fake.FailCalls("NextKeySetPage", status.Error(codes.PermissionDenied, "nope"))
			it := cache.KeySet().Iterate()
			defer it.Close()
			_, err := it.Next(ctx)
			assert.Loosely(t, err, should.ErrLike("nope"))
		})
	})
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	ftt.Run("Concurrent use", t, func(t *ftt.Test) {
		ctx, fake, s := setup(t)
		cache, err := gridcache.GetNamedCache[string, int](ctx, s, "shared")
		assert.NoErr(t, err)

		t.Run("Independent operations from many goroutines", func(t *ftt.Test) {
			eg, ctx := errgroup.WithContext(ctx)
			for i := 0; i < 8; i++ {
				eg.Go(func() error {
					k := fmt.Sprintf("k%d", i)
					if _, err := cache.Put(ctx, k, i); err != nil {
						return err
					}
					got, err := cache.Get(ctx, k)
					if err != nil {
						return err
					}
					if *got != i {
						return fmt.Errorf("got %d, want %d", *got, i)
					}
					return nil
				})
			}
			assert.NoErr(t, eg.Wait())
			assert.Loosely(t, fake.EntryCount("shared"), should.Equal(8))
		})

		t.Run("A Collection may be iterated concurrently", func(t *ftt.Test) {
			fake.SetPageSize(2)
			for i := 0; i < 6; i++ {
				fake.Seed("shared", fmt.Sprintf("c%d", i), i)
			}
			col := cache.KeySet()
			eg, ctx := errgroup.WithContext(ctx)
			for i := 0; i < 4; i++ {
				eg.Go(func() error {
					keys, err := col.Collect(ctx)
					if err != nil {
						return err
					}
					if len(keys) != 6 {
						return fmt.Errorf("got %d keys, want 6", len(keys))
					}
					return nil
				})
			}
			assert.NoErr(t, eg.Wait())
		})
	})
}
