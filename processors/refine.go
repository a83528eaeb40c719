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

// Refinements derive a new processor from an existing one; the original is
// never mutated, so a shared processor stays safe to reuse while a refined
// copy is in flight.

// ReturnCurrent derives a copy of p whose invocation result carries the
// entry's current value when the mutation does not apply (a rejecting guard
// or a stale version), so the caller can see what blocked it. It applies to
// ConditionalPut, ConditionalRemove and VersionedPut processors, and panics
// for any other kind.
func ReturnCurrent(p Processor) Processor {
	switch t := p.(type) {
	case *conditionalPut:
		out := &conditionalPut{Tag: t.Tag, Filter: t.Filter, Value: t.Value, Return: true}
		out.self = out
		return out
	case *conditionalRemove:
		out := &conditionalRemove{Tag: t.Tag, Filter: t.Filter, Return: true}
		out.self = out
		return out
	case *versionedPut:
		out := &versionedPut{Tag: t.Tag, Value: t.Value, Insert: t.Insert, Return: true}
		out.self = out
		return out
	default:
		panic("gridcache/processors: ReturnCurrent applies only to conditional put, conditional remove and versioned put processors")
	}
}

// ReturnNew derives a copy of a Multiply or Increment processor whose
// invocation result is the post-operation value instead of the previous one.
// It panics for any other processor kind.
func ReturnNew(p Processor) Processor {
	switch t := p.(type) {
	case *numberMultiplier:
		out := &numberMultiplier{Tag: t.Tag, Manipulator: t.Manipulator, Multiplier: t.Multiplier, PostMultiplication: false}
		out.self = out
		return out
	case *numberIncrementor:
		out := &numberIncrementor{Tag: t.Tag, Manipulator: t.Manipulator, Increment: t.Increment, PostIncrement: false}
		out.self = out
		return out
	default:
		panic("gridcache/processors: ReturnNew applies only to multiply and increment processors")
	}
}

// InsertIfAbsent derives a copy of a VersionedPut processor that inserts the
// value when no prior mapping exists (instead of skipping the key). It panics
// for any other processor kind.
func InsertIfAbsent(p Processor) Processor {
	switch t := p.(type) {
	case *versionedPut:
		out := &versionedPut{Tag: t.Tag, Value: t.Value, Insert: true, Return: t.Return}
		out.self = out
		return out
	default:
		panic("gridcache/processors: InsertIfAbsent applies only to versioned put processors")
	}
}
