// octopus: a haplotype-based variant calling core.
// Copyright (c) 2026 the octopus authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/justloggingin/octopus/blob/master/LICENSE.txt>.

package intervals

import (
	"math/rand"
	"testing"
)

func intervalsEqual(intervals1, intervals2 []Interval) bool {
	if len(intervals1) != len(intervals2) {
		return false
	}
	for i, interval1 := range intervals1 {
		if interval1 != intervals2[i] {
			return false
		}
	}
	return true
}

func makeLargeIntervalsSlice() (result []Interval) {
	result = make([]Interval, 0x30000)
	result[0].Start = 0
	result[0].End = 3
	for i := 1; i < len(result); i++ {
		if rand.Intn(100) < 20 {
			result[i].Start = result[i-1].End - 1
		} else {
			result[i].Start = result[i-1].End + 1
		}
		result[i].End = result[i].Start + 3
	}
	return result
}

func TestFlatten(t *testing.T) {
	if Flatten(nil) != nil {
		t.Error("empty Flatten failed")
	}
	if !intervalsEqual(Flatten([]Interval{{2, 3}, {3, 4}}), []Interval{{2, 4}}) {
		t.Error("Flatten 1 failed")
	}
	if !intervalsEqual(Flatten([]Interval{{2, 3}, {4, 5}}), []Interval{{2, 3}, {4, 5}}) {
		t.Error("Flatten 2 failed")
	}
	if !intervalsEqual(Flatten([]Interval{{2, 4}, {3, 5}, {4, 6}}), []Interval{{2, 6}}) {
		t.Error("Flatten 3 failed")
	}
	if !intervalsEqual(Flatten([]Interval{{2, 4}, {3, 5}, {4, 6}, {7, 9}}), []Interval{{2, 6}, {7, 9}}) {
		t.Error("Flatten 4 failed")
	}
	if !intervalsEqual(Flatten([]Interval{{2, 3}, {2, 5}, {2, 4}, {2, 3}, {2, 6}, {2, 7}}), []Interval{{2, 7}}) {
		t.Error("Flatten 5 failed")
	}
	intervals := Flatten(makeLargeIntervalsSlice())
	if intervals[0].Start > intervals[0].End {
		t.Error("Flatten 6a failed")
	}
	for i := 1; i < len(intervals); i++ {
		interval := intervals[i]
		if interval.Start > interval.End || interval.Start <= intervals[i-1].End {
			t.Error("Flatten 6b failed")
		}
	}
}

func TestParallelFlatten(t *testing.T) {
	if ParallelFlatten(nil) != nil {
		t.Error("empty ParallelFlatten failed")
	}
	if !intervalsEqual(ParallelFlatten([]Interval{{2, 3}, {3, 4}}), []Interval{{2, 4}}) {
		t.Error("ParallelFlatten 1 failed")
	}
	if !intervalsEqual(ParallelFlatten([]Interval{{2, 4}, {3, 5}, {4, 6}, {7, 9}}), []Interval{{2, 6}, {7, 9}}) {
		t.Error("ParallelFlatten 2 failed")
	}
	intervals := ParallelFlatten(makeLargeIntervalsSlice())
	if intervals[0].Start > intervals[0].End {
		t.Error("ParallelFlatten 3a failed")
	}
	for i := 1; i < len(intervals); i++ {
		interval := intervals[i]
		if interval.Start > interval.End || interval.Start <= intervals[i-1].End {
			t.Error("ParallelFlatten 3b failed")
		}
	}
}

func TestOverlap(t *testing.T) {
	if Overlap(nil, 2, 3) {
		t.Error("empty Overlap failed")
	}
	if Overlap([]Interval{{1, 3}, {7, 8}}, 4, 6) {
		t.Error("Overlap 1 failed")
	}
	if !Overlap([]Interval{{2, 4}, {6, 8}}, 1, 3) {
		t.Error("Overlap 2 failed")
	}
	if !Overlap([]Interval{{2, 4}, {6, 8}}, 3, 7) {
		t.Error("Overlap 3 failed")
	}
	if !Overlap([]Interval{{2, 4}, {6, 8}}, 6, 9) {
		t.Error("Overlap 4 failed")
	}
	if !Overlap([]Interval{{2, 4}, {6, 8}}, 1, 10) {
		t.Error("Overlap 5 failed")
	}
}

func TestSpan(t *testing.T) {
	if Span([]Interval{{2, 4}}) != (Interval{2, 4}) {
		t.Error("Span 1 failed")
	}
	if Span([]Interval{{2, 4}, {3, 9}, {5, 6}}) != (Interval{2, 9}) {
		t.Error("Span 2 failed")
	}
	if Span([]Interval{{2, 4}, {6, 8}}) != (Interval{2, 8}) {
		t.Error("Span 3 failed")
	}
}
