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

// Package intervals implements operations on intervals of reference
// positions, such as the stretches covered by aligned reads.
package intervals

import (
	"sort"

	"github.com/exascience/pargo/parallel"
)

// Interval is a generic struct with a start and an end position.
type Interval struct {
	Start, End int32
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

// Extend makes interval1 larger if it overlaps with interval2,
// by storing max(interval1.End, interval2.End) in interval1.End;
// otherwise, interval1 remains unchanged.
// Returns true if the two intervals overlap, false otherwise.
// interval2.Start >= interval1.Start must be true before
// calling Extend.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals into larger intervals.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten merges overlapping intervals into larger intervals,
// using a parallel algorithm.
// intervals must be sorted by Start before calling ParallelFlatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Overlap determines whether the given start/end range overlaps
// with any of the given intervals.
// intervals must be Flattened and sorted by Start.
func Overlap(intervals []Interval, start, end int32) bool {
	for left, right := 0, len(intervals)-1; left <= right; {
		mid := (left + right) / 2
		intervalStart := intervals[mid].Start
		intervalEnd := intervals[mid].End
		if intervalStart > end-1 {
			right = mid - 1
		} else if intervalEnd <= start-1 {
			left = mid + 1
		} else {
			return true
		}
	}
	return false
}

// Span returns the smallest interval covering all given intervals.
// intervals must be sorted by Start and non-empty.
func Span(intervals []Interval) Interval {
	result := intervals[0]
	for _, interval := range intervals[1:] {
		if interval.End > result.End {
			result.End = interval.End
		}
	}
	return result
}
