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

package genome

import (
	"fmt"
	"log"
)

// A Region is a half-open [Start, End) stretch of a contig in 0-based
// reference coordinates.
type Region struct {
	Contig     string
	Start, End int32
}

func (r Region) String() string {
	return fmt.Sprintf("%v:%v-%v", r.Contig, r.Start, r.End)
}

// Size returns the number of reference positions covered by the region.
func (r Region) Size() int32 {
	return r.End - r.Start
}

// Overlaps reports whether two regions on the same contig share at
// least one reference position. Zero-size regions (pure insertion
// sites) overlap a region when their point lies within or on its
// bounds.
func (r Region) Overlaps(other Region) bool {
	if r.Contig != other.Contig {
		return false
	}
	if r.Size() == 0 {
		return r.Start >= other.Start && r.Start <= other.End
	}
	if other.Size() == 0 {
		return other.Start >= r.Start && other.Start <= r.End
	}
	return r.Start < other.End && other.Start < r.End
}

// Contains reports whether other lies fully within r.
func (r Region) Contains(other Region) bool {
	return r.Contig == other.Contig && r.Start <= other.Start && other.End <= r.End
}

// Expand grows the region by n positions on both sides, clamped at the
// start of the contig. The right end is clamped separately against the
// contig length, see Clamp.
func (r Region) Expand(n int32) Region {
	start := r.Start - n
	if start < 0 {
		start = 0
	}
	return Region{r.Contig, start, r.End + n}
}

// Clamp restricts the region to [0, contigLength).
func (r Region) Clamp(contigLength int32) Region {
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > contigLength {
		end = contigLength
	}
	if start > end {
		start = end
	}
	return Region{r.Contig, start, end}
}

// Encompassing returns the smallest region containing both a and b.
func Encompassing(a, b Region) Region {
	if a.Contig != b.Contig {
		log.Panicf("no encompassing region for %v and %v - different contigs", a, b)
	}
	start := a.Start
	if b.Start < start {
		start = b.Start
	}
	end := a.End
	if b.End > end {
		end = b.End
	}
	return Region{a.Contig, start, end}
}

// A Reference provides synchronous access to reference genome bases.
// Returned sequences may contain 'N'.
type Reference interface {
	// Sequence returns the bases for the given region. The region must
	// lie within the contig.
	Sequence(region Region) string
	// ContigLength returns the length of the named contig.
	ContigLength(contig string) int32
}
