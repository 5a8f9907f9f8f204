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

import "sort"

// A Variant is a candidate sequence edit against the reference: the
// replaced reference bases and the alternative bases at a region. A
// normalized variant has no common leading or trailing bases between
// Ref and Alt; a pure insertion has an empty Ref and a zero-size
// region, a pure deletion an empty Alt.
type Variant struct {
	Region   Region
	Ref, Alt string
}

// IsSNV reports whether the variant substitutes a single base.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsInsertion reports whether the variant inserts bases without
// consuming reference.
func (v *Variant) IsInsertion() bool {
	return len(v.Ref) == 0 && len(v.Alt) > 0
}

// IsDeletion reports whether the variant removes reference bases.
func (v *Variant) IsDeletion() bool {
	return len(v.Ref) > 0 && len(v.Alt) == 0
}

// VariantLess orders variants by (contig, start, end, ref, alt).
func VariantLess(a, b *Variant) bool {
	if a.Region.Contig != b.Region.Contig {
		return a.Region.Contig < b.Region.Contig
	}
	if a.Region.Start != b.Region.Start {
		return a.Region.Start < b.Region.Start
	}
	if a.Region.End != b.Region.End {
		return a.Region.End < b.Region.End
	}
	if a.Ref != b.Ref {
		return a.Ref < b.Ref
	}
	return a.Alt < b.Alt
}

// SortVariants sorts variants by (contig, start, end, ref, alt).
func SortVariants(variants []Variant) {
	sort.Slice(variants, func(i, j int) bool {
		return VariantLess(&variants[i], &variants[j])
	})
}

// DedupVariants removes adjacent duplicates from a sorted slice.
func DedupVariants(variants []Variant) []Variant {
	i := 0
	for j := 1; j < len(variants); j++ {
		if variants[j] != variants[i] {
			i++
			variants[i] = variants[j]
		}
	}
	if len(variants) == 0 {
		return variants
	}
	return variants[:i+1]
}
