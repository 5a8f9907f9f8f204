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

import "log"

// An AlignedRead is a mapped sequencing read: bases, per-base phred
// qualities (0..93), and the region the read is aligned to. The read
// I/O layer that produces these is not part of this module.
type AlignedRead struct {
	Region    Region
	Sequence  string
	Qualities []byte
}

// MappedRegion returns the region the read is aligned to.
func (r *AlignedRead) MappedRegion() Region {
	return r.Region
}

var simpleBaseTable = map[byte]bool{'A': true, 'C': true, 'G': true, 'T': true}

// IsSimpleBase reports whether b is one of A, C, G, T.
func IsSimpleBase(b byte) bool {
	return simpleBaseTable[b]
}

// ValidBase reports whether b is one of A, C, G, T, N.
func ValidBase(b byte) bool {
	return b == 'N' || simpleBaseTable[b]
}

// CheckBases panics when bases contains a byte outside A, C, G, T, N.
func CheckBases(bases string) {
	for i := 0; i < len(bases); i++ {
		if !ValidBase(bases[i]) {
			log.Panicf("illegal base %q at index %v", bases[i], i)
		}
	}
}
