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

package fasta

import (
	"log"
	"sync"

	"github.com/justloggingin/octopus/genome"
)

// A Reference implements genome.Reference over in-memory or
// memory-mapped contig data. Access is serialized by an internal
// mutex, so a single Reference can be shared between goroutines that
// each own their own callers.
type Reference struct {
	mutex sync.Mutex
	fasta map[string][]byte
}

// NewReference creates a Reference over the given contig data, for
// example the result of ParseFasta.
func NewReference(fasta map[string][]byte) *Reference {
	return &Reference{fasta: fasta}
}

// ContigLength returns the length of the named contig.
func (ref *Reference) ContigLength(contig string) int32 {
	ref.mutex.Lock()
	defer ref.mutex.Unlock()
	seq, ok := ref.fasta[contig]
	if !ok {
		log.Panicf("unknown contig %v", contig)
	}
	return int32(len(seq))
}

// Sequence returns the upper-cased, N-normalized bases for the given
// region. The region must lie within the contig.
func (ref *Reference) Sequence(region genome.Region) string {
	ref.mutex.Lock()
	defer ref.mutex.Unlock()
	seq, ok := ref.fasta[region.Contig]
	if !ok {
		log.Panicf("unknown contig %v", region.Contig)
	}
	contig := genome.Region{Contig: region.Contig, Start: 0, End: int32(len(seq))}
	if region.Start > region.End || !contig.Contains(region) {
		log.Panicf("region %v outside contig bounds [0, %v)", region, len(seq))
	}
	result := make([]byte, region.Size())
	copy(result, seq[region.Start:region.End])
	for i := range result {
		result[i] = ToUpperAndN(result[i])
	}
	return string(result)
}
