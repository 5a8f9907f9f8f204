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

// Package vargen implements candidate variant generators: sources of
// candidate variants for a genomic region, fed by aligned reads, an
// existing variant file, or a variant database.
package vargen

import (
	"github.com/justloggingin/octopus/genome"
)

// A Generator produces candidate variants for genomic regions. Some
// generators consume aligned reads; others derive candidates from
// external sources and ignore them.
type Generator interface {
	// RequiresReads reports whether the generator needs aligned reads
	// to produce candidates.
	RequiresReads() bool
	// AddRead feeds one aligned read to the generator.
	AddRead(read *genome.AlignedRead)
	// AddReads feeds a batch of aligned reads to the generator. Its
	// effect is the same as calling AddRead for each read.
	AddReads(reads []*genome.AlignedRead)
	// Reserve hints the expected number of reads.
	Reserve(n int)
	// GenerateCandidates returns the candidate variants overlapping
	// the given region, sorted and deduplicated.
	GenerateCandidates(region genome.Region) []genome.Variant
	// Clear drops all accumulated state.
	Clear()
}

// Multi composes several generators into one: reads are fed to every
// generator that requires them, and candidates are the merged,
// deduplicated union.
type Multi struct {
	generators []Generator
}

// NewMulti creates a composite generator.
func NewMulti(generators ...Generator) *Multi {
	return &Multi{generators: generators}
}

// RequiresReads reports whether any composed generator requires reads.
func (m *Multi) RequiresReads() bool {
	for _, g := range m.generators {
		if g.RequiresReads() {
			return true
		}
	}
	return false
}

// AddRead feeds the read to every generator that requires reads.
func (m *Multi) AddRead(read *genome.AlignedRead) {
	for _, g := range m.generators {
		if g.RequiresReads() {
			g.AddRead(read)
		}
	}
}

// AddReads feeds the reads to every generator that requires reads.
func (m *Multi) AddReads(reads []*genome.AlignedRead) {
	for _, g := range m.generators {
		if g.RequiresReads() {
			g.AddReads(reads)
		}
	}
}

// Reserve forwards the hint to every composed generator.
func (m *Multi) Reserve(n int) {
	for _, g := range m.generators {
		g.Reserve(n)
	}
}

// GenerateCandidates merges the candidates of all composed generators.
func (m *Multi) GenerateCandidates(region genome.Region) []genome.Variant {
	var result []genome.Variant
	for _, g := range m.generators {
		result = append(result, g.GenerateCandidates(region)...)
	}
	genome.SortVariants(result)
	return genome.DedupVariants(result)
}

// Clear clears every composed generator.
func (m *Multi) Clear() {
	for _, g := range m.generators {
		g.Clear()
	}
}
