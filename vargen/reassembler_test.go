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

package vargen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justloggingin/octopus/genome"
)

// patternContig builds a contig from 5-base blocks: three base-3
// digits over A/G/T encoding the block index, followed by a C
// separator. Any two equal k-mers (k >= 6) must cover equal blocks at
// equal phase, so all k-mers of the contig are unique.
func patternContig(blocks int) string {
	digits := []byte{'A', 'G', 'T'}
	var b strings.Builder
	for i := 0; i < blocks; i++ {
		b.WriteByte(digits[(i/27)%3])
		b.WriteByte(digits[(i/9)%3])
		b.WriteByte(digits[(i/3)%3])
		b.WriteByte(digits[i%3])
		b.WriteByte('C')
	}
	return b.String()
}

type fakeReference struct {
	contigs map[string]string
}

func (r fakeReference) Sequence(region genome.Region) string {
	return r.contigs[region.Contig][region.Start:region.End]
}

func (r fakeReference) ContigLength(contig string) int32 {
	return int32(len(r.contigs[contig]))
}

// testReference places known sequence islands inside unique pattern
// context:
//
//	contig "1": ACGTACGTAC at [100,110) - SNV and indel scenarios
//	contig "2": pure pattern - novel tandem insertion scenario
//	contig "3": TTGCAAGTCGGATC at [100,114) - MNV scenario
func testReference() fakeReference {
	pattern := patternContig(40)
	return fakeReference{contigs: map[string]string{
		"1": pattern[:100] + "ACGTACGTAC" + pattern[100:190],
		"2": pattern,
		"3": pattern[:100] + "TTGCAAGTCGGATC" + pattern[100:186],
	}}
}

func makeRead(contig string, start int32, sequence string, quality byte) *genome.AlignedRead {
	qualities := make([]byte, len(sequence))
	for i := range qualities {
		qualities[i] = quality
	}
	return &genome.AlignedRead{
		Region:    genome.Region{Contig: contig, Start: start, End: start + int32(len(sequence))},
		Sequence:  sequence,
		Qualities: qualities,
	}
}

func defaultOptions(kmerSizes ...int32) ReassemblerOptions {
	return ReassemblerOptions{
		KmerSizes:          kmerSizes,
		MinBaseQuality:     20,
		MinSupportingReads: 3,
		MaxVariantSize:     100,
		Debug:              true,
	}
}

func snvReads(n int) []*genome.AlignedRead {
	reads := make([]*genome.AlignedRead, n)
	for i := range reads {
		reads[i] = makeRead("1", 100, "ACGTGCGTAC", 30)
	}
	return reads
}

func TestGenerateWithoutReads(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	assert.Empty(t, r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110}))
}

func TestNoopWithoutKmerSizes(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions())
	r.AddReads(snvReads(6))
	assert.Empty(t, r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110}))
	assert.Empty(t, r.Events())
}

// single SNV in a diploid reference context
func TestGenerateSNV(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	r.AddReads(snvReads(6))
	candidates := r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Equal(t, []genome.Variant{{
		Region: genome.Region{Contig: "1", Start: 104, End: 105},
		Ref:    "A",
		Alt:    "G",
	}}, candidates)
}

func TestGenerateInsertion(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(5))
	for i := 0; i < 5; i++ {
		r.AddRead(makeRead("1", 100, "ACGTAAACGTAC", 30))
	}
	candidates := r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Equal(t, []genome.Variant{{
		Region: genome.Region{Contig: "1", Start: 104, End: 104},
		Ref:    "",
		Alt:    "AA",
	}}, candidates)
}

func TestGenerateDeletion(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(5))
	for i := 0; i < 5; i++ {
		r.AddRead(makeRead("1", 100, "ACGTCGTAC", 30))
	}
	candidates := r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Equal(t, []genome.Variant{{
		Region: genome.Region{Contig: "1", Start: 104, End: 105},
		Ref:    "A",
		Alt:    "",
	}}, candidates)
}

func TestAnchoredIndels(t *testing.T) {
	opts := defaultOptions(5)
	opts.AnchorIndels = true
	r := NewReassembler(testReference(), opts)
	for i := 0; i < 5; i++ {
		r.AddRead(makeRead("1", 100, "ACGTAAACGTAC", 30))
	}
	candidates := r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Equal(t, []genome.Variant{{
		Region: genome.Region{Contig: "1", Start: 103, End: 104},
		Ref:    "T",
		Alt:    "TAA",
	}}, candidates)

	r = NewReassembler(testReference(), opts)
	for i := 0; i < 5; i++ {
		r.AddRead(makeRead("1", 100, "ACGTCGTAC", 30))
	}
	candidates = r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Equal(t, []genome.Variant{{
		Region: genome.Region{Contig: "1", Start: 103, End: 105},
		Ref:    "TA",
		Alt:    "T",
	}}, candidates)
}

// a double substitution assembles as an MNV and is split into SNVs
func TestGenerateSplitsMNVs(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	for i := 0; i < 4; i++ {
		r.AddRead(makeRead("3", 100, "TTGCAACACGGATC", 30))
	}
	candidates := r.GenerateCandidates(genome.Region{Contig: "3", Start: 100, End: 114})
	assert.Equal(t, []genome.Variant{
		{Region: genome.Region{Contig: "3", Start: 106, End: 107}, Ref: "G", Alt: "C"},
		{Region: genome.Region{Contig: "3", Start: 107, End: 108}, Ref: "T", Alt: "A"},
	}, candidates)
	for _, v := range candidates {
		assert.False(t, len(v.Ref) == len(v.Alt) && len(v.Ref) > 1, "MNV survived splitting: %v", v)
	}
}

// low support is suppressed and does not trigger fallback assembly
func TestLowSupportSuppressed(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	r.AddReads(snvReads(2))
	candidates := r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Empty(t, candidates)
	assert.Equal(t, []AssemblyEvent{{Phase: PhaseDefault, K: 4, Outcome: OutcomeSuccess}}, r.Events())
}

func TestNoFallbackWhenDefaultSucceeds(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	r.AddReads(snvReads(6))
	r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	for _, event := range r.Events() {
		assert.Equal(t, PhaseDefault, event.Phase)
	}
}

const tandemUnit = "ACGGTCAAGGCT"

// fallback escalation: a novel two-copy tandem insertion collapses
// onto itself at k=10 but resolves at the first fallback size k=20
func TestFallbackEscalation(t *testing.T) {
	reference := testReference()
	contig := reference.contigs["2"]
	readSequence := contig[40:70] + tandemUnit + tandemUnit + contig[70:100]
	r := NewReassembler(reference, defaultOptions(10))
	for i := 0; i < 5; i++ {
		r.AddRead(makeRead("2", 40, readSequence, 30))
	}
	candidates := r.GenerateCandidates(genome.Region{Contig: "2", Start: 40, End: 100})
	assert.Equal(t, []genome.Variant{{
		Region: genome.Region{Contig: "2", Start: 70, End: 70},
		Ref:    "",
		Alt:    tandemUnit + tandemUnit,
	}}, candidates)
	assert.Equal(t, []AssemblyEvent{
		{Phase: PhaseDefault, K: 10, Outcome: OutcomeFailure},
		{Phase: PhaseFallback, K: 20, Outcome: OutcomeSuccess},
	}, r.Events())
}

func TestMaskedBasesDoNotSupportCandidates(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	for i := 0; i < 6; i++ {
		read := makeRead("1", 100, "ACGTGCGTAC", 30)
		read.Qualities[4] = 10 // the SNV base, below MinBaseQuality
		r.AddRead(read)
	}
	assert.Empty(t, r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110}))
}

func TestReferenceWithNStopsAssembly(t *testing.T) {
	reference := testReference()
	contig := reference.contigs["1"]
	reference.contigs["1"] = contig[:97] + "N" + contig[98:]
	r := NewReassembler(reference, defaultOptions(4))
	r.AddReads(snvReads(6))
	assert.Empty(t, r.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110}))
	assert.Empty(t, r.Events())
}

func TestGenerateCandidatesIdempotent(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	r.AddReads(snvReads(6))
	region := genome.Region{Contig: "1", Start: 100, End: 110}
	first := r.GenerateCandidates(region)
	second := r.GenerateCandidates(region)
	assert.Equal(t, first, second)
}

func TestReadOrderIndependence(t *testing.T) {
	reads := append(snvReads(6), makeRead("1", 100, "ACGTACGTAC", 30), makeRead("1", 95, "ATAGCACGTA", 30))
	region := genome.Region{Contig: "1", Start: 100, End: 110}
	generate := func(order []int) []genome.Variant {
		r := NewReassembler(testReference(), defaultOptions(4))
		for _, index := range order {
			r.AddRead(reads[index])
		}
		return r.GenerateCandidates(region)
	}
	forward := generate([]int{0, 1, 2, 3, 4, 5, 6, 7})
	backward := generate([]int{7, 6, 5, 4, 3, 2, 1, 0})
	shuffled := generate([]int{3, 7, 0, 5, 2, 6, 1, 4})
	assert.Equal(t, forward, backward)
	assert.Equal(t, forward, shuffled)
}

// region assembled grows monotonically to the union of read regions
func TestRegionAssembled(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	if _, ok := r.RegionAssembled(); ok {
		t.Fatal("region assembled set before any read")
	}
	r.AddRead(makeRead("1", 100, "ACGTACGTAC", 30))
	region, ok := r.RegionAssembled()
	assert.True(t, ok)
	assert.Equal(t, genome.Region{Contig: "1", Start: 100, End: 110}, region)
	r.AddRead(makeRead("1", 105, "CGTACATATC", 30))
	region, _ = r.RegionAssembled()
	assert.Equal(t, genome.Region{Contig: "1", Start: 100, End: 115}, region)
	r.AddRead(makeRead("1", 90, "ATAACATAGC", 30))
	region, _ = r.RegionAssembled()
	assert.Equal(t, genome.Region{Contig: "1", Start: 90, End: 115}, region)
	r.Clear()
	if _, ok := r.RegionAssembled(); ok {
		t.Fatal("region assembled survived Clear")
	}
}

// returned candidates are normalized, split, and restricted to the
// requested region
func TestCandidateInvariants(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4, 5))
	r.AddReads(snvReads(6))
	for i := 0; i < 5; i++ {
		r.AddRead(makeRead("1", 100, "ACGTAAACGTAC", 30))
	}
	region := genome.Region{Contig: "1", Start: 100, End: 110}
	candidates := r.GenerateCandidates(region)
	assert.NotEmpty(t, candidates)
	for _, v := range candidates {
		assert.True(t, v.Region.Overlaps(region), "candidate outside region: %v", v)
		assert.False(t, len(v.Ref) == len(v.Alt) && len(v.Ref) > 1, "unsplit MNV: %v", v)
		if len(v.Ref) > 0 && len(v.Alt) > 0 {
			assert.NotEqual(t, v.Ref[0], v.Alt[0], "common prefix base: %v", v)
			assert.NotEqual(t, v.Ref[len(v.Ref)-1], v.Alt[len(v.Alt)-1], "common suffix base: %v", v)
		}
		assert.LessOrEqual(t, len(v.Ref), 100)
		assert.LessOrEqual(t, len(v.Alt), 100)
	}
	for i := 1; i < len(candidates); i++ {
		assert.True(t, genome.VariantLess(&candidates[i-1], &candidates[i]), "unsorted output")
	}
}

func TestClearDropsState(t *testing.T) {
	r := NewReassembler(testReference(), defaultOptions(4))
	r.AddReads(snvReads(6))
	region := genome.Region{Contig: "1", Start: 100, End: 110}
	assert.NotEmpty(t, r.GenerateCandidates(region))
	r.Clear()
	assert.Empty(t, r.GenerateCandidates(region))
	assert.Empty(t, r.Events())
}

func TestRequiresReads(t *testing.T) {
	assert.True(t, NewReassembler(testReference(), defaultOptions(4)).RequiresReads())
}
