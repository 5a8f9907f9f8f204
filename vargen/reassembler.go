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
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/justloggingin/octopus/assembler"
	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/intervals"
)

const (
	numFallbacks         = 6
	fallbackIntervalSize = 10
)

// ReassemblerOptions are the construction parameters of a Reassembler.
type ReassemblerOptions struct {
	// KmerSizes are the default k-mer sizes to assemble with. An empty
	// list makes the generator a no-op.
	KmerSizes []int32
	// MinBaseQuality is the minimum base quality for a read base to
	// take part in assembly; lower-quality bases are masked to 'N'.
	MinBaseQuality byte
	// MinSupportingReads is the minimum read support for a graph edge
	// to survive pruning.
	MinSupportingReads int32
	// MaxVariantSize bounds the ref and alt allele lengths of emitted
	// candidates.
	MaxVariantSize int32
	// AnchorIndels reports insertions and deletions anchored to the
	// preceding reference base, VCF style, instead of the raw
	// unanchored form.
	AnchorIndels bool
	// Debug enables recording of per-k assembly events.
	Debug bool
	// DebugLog, if non-nil, additionally receives one line per
	// assembly event.
	DebugLog io.Writer
}

// An AssemblyEvent records the outcome of one attempted k-mer size.
type AssemblyEvent struct {
	Phase   string
	K       int32
	Outcome string
}

// Assembly event phases and outcomes.
const (
	PhaseDefault  = "default"
	PhaseFallback = "fallback"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// A Reassembler generates candidate variants by local re-assembly of
// the reads added to it: each read is inserted in a de Bruijn graph
// per configured k-mer size, and candidates are the graph paths that
// diverge from the reference with sufficient read support. When every
// default k-mer size fails to resolve the region, progressively larger
// fallback k-mer sizes are tried.
type Reassembler struct {
	id                string
	reference         genome.Reference
	opts              ReassemblerOptions
	defaultKmerSizes  []int32
	fallbackKmerSizes []int32
	assemblers        []*assembler.Assembler
	dirty             []bool
	sequenceBuffer    []string
	readIntervals     []intervals.Interval
	contig            string
	events            []AssemblyEvent
}

// NewReassembler creates a re-assembly candidate generator against the
// given reference.
func NewReassembler(reference genome.Reference, opts ReassemblerOptions) *Reassembler {
	r := &Reassembler{
		id:        uuid.New().String(),
		reference: reference,
		opts:      opts,
	}
	if len(opts.KmerSizes) == 0 {
		return r
	}
	r.defaultKmerSizes = append(r.defaultKmerSizes, opts.KmerSizes...)
	sort.Slice(r.defaultKmerSizes, func(i, j int) bool {
		return r.defaultKmerSizes[i] < r.defaultKmerSizes[j]
	})
	unique := r.defaultKmerSizes[:1]
	for _, k := range r.defaultKmerSizes[1:] {
		if k != unique[len(unique)-1] {
			unique = append(unique, k)
		}
	}
	r.defaultKmerSizes = unique
	for _, k := range r.defaultKmerSizes {
		r.assemblers = append(r.assemblers, assembler.New(k))
	}
	r.dirty = make([]bool, len(r.assemblers))
	k := r.defaultKmerSizes[len(r.defaultKmerSizes)-1]
	for i := 0; i < numFallbacks; i++ {
		k += fallbackIntervalSize
		r.fallbackKmerSizes = append(r.fallbackKmerSizes, k)
	}
	return r
}

// RequiresReads always reports true for a re-assembly generator.
func (r *Reassembler) RequiresReads() bool {
	return true
}

func allBasesGoodQuality(read *genome.AlignedRead, minQuality byte) bool {
	for _, quality := range read.Qualities {
		if quality < minQuality {
			return false
		}
	}
	return true
}

func maskLowQualityBases(read *genome.AlignedRead, minQuality byte) string {
	masked := []byte(read.Sequence)
	for i, quality := range read.Qualities {
		if quality < minQuality {
			masked[i] = 'N'
		}
	}
	return string(masked)
}

// AddRead inserts the read sequence, with low-quality bases masked to
// 'N', into every default assembler, and buffers it for fallback
// assembly. All reads added between two Clear calls must map to the
// same contig.
func (r *Reassembler) AddRead(read *genome.AlignedRead) {
	if len(read.Sequence) != len(read.Qualities) {
		log.Panicf("read with %v bases but %v qualities", len(read.Sequence), len(read.Qualities))
	}
	region := read.MappedRegion()
	if r.contig == "" {
		r.contig = region.Contig
	} else if r.contig != region.Contig {
		log.Panicf("read on contig %v added to assembly of contig %v", region.Contig, r.contig)
	}
	sequence := read.Sequence
	if !allBasesGoodQuality(read, r.opts.MinBaseQuality) {
		sequence = maskLowQualityBases(read, r.opts.MinBaseQuality)
	}
	for _, a := range r.assemblers {
		if int32(len(sequence)) >= a.KmerSize() {
			a.InsertRead(sequence)
		}
	}
	r.sequenceBuffer = append(r.sequenceBuffer, sequence)
	r.readIntervals = append(r.readIntervals, intervals.Interval{Start: region.Start, End: region.End})
}

// AddReads inserts a batch of reads.
func (r *Reassembler) AddReads(reads []*genome.AlignedRead) {
	for _, read := range reads {
		r.AddRead(read)
	}
}

// Reserve hints the expected number of reads.
func (r *Reassembler) Reserve(n int) {
	if cap(r.sequenceBuffer) < n {
		buffer := make([]string, len(r.sequenceBuffer), n)
		copy(buffer, r.sequenceBuffer)
		r.sequenceBuffer = buffer
	}
}

// RegionAssembled returns the smallest region covering every read
// added so far, and whether any read was added.
func (r *Reassembler) RegionAssembled() (genome.Region, bool) {
	if len(r.readIntervals) == 0 {
		return genome.Region{}, false
	}
	ivs := append([]intervals.Interval(nil), r.readIntervals...)
	intervals.SortByStart(ivs)
	span := intervals.Span(intervals.ParallelFlatten(ivs))
	return genome.Region{Contig: r.contig, Start: span.Start, End: span.End}, true
}

// Events returns the assembly events recorded since the last Clear.
// Events are only recorded when the Debug option is set.
func (r *Reassembler) Events() []AssemblyEvent {
	return r.events
}

func (r *Reassembler) logEvent(phase string, k int32, outcome string) {
	if !r.opts.Debug {
		return
	}
	r.events = append(r.events, AssemblyEvent{Phase: phase, K: k, Outcome: outcome})
	if r.opts.DebugLog != nil {
		fmt.Fprintf(r.opts.DebugLog, "%v phase=%v k=%v outcome=%v\n", r.id, phase, k, outcome)
	}
}

// GenerateCandidates assembles the accumulated reads and returns the
// candidate variants overlapping the requested region. It can be
// called repeatedly; with unchanged accumulated reads it returns equal
// results.
func (r *Reassembler) GenerateCandidates(region genome.Region) []genome.Variant {
	assembled, ok := r.RegionAssembled()
	if !ok {
		return nil
	}
	var result []genome.Variant
	contigLength := r.reference.ContigLength(assembled.Contig)
	numFailed := 0
	for index, a := range r.assemblers {
		expanded := assembled.Expand(a.KmerSize()).Clamp(contigLength)
		referenceSequence := r.reference.Sequence(expanded)
		if strings.ContainsRune(referenceSequence, 'N') {
			r.restoreAssemblers()
			return restrictToRegion(result, region)
		}
		if r.dirty[index] {
			a.Clear()
			r.reinsertBuffer(a)
		}
		a.InsertReference(referenceSequence)
		r.dirty[index] = true
		if r.tryAssembleRegion(a, referenceSequence, expanded, &result) {
			r.logEvent(PhaseDefault, a.KmerSize(), OutcomeSuccess)
		} else {
			r.logEvent(PhaseDefault, a.KmerSize(), OutcomeFailure)
			numFailed++
		}
	}
	if len(r.assemblers) > 0 && numFailed == len(r.assemblers) {
		for _, k := range r.fallbackKmerSizes {
			expanded := assembled.Expand(k).Clamp(contigLength)
			referenceSequence := r.reference.Sequence(expanded)
			if strings.ContainsRune(referenceSequence, 'N') {
				r.restoreAssemblers()
				return restrictToRegion(result, region)
			}
			fallback := assembler.NewWithReference(k, referenceSequence)
			r.reinsertBuffer(fallback)
			if r.tryAssembleRegion(fallback, referenceSequence, expanded, &result) {
				r.logEvent(PhaseFallback, k, OutcomeSuccess)
				break
			}
			r.logEvent(PhaseFallback, k, OutcomeFailure)
		}
	}
	r.restoreAssemblers()
	return restrictToRegion(result, region)
}

func (r *Reassembler) reinsertBuffer(a *assembler.Assembler) {
	for _, sequence := range r.sequenceBuffer {
		if int32(len(sequence)) >= a.KmerSize() {
			a.InsertRead(sequence)
		}
	}
}

// restoreAssemblers rebuilds the default assemblers from the sequence
// buffer, so that repeated GenerateCandidates calls see the same
// state.
func (r *Reassembler) restoreAssemblers() {
	for index, a := range r.assemblers {
		if r.dirty[index] {
			a.Clear()
			r.reinsertBuffer(a)
			r.dirty[index] = false
		}
	}
}

// tryAssembleRegion runs one assembly attempt: trivial cycle removal,
// pruning, variant extraction, normalization, and mapping to genomic
// coordinates. It returns false, leaving out untouched, when pruning
// signals that this k-mer size did not resolve the region.
func (r *Reassembler) tryAssembleRegion(a *assembler.Assembler, referenceSequence string, referenceRegion genome.Region, out *[]genome.Variant) bool {
	a.RemoveTrivialNonReferenceCycles()
	if !a.Prune(r.opts.MinSupportingReads) {
		return false
	}
	variants := a.ExtractVariants()
	a.Clear()
	for i := range variants {
		trimVariant(&variants[i])
	}
	variants = splitMNVs(variants)
	for _, v := range variants {
		// the size bound holds for the alleles as emitted, anchor
		// base included
		mapped := r.mapVariant(v, referenceSequence, referenceRegion)
		if int32(len(mapped.Ref)) > r.opts.MaxVariantSize || int32(len(mapped.Alt)) > r.opts.MaxVariantSize {
			continue
		}
		*out = append(*out, mapped)
	}
	genome.SortVariants(*out)
	*out = genome.DedupVariants(*out)
	return true
}

// trimVariant removes the common prefix and suffix bases of ref and
// alt, shifting the variant by the number of trimmed prefix bases.
func trimVariant(v *assembler.Variant) {
	prefix := 0
	for prefix < len(v.Ref) && prefix < len(v.Alt) && v.Ref[prefix] == v.Alt[prefix] {
		prefix++
	}
	v.BeginPos += int32(prefix)
	v.Ref = v.Ref[prefix:]
	v.Alt = v.Alt[prefix:]
	suffix := 0
	for suffix < len(v.Ref) && suffix < len(v.Alt) && v.Ref[len(v.Ref)-1-suffix] == v.Alt[len(v.Alt)-1-suffix] {
		suffix++
	}
	v.Ref = v.Ref[:len(v.Ref)-suffix]
	v.Alt = v.Alt[:len(v.Alt)-suffix]
}

func isMNV(v *assembler.Variant) bool {
	return len(v.Ref) > 1 && len(v.Ref) == len(v.Alt)
}

// splitMNVs replaces every multi-nucleotide variant by its constituent
// per-position substitutions.
func splitMNVs(variants []assembler.Variant) []assembler.Variant {
	result := variants[:0]
	var snvs []assembler.Variant
	for _, v := range variants {
		if !isMNV(&v) {
			result = append(result, v)
			continue
		}
		for i := 0; i < len(v.Ref); i++ {
			if v.Ref[i] != v.Alt[i] {
				snvs = append(snvs, assembler.Variant{
					BeginPos: v.BeginPos + int32(i),
					Ref:      v.Ref[i : i+1],
					Alt:      v.Alt[i : i+1],
				})
			}
		}
	}
	return append(result, snvs...)
}

// mapVariant maps an assembler variant to genomic coordinates,
// optionally anchoring pure indels to the preceding reference base.
func (r *Reassembler) mapVariant(v assembler.Variant, referenceSequence string, referenceRegion genome.Region) genome.Variant {
	ref, alt := v.Ref, v.Alt
	begin := v.BeginPos
	if r.opts.AnchorIndels && (len(ref) == 0 || len(alt) == 0) && begin > 0 {
		anchor := referenceSequence[begin-1 : begin]
		begin--
		ref = anchor + ref
		alt = anchor + alt
	}
	start := referenceRegion.Start + begin
	return genome.Variant{
		Region: genome.Region{
			Contig: referenceRegion.Contig,
			Start:  start,
			End:    start + int32(len(ref)),
		},
		Ref: ref,
		Alt: alt,
	}
}

func restrictToRegion(variants []genome.Variant, region genome.Region) []genome.Variant {
	result := variants[:0]
	for _, v := range variants {
		if v.Region.Overlaps(region) {
			result = append(result, v)
		}
	}
	return result
}

// Clear drops every inner assembler's graph, the sequence buffer, the
// assembled region, and recorded events.
func (r *Reassembler) Clear() {
	for index, a := range r.assemblers {
		a.Clear()
		r.dirty[index] = false
	}
	r.sequenceBuffer = nil
	r.readIntervals = nil
	r.contig = ""
	r.events = nil
}
