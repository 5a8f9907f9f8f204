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
	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/intervals"
	"github.com/justloggingin/octopus/vcf"
)

// A VcfExtractor generates candidates from the records of an existing
// VCF file. It does not consume reads. Besides the variants it keeps,
// per contig, the flattened intervals they cover, so that queries for
// empty stretches return without scanning.
type VcfExtractor struct {
	variants       []genome.Variant
	covered        map[string][]intervals.Interval
	maxVariantSize int32
}

func isSymbolicAllele(allele string) bool {
	if len(allele) == 0 {
		return true
	}
	if allele[0] == '<' || allele[0] == '.' || allele[len(allele)-1] == '.' {
		return true
	}
	for i := 0; i < len(allele); i++ {
		if c := allele[i]; c == '[' || c == ']' || c == '*' {
			return true
		}
	}
	return false
}

// normalizeRecord converts one VCF allele pair to a normalized
// variant: common prefix and suffix bases are trimmed, and the region
// shifted accordingly.
func normalizeRecord(chrom string, pos int32, ref, alt string) genome.Variant {
	start := pos - 1
	prefix := 0
	for prefix < len(ref) && prefix < len(alt) && ref[prefix] == alt[prefix] {
		prefix++
	}
	start += int32(prefix)
	ref = ref[prefix:]
	alt = alt[prefix:]
	suffix := 0
	for suffix < len(ref) && suffix < len(alt) && ref[len(ref)-1-suffix] == alt[len(alt)-1-suffix] {
		suffix++
	}
	ref = ref[:len(ref)-suffix]
	alt = alt[:len(alt)-suffix]
	return genome.Variant{
		Region: genome.Region{Contig: chrom, Start: start, End: start + int32(len(ref))},
		Ref:    ref,
		Alt:    alt,
	}
}

// NewVcfExtractor reads all records from the given reader and keeps
// the normalized variants within the size bound. Symbolic alleles are
// skipped.
func NewVcfExtractor(reader *vcf.Reader, maxVariantSize int32) *VcfExtractor {
	e := &VcfExtractor{maxVariantSize: maxVariantSize}
	for {
		record, ok := reader.Read()
		if !ok {
			break
		}
		for _, alt := range record.Alt {
			if isSymbolicAllele(alt) {
				continue
			}
			v := normalizeRecord(record.Chrom, record.Pos, record.Ref, alt)
			if int32(len(v.Ref)) > maxVariantSize || int32(len(v.Alt)) > maxVariantSize {
				continue
			}
			if len(v.Ref) == 0 && len(v.Alt) == 0 {
				continue
			}
			e.variants = append(e.variants, v)
		}
	}
	genome.SortVariants(e.variants)
	e.variants = genome.DedupVariants(e.variants)
	// the covered intervals are padded by one base on both sides, so
	// zero-size insertion sites and boundary touches never fail the
	// coarse check
	e.covered = make(map[string][]intervals.Interval)
	for _, v := range e.variants {
		e.covered[v.Region.Contig] = append(e.covered[v.Region.Contig],
			intervals.Interval{Start: v.Region.Start - 1, End: v.Region.End + 1})
	}
	for contig, ivs := range e.covered {
		intervals.SortByStart(ivs)
		e.covered[contig] = intervals.Flatten(ivs)
	}
	return e
}

// RequiresReads always reports false for a VCF extractor.
func (e *VcfExtractor) RequiresReads() bool {
	return false
}

// AddRead is a no-op.
func (e *VcfExtractor) AddRead(read *genome.AlignedRead) {}

// AddReads is a no-op.
func (e *VcfExtractor) AddReads(reads []*genome.AlignedRead) {}

// Reserve is a no-op.
func (e *VcfExtractor) Reserve(n int) {}

// GenerateCandidates returns the extracted variants overlapping the
// given region.
func (e *VcfExtractor) GenerateCandidates(region genome.Region) []genome.Variant {
	if !intervals.Overlap(e.covered[region.Contig], region.Start, region.End) {
		return nil
	}
	var result []genome.Variant
	for _, v := range e.variants {
		if v.Region.Overlaps(region) {
			result = append(result, v)
		}
	}
	return result
}

// Clear is a no-op; the extracted variants are immutable.
func (e *VcfExtractor) Clear() {}
