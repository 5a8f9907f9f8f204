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

// A Haplotype is one contiguous reference-spanning candidate sequence
// of bases over a region.
type Haplotype struct {
	Region Region
	Bases  string
}

// A Genotype is a fixed-size multiset of haplotypes; its size is the
// ploidy of the sample. Haplotypes are compared by identity: the
// caller is expected to share haplotype values, as the likelihood
// cache does.
type Genotype struct {
	haplotypes []*Haplotype
}

// NewGenotype creates a genotype from the given haplotypes. The
// genotype keeps the order it was given, but all operations treat it
// as an unordered multiset.
func NewGenotype(haplotypes ...*Haplotype) Genotype {
	if len(haplotypes) == 0 {
		log.Panic("empty genotype")
	}
	return Genotype{haplotypes: haplotypes}
}

// Ploidy returns the number of haplotype copies in the genotype.
func (g Genotype) Ploidy() int {
	return len(g.haplotypes)
}

// Haplotype returns the haplotype at the given index.
func (g Genotype) Haplotype(index int) *Haplotype {
	return g.haplotypes[index]
}

// Count returns the multiplicity of h in the genotype.
func (g Genotype) Count(h *Haplotype) int {
	count := 0
	for _, gh := range g.haplotypes {
		if gh == h {
			count++
		}
	}
	return count
}

// CopyUnique returns the distinct haplotypes in first-appearance order.
func (g Genotype) CopyUnique() []*Haplotype {
	result := make([]*Haplotype, 0, len(g.haplotypes))
outer:
	for _, h := range g.haplotypes {
		for _, u := range result {
			if u == h {
				continue outer
			}
		}
		result = append(result, h)
	}
	return result
}

// Zygosity returns the number of distinct haplotypes in the genotype.
func (g Genotype) Zygosity() int {
	return len(g.CopyUnique())
}

// IsHomozygous reports whether all haplotype copies are the same.
func (g Genotype) IsHomozygous() bool {
	first := g.haplotypes[0]
	for _, h := range g.haplotypes[1:] {
		if h != first {
			return false
		}
	}
	return true
}
