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

// Package model implements genotype likelihood models over cached
// per-haplotype read likelihoods.
package model

import (
	"log"

	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/utils"
)

// A LikelihoodCache stores, per sample and haplotype, the vector of
// per-read log-likelihoods ln P(read | haplotype). All vectors of a
// sample have the same length, one entry per read of that sample, and
// index-correspond by position. The first insertion for a sample fixes
// that length.
type LikelihoodCache struct {
	values map[utils.Symbol]map[*genome.Haplotype][]float64
	depths map[utils.Symbol]int
}

// NewLikelihoodCache creates an empty cache.
func NewLikelihoodCache() *LikelihoodCache {
	return &LikelihoodCache{
		values: make(map[utils.Symbol]map[*genome.Haplotype][]float64),
		depths: make(map[utils.Symbol]int),
	}
}

// Insert stores the log-likelihood vector for the given sample and
// haplotype. It panics when the vector length disagrees with earlier
// insertions for the sample.
func (c *LikelihoodCache) Insert(sample utils.Symbol, haplotype *genome.Haplotype, logLikelihoods []float64) {
	haplotypes, ok := c.values[sample]
	if !ok {
		haplotypes = make(map[*genome.Haplotype][]float64)
		c.values[sample] = haplotypes
		c.depths[sample] = len(logLikelihoods)
	} else if len(logLikelihoods) != c.depths[sample] {
		log.Panicf("likelihood vector of length %v for sample %v with %v reads",
			len(logLikelihoods), *sample, c.depths[sample])
	}
	haplotypes[haplotype] = logLikelihoods
}

// At returns the log-likelihood vector for the given sample and
// haplotype. It panics when the pair was never inserted.
func (c *LikelihoodCache) At(sample utils.Symbol, haplotype *genome.Haplotype) []float64 {
	haplotypes, ok := c.values[sample]
	if !ok {
		log.Panicf("no likelihoods for sample %v", *sample)
	}
	logLikelihoods, ok := haplotypes[haplotype]
	if !ok {
		log.Panicf("no likelihoods for sample %v and haplotype at %v", *sample, haplotype.Region)
	}
	return logLikelihoods
}

// Depth returns the number of reads of the given sample.
func (c *LikelihoodCache) Depth(sample utils.Symbol) int {
	depth, ok := c.depths[sample]
	if !ok {
		log.Panicf("no likelihoods for sample %v", *sample)
	}
	return depth
}
