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

package model

import (
	"log"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/floats"

	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/utils"
)

// A FixedPloidyModel computes ln P(reads | genotype) for genotypes of
// a fixed ploidy, under a uniform mixture of the genotype's
// haplotypes:
//
//	ln P(reads | g) = sum over reads r of
//	    (logsumexp over haplotypes h in g of ln P(read r | h)) - ln ploidy
//
// Per-haplotype read likelihoods come from a LikelihoodCache. The
// haploid, diploid, and triploid cases have specialized
// implementations; all specializations compute the same value as the
// general form.
type FixedPloidyModel struct {
	ploidy int
	cache  *LikelihoodCache
}

// NewFixedPloidyModel creates a model for the given ploidy. A ploidy
// below 1 panics.
func NewFixedPloidyModel(ploidy int, cache *LikelihoodCache) *FixedPloidyModel {
	if ploidy < 1 {
		log.Panicf("invalid ploidy %v", ploidy)
	}
	return &FixedPloidyModel{ploidy: ploidy, cache: cache}
}

// Ploidy returns the model's ploidy.
func (m *FixedPloidyModel) Ploidy() int {
	return m.ploidy
}

// LogLikelihood computes ln P(reads | genotype) for one sample. The
// genotype's ploidy must match the model's.
func (m *FixedPloidyModel) LogLikelihood(sample utils.Symbol, genotype genome.Genotype) float64 {
	if genotype.Ploidy() != m.ploidy {
		log.Panicf("genotype of ploidy %v passed to model of ploidy %v", genotype.Ploidy(), m.ploidy)
	}
	switch m.ploidy {
	case 1:
		return m.logLikelihoodHaploid(sample, genotype)
	case 2:
		return m.logLikelihoodDiploid(sample, genotype)
	case 3:
		return m.logLikelihoodTriploid(sample, genotype)
	default:
		return m.logLikelihoodPolyploid(sample, genotype)
	}
}

// LogLikelihoods evaluates a batch of genotypes for one sample. The
// cache is only read, so genotypes are evaluated in parallel.
func (m *FixedPloidyModel) LogLikelihoods(sample utils.Symbol, genotypes []genome.Genotype) []float64 {
	result := make([]float64, len(genotypes))
	parallel.Range(0, len(genotypes), 0, func(low, high int) {
		for i := low; i < high; i++ {
			result[i] = m.LogLikelihood(sample, genotypes[i])
		}
	})
	return result
}

func (m *FixedPloidyModel) logLikelihoodHaploid(sample utils.Symbol, genotype genome.Genotype) float64 {
	return floats.Sum(m.cache.At(sample, genotype.Haplotype(0)))
}

func (m *FixedPloidyModel) logLikelihoodDiploid(sample utils.Symbol, genotype genome.Genotype) float64 {
	logLikelihoods1 := m.cache.At(sample, genotype.Haplotype(0))
	if genotype.IsHomozygous() {
		return floats.Sum(logLikelihoods1)
	}
	logLikelihoods2 := m.cache.At(sample, genotype.Haplotype(1))
	var gl float64
	for r, a := range logLikelihoods1 {
		gl += logSumExp2(a, logLikelihoods2[r])
	}
	return gl - float64(len(logLikelihoods1))*lnTable[2]
}

func (m *FixedPloidyModel) logLikelihoodTriploid(sample utils.Symbol, genotype genome.Genotype) float64 {
	logLikelihoods1 := m.cache.At(sample, genotype.Haplotype(0))
	if genotype.IsHomozygous() {
		return floats.Sum(logLikelihoods1)
	}
	if genotype.Zygosity() == 3 {
		logLikelihoods2 := m.cache.At(sample, genotype.Haplotype(1))
		logLikelihoods3 := m.cache.At(sample, genotype.Haplotype(2))
		var gl float64
		for r, a := range logLikelihoods1 {
			gl += logSumExp3(a, logLikelihoods2[r], logLikelihoods3[r])
		}
		return gl - float64(len(logLikelihoods1))*lnTable[3]
	}
	// one haplotype twice, the other once; ln 2 weighs the duplicate
	unique := genotype.CopyUnique()
	duplicate, singleton := unique[0], unique[1]
	if genotype.Count(duplicate) == 1 {
		duplicate, singleton = singleton, duplicate
	}
	duplicateLikelihoods := m.cache.At(sample, duplicate)
	singletonLikelihoods := m.cache.At(sample, singleton)
	var gl float64
	for r, a := range duplicateLikelihoods {
		gl += logSumExp2(lnTable[2]+a, singletonLikelihoods[r])
	}
	return gl - float64(len(duplicateLikelihoods))*lnTable[3]
}

func (m *FixedPloidyModel) logLikelihoodPolyploid(sample utils.Symbol, genotype genome.Genotype) float64 {
	zygosity := genotype.Zygosity()
	logLikelihoods1 := m.cache.At(sample, genotype.Haplotype(0))
	if zygosity == 1 {
		return floats.Sum(logLikelihoods1)
	}
	lnPloidy := lnInt(m.ploidy)
	if zygosity == 2 {
		unique := genotype.CopyUnique()
		count1 := genotype.Count(unique[0])
		lnCount1 := lnInt(count1)
		lnCount2 := lnInt(m.ploidy - count1)
		likelihoods1 := m.cache.At(sample, unique[0])
		likelihoods2 := m.cache.At(sample, unique[1])
		var gl float64
		for r, a := range likelihoods1 {
			gl += logSumExp2(lnCount1+a, lnCount2+likelihoods2[r])
		}
		return gl - float64(len(likelihoods1))*lnPloidy
	}
	logLikelihoods := make([][]float64, m.ploidy)
	for i := 0; i < m.ploidy; i++ {
		logLikelihoods[i] = m.cache.At(sample, genotype.Haplotype(i))
	}
	tmp := make([]float64, m.ploidy)
	var gl float64
	for r := 0; r < len(logLikelihoods1); r++ {
		for i, likelihoods := range logLikelihoods {
			tmp[i] = likelihoods[r]
		}
		gl += floats.LogSumExp(tmp) - lnPloidy
	}
	return gl
}
