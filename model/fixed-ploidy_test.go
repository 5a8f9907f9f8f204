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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"

	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/utils"
)

var testSample = utils.Intern("NA12878")

func testHaplotype(bases string) *genome.Haplotype {
	return &genome.Haplotype{
		Region: genome.Region{Contig: "1", Start: 100, End: 100 + int32(len(bases))},
		Bases:  bases,
	}
}

// four haplotypes with five reads each
func testCache() (*LikelihoodCache, []*genome.Haplotype) {
	haplotypes := []*genome.Haplotype{
		testHaplotype("ACGTA"),
		testHaplotype("ACGGA"),
		testHaplotype("ACCTA"),
		testHaplotype("AGGTA"),
	}
	cache := NewLikelihoodCache()
	cache.Insert(testSample, haplotypes[0], []float64{-0.1, -2.3, -0.7, -5.1, -1.9})
	cache.Insert(testSample, haplotypes[1], []float64{-1.4, -0.2, -3.6, -0.8, -2.2})
	cache.Insert(testSample, haplotypes[2], []float64{-2.8, -1.1, -0.3, -2.5, -0.6})
	cache.Insert(testSample, haplotypes[3], []float64{-0.9, -3.2, -1.8, -0.4, -4.0})
	return cache, haplotypes
}

// the general mixture form, written out directly
func generalLogLikelihood(cache *LikelihoodCache, sample utils.Symbol, genotype genome.Genotype) float64 {
	ploidy := genotype.Ploidy()
	depth := cache.Depth(sample)
	tmp := make([]float64, ploidy)
	var result float64
	for r := 0; r < depth; r++ {
		for i := 0; i < ploidy; i++ {
			tmp[i] = cache.At(sample, genotype.Haplotype(i))[r]
		}
		result += floats.LogSumExp(tmp) - math.Log(float64(ploidy))
	}
	return result
}

func TestHaploidIdentity(t *testing.T) {
	cache, haplotypes := testCache()
	m := NewFixedPloidyModel(1, cache)
	expected := floats.Sum(cache.At(testSample, haplotypes[0]))
	assert.Equal(t, expected, m.LogLikelihood(testSample, genome.NewGenotype(haplotypes[0])))
}

func TestHomozygousIdentity(t *testing.T) {
	cache, haplotypes := testCache()
	expected := floats.Sum(cache.At(testSample, haplotypes[1]))
	for ploidy := 2; ploidy <= 5; ploidy++ {
		m := NewFixedPloidyModel(ploidy, cache)
		copies := make([]*genome.Haplotype, ploidy)
		for i := range copies {
			copies[i] = haplotypes[1]
		}
		assert.Equal(t, expected, m.LogLikelihood(testSample, genome.NewGenotype(copies...)),
			"ploidy %v", ploidy)
	}
}

func TestDiploidHeterozygous(t *testing.T) {
	h1 := testHaplotype("ACGTA")
	h2 := testHaplotype("ACGGA")
	cache := NewLikelihoodCache()
	cache.Insert(testSample, h1, []float64{-1, -2, -3})
	cache.Insert(testSample, h2, []float64{-2, -1, -4})
	m := NewFixedPloidyModel(2, cache)
	got := m.LogLikelihood(testSample, genome.NewGenotype(h1, h2))
	expected := logSumExp2(-1, -2) + logSumExp2(-2, -1) + logSumExp2(-3, -4) - 3*math.Log(2)
	assert.InDelta(t, expected, got, 1e-12)
	assert.InDelta(t, -6.1396564, got, 1e-6)
}

func TestSpecializedMatchesGeneral(t *testing.T) {
	cache, h := testCache()
	genotypes := map[string][]*genome.Haplotype{
		"haploid":              {h[0]},
		"diploid hom":          {h[2], h[2]},
		"diploid het":          {h[0], h[1]},
		"triploid hom":         {h[0], h[0], h[0]},
		"triploid dup first":   {h[0], h[0], h[1]},
		"triploid dup last":    {h[0], h[1], h[1]},
		"triploid z3":          {h[0], h[1], h[2]},
		"tetraploid hom":       {h[3], h[3], h[3], h[3]},
		"tetraploid 3+1":       {h[0], h[0], h[0], h[1]},
		"tetraploid 2+2":       {h[0], h[0], h[1], h[1]},
		"tetraploid 1+3":       {h[0], h[1], h[1], h[1]},
		"tetraploid z3":        {h[0], h[0], h[1], h[2]},
		"tetraploid z4":        {h[0], h[1], h[2], h[3]},
		"pentaploid 4+1":       {h[0], h[0], h[0], h[0], h[1]},
		"pentaploid 2+3":       {h[0], h[0], h[1], h[1], h[1]},
		"pentaploid z4":        {h[0], h[1], h[2], h[3], h[3]},
		"pentaploid scattered": {h[0], h[1], h[0], h[2], h[1]},
	}
	for name, haplotypes := range genotypes {
		genotype := genome.NewGenotype(haplotypes...)
		m := NewFixedPloidyModel(genotype.Ploidy(), cache)
		specialized := m.LogLikelihood(testSample, genotype)
		general := generalLogLikelihood(cache, testSample, genotype)
		assert.InEpsilon(t, general, specialized, 1e-12, "genotype %v", name)
	}
}

func TestBatchMatchesSingle(t *testing.T) {
	cache, h := testCache()
	m := NewFixedPloidyModel(2, cache)
	genotypes := []genome.Genotype{
		genome.NewGenotype(h[0], h[0]),
		genome.NewGenotype(h[0], h[1]),
		genome.NewGenotype(h[1], h[2]),
		genome.NewGenotype(h[2], h[3]),
	}
	batch := m.LogLikelihoods(testSample, genotypes)
	for i, genotype := range genotypes {
		assert.Equal(t, m.LogLikelihood(testSample, genotype), batch[i])
	}
}

func TestInvalidInputs(t *testing.T) {
	cache, h := testCache()
	assert.Panics(t, func() { NewFixedPloidyModel(0, cache) })
	assert.Panics(t, func() { genome.NewGenotype() })
	m := NewFixedPloidyModel(2, cache)
	assert.Panics(t, func() { m.LogLikelihood(testSample, genome.NewGenotype(h[0], h[1], h[2])) })
	assert.Panics(t, func() {
		cache.Insert(testSample, testHaplotype("AAGTA"), []float64{-1, -2})
	})
	assert.Panics(t, func() {
		cache.At(utils.Intern("unknown-sample"), h[0])
	})
}

func TestLogSumExpStability(t *testing.T) {
	// a naive exp-sum-log underflows here; the max-shift form must not
	a, b := -1000.0, -1001.0
	expected := -1000 + math.Log(1+math.Exp(-1))
	assert.InDelta(t, expected, logSumExp2(a, b), 1e-12)
	assert.InDelta(t, -1000+math.Log(1+2*math.Exp(-1)), logSumExp3(a, b, b), 1e-12)
	assert.True(t, math.IsInf(logSumExp2(math.Inf(-1), math.Inf(-1)), -1))
}
