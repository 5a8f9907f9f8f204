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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/vcf"
)

const testVcf = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	105	.	A	G	.	.	.
1	108	rs11	TAC	T	.	.	.
1	120	.	C	<DEL>	.	.	.
2	50	.	G	GTT,GA	.	.	.
`

func TestVcfExtractor(t *testing.T) {
	e := NewVcfExtractor(vcf.NewReader(strings.NewReader(testVcf)), 100)
	assert.False(t, e.RequiresReads())

	candidates := e.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 115})
	assert.Equal(t, []genome.Variant{
		{Region: genome.Region{Contig: "1", Start: 104, End: 105}, Ref: "A", Alt: "G"},
		{Region: genome.Region{Contig: "1", Start: 108, End: 110}, Ref: "AC", Alt: ""},
	}, candidates)

	candidates = e.GenerateCandidates(genome.Region{Contig: "2", Start: 0, End: 100})
	assert.Equal(t, []genome.Variant{
		{Region: genome.Region{Contig: "2", Start: 50, End: 50}, Ref: "", Alt: "A"},
		{Region: genome.Region{Contig: "2", Start: 50, End: 50}, Ref: "", Alt: "TT"},
	}, candidates)

	assert.Empty(t, e.GenerateCandidates(genome.Region{Contig: "1", Start: 0, End: 50}))
}

func TestVcfExtractorSizeBound(t *testing.T) {
	e := NewVcfExtractor(vcf.NewReader(strings.NewReader(testVcf)), 1)
	candidates := e.GenerateCandidates(genome.Region{Contig: "2", Start: 0, End: 100})
	assert.Equal(t, []genome.Variant{
		{Region: genome.Region{Contig: "2", Start: 50, End: 50}, Ref: "", Alt: "A"},
	}, candidates)
}

func TestDownloader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("contig"))
		fmt.Fprintln(w, "1\t104\tA\tG")
		fmt.Fprintln(w, "1\t107\t.\tTT")
		fmt.Fprintln(w, "1\t300\tC\tA")
	}))
	defer server.Close()
	d := NewDownloader(server.URL, server.Client(), 100)
	assert.False(t, d.RequiresReads())
	candidates := d.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Equal(t, []genome.Variant{
		{Region: genome.Region{Contig: "1", Start: 104, End: 105}, Ref: "A", Alt: "G"},
		{Region: genome.Region{Contig: "1", Start: 107, End: 107}, Ref: "", Alt: "TT"},
	}, candidates)
}

func TestDownloaderRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls++; calls == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "1\t104\tA\tG")
	}))
	defer server.Close()
	d := NewDownloader(server.URL, server.Client(), 100)
	candidates := d.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	assert.Len(t, candidates, 1)
	assert.Equal(t, 2, calls)
}

func TestMulti(t *testing.T) {
	reassembler := NewReassembler(testReference(), defaultOptions(4))
	extractor := NewVcfExtractor(vcf.NewReader(strings.NewReader(testVcf)), 100)
	m := NewMulti(reassembler, extractor)
	assert.True(t, m.RequiresReads())
	m.AddReads(snvReads(6))
	candidates := m.GenerateCandidates(genome.Region{Contig: "1", Start: 100, End: 110})
	// the re-assembled SNV coincides with the first VCF record
	assert.Equal(t, []genome.Variant{
		{Region: genome.Region{Contig: "1", Start: 104, End: 105}, Ref: "A", Alt: "G"},
		{Region: genome.Region{Contig: "1", Start: 108, End: 110}, Ref: "AC", Alt: ""},
	}, candidates)
}
