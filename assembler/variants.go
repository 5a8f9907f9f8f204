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

package assembler

import (
	"math"
	"sort"
	"strings"
)

// A Variant is a sequence edit relative to the reference sub-sequence
// the assembler was given: the replaced reference bases and the
// alternative bases at a 0-based offset. Pure insertions have an empty
// Ref, pure deletions an empty Alt.
type Variant struct {
	BeginPos int32
	Ref, Alt string
}

const (
	// maximum number of divergent graph paths converted to variants
	maxChains = 128
	// maximum divergent paths followed from a single launch edge
	maxChainsPerLaunch = 16
	// maximum anchor interpretations scored per path
	maxAnchorCandidates = 8
)

// A graphChain is a maximal run of vertices off the reference path,
// entered from a reference-path vertex (entry) and/or rejoining one
// (exit). A chain with both anchors is a bubble; a chain missing one
// anchor dangles at a read boundary.
type graphChain struct {
	vertices    []int32
	entry, exit int32 // vertex ids, -1 when absent
	minSupport  int32
	spelled     string
}

// ExtractVariants enumerates the divergent paths of the pruned graph
// and emits each as a variant relative to the reference path between
// its anchors. Paths are processed preferring higher support and,
// among equal support, the lexicographically smallest spelled
// sequence. The result is sorted by (BeginPos, Ref, Alt) and
// deduplicated.
func (a *Assembler) ExtractVariants() []Variant {
	if !a.refInserted {
		return nil
	}
	chains := a.findChains()
	sort.Slice(chains, func(i, j int) bool {
		if chains[i].minSupport != chains[j].minSupport {
			return chains[i].minSupport > chains[j].minSupport
		}
		return chains[i].spelled < chains[j].spelled
	})
	if len(chains) > maxChains {
		chains = chains[:maxChains]
	}
	var result []Variant
	for i := range chains {
		result = append(result, a.chainVariants(&chains[i])...)
	}
	for i := range result {
		leftShiftIndel(&result[i], a.reference)
	}
	keep := result[:0]
	for _, v := range result {
		if len(v.Ref) > 0 || len(v.Alt) > 0 {
			keep = append(keep, v)
		}
	}
	result = keep
	sort.Slice(result, func(i, j int) bool {
		return variantLess(&result[i], &result[j])
	})
	return dedupVariants(result)
}

func variantLess(a, b *Variant) bool {
	if a.BeginPos != b.BeginPos {
		return a.BeginPos < b.BeginPos
	}
	if a.Ref != b.Ref {
		return a.Ref < b.Ref
	}
	return a.Alt < b.Alt
}

func dedupVariants(variants []Variant) []Variant {
	if len(variants) == 0 {
		return variants
	}
	i := 0
	for j := 1; j < len(variants); j++ {
		if variants[j] != variants[i] {
			i++
			variants[i] = variants[j]
		}
	}
	return variants[:i+1]
}

func (a *Assembler) findChains() (chains []graphChain) {
	for id := range a.edges {
		edge := &a.edges[id]
		if edge.removed || edge.isRef {
			continue
		}
		if !a.vertexAlive(edge.from) || !a.vertexAlive(edge.to) {
			continue
		}
		fromRef := a.vertexOnReferencePath(edge.from)
		toRef := a.vertexOnReferencePath(edge.to)
		switch {
		case fromRef && toRef:
			chains = append(chains, graphChain{
				entry:      edge.from,
				exit:       edge.to,
				minSupport: edge.support,
			})
		case fromRef:
			chains = append(chains, a.forwardChains(edge)...)
		case toRef:
			chains = append(chains, a.backwardChains(edge)...)
		}
	}
	return
}

// forwardChains follows simple paths from a launch edge through
// vertices off the reference path, emitting a bubble when a path
// rejoins the reference path and a dangling tail when it runs out of
// edges.
func (a *Assembler) forwardChains(launch *edgeInfo) (chains []graphChain) {
	maxVertices := len(a.reference)
	onPath := make(map[int32]bool)
	var path []int32
	var recur func(vertex, minSupport int32)
	recur = func(vertex, minSupport int32) {
		if len(chains) >= maxChainsPerLaunch || len(path) > maxVertices {
			return
		}
		path = append(path, vertex)
		onPath[vertex] = true
		extended := false
		for _, edgeId := range a.outgoing[vertex] {
			edge := &a.edges[edgeId]
			if edge.removed || !a.vertexAlive(edge.to) {
				continue
			}
			support := minInt32(minSupport, edge.support)
			if a.vertexOnReferencePath(edge.to) {
				chains = append(chains, graphChain{
					vertices:   append([]int32(nil), path...),
					entry:      launch.from,
					exit:       edge.to,
					minSupport: support,
					spelled:    a.spellInterior(path),
				})
				extended = true
			} else if !onPath[edge.to] {
				recur(edge.to, support)
				extended = true
			}
		}
		if !extended {
			chains = append(chains, graphChain{
				vertices:   append([]int32(nil), path...),
				entry:      launch.from,
				exit:       -1,
				minSupport: minSupport,
				spelled:    a.spellInterior(path),
			})
		}
		delete(onPath, vertex)
		path = path[:len(path)-1]
	}
	recur(launch.to, launch.support)
	return
}

// backwardChains follows simple paths backwards from a rejoin edge,
// emitting dangling heads: paths that touch the reference path only
// through the rejoin edge. Paths with an incoming edge from the
// reference path are bubbles and are found by forwardChains instead.
func (a *Assembler) backwardChains(rejoin *edgeInfo) (chains []graphChain) {
	maxVertices := len(a.reference)
	onPath := make(map[int32]bool)
	var path []int32
	var recur func(vertex, minSupport int32)
	recur = func(vertex, minSupport int32) {
		if len(chains) >= maxChainsPerLaunch || len(path) > maxVertices {
			return
		}
		path = append(path, vertex)
		onPath[vertex] = true
		extended := false
		for _, edgeId := range a.incoming[vertex] {
			edge := &a.edges[edgeId]
			if edge.removed || !a.vertexAlive(edge.from) {
				continue
			}
			if a.vertexOnReferencePath(edge.from) {
				// reached by forwardChains through this edge
				extended = true
				continue
			}
			if !onPath[edge.from] {
				recur(edge.from, minInt32(minSupport, edge.support))
				extended = true
			}
		}
		if !extended {
			vertices := make([]int32, len(path))
			for i, v := range path {
				vertices[len(path)-1-i] = v
			}
			chains = append(chains, graphChain{
				vertices:   vertices,
				entry:      -1,
				exit:       rejoin.to,
				minSupport: minSupport,
				spelled:    a.spellFull(vertices),
			})
		}
		delete(onPath, vertex)
		path = path[:len(path)-1]
	}
	recur(rejoin.from, rejoin.support)
	return
}

// spellInterior concatenates the trailing base of each vertex: the
// bases a walk through the chain appends after its entry anchor.
func (a *Assembler) spellInterior(vertices []int32) string {
	var result strings.Builder
	for _, vertex := range vertices {
		bases := a.vertices[vertex].bases
		result.WriteByte(bases[len(bases)-1])
	}
	return result.String()
}

// spellFull spells a chain with no entry anchor: the full first k-mer
// followed by the trailing base of each further vertex.
func (a *Assembler) spellFull(vertices []int32) string {
	var result strings.Builder
	result.WriteString(a.vertices[vertices[0]].bases)
	for _, vertex := range vertices[1:] {
		bases := a.vertices[vertex].bases
		result.WriteByte(bases[len(bases)-1])
	}
	return result.String()
}

func (a *Assembler) chainVariants(c *graphChain) []Variant {
	switch {
	case c.entry >= 0 && c.exit >= 0:
		return a.bubbleVariants(c)
	case c.entry >= 0:
		return a.danglingTailVariants(c)
	default:
		return a.danglingHeadVariants(c)
	}
}

type anchorPair struct {
	i, j int32
}

// bubbleVariants resolves the anchor positions of a bubble. Reference
// k-mers may repeat, so entry and exit vertices can occur at several
// reference offsets; every plausible (launch, rejoin) interpretation
// implies a haplotype, and the interpretation whose haplotype aligns
// best against the reference wins.
func (a *Assembler) bubbleVariants(c *graphChain) []Variant {
	mid := c.spelled
	k := a.kmerSize
	ref := a.reference
	var pairs []anchorPair
	for _, i := range a.refIndex[c.entry] {
		for _, j := range a.refIndex[c.exit] {
			if j > i {
				pairs = append(pairs, anchorPair{i, j})
			}
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(x, y int) bool {
		dx := absInt32(pairs[x].j - pairs[x].i - 1 - int32(len(mid)))
		dy := absInt32(pairs[y].j - pairs[y].i - 1 - int32(len(mid)))
		if dx != dy {
			return dx < dy
		}
		if pairs[x].i != pairs[y].i {
			return pairs[x].i < pairs[y].i
		}
		return pairs[x].j < pairs[y].j
	})
	if len(pairs) > maxAnchorCandidates {
		pairs = pairs[:maxAnchorCandidates]
	}
	bestScore := int32(math.MinInt32)
	var bestHaplotype string
	var bestCigar []cigarOperation
	for _, pair := range pairs {
		haplotype := ref[:pair.i+k] + mid + ref[pair.j+k-1:]
		cigar := alignHaplotype(ref, haplotype, indel)
		if score := cigarScore(ref, haplotype, cigar); score > bestScore {
			bestScore = score
			bestHaplotype = haplotype
			bestCigar = cigar
		}
	}
	return cigarEvents(ref, bestHaplotype, bestCigar)
}

// danglingTailVariants handles chains that never rejoin the reference
// path: the read walks ended inside the divergence. The chain is
// aligned start-anchored; whatever the alignment cannot anchor at the
// chain's open end is discarded rather than reported as a deletion.
func (a *Assembler) danglingTailVariants(c *graphChain) []Variant {
	mid := c.spelled
	if len(mid) == 0 {
		return nil
	}
	k := a.kmerSize
	ref := a.reference
	anchors := append([]int32(nil), a.refIndex[c.entry]...)
	sort.Slice(anchors, func(x, y int) bool {
		dx := absInt32(int32(len(ref)) - anchors[x] - k - int32(len(mid)))
		dy := absInt32(int32(len(ref)) - anchors[y] - k - int32(len(mid)))
		if dx != dy {
			return dx < dy
		}
		return anchors[x] < anchors[y]
	})
	if len(anchors) > maxAnchorCandidates {
		anchors = anchors[:maxAnchorCandidates]
	}
	bestScore := int32(math.MinInt32)
	var bestHaplotype string
	var bestCigar []cigarOperation
	for _, i := range anchors {
		haplotype := ref[:i+k] + mid
		cigar := trimOpenEnd(alignHaplotype(ref, haplotype, leadingIndel))
		if cigar == nil {
			continue
		}
		if score := cigarScore(ref, haplotype, cigar); score > bestScore {
			bestScore = score
			bestHaplotype = haplotype
			bestCigar = cigar
		}
	}
	return cigarEvents(ref, bestHaplotype, bestCigar)
}

// danglingHeadVariants handles chains that only rejoin the reference
// path: the read walks began inside the divergence. Both sequences are
// reversed, aligned as a dangling tail, and the events mapped back.
func (a *Assembler) danglingHeadVariants(c *graphChain) []Variant {
	spelled := c.spelled
	k := a.kmerSize
	ref := a.reference
	revRef := reverseString(ref)
	anchors := append([]int32(nil), a.refIndex[c.exit]...)
	sort.Slice(anchors, func(x, y int) bool {
		dx := absInt32(anchors[x] + k - 1 - int32(len(spelled)))
		dy := absInt32(anchors[y] + k - 1 - int32(len(spelled)))
		if dx != dy {
			return dx < dy
		}
		return anchors[x] < anchors[y]
	})
	if len(anchors) > maxAnchorCandidates {
		anchors = anchors[:maxAnchorCandidates]
	}
	bestScore := int32(math.MinInt32)
	var bestHaplotype string
	var bestCigar []cigarOperation
	for _, j := range anchors {
		if j+k-1 > int32(len(ref)) {
			continue
		}
		haplotype := reverseString(spelled + ref[j+k-1:])
		cigar := trimOpenEnd(alignHaplotype(revRef, haplotype, leadingIndel))
		if cigar == nil {
			continue
		}
		// the reference context after the rejoin aligns as matches for
		// every anchor; only the chain's own bases decide between them
		score := cigarScore(revRef, haplotype, cigar) - rankMatch*(int32(len(ref))-j-k+1)
		if score > bestScore {
			bestScore = score
			bestHaplotype = haplotype
			bestCigar = cigar
		}
	}
	events := cigarEvents(revRef, bestHaplotype, bestCigar)
	for i := range events {
		event := &events[i]
		event.BeginPos = int32(len(ref)) - event.BeginPos - int32(len(event.Ref))
		event.Ref = reverseString(event.Ref)
		event.Alt = reverseString(event.Alt)
	}
	return events
}

// trimOpenEnd drops trailing insertions and deletions from the cigar
// of a dangling chain; they describe the unobserved side of the chain,
// not sequence edits. A chain whose alignment does not end in a match
// run is discarded.
func trimOpenEnd(cigar []cigarOperation) []cigarOperation {
	for len(cigar) > 0 {
		if op := cigar[len(cigar)-1].operation; op == 'D' || op == 'I' {
			cigar = cigar[:len(cigar)-1]
		} else {
			break
		}
	}
	if len(cigar) == 0 || cigar[len(cigar)-1].operation != 'M' {
		return nil
	}
	return cigar
}

// cigarEvents walks an alignment and emits the implied variants:
// contiguous mismatch runs, insertions, and deletions.
func cigarEvents(ref, alt string, cigar []cigarOperation) (result []Variant) {
	var refPos, altPos int32
	for _, op := range cigar {
		switch op.operation {
		case 'M':
			runStart := int32(-1)
			for i := int32(0); i < op.length; i++ {
				if ref[refPos+i] != alt[altPos+i] {
					if runStart < 0 {
						runStart = i
					}
				} else if runStart >= 0 {
					result = append(result, Variant{
						BeginPos: refPos + runStart,
						Ref:      ref[refPos+runStart : refPos+i],
						Alt:      alt[altPos+runStart : altPos+i],
					})
					runStart = -1
				}
			}
			if runStart >= 0 {
				result = append(result, Variant{
					BeginPos: refPos + runStart,
					Ref:      ref[refPos+runStart : refPos+op.length],
					Alt:      alt[altPos+runStart : altPos+op.length],
				})
			}
			refPos += op.length
			altPos += op.length
		case 'I':
			result = append(result, Variant{
				BeginPos: refPos,
				Ref:      "",
				Alt:      alt[altPos : altPos+op.length],
			})
			altPos += op.length
		case 'D':
			result = append(result, Variant{
				BeginPos: refPos,
				Ref:      ref[refPos : refPos+op.length],
				Alt:      "",
			})
			refPos += op.length
		}
	}
	return
}

// leftShiftIndel shifts a pure insertion or deletion to its leftmost
// equivalent position against the reference.
func leftShiftIndel(v *Variant, ref string) {
	switch {
	case len(v.Ref) == 0 && len(v.Alt) > 0:
		last := len(v.Alt) - 1
		for v.BeginPos > 0 && ref[v.BeginPos-1] == v.Alt[last] {
			v.Alt = v.Alt[last:] + v.Alt[:last]
			v.BeginPos--
		}
	case len(v.Alt) == 0 && len(v.Ref) > 0:
		size := int32(len(v.Ref))
		for v.BeginPos > 0 && ref[v.BeginPos-1] == ref[v.BeginPos+size-1] {
			v.BeginPos--
			v.Ref = ref[v.BeginPos : v.BeginPos+size]
		}
	}
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
