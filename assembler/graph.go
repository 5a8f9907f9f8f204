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

// Package assembler implements a de Bruijn k-mer graph over aligned
// read and reference sequences, with support-based pruning and
// extraction of candidate variants from divergent graph paths.
package assembler

import (
	"log"

	"github.com/willf/bitset"

	"github.com/justloggingin/octopus/genome"
)

const minKmerSize = 4

type (
	vertexInfo struct {
		bases string
	}

	edgeInfo struct {
		from, to int32
		support  int32
		isRef    bool
		removed  bool
	}

	// An Assembler holds a de Bruijn graph whose vertices are k-mers
	// and whose edges connect k-mers overlapping in k-1 bases. Each
	// edge counts how many read walks traversed it and whether it lies
	// on the reference path. Vertices live in an arena addressed by
	// integer indices; removal is expressed through alive marks and
	// edge removed flags, so indices stay stable.
	Assembler struct {
		kmerSize    int32
		vertices    []vertexInfo
		kmerIndex   map[string]int32
		edges       []edgeInfo
		edgeIndex   map[[2]int32]int32
		outgoing    map[int32][]int32
		incoming    map[int32][]int32
		alive       *bitset.BitSet
		reference   string
		refPath     []int32
		refIndex    map[int32][]int32
		refInserted bool
	}
)

// New creates an assembler for the given k-mer size. The k-mer size
// must be at least 4.
func New(kmerSize int32) *Assembler {
	if kmerSize < minKmerSize {
		log.Panicf("kmer size %v too small - must be at least %v", kmerSize, minKmerSize)
	}
	a := &Assembler{kmerSize: kmerSize}
	a.reset()
	return a
}

// NewWithReference creates an assembler and inserts the reference
// sequence.
func NewWithReference(kmerSize int32, reference string) *Assembler {
	a := New(kmerSize)
	a.InsertReference(reference)
	return a
}

func (a *Assembler) reset() {
	a.vertices = nil
	a.kmerIndex = make(map[string]int32)
	a.edges = nil
	a.edgeIndex = make(map[[2]int32]int32)
	a.outgoing = make(map[int32][]int32)
	a.incoming = make(map[int32][]int32)
	a.alive = bitset.New(0)
	a.reference = ""
	a.refPath = nil
	a.refIndex = make(map[int32][]int32)
	a.refInserted = false
}

// KmerSize returns the k-mer size of the assembler.
func (a *Assembler) KmerSize() int32 {
	return a.kmerSize
}

// Clear drops all graph state but retains the k-mer size.
func (a *Assembler) Clear() {
	a.reset()
}

func (a *Assembler) getVertex(kmer string) int32 {
	if id, ok := a.kmerIndex[kmer]; ok {
		return id
	}
	id := int32(len(a.vertices))
	a.vertices = append(a.vertices, vertexInfo{bases: kmer})
	a.kmerIndex[kmer] = id
	a.alive.Set(uint(id))
	return id
}

func (a *Assembler) getEdge(from, to int32) *edgeInfo {
	if id, ok := a.edgeIndex[[2]int32{from, to}]; ok {
		return &a.edges[id]
	}
	id := int32(len(a.edges))
	a.edges = append(a.edges, edgeInfo{from: from, to: to})
	a.edgeIndex[[2]int32{from, to}] = id
	a.outgoing[from] = append(a.outgoing[from], id)
	a.incoming[to] = append(a.incoming[to], id)
	return &a.edges[id]
}

func (a *Assembler) vertexOnReferencePath(vertex int32) bool {
	return len(a.refIndex[vertex]) > 0
}

func (a *Assembler) vertexAlive(vertex int32) bool {
	return a.alive.Test(uint(vertex))
}

// InsertReference records the reference path: every consecutive k-mer
// becomes a vertex, and consecutive vertices are connected by edges
// flagged as on-reference. It panics when called twice without an
// intervening Clear, when the sequence is shorter than the k-mer size,
// or on bases outside A, C, G, T, N.
func (a *Assembler) InsertReference(bases string) {
	if a.refInserted {
		log.Panic("reference already inserted")
	}
	if int32(len(bases)) < a.kmerSize {
		log.Panicf("reference of length %v shorter than kmer size %v", len(bases), a.kmerSize)
	}
	genome.CheckBases(bases)
	prev := a.getVertex(bases[:a.kmerSize])
	a.refPath = append(a.refPath, prev)
	for i := int32(1); i <= int32(len(bases))-a.kmerSize; i++ {
		vertex := a.getVertex(bases[i : i+a.kmerSize])
		a.getEdge(prev, vertex).isRef = true
		a.refPath = append(a.refPath, vertex)
		prev = vertex
	}
	for index, vertex := range a.refPath {
		a.refIndex[vertex] = append(a.refIndex[vertex], int32(index))
	}
	a.reference = bases
	a.refInserted = true
}

// InsertRead walks the consecutive k-mers of the read sequence and
// increments the support count of every traversed edge. Bases equal to
// 'N' break the walk; no edge crosses an N. It panics when the
// sequence is shorter than the k-mer size or contains bases outside
// A, C, G, T, N.
func (a *Assembler) InsertRead(bases string) {
	if int32(len(bases)) < a.kmerSize {
		log.Panicf("read of length %v shorter than kmer size %v", len(bases), a.kmerSize)
	}
	genome.CheckBases(bases)
	start := 0
	for stop := 0; stop <= len(bases); stop++ {
		if stop == len(bases) || bases[stop] == 'N' {
			if int32(stop-start) >= a.kmerSize {
				a.insertSegment(bases[start:stop])
			}
			start = stop + 1
		}
	}
}

func (a *Assembler) insertSegment(segment string) {
	prev := a.getVertex(segment[:a.kmerSize])
	for i := int32(1); i <= int32(len(segment))-a.kmerSize; i++ {
		vertex := a.getVertex(segment[i : i+a.kmerSize])
		a.getEdge(prev, vertex).support++
		prev = vertex
	}
}

// RemoveTrivialNonReferenceCycles removes self-loop edges and length-2
// cycles that are not on the reference path. This suppresses
// tandem-repeat artefacts of short k-mer sizes.
func (a *Assembler) RemoveTrivialNonReferenceCycles() {
	for id := range a.edges {
		edge := &a.edges[id]
		if edge.removed || edge.isRef {
			continue
		}
		if edge.from == edge.to {
			edge.removed = true
			continue
		}
		if backId, ok := a.edgeIndex[[2]int32{edge.to, edge.from}]; ok {
			if back := &a.edges[backId]; !back.removed {
				edge.removed = true
				if !back.isRef {
					back.removed = true
				}
			}
		}
	}
}

// Prune drops every non-reference edge with support below minSupport,
// then removes vertices no longer connected to the reference path. It
// returns true when the remaining graph is non-empty and the reference
// path is still intact from source to sink; false signals the caller
// to try a larger k-mer size. A surviving cycle confined to vertices
// off the reference path (a tandem-repeat confounder the k-mer size
// cannot resolve) also counts as failure.
func (a *Assembler) Prune(minSupport int32) bool {
	for id := range a.edges {
		edge := &a.edges[id]
		if !edge.removed && !edge.isRef && edge.support < minSupport {
			edge.removed = true
		}
	}
	if !a.refInserted || len(a.vertices) == 0 {
		return false
	}
	a.removeDisconnectedVertices()
	if !a.referencePathIntact() {
		return false
	}
	return !a.hasNonReferenceCycle()
}

// removeDisconnectedVertices keeps only vertices connected, in either
// direction, to the reference path.
func (a *Assembler) removeDisconnectedVertices() {
	visited := bitset.New(uint(len(a.vertices)))
	stack := []int32{a.refPath[0]}
	visited.Set(uint(a.refPath[0]))
	for len(stack) > 0 {
		last := len(stack) - 1
		vertex := stack[last]
		stack = stack[:last]
		for _, edgeId := range a.outgoing[vertex] {
			if edge := &a.edges[edgeId]; !edge.removed && !visited.Test(uint(edge.to)) {
				visited.Set(uint(edge.to))
				stack = append(stack, edge.to)
			}
		}
		for _, edgeId := range a.incoming[vertex] {
			if edge := &a.edges[edgeId]; !edge.removed && !visited.Test(uint(edge.from)) {
				visited.Set(uint(edge.from))
				stack = append(stack, edge.from)
			}
		}
	}
	for id := int32(0); id < int32(len(a.vertices)); id++ {
		if !visited.Test(uint(id)) {
			a.alive.Clear(uint(id))
		}
	}
	for id := range a.edges {
		edge := &a.edges[id]
		if !edge.removed && (!a.vertexAlive(edge.from) || !a.vertexAlive(edge.to)) {
			edge.removed = true
		}
	}
}

func (a *Assembler) referencePathIntact() bool {
	for _, vertex := range a.refPath {
		if !a.vertexAlive(vertex) {
			return false
		}
	}
	for i := 0; i < len(a.refPath)-1; i++ {
		edgeId, ok := a.edgeIndex[[2]int32{a.refPath[i], a.refPath[i+1]}]
		if !ok || a.edges[edgeId].removed {
			return false
		}
	}
	return true
}

// hasNonReferenceCycle detects a directed cycle in the subgraph
// induced by alive vertices that do not lie on the reference path.
func (a *Assembler) hasNonReferenceCycle() bool {
	const (
		processing = 1
		done       = 2
	)
	seen := make([]byte, len(a.vertices))
	var visit func(vertex int32) bool
	visit = func(vertex int32) bool {
		seen[vertex] = processing
		for _, edgeId := range a.outgoing[vertex] {
			edge := &a.edges[edgeId]
			if edge.removed || !a.vertexAlive(edge.to) || a.vertexOnReferencePath(edge.to) {
				continue
			}
			switch seen[edge.to] {
			case processing:
				return true
			case done:
			default:
				if visit(edge.to) {
					return true
				}
			}
		}
		seen[vertex] = done
		return false
	}
	for id := int32(0); id < int32(len(a.vertices)); id++ {
		if seen[id] == 0 && a.vertexAlive(id) && !a.vertexOnReferencePath(id) {
			if visit(id) {
				return true
			}
		}
	}
	return false
}
