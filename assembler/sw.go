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
	"sync"
)

type cigarOperation struct {
	length    int32
	operation byte
}

type smithWatermanOverhangStrategy int32

const (
	// indel aligns both sequences end to end; overhangs on either side
	// become insertions or deletions.
	indel smithWatermanOverhangStrategy = iota
	// leadingIndel anchors the alignment at the start of both
	// sequences and leaves a trailing reference overhang unaligned.
	leadingIndel
)

// Alignment weights favor gaps over mismatch runs, which keeps
// haplotype cigars compact. The ranking weights do the opposite: when
// choosing between anchor interpretations of the same graph path, a
// substitution reading must be able to beat a gap reading.
const (
	swMatch    = 200
	swMismatch = -150
	swGapOpen  = -260
	swGapExt   = -11

	rankMatch    = 25
	rankMismatch = -50
	rankGapOpen  = -110
	rankGapExt   = -6
)

type int32Matrix struct {
	cols  int32
	array []int32
}

func (m *int32Matrix) ensureSize(rows, cols int32) {
	m.cols = cols
	totalSize := rows * cols
	if totalSize <= int32(cap(m.array)) {
		m.array = m.array[:totalSize]
		for i := int32(0); i < totalSize; i++ {
			m.array[i] = 0
		}
	} else {
		m.array = make([]int32, totalSize)
	}
}

func (m *int32Matrix) at(row, col int32) int32 {
	return m.array[row*m.cols+col]
}

func (m *int32Matrix) setAt(row, col, value int32) {
	m.array[row*m.cols+col] = value
}

func (m *int32Matrix) rowView(row int32) []int32 {
	offset := row * m.cols
	return m.array[offset : offset+m.cols]
}

type smithWatermanMatrices struct {
	sw, backtrack                          int32Matrix
	bestGapV, bestGapH, gapSizeV, gapSizeH []int32
}

var smithWatermanMatricesPool = sync.Pool{New: func() interface{} { return &smithWatermanMatrices{} }}

func getSmithWatermanMatrices() *smithWatermanMatrices {
	return smithWatermanMatricesPool.Get().(*smithWatermanMatrices)
}

func putSmithWatermanMatrices(sw *smithWatermanMatrices) {
	smithWatermanMatricesPool.Put(sw)
}

func ensureVector(v []int32, sz, initValue int32) (result []int32) {
	if sz <= int32(cap(v)) {
		result = v[:sz]
	} else {
		result = make([]int32, sz)
	}
	for i := int32(0); i < sz; i++ {
		result[i] = initValue
	}
	return
}

func runSmithWaterman(reference, alternate string, strategy smithWatermanOverhangStrategy) []cigarOperation {
	sw := getSmithWatermanMatrices()
	defer putSmithWatermanMatrices(sw)

	refLength := int32(len(reference))
	altLength := int32(len(alternate))

	nrow := refLength + 1
	ncol := altLength + 1
	sw.sw.ensureSize(nrow, ncol)
	sw.backtrack.ensureSize(nrow, ncol)

	const (
		matrixMinCutoff = -1.0e8
		lowInitValue    = math.MinInt32 / 2
	)

	sw.bestGapV = ensureVector(sw.bestGapV, ncol+1, lowInitValue)
	sw.gapSizeV = ensureVector(sw.gapSizeV, ncol+1, 0)
	sw.bestGapH = ensureVector(sw.bestGapH, nrow+1, lowInitValue)
	sw.gapSizeH = ensureVector(sw.gapSizeH, nrow+1, 0)

	topRow := sw.sw.rowView(0)
	topRow[1] = swGapOpen
	currentValue := int32(swGapOpen)
	for i := 2; i < len(topRow); i++ {
		currentValue += swGapExt
		topRow[i] = currentValue
	}
	sw.sw.setAt(1, 0, swGapOpen)
	currentValue = swGapOpen
	for i := int32(2); i < nrow; i++ {
		currentValue += swGapExt
		sw.sw.setAt(i, 0, currentValue)
	}

	curRow := sw.sw.rowView(0)

	for i := int32(1); i < nrow; i++ {
		aBase := reference[i-1]
		lastRow := curRow
		curRow = sw.sw.rowView(i)
		curBacktrackRow := sw.backtrack.rowView(i)

		for j := int32(1); j < ncol; j++ {
			bBase := alternate[j-1]
			stepDiag := lastRow[j-1]
			if aBase == bBase {
				stepDiag += swMatch
			} else {
				stepDiag += swMismatch
			}

			prevGap := lastRow[j] + swGapOpen
			sw.bestGapV[j] += swGapExt
			if prevGap > sw.bestGapV[j] {
				sw.bestGapV[j] = prevGap
				sw.gapSizeV[j] = 1
			} else {
				sw.gapSizeV[j]++
			}

			stepDown := sw.bestGapV[j]
			kd := sw.gapSizeV[j]

			prevGap = curRow[j-1] + swGapOpen
			sw.bestGapH[i] += swGapExt
			if prevGap > sw.bestGapH[i] {
				sw.bestGapH[i] = prevGap
				sw.gapSizeH[i] = 1
			} else {
				sw.gapSizeH[i]++
			}

			stepRight := sw.bestGapH[i]
			ki := sw.gapSizeH[i]

			if stepDiag >= stepDown && stepDiag >= stepRight {
				curRow[j] = maxInt32(matrixMinCutoff, stepDiag)
				curBacktrackRow[j] = 0
			} else if stepRight >= stepDown {
				curRow[j] = maxInt32(matrixMinCutoff, stepRight)
				curBacktrackRow[j] = -ki
			} else {
				curRow[j] = maxInt32(matrixMinCutoff, stepDown)
				curBacktrackRow[j] = kd
			}
		}
	}

	var p1 int32
	p2 := altLength

	if strategy == indel {
		p1 = refLength
	} else {
		maxScore := math.MinInt32
		for i := int32(1); i < nrow; i++ {
			if curScore := int(sw.sw.at(i, altLength)); curScore >= maxScore {
				p1 = i
				maxScore = curScore
			}
		}
	}

	lce := make([]cigarOperation, 0, 5)
	var segmentLength int32
	state := byte('M')
	for {
		stepLength := int32(1)
		btr := sw.backtrack.at(p1, p2)
		var newState byte
		if btr > 0 {
			newState = 'D'
			stepLength = btr
			p1 -= btr
		} else if btr < 0 {
			newState = 'I'
			stepLength = -btr
			p2 += btr
		} else {
			newState = 'M'
			p1--
			p2--
		}

		if newState == state {
			segmentLength += stepLength
		} else {
			lce = append(lce, cigarOperation{segmentLength, state})
			segmentLength = stepLength
			state = newState
		}

		if p1 <= 0 || p2 <= 0 {
			break
		}
	}

	lce = append(lce, cigarOperation{segmentLength, state})
	switch {
	case p1 > 0:
		lce = append(lce, cigarOperation{p1, 'D'})
	case p2 > 0:
		lce = append(lce, cigarOperation{p2, 'I'})
	}

	for i, j := 0, len(lce)-1; i < j; i, j = i+1, j-1 {
		lce[i], lce[j] = lce[j], lce[i]
	}
	for i := 1; i < len(lce); {
		if lce[i-1].length == 0 {
			lce = append(lce[:i-1], lce[i:]...)
		} else if lce[i-1].operation == lce[i].operation {
			lce[i-1].length += lce[i].length
			lce = append(lce[:i], lce[i+1:]...)
		} else {
			i++
		}
	}
	if l := len(lce) - 1; l >= 0 && lce[l].length == 0 {
		lce = lce[:l]
	}
	return lce
}

// alignHaplotype aligns a candidate haplotype against the reference
// sub-sequence. Sequences of equal length with at most two mismatches
// short-circuit to an all-M alignment.
func alignHaplotype(reference, alternate string, strategy smithWatermanOverhangStrategy) []cigarOperation {
	if len(reference) == len(alternate) {
		mismatches := 0
		for i := range reference {
			if reference[i] != alternate[i] {
				mismatches++
			}
		}
		if mismatches <= 2 {
			return []cigarOperation{{int32(len(reference)), 'M'}}
		}
	}
	return runSmithWaterman(reference, alternate, strategy)
}

// cigarScore scores a cigar over the given sequences with the ranking
// weights, used to choose between alternative anchorings of the same
// graph path. Unaligned reference overhang is free.
func cigarScore(reference, alternate string, cigar []cigarOperation) int32 {
	var score int32
	var refPos, altPos int32
	for _, op := range cigar {
		switch op.operation {
		case 'M':
			for i := int32(0); i < op.length; i++ {
				if reference[refPos+i] == alternate[altPos+i] {
					score += rankMatch
				} else {
					score += rankMismatch
				}
			}
			refPos += op.length
			altPos += op.length
		case 'I':
			score += rankGapOpen + (op.length-1)*rankGapExt
			altPos += op.length
		case 'D':
			score += rankGapOpen + (op.length-1)*rankGapExt
			refPos += op.length
		}
	}
	return score
}

func maxInt32(x, y int32) int32 {
	if x > y {
		return x
	}
	return y
}

func minInt32(x, y int32) int32 {
	if x < y {
		return x
	}
	return y
}

func absInt32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
