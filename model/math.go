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

import "math"

const maxTabledLn = 10

// ln n for small n, precomputed once; genotype arithmetic needs ln of
// the ploidy and of haplotype multiplicities on every read.
var lnTable [maxTabledLn + 1]float64

func init() {
	lnTable[0] = math.Inf(-1)
	for n := 1; n <= maxTabledLn; n++ {
		lnTable[n] = math.Log(float64(n))
	}
}

func lnInt(n int) float64 {
	if n <= maxTabledLn {
		return lnTable[n]
	}
	return math.Log(float64(n))
}

// logSumExp2 is ln(exp(a) + exp(b)) in the numerically stable
// max-shift form.
func logSumExp2(a, b float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if math.IsInf(m, -1) {
		return m
	}
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}

// logSumExp3 is ln(exp(a) + exp(b) + exp(c)) in the numerically
// stable max-shift form.
func logSumExp3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	if math.IsInf(m, -1) {
		return m
	}
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m)+math.Exp(c-m))
}
