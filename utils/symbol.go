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

// Package utils provides interned symbols, which are used for sample
// names throughout this module.
package utils

import (
	"github.com/exascience/pargo/sync"

	"github.com/justloggingin/octopus/internal"
)

type symbolName string

// A Symbol is a unique pointer to a string. Two symbols interned from
// equal strings are pointer-equal, so symbols can be used as cheap map
// keys for sample names.
type Symbol *string

func (s symbolName) Hash() uint64 {
	return internal.StringHash(string(s))
}

var symbolTable = sync.NewMap(0)

// Intern returns the Symbol for the given string.
//
// It always returns the same pointer for strings that are equal, and
// different pointers for strings that are not equal. Dereferencing the
// pointer always yields a string that is equal to the original string.
//
// It is safe for multiple goroutines to call Intern concurrently.
func Intern(s string) Symbol {
	entry, _ := symbolTable.LoadOrStore(symbolName(s), Symbol(&s))
	return entry.(Symbol)
}
