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

// Package vcf implements a minimal VCF record model: enough to read
// existing variant records as a candidate source. Writing, header
// manipulation, and genotype columns are out of scope.
package vcf

import (
	"bufio"
	"io"
	"log"
	"strings"

	"github.com/justloggingin/octopus/internal"
)

// A Variant is the site part of one VCF record.
type Variant struct {
	Chrom string
	Pos   int32 // 1-based, as in the file
	Id    string
	Ref   string
	Alt   []string
}

// A Reader reads VCF records from a stream, skipping header lines.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewReader creates a Reader over the given stream.
func NewReader(reader io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(reader)}
}

// Open opens a VCF file for reading.
func Open(filename string) *Reader {
	file := internal.FileOpen(filename)
	result := NewReader(bufio.NewReader(file))
	result.closer = file
	return result
}

// Close closes the underlying file, if any.
func (r *Reader) Close() {
	if r.closer != nil {
		internal.Close(r.closer)
	}
}

// Read returns the next record, or false at end of input. Malformed
// records panic.
func (r *Reader) Read() (Variant, bool) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 6)
		if len(fields) < 5 {
			log.Panicf("badly formatted vcf record: %v", line)
		}
		return Variant{
			Chrom: fields[0],
			Pos:   int32(internal.ParseInt(fields[1], 10, 32)),
			Id:    fields[2],
			Ref:   fields[3],
			Alt:   strings.Split(fields[4], ","),
		}, true
	}
	if err := r.scanner.Err(); err != nil {
		log.Panic(err)
	}
	return Variant{}, false
}
