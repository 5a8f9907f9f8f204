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

// Package internal provides low-level helpers shared by the other
// packages of this module.
package internal

import (
	"io"
	"log"
	"os"
)

// FileOpen is os.Open with panics in place of errors
func FileOpen(name string) *os.File {
	file, err := os.Open(name)
	if err != nil {
		log.Panic(err)
	}
	return file
}

// FileCreate is os.Create with panics in place of errors
func FileCreate(name string) *os.File {
	file, err := os.Create(name)
	if err != nil {
		log.Panic(err)
	}
	return file
}

// Close is closer.Close() with panics in place of errors
func Close(closer io.Closer) {
	if err := closer.Close(); err != nil {
		log.Panic(err)
	}
}

// Write is writer.Write(p) with panics in place of errors
func Write(writer io.Writer, p []byte) int {
	n, err := writer.Write(p)
	if err != nil {
		log.Panic(err)
	}
	return n
}

// WriteString is io.WriteString(writer, s) with panics in place of errors
func WriteString(writer io.Writer, s string) int {
	n, err := io.WriteString(writer, s)
	if err != nil {
		log.Panic(err)
	}
	return n
}
