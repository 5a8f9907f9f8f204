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
	"bufio"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff"

	"github.com/justloggingin/octopus/genome"
	"github.com/justloggingin/octopus/internal"
)

const downloaderMaxRetries = 4

// A Downloader generates candidates by querying a variant database
// service for known variants in a region. The service answers with
// tab-separated lines `contig pos ref alt`, 0-based positions and
// unanchored alleles ('.' for an empty allele). It does not consume
// reads.
type Downloader struct {
	url            string
	client         *http.Client
	maxVariantSize int32
}

// NewDownloader creates a downloader against the given endpoint URL.
// A nil client uses http.DefaultClient.
func NewDownloader(url string, client *http.Client, maxVariantSize int32) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{url: url, client: client, maxVariantSize: maxVariantSize}
}

// RequiresReads always reports false for a downloader.
func (d *Downloader) RequiresReads() bool {
	return false
}

// AddRead is a no-op.
func (d *Downloader) AddRead(read *genome.AlignedRead) {}

// AddReads is a no-op.
func (d *Downloader) AddReads(reads []*genome.AlignedRead) {}

// Reserve is a no-op.
func (d *Downloader) Reserve(n int) {}

func parseAllele(field string) string {
	if field == "." {
		return ""
	}
	return field
}

// GenerateCandidates queries the service for the region, retrying
// transient failures with exponential backoff.
func (d *Downloader) GenerateCandidates(region genome.Region) []genome.Variant {
	endpoint := fmt.Sprintf("%v?contig=%v&start=%v&end=%v", d.url, region.Contig, region.Start, region.End)
	var result []genome.Variant
	download := func() error {
		response, err := d.client.Get(endpoint)
		if err != nil {
			return err
		}
		defer func() { _ = response.Body.Close() }()
		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("variant database answered %v for %v", response.Status, endpoint)
		}
		result = result[:0]
		scanner := bufio.NewScanner(response.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			fields := strings.Split(line, "\t")
			if len(fields) != 4 {
				log.Panicf("badly formatted variant database record: %v", line)
			}
			ref := parseAllele(fields[2])
			alt := parseAllele(fields[3])
			if int32(len(ref)) > d.maxVariantSize || int32(len(alt)) > d.maxVariantSize {
				continue
			}
			start := int32(internal.ParseInt(fields[1], 10, 32))
			v := genome.Variant{
				Region: genome.Region{Contig: fields[0], Start: start, End: start + int32(len(ref))},
				Ref:    ref,
				Alt:    alt,
			}
			if v.Region.Overlaps(region) {
				result = append(result, v)
			}
		}
		return scanner.Err()
	}
	if err := backoff.Retry(download, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), downloaderMaxRetries)); err != nil {
		log.Panic(err)
	}
	genome.SortVariants(result)
	return genome.DedupVariants(result)
}

// Clear is a no-op; the downloader holds no read state.
func (d *Downloader) Clear() {}
