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

// Package config loads the calling configuration from a YAML file with
// environment variable overrides.
package config

import (
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config holds the tunable parameters of the calling core.
type Config struct {
	Reassembler struct {
		KmerSizes          []int32 `yaml:"kmer_sizes" envconfig:"OCTOPUS_KMER_SIZES"`
		MinBaseQuality     uint8   `yaml:"min_base_quality" envconfig:"OCTOPUS_MIN_BASE_QUALITY"`
		MinSupportingReads int32   `yaml:"min_supporting_reads" envconfig:"OCTOPUS_MIN_SUPPORTING_READS"`
		MaxVariantSize     int32   `yaml:"max_variant_size" envconfig:"OCTOPUS_MAX_VARIANT_SIZE"`
		AnchorIndels       bool    `yaml:"anchor_indels" envconfig:"OCTOPUS_ANCHOR_INDELS"`
		Debug              bool    `yaml:"debug" envconfig:"OCTOPUS_DEBUG"`
	} `yaml:"reassembler"`
	Model struct {
		Ploidy int `yaml:"ploidy" envconfig:"OCTOPUS_PLOIDY"`
	} `yaml:"model"`
}

// Default returns the configuration with the built-in defaults.
func Default() Config {
	var cfg Config
	cfg.Reassembler.KmerSizes = []int32{10, 25}
	cfg.Reassembler.MinBaseQuality = 20
	cfg.Reassembler.MinSupportingReads = 2
	cfg.Reassembler.MaxVariantSize = 100
	cfg.Model.Ploidy = 2
	return cfg
}

// Load returns the default configuration overridden first by the
// given YAML file (skipped when filename is empty) and then by
// environment variables.
func Load(filename string) Config {
	cfg := Default()
	if filename != "" {
		contents, err := os.ReadFile(filename)
		if err != nil {
			log.Panic(err)
		}
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			log.Panic(err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		log.Panic(err)
	}
	return cfg
}
