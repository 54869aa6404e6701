// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package signals

import (
	"fmt"
	"regexp"
)

// EroticLevel is the ordered severity of erotic intent in a turn.
type EroticLevel string

const (
	EroticNone       EroticLevel = "none"
	EroticSuggestive EroticLevel = "suggestive"
	EroticExplicit   EroticLevel = "explicit"
)

// Rank returns the ordinal of the level: none=0, suggestive=1, explicit=2.
func (l EroticLevel) Rank() int {
	switch l {
	case EroticSuggestive:
		return 1
	case EroticExplicit:
		return 2
	default:
		return 0
	}
}

// RuleFile is the YAML schema for the conversation rule tables.
type RuleFile struct {
	Families []Family `yaml:"families"`
	Fillers  []string `yaml:"fillers"`
}

// Family is a named group of patterns serving one signal.
type Family struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is a single rule. The Id becomes part of the reason tag
// reported for a match ("{family}:{id}").
type Pattern struct {
	Id       string `yaml:"id"`
	Regex    string `yaml:"regex"`
	compiled *regexp.Regexp
}

// Compile compiles every pattern in the file. Patterns are matched
// case-insensitively regardless of how they are written in the table.
func (f *RuleFile) Compile() error {
	for i := range f.Families {
		fam := &f.Families[i]
		if fam.Name == "" {
			return fmt.Errorf("rule family %d has no name", i)
		}
		for j := range fam.Patterns {
			p := &fam.Patterns[j]
			re, err := regexp.Compile("(?i)" + p.Regex)
			if err != nil {
				return fmt.Errorf("family %q pattern %q: %w", fam.Name, p.Id, err)
			}
			p.compiled = re
		}
	}
	return nil
}

// family returns the named family, or nil.
func (f *RuleFile) family(name string) *Family {
	for i := range f.Families {
		if f.Families[i].Name == name {
			return &f.Families[i]
		}
	}
	return nil
}
