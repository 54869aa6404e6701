// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package persona defines companion personality profiles. A profile's
// traits feed the policy composer: erotic_openness and pace throttle
// escalation, boundary_strictness and directness drive termination.
package persona

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/personas.yaml
var builtinCatalog []byte

// RandomProfile is the sentinel id that asks for a random pick from
// the catalog.
const RandomProfile = "random"

// Profile is one companion personality.
type Profile struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`

	// BaselineOpenness sets how personal the companion gets unprompted.
	BaselineOpenness float64 `yaml:"baseline_openness" validate:"gte=0,lte=1"`

	// Pace controls how fast intimacy is allowed to build.
	Pace string `yaml:"pace" validate:"oneof=slow medium fast"`

	Flirtiness float64 `yaml:"flirtiness" validate:"gte=0,lte=1"`

	// EroticOpenness below the deflection threshold means erotic
	// requests get redirected regardless of trust.
	EroticOpenness float64 `yaml:"erotic_openness" validate:"gte=0,lte=1"`

	// BoundaryStrictness scales how quickly repeated violations end
	// the conversation.
	BoundaryStrictness float64 `yaml:"boundary_strictness" validate:"gte=0,lte=1"`

	HumorStyle string  `yaml:"humor_style" validate:"oneof=dry playful none"`
	Directness float64 `yaml:"directness" validate:"gte=0,lte=1"`
	Jealousy   float64 `yaml:"jealousy" validate:"gte=0,lte=1"`
}

// Summary renders the one-line trait readout shown at chat start.
func (p Profile) Summary() string {
	return fmt.Sprintf(
		"%s (%s): pace=%s, flirtiness=%.2f, openness=%.2f, erotic_openness=%.2f, "+
			"boundary_strictness=%.2f, humor=%s, directness=%.2f",
		p.Name, p.ID, p.Pace, p.Flirtiness, p.BaselineOpenness,
		p.EroticOpenness, p.BoundaryStrictness, p.HumorStyle, p.Directness)
}

// Identity is the presented name, gender, and pronouns for a session.
// Gender is chosen per session rather than fixed in the catalog, so
// the same profile can present either way.
type Identity struct {
	Name     string
	Gender   string
	Pronouns string
}

// Identity builds the session identity for a chosen gender. Gender
// must be "female" or "male"; pick before calling when the caller
// supports a random choice.
func (p Profile) Identity(gender string) (Identity, error) {
	var pronouns string
	switch gender {
	case "female":
		pronouns = "she/her"
	case "male":
		pronouns = "he/him"
	default:
		return Identity{}, fmt.Errorf("unknown gender %q, expected female or male", gender)
	}
	return Identity{Name: p.Name, Gender: gender, Pronouns: pronouns}, nil
}

type catalogFile struct {
	Personas []Profile `yaml:"personas" validate:"required,min=1,dive"`
}

// Catalog is an immutable set of profiles keyed by id.
type Catalog struct {
	byID  map[string]Profile
	order []string
}

// LoadBuiltin parses and validates the embedded catalog. An invalid
// embedded catalog is a build defect, so callers treat an error here
// as fatal.
func LoadBuiltin() (*Catalog, error) {
	return LoadBytes(builtinCatalog)
}

// LoadBytes parses a persona catalog from YAML and validates every
// profile's trait ranges.
func LoadBytes(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("validate persona catalog: %w", err)
	}

	byID := make(map[string]Profile, len(file.Personas))
	order := make([]string, 0, len(file.Personas))
	for _, p := range file.Personas {
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		byID[p.ID] = p
		order = append(order, p.ID)
	}
	return &Catalog{byID: byID, order: order}, nil
}

// IDs returns every profile id in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns every profile in catalog order.
func (c *Catalog) All() []Profile {
	out := make([]Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Lookup resolves a profile id, or picks one at random for the
// RandomProfile sentinel. Unknown ids are an error listing the
// available choices.
func (c *Catalog) Lookup(id string, rng *rand.Rand) (Profile, error) {
	if id == RandomProfile {
		if rng == nil {
			return Profile{}, fmt.Errorf("random persona requested without an rng")
		}
		return c.byID[c.order[rng.Intn(len(c.order))]], nil
	}
	p, ok := c.byID[id]
	if !ok {
		ids := c.IDs()
		sort.Strings(ids)
		return Profile{}, fmt.Errorf("unknown persona %q, available: %s",
			id, strings.Join(ids, ", "))
	}
	return p, nil
}
