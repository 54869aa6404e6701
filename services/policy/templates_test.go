// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/phase"
)

func TestBoundaryRepairDrawsFromRedirects(t *testing.T) {
	tmpl := NewTemplates(rand.New(rand.NewSource(1)))
	for i := 0; i < 50; i++ {
		reply := tmpl.BoundaryRepair()
		found := false
		for _, base := range safeRedirects {
			if strings.HasPrefix(reply, base) {
				found = true
				break
			}
		}
		assert.True(t, found, "reply %q not built from a safe redirect", reply)
	}
}

func TestSoftDeflectDrawsFromDeflects(t *testing.T) {
	tmpl := NewTemplates(rand.New(rand.NewSource(2)))
	for i := 0; i < 50; i++ {
		reply := tmpl.SoftDeflect()
		found := false
		for _, base := range softDeflects {
			if strings.HasPrefix(reply, base) {
				found = true
				break
			}
		}
		assert.True(t, found, "reply %q not built from a soft deflect", reply)
	}
}

func TestTemplatesDeterministicWithSeed(t *testing.T) {
	a := NewTemplates(rand.New(rand.NewSource(7)))
	b := NewTemplates(rand.New(rand.NewSource(7)))

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.BoundaryRepair(), b.BoundaryRepair())
		assert.Equal(t, a.SoftDeflect(), b.SoftDeflect())
	}
}

func TestTemplatesSometimesAppendSofteners(t *testing.T) {
	tmpl := NewTemplates(rand.New(rand.NewSource(3)))
	softened := 0
	for i := 0; i < 200; i++ {
		reply := tmpl.BoundaryRepair()
		for _, s := range softeners {
			if strings.HasSuffix(reply, s) {
				softened++
				break
			}
		}
	}
	assert.Greater(t, softened, 0, "softener never appended across 200 draws")
	assert.Less(t, softened, 200, "softener always appended")
}

func TestBuildSystemContext(t *testing.T) {
	profile := persona.Profile{
		ID: "steady_anchor", Name: "June", Pace: "medium",
		BaselineOpenness: 0.45, Flirtiness: 0.35, EroticOpenness: 0.30,
		BoundaryStrictness: 0.70, HumorStyle: "dry", Directness: 0.55,
	}

	t.Run("erotic not allowed", func(t *testing.T) {
		got := BuildSystemContext(ContextParams{
			Phase:            phase.State{Phase: phase.Rapport},
			Profile:          profile,
			MemoryHighlights: []string{"likes: hiking", "job: nurse"},
			AllowErotic:      false,
			UserGender:       "male",
			Attraction:       "women",
		})

		assert.Contains(t, got, "SYSTEM CONTEXT (hidden):")
		assert.Contains(t, got, "phase=RAPPORT")
		assert.Contains(t, got, "bot_profile=June (steady_anchor)")
		assert.Contains(t, got, "user_gender=male")
		assert.Contains(t, got, "attraction=women")
		assert.Contains(t, got, "memory=likes: hiking; job: nurse")
		assert.Contains(t, got, NonEroticGuidance)
		assert.NotContains(t, got, EroticAllowedGuidance)
	})

	t.Run("erotic allowed", func(t *testing.T) {
		got := BuildSystemContext(ContextParams{
			Phase:       phase.State{Phase: phase.Intimate},
			Profile:     profile,
			AllowErotic: true,
		})

		assert.Contains(t, got, EroticAllowedGuidance)
		assert.Contains(t, got, "memory=none")
		assert.Contains(t, got, "user_gender=unspecified")
		assert.Contains(t, got, "attraction=unspecified")
	})
}
