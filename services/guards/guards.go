// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guards post-processes model output before it reaches the
// user. The identity guard keeps the companion's self-description
// consistent with its configured persona; the reality guard strips
// implausible biographical claims. Both are idempotent: running a
// guard on its own output changes nothing.
package guards

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/CompanionGate/services/persona"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([A-Z][a-z]+)\b`),
	regexp.MustCompile(`(?i)\bi am\s+([A-Z][a-z]+)\b`),
	regexp.MustCompile(`(?i)\bi'?m\s+([A-Z][a-z]+)\b`),
}

type genderPattern struct {
	re     *regexp.Regexp
	gender string
}

var genderPatterns = []genderPattern{
	{regexp.MustCompile(`(?i)\bi am a man\b`), "male"},
	{regexp.MustCompile(`(?i)\bi'm a man\b`), "male"},
	{regexp.MustCompile(`(?i)\bi am a woman\b`), "female"},
	{regexp.MustCompile(`(?i)\bi'm a woman\b`), "female"},
	{regexp.MustCompile(`(?i)\bi am a guy\b`), "male"},
	{regexp.MustCompile(`(?i)\bi'm a guy\b`), "male"},
	{regexp.MustCompile(`(?i)\bi am a girl\b`), "female"},
	{regexp.MustCompile(`(?i)\bi'm a girl\b`), "female"},
}

var pronounsRe = regexp.MustCompile(`(?i)my pronouns are\s+[a-z/]+`)

var implausibleKeywords = []string{
	"everest",
	"secret ops",
	"cia",
	"fbi",
	"billionaire",
	"private jet",
	"special forces",
	"seal team",
	"astronaut",
	"spacewalk",
}

// groundedLine replaces sentences making implausible claims.
const groundedLine = "I haven't done anything that extreme, but I do like keeping things grounded."

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// EnforceIdentity rewrites self-identification in the reply so the
// name, gender, and pronouns always match the configured identity.
// Only the first name claim and first gender claim are rewritten; a
// reply that already matches passes through unchanged.
func EnforceIdentity(reply string, id persona.Identity) string {
	text := reply

	for _, pat := range namePatterns {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if !strings.EqualFold(m[1], id.Name) {
			text = pat.ReplaceAllString(text, "my name is "+id.Name)
		}
		break
	}

	for _, gp := range genderPatterns {
		if !gp.re.MatchString(text) {
			continue
		}
		if gp.gender != id.Gender {
			replacement := "I am a man"
			if id.Gender == "female" {
				replacement = "I am a woman"
			}
			text = gp.re.ReplaceAllString(text, replacement)
		}
		break
	}

	if strings.Contains(strings.ToLower(text), "my pronouns are") {
		text = pronounsRe.ReplaceAllString(text, "my pronouns are "+id.Pronouns)
	}

	return text
}

// RealityGuard removes sentences containing implausible biographical
// claims, substituting a single grounding line for the first one. The
// result is never empty.
func RealityGuard(reply string) string {
	lower := strings.ToLower(reply)
	hit := false
	for _, k := range implausibleKeywords {
		if strings.Contains(lower, k) {
			hit = true
			break
		}
	}
	if !hit {
		return reply
	}

	sentences := splitSentences(reply)
	var cleaned []string
	replaced := false
	for _, s := range sentences {
		if containsImplausible(s) {
			if !replaced {
				cleaned = append(cleaned, groundedLine)
				replaced = true
			}
			continue
		}
		cleaned = append(cleaned, s)
	}

	if len(cleaned) == 0 {
		return groundedLine
	}
	return strings.TrimSpace(strings.Join(cleaned, " "))
}

func containsImplausible(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, k := range implausibleKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// splitSentences breaks text at sentence-ending punctuation, keeping
// the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	locs := sentenceSplit.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		// loc[0] is the punctuation char; keep it.
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
