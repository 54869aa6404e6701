// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phase

// sample holds one turn's per-category pattern scores.
type sample struct {
	flirt    float64
	intimacy float64
	erotic   float64
}

// ring is a fixed-capacity window over the most recent turn samples.
// It is owned exclusively by its Tracker; nothing else mutates it.
type ring struct {
	buf   []sample
	head  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]sample, capacity)}
}

// push appends a sample, evicting the oldest once full.
func (r *ring) push(s sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// averages returns the running means over the stored samples.
// An empty window averages to zero.
func (r *ring) averages() (flirt, intimacy, erotic float64) {
	if r.count == 0 {
		return 0, 0, 0
	}
	for i := 0; i < r.count; i++ {
		s := r.buf[i]
		flirt += s.flirt
		intimacy += s.intimacy
		erotic += s.erotic
	}
	n := float64(r.count)
	return flirt / n, intimacy / n, erotic / n
}

func (r *ring) len() int {
	return r.count
}
