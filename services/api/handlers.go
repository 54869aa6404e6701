// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/CompanionGate/services/session"
)

type createSessionRequest struct {
	Persona    string `json:"persona"`
	Gender     string `json:"gender"`
	Style      string `json:"style"`
	MemoryID   string `json:"memory_id"`
	UserGender string `json:"user_gender"`
	Attraction string `json:"attraction"`
}

type createSessionResponse struct {
	SessionID string  `json:"session_id"`
	Persona   string  `json:"persona"`
	Name      string  `json:"name"`
	Summary   string  `json:"summary"`
	Trust     float64 `json:"trust"`
	Tier      string  `json:"tier"`
	Phase     string  `json:"phase"`
}

type turnRequest struct {
	Text string `json:"text" binding:"required"`
}

type turnResponse struct {
	Reply          string   `json:"reply"`
	Mode           string   `json:"mode"`
	GateLabel      string   `json:"gate_label"`
	PMove          float64  `json:"p_move"`
	RuleHit        bool     `json:"rule_hit"`
	RuleID         string   `json:"rule_id,omitempty"`
	DeflectReasons []string `json:"deflect_reasons,omitempty"`
	RepairReasons  []string `json:"repair_reasons,omitempty"`
	BlockReasons   []string `json:"block_reasons,omitempty"`
	Phase          string   `json:"phase"`
	FlirtScore     float64  `json:"flirt_score"`
	IntimacyScore  float64  `json:"intimacy_score"`
	EroticScore    float64  `json:"erotic_score"`
	Trust          float64  `json:"trust"`
	Tier           string   `json:"tier"`
	NewFacts       int      `json:"new_facts"`
	Terminated     bool     `json:"terminated"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListPersonas returns the catalog with trait summaries.
func ListPersonas(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		profiles := s.catalog.All()
		out := make([]gin.H, 0, len(profiles))
		for _, p := range profiles {
			out = append(out, gin.H{
				"id":      p.ID,
				"name":    p.Name,
				"summary": p.Summary(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"personas": out})
	}
}

// CreateSession starts a conversation and returns its id.
func CreateSession(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		sess, err := s.startSession(c.Request.Context(), req)
		if err != nil {
			s.logger.Warn("Failed to start session", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		profile := sess.Profile()
		ts := sess.TrustState()
		c.JSON(http.StatusCreated, createSessionResponse{
			SessionID: sess.ID,
			Persona:   profile.ID,
			Name:      profile.Name,
			Summary:   profile.Summary(),
			Trust:     ts.Level,
			Tier:      string(ts.Tier()),
			Phase:     string(sess.PhaseState().Phase),
		})
	}
}

// PostTurn runs one user message through a session.
func PostTurn(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ls, ok := s.lookup(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		var req turnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		ls.mu.Lock()
		res, err := ls.sess.RunTurn(c.Request.Context(), req.Text)
		ls.mu.Unlock()

		var backendErr *session.BackendError
		switch {
		case errors.Is(err, session.ErrSessionEnded):
			c.JSON(http.StatusGone, gin.H{"error": "session has ended"})
			return
		case errors.Is(err, session.ErrEmptyInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		case errors.As(err, &backendErr):
			// Degraded turn: the scripted reply still goes out.
		case err != nil:
			s.logger.Error("Turn failed", "session_id", ls.sess.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "turn failed"})
			return
		}

		c.JSON(http.StatusOK, turnResponse{
			Reply:          res.Reply,
			Mode:           string(res.Mode),
			GateLabel:      string(res.Risk.Label),
			PMove:          res.Risk.PMove,
			RuleHit:        res.RuleHit,
			RuleID:         res.RuleID,
			DeflectReasons: res.DeflectReasons,
			RepairReasons:  res.RepairReasons,
			BlockReasons:   res.BlockReasons,
			Phase:          string(res.Phase.Phase),
			FlirtScore:     res.Phase.FlirtScore,
			IntimacyScore:  res.Phase.IntimacyScore,
			EroticScore:    res.Phase.EroticScore,
			Trust:          res.Trust.Level,
			Tier:           string(res.Trust.Tier()),
			NewFacts:       len(res.NewFacts),
			Terminated:     res.Terminated,
			Degraded:       backendErr != nil,
		})
	}
}

// GetSession returns a session's current state.
func GetSession(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ls, ok := s.lookup(c.Param("sessionId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		ls.mu.Lock()
		defer ls.mu.Unlock()
		sess := ls.sess
		ts := sess.TrustState()
		ps := sess.PhaseState()
		c.JSON(http.StatusOK, gin.H{
			"session_id": sess.ID,
			"persona":    sess.Profile().ID,
			"memory_id":  sess.MemoryID(),
			"turns":      sess.Turns(),
			"blocked":    sess.Blocked(),
			"phase":      string(ps.Phase),
			"trust":      ts.Level,
			"tier":       string(ts.Tier()),
		})
	}
}
