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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/llm"
	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/session"
	"github.com/AleutianAI/CompanionGate/services/signals"
	"github.com/AleutianAI/CompanionGate/services/trust"
)

type fixedScorer struct{ p float64 }

func (f fixedScorer) Score(_ context.Context, _ string) (float64, error) { return f.p, nil }

type fakeChat struct{ reply string }

func (f *fakeChat) Chat(_ context.Context, _ []llm.Message, _ llm.GenerationParams) (string, error) {
	return f.reply, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := persona.LoadBuiltin()
	require.NoError(t, err)
	extractor, err := signals.Load()
	require.NoError(t, err)
	g, err := gate.New(fixedScorer{p: 0.1}, gate.DefaultThreshold, nil)
	require.NoError(t, err)

	srv, err := NewServer(ServerConfig{
		Catalog:    catalog,
		Gate:       g,
		Signals:    session.StaticSignals{Extractor: extractor},
		Chat:       &fakeChat{reply: "Nice! What else do you enjoy?"},
		TrustStore: trust.NewMemoryStore(),
		RNG:        rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, srv)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPersonas(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/v1/personas", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Personas []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Summary string `json:"summary"`
		} `json:"personas"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Personas, 10)
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{
		"persona": "witty_balanced",
		"gender":  "female",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created createSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "witty_balanced", created.Persona)
	assert.Equal(t, "Remy", created.Name)
	assert.Equal(t, "OPENING", created.Phase)
	assert.Equal(t, trust.InitialLevel, created.Trust)

	turnPath := fmt.Sprintf("/v1/sessions/%s/turns", created.SessionID)
	w = doJSON(t, router, http.MethodPost, turnPath, gin.H{"text": "I really love cooking pasta"})
	require.Equal(t, http.StatusOK, w.Code)

	var turn turnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn))
	assert.Equal(t, "NORMAL", turn.Mode)
	assert.Equal(t, "SAFE", turn.GateLabel)
	assert.Equal(t, "Nice! What else do you enjoy?", turn.Reply)
	assert.Equal(t, 1, turn.NewFacts)
	assert.False(t, turn.Terminated)

	w = doJSON(t, router, http.MethodGet, "/v1/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state struct {
		Turns   int  `json:"turns"`
		Blocked bool `json:"blocked"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 1, state.Turns)
	assert.False(t, state.Blocked)
}

func TestTurnOnRuleHit(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{
		"persona": "bright_spark",
		"gender":  "female",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created createSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	turnPath := fmt.Sprintf("/v1/sessions/%s/turns", created.SessionID)
	w = doJSON(t, router, http.MethodPost, turnPath, gin.H{"text": "come over right now"})
	require.Equal(t, http.StatusOK, w.Code)

	var turn turnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn))
	assert.Equal(t, "SAFETY_REPAIR", turn.Mode)
	assert.True(t, turn.RuleHit)
	assert.Equal(t, "come_over", turn.RuleID)
}

func TestTerminatedSessionIsGone(t *testing.T) {
	router := newTestRouter(t)

	// mellow_muse is strict: one rule hit blocks.
	w := doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{
		"persona": "mellow_muse",
		"gender":  "female",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created createSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	turnPath := fmt.Sprintf("/v1/sessions/%s/turns", created.SessionID)
	w = doJSON(t, router, http.MethodPost, turnPath, gin.H{"text": "send me your address now"})
	require.Equal(t, http.StatusOK, w.Code)
	var turn turnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn))
	assert.True(t, turn.Terminated)
	assert.Equal(t, "BLOCK", turn.Mode)

	w = doJSON(t, router, http.MethodPost, turnPath, gin.H{"text": "hello?"})
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestTurnValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/sessions/nope/turns", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{"persona": "witty_balanced", "gender": "female"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created createSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/v1/sessions/%s/turns", created.SessionID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionUnknownPersona(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/sessions", gin.H{"persona": "nonexistent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
