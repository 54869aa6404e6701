// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("companiongate.gate.remote")

// RemoteScorer calls a classifier sidecar over HTTP.
//
// The sidecar exposes POST {base}/v1/score with body {"text": "..."}
// and responds {"p_move": 0.87}. This keeps the learned model (an
// embedding encoder plus logistic head) out of this process; the engine
// only consumes the probability.
type RemoteScorer struct {
	httpClient *http.Client
	baseURL    string
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	PMove float64 `json:"p_move"`
}

// NewRemoteScorer reads SCORER_BASE_URL from the environment.
func NewRemoteScorer() (*RemoteScorer, error) {
	baseURL := os.Getenv("SCORER_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("SCORER_BASE_URL environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing remote risk scorer", "base_url", baseURL)
	return &RemoteScorer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}, nil
}

// Score implements the Scorer interface.
func (s *RemoteScorer) Score(ctx context.Context, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0.0, nil
	}

	ctx, span := tracer.Start(ctx, "RemoteScorer.Score")
	defer span.End()

	payload, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/score", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, resp.Status)
		return 0, fmt.Errorf("scorer returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode scorer response: %w", err)
	}
	span.SetAttributes(attribute.Float64("gate.p_move", result.PMove))
	return result.PMove, nil
}
