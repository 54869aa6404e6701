// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides chat backends for generating companion replies.
// The session only depends on ChatClient; concrete backends are chosen
// at startup from environment configuration.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Message is one entry in the chat history sent to a backend.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationParams tunes sampling. Nil fields use backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// DefaultTimeout bounds one generation call. The session treats a
// timeout as a recoverable turn failure, not a session failure.
const DefaultTimeout = 60 * time.Second

// ChatClient is the interface every chat backend implements.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// Backend kinds accepted by NewChatClient.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// NewChatClient builds the configured backend. Unknown kinds are a
// startup error, not a silent default.
func NewChatClient(kind string) (ChatClient, error) {
	switch kind {
	case BackendOpenAI:
		return NewOpenAIClient()
	case BackendOllama:
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown llm backend %q, expected %s or %s",
			kind, BackendOpenAI, BackendOllama)
	}
}
