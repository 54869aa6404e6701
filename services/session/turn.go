// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/CompanionGate/services/gate"
	"github.com/AleutianAI/CompanionGate/services/guards"
	"github.com/AleutianAI/CompanionGate/services/llm"
	"github.com/AleutianAI/CompanionGate/services/memory"
	"github.com/AleutianAI/CompanionGate/services/phase"
	"github.com/AleutianAI/CompanionGate/services/policy"
	"github.com/AleutianAI/CompanionGate/services/signals"
	"github.com/AleutianAI/CompanionGate/services/trust"
)

// ErrEmptyInput marks a turn with nothing to process. No state
// changes.
var ErrEmptyInput = errors.New("empty input")

// ErrSessionEnded marks a turn attempted after the session blocked.
var ErrSessionEnded = errors.New("session has ended")

// BackendError wraps a generation failure. The turn still produced a
// scripted reply and updated state, so callers can keep the session
// alive.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("chat backend failed, served scripted reply: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// TurnResult is the full diagnostic record of one turn.
type TurnResult struct {
	Reply string
	Mode  policy.Mode

	Risk    gate.Score
	RuleHit bool
	RuleID  string

	EroticIntent   bool
	EroticLevel    signals.EroticLevel
	DeflectReasons []string
	RepairReasons  []string
	BlockReasons   []string

	Phase    phase.State
	Trust    trust.State
	NewFacts []memory.Item

	// Terminated is true when this reply is the final one.
	Terminated bool
}

// RunTurn executes one user message through the whole pipeline. On a
// generation failure the returned error is a *BackendError and the
// result still carries a usable scripted reply.
func (s *Session) RunTurn(ctx context.Context, userText string) (*TurnResult, error) {
	if s.blocked {
		return nil, ErrSessionEnded
	}
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, ErrEmptyInput
	}

	extractor := s.deps.Signals.Current()

	risk := s.deps.Gate.Evaluate(ctx, userText)
	ruleHit, ruleID := extractor.EscalationRuleHit(userText)
	eroticLevel := extractor.EroticIntentLevel(userText)
	eroticIntent := s.tracker.IsEroticIntent(userText)
	consentSignal := extractor.ConsentPhrase(userText, eroticLevel)
	boundaryAck := extractor.BoundaryAck(userText)
	locationReq := extractor.LocationRequest(userText)
	lowEngagement := extractor.LowEngagement(userText)

	s.history = append(s.history, llm.Message{Role: llm.RoleUser, Content: userText})

	phaseBefore := s.tracker.Last()
	decision := s.composer.Compose(policy.Input{
		RuleHit:         ruleHit,
		RuleID:          ruleID,
		LocationRequest: locationReq,
		Risk:            risk,
		EroticIntent:    eroticIntent,
		EroticLevel:     eroticLevel,
		Phase:           phaseBefore.Phase,
		IntimacyScore:   phaseBefore.IntimacyScore,
		Trust:           s.trust.State(),
	})

	result := &TurnResult{
		Mode:           decision.Mode,
		Risk:           risk,
		RuleHit:        ruleHit,
		RuleID:         ruleID,
		EroticIntent:   eroticIntent,
		EroticLevel:    eroticLevel,
		DeflectReasons: decision.DeflectReasons,
		RepairReasons:  decision.RepairReasons,
	}

	var backendErr error
	switch decision.Mode {
	case policy.ModeSafetyRepair:
		result.Reply = s.deps.Templates.BoundaryRepair()
	case policy.ModeSoftDeflect:
		result.Reply = s.deps.Templates.SoftDeflect()
	default:
		reply, err := s.generate(ctx, phaseBefore, decision.AllowErotic)
		if err != nil {
			s.logger.Warn("Chat backend failed, falling back to scripted reply",
				"session_id", s.ID, "error", err)
			reply = s.deps.Templates.BoundaryRepair()
			backendErr = &BackendError{Err: err}
		} else {
			reply = s.applyGuards(reply)
		}
		result.Reply = reply
	}

	s.counters.Observe(decision.Mode, lowEngagement)
	if lowEngagement {
		s.lowEngagementStreak++
	} else {
		s.lowEngagementStreak = 0
	}

	if reasons := s.counters.Terminate(s.cfg.Profile, ruleHit, eroticIntent); len(reasons) > 0 {
		result.Reply = policy.BlockMessage
		result.Mode = policy.ModeBlock
		result.BlockReasons = reasons
		result.Terminated = true
		s.blocked = true
	}

	s.history = append(s.history, llm.Message{Role: llm.RoleAssistant, Content: result.Reply})
	s.turns++

	if result.Mode == policy.ModeBlock {
		result.Phase = s.tracker.Last()
		result.Trust = s.trust.State()
		s.logger.Info("Session terminated",
			"session_id", s.ID, "reasons", strings.Join(result.BlockReasons, ","))
		return result, backendErr
	}

	newPhase := s.tracker.Update(userText, result.Reply, risk.Label, ruleHit)
	result.Phase = newPhase

	safeTurn := risk.Label == gate.LabelSafe && !ruleHit
	if safeTurn {
		facts, err := s.deps.Memory.UpdateFromText(userText)
		if err != nil {
			s.logger.Warn("Memory update failed", "session_id", s.ID, "error", err)
		}
		result.NewFacts = facts
	}

	result.Trust = s.trust.Update(trust.Outcome{
		SafeTurn:            safeTurn,
		RuleHit:             ruleHit,
		Repaired:            result.Mode == policy.ModeSafetyRepair,
		Deflected:           result.Mode == policy.ModeSoftDeflect,
		EroticIntent:        eroticIntent,
		BoundaryAck:         boundaryAck,
		PrevTurnRepaired:    s.prevTurnRepaired,
		NewFacts:            len(result.NewFacts),
		IntimacyAvg:         newPhase.IntimacyScore,
		FlirtAvg:            newPhase.FlirtScore,
		LowEngagementStreak: s.lowEngagementStreak,
		ConsentSignal:       consentSignal,
	})
	s.prevTurnRepaired = result.Mode == policy.ModeSafetyRepair

	s.persistTrust(ctx, result.Trust, ruleHit, ruleID)

	s.logger.Debug("Turn completed",
		"session_id", s.ID,
		"mode", string(result.Mode),
		"gate", string(risk.Label),
		"p_move", risk.PMove,
		"phase", string(newPhase.Phase),
		"trust", result.Trust.Level)
	return result, backendErr
}

// generate calls the chat backend with the rolling history plus the
// per-turn hidden system context.
func (s *Session) generate(ctx context.Context, phaseBefore phase.State, allowErotic bool) (string, error) {
	systemContext := policy.BuildSystemContext(policy.ContextParams{
		Phase:            phaseBefore,
		Profile:          s.cfg.Profile,
		MemoryHighlights: s.deps.Memory.Highlights(3),
		AllowErotic:      allowErotic,
		UserGender:       s.cfg.UserGender,
		Attraction:       s.cfg.Attraction,
	})
	messages := make([]llm.Message, 0, len(s.history)+1)
	messages = append(messages, s.history...)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemContext})

	timeout := s.cfg.ChatTimeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.deps.Chat.Chat(ctx, messages, llm.GenerationParams{})
}

// applyGuards runs identity and reality guards over a model reply.
// Scripted replies skip this; they are already safe.
func (s *Session) applyGuards(reply string) string {
	reply = guards.EnforceIdentity(reply, s.cfg.Identity)
	return guards.RealityGuard(reply)
}

func (s *Session) persistTrust(ctx context.Context, st trust.State, ruleHit bool, ruleID string) {
	s.record.Level = st.Level
	s.record.Consent = st.Consent
	s.record.UpdatedAt = time.Now().UTC()
	s.record.AppendChange(trust.Change{
		Level:  st.Level,
		Reason: st.LastReason,
		At:     s.record.UpdatedAt,
	})
	if ruleHit && ruleID != "" {
		s.record.Boundaries = append(s.record.Boundaries, ruleID)
	}
	if err := s.deps.TrustStore.Save(ctx, s.memoryID, s.record); err != nil {
		s.logger.Warn("Trust persistence failed", "session_id", s.ID, "error", err)
	}
}
