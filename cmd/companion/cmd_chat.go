// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CompanionGate/services/memory"
	"github.com/AleutianAI/CompanionGate/services/persona"
	"github.com/AleutianAI/CompanionGate/services/policy"
	"github.com/AleutianAI/CompanionGate/services/session"
)

var (
	flagPersona    string
	flagBotGender  string
	flagUserGender string
	flagAttraction string
	flagStyle      string
	flagMemoryID   string
	flagWindow     int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation in the terminal",
	Long: `Runs a conversation loop against the configured chat backend.
Each reply is followed by gate, phase, and trust diagnostics. Type
'exit' to quit.`,
	RunE: runChatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&flagPersona, "persona", persona.RandomProfile, "persona profile id, or 'random'")
	chatCmd.Flags().StringVar(&flagBotGender, "bot-gender", "random", "bot gender: female, male, or random")
	chatCmd.Flags().StringVar(&flagUserGender, "user-gender", "unspecified", "user gender: female, male, or unspecified")
	chatCmd.Flags().StringVar(&flagAttraction, "attraction", "unspecified", "user attraction: women, men, any, or unspecified")
	chatCmd.Flags().StringVar(&flagStyle, "style", "friendly", "conversation style: friendly or flirty_adult_ok")
	chatCmd.Flags().StringVar(&flagMemoryID, "memory-id", "", "memory id (default persona_YYYYMMDD)")
	chatCmd.Flags().IntVar(&flagWindow, "window", 0, "phase scoring window size (0 = default)")
	registerSharedFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func registerSharedFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagScorerBackend, "scorer", "lexical", "risk scorer backend: lexical or remote")
	cmd.Flags().Float64Var(&flagThreshold, "threshold", 0.45, "risk gate threshold on p(MOVE)")
	cmd.Flags().StringVar(&flagLLMBackend, "llm", "ollama", "chat backend: ollama or openai")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "", "BadgerDB directory for trust and memory (empty = in-process only)")
	cmd.Flags().StringVar(&flagRedisAddr, "redis", "", "Redis address for the trust store (overrides BadgerDB for trust)")
	cmd.Flags().StringVar(&flagRulesFile, "rules", "", "rules YAML to watch for hot reload (empty = embedded rules)")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed for persona pick and templates (0 = time-based)")
}

func runChatCommand(cmd *cobra.Command, args []string) error {
	comps, err := buildComponents()
	if err != nil {
		return err
	}
	defer comps.close()

	profile, err := comps.catalog.Lookup(flagPersona, comps.rng)
	if err != nil {
		return err
	}

	gender := flagBotGender
	if gender == "random" {
		if comps.rng.Intn(2) == 0 {
			gender = "female"
		} else {
			gender = "male"
		}
	}
	identity, err := profile.Identity(gender)
	if err != nil {
		return err
	}

	memoryID := flagMemoryID
	if memoryID == "" {
		memoryID = fmt.Sprintf("%s_%s", profile.ID, time.Now().Format("20060102"))
	}
	mem, err := memory.NewStore(memoryID, comps.db, comps.logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := session.New(ctx, session.Config{
		Profile:    profile,
		Identity:   identity,
		Style:      flagStyle,
		MemoryID:   memoryID,
		UserGender: flagUserGender,
		Attraction: flagAttraction,
		WindowSize: flagWindow,
	}, session.Deps{
		Gate:       comps.gate,
		Signals:    comps.signals,
		Chat:       comps.chat,
		TrustStore: comps.trustStore,
		Memory:     mem,
		Templates:  policy.NewTemplates(rand.New(rand.NewSource(comps.rng.Int63()))),
		Logger:     comps.logger,
	})
	if err != nil {
		return err
	}

	fmt.Println("Companion chat. Type 'exit' to quit.")
	fmt.Printf("[BOT] persona=%s name=%s gender=%s pronouns=%s erotic_openness=%.2f pace=%s boundary_strictness=%.2f\n",
		profile.ID, identity.Name, identity.Gender, identity.Pronouns,
		profile.EroticOpenness, profile.Pace, profile.BoundaryStrictness)
	fmt.Printf("[USER] user_gender=%s attraction=%s\n", flagUserGender, flagAttraction)
	fmt.Printf("[MEM] memory_id=%s items=%d\n", sess.MemoryID(), len(mem.Items()))
	fmt.Printf("[PHASE] phase=%s flirt=0.00 intimate=0.00 erotic=0.00\n\n", sess.PhaseState().Phase)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			fmt.Println("bot> Bye.")
			break
		}

		res, err := sess.RunTurn(ctx, line)
		if errors.Is(err, session.ErrEmptyInput) {
			continue
		}
		var backendErr *session.BackendError
		if err != nil && !errors.As(err, &backendErr) {
			return err
		}

		fmt.Printf("bot> %s\n", res.Reply)
		printTurnDiagnostics(res, backendErr != nil)

		if res.Terminated {
			fmt.Print("Press Enter to exit the chatbot.")
			scanner.Scan()
			break
		}
	}
	return scanner.Err()
}

func printTurnDiagnostics(res *session.TurnResult, degraded bool) {
	extra := ""
	if res.RuleHit {
		extra = fmt.Sprintf(" rule=%s", res.RuleID)
	}
	if res.Mode == policy.ModeSoftDeflect && len(res.DeflectReasons) > 0 {
		extra = fmt.Sprintf("%s deflect=%s", extra, strings.Join(res.DeflectReasons, ","))
	}
	if res.Mode == policy.ModeBlock && len(res.BlockReasons) > 0 {
		extra = fmt.Sprintf("%s block=%s", extra, strings.Join(res.BlockReasons, ","))
	}
	if degraded {
		extra += " degraded=true"
	}
	fmt.Printf("     [gate=%s p_move=%.3f thr=%.2f mode=%s%s]\n",
		res.Risk.Label, res.Risk.PMove, res.Risk.Threshold, res.Mode, extra)
	fmt.Printf("     [phase=%s flirt=%.2f intimate=%.2f erotic=%.2f]\n",
		res.Phase.Phase, res.Phase.FlirtScore, res.Phase.IntimacyScore, res.Phase.EroticScore)
	fmt.Printf("     [trust=%.2f tier=%s reason=%s]\n",
		res.Trust.Level, res.Trust.Tier(), res.Trust.LastReason)
	if len(res.NewFacts) > 0 {
		fmt.Printf("     [memory:+%d items]\n", len(res.NewFacts))
	}
	fmt.Println()
}
