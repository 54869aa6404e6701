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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CompanionGate/pkg/logging"
	"github.com/AleutianAI/CompanionGate/services/memory"
	"github.com/AleutianAI/CompanionGate/services/storage/badgerdb"
)

var (
	memoryDataDir string

	memoryCmd = &cobra.Command{
		Use:   "memory",
		Short: "Inspect or clear per-identity conversation memory",
	}

	memoryShowCmd = &cobra.Command{
		Use:   "show [memory-id]",
		Short: "Print the remembered facts for a memory id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openMemory(args[0])
			if err != nil {
				return err
			}
			defer db.Close()
			items := store.Items()
			if len(items) == 0 {
				fmt.Println("no facts stored")
				return nil
			}
			for _, item := range items {
				fmt.Printf("%s: %s (confidence=%.1f, last_seen=%s)\n",
					item.Key, item.Value, item.Confidence, item.LastSeen.Format("2006-01-02"))
			}
			return nil
		},
	}

	memoryClearCmd = &cobra.Command{
		Use:   "clear [memory-id]",
		Short: "Forget everything stored for a memory id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openMemory(args[0])
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Printf("cleared memory_id=%s\n", args[0])
			return nil
		},
	}
)

func openMemory(id string) (*memory.Store, interface{ Close() error }, error) {
	if memoryDataDir == "" {
		return nil, nil, fmt.Errorf("--data-dir is required")
	}
	logger := logging.Default()
	db, err := badgerdb.Open(badgerdb.Config{Path: memoryDataDir, Logger: logger.Slog()})
	if err != nil {
		return nil, nil, err
	}
	store, err := memory.NewStore(id, db, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

func init() {
	memoryCmd.PersistentFlags().StringVar(&memoryDataDir, "data-dir", "", "BadgerDB directory")
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}
