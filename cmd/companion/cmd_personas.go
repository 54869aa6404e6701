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

	"github.com/AleutianAI/CompanionGate/services/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the built-in persona profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := persona.LoadBuiltin()
		if err != nil {
			return err
		}
		for _, p := range catalog.All() {
			fmt.Println(p.Summary())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(personasCmd)
}
