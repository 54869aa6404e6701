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
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/CompanionGate/services/api"
)

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversation API",
	Long: `Serves the session API: create sessions, post turns, inspect
state. Sessions share one gate, signal table, and chat backend.`,
	RunE: runServeCommand,
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddr, "listen", ":8089", "listen address")
	registerSharedFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	comps, err := buildComponents()
	if err != nil {
		return err
	}
	defer comps.close()

	srv, err := api.NewServer(api.ServerConfig{
		Catalog:    comps.catalog,
		Gate:       comps.gate,
		Signals:    comps.signals,
		Chat:       comps.chat,
		TrustStore: comps.trustStore,
		DB:         comps.db,
		Logger:     comps.logger,
		RNG:        comps.rng,
	})
	if err != nil {
		return err
	}

	router := gin.Default()
	api.SetupRoutes(router, srv)

	comps.logger.Info("Serving conversation API", "addr", flagListenAddr)
	return router.Run(flagListenAddr)
}
