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

import "github.com/gin-gonic/gin"

// SetupRoutes attaches every endpoint to the router.
func SetupRoutes(router *gin.Engine, s *Server) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/v1")
	{
		v1.GET("/personas", ListPersonas(s))

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", CreateSession(s))
			sessions.GET("/:sessionId", GetSession(s))
			sessions.POST("/:sessionId/turns", PostTurn(s))
		}
	}
}
