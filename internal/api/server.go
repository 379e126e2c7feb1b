// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api wires the management endpoints into a Gin engine and
// guards them with the management-key middleware.
package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/traylinx/channelforge/internal/api/handlers/management"
	"github.com/traylinx/channelforge/internal/buildinfo"
	"github.com/traylinx/channelforge/internal/config"
)

// Server hosts the management API.
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	handler *management.Handler
}

// New builds the router with middleware and routes registered.
func New(cfg *config.Config, handler *management.Handler) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{cfg: cfg, engine: engine, handler: handler}
	engine.Use(s.requestIDMiddleware())

	v1 := engine.Group("/v1/management", s.authMiddleware())
	{
		v1.GET("/channels", handler.ListChannels)
		v1.POST("/channels", handler.CreateChannel)
		v1.PUT("/channels", handler.UpdateChannel)
		v1.GET("/channels/:id", handler.GetChannel)
		v1.DELETE("/channels/:id", handler.DeleteChannel)
		v1.POST("/channels/fetch-models", handler.FetchUpstreamModels)
		v1.GET("/channels/:id/models", handler.FetchChannelModels)
		v1.GET("/models", handler.ListModels)
		v1.GET("/models/:type", handler.ListModelsForType)
		v1.GET("/groups", handler.ListGroups)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
	})
	return s
}

// Handler exposes the underlying engine for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()[:8]
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// authMiddleware checks the management key and, unless remote access is
// allowed, restricts the API to loopback clients.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.RemoteManagement.AllowRemote && !isLoopback(c.Request.RemoteAddr) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "remote_disabled", "message": "management API is restricted to localhost"})
			return
		}
		key := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !s.cfg.CheckManagementKey(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid management key"})
			return
		}
		c.Next()
	}
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
