package main

import (
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/sam-maryland/espn-mcp-server/internal/config"
	"github.com/sam-maryland/espn-mcp-server/internal/mcp"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	// stdout carries the MCP protocol
	logger.SetOutput(os.Stderr)

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logger.WithError(err).Warn("Invalid LOG_LEVEL, keeping info")
		} else {
			logger.SetLevel(level)
		}
	}

	cfg, err := config.LoadLeagueSettings()
	if err != nil {
		logger.WithError(err).Warn("Failed to load league settings, using defaults")
		cfg = config.DefaultConfig()
	} else if cfg.Source != "" {
		logger.WithField("path", cfg.Source).Info("Loaded league settings")
	}

	mcpServer := mcp.NewESPNMCPServer(cfg, logger)
	if mcpServer == nil {
		logger.Fatal("Failed to create MCP server")
	}

	logger.Info("Starting ESPN Fantasy MCP Server...")

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
		os.Exit(1)
	}
}
