package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/cardsift-mcp/internal/config"
	"github.com/dshills/cardsift-mcp/internal/extractor"
	"github.com/dshills/cardsift-mcp/internal/reporter"
	"github.com/dshills/cardsift-mcp/internal/scanner"
	"github.com/dshills/cardsift-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "cardsift-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the findings database
	DefaultDBPath = "~/.cardsift"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	config    *config.Config
	storage   storage.Storage
	extractor *extractor.Extractor
	scanner   *scanner.Scanner
	reporter  *reporter.Reporter
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	dbPath := cfg.DBPath

	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".cardsift")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "cardsift.db")

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create extractor
	ext := extractor.New()

	// Create scanner
	scn := scanner.New(store)

	// Create reporter
	rep := reporter.NewReporter(store)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		config:    cfg,
		storage:   store,
		extractor: ext,
		scanner:   scn,
		reporter:  rep,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Register scan_text tool
	s.mcp.AddTool(scanTextTool(), s.handleScanText)

	// Register validate_card tool
	s.mcp.AddTool(validateCardTool(), s.handleValidateCard)

	// Register scan_path tool
	s.mcp.AddTool(scanPathTool(), s.handleScanPath)

	// Register get_history tool
	s.mcp.AddTool(getHistoryTool(), s.handleGetHistory)

	// Register get_status tool
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
