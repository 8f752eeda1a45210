package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/cardsift-mcp/internal/extractor"
	"github.com/dshills/cardsift-mcp/internal/reporter"
	"github.com/dshills/cardsift-mcp/internal/scanner"
	"github.com/dshills/cardsift-mcp/internal/storage"
	"github.com/dshills/cardsift-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeScanFailure   = -32001 // Scan could not run or was aborted
	ErrorCodeNotFound      = -32002 // Requested scan or card not found
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// handleScanText handles the scan_text tool invocation
func (s *Server) handleScanText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	// Parse optional parameters
	includeNoCVV := getBoolDefault(args, "include_no_cvv", false)
	includeTrailing := getBoolDefault(args, "include_trailing", false)
	chunkSize := getIntDefault(args, "chunk_size", s.config.ChunkSize)
	maxDisplay := getIntDefault(args, "max_display", 0)
	persist := getBoolDefault(args, "persist", false)

	if chunkSize < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk_size must be positive", map[string]interface{}{
			"param": "chunk_size",
			"value": chunkSize,
		})
	}
	if maxDisplay < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_display must be positive", map[string]interface{}{
			"param": "max_display",
			"value": maxDisplay,
		})
	}

	if persist {
		// Store masked findings as a text-source scan
		cfg := &scanner.Config{
			ChunkSize:           chunkSize,
			IncludeNoCVV:        includeNoCVV,
			IncludeTrailingInfo: includeTrailing,
		}

		report, res, err := s.scanner.ScanText(ctx, text, cfg, maxDisplay)
		if err != nil {
			if errors.Is(err, scanner.ErrScanInProgress) {
				return nil, newMCPError(ErrorCodeScanFailure, "another scan is already running", nil)
			}
			return nil, newMCPError(ErrorCodeScanFailure, "scan failed", map[string]interface{}{
				"error": err.Error(),
			})
		}

		s.reporter.InvalidateCache()

		response := processResponse(res)
		response["scan_uid"] = report.ScanUID
		response["cards_stored"] = report.CardsFound
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	opts := extractor.Options{
		ChunkSize:           chunkSize,
		IncludeNoCVV:        includeNoCVV,
		IncludeTrailingInfo: includeTrailing,
		MaxDisplayResults:   maxDisplay,
	}

	result, err := s.extractor.ProcessText(text, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "extraction failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(processResponse(result))), nil
}

// handleValidateCard handles the validate_card tool invocation
func (s *Server) handleValidateCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	card, ok := args["card"].(string)
	if !ok || card == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "card parameter is required", map[string]interface{}{
			"param":  "card",
			"reason": "missing or empty",
		})
	}

	formatType := getStringDefault(args, "format_type", "auto")

	var record *types.CardRecord
	var parseErr error

	switch formatType {
	case "auto":
		// Try families in priority order, strictest first
		for _, format := range []types.Format{types.FormatWithCVV, types.FormatNoCVV, types.FormatTrailing} {
			record, parseErr = extractor.ParseRecord(card, format)
			if parseErr == nil {
				break
			}
		}
	case string(types.FormatWithCVV), string(types.FormatNoCVV), string(types.FormatTrailing):
		record, parseErr = extractor.ParseRecord(card, types.Format(formatType))
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid format_type", map[string]interface{}{
			"param":   "format_type",
			"value":   formatType,
			"allowed": []string{"auto", "with_cvv", "trailing", "no_cvv"},
		})
	}

	// Validation failures are results, not protocol errors
	if parseErr != nil {
		response := map[string]interface{}{
			"valid":  false,
			"reason": parseErr.Error(),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response := map[string]interface{}{
		"valid":         true,
		"format":        string(record.Format),
		"masked_number": record.Masked(),
		"expiry_month":  record.ExpiryMonth,
		"expiry_year":   record.ExpiryYear,
		"has_cvv":       record.CVV != "",
	}
	if record.Trailing != "" {
		response["trailing_info"] = record.Trailing
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleScanPath handles the scan_path tool invocation
func (s *Server) handleScanPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	// Validate path exists and is accessible
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	// Parse optional parameters
	cfg := &scanner.Config{
		Workers:             s.config.Workers,
		BatchSize:           s.config.BatchSize,
		ChunkSize:           getIntDefault(args, "chunk_size", s.config.ChunkSize),
		IncludeNoCVV:        getBoolDefault(args, "include_no_cvv", false),
		IncludeTrailingInfo: getBoolDefault(args, "include_trailing", false),
		IncludeHidden:       getBoolDefault(args, "include_hidden", s.config.IncludeHidden),
		Extensions:          getStringSlice(args, "extensions"),
	}

	maxFileMB := getIntDefault(args, "max_file_mb", s.config.MaxFileMB)
	if maxFileMB < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_file_mb must be positive", map[string]interface{}{
			"param": "max_file_mb",
			"value": maxFileMB,
		})
	}
	if maxFileMB > 0 {
		cfg.MaxFileBytes = int64(maxFileMB) << 20
	}

	// Run the scan
	report, err := s.scanner.ScanPath(ctx, path, cfg)
	if err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			return nil, newMCPError(ErrorCodeScanFailure, "another scan is already running", nil)
		}
		return nil, newMCPError(ErrorCodeScanFailure, "scan failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// New findings make cached details stale
	s.reporter.InvalidateCache()

	response := map[string]interface{}{
		"scan_uid":      report.ScanUID,
		"root_path":     report.RootPath,
		"files_scanned": report.FilesScanned,
		"files_skipped": report.FilesSkipped,
		"files_failed":  report.FilesFailed,
		"cards_found":   report.CardsFound,
		"total_hits":    report.TotalHits,
		"bytes_scanned": report.BytesScanned,
		"duration_ms":   report.Duration.Milliseconds(),
		"mb_per_second": fmt.Sprintf("%.2f", report.MBPerSecond()),
	}

	if len(report.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(report.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = report.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = report.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetHistory handles the get_history tool invocation
func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	// A scan_uid switches the tool to detail mode
	if scanUID := getStringDefault(args, "scan_uid", ""); scanUID != "" {
		return s.historyDetail(ctx, scanUID)
	}

	// A card switches the tool to identity lookup mode
	if card := getStringDefault(args, "card", ""); card != "" {
		return s.historyFindCard(ctx, card, getIntDefault(args, "limit", 0))
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	history, err := s.reporter.History(ctx, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list scans", map[string]interface{}{
			"error": err.Error(),
		})
	}

	scans := make([]map[string]interface{}, 0, len(history.Scans))
	for _, scan := range history.Scans {
		scans = append(scans, scanSummaryMap(scan))
	}

	response := map[string]interface{}{
		"scans": scans,
		"total": history.Total,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// historyDetail returns one scan with its masked findings
func (s *Server) historyDetail(ctx context.Context, scanUID string) (*mcp.CallToolResult, error) {
	detail, err := s.reporter.ScanDetail(ctx, reporter.DetailRequest{
		ScanUID:  scanUID,
		UseCache: true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "scan not found", map[string]interface{}{
				"scan_uid": scanUID,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to load scan", map[string]interface{}{
			"error": err.Error(),
		})
	}

	findings := make([]map[string]interface{}, 0, len(detail.Findings))
	for _, f := range detail.Findings {
		findings = append(findings, map[string]interface{}{
			"masked_number": f.MaskedNumber,
			"expiry_month":  f.ExpiryMonth,
			"expiry_year":   f.ExpiryYear,
			"format":        f.Format,
			"source_path":   f.SourcePath,
			"byte_offset":   f.ByteOffset,
		})
	}

	response := map[string]interface{}{
		"scan":     scanSummaryMap(detail.Scan),
		"findings": findings,
	}
	if detail.CacheHit {
		response["cache_hit"] = true
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// historyFindCard returns every recorded sighting of one card identity
func (s *Server) historyFindCard(ctx context.Context, card string, limit int) (*mcp.CallToolResult, error) {
	found, err := s.reporter.FindCard(ctx, reporter.FindCardRequest{
		Card:  card,
		Limit: limit,
	})
	if err != nil {
		if errors.Is(err, reporter.ErrInvalidCardQuery) {
			return nil, newMCPError(ErrorCodeInvalidParams, "card does not parse in any accepted format", map[string]interface{}{
				"param": "card",
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "card lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	occurrences := make([]map[string]interface{}, 0, len(found.Occurrences))
	for _, occ := range found.Occurrences {
		entry := map[string]interface{}{
			"scan_uid":    occ.ScanUID,
			"source_path": occ.SourcePath,
			"byte_offset": occ.ByteOffset,
			"seen_at":     occ.SeenAt.Format(timeLayout),
		}
		if occ.RootPath != "" {
			entry["root_path"] = occ.RootPath
		}
		occurrences = append(occurrences, entry)
	}

	response := map[string]interface{}{
		"masked_number": found.MaskedNumber,
		"expiry_month":  found.ExpiryMonth,
		"expiry_year":   found.ExpiryYear,
		"occurrences":   occurrences,
		"total":         found.Total,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.reporter.Summary(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	database := map[string]interface{}{
		"scans_count":      summary.ScansCount,
		"findings_count":   summary.FindingsCount,
		"distinct_cards":   summary.DistinctCards,
		"per_format":       summary.PerFormat,
		"database_size_mb": fmt.Sprintf("%.2f", summary.DatabaseSizeMB),
	}
	if !summary.LastScanAt.IsZero() {
		database["last_scan_at"] = summary.LastScanAt.Format(timeLayout)
	}

	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":       ServerName,
			"version":    ServerVersion,
			"driver":     storage.DriverName,
			"build_mode": storage.BuildMode,
		},
		"database": database,
		"health": map[string]interface{}{
			"database_accessible": summary.DatabaseAccessible,
			"schema_current":      summary.SchemaCurrent,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// processResponse maps an extraction result to its response form
func processResponse(result *types.ProcessResult) map[string]interface{} {
	return map[string]interface{}{
		"display":     result.Display,
		"displayed":   len(result.Display),
		"total_count": result.TotalCount,
		"export":      result.Export,
	}
}

// scanSummaryMap maps a scan summary to its response form
func scanSummaryMap(scan reporter.ScanSummary) map[string]interface{} {
	entry := map[string]interface{}{
		"scan_uid":         scan.ScanUID,
		"source":           scan.Source,
		"include_no_cvv":   scan.IncludeNoCVV,
		"include_trailing": scan.IncludeTrailing,
		"files_scanned":    scan.FilesScanned,
		"files_skipped":    scan.FilesSkipped,
		"files_failed":     scan.FilesFailed,
		"cards_found":      scan.CardsFound,
		"bytes_scanned":    scan.BytesScanned,
		"started_at":       scan.StartedAt.Format(timeLayout),
	}
	if scan.RootPath != "" {
		entry["root_path"] = scan.RootPath
	}
	if !scan.CompletedAt.IsZero() {
		entry["completed_at"] = scan.CompletedAt.Format(timeLayout)
	}
	return entry
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is accessible
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	// Check if path is absolute
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	// Check if path exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	// Directories must be openable; single files are scanned as-is
	if info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return ErrPathNotReadable
		}
		_ = f.Close()
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
