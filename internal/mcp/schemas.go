package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// scanTextTool returns the tool definition for scan_text
func scanTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_text",
		Description: "Extract card-format records from a block of text, returning a capped display list, a true total and a full export buffer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to scan for card-format records",
				},
				"include_no_cvv": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also match records with an empty CVV field (number|MM|YYYY|)",
					"default":     false,
				},
				"include_trailing": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also match records with arbitrary trailing info after the year",
					"default":     false,
				},
				"chunk_size": map[string]interface{}{
					"type":        "integer",
					"description": "Characters per extraction window (default 10000)",
					"default":     10000,
				},
				"max_display": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum records in the display list; the export buffer is never capped (default 100)",
					"default":     100,
				},
				"persist": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, record masked findings in scan history",
					"default":     false,
				},
			},
			Required: []string{"text"},
		},
	}
}

// validateCardTool returns the tool definition for validate_card
func validateCardTool() mcp.Tool {
	return mcp.Tool{
		Name:        "validate_card",
		Description: "Validate a single pipe-delimited card record and return its parsed, masked fields",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"card": map[string]interface{}{
					"type":        "string",
					"description": "Candidate record, e.g. 4111111111111111|01|2025|123",
				},
				"format_type": map[string]interface{}{
					"type":        "string",
					"description": "Record family to validate against, or auto to try all in priority order",
					"enum":        []string{"auto", "with_cvv", "trailing", "no_cvv"},
					"default":     "auto",
				},
			},
			Required: []string{"card"},
		},
	}
}

// scanPathTool returns the tool definition for scan_path
func scanPathTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_path",
		Description: "Scan a file or directory tree for card-format records and record masked findings in scan history",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the file or directory to scan",
				},
				"include_no_cvv": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also match records with an empty CVV field",
					"default":     false,
				},
				"include_trailing": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also match records with arbitrary trailing info",
					"default":     false,
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, descend into hidden files and directories",
					"default":     false,
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "File extensions to scan (default .txt .log .csv .sql .json .dump)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"max_file_mb": map[string]interface{}{
					"type":        "integer",
					"description": "Skip files larger than this many megabytes (default 64)",
				},
				"chunk_size": map[string]interface{}{
					"type":        "integer",
					"description": "Characters per extraction window (default 10000)",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getHistoryTool returns the tool definition for get_history
func getHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_history",
		Description: "List recent scans, show one scan's masked findings, or look up every sighting of a card identity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of scans or occurrences to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"scan_uid": map[string]interface{}{
					"type":        "string",
					"description": "If set, return this scan's detail with its masked findings",
				},
				"card": map[string]interface{}{
					"type":        "string",
					"description": "If set, return every recorded sighting of this card identity (record string or number|MM|YYYY)",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report findings database statistics, build information and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
