// Package mcp implements the Model Context Protocol (MCP) server for cardsift.
//
// The MCP server exposes five tools to AI coding assistants and DLP tooling:
//   - scan_text: Extract card-format records from a block of text
//   - validate_card: Validate a single pipe-delimited record
//   - scan_path: Scan a file or directory tree and record masked findings
//   - get_history: Recent scans, scan detail, or card-identity lookup
//   - get_status: Database statistics, build information and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output,
// making it simple to integrate with any MCP-compatible client.
//
// # Tool: scan_text
//
// Extract card-format records from text:
//
//	Request:
//	{
//	  "name": "scan_text",
//	  "arguments": {
//	    "text": "dump: 4111111111111111|01|2025|123 ...",
//	    "include_no_cvv": false,
//	    "include_trailing": false,
//	    "max_display": 100
//	  }
//	}
//
//	Response:
//	{
//	  "display": ["4111111111111111|01|2025|123"],
//	  "displayed": 1,
//	  "total_count": 1,
//	  "export": "4111111111111111|01|2025|123\n"
//	}
//
// The display list is capped at max_display; total_count and the export
// buffer always reflect every accepted record. With "persist": true the
// masked findings are also recorded as a text-source scan and the
// response carries the scan_uid.
//
// # Tool: validate_card
//
// Validate one candidate record:
//
//	Request:
//	{
//	  "name": "validate_card",
//	  "arguments": {
//	    "card": "4111111111111111|01|2025|123",
//	    "format_type": "auto"
//	  }
//	}
//
//	Response:
//	{
//	  "valid": true,
//	  "format": "with_cvv",
//	  "masked_number": "411111******1111",
//	  "expiry_month": "01",
//	  "expiry_year": "2025",
//	  "has_cvv": true
//	}
//
// An invalid record is a successful tool call with "valid": false and a
// "reason" string, not a protocol error.
//
// # Tool: scan_path
//
// Scan a file or directory tree:
//
//	Request:
//	{
//	  "name": "scan_path",
//	  "arguments": {
//	    "path": "/var/dumps",
//	    "include_no_cvv": true,
//	    "extensions": [".txt", ".sql"]
//	  }
//	}
//
//	Response:
//	{
//	  "scan_uid": "f3b0c442-...",
//	  "files_scanned": 42,
//	  "files_skipped": 3,
//	  "files_failed": 0,
//	  "cards_found": 17,
//	  "total_hits": 23,
//	  "bytes_scanned": 10485760,
//	  "duration_ms": 412,
//	  "mb_per_second": "24.27"
//	}
//
// Findings are stored masked: first 6 + last 4 digits plus an identity
// hash. Raw numbers, CVVs and trailing info never reach the database.
//
// # Tool: get_history
//
// One tool, three modes:
//
//	{"arguments": {"limit": 10}}                      → recent scans
//	{"arguments": {"scan_uid": "f3b0c442-..."}}       → one scan's findings
//	{"arguments": {"card": "4111111111111111|01|2025"}} → identity lookup
//
// The identity lookup hashes the query in memory and searches by hash,
// so the raw number is never written anywhere.
//
// # Tool: get_status
//
// Check database statistics:
//
//	Response:
//	{
//	  "server": {"name": "cardsift-mcp", "version": "1.0.0", "driver": "sqlite3", "build_mode": "cgo"},
//	  "database": {
//	    "scans_count": 12,
//	    "findings_count": 340,
//	    "distinct_cards": 288,
//	    "per_format": {"with_cvv": 310, "no_cvv": 30},
//	    "database_size_mb": "1.24"
//	  },
//	  "health": {"database_accessible": true, "schema_current": true}
//	}
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "path",
//	      "reason": "path does not exist"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Scan failure (aborted run, scan already in progress)
//   - -32002: Not found (unknown scan_uid)
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "cardsift": {
//	      "command": "/usr/local/bin/cardsift",
//	      "env": {
//	        "CARDSIFT_DB_PATH": "/var/lib/cardsift"
//	      }
//	    }
//	  }
//	}
//
// # Logging
//
// The MCP server logs to stderr; stdout is reserved for the protocol.
package mcp
