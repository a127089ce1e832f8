// Package mcp implements the Model Context Protocol (MCP) server for aecwatch.
//
// The server exposes the metadata store to MCP clients as six tools:
//   - get_by_path: the stored record for one file
//   - get_by_group: every revision of one sheet, plus which is current
//   - get_current_revisions: the current revision of every sheet in a project
//   - list_projects: every project number seen
//   - scan_project: walk a directory once and process every accepted file
//   - get_status: record counts by processing status
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command and reads requests from stdin:
//
//	aecwatch serve --config aecwatch.yaml
//
// # Tool: get_by_group
//
//	Request:
//	{
//	  "name": "get_by_group",
//	  "arguments": {"project": "PROJ1", "discipline": "A", "sheet": "101"}
//	}
//
//	Response:
//	{
//	  "group": "PROJ1/A/101",
//	  "current": "/projects/PROJ1/PROJ1_CD_A_DWG_101_R2_020124.pdf",
//	  "count": 2,
//	  "revisions": [{"path": "...", "revision": "R1", "is_current": false, ...}]
//	}
//
// # Tool: scan_project
//
// Only one scan runs at a time; a second request while one is running fails
// with -32002 rather than queueing.
//
//	Response:
//	{
//	  "scanned": true,
//	  "batch_id": "5f0c...",
//	  "files_found": 412,
//	  "completed": 37,
//	  "skipped": 375,
//	  "failed": 0,
//	  "retry": 0,
//	  "partial": false,
//	  "duration_ms": 1840
//	}
//
// # Error Handling
//
// Handlers return *MCPError values, which the framework encodes as JSON-RPC
// errors:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: No record for the requested path
//   - -32002: Scan in progress
//
// # Logging
//
// stdout carries the protocol, so the serve command logs to stderr.
package mcp
