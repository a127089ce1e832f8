package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// getByPathTool returns the tool definition for get_by_path
func getByPathTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_by_path",
		Description: "Get the stored record for one file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the file",
				},
				"include_payload": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include the extracted content payload",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getByGroupTool returns the tool definition for get_by_group
func getByGroupTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_by_group",
		Description: "List every revision of one sheet, identified by project, discipline and sheet",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project number, e.g. PROJ1",
				},
				"discipline": map[string]interface{}{
					"type":        "string",
					"description": "Discipline code, e.g. A or M",
				},
				"sheet": map[string]interface{}{
					"type":        "string",
					"description": "Sheet number, e.g. 101",
				},
			},
			Required: []string{"discipline", "sheet"},
		},
	}
}

// getCurrentRevisionsTool returns the tool definition for get_current_revisions
func getCurrentRevisionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_current_revisions",
		Description: "List the current revision of every sheet in a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project number",
				},
			},
			Required: []string{"project"},
		},
	}
}

// listProjectsTool returns the tool definition for list_projects
func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List every project number seen so far",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// scanProjectTool returns the tool definition for scan_project
func scanProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_project",
		Description: "Walk a directory once and process every accepted file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project directory",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Count stored records by processing status, list recent batches and optionally summarize one project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project number to summarize by status, discipline and extension",
				},
				"batches": map[string]interface{}{
					"type":        "number",
					"description": "Number of recent batches to include (default: 5, 0 for none)",
					"default":     DefaultStatusBatches,
				},
			},
		},
	}
}
