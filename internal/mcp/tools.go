package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/dshills/aecwatch/internal/indexer"
	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/internal/watcher"
	"github.com/dshills/aecwatch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound       = -32001 // No record for the requested path
	ErrorCodeScanInProgress = -32002 // Another scan is already running
)

// handleGetByPath handles the get_by_path tool invocation
func (s *Server) handleGetByPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	record, err := s.storage.GetByPath(ctx, filepath.Clean(path))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "no record for path", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get record", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := recordToMap(record)
	if getBoolDefault(args, "include_payload", false) && record.Payload != nil {
		if json.Valid(record.Payload) {
			response["payload"] = json.RawMessage(record.Payload)
		} else {
			response["payload"] = string(record.Payload)
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetByGroup handles the get_by_group tool invocation
func (s *Server) handleGetByGroup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	discipline, err := requireString(args, "discipline")
	if err != nil {
		return nil, err
	}
	sheet, err := requireString(args, "sheet")
	if err != nil {
		return nil, err
	}
	key := types.GroupKey{
		Project:    getStringDefault(args, "project", ""),
		Discipline: discipline,
		Sheet:      sheet,
	}

	records, err := s.storage.GetByGroup(ctx, key)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get group", map[string]interface{}{
			"error": err.Error(),
		})
	}

	current, _ := lo.Find(records, func(r *types.FileRecord) bool { return r.IsCurrent })
	response := map[string]interface{}{
		"group":     key.String(),
		"revisions": lo.Map(records, func(r *types.FileRecord, _ int) map[string]interface{} { return recordToMap(r) }),
		"count":     len(records),
	}
	if current != nil {
		response["current"] = current.Path
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCurrentRevisions handles the get_current_revisions tool invocation
func (s *Server) handleGetCurrentRevisions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	project, err := requireString(args, "project")
	if err != nil {
		return nil, err
	}

	records, err := s.storage.GetAllCurrentRevisions(ctx, project)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get current revisions", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"project": project,
		"sheets":  lo.Map(records, func(r *types.FileRecord, _ int) map[string]interface{} { return recordToMap(r) }),
		"count":   len(records),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListProjects handles the list_projects tool invocation
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list projects", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if projects == nil {
		projects = []string{}
	}

	response := map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleScanProject handles the scan_project tool invocation
func (s *Server) handleScanProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if !s.scanLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeScanInProgress, "a scan is already running", nil)
	}
	defer s.scanLock.Release()

	start := time.Now()
	paths, err := watcher.Walk(ctx, path, s.filter)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to walk directory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	result := s.pipeline.ProcessBatch(ctx, paths)
	_ = s.pipeline.RecordBatch(context.WithoutCancel(ctx), result, types.TriggerMCP, path)
	s.logger.Info("scan finished", "root", path, "files", len(paths), "batch", result.ID)

	response := map[string]interface{}{
		"scanned":     true,
		"batch_id":    result.ID.String(),
		"files_found": len(paths),
		"completed":   len(result.Completed),
		"skipped":     len(result.Skipped),
		"failed":      len(result.Failed),
		"retry":       len(result.Retry),
		"partial":     result.Partial(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if len(result.Errors) > 0 {
		// Include first few errors
		if len(result.Errors) > 5 {
			response["errors"] = result.Errors[:5]
			response["error_count"] = len(result.Errors)
		} else {
			response["errors"] = result.Errors
		}
	}
	if len(result.GroupErrors) > 0 {
		response["group_errors"] = lo.Map(result.GroupErrors, func(g indexer.GroupError, _ int) string {
			return fmt.Sprintf("%s: %v", g.Group, g.Err)
		})
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// DefaultStatusBatches is how many recent batches get_status reports
const DefaultStatusBatches = 5

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	project := getStringDefault(args, "project", "")
	limit := getIntDefault(args, "batches", DefaultStatusBatches)
	if limit < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batches must not be negative", map[string]interface{}{
			"param": "batches",
		})
	}

	counts, err := s.storage.CountByStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	byStatus := make(map[string]int, len(counts))
	total := 0
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}

	response := map[string]interface{}{
		"records":          total,
		"by_status":        byStatus,
		"scan_in_progress": s.scanLock.Held(),
	}

	if limit > 0 {
		batches, err := s.storage.ListBatches(ctx, limit)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list batches", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["recent_batches"] = lo.Map(batches, func(b *types.BatchRecord, _ int) map[string]interface{} { return batchToMap(b) })
	}

	if project != "" {
		stats, err := s.storage.ProjectStats(ctx, project)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get project statistics", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["project"] = statsToMap(stats)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// recordToMap renders a record for tool output. The payload is omitted;
// callers add it on request.
func recordToMap(r *types.FileRecord) map[string]interface{} {
	m := map[string]interface{}{
		"path":               r.Path,
		"digest":             r.Digest,
		"size_bytes":         r.SizeBytes,
		"modified_at":        r.ModTime.Format(time.RFC3339),
		"last_processed_at":  r.LastProcessedAt.Format(time.RFC3339),
		"project":            r.Project,
		"phase":              r.PhaseCode,
		"discipline":         r.DisciplineCode,
		"document_type":      r.DocTypeCode,
		"document_type_name": r.DocTypeName,
		"sheet":              r.Sheet,
		"revision":           r.Revision,
		"date_issued":        r.DateIssued,
		"confidence":         r.Confidence,
		"is_standard":        r.IsStandard,
		"naming_format":      string(r.NamingFormat),
		"status":             string(r.Status),
		"is_current":         r.IsCurrent,
	}
	if !r.CreatedAt.IsZero() {
		m["created_at"] = r.CreatedAt.Format(time.RFC3339)
	}
	if r.Error != nil {
		m["error"] = *r.Error
	}
	if r.PayloadWarning != nil {
		m["payload_warning"] = *r.PayloadWarning
	}
	return m
}

// requireString extracts a non-empty string parameter
func batchToMap(b *types.BatchRecord) map[string]interface{} {
	m := map[string]interface{}{
		"id":           b.ID,
		"trigger":      string(b.Trigger),
		"root":         b.Root,
		"started_at":   b.StartedAt.Format(time.RFC3339),
		"duration_ms":  b.Duration.Milliseconds(),
		"files":        b.Files,
		"completed":    b.Completed,
		"skipped":      b.Skipped,
		"failed":       b.Failed,
		"retried":      b.Retried,
		"group_errors": b.GroupErrors,
	}
	if len(b.Errors) > 0 {
		m["errors"] = b.Errors
	}
	return m
}

func statsToMap(st *types.ProjectStats) map[string]interface{} {
	return map[string]interface{}{
		"project":          st.Project,
		"total_files":      st.TotalFiles,
		"total_size_bytes": st.TotalSizeBytes,
		"current_sheets":   st.CurrentSheets,
		"by_status":        lo.MapKeys(st.ByStatus, func(_ int, s types.Status) string { return string(s) }),
		"by_discipline":    st.ByDiscipline,
		"by_extension":     st.ByExtension,
	}
}

func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
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

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
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

// getIntDefault extracts an integer parameter; JSON numbers arrive as float64
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
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

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
