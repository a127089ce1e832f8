package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/aecwatch/pkg/types"
)

// FileInfo is the payload written by FileInfoExtractor
type FileInfo struct {
	Name         string  `json:"file_name"`
	Extension    string  `json:"file_extension"`
	SizeBytes    int64   `json:"file_size_bytes"`
	SizeMB       float64 `json:"file_size_mb"`
	Modified     string  `json:"modified_time"`
	MimeType     string  `json:"mime_type,omitempty"`
	Directory    string  `json:"parent_directory"`
	Hidden       bool    `json:"is_hidden"`
	Permissions  string  `json:"permissions"`
	NamingFormat string  `json:"naming_format"`
	DocType      string  `json:"document_type,omitempty"`
}

// FileInfoExtractor records file system facts for any file
type FileInfoExtractor struct{}

func (FileInfoExtractor) Extract(ctx context.Context, path string, c types.Classification) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	payload := FileInfo{
		Name:         info.Name(),
		Extension:    ext,
		SizeBytes:    info.Size(),
		SizeMB:       float64(info.Size()) / (1024 * 1024),
		Modified:     info.ModTime().UTC().Format(time.RFC3339),
		MimeType:     mime.TypeByExtension(ext),
		Directory:    filepath.Dir(path),
		Hidden:       strings.HasPrefix(info.Name(), "."),
		Permissions:  fmt.Sprintf("%03o", info.Mode().Perm()),
		NamingFormat: string(c.Format()),
		DocType:      types.FieldsOf(c).DocTypeCode,
	}
	return json.Marshal(payload)
}
