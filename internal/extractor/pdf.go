package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/dshills/aecwatch/pkg/types"
)

const pdfHeaderSize = 1024

var pdfVersion = regexp.MustCompile(`%PDF-(\d\.\d)`)

// PDFHeader is the payload written by PDFHeaderExtractor
type PDFHeader struct {
	Version    string `json:"pdf_version"`
	Linearized bool   `json:"linearized"`
}

// PDFHeaderExtractor reads the PDF version from the first kilobyte. A file
// without a PDF signature is an extraction error.
type PDFHeaderExtractor struct{}

func (PDFHeaderExtractor) Extract(ctx context.Context, path string, _ types.Classification) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, pdfHeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	header = header[:n]

	m := pdfVersion.FindSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%s: missing PDF signature", path)
	}
	return json.Marshal(PDFHeader{
		Version:    string(m[1]),
		Linearized: bytes.Contains(header, []byte("/Linearized")),
	})
}
