package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/dshills/aecwatch/pkg/types"
)

// chunkSize bounds memory per file regardless of file size
const chunkSize = 64 * 1024

// Fingerprint computes the SHA-256 digest of path, reading it in fixed-size
// chunks and checking ctx between chunks. Open, stat and read failures are
// returned as *types.IOError so the caller can retry in a later batch.
func Fingerprint(ctx context.Context, path string) (types.Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.Fingerprint{}, &types.IOError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return types.Fingerprint{}, &types.IOError{Path: path, Op: "stat", Err: err}
	}

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return types.Fingerprint{}, err
		}
		n, err := file.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.Fingerprint{}, &types.IOError{Path: path, Op: "read", Err: err}
		}
	}

	return types.Fingerprint{
		Path:      path,
		Digest:    hex.EncodeToString(hash.Sum(nil)),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		BirthTime: birthTime(path, info),
	}, nil
}
