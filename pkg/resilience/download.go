package resilience

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// ErrFileTooLarge is raised when a stream exceeds maxBytes before EOF.
var ErrFileTooLarge = errors.New("resilience: file exceeds maximum allowed size")

// DownloadResult carries the bytes read so far (up to maxBytes) and their
// incremental SHA-256 checksum.
type DownloadResult struct {
	Data     []byte
	Checksum string
}

// CappedDownload reads r into memory, aborting with ErrFileTooLarge the
// instant more than maxBytes would be buffered — it never buffers the
// first byte past the cap. The checksum is computed incrementally as bytes
// arrive rather than after the fact.
func CappedDownload(r io.Reader, maxBytes int64) (DownloadResult, error) {
	hasher := sha256.New()
	buf := make([]byte, 0, minInt64(maxBytes, 1<<20))
	chunk := make([]byte, 32*1024)

	var total int64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return DownloadResult{}, ErrFileTooLarge
			}
			hasher.Write(chunk[:n])
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return DownloadResult{}, err
		}
	}

	return DownloadResult{Data: buf, Checksum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
