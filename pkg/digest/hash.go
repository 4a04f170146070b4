package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the read size used when streaming content into the hash.
const ChunkSize = 4096

// ForFile computes the content hash of the regular file at path.
func ForFile(path string) (Sum, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("unsupported file type at %s (%s)", path, info.Mode().String())
	}

	sum, err := ForReader(f)
	if err != nil {
		return "", fmt.Errorf("hash file %s: %w", path, err)
	}
	return sum, nil
}

// ForReader hashes everything r yields, reading at most ChunkSize bytes at a time.
func ForReader(r io.Reader) (Sum, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return Sum(hex.EncodeToString(h.Sum(nil))), nil
}
