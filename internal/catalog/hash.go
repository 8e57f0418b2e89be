package catalog

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// hashFile returns the hex BLAKE3-256 digest of the file at path.
func hashFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- canonical raw artifact path
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("calculating blake3 hash of %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
