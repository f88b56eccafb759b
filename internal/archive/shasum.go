package archive

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Shasum returns the hex SHA-1 digest npm publishes as a tarball's shasum.
func Shasum(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ShasumFile hashes the file at path.
func ShasumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	h := sha1.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyShasum reports whether the file at path hashes to expected. An empty
// expected value always matches.
func VerifyShasum(path, expected string) (string, bool, error) {
	sum, err := ShasumFile(path)
	if err != nil {
		return "", false, err
	}
	if expected == "" {
		return sum, true, nil
	}
	return sum, strings.EqualFold(sum, expected), nil
}
