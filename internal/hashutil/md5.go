// Package hashutil streams an MD5 digest over a file for integrity
// verification, per spec.md §4.4.
package hashutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const chunkSize = 256 * 1024

// MD5File computes the lowercase hex MD5 digest of the file at path,
// streaming it in chunkSize pieces rather than reading it whole into memory.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether the file at path MD5s to expectedHex, comparing
// case-insensitively.
func Verify(path, expectedHex string) (bool, error) {
	actual, err := MD5File(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expectedHex), nil
}

// VerifyAndCleanup behaves like Verify but deletes the file on mismatch, so
// a caller's retry logic never observes a corrupt cached artifact (spec.md
// §4.4's "deleted before the error is reported" rule).
func VerifyAndCleanup(path, expectedHex string) (bool, error) {
	ok, err := Verify(path, expectedHex)
	if err != nil {
		return false, err
	}
	if !ok {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return false, fmt.Errorf("hash mismatch for %s, and failed to remove it: %w", path, rmErr)
		}
	}
	return ok, nil
}
