package fetch

import (
	"os"

	"gammainstall/internal/hashutil"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func verifyExisting(path, expectedMD5 string) (bool, error) {
	return hashutil.Verify(path, expectedMD5)
}
