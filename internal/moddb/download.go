package moddb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"gammainstall/internal/hashutil"
	"gammainstall/internal/httpclient"
	"gammainstall/internal/retry"
)

const downloadChunkSize = 1024 * 1024 // 1 MiB, per spec.md §4.5

// ProgressFunc reports (bytes_downloaded, total_bytes_or_zero), matching
// moddb.py's progress_callback signature. total is 0 when the server omits
// Content-Length.
type ProgressFunc func(downloaded, total int64)

// DownloadFile streams url to outputPath in downloadChunkSize pieces,
// optionally verifying expectedMD5 on completion. On a non-2xx response, a
// network error, or a hash mismatch it deletes any partial/complete
// destination file so a subsequent retry starts clean (spec.md §4.5). The
// whole operation is wrapped in retry.Do by the caller (Fetch); this
// function performs exactly one attempt.
func DownloadFile(client *http.Client, url, outputPath string, expectedMD5 string, progress ProgressFunc) error {
	resp, err := httpclient.Get(client, url)
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		os.Remove(outputPath)
		return fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if err := streamToFile(resp.Body, outputPath, resp.ContentLength, progress); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if expectedMD5 != "" {
		ok, err := hashutil.VerifyAndCleanup(outputPath, expectedMD5)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		if !ok {
			return ErrHashMismatch
		}
	}

	return nil
}

func streamToFile(body io.Reader, outputPath string, totalSize int64, progress ProgressFunc) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if totalSize < 0 {
		totalSize = 0
	}

	buf := make([]byte, downloadChunkSize)
	var downloaded int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, totalSize)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// DownloadFileWithRetry wraps DownloadFile in the shared retry policy
// (spec.md §4.6: exponential backoff, at most 3 attempts).
func DownloadFileWithRetry(ctx context.Context, client *http.Client, url, outputPath, expectedMD5 string, progress ProgressFunc) error {
	return retry.Do(ctx, func(attempt int) error {
		return DownloadFile(client, url, outputPath, expectedMD5, progress)
	})
}
