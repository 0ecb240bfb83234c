// Package config implements the Configuration value object (spec.md §3):
// the sole, immutable input handed to the orchestrator for one install
// run. The teacher has no configuration file of its own (MultiMC/mcdex
// is a one-shot CLI with flags only, per main.go); this package is built
// around the flat key/value (de)serialisation form spec.md §6 requires
// of the UI layer, using gabs the way the teacher uses it throughout
// modpack.go/util.go for its own JSON documents.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Jeffail/gabs"
)

// Bounds on the numeric fields, per spec.md §3.
const (
	MinParallelDownloads = 1
	MaxParallelDownloads = 8
	DefaultParallelDownloads = 4

	MinParallelExtractions = 1
	MaxParallelExtractions = 4
	DefaultParallelExtractions = 2

	MinDownloadTimeoutSeconds = 60
	MaxDownloadTimeoutSeconds = 600
	DefaultDownloadTimeoutSeconds = 300
)

// Configuration is the immutable input to an install run.
type Configuration struct {
	AnomalyPath string
	ModpackPath string
	CachePath   string

	ModManagerVersion string

	PreserveUserConfig bool
	ForceRepoRefetch   bool
	CheckHashes        bool
	DeleteExternalDLLs bool

	ParallelDownloads  int
	ParallelExtractions int
	DownloadTimeoutS   int
}

// Default returns a Configuration with every numeric field at its spec.md
// §3 default and the three paths set as given.
func Default(anomalyPath, modpackPath, cachePath string) Configuration {
	return Configuration{
		AnomalyPath:         anomalyPath,
		ModpackPath:         modpackPath,
		CachePath:           cachePath,
		ParallelDownloads:   DefaultParallelDownloads,
		ParallelExtractions: DefaultParallelExtractions,
		DownloadTimeoutS:    DefaultDownloadTimeoutSeconds,
		CheckHashes:         true,
	}
}

// Validate checks spec.md §3's invariants: the three paths must be
// writable (or creatable, for paths that don't exist yet) and the numeric
// fields must lie within their stated ranges.
func (c Configuration) Validate() error {
	for _, p := range []struct {
		name, path string
	}{
		{"anomaly_path", c.AnomalyPath},
		{"modpack_path", c.ModpackPath},
		{"cache_path", c.CachePath},
	} {
		if p.path == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfiguration, p.name)
		}
		if err := checkWritable(p.path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, p.name, err)
		}
	}

	if c.ParallelDownloads < MinParallelDownloads || c.ParallelDownloads > MaxParallelDownloads {
		return fmt.Errorf("%w: parallel_downloads must be between %d and %d, got %d",
			ErrInvalidConfiguration, MinParallelDownloads, MaxParallelDownloads, c.ParallelDownloads)
	}
	if c.ParallelExtractions < MinParallelExtractions || c.ParallelExtractions > MaxParallelExtractions {
		return fmt.Errorf("%w: parallel_extractions must be between %d and %d, got %d",
			ErrInvalidConfiguration, MinParallelExtractions, MaxParallelExtractions, c.ParallelExtractions)
	}
	if c.DownloadTimeoutS < MinDownloadTimeoutSeconds || c.DownloadTimeoutS > MaxDownloadTimeoutSeconds {
		return fmt.Errorf("%w: download_timeout_s must be between %d and %d, got %d",
			ErrInvalidConfiguration, MinDownloadTimeoutSeconds, MaxDownloadTimeoutSeconds, c.DownloadTimeoutS)
	}
	return nil
}

// checkWritable reports whether path is an existing writable directory, or
// (if absent) whether its nearest existing ancestor is.
func checkWritable(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return probeWritable(path)
	}
	if !os.IsNotExist(err) {
		return err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return fmt.Errorf("cannot resolve a writable ancestor for %s", path)
	}
	return checkWritable(parent)
}

func probeWritable(path string) error {
	probe := filepath.Join(path, ".gammainstall-write-check")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", path, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}

// ToFlatMap serialises c to a flat string/string document, keyed with the
// same field names spec.md §3 names them with, so the UI layer can persist
// it without knowing this module's internal representation.
func (c Configuration) ToFlatMap() map[string]string {
	doc := gabs.New()
	doc.SetP(c.AnomalyPath, "anomaly_path")
	doc.SetP(c.ModpackPath, "modpack_path")
	doc.SetP(c.CachePath, "cache_path")
	doc.SetP(c.ModManagerVersion, "mod_manager_version")
	doc.SetP(strconv.FormatBool(c.PreserveUserConfig), "preserve_user_config")
	doc.SetP(strconv.FormatBool(c.ForceRepoRefetch), "force_repo_refetch")
	doc.SetP(strconv.FormatBool(c.CheckHashes), "check_hashes")
	doc.SetP(strconv.FormatBool(c.DeleteExternalDLLs), "delete_external_dlls")
	doc.SetP(strconv.Itoa(c.ParallelDownloads), "parallel_downloads")
	doc.SetP(strconv.Itoa(c.ParallelExtractions), "parallel_extractions")
	doc.SetP(strconv.Itoa(c.DownloadTimeoutS), "download_timeout_s")

	flat := make(map[string]string)
	children, _ := doc.ChildrenMap()
	for key, child := range children {
		flat[key] = child.Data().(string)
	}
	return flat
}

// FromFlatMap rebuilds a Configuration from a document produced by
// ToFlatMap (or an equivalent hand-built map from the UI layer).
func FromFlatMap(flat map[string]string) (Configuration, error) {
	var c Configuration
	c.AnomalyPath = flat["anomaly_path"]
	c.ModpackPath = flat["modpack_path"]
	c.CachePath = flat["cache_path"]
	c.ModManagerVersion = flat["mod_manager_version"]

	var err error
	if c.PreserveUserConfig, err = parseBoolField(flat, "preserve_user_config"); err != nil {
		return Configuration{}, err
	}
	if c.ForceRepoRefetch, err = parseBoolField(flat, "force_repo_refetch"); err != nil {
		return Configuration{}, err
	}
	if c.CheckHashes, err = parseBoolField(flat, "check_hashes"); err != nil {
		return Configuration{}, err
	}
	if c.DeleteExternalDLLs, err = parseBoolField(flat, "delete_external_dlls"); err != nil {
		return Configuration{}, err
	}

	if c.ParallelDownloads, err = parseIntField(flat, "parallel_downloads", DefaultParallelDownloads); err != nil {
		return Configuration{}, err
	}
	if c.ParallelExtractions, err = parseIntField(flat, "parallel_extractions", DefaultParallelExtractions); err != nil {
		return Configuration{}, err
	}
	if c.DownloadTimeoutS, err = parseIntField(flat, "download_timeout_s", DefaultDownloadTimeoutSeconds); err != nil {
		return Configuration{}, err
	}
	return c, nil
}

func parseBoolField(flat map[string]string, key string) (bool, error) {
	v, ok := flat[key]
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, key, err)
	}
	return b, nil
}

func parseIntField(flat map[string]string, key string, def int) (int, error) {
	v, ok := flat[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, key, err)
	}
	return n, nil
}
