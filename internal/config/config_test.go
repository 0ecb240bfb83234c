package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) Configuration {
	t.Helper()
	root := t.TempDir()
	return Default(
		filepath.Join(root, "anomaly"),
		filepath.Join(root, "modpack"),
		filepath.Join(root, "cache"),
	)
}

func TestDefault_SetsSpecDefaults(t *testing.T) {
	c := validConfig(t)
	assert.Equal(t, DefaultParallelDownloads, c.ParallelDownloads)
	assert.Equal(t, DefaultParallelExtractions, c.ParallelExtractions)
	assert.Equal(t, DefaultDownloadTimeoutSeconds, c.DownloadTimeoutS)
}

func TestValidate_AcceptsDefaultConfiguration(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidate_RejectsMissingPath(t *testing.T) {
	c := validConfig(t)
	c.AnomalyPath = ""
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestValidate_RejectsOutOfRangeParallelDownloads(t *testing.T) {
	c := validConfig(t)
	c.ParallelDownloads = 9
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestValidate_RejectsOutOfRangeParallelExtractions(t *testing.T) {
	c := validConfig(t)
	c.ParallelExtractions = 0
	err := c.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsOutOfRangeDownloadTimeout(t *testing.T) {
	c := validConfig(t)
	c.DownloadTimeoutS = 10
	err := c.Validate()
	require.Error(t, err)
}

func TestValidate_AllowsNonExistentPathWithWritableAncestor(t *testing.T) {
	c := validConfig(t)
	require.NoError(t, c.Validate(), "paths under a fresh TempDir() don't exist yet but their parent is writable")
}

func TestToFlatMap_FromFlatMap_RoundTrips(t *testing.T) {
	c := validConfig(t)
	c.ModManagerVersion = "v2.4.4"
	c.PreserveUserConfig = true
	c.ParallelDownloads = 6

	flat := c.ToFlatMap()
	assert.Equal(t, c.AnomalyPath, flat["anomaly_path"])
	assert.Equal(t, "v2.4.4", flat["mod_manager_version"])
	assert.Equal(t, "true", flat["preserve_user_config"])

	back, err := FromFlatMap(flat)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestFromFlatMap_MissingNumericFieldsUseDefaults(t *testing.T) {
	c, err := FromFlatMap(map[string]string{
		"anomaly_path": "/a",
		"modpack_path": "/m",
		"cache_path":   "/c",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultParallelDownloads, c.ParallelDownloads)
	assert.Equal(t, DefaultParallelExtractions, c.ParallelExtractions)
	assert.Equal(t, DefaultDownloadTimeoutSeconds, c.DownloadTimeoutS)
}

func TestFromFlatMap_RejectsUnparseableInt(t *testing.T) {
	_, err := FromFlatMap(map[string]string{
		"anomaly_path":       "/a",
		"modpack_path":       "/m",
		"cache_path":         "/c",
		"parallel_downloads": "not-a-number",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}
