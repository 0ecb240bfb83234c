// Package ledger implements the resume ledger (SPEC_FULL.md §3.1): a small
// SQLite side-cache recording, per mod display name, its last verified
// hash, cached archive filename, and whether the install stage completed
// for it. It is consulted before any network call or re-extraction as a
// pure optimisation - a missing or corrupt ledger degrades to "verify/redo
// everything," never to incorrect output, since the filesystem itself
// remains the source of truth (cache file + hash, installed mod directory).
//
// Grounded on dizzyd-mcdex's MetaCache (metacache.go): a SQLite-backed
// table tracking installed files so updates skip re-downloading, with the
// same AddX/GetLastX query-method shape, generalised from mcdex's
// project-ID/file-ID keying to this installer's display-name keying. The
// optional JSON sidecar export (ExportSidecar) is built with gabs, the
// teacher's JSON container library, the same way mmc.go/modpack.go build
// their on-disk JSON documents.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jeffail/gabs"
	_ "github.com/mattn/go-sqlite3"
)

// Ledger wraps the sqlite3 database backing resume state.
type Ledger struct {
	db *sql.DB
}

// Open creates (if absent) and opens the ledger at path, mirroring
// OpenMetaCache's CREATE TABLE IF NOT EXISTS pattern.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: failed to create parent directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to open %s: %w", path, err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS mods (
		display_name TEXT PRIMARY KEY,
		archive_filename TEXT,
		verified_hash TEXT,
		installed INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: failed to create mods table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS repos (
		name TEXT PRIMARY KEY,
		resolved_version TEXT
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: failed to create repos table: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// ModRecord is one mod's resume bookkeeping.
type ModRecord struct {
	ArchiveFilename string
	VerifiedHash    string
	Installed       bool
}

// RecordVerifiedDownload upserts displayName's cached filename and hash
// after a successful download+verify, leaving its installed flag
// untouched (0 on first insert).
func (l *Ledger) RecordVerifiedDownload(displayName, archiveFilename, verifiedHash string) error {
	_, err := l.db.Exec(`INSERT INTO mods (display_name, archive_filename, verified_hash, installed)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(display_name) DO UPDATE SET
			archive_filename = excluded.archive_filename,
			verified_hash = excluded.verified_hash`,
		displayName, archiveFilename, verifiedHash)
	if err != nil {
		return fmt.Errorf("ledger: failed to record download for %s: %w", displayName, err)
	}
	return nil
}

// RecordInstalled marks displayName's install stage complete.
func (l *Ledger) RecordInstalled(displayName string) error {
	_, err := l.db.Exec(`INSERT INTO mods (display_name, installed) VALUES (?, 1)
		ON CONFLICT(display_name) DO UPDATE SET installed = 1`, displayName)
	if err != nil {
		return fmt.Errorf("ledger: failed to record install for %s: %w", displayName, err)
	}
	return nil
}

// Get returns displayName's ledger entry. The second return is false if no
// entry exists yet, which is the normal state for a mod never seen before.
func (l *Ledger) Get(displayName string) (ModRecord, bool, error) {
	var rec ModRecord
	var archiveFilename, verifiedHash sql.NullString
	var installed int

	err := l.db.QueryRow(`SELECT archive_filename, verified_hash, installed FROM mods WHERE display_name = ?`, displayName).
		Scan(&archiveFilename, &verifiedHash, &installed)
	switch {
	case err == sql.ErrNoRows:
		return ModRecord{}, false, nil
	case err != nil:
		return ModRecord{}, false, fmt.Errorf("ledger: failed to query %s: %w", displayName, err)
	}

	rec.ArchiveFilename = archiveFilename.String
	rec.VerifiedHash = verifiedHash.String
	rec.Installed = installed != 0
	return rec, true, nil
}

// RecordRepoVersion upserts the resolved version tag for a cloned
// definition repository (spec.md §4.11.1's version-stamp bookkeeping).
func (l *Ledger) RecordRepoVersion(name, resolvedVersion string) error {
	_, err := l.db.Exec(`INSERT INTO repos (name, resolved_version) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET resolved_version = excluded.resolved_version`,
		name, resolvedVersion)
	if err != nil {
		return fmt.Errorf("ledger: failed to record repo version for %s: %w", name, err)
	}
	return nil
}

// GetRepoVersion returns the last resolved version for a repository name,
// or "" if none is recorded.
func (l *Ledger) GetRepoVersion(name string) (string, error) {
	var version string
	err := l.db.QueryRow(`SELECT resolved_version FROM repos WHERE name = ?`, name).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		return "", nil
	case err != nil:
		return "", fmt.Errorf("ledger: failed to query repo %s: %w", name, err)
	}
	return version, nil
}

// ExportSidecar dumps the ledger's contents to a human-readable JSON
// document alongside the SQLite file, built with gabs the way the teacher
// builds manifest.json/mmc-pack.json in modpack.go/mmc.go. It is a
// convenience for inspecting resume state and is never read back by
// anything in this module - the SQLite tables remain the source of truth.
func (l *Ledger) ExportSidecar(path string) error {
	doc := gabs.New()
	if _, err := doc.Array("mods"); err != nil {
		return fmt.Errorf("ledger: failed to build sidecar: %w", err)
	}
	if _, err := doc.Array("repos"); err != nil {
		return fmt.Errorf("ledger: failed to build sidecar: %w", err)
	}

	modRows, err := l.db.Query(`SELECT display_name, archive_filename, verified_hash, installed FROM mods ORDER BY display_name`)
	if err != nil {
		return fmt.Errorf("ledger: failed to read mods for sidecar: %w", err)
	}
	defer modRows.Close()
	for modRows.Next() {
		var displayName string
		var archiveFilename, verifiedHash sql.NullString
		var installed int
		if err := modRows.Scan(&displayName, &archiveFilename, &verifiedHash, &installed); err != nil {
			return fmt.Errorf("ledger: failed to scan mod row for sidecar: %w", err)
		}
		if err := doc.ArrayAppend(map[string]interface{}{
			"display_name":     displayName,
			"archive_filename": archiveFilename.String,
			"verified_hash":    verifiedHash.String,
			"installed":        installed != 0,
		}, "mods"); err != nil {
			return fmt.Errorf("ledger: failed to append mod to sidecar: %w", err)
		}
	}
	if err := modRows.Err(); err != nil {
		return fmt.Errorf("ledger: failed to read mods for sidecar: %w", err)
	}

	repoRows, err := l.db.Query(`SELECT name, resolved_version FROM repos ORDER BY name`)
	if err != nil {
		return fmt.Errorf("ledger: failed to read repos for sidecar: %w", err)
	}
	defer repoRows.Close()
	for repoRows.Next() {
		var name, resolvedVersion string
		if err := repoRows.Scan(&name, &resolvedVersion); err != nil {
			return fmt.Errorf("ledger: failed to scan repo row for sidecar: %w", err)
		}
		if err := doc.ArrayAppend(map[string]interface{}{
			"name":             name,
			"resolved_version": resolvedVersion,
		}, "repos"); err != nil {
			return fmt.Errorf("ledger: failed to append repo to sidecar: %w", err)
		}
	}
	if err := repoRows.Err(); err != nil {
		return fmt.Errorf("ledger: failed to read repos for sidecar: %w", err)
	}

	if err := os.WriteFile(path, []byte(doc.StringIndent("", " ")), 0o644); err != nil {
		return fmt.Errorf("ledger: failed to write sidecar %s: %w", path, err)
	}
	return nil
}
