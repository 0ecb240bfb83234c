// Package orchestrator drives a single install() run end to end (spec.md
// §4.11): preflight, base game, mod manager, definition repositories, the
// mod pipeline, enabled-list emission, and finalisation, reporting
// progress through an internal/state.Tracker as it goes.
//
// Grounded on original_source/launcher/core/gamma/installer.py's
// GammaInstaller.install, the sequential phase-by-phase driver every other
// component in this module was built to be called from.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"gammainstall/internal/basegame"
	"gammainstall/internal/config"
	"gammainstall/internal/fetch"
	"gammainstall/internal/gitrepo"
	"gammainstall/internal/httpclient"
	"gammainstall/internal/ledger"
	"gammainstall/internal/manifest"
	"gammainstall/internal/moddb"
	"gammainstall/internal/modmanager"
	"gammainstall/internal/pipeline"
	"gammainstall/internal/state"
)

// Overall progress mapping, per spec.md §4.11: approximate, monotonic
// ranges handed to the state tracker at each phase transition.
const (
	progressPreflight  = 0.00
	progressAnomalyLo  = 0.05
	progressAnomalyHi  = 0.15
	progressMO2Lo      = 0.15
	progressMO2Hi      = 0.20
	progressDefsLo     = 0.20
	progressDefsHi     = 0.25
	progressDLModsLo   = 0.25
	progressDLModsHi   = 0.60
	progressInstModsLo = 0.60
	progressInstModsHi = 0.85
	progressCfgMgrLo   = 0.85
	progressCfgMgrHi   = 0.90
	progressFinaliseLo = 0.95
	progressFinaliseHi = 1.00
)

// minFreeSpaceBytes is the free-space preflight threshold spec.md §4.11
// step 1 names (100 GiB).
const minFreeSpaceBytes uint64 = 100 << 30

const (
	stalkerGammaURL    = "https://github.com/Grokitach/Stalker_GAMMA.git"
	gammaLargeFilesURL = "https://github.com/Grokitach/gamma_large_files_v2.git"
	stalkerGammaDir    = "Stalker_GAMMA"
	gammaLargeFilesDir = "gamma_large_files_v2"
	makerListFilename  = "gamma_mod_list.txt"
	orderListFilename  = "gamma_mod_order.txt"
)

// ErrPreflightFailed is returned when any preflight check (free space,
// path writability, missing git) fails; the run aborts before any download
// or install step (the writability probe itself creates the configured
// directories if they are absent).
var ErrPreflightFailed = fmt.Errorf("orchestrator: preflight check failed")

// ErrDefinitionsCloneFailed wraps a fatal definitions-repo clone/pull
// failure (spec.md §4.11 step 4: "Failure here is fatal").
var ErrDefinitionsCloneFailed = fmt.Errorf("orchestrator: failed to sync definition repositories")

// Options configures one Install run beyond what Configuration carries:
// whether to skip already-valid base-game/mod-manager installs, and the
// Wine user.ltx patch toggle (not part of Configuration itself, since
// spec.md §3 doesn't list it there - it's a per-run flag the UI passes
// alongside Configuration, the same way anomaly.py's install() takes it
// as a parameter rather than a stored field).
type Options struct {
	SkipIfValid bool
	WineMode    bool
}

// Orchestrator owns every sub-component for one install run. It holds no
// cross-references back to its caller, per spec.md §3's Ownership rule.
type Orchestrator struct {
	cfg       config.Configuration
	tracker   *state.Tracker
	ledger    *ledger.Ledger
	freeSpace func(path string) (uint64, error)
}

// New builds an Orchestrator for cfg, reporting InstallationState
// snapshots to observer (which may be nil) and consulting/updating the
// resume ledger at <cfg.CachePath>/ledger.db.
func New(cfg config.Configuration, observer state.Observer) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := ledger.Open(filepath.Join(cfg.CachePath, "ledger.db"))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to open resume ledger: %w", err)
	}

	return &Orchestrator{
		cfg:       cfg,
		tracker:   state.NewTracker(time.Now(), observer),
		ledger:    l,
		freeSpace: statfsFreeSpace,
	}, nil
}

// Close releases the resume ledger handle.
func (o *Orchestrator) Close() error {
	return o.ledger.Close()
}

// Install runs all phases in sequence and returns true on Completed, false
// on Failed/Cancelled - spec.md §4.11's exit contract. Detailed failure
// information is reachable via Snapshot().
func (o *Orchestrator) Install(ctx context.Context, opts Options) bool {
	if err := o.preflight(ctx); err != nil {
		o.fail(err)
		return false
	}

	timeout := time.Duration(o.cfg.DownloadTimeoutS) * time.Second
	scrapeClient := httpclient.New(true, timeout)
	noRedirectClient := httpclient.New(false, timeout)
	moddbFetcher := moddb.NewFetcher(scrapeClient, noRedirectClient)
	directFetcher := fetch.NewFetcher(scrapeClient)

	if err := o.installBaseGame(ctx, moddbFetcher, opts); err != nil {
		o.fail(err)
		return false
	}

	if err := o.installModManager(ctx, directFetcher, opts); err != nil {
		o.fail(err)
		return false
	}

	if err := o.syncDefinitions(ctx); err != nil {
		o.fail(err)
		return false
	}

	result, err := o.installMods(ctx, moddbFetcher, directFetcher)
	if err != nil {
		o.fail(err)
		return false
	}

	if err := o.configureModManager(result); err != nil {
		o.fail(err)
		return false
	}

	o.finalise(ctx)

	if err := o.tracker.Finish(state.Completed, time.Now()); err != nil {
		o.fail(err)
		return false
	}
	return true
}

func (o *Orchestrator) fail(err error) {
	_ = o.tracker.RecordError(err.Error())
	_ = o.tracker.Finish(state.Failed, time.Now())
}

// Snapshot returns the current InstallationState.
func (o *Orchestrator) Snapshot() state.InstallationState {
	return o.tracker.Snapshot()
}

func (o *Orchestrator) preflight(ctx context.Context) error {
	if err := o.tracker.SetPhase(state.CheckingRequirements, progressPreflight, "checking requirements"); err != nil {
		return err
	}

	for _, path := range []string{o.cfg.AnomalyPath, o.cfg.ModpackPath, o.cfg.CachePath} {
		if err := probeSentinel(path); err != nil {
			return fmt.Errorf("%w: %s is not writable: %v", ErrPreflightFailed, path, err)
		}
	}

	if free, err := o.freeSpace(o.cfg.ModpackPath); err == nil && free < minFreeSpaceBytes {
		return fmt.Errorf("%w: only %d bytes free at %s, need at least %d",
			ErrPreflightFailed, free, o.cfg.ModpackPath, minFreeSpaceBytes)
	}

	if err := gitrepo.CheckAvailable(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPreflightFailed, err)
	}
	return nil
}

// statfsFreeSpace reports free bytes on the volume containing path, via
// statfs(2) (Linux/macOS; the teacher's own cross-platform concerns don't
// reach this far since mcdex never checks disk space). Orchestrator.New
// wires this in as the default; tests substitute a fixed value instead of
// depending on the real free space of whatever machine runs them.
func statfsFreeSpace(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

func probeSentinel(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	sentinel := filepath.Join(path, ".gammainstall-write-check")
	f, err := os.Create(sentinel)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(sentinel)
}

func (o *Orchestrator) installBaseGame(ctx context.Context, moddbFetcher *moddb.Fetcher, opts Options) error {
	if err := o.tracker.SetPhase(state.DownloadingAnomaly, progressAnomalyLo, "installing base game"); err != nil {
		return err
	}

	installer := basegame.New(moddbFetcher)
	err := installer.Install(ctx, o.cfg.AnomalyPath, o.cfg.CachePath, basegame.Options{
		SkipIfValid: opts.SkipIfValid,
		WineMode:    opts.WineMode,
		DownloadProgress: func(downloaded, total int64) {
			o.reportFileProgress(downloaded, total)
		},
	})
	if err != nil {
		return fmt.Errorf("base game install failed: %w", err)
	}

	return o.tracker.SetPhase(state.ExtractingAnomaly, progressAnomalyHi, "base game ready")
}

func (o *Orchestrator) installModManager(ctx context.Context, directFetcher *fetch.Fetcher, opts Options) error {
	if err := o.tracker.SetPhase(state.DownloadingModManager, progressMO2Lo, "installing mod manager"); err != nil {
		return err
	}

	setup := modmanager.New(directFetcher)
	err := setup.Install(ctx, o.cfg.ModpackPath, o.cfg.AnomalyPath, o.cfg.CachePath, modmanager.Options{
		Version:     o.cfg.ModManagerVersion,
		SkipIfValid: opts.SkipIfValid,
		DownloadProgress: func(downloaded, total int64) {
			o.reportFileProgress(downloaded, total)
		},
	})
	if err != nil {
		return fmt.Errorf("mod manager install failed: %w", err)
	}

	return o.tracker.SetPhase(state.DownloadingModManager, progressMO2Hi, "mod manager ready")
}

func (o *Orchestrator) reportFileProgress(downloaded, total int64) {
	var fileProgress float64
	if total > 0 {
		fileProgress = float64(downloaded) / float64(total)
	}
	_ = o.tracker.SetCurrentFile("", &total, fileProgress)
}

func (o *Orchestrator) syncDefinitions(ctx context.Context) error {
	if err := o.tracker.SetPhase(state.DownloadingDefinitions, progressDefsLo, "syncing definition repositories"); err != nil {
		return err
	}

	repos := []struct {
		url, dir string
	}{
		{stalkerGammaURL, stalkerGammaDir},
		{gammaLargeFilesURL, gammaLargeFilesDir},
	}
	for _, r := range repos {
		path := filepath.Join(o.cfg.ModpackPath, r.dir)
		if o.cfg.ForceRepoRefetch {
			os.RemoveAll(path)
		}
		if err := gitrepo.CloneOrPull(ctx, r.url, path); err != nil {
			return fmt.Errorf("%w: %v", ErrDefinitionsCloneFailed, err)
		}
	}

	return o.tracker.SetPhase(state.DownloadingDefinitions, progressDefsHi, "definitions up to date")
}

func (o *Orchestrator) installMods(ctx context.Context, moddbFetcher *moddb.Fetcher, directFetcher *fetch.Fetcher) (pipeline.Result, error) {
	if err := o.tracker.SetPhase(state.DownloadingMods, progressDLModsLo, "parsing manifests"); err != nil {
		return pipeline.Result{}, err
	}

	records, err := o.loadManifest()
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("manifest parse failed: %w", err)
	}

	total := 0
	for _, rec := range records {
		if d, ok := rec.(manifest.Downloadable); ok && d.Enabled {
			total++
		}
	}
	if err := o.tracker.Update(func(s *state.InstallationState) { s.TotalMods = total }); err != nil {
		return pipeline.Result{}, err
	}

	modsRoot := filepath.Join(o.cfg.ModpackPath, "mods")
	p := pipeline.New(moddbFetcher, directFetcher, o.cfg.CachePath, modsRoot, o.ledger)

	result, err := p.Run(ctx, records, pipeline.Options{
		ParallelDownloads:   o.cfg.ParallelDownloads,
		ParallelExtractions: o.cfg.ParallelExtractions,
		DownloadProgress: func(displayName string, downloaded, fileTotal int64, completedCount int) {
			_ = o.tracker.SetPhase(state.DownloadingMods, downloadPhaseProgress(completedCount, total), fmt.Sprintf("downloading %s", displayName))
		},
		InstallProgress: func(displayName string, extracted, total int, completedCount int) {
			_ = o.tracker.SetPhase(state.ExtractingMods, installPhaseProgress(completedCount), fmt.Sprintf("installing %s", displayName))
		},
		Warn: func(msg string) {
			_ = o.tracker.RecordWarning(msg)
		},
	})
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("mod pipeline failed: %w", err)
	}

	if err := o.tracker.Update(func(s *state.InstallationState) {
		s.SeparatorCount = len(result.Separators)
		s.DownloadedMods = len(result.InstalledMods) + len(result.FailedMods)
		s.InstalledMods = len(result.InstalledMods) + len(result.Separators)
		s.FailedMods = result.FailedMods
	}); err != nil {
		return pipeline.Result{}, err
	}

	if err := o.tracker.SetPhase(state.ExtractingMods, progressInstModsHi, "mods installed"); err != nil {
		return pipeline.Result{}, err
	}
	return result, nil
}

func downloadPhaseProgress(completed, total int) float64 {
	if total <= 0 {
		return progressDLModsLo
	}
	frac := float64(completed) / float64(total)
	return progressDLModsLo + frac*(progressDLModsHi-progressDLModsLo)
}

func installPhaseProgress(completed int) float64 {
	// Without a reliable total here (the pipeline reports completedCount,
	// not completedCount/total), clamp to the stage's own range rather
	// than overshoot it; the tracker's monotonicity check still catches
	// any regression.
	frac := float64(completed) / float64(completed+1)
	p := progressInstModsLo + frac*(progressInstModsHi-progressInstModsLo)
	if p > progressInstModsHi {
		return progressInstModsHi
	}
	return p
}

func (o *Orchestrator) loadManifest() ([]manifest.Record, error) {
	orderPath := filepath.Join(o.cfg.ModpackPath, stalkerGammaDir, orderListFilename)
	orderFile, err := os.Open(orderPath)
	if err != nil {
		return nil, err
	}
	defer orderFile.Close()

	order, err := manifest.ParseOrderList(orderFile)
	if err != nil {
		return nil, err
	}

	makerPath := filepath.Join(o.cfg.ModpackPath, stalkerGammaDir, makerListFilename)
	makerFile, err := os.Open(makerPath)
	if err != nil {
		return nil, err
	}
	defer makerFile.Close()

	records, warnings, err := manifest.ParseMakerList(makerFile, &order)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		_ = o.tracker.RecordWarning(w)
	}
	return records, nil
}

func (o *Orchestrator) configureModManager(result pipeline.Result) error {
	if err := o.tracker.SetPhase(state.ConfiguringModManager, progressCfgMgrLo, "writing enabled-list"); err != nil {
		return err
	}

	names := make([]string, 0, len(result.InstalledMods)+len(result.Separators))
	names = append(names, result.InstalledMods...)
	names = append(names, result.Separators...)

	profileDir := filepath.Join(o.cfg.ModpackPath, "profiles", "GAMMA")
	if err := modmanager.GenerateModlist(profileDir, names, result.DisabledMods); err != nil {
		return fmt.Errorf("failed to write enabled-list: %w", err)
	}

	return o.tracker.SetPhase(state.ConfiguringModManager, progressCfgMgrHi, "enabled-list written")
}

func (o *Orchestrator) finalise(ctx context.Context) {
	_ = o.tracker.SetPhase(state.Finalizing, progressFinaliseLo, "finalising")

	repoPath := filepath.Join(o.cfg.ModpackPath, stalkerGammaDir)
	version := gitrepo.ResolveVersion(ctx, repoPath)
	_ = o.ledger.RecordRepoVersion(stalkerGammaDir, version)

	versionFile := filepath.Join(o.cfg.ModpackPath, "version.txt")
	if err := os.WriteFile(versionFile, []byte(version), 0o644); err != nil {
		_ = o.tracker.RecordWarning(fmt.Sprintf("could not write version.txt: %v", err))
	}

	_ = o.tracker.SetPhase(state.Finalizing, progressFinaliseHi, "done")
}
