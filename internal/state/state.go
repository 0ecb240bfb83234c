package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xeonx/timeago"
)

// ErrInvalidTransition is returned by Tracker.Update when a mutation would
// violate one of InstallationState's invariants.
var ErrInvalidTransition = errors.New("state: invalid installation state transition")

// InstallationState is the mutable progress snapshot for one install run,
// per spec.md §3.
type InstallationState struct {
	Phase            InstallationPhase
	PhaseProgress    float64
	OverallProgress  float64
	CurrentOperation string

	CurrentFile         string
	CurrentFileSize     *int64
	CurrentFileProgress float64

	TotalMods      int
	DownloadedMods int
	InstalledMods  int
	SeparatorCount int
	FailedMods     []string

	StartTime time.Time
	EndTime   *time.Time

	Errors   []string
	Warnings []string
}

// Elapsed returns how long the run has been going as of now: from
// StartTime to EndTime if the run has finished, else to now.
func (s InstallationState) Elapsed(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// ElapsedFriendly renders StartTime relative to the current wall-clock time
// ("5 minutes ago"), the same human-readable form the teacher's cmdDBUpdate
// prints with timeago.English.Format. It does not use now or EndTime, so for
// a finished run it is not the same span as Elapsed.
func (s InstallationState) ElapsedFriendly(now time.Time) string {
	return timeago.English.Format(s.StartTime)
}

// RemainingEstimate linearly extrapolates remaining time from elapsed time
// and OverallProgress: if p is the fraction complete after duration e, the
// total run is estimated at e/p, leaving e/p - e remaining. Returns 0 when
// progress is 0 (nothing to extrapolate from yet) or the state is already
// terminal.
func (s InstallationState) RemainingEstimate(now time.Time) time.Duration {
	if s.Phase.IsTerminal() || s.OverallProgress <= 0 {
		return 0
	}
	elapsed := s.Elapsed(now)
	total := time.Duration(float64(elapsed) / s.OverallProgress)
	if total < elapsed {
		return 0
	}
	return total - elapsed
}

// Observer receives a consistent InstallationState snapshot after every
// successful Tracker.Update call. It is a single-consumer contract per
// spec.md §3's Ownership section - normally the UI layer.
type Observer func(InstallationState)

// Tracker is the sole owner and sole writer of an InstallationState for
// one install run. Update serialises concurrent callers behind a mutex,
// standing in for spec.md §5's channel-to-coordinator design: pipeline
// workers call back into a Tracker from several goroutines at once, and
// only one mutation (plus its observer notification) may be in flight at
// a time.
type Tracker struct {
	mu       sync.Mutex
	state    InstallationState
	observer Observer
}

// NewTracker creates a Tracker in phase NotStarted, with StartTime set to
// now. observer may be nil.
func NewTracker(now time.Time, observer Observer) *Tracker {
	return &Tracker{
		state: InstallationState{
			Phase:     NotStarted,
			StartTime: now,
		},
		observer: observer,
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() InstallationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Update applies mutate to a copy of the current state, validates the
// resulting transition, and - only if it's valid - commits it and invokes
// the observer synchronously with the new snapshot. An invalid transition
// leaves the tracked state unchanged and returns ErrInvalidTransition.
func (t *Tracker) Update(mutate func(*InstallationState)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state
	mutate(&next)
	if err := validateTransition(t.state, next); err != nil {
		return err
	}
	t.state = next
	if t.observer != nil {
		t.observer(next)
	}
	return nil
}

func validateTransition(prev, next InstallationState) error {
	if prev.Phase.IsTerminal() && next.Phase != prev.Phase {
		return fmt.Errorf("%w: cannot leave terminal phase %s", ErrInvalidTransition, prev.Phase)
	}
	if next.OverallProgress < prev.OverallProgress {
		return fmt.Errorf("%w: overall_progress must be monotone non-decreasing (%.4f -> %.4f)",
			ErrInvalidTransition, prev.OverallProgress, next.OverallProgress)
	}
	if next.OverallProgress < 0 || next.OverallProgress > 1 {
		return fmt.Errorf("%w: overall_progress out of [0,1]: %.4f", ErrInvalidTransition, next.OverallProgress)
	}
	if next.PhaseProgress < 0 || next.PhaseProgress > 1 {
		return fmt.Errorf("%w: phase_progress out of [0,1]: %.4f", ErrInvalidTransition, next.PhaseProgress)
	}
	if next.DownloadedMods > next.TotalMods {
		return fmt.Errorf("%w: downloaded_mods (%d) exceeds total_mods (%d)",
			ErrInvalidTransition, next.DownloadedMods, next.TotalMods)
	}
	if next.InstalledMods > next.DownloadedMods+next.SeparatorCount {
		return fmt.Errorf("%w: installed_mods (%d) exceeds downloaded_mods+separators (%d)",
			ErrInvalidTransition, next.InstalledMods, next.DownloadedMods+next.SeparatorCount)
	}
	return nil
}

// SetPhase moves to phase with the given overall/phase progress and
// human-readable current operation, through the Update contract.
func (t *Tracker) SetPhase(phase InstallationPhase, overallProgress float64, operation string) error {
	return t.Update(func(s *InstallationState) {
		s.Phase = phase
		s.OverallProgress = overallProgress
		s.PhaseProgress = 0
		s.CurrentOperation = operation
	})
}

// SetCurrentFile records which file is currently being downloaded or
// extracted, and its progress toward fileSize (fileSize may be nil when
// unknown, e.g. before the response headers arrive).
func (t *Tracker) SetCurrentFile(name string, fileSize *int64, fileProgress float64) error {
	return t.Update(func(s *InstallationState) {
		s.CurrentFile = name
		s.CurrentFileSize = fileSize
		s.CurrentFileProgress = fileProgress
	})
}

// RecordDownloaded increments DownloadedMods by one.
func (t *Tracker) RecordDownloaded() error {
	return t.Update(func(s *InstallationState) {
		s.DownloadedMods++
	})
}

// RecordInstalled increments InstalledMods by one.
func (t *Tracker) RecordInstalled() error {
	return t.Update(func(s *InstallationState) {
		s.InstalledMods++
	})
}

// RecordFailedMod appends displayName to FailedMods.
func (t *Tracker) RecordFailedMod(displayName string) error {
	return t.Update(func(s *InstallationState) {
		s.FailedMods = append(s.FailedMods, displayName)
	})
}

// RecordError appends msg to Errors.
func (t *Tracker) RecordError(msg string) error {
	return t.Update(func(s *InstallationState) {
		s.Errors = append(s.Errors, msg)
	})
}

// RecordWarning appends msg to Warnings.
func (t *Tracker) RecordWarning(msg string) error {
	return t.Update(func(s *InstallationState) {
		s.Warnings = append(s.Warnings, msg)
	})
}

// Finish transitions to a terminal phase (Completed, Failed, or
// Cancelled), stamping EndTime.
func (t *Tracker) Finish(phase InstallationPhase, now time.Time) error {
	return t.Update(func(s *InstallationState) {
		s.Phase = phase
		if phase == Completed {
			s.OverallProgress = 1
		}
		end := now
		s.EndTime = &end
	})
}
