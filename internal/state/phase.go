// Package state implements the InstallationPhase/InstallationState value
// objects (spec.md §3) and the single-writer Tracker that owns the
// mutable progress snapshot for one install run, invoking a
// caller-supplied observer synchronously on every update - the
// "ownership" rule from spec.md §3's Lifecycle/Ownership section.
package state

// InstallationPhase is the ordered enumeration an install run passes
// through, per spec.md §3.
type InstallationPhase int

const (
	NotStarted InstallationPhase = iota
	CheckingRequirements
	DownloadingAnomaly
	ExtractingAnomaly
	DownloadingModManager
	DownloadingDefinitions
	DownloadingMods
	ExtractingMods
	PatchingAnomaly
	ConfiguringModManager
	Finalizing
	Completed
	Failed
	Cancelled
)

func (p InstallationPhase) String() string {
	switch p {
	case NotStarted:
		return "NotStarted"
	case CheckingRequirements:
		return "CheckingRequirements"
	case DownloadingAnomaly:
		return "DownloadingAnomaly"
	case ExtractingAnomaly:
		return "ExtractingAnomaly"
	case DownloadingModManager:
		return "DownloadingModManager"
	case DownloadingDefinitions:
		return "DownloadingDefinitions"
	case DownloadingMods:
		return "DownloadingMods"
	case ExtractingMods:
		return "ExtractingMods"
	case PatchingAnomaly:
		return "PatchingAnomaly"
	case ConfiguringModManager:
		return "ConfiguringModManager"
	case Finalizing:
		return "Finalizing"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether p is one of the three terminal phases spec.md
// §3 names: once entered, an InstallationState may not leave it.
func (p InstallationPhase) IsTerminal() bool {
	return p == Completed || p == Failed || p == Cancelled
}
