package release

import (
	"strings"
	"sync/atomic"
)

// Extension describes an edition's dependency on the international
// release. Extension builds merge the equivalent international Delta into
// each table so the edition's Full and Snapshot carry international
// content.
type Extension struct {
	// DependencyPackage is the published international package id.
	DependencyPackage string `json:"dependency_package"`
	// DependencyEffectiveTime is the effective time of that package,
	// used to locate the equivalent international file names.
	DependencyEffectiveTime string `json:"dependency_effective_time"`
	// PreviousEffectiveTime is the cutoff below which international
	// rows are already part of the edition's published history and must
	// not be re-imported.
	PreviousEffectiveTime string `json:"previous_effective_time"`
}

// Build is the per-build context supplied by the orchestration layer.
type Build struct {
	// ID is the build's storage key.
	ID string `json:"id"`
	// EffectiveTime is the release date being built (yyyyMMdd).
	EffectiveTime string `json:"effective_time"`
	// FirstTimeRelease marks a build with no published history at all.
	FirstTimeRelease bool `json:"first_time_release"`
	// PreviousPackage is the published package id to reconcile against.
	PreviousPackage string `json:"previous_package"`
	// WorkbenchFixes enables the legacy data repair passes.
	WorkbenchFixes bool `json:"workbench_fixes"`
	// NewFiles lists delta files with no counterpart in the previous
	// package; they are treated as first-time even when the build is not.
	NewFiles []string `json:"new_files"`
	// AdditionalPreviousFiles maps a delta file name to extra
	// previously-published files appended before Full/Snapshot export.
	AdditionalPreviousFiles map[string][]string `json:"additional_previous_files"`
	// RefsetCompositeKeys overrides composite-key columns per refset id.
	RefsetCompositeKeys map[string][]int `json:"refset_composite_keys"`
	// Extension is set for edition builds with an international
	// dependency.
	Extension *Extension `json:"extension"`

	cancelled atomic.Bool
}

// Cancel marks the build cancelled. Long-running identifier batches poll
// this flag and abort before their next retry.
func (b *Build) Cancel() {
	b.cancelled.Store(true)
}

// Cancelled reports whether the build has been cancelled.
func (b *Build) Cancelled() bool {
	return b.cancelled.Load()
}

// IsFirstTimeFile reports whether a delta file has no published history to
// reconcile against, either because the whole build is a first-time
// release or because the file is new this cycle.
func (b *Build) IsFirstTimeFile(filename string) bool {
	if b.FirstTimeRelease {
		return true
	}
	for _, name := range b.NewFiles {
		if name == filename {
			return true
		}
	}
	return false
}

// equivalentInternationalFilename maps an edition file name onto the
// international package's equivalent by swapping the country/namespace
// token and the release date (e.g. ..._AU_20210531.txt to
// ..._INT_20210131.txt).
func equivalentInternationalFilename(filename, intlEffectiveTime string) string {
	ext := ""
	if idx := strings.LastIndexByte(filename, '.'); idx >= 0 {
		ext = filename[idx:]
		filename = filename[:idx]
	}
	parts := strings.Split(filename, "_")
	if len(parts) >= 5 {
		parts[len(parts)-2] = "INT"
		parts[len(parts)-1] = intlEffectiveTime
	}
	return strings.Join(parts, "_") + ext
}
