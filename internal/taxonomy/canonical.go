package taxonomy

import "time"

// CanonicalPass names a canonicalization pass.
type CanonicalPass string

const (
	PassProfileDNA CanonicalPass = "profile_dna"
	PassTaxonomy   CanonicalPass = "taxonomy"
)

// RunStatus is the recorded outcome of a canonicalization run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunDryRun    RunStatus = "dry_run"
)

// Blocking reports whether a run with this status keeps the verification gate
// closed. A run left in RunRunning never recorded its outcome.
func (s RunStatus) Blocking() bool {
	return s == RunRunning || s == RunFailed
}

// CanonicalRun records one canonicalization attempt.
type CanonicalRun struct {
	ID               int64
	RunID            string
	Pass             CanonicalPass
	ProfileID        *int64
	DryRun           bool
	Status           RunStatus
	PlannedDeletions int
	Detail           string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// MergeGroup collapses duplicate SubSentiments sharing (Name, MainSentimentID)
// into SurvivorID.
type MergeGroup struct {
	Name            string
	MainSentimentID int64
	SurvivorID      int64
	DuplicateIDs    []int64
}

// MergeStats summarizes what a taxonomy merge changed, keyed by dependent table.
type MergeStats struct {
	Repointed            map[string]int
	Resolved             map[string]int
	DeletedSubSentiments int
}

// TableCounts reports row counts of the tables canonicalization touches.
type TableCounts struct {
	SubSentiments int
	Associations  int
	ProfileDNA    int
}
