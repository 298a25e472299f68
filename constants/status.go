package constants

// JobStatus is the canonical status for rows in receipt_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "PENDING"    // awaiting a worker claim
	JobStatusProcessing JobStatus = "PROCESSING" // claimed by exactly one worker
	JobStatusCompleted  JobStatus = "COMPLETED"  // extraction persisted
	JobStatusFailed     JobStatus = "FAILED"     // terminal; leaves only via manual discard or re-submission
	JobStatusDiscarded  JobStatus = "DISCARDED"  // manually removed from processing and stats, kept for audit
)

// Terminal reports whether the automatic paths are done with this status.
// Stale requeue only ever touches PROCESSING.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusDiscarded
}
