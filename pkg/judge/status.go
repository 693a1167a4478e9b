package judge

// Classification is the closed view of a judge-reported status
// string. The judge reports free-form descriptions; they are
// classified exactly once here and the rest of the system never
// pattern-matches on raw strings.
type Classification int

const (
	// ClassQueued means the execution has not finished and a later
	// poll may still change the status.
	ClassQueued Classification = iota
	// ClassSuccess is the single terminal success status.
	ClassSuccess
	// ClassFailure is any other terminal status.
	ClassFailure
)

// Judge status descriptions with meaning to the pipeline. Everything
// outside this set is a terminal failure.
const (
	StatusInQueue    = "In Queue"
	StatusProcessing = "Processing"
	StatusAccepted   = "Accepted"
)

// Classify maps a judge status description onto its classification.
func Classify(status string) Classification {
	switch status {
	case StatusInQueue, StatusProcessing:
		return ClassQueued
	case StatusAccepted:
		return ClassSuccess
	default:
		return ClassFailure
	}
}

// IsTerminal reports whether a status will not change on further polling.
func IsTerminal(status string) bool {
	return Classify(status) != ClassQueued
}
