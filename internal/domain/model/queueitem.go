package model

// Status represents the state of a single ApexTestQueueItem record.
type Status string

const (
	// Non-terminal statuses. A run with any record in one of these states is
	// still pending.
	StatusQueued     Status = "Queued"
	StatusHolding    Status = "Holding"
	StatusPreparing  Status = "Preparing"
	StatusProcessing Status = "Processing"

	// Known terminal statuses, used for fixtures and display. Terminality is
	// decided by exclusion, not by membership in this list.
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusAborted   Status = "Aborted"
)

// Terminal reports whether no further transition occurs from this status.
// The authoritative enumeration defines terminal states by exclusion: any
// status outside the four pending states is terminal, including values this
// client has never seen.
func (s Status) Terminal() bool {
	switch s {
	case StatusQueued, StatusHolding, StatusPreparing, StatusProcessing:
		return false
	default:
		return true
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// QueueItemRecord is one sub-task record of a test run, typically one Apex
// test class queued for execution.
type QueueItemRecord struct {
	ID              string `json:"Id"`
	ApexClassID     string `json:"ApexClassId"`
	ClassName       string `json:"ApexClassName,omitempty"`
	Status          Status `json:"Status"`
	ExtendedStatus  string `json:"ExtendedStatus,omitempty"`
	TestRunResultID string `json:"TestRunResultId,omitempty"`
}

// TestQueueItem is the authoritative state of a test run: the full set of
// queue-item records scoped to one parent job id.
type TestQueueItem struct {
	RunID   RunID             `json:"runId"`
	Records []QueueItemRecord `json:"records"`
}

// Terminal reports whether the whole run has finished. A run is terminal only
// when every record is terminal; a single pending record keeps it open. An
// empty record set is not terminal (the caller treats it as a query failure
// before classification is reached).
func (q TestQueueItem) Terminal() bool {
	if len(q.Records) == 0 {
		return false
	}
	for _, rec := range q.Records {
		if !rec.Status.Terminal() {
			return false
		}
	}
	return true
}

// StatusCounts returns the number of records per status, used for progress
// logging.
func (q TestQueueItem) StatusCounts() map[Status]int {
	counts := make(map[Status]int, len(q.Records))
	for _, rec := range q.Records {
		counts[rec.Status]++
	}
	return counts
}
