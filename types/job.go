package types

import "time"

// JobStatus tracks a discovery job through its lifecycle. Once a job
// reaches completed, partial or failed it is terminal.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobPartial   JobStatus = "partial"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobPartial || s == JobFailed
}

// DiscoveryJob tracks one discovery request. Mutated only by the
// orchestrator that created it; callers poll copies.
type DiscoveryJob struct {
	ID          string    `json:"id"`
	Scope       Scope     `json:"scope"`
	Status      JobStatus `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	// PerProviderErrors names the scopes missing from the result.
	PerProviderErrors map[string][]string `json:"per_provider_errors,omitempty"`
	// PerProviderRetries counts retry events during this job.
	PerProviderRetries map[string]int `json:"per_provider_retries,omitempty"`
	ResourceCount      int            `json:"resource_count"`
	// ResultID is a lookup reference to the snapshot, not ownership.
	ResultID string `json:"result_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
