package model

// Artifact is a persisted CSV download together with its parsed contents.
type Artifact struct {
	Unit Unit
	// Point is the single point the artifact holds.
	Point PointID
	// Location is where the raw CSV body was stored (storage object name).
	Location string
	Series   *TimeSeries
}

// JobSubmission is the provider's answer to a job-mode request.
type JobSubmission struct {
	DownloadURL string
	Message     string
}

// Outcome is the result of one retrieval unit. Exactly one of Artifact, Job
// or Err is set.
type Outcome struct {
	Unit     Unit
	Artifact *Artifact
	Job      *JobSubmission
	Err      error
}

// Failed reports whether the unit failed.
func (o Outcome) Failed() bool { return o.Err != nil }
