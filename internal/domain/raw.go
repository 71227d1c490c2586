package domain

// RawExperiment is an experiment row as read from a source, before normalization.
type RawExperiment struct {
	ID        int64
	Name      string
	ProjectID string
	CreatedAt string
	IsDeleted string
}

// RawTrial is a trial row as read from a source.
type RawTrial struct {
	ID           int64
	ExperimentID int64
	Status       string
	CreatedAt    string
	Accuracy     string
	Duration     string
}

// RawRun is a run row as read from a source.
type RawRun struct {
	ID        int64
	TrialID   int64
	Tokens    string
	Cost      string
	LatencyMs string
	CreatedAt string
}

// RawData groups the three record kinds loaded together.
type RawData struct {
	Experiments []RawExperiment
	Trials      []RawTrial
	Runs        []RawRun
}

// Len returns the total number of raw records.
func (d RawData) Len() int {
	return len(d.Experiments) + len(d.Trials) + len(d.Runs)
}
