package accession

// Stage is the unit of work a submission is busy with.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageCreatingSamples Stage = "creating-samples"
	StageCreatingSlides  Stage = "creating-slides"
	StageCreatingBatch   Stage = "creating-batch"
)

// Progress locates an in-flight submission. Current/Total count samples while
// creating samples and slides, and are 0-of-1 while creating the batch.
type Progress struct {
	Stage   Stage `json:"stage"`
	Current int   `json:"current"`
	Total   int   `json:"total"`
}

func IdleProgress() Progress {
	return Progress{Stage: StageIdle}
}

func (p Progress) IsIdle() bool {
	return p.Stage == StageIdle || p.Stage == ""
}

// Percent is Current/Total as a percentage, 0 when Total is 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}
