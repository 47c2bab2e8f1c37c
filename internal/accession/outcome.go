package accession

// FailureKind tells which step ended a submission.
type FailureKind string

const (
	FailureSample FailureKind = "sample"
	FailureSlide  FailureKind = "slide"
	// FailureBatch: the batch call never got an answer. Samples and slides exist.
	FailureBatch FailureKind = "batch"
	// FailureBatchRejected: the lab API answered the batch call with an error.
	// Samples and slides exist; only the batch needs creating.
	FailureBatchRejected FailureKind = "batch-rejected"
)

// Outcome is the terminal result of one attempt. Exactly one of Success and
// Failure is set.
type Outcome struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

type Success struct {
	BatchID    string `json:"batch_id"`
	SlideCount int    `json:"slide_count"`
}

// Failure keeps the ids of every sample created before the attempt stopped.
// Nothing is rolled back, so these ids are the operator's recovery aid.
type Failure struct {
	Kind             FailureKind `json:"kind"`
	Message          string      `json:"message"`
	PartialSampleIDs []string    `json:"partial_sample_ids"`
	// Recoverable is set when every sample and slide exists and only the
	// batch is missing.
	Recoverable bool `json:"recoverable"`
}

func (o Outcome) Succeeded() bool {
	return o.Success != nil
}

// Message is the failure message, or "" on success.
func (o Outcome) Message() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Message
}
