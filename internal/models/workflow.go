package models

// SampleStatus is a physical processing state of a sample or slide.
type SampleStatus string

const (
	StatusRequested            SampleStatus = "Requested"
	StatusReadyForLysis        SampleStatus = "Ready for Lysis"
	StatusReadyForMask         SampleStatus = "Ready for Mask"
	StatusReadyForFiducials    SampleStatus = "Ready for Fiducials"
	StatusAlignmentScan        SampleStatus = "5x Alignment Scan"
	StatusWaitingFor40x        SampleStatus = "Waiting for 40x"
	StatusPrintMatchProcessing SampleStatus = "PrintMatch Processing"
	StatusCheckfileReview      SampleStatus = "Checkfile Review"
	StatusFiducialPrinting     SampleStatus = "Fiducial Printing"
	StatusMaskPrinting         SampleStatus = "Mask Printing"
	StatusComplete             SampleStatus = "Complete"
	// StatusReadyForReview is a valid status but not a step of the stepper.
	StatusReadyForReview SampleStatus = "Ready for Review"
)

// WorkflowSteps is the order samples move through the lab.
var WorkflowSteps = []SampleStatus{
	StatusRequested,
	StatusReadyForLysis,
	StatusReadyForMask,
	StatusReadyForFiducials,
	StatusAlignmentScan,
	StatusWaitingFor40x,
	StatusPrintMatchProcessing,
	StatusCheckfileReview,
	StatusFiducialPrinting,
	StatusMaskPrinting,
	StatusComplete,
}

// StepIndex is the position of s in WorkflowSteps, or -1.
func StepIndex(s SampleStatus) int {
	for i, step := range WorkflowSteps {
		if step == s {
			return i
		}
	}
	return -1
}

type WorkflowStep struct {
	Index  int          `json:"index"`
	Status SampleStatus `json:"status"`
}

type WorkflowStepsResponse struct {
	Steps         []WorkflowStep `json:"steps"`
	OtherStatuses []SampleStatus `json:"other_statuses"`
}

func NewWorkflowStepsResponse() WorkflowStepsResponse {
	steps := make([]WorkflowStep, len(WorkflowSteps))
	for i, s := range WorkflowSteps {
		steps[i] = WorkflowStep{Index: i, Status: s}
	}
	return WorkflowStepsResponse{
		Steps:         steps,
		OtherStatuses: []SampleStatus{StatusReadyForReview},
	}
}
