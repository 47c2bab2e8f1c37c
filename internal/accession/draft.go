package accession

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultScanTime = "40x Scan"
	receivedOnFmt   = "2006-01-02"
)

// Draft is the accession as entered by the operator. It is immutable once a
// submission starts; the submitter only ever sees a snapshot.
type Draft struct {
	Customer   string        `json:"customer" yaml:"customer" validate:"notblank"`
	OrderID    string        `json:"order_id" yaml:"order_id" validate:"notblank"`
	ReceivedOn string        `json:"received_on" yaml:"received_on" validate:"notblank,datetime=2006-01-02"`
	Notes      string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	Samples    []DraftSample `json:"samples" yaml:"samples" validate:"min=1,dive"`
}

type DraftSample struct {
	Key     string       `json:"key" yaml:"key,omitempty"`
	Barcode string       `json:"barcode" yaml:"barcode" validate:"notblank"`
	Slides  []DraftSlide `json:"slides" yaml:"slides" validate:"dive"`
}

type DraftSlide struct {
	Key         string `json:"key" yaml:"key,omitempty"`
	Barcode     string `json:"barcode" yaml:"barcode" validate:"notblank"`
	Annotations bool   `json:"annotations" yaml:"annotations"`
	ScanTime    string `json:"scan_time" yaml:"scan_time,omitempty"`
}

// SlideCount is the number of slides across every sample.
func (d Draft) SlideCount() int {
	n := 0
	for _, s := range d.Samples {
		n += len(s.Slides)
	}
	return n
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	out := d
	out.Samples = make([]DraftSample, len(d.Samples))
	for i, s := range d.Samples {
		out.Samples[i] = s
		out.Samples[i].Slides = make([]DraftSlide, len(s.Slides))
		copy(out.Samples[i].Slides, s.Slides)
	}
	return out
}

// ValidationError is the first rule a draft breaks, with the message shown to
// the operator.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation messages, in the order the rules are checked.
const (
	MsgCustomerRequired   = "Customer name is required"
	MsgOrderIDRequired    = "Order ID is required"
	MsgReceivedOnRequired = "Received date is required"
	MsgReceivedOnFormat   = "Received date must use the YYYY-MM-DD format"
	MsgSampleRequired     = "At least one sample is required"
	MsgSampleBarcode      = "All samples must have a barcode"
	MsgSlideBarcode       = "All slides must have a barcode"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks a draft before it may be submitted. It returns nil or a
// *ValidationError for the first broken rule.
func Validate(d Draft) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var first *ValidationError
	rank := -1
	for _, fe := range verrs {
		r, ve := classifyFieldError(fe)
		if first == nil || r < rank {
			first, rank = ve, r
		}
	}
	return first
}

func classifyFieldError(fe validator.FieldError) (int, *ValidationError) {
	switch {
	case fe.StructField() == "Customer":
		return 0, &ValidationError{Field: "customer", Message: MsgCustomerRequired}
	case fe.StructField() == "OrderID":
		return 1, &ValidationError{Field: "order_id", Message: MsgOrderIDRequired}
	case fe.StructField() == "ReceivedOn" && fe.Tag() == "datetime":
		return 2, &ValidationError{Field: "received_on", Message: MsgReceivedOnFormat}
	case fe.StructField() == "ReceivedOn":
		return 2, &ValidationError{Field: "received_on", Message: MsgReceivedOnRequired}
	case fe.StructField() == "Samples":
		return 3, &ValidationError{Field: "samples", Message: MsgSampleRequired}
	case strings.Contains(fe.Namespace(), ".Slides["):
		return 5, &ValidationError{Field: "slides", Message: MsgSlideBarcode}
	default:
		return 4, &ValidationError{Field: "samples", Message: MsgSampleBarcode}
	}
}
