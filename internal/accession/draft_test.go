package accession_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-accession-backend/internal/accession"
)

func validDraft() accession.Draft {
	return draftOf(sample("SMP-1", "SLD-1"), sample("SMP-2"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *accession.Draft)
		message string
	}{
		{"valid", func(d *accession.Draft) {}, ""},
		{"customer missing", func(d *accession.Draft) { d.Customer = "  " }, accession.MsgCustomerRequired},
		{"order id missing", func(d *accession.Draft) { d.OrderID = "" }, accession.MsgOrderIDRequired},
		{"received date missing", func(d *accession.Draft) { d.ReceivedOn = "" }, accession.MsgReceivedOnRequired},
		{"received date malformed", func(d *accession.Draft) { d.ReceivedOn = "03/01/2024" }, accession.MsgReceivedOnFormat},
		{"no samples", func(d *accession.Draft) { d.Samples = nil }, accession.MsgSampleRequired},
		{"sample barcode blank", func(d *accession.Draft) { d.Samples[1].Barcode = "" }, accession.MsgSampleBarcode},
		{"slide barcode blank", func(d *accession.Draft) { d.Samples[0].Slides[0].Barcode = " " }, accession.MsgSlideBarcode},
		{"first rule wins", func(d *accession.Draft) {
			d.OrderID = ""
			d.Samples[0].Slides[0].Barcode = ""
		}, accession.MsgOrderIDRequired},
		{"sample before slide", func(d *accession.Draft) {
			d.Samples[0].Slides[0].Barcode = ""
			d.Samples[1].Barcode = ""
		}, accession.MsgSampleBarcode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			err := accession.Validate(d)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			var verr *accession.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestDraft_SlideCountAndClone(t *testing.T) {
	d := draftOf(sample("A", "A1", "A2"), sample("B", "B1"))
	assert.Equal(t, 3, d.SlideCount())

	c := d.Clone()
	c.Samples[0].Slides[0].Barcode = "changed"
	assert.Equal(t, "A1", d.Samples[0].Slides[0].Barcode)
}
