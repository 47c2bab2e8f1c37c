package accession_test

import (
	"lab-accession-backend/internal/accession"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Form", func() {
	var (
		form *accession.Form
	)

	BeforeEach(func() {
		form = accession.NewForm()
	})

	Describe("NewForm", func() {
		It("should start with one empty sample", func() {
			draft := form.Snapshot()
			Expect(draft.Samples).To(HaveLen(1))
			Expect(draft.Samples[0].Key).NotTo(BeEmpty())
			Expect(draft.Samples[0].Barcode).To(BeEmpty())
			Expect(form.Snapshot().SlideCount()).To(Equal(0))
		})
	})

	Describe("samples and slides", func() {
		It("should add, update and remove samples by key", func() {
			key, err := form.AddSample("SMP-2")
			Expect(err).NotTo(HaveOccurred())

			first := form.Snapshot().Samples[0].Key
			Expect(form.UpdateSample(first, "SMP-1")).To(Succeed())

			draft := form.Snapshot()
			Expect(draft.Samples).To(HaveLen(2))
			Expect(draft.Samples[0].Barcode).To(Equal("SMP-1"))
			Expect(draft.Samples[1].Key).To(Equal(key))

			Expect(form.RemoveSample(first)).To(Succeed())
			Expect(form.Snapshot().Samples).To(HaveLen(1))
			Expect(form.Snapshot().Samples[0].Barcode).To(Equal("SMP-2"))
		})

		It("should default the scan time of new slides", func() {
			sampleKey := form.Snapshot().Samples[0].Key
			slideKey, err := form.AddSlide(sampleKey, accession.DraftSlide{Barcode: "SLD-1", Annotations: true})
			Expect(err).NotTo(HaveOccurred())

			slides := form.Snapshot().Samples[0].Slides
			Expect(slides).To(HaveLen(1))
			Expect(slides[0].Key).To(Equal(slideKey))
			Expect(slides[0].ScanTime).To(Equal(accession.DefaultScanTime))
			Expect(slides[0].Annotations).To(BeTrue())
			Expect(form.Snapshot().SlideCount()).To(Equal(1))

			Expect(form.UpdateSlide(sampleKey, slideKey, accession.DraftSlide{Barcode: "SLD-9", ScanTime: "20x Scan"})).To(Succeed())
			Expect(form.Snapshot().Samples[0].Slides[0]).To(Equal(accession.DraftSlide{Key: slideKey, Barcode: "SLD-9", ScanTime: "20x Scan"}))

			Expect(form.RemoveSlide(sampleKey, slideKey)).To(Succeed())
			Expect(form.Snapshot().SlideCount()).To(Equal(0))
		})

		It("should report unknown keys", func() {
			Expect(form.UpdateSample("missing", "X")).To(MatchError(accession.ErrNotFound))
			Expect(form.RemoveSlide(form.Snapshot().Samples[0].Key, "missing")).To(MatchError(accession.ErrNotFound))
			_, err := form.AddSlide("missing", accession.DraftSlide{Barcode: "X"})
			Expect(err).To(MatchError(accession.ErrNotFound))
		})

		It("should not leak edits through snapshots", func() {
			snapshot := form.Snapshot()
			snapshot.Samples[0].Barcode = "mutated"
			Expect(form.Snapshot().Samples[0].Barcode).To(BeEmpty())
		})
	})

	Describe("Lock", func() {
		It("should reject edits until unlocked", func() {
			Expect(form.SetDetails(accession.Details{Customer: "Acme"})).To(Succeed())

			draft, err := form.Lock()
			Expect(err).NotTo(HaveOccurred())
			Expect(draft.Customer).To(Equal("Acme"))

			_, err = form.Lock()
			Expect(err).To(MatchError(accession.ErrFormLocked))
			_, err = form.AddSample("late")
			Expect(err).To(MatchError(accession.ErrFormLocked))
			Expect(form.SetDetails(accession.Details{Customer: "Other"})).To(MatchError(accession.ErrFormLocked))

			form.Unlock()
			Expect(form.SetDetails(accession.Details{Customer: "Other"})).To(Succeed())
		})

		It("should keep a locked draft on ResetUnlessLocked", func() {
			Expect(form.SetDetails(accession.Details{Customer: "Acme"})).To(Succeed())
			_, err := form.Lock()
			Expect(err).NotTo(HaveOccurred())

			Expect(form.ResetUnlessLocked()).To(MatchError(accession.ErrFormLocked))
			Expect(form.Snapshot().Customer).To(Equal("Acme"))

			form.Unlock()
			Expect(form.ResetUnlessLocked()).To(Succeed())
			Expect(form.Snapshot().Customer).To(BeEmpty())
		})
	})

	Describe("Replace and Reset", func() {
		It("should assign keys to a loaded draft", func() {
			Expect(form.Replace(accession.Draft{
				Customer: "Acme",
				Samples: []accession.DraftSample{
					{Barcode: "A", Slides: []accession.DraftSlide{{Barcode: "A1"}}},
				},
			})).To(Succeed())

			draft := form.Snapshot()
			Expect(draft.Samples[0].Key).NotTo(BeEmpty())
			Expect(draft.Samples[0].Slides[0].Key).NotTo(BeEmpty())
			Expect(draft.Samples[0].Slides[0].ScanTime).To(Equal(accession.DefaultScanTime))

			form.Reset()
			Expect(form.Snapshot().Customer).To(BeEmpty())
			Expect(form.Snapshot().Samples).To(HaveLen(1))
		})
	})
})
