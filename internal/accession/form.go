package accession

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrFormLocked is returned for edits while a submission holds the draft.
	ErrFormLocked = errors.New("draft is locked while a submission is in progress")
	ErrNotFound   = errors.New("not found")
)

// Form is the draft under construction. It starts with one empty sample.
type Form struct {
	mu     sync.RWMutex
	draft  Draft
	locked bool
}

func NewForm() *Form {
	f := &Form{}
	f.draft = emptyDraft()
	return f
}

func emptyDraft() Draft {
	return Draft{Samples: []DraftSample{newDraftSample("")}}
}

func newDraftSample(barcode string) DraftSample {
	return DraftSample{Key: uuid.NewString(), Barcode: barcode, Slides: []DraftSlide{}}
}

// Details are the accession-level fields.
type Details struct {
	Customer   string
	OrderID    string
	ReceivedOn string
	Notes      string
}

func (f *Form) SetDetails(d Details) error {
	return f.edit(func(draft *Draft) error {
		draft.Customer = d.Customer
		draft.OrderID = d.OrderID
		draft.ReceivedOn = d.ReceivedOn
		draft.Notes = d.Notes
		return nil
	})
}

// AddSample appends a sample and returns its key.
func (f *Form) AddSample(barcode string) (string, error) {
	sample := newDraftSample(barcode)
	err := f.edit(func(draft *Draft) error {
		draft.Samples = append(draft.Samples, sample)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sample.Key, nil
}

func (f *Form) UpdateSample(key, barcode string) error {
	return f.edit(func(draft *Draft) error {
		i := draft.sampleIndex(key)
		if i < 0 {
			return ErrNotFound
		}
		draft.Samples[i].Barcode = barcode
		return nil
	})
}

// RemoveSample drops a sample and its slides. Removing the last sample is
// allowed; validation reports it.
func (f *Form) RemoveSample(key string) error {
	return f.edit(func(draft *Draft) error {
		i := draft.sampleIndex(key)
		if i < 0 {
			return ErrNotFound
		}
		draft.Samples = append(draft.Samples[:i], draft.Samples[i+1:]...)
		return nil
	})
}

// AddSlide appends a slide to a sample and returns the slide key.
func (f *Form) AddSlide(sampleKey string, slide DraftSlide) (string, error) {
	slide.Key = uuid.NewString()
	if slide.ScanTime == "" {
		slide.ScanTime = DefaultScanTime
	}
	err := f.edit(func(draft *Draft) error {
		i := draft.sampleIndex(sampleKey)
		if i < 0 {
			return ErrNotFound
		}
		draft.Samples[i].Slides = append(draft.Samples[i].Slides, slide)
		return nil
	})
	if err != nil {
		return "", err
	}
	return slide.Key, nil
}

// UpdateSlide replaces the fields of a slide, keeping its key.
func (f *Form) UpdateSlide(sampleKey, slideKey string, slide DraftSlide) error {
	return f.edit(func(draft *Draft) error {
		i, j := draft.slideIndex(sampleKey, slideKey)
		if j < 0 {
			return ErrNotFound
		}
		slide.Key = slideKey
		if slide.ScanTime == "" {
			slide.ScanTime = DefaultScanTime
		}
		draft.Samples[i].Slides[j] = slide
		return nil
	})
}

func (f *Form) RemoveSlide(sampleKey, slideKey string) error {
	return f.edit(func(draft *Draft) error {
		i, j := draft.slideIndex(sampleKey, slideKey)
		if j < 0 {
			return ErrNotFound
		}
		slides := draft.Samples[i].Slides
		draft.Samples[i].Slides = append(slides[:j], slides[j+1:]...)
		return nil
	})
}

// Replace swaps in a whole draft, e.g. one loaded from a file. Items without
// a key get one.
func (f *Form) Replace(d Draft) error {
	d = d.Clone()
	for i := range d.Samples {
		if d.Samples[i].Key == "" {
			d.Samples[i].Key = uuid.NewString()
		}
		if d.Samples[i].Slides == nil {
			d.Samples[i].Slides = []DraftSlide{}
		}
		for j := range d.Samples[i].Slides {
			slide := &d.Samples[i].Slides[j]
			if slide.Key == "" {
				slide.Key = uuid.NewString()
			}
			if slide.ScanTime == "" {
				slide.ScanTime = DefaultScanTime
			}
		}
	}
	return f.edit(func(draft *Draft) error {
		*draft = d
		return nil
	})
}

// Snapshot returns a copy of the draft.
func (f *Form) Snapshot() Draft {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.draft.Clone()
}

// Reset starts over with one empty sample. It works even when locked.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = emptyDraft()
}

// ResetUnlessLocked clears the draft unless a submission holds it.
func (f *Form) ResetUnlessLocked() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return ErrFormLocked
	}
	f.draft = emptyDraft()
	return nil
}

// Lock freezes the draft and returns the snapshot to submit.
func (f *Form) Lock() (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return Draft{}, ErrFormLocked
	}
	f.locked = true
	return f.draft.Clone(), nil
}

func (f *Form) Unlock() {
	f.mu.Lock()
	f.locked = false
	f.mu.Unlock()
}

func (f *Form) Locked() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.locked
}

func (f *Form) edit(fn func(draft *Draft) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return ErrFormLocked
	}
	// Work on a copy so a failed edit leaves the draft untouched.
	next := f.draft.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	f.draft = next
	return nil
}

func (d *Draft) sampleIndex(key string) int {
	for i := range d.Samples {
		if d.Samples[i].Key == key {
			return i
		}
	}
	return -1
}

func (d *Draft) slideIndex(sampleKey, slideKey string) (int, int) {
	i := d.sampleIndex(sampleKey)
	if i < 0 {
		return -1, -1
	}
	for j := range d.Samples[i].Slides {
		if d.Samples[i].Slides[j].Key == slideKey {
			return i, j
		}
	}
	return i, -1
}
