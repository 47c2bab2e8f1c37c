package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"lab-accession-backend/internal/accession"
)

// loadDraft reads a draft from path, or from stdin when path is "-".
func loadDraft(path string, stdin io.Reader) (accession.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return accession.Draft{}, fmt.Errorf("read draft: %w", err)
	}
	return parseDraft(data)
}

func parseDraft(data []byte) (accession.Draft, error) {
	var d accession.Draft
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return accession.Draft{}, fmt.Errorf("parse draft: %w", err)
	}
	for i := range d.Samples {
		for j := range d.Samples[i].Slides {
			if d.Samples[i].Slides[j].ScanTime == "" {
				d.Samples[i].Slides[j].ScanTime = accession.DefaultScanTime
			}
		}
	}
	return d, nil
}
