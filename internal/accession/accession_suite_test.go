package accession_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestAccession(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Accession Suite")
}
