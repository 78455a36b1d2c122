// Specs for the stage chain. Run with the Ginkgo binary from the repo root:
//
//	go run github.com/onsi/ginkgo/v2/ginkgo ./internal/pipeline/...
package pipeline

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestPipeline(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Pipeline Suite")
}
