package pipeline

import (
	"context"
	"os"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/san-kum/sigbits/internal/config"
	"github.com/san-kum/sigbits/internal/threshold"
)

var _ = ginkgo.Describe("Stages", func() {
	var (
		cfg *config.Config
		r   *Runner
		ctx context.Context
	)

	ginkgo.BeforeEach(func() {
		cfg = testConfig(ginkgo.GinkgoT())
		r = New(cfg)
		ctx = context.Background()
	})

	ginkgo.It("writes a plot and a stats file per threshold", func() {
		report, err := r.PlotStage(ctx, testDataset(ginkgo.GinkgoT()))
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(report.Failed()).To(gomega.BeEmpty())

		plots, err := r.Store().ListPlots()
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(plots).To(gomega.HaveLen(5))

		records, err := r.Store().Records()
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(records).To(gomega.HaveLen(5))
		for i := 1; i < 5; i++ {
			gomega.Expect(records[i].Z).To(gomega.BeNumerically(">", records[i-1].Z))
		}
	})

	ginkgo.It("keeps the stats file next to its plot", func() {
		_, err := r.PlotStage(ctx, testDataset(ginkgo.GinkgoT()))
		gomega.Expect(err).To(gomega.Succeed())

		plots, err := r.Store().ListPlots()
		gomega.Expect(err).To(gomega.Succeed())
		for _, p := range plots {
			gomega.Expect(threshold.StatsPathFor(p)).To(gomega.BeAnExistingFile())
		}
	})

	ginkgo.It("composes one frame per plot and animates them in order", func() {
		_, err := r.PlotStage(ctx, testDataset(ginkgo.GinkgoT()))
		gomega.Expect(err).To(gomega.Succeed())

		frames, err := r.FrameStage(ctx)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(frames.Err()).To(gomega.Succeed())
		gomega.Expect(frames.Results).To(gomega.HaveLen(5))
		for i, res := range frames.Results {
			gomega.Expect(res.Index).To(gomega.Equal(i))
			gomega.Expect(res.Path).To(gomega.BeAnExistingFile())
		}

		out, err := r.AnimateStage(ctx)
		gomega.Expect(err).To(gomega.Succeed())
		info, err := os.Stat(out)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(info.Size()).To(gomega.BeNumerically(">", 0))
	})

	ginkgo.It("rejects an invalid resolution before any work", func() {
		cfg.Resolution = 1.5
		_, err := r.PlotStage(ctx, testDataset(ginkgo.GinkgoT()))
		gomega.Expect(err).To(gomega.HaveOccurred())
		gomega.Expect(cfg.PlotDir).NotTo(gomega.BeADirectory())
	})
})
