package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/sigbits/internal/bitfield"
	"github.com/san-kum/sigbits/internal/config"
	"github.com/san-kum/sigbits/internal/dataset"
	"github.com/san-kum/sigbits/internal/export"
	"github.com/san-kum/sigbits/internal/logging"
	"github.com/san-kum/sigbits/internal/pipeline"
	"github.com/san-kum/sigbits/internal/plot"
	"github.com/san-kum/sigbits/internal/sampler"
	"github.com/san-kum/sigbits/internal/storage"
	"github.com/san-kum/sigbits/internal/threshold"
	"github.com/san-kum/sigbits/internal/tui"
	"github.com/san-kum/sigbits/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	preset     string
	logLevel   string
	logFormat  string
	workers    int

	input      string
	plotDir    string
	plotName   string
	frameDir   string
	output     string
	format     string
	resolution float64
	duration   float64
	cutoff     float64
	width      int
	height     int

	method      string
	errorMode   string
	probability float64
	confidence  float64

	points    int
	samples   int
	zMin      float64
	zMax      float64
	precision int
	seed      int64

	catalogPath string
	showTUI     bool
	runID       string
	jsonOut     string
	csvOut      string
	theme       string
	chartHeight int
	svgOut      string
	pngOut      string

	cfg *config.Config
)

func main() {
	defaults := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:           "sigbits",
		Short:         "animate how significant bits decay toward a boundary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg = c
			viz.SetTheme(theme)
			_, err = logging.Init(cfg.Log.Level, cfg.Log.Format)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", defaults.Log.Format, "log encoding (console, json)")
	pf.IntVar(&workers, "workers", defaults.Workers, "parallel tasks per stage (0 = all cpus)")
	pf.StringVar(&theme, "theme", viz.ThemeMatplotlib.Name, "terminal color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "write a synthetic (z, y) table from a noisy Chebyshev polynomial",
		RunE:  generateData,
	}
	generateCmd.Flags().StringVar(&input, "out", defaults.Input, "output table path")
	generateCmd.Flags().IntVar(&points, "points", defaults.Generate.Points, "distinct z values")
	generateCmd.Flags().IntVar(&samples, "samples", defaults.Generate.Samples, "samples per z")
	generateCmd.Flags().Float64Var(&zMin, "zmin", defaults.Generate.ZMin, "first z")
	generateCmd.Flags().Float64Var(&zMax, "zmax", defaults.Generate.ZMax, "last z")
	generateCmd.Flags().IntVar(&precision, "precision", defaults.Generate.Precision, "virtual precision in bits (0 = exact)")
	generateCmd.Flags().Int64Var(&seed, "seed", defaults.Generate.Seed, "random seed (0 = clock)")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "compute statistics and render a scatter plot per threshold",
		RunE:  runPlot,
	}
	addInputFlags(plotCmd, defaults)
	addPlotFlags(plotCmd, defaults)

	framesCmd := &cobra.Command{
		Use:   "frames",
		Short: "compose frames from plot images and their stats files",
		RunE:  runFrames,
	}
	addPlotDirFlags(framesCmd, defaults)
	addFrameFlags(framesCmd, defaults)

	gifCmd := &cobra.Command{
		Use:   "gif",
		Short: "encode composed frames into a looping animation",
		RunE:  runGIF,
	}
	addGIFFlags(gifCmd, defaults)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "plot, compose and animate in one go",
		RunE:  runAll,
	}
	addInputFlags(runCmd, defaults)
	addPlotFlags(runCmd, defaults)
	addFrameFlags(runCmd, defaults)
	addGIFFlags(runCmd, defaults)
	runCmd.Flags().StringVar(&catalogPath, "catalog", defaults.Catalog, "record the run in this sqlite catalog")
	runCmd.Flags().BoolVar(&showTUI, "tui", false, "show live progress")

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "print the statistics of a plot directory or a cataloged run",
		RunE:  runSummary,
	}
	addPlotDirFlags(summaryCmd, defaults)
	summaryCmd.Flags().StringVar(&catalogPath, "catalog", defaults.Catalog, "sqlite catalog path")
	summaryCmd.Flags().StringVar(&runID, "run", "", "read records of a cataloged run instead of the plot directory")
	summaryCmd.Flags().StringVar(&jsonOut, "json", "", "also export records as json")
	summaryCmd.Flags().StringVar(&csvOut, "csv", "", "also export records as csv")
	summaryCmd.Flags().IntVar(&chartHeight, "chart-height", 10, "chart height in rows (0 = no chart)")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list cataloged runs",
		RunE:  listRuns,
	}
	runsCmd.Flags().StringVar(&catalogPath, "catalog", defaults.Catalog, "sqlite catalog path")

	diagramCmd := &cobra.Command{
		Use:   "diagram [bits]",
		Short: "render the precision bit diagram for a bit count",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiagram,
	}
	diagramCmd.Flags().StringVar(&format, "format", defaults.Format, "numeric format (float, double)")
	diagramCmd.Flags().IntVar(&width, "width", defaults.Plot.Width, "diagram width in pixels")
	diagramCmd.Flags().StringVar(&svgOut, "svg", "", "write the diagram as svg")
	diagramCmd.Flags().StringVar(&pngOut, "png", "", "write the diagram as png")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("%-10s format=%s resolution=%g size=%dx%d duration=%gs method=%s\n",
					name, p.Format, p.Resolution, p.Plot.Width, p.Plot.Height, p.Duration, p.Estimator.Method)
			}
			return nil
		},
	}

	rootCmd.AddCommand(generateCmd, plotCmd, framesCmd, gifCmd, runCmd, summaryCmd, runsCmd, diagramCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addInputFlags(cmd *cobra.Command, d *config.Config) {
	cmd.Flags().StringVar(&input, "input", d.Input, "input table of z y rows")
	cmd.Flags().Float64Var(&resolution, "resolution", d.Resolution, "fraction of unique z values to render, in (0, 1]")
	cmd.Flags().StringVar(&method, "method", d.Estimator.Method, "estimator (cnh, general)")
	cmd.Flags().StringVar(&errorMode, "error", d.Estimator.Error, "error mode (relative, absolute)")
	cmd.Flags().Float64Var(&probability, "probability", d.Estimator.Probability, "estimator probability")
	cmd.Flags().Float64Var(&confidence, "confidence", d.Estimator.Confidence, "estimator confidence")
}

func addPlotDirFlags(cmd *cobra.Command, d *config.Config) {
	cmd.Flags().StringVar(&plotDir, "plot-dir", d.PlotDir, "plot image directory")
	cmd.Flags().StringVar(&plotName, "plot-name", d.PlotName, "plot image base name")
}

func addPlotFlags(cmd *cobra.Command, d *config.Config) {
	addPlotDirFlags(cmd, d)
	cmd.Flags().Float64Var(&cutoff, "cutoff", d.Plot.Cutoff, "largest z drawn in the scatter (<= 0 disables)")
	cmd.Flags().IntVar(&width, "width", d.Plot.Width, "plot width in pixels")
	cmd.Flags().IntVar(&height, "height", d.Plot.Height, "plot height in pixels")
}

func addFrameFlags(cmd *cobra.Command, d *config.Config) {
	cmd.Flags().StringVar(&frameDir, "frame-dir", d.FrameDir, "composed frame directory")
	cmd.Flags().StringVar(&format, "format", d.Format, "numeric format (float, double)")
}

func addGIFFlags(cmd *cobra.Command, d *config.Config) {
	if cmd.Flags().Lookup("frame-dir") == nil {
		cmd.Flags().StringVar(&frameDir, "frame-dir", d.FrameDir, "composed frame directory")
	}
	cmd.Flags().StringVar(&output, "output", d.Output, "animation file (.gif appended when missing)")
	cmd.Flags().Float64Var(&duration, "duration", d.Duration, "seconds per frame")
}

// loadConfig resolves defaults, then the preset, then the config file, then
// explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.DefaultConfig()
	if preset != "" {
		c = config.GetPreset(preset)
		if c == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		c, err = config.LoadOver(configFile, c)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("log-level", func() { c.Log.Level = logLevel })
	set("log-format", func() { c.Log.Format = logFormat })
	set("workers", func() { c.Workers = workers })
	set("input", func() { c.Input = input })
	set("out", func() { c.Input = input })
	set("plot-dir", func() { c.PlotDir = plotDir })
	set("plot-name", func() { c.PlotName = plotName })
	set("frame-dir", func() { c.FrameDir = frameDir })
	set("output", func() { c.Output = output })
	set("format", func() { c.Format = format })
	set("resolution", func() { c.Resolution = resolution })
	set("duration", func() { c.Duration = duration })
	set("cutoff", func() { c.Plot.Cutoff = cutoff })
	set("width", func() { c.Plot.Width = width })
	set("height", func() { c.Plot.Height = height })
	set("method", func() { c.Estimator.Method = method })
	set("error", func() { c.Estimator.Error = errorMode })
	set("probability", func() { c.Estimator.Probability = probability })
	set("confidence", func() { c.Estimator.Confidence = confidence })
	set("points", func() { c.Generate.Points = points })
	set("samples", func() { c.Generate.Samples = samples })
	set("zmin", func() { c.Generate.ZMin = zMin })
	set("zmax", func() { c.Generate.ZMax = zMax })
	set("precision", func() { c.Generate.Precision = precision })
	set("seed", func() { c.Generate.Seed = seed })
	set("catalog", func() { c.Catalog = catalogPath })

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func generateData(cmd *cobra.Command, args []string) error {
	obs, err := sampler.Generate(cfg.SamplerConfig())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cfg.Input); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(cfg.Input)
	if err != nil {
		return err
	}
	if err := dataset.Write(f, obs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %d rows to %s\n", len(obs), cfg.Input)
	return nil
}

func reportFailures(r *pipeline.Report) {
	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "%s: %d of %d failed: %v\n", r.Stage, len(failed), len(r.Results), r.Err())
	}
}

func runPlot(cmd *cobra.Command, args []string) error {
	ds, err := dataset.Load(cfg.Input)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	report, err := pipeline.New(cfg).PlotStage(ctx, ds)
	if err != nil {
		return err
	}
	reportFailures(report)
	fmt.Printf("%d plots in %s\n", len(report.Succeeded()), cfg.PlotDir)
	return report.Err()
}

func runFrames(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	report, err := pipeline.New(cfg).FrameStage(ctx)
	if err != nil {
		return err
	}
	reportFailures(report)
	fmt.Printf("%d frames in %s\n", len(report.Succeeded()), cfg.FrameDir)
	return report.Err()
}

func runGIF(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	out, err := pipeline.New(cfg).AnimateStage(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("animation saved to %s\n", out)
	return nil
}

func runAll(cmd *cobra.Command, args []string) error {
	ds, err := dataset.Load(cfg.Input)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	var summary *pipeline.Summary
	work := func(ctx context.Context, progress func(pipeline.Event)) error {
		var err error
		summary, err = pipeline.New(cfg, pipeline.WithProgress(progress)).Run(ctx, ds)
		return err
	}
	if showTUI {
		err = tui.Run(ctx, work)
	} else {
		err = work(ctx, nil)
	}
	if err != nil {
		return err
	}

	reportFailures(summary.Plots)
	reportFailures(summary.Frames)
	logging.L().Info("run complete",
		zap.Int("plots", len(summary.Plots.Succeeded())),
		zap.Int("frames", len(summary.Frames.Succeeded())),
		zap.String("output", summary.Output))
	fmt.Printf("animation saved to %s\n", summary.Output)

	if cfg.Catalog != "" {
		id, err := catalogRun(summary)
		if err != nil {
			return fmt.Errorf("catalog run: %w", err)
		}
		fmt.Printf("run id: %s\n", id)
	}
	return nil
}

func catalogRun(summary *pipeline.Summary) (string, error) {
	st, err := storage.Open(cfg.Catalog)
	if err != nil {
		return "", err
	}
	defer st.Close()

	id, err := st.CreateRun(storage.RunMetadata{
		Input:      cfg.Input,
		Format:     cfg.Format,
		Method:     cfg.Estimator.Method,
		Resolution: cfg.Resolution,
		Output:     summary.Output,
	})
	if err != nil {
		return "", err
	}

	var recs []storage.IndexedRecord
	for _, res := range summary.Plots.Succeeded() {
		recs = append(recs, storage.IndexedRecord{Index: res.Index, Threshold: res.Threshold, Record: res.Record})
	}
	return id, st.AddRecords(id, recs)
}

func loadSummaryRecords() (storage.RunMetadata, []storage.IndexedRecord, error) {
	if runID != "" {
		if cfg.Catalog == "" {
			return storage.RunMetadata{}, nil, fmt.Errorf("--run needs --catalog")
		}
		st, err := storage.Open(cfg.Catalog)
		if err != nil {
			return storage.RunMetadata{}, nil, err
		}
		defer st.Close()

		meta, err := st.Load(runID)
		if err != nil {
			return storage.RunMetadata{}, nil, err
		}
		recs, err := st.Records(runID)
		return *meta, recs, err
	}

	byIndex, err := threshold.NewStore(cfg.PlotDir, cfg.PlotName).Records()
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}
	recs := make([]storage.IndexedRecord, 0, len(byIndex))
	for i, rec := range byIndex {
		recs = append(recs, storage.IndexedRecord{Index: i, Threshold: rec.Z, Record: rec})
	}
	sort.Slice(recs, func(a, b int) bool { return recs[a].Index < recs[b].Index })

	meta := storage.RunMetadata{Input: cfg.Input, Format: cfg.Format, Method: cfg.Estimator.Method, Resolution: cfg.Resolution}
	return meta, recs, nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	meta, recs, err := loadSummaryRecords()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no records found")
		return nil
	}

	fmt.Println(viz.SummaryTable(recs, viz.CurrentTheme))
	if chartHeight > 0 {
		fmt.Println()
		fmt.Println(viz.BitsChart(recs, 80, chartHeight))
	}

	if jsonOut != "" {
		if err := export.ExportJSON(jsonOut, export.NewRunExport(meta, recs)); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", jsonOut)
	}
	if csvOut != "" {
		if err := export.ExportCSV(csvOut, recs); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", csvOut)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	if cfg.Catalog == "" {
		return fmt.Errorf("no catalog configured (use --catalog)")
	}
	st, err := storage.Open(cfg.Catalog)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINPUT\tFORMAT\tMETHOD\tRES\tBITS\tOUTPUT")
	for _, run := range runs {
		recs, err := st.Records(run.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%g\t%s\t%s\n",
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Input,
			run.Format,
			run.Method,
			run.Resolution,
			viz.BitsSparkline(recs, 20),
			run.Output,
		)
	}
	return w.Flush()
}

func runDiagram(cmd *cobra.Command, args []string) error {
	bits, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid bit count %q: %w", args[0], err)
	}
	f := cfg.BitFormat()

	if svgOut == "" && pngOut == "" {
		for _, c := range bitfield.Layout(bits, f) {
			fmt.Printf("%-9s %.3f\n", c.Kind, c.Opacity)
		}
		return nil
	}
	if svgOut != "" {
		if err := os.WriteFile(svgOut, []byte(export.BitFieldToSVG(bits, cfg.Plot.Width, f)), 0644); err != nil {
			return err
		}
		fmt.Printf("diagram saved to %s\n", svgOut)
	}
	if pngOut != "" {
		if err := plot.Save(pngOut, bitfield.Render(bits, cfg.Plot.Width, f)); err != nil {
			return err
		}
		fmt.Printf("diagram saved to %s\n", pngOut)
	}
	return nil
}
