package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/san-kum/clusterflow/internal/config"
	"github.com/san-kum/clusterflow/internal/dataset"
	"github.com/san-kum/clusterflow/internal/export"
	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/scene"
	"github.com/san-kum/clusterflow/internal/stage"
	"github.com/san-kum/clusterflow/internal/storage"
	"github.com/san-kum/clusterflow/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool
	noColor bool

	configFile    string
	preset        string
	seed          int64
	datasetPath   string
	synthetic     int
	stageWidth    float64
	stageHeight   float64
	batchSize     int
	batchInterval int
	settle        bool
	limit         time.Duration

	pick    bool
	outFile string
	trace   bool
	force   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clusterflow",
		Short:        "force layout transitions from cluster to categories to countries",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".clusterflow", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured log output")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a transition headless and store the result",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().DurationVar(&limit, "limit", 10*time.Minute, "simulated time limit")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "play a transition in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)
	liveCmd.Flags().BoolVar(&pick, "pick", false, "choose a preset from a menu")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot alpha, energy and the final layout of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the final layout of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().BoolVar(&trace, "trace", false, "render the alpha trace instead of the layout")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.DescribePreset(name))
			}
			w.Flush()
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file with default or preset values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initConfigCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	initConfigCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportSVGCmd, exportJSONCmd, presetsCmd, initConfigCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Int64Var(&seed, "seed", 1, "random seed for spawn positions and synthetic data")
	f.StringVar(&datasetPath, "dataset", "", "JSON record file")
	f.IntVar(&synthetic, "synthetic", config.DefaultSynthetic, "number of synthetic records when no dataset is given")
	f.Float64Var(&stageWidth, "width", config.DefaultWidth, "stage width")
	f.Float64Var(&stageHeight, "height", config.DefaultHeight, "stage height")
	f.IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "links retargeted per batch, all phases")
	f.IntVar(&batchInterval, "batch-interval", config.DefaultBatchInterval, "milliseconds between batches, all phases")
	f.BoolVar(&settle, "settle", true, "let the initial cluster settle before the first phase")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	}))
}

// resolveConfig layers defaults, preset, config file and changed flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		cfg, err = config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("dataset") {
		cfg.Dataset.Path = datasetPath
	}
	if flags.Changed("synthetic") {
		cfg.Dataset.Synthetic = synthetic
	}
	if flags.Changed("width") {
		cfg.Stage.Width = stageWidth
	}
	if flags.Changed("height") {
		cfg.Stage.Height = stageHeight
	}
	if flags.Changed("settle") {
		cfg.Settle = settle
	}
	for i := range cfg.Phases {
		if flags.Changed("batch-size") {
			cfg.Phases[i].BatchSize = batchSize
		}
		if flags.Changed("batch-interval") {
			cfg.Phases[i].BatchIntervalMs = batchInterval
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadRecords returns the records of cfg and a name for them.
func loadRecords(cfg *config.Config) ([]dataset.Record, string, error) {
	if cfg.Dataset.Path != "" {
		recs, err := dataset.LoadJSON(cfg.Dataset.Path)
		if err != nil {
			return nil, "", err
		}
		return recs, filepath.Base(cfg.Dataset.Path), nil
	}
	return dataset.Synthetic(cfg.Dataset.Synthetic, cfg.Seed), fmt.Sprintf("synthetic:%d", cfg.Dataset.Synthetic), nil
}

func buildScene(cfg *config.Config, logger *slog.Logger) (*scene.Scene, string, error) {
	recs, name, err := loadRecords(cfg)
	if err != nil {
		return nil, "", err
	}
	s, err := scene.Build(cfg, recs, loop.NewVirtual(time.Now()), logger)
	if err != nil {
		return nil, "", err
	}
	return s, name, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, name, err := buildScene(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d particles through %d phases...\n", len(s.Store.Free()), len(cfg.Phases))
	start := time.Now()

	res, runErr := s.RunHeadless(ctx, limit)
	if res == nil {
		return runErr
	}
	res.Meta.Preset = preset
	res.Meta.Dataset = name

	runID, err := st.Save(res.Meta, res.Layout, res.Trace)
	if err != nil {
		return errors.Join(runErr, err)
	}

	fmt.Printf("completed in %v (simulated %v)\n", time.Since(start).Round(time.Millisecond), res.Meta.Elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", res.Meta.Steps)
	fmt.Println("\nmetrics:")
	for _, name := range slices.Sorted(maps.Keys(res.Meta.Metrics)) {
		fmt.Printf("  %s: %.6f\n", name, res.Meta.Metrics[name])
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.DiscardHandler)
	if verbose {
		logger = newLogger()
	}
	ctx := cmd.Context()

	if pick {
		items := make([]viz.PickerItem, 0, len(config.Presets))
		for _, name := range config.ListPresets() {
			items = append(items, viz.PickerItem{Name: name, Description: config.DescribePreset(name)})
		}
		return viz.Run(viz.NewPicker(ctx, items, func(name string) (*scene.Scene, error) {
			s, _, err := buildScene(config.GetPreset(name), logger)
			return s, err
		}))
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, _, err := buildScene(cfg, logger)
	if err != nil {
		return err
	}
	m, err := viz.NewModel(ctx, s)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPRESET\tDATASET\tPARTICLES\tSTEPS\tSIMULATED\tSTATUS")

	for _, run := range runs {
		status := "complete"
		if !run.Completed {
			status = "incomplete"
		}
		p := run.Preset
		if p == "" {
			p = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			p,
			run.Dataset,
			run.Particles,
			run.Steps,
			run.Elapsed.Round(time.Millisecond),
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	points, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	layout, err := st.LoadLayout(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("phases: %v\n", meta.Phases)
	fmt.Printf("steps: %d\n\n", len(points))

	if len(points) > 1 {
		alpha := make([]float64, len(points))
		energy := make([]float64, len(points))
		moving := make([]float64, len(points))
		for i, p := range points {
			alpha[i], energy[i], moving[i] = p.Alpha, p.Energy, float64(p.Moving)
		}
		for _, series := range []struct {
			caption string
			data    []float64
		}{
			{"alpha", alpha},
			{"kinetic energy", energy},
			{"moving particles", moving},
		} {
			graph := asciigraph.Plot(series.data,
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(series.caption),
			)
			fmt.Println(graph)
			fmt.Println()
		}
	}

	vp := stage.Viewport{Width: meta.Width, Height: meta.Height}
	c := viz.NewCanvas(60, 32)
	viz.DrawLayout(c, vp.Rect(), layout, meta.Colorized)
	if noColor {
		fmt.Print(c.String())
	} else {
		fmt.Print(c.Render())
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	var svg string
	if trace {
		points, err := st.LoadTrace(runID)
		if err != nil {
			return err
		}
		series := make([]export.Point, len(points))
		for i, p := range points {
			series[i] = export.Point{X: float64(p.Step), Y: p.Alpha}
		}
		svg = export.SeriesToSVG(series, 800, 300, "#80C9BC")
		if svg == "" {
			return fmt.Errorf("run %s has too few trace points", runID)
		}
	} else {
		layout, err := st.LoadLayout(runID)
		if err != nil {
			return err
		}
		svg = export.LayoutToSVG(layout, export.LayoutOptions{
			Width:     meta.Width,
			Height:    meta.Height,
			Colorized: meta.Colorized,
			Subtitles: meta.Completed,
		})
	}

	path := outFile
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	layout, err := st.LoadLayout(runID)
	if err != nil {
		return err
	}
	points, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}

	if outFile == "" {
		return export.ExportJSON(os.Stdout, *meta, layout, points)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.ExportJSON(f, *meta, layout, points)
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "clusterflow.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s exists, use --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
