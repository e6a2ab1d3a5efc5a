package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/sandsim/internal/automation"
	"github.com/san-kum/sandsim/internal/config"
	"github.com/san-kum/sandsim/internal/export"
	"github.com/san-kum/sandsim/internal/logx"
	"github.com/san-kum/sandsim/internal/metrics"
	"github.com/san-kum/sandsim/internal/optim"
	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
	"github.com/san-kum/sandsim/internal/sim"
	"github.com/san-kum/sandsim/internal/storage"
	"github.com/san-kum/sandsim/internal/stream"
	"github.com/san-kum/sandsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	profile    string
	logLevel   string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	runs       int
	save       bool
	exportPath string
	svgPath    string
	axes       []string
	metricName string
	addr       string
	frameRate  int
	force      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "sandsim",
		Short:        "granular particle sandbox",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sandsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "engine profile")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level")

	sceneFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&preset, "preset", config.DefaultPreset, "scene preset")
		cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	sceneFlags(runCmd)
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "frame time step")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds")
	runCmd.Flags().IntVar(&runs, "runs", 1, "parallel runs with consecutive seeds")
	runCmd.Flags().BoolVar(&save, "save", false, "record the run in the data directory")
	runCmd.Flags().StringVar(&exportPath, "export", "", "write the run and final particles as JSON")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the final frame as SVG")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search engine parameters",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "frame time step")
	sweepCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration of each trial")
	sweepCmd.Flags().StringArrayVar(&axes, "param", nil, "swept parameter, name=v1,v2 or name=min:max:n (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "energy_decay", "metric to minimize")
	sweepCmd.MarkFlagRequired("param")

	scriptCmd := &cobra.Command{
		Use:   "script [scenario.yaml]",
		Short: "run a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream frames to websocket clients",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	sceneFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&frameRate, "fps", stream.DefaultFrameRate, "frame rate")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets and engine profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, name := range scene.Names() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("profiles:")
			for _, name := range config.ListProfiles() {
				fmt.Printf("  %s\n", name)
			}
		},
	}

	materialsCmd := &cobra.Command{
		Use:   "materials",
		Short: "show material properties",
		Args:  cobra.NoArgs,
		RunE:  listMaterials,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write mean height as SVG")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "config file helpers",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the resolved config as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)

	rootCmd.AddCommand(runCmd, sweepCmd, scriptCmd, liveCmd, serveCmd, presetsCmd, materialsCmd, listCmd, plotCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers profile, config file and explicitly set flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if profile != "" {
		cfg = config.GetProfile(profile)
		if cfg == nil {
			return nil, fmt.Errorf("unknown profile: %s (available: %v)", profile, config.ListProfiles())
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
	if flags.Changed("preset") {
		cfg.Run.Preset = preset
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildScene returns an engine loaded with the configured preset and the
// configured emitter.
func buildScene(cfg *config.Config, seed int64) (*sand.Engine, scene.Emitter, error) {
	c := *cfg
	c.Run.Seed = seed

	e, err := c.NewEngine()
	if err != nil {
		return nil, scene.Emitter{}, err
	}
	em, err := c.NewEmitter()
	if err != nil {
		return nil, scene.Emitter{}, err
	}
	if err := scene.Apply(e, c.Run.Preset, rand.New(rand.NewSource(seed))); err != nil {
		return nil, scene.Emitter{}, err
	}
	return e, em, nil
}

func newSimulator(cfg *config.Config, seed int64, log logrus.FieldLogger) (*sim.Simulator, error) {
	e, em, err := buildScene(cfg, seed)
	if err != nil {
		return nil, err
	}
	s := sim.New(e, log.WithField("seed", seed))
	if em.Enabled {
		s.SetEmitter(&em)
	}
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	return s, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := logx.New(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	simCfg := sim.Config{
		Dt:            cfg.Run.Dt,
		Duration:      cfg.Run.Duration,
		Seed:          cfg.Run.Seed,
		ValidateState: cfg.Run.ValidateState,
	}

	if runs > 1 {
		return runEnsemble(ctx, cfg, simCfg, log)
	}

	s, err := newSimulator(cfg, cfg.Run.Seed, log)
	if err != nil {
		return err
	}

	fmt.Printf("running %s for %.2fs...\n", cfg.Run.Preset, cfg.Run.Duration)
	start := time.Now()

	result, err := s.Run(ctx, simCfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		log.Warn("interrupted, keeping partial run")
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("particles: %d\n", result.Final.Count)
	fmt.Printf("mean speed: %.4f\n", result.Final.MeanSpeed)
	fmt.Printf("mean height: %.4f\n", result.Final.MeanHeight)
	printMetrics(result.Metrics)
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunMetadata{
			Preset:   cfg.Run.Preset,
			Seed:     cfg.Run.Seed,
			Dt:       cfg.Run.Dt,
			Duration: cfg.Run.Duration,
			Settings: s.Engine().Settings(),
		}, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return err
		}
		defer f.Close()
		snap := s.Engine().ParticleData()
		if err := storage.ExportJSON(f, cfg.Run.Preset, cfg.Run.Dt, cfg.Run.Duration, result, &snap); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", exportPath)
	}

	if svgPath != "" {
		e := s.Engine()
		canvas := viz.NewCanvas(120, 48)
		viz.Draw(canvas, viz.NewCamera(e.World()), e)
		if err := os.WriteFile(svgPath, []byte(export.CanvasToSVG(canvas, viz.Colors(e), 4)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}

	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := logx.New(cfg.LogLevel, os.Stderr)

	parsed := make([]optim.Axis, 0, len(axes))
	for _, a := range axes {
		axis, err := optim.ParseAxis(a)
		if err != nil {
			return err
		}
		parsed = append(parsed, axis)
	}
	grid := optim.NewGridSearch(parsed...)

	build := func(params map[string]float64) (*sim.Simulator, error) {
		s, err := newSimulator(cfg, cfg.Run.Seed, logx.Discard())
		if err != nil {
			return nil, err
		}
		for k, v := range params {
			if err := s.Engine().SetNamedParam(k, v); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithField("trials", grid.Size()).Info("sweep started")
	simCfg := sim.Config{Dt: cfg.Run.Dt, Duration: cfg.Run.Duration, Seed: cfg.Run.Seed, ValidateState: true}
	best, trials, err := grid.Search(ctx, build, simCfg, metricName)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARAMS\t%s\n", strings.ToUpper(metricName))
	for _, tr := range trials {
		if tr.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", optim.FormatParams(tr.Params), tr.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6f\n", optim.FormatParams(tr.Params), tr.Value)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nbest: %s (%s = %.6f)\n", optim.FormatParams(best.Params), metricName, best.Value)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := logx.New(cfg.LogLevel, os.Stderr)

	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	e, err := cfg.NewEngine()
	if err != nil {
		return err
	}
	em, err := cfg.NewEmitter()
	if err != nil {
		return err
	}
	s := sim.New(e, log.WithField("scenario", sc.Name))
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	results, err := automation.RunScenario(ctx, sc, s, &em)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTART\tSTEPS\tPARTICLES\tMEAN SPEED\tMEAN HEIGHT\tSETTLED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.2fs\t%d\t%d\t%.4f\t%.4f\t%.2f\n",
			r.Name,
			r.Start,
			r.Result.StepsTaken,
			r.Result.Final.Count,
			r.Result.Final.MeanSpeed,
			r.Result.Final.MeanHeight,
			r.Result.Metrics["settled"],
		)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runEnsemble(ctx context.Context, cfg *config.Config, simCfg sim.Config, log logrus.FieldLogger) error {
	factory := func(seed int64) (*sim.Simulator, error) {
		return newSimulator(cfg, seed, log)
	}

	fmt.Printf("running %d x %s for %.2fs...\n", runs, cfg.Run.Preset, cfg.Run.Duration)
	start := time.Now()
	results, err := sim.NewEnsemble(factory, runs, cfg.Run.Seed).Run(ctx, simCfg)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	names := metricNames(results[0].Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SEED\tPARTICLES\tSTEPS")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d", cfg.Run.Seed+int64(i), r.Final.Count, r.StepsTaken)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func metricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printMetrics(m map[string]float64) {
	fmt.Println("\nmetrics:")
	for _, name := range metricNames(m) {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	e, em, err := buildScene(cfg, cfg.Run.Seed)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(e, em, cfg.Run.Preset, cfg.Run.Seed), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := logx.New(cfg.LogLevel, os.Stderr)
	e, em, err := buildScene(cfg, cfg.Run.Seed)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := stream.New(e, stream.Options{
		FrameRate: frameRate,
		Seed:      cfg.Run.Seed,
		Emitter:   em,
		Log:       log,
	})
	return srv.ListenAndServe(ctx, addr)
}

func listMaterials(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	e, err := cfg.NewEngine()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCATEGORY\tNAME\tMASS\tFRICTION\tRESTITUTION\tCOHESION\tVISCOSITY\tGRAVITY\tSIZE")
	for i, c := range sand.Categories() {
		p, err := e.Material(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			i+1, c, p.Name, p.Mass, p.Friction, p.Restitution, p.Cohesion, p.Viscosity, p.GravityScale, p.Size)
	}
	return w.Flush()
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
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tDT\tSEED\tPARTICLES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Seed,
			run.Particles,
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

	samples, err := st.LoadStats(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		value   func(sim.Sample) float64
	}{
		{"mean height", func(s sim.Sample) float64 { return s.MeanHeight }},
		{"mean speed", func(s sim.Sample) float64 { return s.MeanSpeed }},
		{"particles", func(s sim.Sample) float64 { return float64(s.Count) }},
	}
	for _, s := range series {
		data := make([]float64, len(samples))
		for i := range samples {
			data[i] = s.value(samples[i])
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if len(meta.Metrics) > 0 {
		printMetrics(meta.Metrics)
	}

	if svgPath != "" {
		times := make([]float64, len(samples))
		heights := make([]float64, len(samples))
		for i, smp := range samples {
			times[i], heights[i] = smp.Time, smp.MeanHeight
		}
		if err := os.WriteFile(svgPath, []byte(export.SeriesToSVG(times, heights, 800, 400, "#00ff88")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "sandsim.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s exists, use --force to overwrite", path)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
