package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/rigid2d/internal/config"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/metrics"
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/scene"
	"github.com/san-kum/rigid2d/internal/snapshot"
	"github.com/san-kum/rigid2d/internal/view"
	"github.com/san-kum/rigid2d/internal/world"
	"github.com/spf13/cobra"
)

var (
	dt            float64
	duration      float64
	seed          int64
	ccdEnabled    bool
	deterministic bool
	parallel      bool
	workers       int
	velIters      int
	posIters      int
	configFile    string
	preset        string
	snapshotOut   string
	plotMetric    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rigid2d",
		Short: "2d rigid body simulation engine",
	}

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene",
		Args:  cobra.ExactArgs(1),
		RunE:  runScene,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for random scenes")
	runCmd.Flags().BoolVar(&ccdEnabled, "ccd", true, "continuous collision detection")
	runCmd.Flags().BoolVar(&deterministic, "deterministic", false, "bit-identical runs regardless of workers")
	runCmd.Flags().BoolVar(&parallel, "parallel", true, "solve islands in parallel")
	runCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "solver worker count")
	runCmd.Flags().IntVar(&velIters, "velocity-iterations", config.DefaultVelocityIterations, "solver velocity iterations")
	runCmd.Flags().IntVar(&posIters, "position-iterations", config.DefaultPositionIterations, "solver position iterations")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&snapshotOut, "snapshot", "", "write end-state snapshot to file")
	runCmd.Flags().StringVar(&plotMetric, "plot", "kinetic_energy", "metric to plot (kinetic_energy, activity, contacts)")

	resumeCmd := &cobra.Command{
		Use:   "resume [snapshot]",
		Short: "continue a run from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeScene,
	}
	resumeCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	resumeCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	resumeCmd.Flags().StringVar(&snapshotOut, "snapshot", "", "write end-state snapshot to file")

	inspectCmd := &cobra.Command{
		Use:   "inspect [snapshot]",
		Short: "print snapshot contents",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectSnapshot,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "benchmark a scene",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	benchCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	benchCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for random scenes")
	benchCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "solver worker count")

	watchCmd := &cobra.Command{
		Use:   "watch [scene]",
		Short: "watch a scene live in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  watchScene,
	}
	watchCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	watchCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for random scenes")
	watchCmd.Flags().BoolVar(&ccdEnabled, "ccd", true, "continuous collision detection")
	watchCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	watchCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list available presets for a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scene: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, resumeCmd, inspectCmd, benchCmd, watchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig merges preset, config file and CLI flags (flags win).
func resolveConfig(cmd *cobra.Command, sceneName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Scene = sceneName

	if preset != "" {
		pc := config.GetPreset(sceneName, preset)
		if pc == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(sceneName))
		}
		*cfg = *pc
	}
	if configFile != "" {
		fc, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *fc
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("ccd") {
		cfg.CCD = ccdEnabled
	}
	if cmd.Flags().Changed("deterministic") {
		cfg.Deterministic = deterministic
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = parallel
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("velocity-iterations") {
		cfg.VelocityIterations = velIters
	}
	if cmd.Flags().Changed("position-iterations") {
		cfg.PositionIterations = posIters
	}
	return cfg, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	w := world.New()
	if err := scene.Build(cfg.Scene, cfg.Seed, w); err != nil {
		return err
	}

	return simulate(pipeline.New(w), cfg)
}

func watchScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	gravity := mathx.V(cfg.Gravity[0], cfg.Gravity[1])
	return view.Run(cfg.Scene, cfg.Seed, cfg.Dt, gravity, cfg.StepConfig())
}

func resumeScene(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	w, contacts, prevDt, err := snapshot.Read(f)
	if err != nil {
		return err
	}

	eng := pipeline.New(w)
	eng.RestoreContacts(contacts)
	eng.RestorePrevDt(prevDt)

	cfg := config.DefaultConfig()
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	return simulate(eng, cfg)
}

func simulate(eng *pipeline.Engine, cfg *config.Config) error {
	gravity := mathx.V(cfg.Gravity[0], cfg.Gravity[1])
	stepCfg := cfg.StepConfig()
	steps := int(cfg.Duration / cfg.Dt)

	energy := metrics.NewEnergy()
	activity := metrics.NewActivity()
	contacts := metrics.NewContacts()
	stability := metrics.NewStability()
	observers := []metrics.Metric{energy, activity, contacts, stability}

	series := make([]float64, 0, steps)
	events := 0
	stepErrors := 0

	start := time.Now()
	for i := 0; i < steps; i++ {
		res, err := eng.Step(cfg.Dt, gravity, stepCfg)
		if err != nil {
			return err
		}
		t := float64(i+1) * cfg.Dt
		for _, m := range observers {
			m.Observe(eng.World(), res, t)
		}
		events += len(res.Events)
		stepErrors += len(res.Errors)

		switch plotMetric {
		case "activity":
			series = append(series, activity.Last())
		case "contacts":
			series = append(series, contacts.Last())
		default:
			series = append(series, energy.Last())
		}
	}
	elapsed := time.Since(start)

	if len(series) > 1 {
		graph := asciigraph.Plot(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(plotMetric),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "scene\t%s\n", cfg.Scene)
	fmt.Fprintf(tw, "steps\t%d\n", steps)
	fmt.Fprintf(tw, "wall time\t%s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "steps/sec\t%.0f\n", float64(steps)/elapsed.Seconds())
	fmt.Fprintf(tw, "events\t%d\n", events)
	fmt.Fprintf(tw, "step errors\t%d\n", stepErrors)
	for _, m := range observers {
		fmt.Fprintf(tw, "%s\t%.4f\n", m.Name(), m.Value())
	}
	tw.Flush()

	if snapshotOut != "" {
		f, err := os.Create(snapshotOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := snapshot.Write(f, eng.World(), eng.Contacts(), eng.PrevDt()); err != nil {
			return err
		}
		fmt.Printf("\nsnapshot written to %s\n", snapshotOut)
	}
	return nil
}

func inspectSnapshot(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	w, contacts, _, err := snapshot.Read(f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "bodies\t%d\n", w.Bodies.Len())
	fmt.Fprintf(tw, "colliders\t%d\n", w.Colliders.Len())
	fmt.Fprintf(tw, "joints\t%d\n", w.Joints.Len())
	fmt.Fprintf(tw, "contacts\t%d\n", len(contacts.Pairs()))
	tw.Flush()
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	w := world.New()
	if err := scene.Build(cfg.Scene, cfg.Seed, w); err != nil {
		return err
	}
	eng := pipeline.New(w)

	gravity := mathx.V(cfg.Gravity[0], cfg.Gravity[1])
	stepCfg := cfg.StepConfig()
	steps := int(cfg.Duration / cfg.Dt)

	start := time.Now()
	for i := 0; i < steps; i++ {
		if _, err := eng.Step(cfg.Dt, gravity, stepCfg); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%s: %d steps in %s (%.0f steps/sec)\n",
		cfg.Scene, steps, elapsed.Round(time.Millisecond), float64(steps)/elapsed.Seconds())
	return nil
}
