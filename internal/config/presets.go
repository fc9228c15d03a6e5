package config

var Presets = map[string]map[string]*Config{
	"stack": {
		"default": {
			Scene: "stack", Dt: DefaultDt, Duration: 10.0,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 8, PositionIterations: 3,
			CCD: true, Parallel: true, Workers: DefaultWorkers,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
		"precise": {
			Scene: "stack", Dt: 1.0 / 120.0, Duration: 10.0,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 16, PositionIterations: 6,
			CCD: true, Deterministic: true, Workers: 1,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
		"fast": {
			Scene: "stack", Dt: 1.0 / 30.0, Duration: 10.0,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 4, PositionIterations: 2,
			Parallel: true, Workers: DefaultWorkers,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
	},
	"projectile": {
		"default": {
			Scene: "projectile", Dt: DefaultDt, Duration: 5.0,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 8, PositionIterations: 3,
			CCD: true, Parallel: true, Workers: DefaultWorkers,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
		"tunneling": {
			Scene: "projectile", Dt: DefaultDt, Duration: 5.0,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 8, PositionIterations: 3,
			CCD: false, Parallel: true, Workers: DefaultWorkers,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
	},
	"mixer": {
		"default": {
			Scene: "mixer", Dt: DefaultDt, Duration: 20.0, Seed: 1,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 8, PositionIterations: 3,
			CCD: true, Parallel: true, Workers: DefaultWorkers,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
		"replay": {
			Scene: "mixer", Dt: DefaultDt, Duration: 20.0, Seed: 1,
			Gravity:            [2]float64{0, DefaultGravityY},
			VelocityIterations: 8, PositionIterations: 3,
			CCD: true, Deterministic: true, Workers: 1,
			WarmStarting: true, WarmStartTolerance: 0.02,
		},
	},
}

func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	cfg, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	return names
}
