package io

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// runEnv lists the run parameters that can be overridden from the
// environment. Unset variables leave the configured value alone.
type runEnv struct {
	Threads     int     `env:"CELLGRID_THREADS"`
	Steps       int     `env:"CELLGRID_STEPS"`
	TimeStep    float64 `env:"CELLGRID_TIME_STEP"`
	Particles   string  `env:"CELLGRID_PARTICLES"`
	LogFile     string  `env:"CELLGRID_LOG_FILE"`
	ProfileFile string  `env:"CELLGRID_PROFILE_FILE"`
	Checkpoint  string  `env:"CELLGRID_CHECKPOINT"`
}

// ApplyEnv overwrites fields of w.Run with any CELLGRID_* environment
// variables that are set.
func ApplyEnv(w *Wrapper) error {
	r := runEnv{
		Threads:     w.Run.Threads,
		Steps:       w.Run.Steps,
		TimeStep:    w.Run.TimeStep,
		Particles:   w.Run.Particles,
		LogFile:     w.Run.LogFile,
		ProfileFile: w.Run.ProfileFile,
		Checkpoint:  w.Run.Checkpoint,
	}
	if err := env.Parse(&r); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	w.Run.Threads, w.Run.Steps, w.Run.TimeStep = r.Threads, r.Steps, r.TimeStep
	w.Run.Particles = r.Particles
	w.Run.LogFile, w.Run.ProfileFile = r.LogFile, r.ProfileFile
	w.Run.Checkpoint = r.Checkpoint
	return nil
}
