package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/phil-mansfield/cellgrid"
	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/force"
	"github.com/phil-mansfield/cellgrid/integrator"
	"github.com/phil-mansfield/cellgrid/io"
	"github.com/phil-mansfield/cellgrid/telemetry"
	"github.com/phil-mansfield/cellgrid/thread"
)

const serviceName = "cellgrid"

// FileGroup contains utility files for logging and writing profiles to.
type FileGroup struct {
	log, prof *os.File
}

// Close closes the files inside FileGroup.
func (fg *FileGroup) Close() {
	if fg.log != nil {
		if err := fg.log.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		if err := fg.prof.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var config, restart string
	var exampleConfig bool

	flag.StringVar(&config, "Config", "", "Configuration file for the run.")
	flag.StringVar(
		&restart, "Restart", "",
		"Checkpoint file to start from instead of the 'Particles' table.",
	)
	flag.BoolVar(
		&exampleConfig, "ExampleConfig", false,
		"Prints an example configuration file to stdout.",
	)
	flag.IntVar(
		&thread.NumCores, "Threads", runtime.NumCPU(),
		"Number of worker goroutines. Overridden by a positive 'Threads' "+
			"value in the configuration file.",
	)
	flag.Parse()

	if exampleConfig {
		fmt.Println(io.ExampleConfigFile)
		return
	} else if config == "" {
		log.Fatal("Must supply a -Config file.")
	}

	w, err := io.ReadConfig(config)
	if err != nil {
		log.Fatal(err.Error())
	}
	if w.Run.Threads > 0 {
		thread.NumCores = w.Run.Threads
	}

	fg := setupIO(w)
	defer fg.Close()

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, serviceName)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer shutdown(ctx)

	if err := run(ctx, w, restart); err != nil {
		log.Fatal(err.Error())
	}
}

// setupIO opens the log and profile files requested by w.
func setupIO(w *io.Wrapper) *FileGroup {
	var err error
	fg := new(FileGroup)

	if w.Run.ValidLogFile() {
		fg.log, err = os.Create(w.Run.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if w.Run.ValidProfileFile() {
		fg.prof, err = os.Create(w.Run.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err = pprof.StartCPUProfile(fg.prof); err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}

func run(ctx context.Context, w *io.Wrapper, restart string) error {
	dc, err := w.DomainConfig()
	if err != nil {
		return err
	}
	dc.Grid.Logger = log.Default()

	var ps []cell.Particle
	step0, t0 := 0, 0.0
	if restart != "" {
		h, restartPs, err := io.ReadCheckpoint(restart)
		if err != nil {
			return err
		}
		if int(h.Dimension) != dc.Dim {
			return fmt.Errorf(
				"Checkpoint %s is %d dimensional, but Dimensions = %d.",
				restart, h.Dimension, dc.Dim,
			)
		}
		ps, step0, t0 = restartPs, int(h.Step), h.Time
		dc.Lattice = h.Lattice
	} else if ps, err = io.ReadParticles(w.Run.Particles); err != nil {
		return err
	}

	d, err := cellgrid.New(dc)
	if err != nil {
		return err
	}
	for i := range ps {
		if err := d.Insert(&ps[i]); err != nil {
			return err
		}
	}
	log.Printf("Read %d particles.", d.Count())

	passes, err := w.Passes(dc.Grid.Layout)
	if err != nil {
		return err
	}
	drv := &force.Driver{Workers: thread.NumCores, Passes: passes}
	v, err := integrator.NewVerlet(w.Run.TimeStep, drv)
	if err != nil {
		return err
	}

	e, err := v.Init(ctx, d)
	if err != nil {
		return err
	}
	logEnergy(step0, d, e)

	for step := 1; step <= w.Run.Steps; step++ {
		if e, err = v.Step(ctx, d); err != nil {
			return err
		}
		if out := d.Outgoing(); out.N > 0 {
			log.Printf("Dropping %d particles which left this process.", out.N)
			d.ClearOutgoing()
		}
		if step%w.Run.LogInterval == 0 || step == w.Run.Steps {
			logEnergy(step0+step, d, e)
		}
	}
	log.Printf("Finished %d steps with %d grid rebuilds.", w.Run.Steps, v.Rebuilds)

	if w.Run.Checkpoint == "" {
		return nil
	}
	return writeCheckpoint(w, d, step0+w.Run.Steps,
		t0+float64(w.Run.Steps)*w.Run.TimeStep)
}

func logEnergy(step int, d *cellgrid.Domain, e force.Energy) {
	kin := integrator.KineticEnergy(d)
	log.Printf(
		"Step %6d: N = %d, Epot = %.8g, Ekin = %.8g, Etot = %.8g, Virial = %.6g",
		step, d.Count(), e.Pot, kin, e.Pot+kin, e.Virial,
	)
}

func writeCheckpoint(w *io.Wrapper, d *cellgrid.Domain, step int, t float64) error {
	ps := make([]cell.Particle, 0, d.Count())
	d.ForEachCell(func(c *cell.Cell) {
		for i := 0; i < c.N; i++ {
			ps = append(ps, *c.Get(i))
		}
	})

	h := &io.CheckpointHeader{
		Step:      int64(step),
		Dimension: int64(d.Box().Dim),
		Time:      t,
		Lattice:   d.Box().Lattice,
	}
	if err := io.WriteCheckpoint(w.Run.Checkpoint, h, ps); err != nil {
		return err
	}
	log.Printf("Wrote %d particles to %s.", len(ps), w.Run.Checkpoint)
	return nil
}
