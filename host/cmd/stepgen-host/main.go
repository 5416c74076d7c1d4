package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stepgen/fixed"
	"stepgen/fixture"
	"stepgen/host/mcu"
	"stepgen/host/scenario"
	"stepgen/host/serial"
	"stepgen/protocol"
	"stepgen/ramp"
)

var logger = zap.NewNop()

var errMismatch = errors.New("sequence mismatch")

func main() {
	app := cli.NewApp()
	app.Name = "stepgen-host"
	app.Usage = "render, check and run stepper ramps"
	app.Version = protocol.Version
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if c.Bool("verbose") {
			config = zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	}
	app.After = func(c *cli.Context) error {
		_ = logger.Sync()
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "render",
			Usage:     "Print the delay sequence of a scenario",
			ArgsUsage: "<scenario.yaml>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out",
					Usage: "Write to this file instead of stdout",
				},
			},
			Action: renderAction,
		},
		{
			Name:      "check",
			Usage:     "Compare reference sequence files against a fresh render",
			ArgsUsage: "<sequence file>...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "numeric",
					Usage: "Numeric type to render with: q20, q32 or f32",
					Value: "q20",
				},
			},
			Action: checkAction,
		},
		{
			Name:   "dictionary",
			Usage:  "Print the firmware command table",
			Action: func(c *cli.Context) error { _, err := fmt.Print(protocol.Dictionary()); return err },
		},
		{
			Name:      "run",
			Usage:     "Run a scenario on a board",
			ArgsUsage: "<scenario.yaml>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "device", Usage: "Serial device path", Value: "/dev/ttyACM0"},
				cli.IntFlag{Name: "baud", Usage: "Baud rate (ignored for USB CDC)", Value: 250000},
				cli.IntFlag{Name: "step-pin", Usage: "Step output GPIO", Value: 2},
				cli.IntFlag{Name: "dir-pin", Usage: "Direction output GPIO", Value: 3},
				cli.BoolFlag{Name: "invert-step", Usage: "Pulse active low"},
				cli.DurationFlag{Name: "timeout", Usage: "Give up waiting for the move after this long", Value: time.Minute},
			},
			Action: runAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("stepgen-host failed", zap.Error(err))
		os.Exit(1)
	}
}

func renderAction(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelp(c, "render")
		return errors.New("render needs one scenario file")
	}
	out := io.Writer(os.Stdout)
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return renderScenario(out, c.Args().First())
}

func renderScenario(w io.Writer, path string) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	lines, err := s.Render()
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	logger.Debug("rendered", zap.String("scenario", s.Name), zap.Int("lines", len(lines)))
	return fixture.Write(w, lines)
}

func checkAction(c *cli.Context) error {
	if c.NArg() == 0 {
		cli.ShowCommandHelp(c, "check")
		return errors.New("check needs at least one sequence file")
	}
	failed := 0
	for _, path := range c.Args() {
		if err := checkFixture(path, c.String("numeric")); err != nil {
			logger.Error("check failed", zap.String("file", path), zap.Error(err))
			failed++
			continue
		}
		logger.Info("check passed", zap.String("file", path))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sequences differ", failed, c.NArg())
	}
	return nil
}

// checkFixture renders the reference move named by the file and compares.
func checkFixture(path, numeric string) error {
	sc, err := fixture.ParseName(filepath.Base(path))
	if err != nil {
		return err
	}
	want, err := fixture.Load(path)
	if err != nil {
		return err
	}
	g, err := referenceGenerator(sc, numeric)
	if err != nil {
		return err
	}
	got, err := fixture.Render(g, sc.StopAt)
	if err != nil {
		return err
	}
	if diff := cmp.Diff(want, got); diff != "" {
		logger.Debug("sequence diff", zap.String("file", path), zap.String("diff", diff))
		return fmt.Errorf("%w (-want +got):\n%s", errMismatch, diff)
	}
	return nil
}

func referenceGenerator(sc fixture.Scenario, numeric string) (fixture.Stepper, error) {
	switch numeric {
	case "q20":
		return ramp.NewWithBounds[fixed.Q20F12](sc.Bounds(), sc.Target(), ramp.Trapezoid())
	case "q32":
		return ramp.NewWithBounds[fixed.Q32F32](sc.Bounds(), sc.Target(), ramp.Trapezoid())
	case "f32":
		return ramp.NewWithBounds[fixed.F32](sc.Bounds(), sc.Target(), ramp.Trapezoid())
	}
	return nil, fmt.Errorf("%w: %q", scenario.ErrUnknownNumeric, numeric)
}

func runAction(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelp(c, "run")
		return errors.New("run needs one scenario file")
	}
	s, err := scenario.Load(c.Args().First())
	if err != nil {
		return err
	}
	cfg := serial.DefaultConfig(c.String("device"))
	cfg.Baud = c.Int("baud")
	board, err := mcu.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer board.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()
	st, err := runScenario(ctx, board, s,
		s.Config(uint8(c.Int("step-pin")), uint8(c.Int("dir-pin")), c.Bool("invert-step")))
	if err != nil {
		return err
	}
	logger.Info("move finished",
		zap.Uint8("oid", st.OID),
		zap.Uint32("steps", st.Step),
		zap.Uint32("accel_steps", st.AccelSteps))
	return nil
}

// runScenario configures the stepper, starts the move and waits for the
// firmware to report its end.
func runScenario(ctx context.Context, board *mcu.MCU, s *scenario.Scenario, cfg protocol.ConfigRamp) (*protocol.RampStatus, error) {
	move, err := s.Move()
	if err != nil {
		return nil, err
	}
	if len(s.Events) > 0 {
		logger.Warn("events only apply to host renders, ignoring", zap.Int("events", len(s.Events)))
	}
	if err := board.Configure(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config_ramp: %w", err)
	}
	logger.Info("starting move",
		zap.String("scenario", s.Name),
		zap.Uint32("rpm", move.RPM),
		zap.Uint32("steps", move.Steps),
		zap.Uint32("duration_ms", move.DurationMS))
	if err := board.Move(ctx, move); err != nil {
		return nil, fmt.Errorf("ramp_move: %w", err)
	}
	st, err := board.WaitDone(ctx, s.OID)
	if err != nil {
		return nil, fmt.Errorf("waiting for move end: %w", err)
	}
	return st, nil
}
