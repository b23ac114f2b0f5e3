package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-splice/cli"
	"github.com/RyanBlaney/sonido-splice/clickloss"
	"github.com/RyanBlaney/sonido-splice/config"
	"github.com/RyanBlaney/sonido-splice/engine"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
	"github.com/RyanBlaney/sonido-splice/resets"
	"github.com/RyanBlaney/sonido-splice/synthesis"
)

var (
	version = "0.0.1"
)

// Globals are shared by every command
type Globals struct {
	Config   string `short:"c" type:"path" help:"Path to JSON config file (optional)"`
	LogLevel string `help:"Log level: debug, info, warn or error (overrides the config)"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Synthesize SynthesizeCmd `cmd:"" help:"Synthesize PCM from a feature file"`
	Resets     ResetsCmd     `cmd:"" help:"Select reset frames from a feature file"`
	Mask       MaskCmd       `cmd:"" help:"Write a random reset mask for a feature file"`
	Evaluate   EvaluateCmd   `cmd:"" help:"Score the resets of a synthesized feature file"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("sonido-splice"),
		kong.Description("Reset selection and click concealment for frame-based speech synthesis"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"version": version,
			"modes":   "plain,rule,net,crossfade,lag,masked",
		},
	)

	if err := ctx.Run(&cliArgs.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// setup loads the configuration and installs the global logger
func (g *Globals) setup() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.LogLevel
	if g.LogLevel != "" {
		levelName = g.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewDefaultLogger()
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	return cfg, logger, nil
}

func openFeatures(path string) (*os.File, *features.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open features: %w", err)
	}
	return f, features.NewReader(f, filepath.Base(path)), nil
}

// SynthesizeCmd runs the synthesis loop in one mode
type SynthesizeCmd struct {
	Input     string `arg:"" type:"existingfile" help:"Feature file, 55 float32 values per frame"`
	Output    string `arg:"" type:"path" help:"Output file, raw 16-bit PCM unless --wav"`
	Mode      string `short:"m" enum:"${modes}" default:"plain" help:"Synthesis mode: ${enum}"`
	ResetMask string `name:"reset-mask" type:"existingfile" help:"Reset mask for masked mode"`
	Periodic  bool   `help:"Reset at a fixed interval instead of at scheduled frames"`
	WAV       bool   `name:"wav" help:"Write a 16 kHz mono WAV file"`
	Hiss      bool   `help:"Limit high-band hiss before synthesis"`
}

func (c *SynthesizeCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	mode, err := synthesis.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	opts := cfg.SynthesisOptions(mode)
	if c.Hiss {
		opts.Hiss.Enabled = true
	}

	if mode.UsesSchedule() {
		if c.Periodic {
			opts.Schedule = resets.Periodic{Interval: cfg.Periodic}
		} else {
			schedule, err := c.schedule(cfg, logger)
			if err != nil {
				return err
			}
			opts.Schedule = schedule
		}
	}

	if mode == synthesis.ModeMasked {
		if c.ResetMask == "" {
			return fmt.Errorf("mode %s needs --reset-mask", mode)
		}
		mf, err := os.Open(c.ResetMask)
		if err != nil {
			return fmt.Errorf("failed to open reset mask: %w", err)
		}
		defer mf.Close()
		opts.Mask = features.NewMaskReader(mf, filepath.Base(c.ResetMask))
	}

	synth, err := engine.NewParametric(cfg.Engine)
	if err != nil {
		return err
	}
	runner, err := synthesis.NewRunner(synth, opts, logger)
	if err != nil {
		return err
	}

	in, frames, err := openFeatures(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	var sink synthesis.Sink = synthesis.NewRawSink(out)
	if c.WAV {
		sink = synthesis.NewWAVSink(out, features.SampleRate)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, runErr := runner.Run(runCtx, frames, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to finish output: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	cli.PrintSummary(os.Stdout, "Synthesis",
		cli.Row{Key: "Mode", Value: result.Mode},
		cli.Row{Key: "Frames", Value: strconv.Itoa(result.Frames)},
		cli.Row{Key: "Samples", Value: strconv.Itoa(result.Samples)},
		cli.Row{Key: "Resets", Value: cli.FormatFrames(result.ResetFrames, 12)},
		cli.Row{Key: "Boundary flux", Value: fmt.Sprintf("%.3f", result.MeanBoundaryFlux)},
		cli.Row{Key: "Elapsed", Value: time.Since(start).Round(time.Millisecond).String()},
	)
	return nil
}

// schedule runs the offline scheduler over a separate pass of the input
func (c *SynthesizeCmd) schedule(cfg *config.Config, logger logging.Logger) (*resets.FrameSet, error) {
	f, r, err := openFeatures(c.Input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, _, err := resets.GetResetFrames(r, cfg.Envelope, cfg.Scheduler, logger)
	if err != nil {
		return nil, err
	}
	return resets.NewFrameSet(frames), nil
}

// ResetsCmd prints the offline reset schedule and optionally writes it as a mask
type ResetsCmd struct {
	Input string `arg:"" type:"existingfile" help:"Feature file, 55 float32 values per frame"`
	Mask  string `short:"o" type:"path" help:"Write the schedule as a reset mask"`
}

func (c *ResetsCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	f, r, err := openFeatures(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	frames, stats, err := resets.GetResetFrames(r, cfg.Envelope, cfg.Scheduler, logger)
	if err != nil {
		return err
	}

	if c.Mask != "" {
		if err := writeScheduleMask(c.Mask, resets.NewFrameSet(frames), stats.Len()); err != nil {
			return err
		}
	}

	cli.PrintSummary(os.Stdout, "Reset frames",
		cli.Row{Key: "Frames", Value: strconv.Itoa(stats.Len())},
		cli.Row{Key: "Resets", Value: strconv.Itoa(len(frames))},
		cli.Row{Key: "At", Value: cli.FormatFrames(frames, 0)},
	)
	return nil
}

func writeScheduleMask(path string, schedule resets.Schedule, n int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask: %w", err)
	}
	defer f.Close()

	w := features.NewMaskWriter(f)
	for i := 0; i < n; i++ {
		if err := w.Write(schedule.IsReset(i)); err != nil {
			return fmt.Errorf("failed to write mask: %w", err)
		}
	}
	return w.Flush()
}

// MaskCmd draws a random reset mask with a cool-down after every reset
type MaskCmd struct {
	Input  string `arg:"" type:"existingfile" help:"Feature file, 55 float32 values per frame"`
	Output string `arg:"" type:"path" help:"Output reset mask, one int16 per frame"`
	Seed   uint64 `help:"Random seed (default: time based)"`
}

func (c *MaskCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	params := cfg.Generator
	params.Seed = c.Seed
	if params.Seed == 0 {
		params.Seed = uint64(time.Now().UnixNano())
	}

	f, r, err := openFeatures(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("failed to create mask: %w", err)
	}
	defer out.Close()

	frames, count, err := resets.NewMaskGenerator(params).Generate(r, features.NewMaskWriter(out))
	if err != nil {
		return err
	}
	logger.Debug("generated reset mask", logging.Fields{"seed": params.Seed})

	cli.PrintSummary(os.Stdout, "Reset mask",
		cli.Row{Key: "Frames", Value: strconv.Itoa(frames)},
		cli.Row{Key: "Resets", Value: strconv.Itoa(count)},
		cli.Row{Key: "Seed", Value: strconv.FormatUint(params.Seed, 10)},
	)
	return nil
}

// EvaluateCmd appends click loss pairs for every frame to a loss file
type EvaluateCmd struct {
	Real   string `arg:"" type:"existingfile" help:"Reference feature file"`
	Fake   string `arg:"" type:"existingfile" help:"Features of the synthesized audio"`
	Mask   string `arg:"" type:"existingfile" help:"Reset mask used for the synthesis"`
	Output string `arg:"" type:"path" help:"Loss file, {loss, valid} float32 pairs, appended"`
}

func (c *EvaluateCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	rf, reference, err := openFeatures(c.Real)
	if err != nil {
		return err
	}
	defer rf.Close()

	ff, fake, err := openFeatures(c.Fake)
	if err != nil {
		return err
	}
	defer ff.Close()

	mf, err := os.Open(c.Mask)
	if err != nil {
		return fmt.Errorf("failed to open reset mask: %w", err)
	}
	defer mf.Close()

	out, err := os.OpenFile(c.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open loss file: %w", err)
	}
	defer out.Close()

	evaluator := clickloss.NewEvaluator(clickloss.NewMetric(cfg.Envelope, cfg.ClickLoss), logger)
	summary, err := evaluator.Run(context.Background(), reference, fake,
		features.NewMaskReader(mf, filepath.Base(c.Mask)), features.NewLossWriter(out))
	if err != nil {
		return err
	}

	cli.PrintSummary(os.Stdout, "Click loss",
		cli.Row{Key: "Frames", Value: strconv.Itoa(summary.Frames)},
		cli.Row{Key: "Resets", Value: strconv.Itoa(summary.Resets)},
		cli.Row{Key: "Mean loss", Value: fmt.Sprintf("%.4f", summary.MeanLoss)},
		cli.Row{Key: "Max loss", Value: fmt.Sprintf("%.4f", summary.MaxLoss)},
	)
	return nil
}

// VersionCmd prints the version
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	cli.PrintVersion(version)
	return nil
}
