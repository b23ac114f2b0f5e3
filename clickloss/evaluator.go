package clickloss

import (
	"context"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/logging"
)

// MaskSource yields one reset flag per frame
type MaskSource interface {
	Next() (bool, error)
	Name() string
}

// Summary describes one evaluation run
type Summary struct {
	Frames   int       `json:"frames"`
	Resets   int       `json:"resets"` // resets whose boundary was scored
	Losses   []float64 `json:"losses"`
	MeanLoss float64   `json:"mean_loss"`
	MaxLoss  float64   `json:"max_loss"`
}

// Evaluator scores every reset of a synthesized feature stream against the
// reference stream
type Evaluator struct {
	metric *Metric
	logger logging.Logger
}

// NewEvaluator creates an evaluator
func NewEvaluator(metric *Metric, logger logging.Logger) *Evaluator {
	return &Evaluator{
		metric: metric,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{"component": "clickloss"}),
	}
}

// Run reads the three aligned streams to the end and writes one
// {loss, valid} pair per frame. The pair at index k scores a reset on frame
// k as loss(k) + loss(k+1); frames that are not followed by a scored
// successor get {0, 0}. The stream is closed by a trailing {0, 0} pair.
//
// A mask value outside {0, 1} or streams of different length stop the run;
// pairs already produced are flushed before the error is returned.
func (e *Evaluator) Run(ctx context.Context, real, fake features.FrameReader, mask MaskSource, out *features.LossWriter) (*Summary, error) {
	sources := []string{real.Name(), fake.Name(), mask.Name()}
	summary := &Summary{}

	frame := 0
	checkNext := false
	prevLoss := 0.0

	fail := func(err error) (*Summary, error) {
		if ferr := out.Flush(); ferr != nil {
			e.logger.Error(ferr, "failed to flush partial loss output")
		}
		e.finish(summary, frame)
		return summary, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		realFrame, realErr := real.Next()
		fakeFrame, fakeErr := fake.Next()
		reset, maskErr := mask.Next()

		for _, err := range []error{realErr, fakeErr, maskErr} {
			if err != nil && err != io.EOF {
				return fail(err)
			}
		}

		done, err := features.CheckAligned(frame, sources,
			[]bool{realErr == io.EOF, fakeErr == io.EOF, maskErr == io.EOF})
		if err != nil {
			return fail(err)
		}
		if done {
			break
		}

		loss, valid := 0.0, false
		if checkNext {
			cur, err := e.metric.Loss(realFrame, fakeFrame)
			if err != nil {
				return fail(fmt.Errorf("frame %d: %w", frame, err))
			}
			loss, valid = prevLoss+cur, true
			summary.Losses = append(summary.Losses, loss)
		}

		if reset {
			prevLoss, err = e.metric.Loss(realFrame, fakeFrame)
			if err != nil {
				return fail(fmt.Errorf("frame %d: %w", frame, err))
			}
			checkNext = true
		} else {
			checkNext = false
		}

		if frame > 0 {
			if err := out.Write(loss, valid); err != nil {
				return fail(fmt.Errorf("failed to write loss for frame %d: %w", frame, err))
			}
		}
		frame++
	}

	if err := out.Write(0, false); err != nil {
		return fail(fmt.Errorf("failed to write closing loss pair: %w", err))
	}
	if err := out.Flush(); err != nil {
		return summary, fmt.Errorf("failed to flush loss output: %w", err)
	}

	e.finish(summary, frame)
	e.logger.Info("evaluated click loss", logging.Fields{
		"frames":    summary.Frames,
		"resets":    summary.Resets,
		"mean_loss": summary.MeanLoss,
		"max_loss":  summary.MaxLoss,
	})

	return summary, nil
}

func (e *Evaluator) finish(summary *Summary, frames int) {
	summary.Frames = frames
	summary.Resets = len(summary.Losses)
	if len(summary.Losses) > 0 {
		summary.MeanLoss = stat.Mean(summary.Losses, nil)
		summary.MaxLoss = floats.Max(summary.Losses)
	}
}
