// Package detector is the synchronous core entry point: image bytes in,
// verdict out.
package detector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/ai-check/internal/fusion"
	"github.com/example/ai-check/internal/heuristic"
	"github.com/example/ai-check/internal/imageprocessor"
	"github.com/example/ai-check/internal/logging"
)

// ErrInference reports a classifier failure on an otherwise valid image.
var ErrInference = errors.New("internal processing error")

// Scorer is the subset of classifier.Classifier the detector needs.
type Scorer interface {
	Score(ctx context.Context, t *imageprocessor.Tensor) (float64, error)
}

// Detector classifies images with a shared, read-only scorer. It holds no
// per-request state and is safe for concurrent use when the scorer is.
type Detector struct {
	scorer Scorer
	policy fusion.Policy
	logger *zap.Logger
}

// Option customises a Detector.
type Option func(*Detector)

// WithPolicy replaces the default fusion policy.
func WithPolicy(p fusion.Policy) Option {
	return func(d *Detector) { d.policy = p }
}

// New builds a detector around scorer.
func New(scorer Scorer, logger *zap.Logger, opts ...Option) *Detector {
	d := &Detector{
		scorer: scorer,
		policy: fusion.DefaultPolicy(),
		logger: logger.Named("detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Classify returns the verdict for encoded image bytes.
func (d *Detector) Classify(ctx context.Context, data []byte) (fusion.Verdict, error) {
	decision, err := d.Evaluate(ctx, data)
	if err != nil {
		return "", err
	}
	return decision.Verdict, nil
}

// ClassifyFile returns the verdict for the image stored at path.
func (d *Detector) ClassifyFile(ctx context.Context, path string) (fusion.Verdict, error) {
	decision, err := d.EvaluateFile(ctx, path)
	if err != nil {
		return "", err
	}
	return decision.Verdict, nil
}

// Evaluate is Classify with the intermediate numbers kept for logging and
// metrics. Callers must not expose them as part of the result.
func (d *Detector) Evaluate(ctx context.Context, data []byte) (fusion.Decision, error) {
	decoded, err := imageprocessor.Decode(data)
	if err != nil {
		return fusion.Decision{}, logging.NewOperationError("detector.decode", "", err)
	}
	return d.evaluate(ctx, decoded)
}

// EvaluateFile is Evaluate for a file on disk.
func (d *Detector) EvaluateFile(ctx context.Context, path string) (fusion.Decision, error) {
	decoded, err := imageprocessor.DecodeFile(path)
	if err != nil {
		return fusion.Decision{}, logging.NewOperationError("detector.decode", "", err)
	}
	return d.evaluate(ctx, decoded)
}

func (d *Detector) evaluate(ctx context.Context, decoded *imageprocessor.Decoded) (fusion.Decision, error) {
	start := time.Now()
	tensor := imageprocessor.NewTensor(decoded.Image)

	score, err := d.scorer.Score(ctx, tensor)
	if err != nil {
		d.logger.Error("classifier failed", zap.Error(err))
		return fusion.Decision{}, logging.NewOperationError("detector.score", "", errors.Join(ErrInference, err))
	}

	decision := d.policy.Decide(score, func() (heuristic.Label, error) {
		result, err := heuristic.Evaluate(decoded.Raw())
		if err != nil {
			return "", err
		}
		d.logger.Debug("heuristic scores",
			zap.Float64("texture", result.Scores.Texture),
			zap.Float64("color", result.Scores.Color),
			zap.Float64("noise", result.Scores.Noise),
			zap.Float64("combined", result.Combined))
		return result.Label, nil
	})
	if decision.HeuristicErr != nil {
		d.logger.Warn("heuristic analysis unavailable, using neutral signal",
			zap.Error(decision.HeuristicErr), zap.String("format", decoded.Format))
	}

	d.logger.Debug("image classified",
		zap.String("verdict", string(decision.Verdict)),
		zap.Float64("classifier_score", decision.ClassifierScore),
		zap.Bool("heuristic", decision.HeuristicInvoked),
		zap.Duration("elapsed", time.Since(start)))
	return decision, nil
}
