package classifier

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/example/ai-check/internal/config"
)

// ModelSource tags the outcome of model resolution at startup.
type ModelSource int

const (
	// SourceFineTuned is a checkpoint fine-tuned for this task.
	SourceFineTuned ModelSource = iota
	// SourcePretrained is the shipped pretrained checkpoint.
	SourcePretrained
	// SourceConstructed is the frozen backbone with a freshly initialised
	// head. Its scores carry no meaning; it exists for smoke tests.
	SourceConstructed
	// SourceStub is the single dense layer used when everything else failed.
	SourceStub
	// SourceRemote delegates scoring to a gRPC scorer service.
	SourceRemote
)

func (s ModelSource) String() string {
	switch s {
	case SourceFineTuned:
		return "finetuned"
	case SourcePretrained:
		return "pretrained"
	case SourceConstructed:
		return "constructed"
	case SourceStub:
		return "stub"
	case SourceRemote:
		return "remote"
	default:
		return fmt.Sprintf("ModelSource(%d)", int(s))
	}
}

// Options locates model artifacts on disk.
type Options struct {
	FineTunedPath  string
	PretrainedPath string
	BackbonePath   string
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath    string
	IntraOpThreads int
	// Seed fixes the initial weights of the constructed head and the stub.
	Seed int64
}

// OptionsFromConfig maps the classifier section of the service config.
func OptionsFromConfig(c config.ClassifierConfig) Options {
	return Options{
		FineTunedPath:  c.FineTunedPath,
		PretrainedPath: c.PretrainedPath,
		BackbonePath:   c.BackbonePath,
		LibraryPath:    c.LibraryPath,
		IntraOpThreads: c.IntraOpThreads,
		Seed:           c.Seed,
	}
}

type loaders struct {
	exists     func(path string) bool
	checkpoint func(path string) (Scorer, error)
	construct  func() (Scorer, error)
}

// Load resolves the classifier in priority order: fine-tuned checkpoint,
// pretrained checkpoint, constructed backbone plus head. Any failure along
// the way falls back to the stub, so Load always returns a usable value.
func Load(opts Options, logger *zap.Logger) *Classifier {
	return load(opts, onnxLoaders(opts), logger)
}

func load(opts Options, l loaders, logger *zap.Logger) *Classifier {
	logger = logger.Named("classifier")

	source, scorer, err := resolve(opts, l)
	if err != nil {
		logger.Error("model construction failed, falling back to stub",
			zap.Stringer("attempted", source), zap.Error(err))
		return &Classifier{source: SourceStub, scorer: NewStub(opts.Seed), loadErr: err}
	}
	if source == SourceConstructed {
		logger.Warn("no checkpoint found, using untrained head on frozen backbone",
			zap.String("backbone", opts.BackbonePath))
	}
	logger.Info("classifier ready", zap.Stringer("source", source))
	return &Classifier{source: source, scorer: scorer}
}

func resolve(opts Options, l loaders) (ModelSource, Scorer, error) {
	switch {
	case opts.FineTunedPath != "" && l.exists(opts.FineTunedPath):
		s, err := l.checkpoint(opts.FineTunedPath)
		if err != nil {
			return SourceFineTuned, nil, fmt.Errorf("load fine-tuned checkpoint %s: %w", opts.FineTunedPath, err)
		}
		return SourceFineTuned, s, nil
	case opts.PretrainedPath != "" && l.exists(opts.PretrainedPath):
		s, err := l.checkpoint(opts.PretrainedPath)
		if err != nil {
			return SourcePretrained, nil, fmt.Errorf("load pretrained checkpoint %s: %w", opts.PretrainedPath, err)
		}
		return SourcePretrained, s, nil
	default:
		s, err := l.construct()
		if err != nil {
			return SourceConstructed, nil, fmt.Errorf("construct model: %w", err)
		}
		return SourceConstructed, s, nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
