package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/example/ai-check/internal/imageprocessor"
)

var ortInit sync.Mutex

func onnxLoaders(opts Options) loaders {
	return loaders{
		exists: fileExists,
		checkpoint: func(path string) (Scorer, error) {
			return openCheckpoint(path, opts)
		},
		construct: func() (Scorer, error) {
			return construct(opts)
		},
	}
}

func initializeEnvironment(libraryPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// onnxModel is a single-input, single-output session over a 4D image input.
type onnxModel struct {
	session       *ort.DynamicAdvancedSession
	input         ort.InputOutputInfo
	output        ort.InputOutputInfo
	channelsFirst bool
}

func openModel(path string, opts Options) (*onnxModel, error) {
	if err := initializeEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]
	if len(in.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input, got %dD", len(in.Dimensions))
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer sessionOpts.Destroy() //nolint:errcheck
	if opts.IntraOpThreads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("intra op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{in.Name}, []string{out.Name}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &onnxModel{
		session:       session,
		input:         in,
		output:        out,
		channelsFirst: in.Dimensions[1] == imageprocessor.Channels && in.Dimensions[3] != imageprocessor.Channels,
	}, nil
}

// run feeds t through the session and returns a copy of the output data
// along with its concrete shape.
func (m *onnxModel) run(t *imageprocessor.Tensor) ([]float32, ort.Shape, error) {
	var (
		data  []float32
		shape ort.Shape
	)
	if m.channelsFirst {
		data = t.CHW()
		shape = ort.NewShape(1, imageprocessor.Channels, int64(t.Height), int64(t.Width))
	} else {
		data = append([]float32(nil), t.Data...)
		shape = ort.NewShape(t.Shape()...)
	}

	input, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy() //nolint:errcheck

	outShape := concreteShape(m.output.Dimensions)
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy() //nolint:errcheck

	if err := m.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}); err != nil {
		return nil, nil, fmt.Errorf("run: %w", err)
	}
	return append([]float32(nil), output.GetData()...), outShape, nil
}

func (m *onnxModel) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

// concreteShape replaces dynamic dimensions with 1, the batch size used
// throughout.
func concreteShape(dims ort.Shape) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

// checkpointScorer runs a full exported classifier whose single output is
// the sigmoid probability.
type checkpointScorer struct {
	model *onnxModel
}

func openCheckpoint(path string, opts Options) (Scorer, error) {
	model, err := openModel(path, opts)
	if err != nil {
		return nil, err
	}
	if n := concreteShape(model.output.Dimensions).FlattenedSize(); n != 1 {
		model.Close() //nolint:errcheck
		return nil, fmt.Errorf("expected a single probability output, got %d values", n)
	}
	return &checkpointScorer{model: model}, nil
}

func (s *checkpointScorer) Score(_ context.Context, t *imageprocessor.Tensor) (float64, error) {
	out, _, err := s.model.run(t)
	if err != nil {
		return 0, err
	}
	return float64(out[0]), nil
}

func (s *checkpointScorer) Close() error {
	return s.model.Close()
}

// constructedScorer pools the frozen backbone's feature map and feeds it to
// a freshly initialised head.
type constructedScorer struct {
	backbone *onnxModel
	head     *Head
}

func construct(opts Options) (Scorer, error) {
	if opts.BackbonePath == "" || !fileExists(opts.BackbonePath) {
		return nil, fmt.Errorf("backbone weights not found at %q", opts.BackbonePath)
	}
	backbone, err := openModel(opts.BackbonePath, opts)
	if err != nil {
		return nil, err
	}
	features, err := featureDim(backbone)
	if err != nil {
		backbone.Close() //nolint:errcheck
		return nil, err
	}
	return &constructedScorer{backbone: backbone, head: NewHead(features, opts.Seed)}, nil
}

func (s *constructedScorer) Score(_ context.Context, t *imageprocessor.Tensor) (float64, error) {
	out, shape, err := s.backbone.run(t)
	if err != nil {
		return 0, err
	}
	pooled, err := globalAveragePool(out, shape, s.backbone.channelsFirst)
	if err != nil {
		return 0, err
	}
	return s.head.Forward(pooled), nil
}

func (s *constructedScorer) Close() error {
	return s.backbone.Close()
}

func featureDim(m *onnxModel) (int, error) {
	dims := concreteShape(m.output.Dimensions)
	switch len(dims) {
	case 2:
		return int(dims[1]), nil
	case 4:
		if m.channelsFirst {
			return int(dims[1]), nil
		}
		return int(dims[3]), nil
	}
	return 0, fmt.Errorf("unsupported backbone output rank %d", len(dims))
}

// globalAveragePool reduces a [1,C] or 4D feature map to C values.
func globalAveragePool(data []float32, shape ort.Shape, channelsFirst bool) ([]float64, error) {
	switch len(shape) {
	case 2:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case 4:
	default:
		return nil, errors.New("unsupported feature map rank")
	}

	var c, spatial int
	if channelsFirst {
		c, spatial = int(shape[1]), int(shape[2]*shape[3])
	} else {
		c, spatial = int(shape[3]), int(shape[1]*shape[2])
	}
	out := make([]float64, c)
	for s := 0; s < spatial; s++ {
		for ch := 0; ch < c; ch++ {
			if channelsFirst {
				out[ch] += float64(data[ch*spatial+s])
			} else {
				out[ch] += float64(data[s*c+ch])
			}
		}
	}
	for ch := range out {
		out[ch] /= float64(spatial)
	}
	return out, nil
}
