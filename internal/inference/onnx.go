//go:build cgo

package inference

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/bizmatters/diabetes-screener/internal/screening"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXClassifier runs a scikit-learn classifier exported to ONNX: one float
// input of shape [N, 8], an int64 label output and a float [N, 2] probability output.
type ONNXClassifier struct {
	session   *ort.DynamicAdvancedSession
	inputName string
	labelName string
	probName  string
}

// NewONNXClassifier loads the model at modelPath. libPath points at the
// onnxruntime shared library; empty uses the platform default.
func NewONNXClassifier(modelPath, libPath string) (*ONNXClassifier, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}

	labelName, probName, err := pickOutputs(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{labelName, probName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNXClassifier{
		session:   session,
		inputName: inputs[0].Name,
		labelName: labelName,
		probName:  probName,
	}, nil
}

func pickOutputs(outputs []ort.InputOutputInfo) (label, prob string, err error) {
	for _, out := range outputs {
		switch out.DataType {
		case ort.TensorElementDataTypeInt64:
			if label == "" {
				label = out.Name
			}
		case ort.TensorElementDataTypeFloat:
			if prob == "" {
				prob = out.Name
			}
		}
	}
	if label == "" || prob == "" {
		return "", "", fmt.Errorf("onnx: model must expose an int64 label and a float probability output")
	}
	return label, prob, nil
}

// infer runs one row through the model and returns the label and P(label=1).
func (c *ONNXClassifier) infer(x []float64) (int, float64, error) {
	if len(x) != screening.FieldCount {
		return 0, 0, fmt.Errorf("onnx: expected %d features, got %d", screening.FieldCount, len(x))
	}

	row := make([]float32, len(x))
	for i, v := range x {
		row[i] = float32(v)
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(len(row))), row)
	if err != nil {
		return 0, 0, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	labels, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, 0, fmt.Errorf("onnx: failed to create label tensor: %w", err)
	}
	defer labels.Destroy()

	probs, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		return 0, 0, fmt.Errorf("onnx: failed to create probability tensor: %w", err)
	}
	defer probs.Destroy()

	if err := c.session.Run([]ort.Value{in}, []ort.Value{labels, probs}); err != nil {
		return 0, 0, fmt.Errorf("onnx: inference failed: %w", err)
	}

	return int(labels.GetData()[0]), float64(probs.GetData()[1]), nil
}

// Predict returns the model's label for x.
func (c *ONNXClassifier) Predict(_ context.Context, x []float64) (int, error) {
	label, _, err := c.infer(x)
	return label, err
}

// PredictProbability returns the model's probability of label 1 for x.
func (c *ONNXClassifier) PredictProbability(_ context.Context, x []float64) (float64, error) {
	_, p, err := c.infer(x)
	return p, err
}

// Close releases the ONNX session.
func (c *ONNXClassifier) Close() error {
	return c.session.Destroy()
}
