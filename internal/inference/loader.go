package inference

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bizmatters/diabetes-screener/internal/screening"
)

// Backend selects where the classifier comes from
type Backend string

const (
	BackendLocal    Backend = "local"
	BackendONNX     Backend = "onnx"
	BackendRemote   Backend = "remote"
	BackendRegistry Backend = "registry"
)

// Options configures artifact loading.
type Options struct {
	Backend         Backend
	ScalerPath      string
	ClassifierPath  string
	ONNXModelPath   string
	ONNXLibraryPath string
	InferenceURL    string
	ModelName       string
	Registry        *Registry
}

// Artifacts are the loaded scaler and classifier, shared read-only for the
// lifetime of the process.
type Artifacts struct {
	Scaler     screening.Scaler
	Classifier screening.Classifier
	Source     string
	closers    []func() error
}

// Load resolves the scaler and classifier for opts.Backend.
func Load(ctx context.Context, opts Options) (*Artifacts, error) {
	switch opts.Backend {
	case BackendLocal:
		scaler, err := LoadScaler(opts.ScalerPath)
		if err != nil {
			return nil, err
		}
		clf, err := LoadLogisticRegression(opts.ClassifierPath)
		if err != nil {
			return nil, err
		}
		return &Artifacts{Scaler: scaler, Classifier: clf, Source: opts.ClassifierPath}, nil

	case BackendONNX:
		scaler, err := LoadScaler(opts.ScalerPath)
		if err != nil {
			return nil, err
		}
		clf, err := NewONNXClassifier(opts.ONNXModelPath, opts.ONNXLibraryPath)
		if err != nil {
			return nil, err
		}
		return &Artifacts{
			Scaler:     scaler,
			Classifier: clf,
			Source:     opts.ONNXModelPath,
			closers:    []func() error{clf.Close},
		}, nil

	case BackendRemote:
		scaler, err := LoadScaler(opts.ScalerPath)
		if err != nil {
			return nil, err
		}
		return &Artifacts{Scaler: scaler, Classifier: NewRemoteClassifier(opts.InferenceURL), Source: opts.InferenceURL}, nil

	case BackendRegistry:
		if opts.Registry == nil {
			return nil, errors.New("registry backend requires a database connection")
		}
		return loadFromRegistry(ctx, opts.Registry, opts.ModelName)

	default:
		return nil, fmt.Errorf("unknown model backend %q", opts.Backend)
	}
}

func loadFromRegistry(ctx context.Context, reg *Registry, name string) (*Artifacts, error) {
	sa, err := reg.Latest(ctx, name, KindScaler)
	if err != nil {
		return nil, err
	}
	scaler, err := ParseScaler(sa.Payload)
	if err != nil {
		return nil, err
	}

	ca, err := reg.Latest(ctx, name, KindClassifier)
	if err != nil {
		return nil, err
	}
	clf, err := ParseLogisticRegression(ca.Payload)
	if err != nil {
		return nil, err
	}

	log.Printf(`{"level":"info","message":"Loaded model from registry","model":%q,"scaler_version":%d,"classifier_version":%d}`,
		name, sa.Version, ca.Version)

	return &Artifacts{
		Scaler:     scaler,
		Classifier: clf,
		Source:     fmt.Sprintf("registry:%s@%d", name, ca.Version),
	}, nil
}

// IsHealthy reports whether the classifier can serve requests. In-process
// classifiers are always healthy.
func (a *Artifacts) IsHealthy(ctx context.Context) bool {
	if h, ok := a.Classifier.(interface{ IsHealthy(context.Context) bool }); ok {
		return h.IsHealthy(ctx)
	}
	return true
}

// Close releases any native resources held by the artifacts.
func (a *Artifacts) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
