package integration

import (
	"os"
)

// ClusterConfig holds the external endpoints integration tests may use
type ClusterConfig struct {
	InferenceURL string
	IsInCluster  bool
	Namespace    string
}

// SetupEnvironment resolves endpoints for in-cluster or local execution.
// InferenceURL is empty when no inference service is available.
func SetupEnvironment() *ClusterConfig {
	config := &ClusterConfig{
		IsInCluster: isRunningInCluster(),
		Namespace:   getNamespace(),
	}

	config.InferenceURL = os.Getenv("INFERENCE_URL")
	if config.InferenceURL == "" && config.IsInCluster {
		config.InferenceURL = "http://diabetes-inference." + config.Namespace + ".svc:8000"
	}

	return config
}

// isRunningInCluster detects if we're running inside a Kubernetes cluster
func isRunningInCluster() bool {
	// Check for Kubernetes service account token
	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount/token"); err == nil {
		return true
	}

	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// getNamespace returns the current Kubernetes namespace
func getNamespace() string {
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		return string(data)
	}

	if ns := os.Getenv("NAMESPACE"); ns != "" {
		return ns
	}

	return "screening"
}
